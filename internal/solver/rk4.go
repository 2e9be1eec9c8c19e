// Package solver advances the world model with a classic fixed-step
// fourth-order Runge-Kutta integrator. Step size comes from the scenario
// parameters; there is no adaptive control.
package solver

import (
	"fmt"
	"math"

	"github.com/openw3/world3/internal/lookup"
	"github.com/openw3/world3/internal/model"
)

// maxPopulation is the sane physiological ceiling for total population.
// A stock exceeding it after clamping means the run has diverged.
const maxPopulation = 1e13

// DivergedError reports a run whose stocks left their physical domain.
// Fatal to the run, never to the process; LastValid is the state that
// preceded the failed step.
type DivergedError struct {
	Year      float64
	Variable  string
	Value     float64
	LastValid model.WorldState
}

func (e *DivergedError) Error() string {
	return fmt.Sprintf("state diverged at year %.1f: %s = %.3e", e.Year, e.Variable, e.Value)
}

// RK4 integrates the ten-stock ODE system against a shared, read-only
// table set. The zero value is not usable; construct with New.
type RK4 struct {
	tables *lookup.Tables
}

// New returns an integrator bound to the given lookup tables.
func New(tables *lookup.Tables) *RK4 {
	return &RK4{tables: tables}
}

// Tables exposes the shared table set for callers that pre-populate
// auxiliary fields.
func (r *RK4) Tables() *lookup.Tables { return r.tables }

// Step advances state by dt years:
//
//	k1 = f(t, y)
//	k2 = f(t+dt/2, y + dt/2·k1)
//	k3 = f(t+dt/2, y + dt/2·k2)
//	k4 = f(t+dt,   y + dt·k3)
//	y' = y + dt/6·(k1 + 2k2 + 2k3 + k4)
//
// After combining, stocks are clamped to their physical domain (the
// floor at zero lives in model.FromStocks) and auxiliaries are
// recomputed so the returned state is fully internally consistent. A
// non-finite stock, or total population outside [0, maxPopulation], fails
// the step with a *DivergedError carrying the last valid state.
func (r *RK4) Step(state model.WorldState, p model.ScenarioParams, dt float64) (model.WorldState, error) {
	y := state.Stocks()

	k1 := model.Derivatives(&state, p, r.tables)

	s2 := model.FromStocks(state.Time+dt/2, y.Add(k1.Scale(dt/2)))
	k2 := model.Derivatives(&s2, p, r.tables)

	s3 := model.FromStocks(state.Time+dt/2, y.Add(k2.Scale(dt/2)))
	k3 := model.Derivatives(&s3, p, r.tables)

	s4 := model.FromStocks(state.Time+dt, y.Add(k3.Scale(dt)))
	k4 := model.Derivatives(&s4, p, r.tables)

	weighted := k1.Add(k2.Scale(2)).Add(k3.Scale(2)).Add(k4)
	raw := y.Add(weighted.Scale(dt / 6))

	for i, v := range raw {
		if !isFinite(v) {
			return model.WorldState{}, &DivergedError{
				Year:      state.Time + dt,
				Variable:  stockNames[i],
				Value:     v,
				LastValid: state,
			}
		}
	}

	next := model.ComputeAuxiliaries(model.FromStocks(state.Time+dt, raw), p, r.tables)

	if pop := next.Population.Population; pop > maxPopulation {
		return model.WorldState{}, &DivergedError{
			Year:      next.Time,
			Variable:  "population",
			Value:     pop,
			LastValid: state,
		}
	}
	return next, nil
}

// stockNames matches the flat stock order of model.Stocks.
var stockNames = [model.NumStocks]string{
	"cohort_0_14",
	"cohort_15_44",
	"cohort_45_64",
	"cohort_65_plus",
	"industrial_capital",
	"service_capital",
	"arable_land",
	"potentially_arable_land",
	"nonrenewable_resources",
	"persistent_pollution",
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
