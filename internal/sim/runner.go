// Package sim turns the integrator into a restartable run generator: one
// finite, ordered sequence of world states per parameter set. Both the
// one-shot batch path and the streaming session wrap the same generator.
package sim

import (
	"context"
	"fmt"

	"github.com/openw3/world3/internal/lookup"
	"github.com/openw3/world3/internal/model"
	"github.com/openw3/world3/internal/solver"
)

// Runner produces simulation runs against a shared read-only table set.
// Safe for concurrent use: every run works on its own copies.
type Runner struct {
	tables *lookup.Tables
	integ  *solver.RK4
}

// NewRunner builds a Runner over the given tables.
func NewRunner(tables *lookup.Tables) *Runner {
	return &Runner{tables: tables, integ: solver.New(tables)}
}

// InitialState returns the 1900 starting state adjusted for the scenario's
// initial resource endowment.
func (r *Runner) InitialState(p model.ScenarioParams) model.WorldState {
	s := model.InitialConditions1900()
	if p.InitialNNRFraction > 0 {
		s.Resources.NonrenewableResources = p.InitialNNRFraction
		s.Resources.FractionRemaining = p.InitialNNRFraction
	}
	s.Time = p.StartYear
	return s
}

func validateParams(p model.ScenarioParams) error {
	if p.TimeStep <= 0 {
		return fmt.Errorf("time step must be positive, got %g", p.TimeStep)
	}
	if p.EndYear <= p.StartYear {
		return fmt.Errorf("end year %g must be after start year %g", p.EndYear, p.StartYear)
	}
	return nil
}

// RunEach integrates from the scenario's start year to its end year
// inclusive, invoking fn once per state in strictly increasing time order
// (the initial state first). It stops at the first error from fn, at
// context cancellation (checked between steps), or at divergence, and
// returns the number of states emitted. Re-invoking with identical inputs
// reproduces an identical sequence.
func (r *Runner) RunEach(ctx context.Context, p model.ScenarioParams, fn func(model.WorldState) error) (int, error) {
	if err := validateParams(p); err != nil {
		return 0, err
	}

	current := model.ComputeAuxiliaries(r.InitialState(p), p, r.tables)
	if err := fn(current); err != nil {
		return 0, err
	}
	emitted := 1

	dt := p.TimeStep
	for current.Time < p.EndYear-dt*0.5 {
		select {
		case <-ctx.Done():
			return emitted, ctx.Err()
		default:
		}

		stepDt := dt
		if current.Time+dt > p.EndYear {
			stepDt = p.EndYear - current.Time
		}

		next, err := r.integ.Step(current, p, stepDt)
		if err != nil {
			return emitted, err
		}
		if err := fn(next); err != nil {
			return emitted, err
		}
		emitted++
		current = next
	}
	return emitted, nil
}

// Run executes a full batch run and collects the trajectory. The first
// divergence is surfaced as the error (with the last valid state inside),
// never swallowed into a partial output.
func (r *Runner) Run(ctx context.Context, p model.ScenarioParams) (*Output, error) {
	if err := validateParams(p); err != nil {
		return nil, err
	}
	steps := int((p.EndYear-p.StartYear)/p.TimeStep) + 1
	states := make([]model.WorldState, 0, steps)

	_, err := r.RunEach(ctx, p, func(s model.WorldState) error {
		states = append(states, s)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return NewOutput(states, p), nil
}
