package model

// Top-level derivative evaluator: dy/dt = f(t, y, params).
//
// Sector evaluation order is fixed to keep the dependency graph acyclic:
//
//	1. Resources   (fraction_remaining feeds the capital cost multipliers)
//	2. Capital     (industrial output feeds agriculture, pollution, population)
//	3. Agriculture (food per capita feeds population)
//	4. Pollution   (generation reads capital and agriculture auxiliaries)
//	5. Population  (consumes food, services, pollution)
//
// No sector reads a later sector's output from the same pass; the pollution
// index and resource fraction are stock normalizations recomputed up front.

import "github.com/openw3/world3/internal/lookup"

// Derivatives computes the instantaneous rate of change of every stock.
// It is pure: the working state is rebuilt from the stocks alone, so
// identical (state, params, tables) produce bit-identical results, and
// concurrent calls against the same shared tables are safe.
func Derivatives(state *WorldState, p ScenarioParams, t *lookup.Tables) Stocks {
	s := FromStocks(state.Time, state.Stocks())
	pollutionIndexAuxiliary(&s)
	resourceAuxiliaries(&s)

	dIndustrial, dService := capitalDerivatives(&s, p, t)
	dArable, dPotential := agricultureDerivatives(&s, p, t)
	dPollution := pollutionDerivative(&s, p, t)
	pop := populationDerivatives(&s, p, t)

	// Resource depletion scales with industrial output per capita, which
	// the capital step just produced.
	dResources := resourceDerivative(&s, p)

	return Stocks{
		pop.dCohort0to14,
		pop.dCohort15to44,
		pop.dCohort45to64,
		pop.dCohort65Plus,
		dIndustrial,
		dService,
		dArable,
		dPotential,
		dResources,
		dPollution,
	}
}

// ComputeAuxiliaries re-derives every auxiliary field from the stocks,
// returning a fully internally consistent state. The solver calls this on
// each accepted state so the stored trajectory never carries stale
// auxiliaries; it is also used to populate the initial state.
func ComputeAuxiliaries(state WorldState, p ScenarioParams, t *lookup.Tables) WorldState {
	s := FromStocks(state.Time, state.Stocks())
	pollutionIndexAuxiliary(&s)
	resourceAuxiliaries(&s)
	capitalDerivatives(&s, p, t)
	agricultureDerivatives(&s, p, t)
	pollutionDerivative(&s, p, t)
	populationDerivatives(&s, p, t)
	return s
}
