package model

// InitialConditions1900 returns the 1900 starting state, calibrated to
// broadly match the Meadows 1972 standard run starting point. Auxiliary
// fields are rough estimates; the solver recomputes them before the state
// is used.
func InitialConditions1900() WorldState {
	return WorldState{
		Time: 1900,
		Population: PopulationState{
			Population: 1.6e9,
			// 1900 age structure: young population, small elderly cohort.
			Cohort0to14:  0.60e9,
			Cohort15to44: 0.65e9,
			Cohort45to64: 0.27e9,
			Cohort65Plus: 0.08e9,
		},
		Capital: CapitalState{
			IndustrialCapital: 0.2e12,
			// Service capital pre-set to its ~1900 equilibrium so service
			// output per capita starts near $200/yr (LE ≈ 32 yr).
			ServiceCapital: 0.32e12,
		},
		Agriculture: AgricultureState{
			ArableLand:            0.9e9,
			PotentiallyArableLand: 2.3e9,
			FoodPerCapita:         400,
		},
		Resources: ResourceState{
			NonrenewableResources: 1.0,
			FractionRemaining:     1.0,
		},
		Pollution: PollutionState{
			// Small in 1900; rises to ~1 by 1970 in the standard run.
			PersistentPollution: 0.05,
			PollutionIndex:      0.05,
		},
	}
}
