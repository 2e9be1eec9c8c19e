package model

// Population sector.
//
// Four age cohorts: 0-14, 15-44, 45-64, 65+. Births enter the youngest
// cohort; deaths occur in all cohorts; aging moves people between them.
// The sector depends on food, health services, crowding, and pollution
// through lookup-table multipliers on life expectancy.

import (
	"math"

	"github.com/openw3/world3/internal/lookup"
)

const (
	// Base life expectancy [yr] before the lookup-table multipliers.
	// With the health table's sub-1.0 values at low service output this
	// yields LE ≈ 32 yr at 1900 conditions and ≈ 53 yr at 1970.
	lifeExpectancyBase = 20.0

	// Years spent in each cohort before aging out.
	cohort0to14Duration  = 15.0
	cohort15to44Duration = 30.0
	cohort45to64Duration = 20.0
)

type populationDerivs struct {
	dCohort0to14  float64
	dCohort15to44 float64
	dCohort45to64 float64
	dCohort65Plus float64
}

// populationDerivatives fills life expectancy, birth/death rates, and
// fertility on s, and returns the four cohort rates.
func populationDerivatives(s *WorldState, p ScenarioParams, t *lookup.Tables) populationDerivs {
	pop := math.Max(s.Population.Population, 1)

	ratio := foodRatio(s.Agriculture.FoodPerCapita, p)
	healthServices := s.Capital.ServiceOutputPerCapita * p.HealthInvestmentMultiplier
	crowding := pop / popReference

	lemFood := t.LifeExpMultiplierFood.Eval(ratio)
	lemHealth := t.LifeExpMultiplierHealth.Eval(healthServices)
	lemCrowding := t.LifeExpMultiplierCrowding.Eval(crowding)
	lemPollution := t.LifeExpMultiplierPollution.Eval(s.Pollution.PollutionIndex)

	lifeExpectancy := lifeExpectancyBase * lemFood * lemHealth * lemCrowding * lemPollution
	s.Population.LifeExpectancy = clamp(lifeExpectancy, 5, 85)

	// Fertility: desired family size falls with income; family planning
	// ramps in from 1900 to the policy year.
	desiredFamilySize := t.DesiredFamilySize.Eval(s.Capital.IndustrialOutputPerCapita)

	fpRamp := 1.0
	if p.FamilyPlanningYear > 1900 {
		fpRamp = clamp((s.Time-1900)/(p.FamilyPlanningYear-1900), 0, 1)
	}
	fpMultiplier := t.FamilyPlanningMultiplier.Eval(p.FamilyPlanningEfficacy * fpRamp)
	foodFertility := t.FoodFertilityMultiplier.Eval(ratio)

	tfr := desiredFamilySize * fpMultiplier * foodFertility
	s.Population.FertilityRate = clamp(tfr, 0.5, 8)

	// Births: women aged 15-44 are roughly half the cohort.
	fertileWomen := s.Population.Cohort15to44 * 0.5
	birthsPerYear := fertileWomen * tfr / cohort15to44Duration
	s.Population.BirthRate = birthsPerYear / pop

	// Mortality: base annual death fraction 1/LE, with cohort multipliers
	// calibrated so the weighted average at a 1900 age structure gives a
	// crude death rate near 2.8% at LE = 32.
	baseMort := 1 / math.Max(s.Population.LifeExpectancy, 1)

	deaths0to14 := s.Population.Cohort0to14 * baseMort * 0.8
	deaths15to44 := s.Population.Cohort15to44 * baseMort * 0.5
	deaths45to64 := s.Population.Cohort45to64 * baseMort * 1.0
	deaths65Plus := s.Population.Cohort65Plus * baseMort * 3.0

	s.Population.DeathRate = (deaths0to14 + deaths15to44 + deaths45to64 + deaths65Plus) / pop

	aging0to15 := s.Population.Cohort0to14 / cohort0to14Duration
	aging15to45 := s.Population.Cohort15to44 / cohort15to44Duration
	aging45to65 := s.Population.Cohort45to64 / cohort45to64Duration

	return populationDerivs{
		dCohort0to14:  birthsPerYear - aging0to15 - deaths0to14,
		dCohort15to44: aging0to15 - aging15to45 - deaths15to44,
		dCohort45to64: aging15to45 - aging45to65 - deaths45to64,
		dCohort65Plus: aging45to65 - deaths65Plus,
	}
}
