package model

// Agricultural sector.
//
// Food production depends on arable land and yield per hectare. Yield is
// enhanced by capital inputs (fertilizer, machinery) and degraded by
// pollution. Arable land grows as new land is developed from the
// potentially-arable reserve and shrinks through erosion.

import (
	"math"

	"github.com/openw3/world3/internal/lookup"
)

const (
	// Base land yield in 1900 [kg/hectare/yr].
	landYield1900 = 600.0
	// Total potential arable land area [hectares].
	totalPotentialArable = 3.2e9
	// Delay between investment decision and land being available [yr].
	landDevelopmentTime = 10.0
	// Fraction of land degrading per year under normal use [yr⁻¹].
	landErosionRate = 0.002
)

// agricultureDerivatives fills the agriculture auxiliaries on s and returns
// d(arable_land)/dt and d(potentially_arable_land)/dt.
//
// The industrial allocation to agriculture responds to food pressure, which
// itself depends on this sector's output. The loop is broken with a
// provisional food ratio computed at neutral capital inputs, keeping the
// pass a pure function of the stocks.
func agricultureDerivatives(s *WorldState, p ScenarioParams, t *lookup.Tables) (dArable, dPotential float64) {
	pop := math.Max(s.Population.Population, 1)
	arable := math.Max(s.Agriculture.ArableLand, 1)

	yieldPollution := t.LandYieldMultiplierPollution.Eval(s.Pollution.PollutionIndex)

	// Provisional food ratio at neutral inputs, used only to set the
	// allocation fraction.
	provisionalYield := landYield1900 * t.LandYieldMultiplierCapital.Eval(0) *
		yieldPollution * p.AgriculturalTechnology
	provisionalRatio := foodRatio(arable*provisionalYield/pop, p)

	fracToAgri := t.IndustrialFractionToAgri.Eval(provisionalRatio)
	agriOutputTotal := s.Capital.IndustrialOutput * fracToAgri

	inputsPerHa := agriOutputTotal / arable
	s.Agriculture.AgriculturalInputsPerHectare = inputsPerHa

	yieldCapital := t.LandYieldMultiplierCapital.Eval(inputsPerHa)
	landYield := landYield1900 * yieldCapital * yieldPollution * p.AgriculturalTechnology
	s.Agriculture.LandYield = landYield

	food := arable * landYield
	s.Agriculture.Food = food
	s.Agriculture.FoodPerCapita = food / pop

	// Land development: cost rises as the better land is used up.
	potential := max0(s.Agriculture.PotentiallyArableLand)
	fractionDeveloped := clamp(1-potential/totalPotentialArable, 0, 1)
	devCost := t.LandDevelopmentCost.Eval(fractionDeveloped)

	developmentDesired := agriOutputTotal * 0.1 / math.Max(devCost, 1)
	developmentRate := math.Min(developmentDesired/landDevelopmentTime, potential/landDevelopmentTime)

	// Erosion accelerates with yield pressure; protected land is exempt.
	erosionMult := t.LandErosionMultiplier.Eval(landYield / landYield1900)
	protected := clamp(p.LandProtectionFraction, 0, 0.5)
	erosion := arable * landErosionRate * erosionMult * (1 - protected)

	return developmentRate - erosion, -developmentRate
}

// foodRatio normalizes food per capita against the subsistence threshold.
func foodRatio(foodPerCapita float64, p ScenarioParams) float64 {
	if p.SubsistenceFoodPerCapita <= 0 {
		return 1
	}
	return foodPerCapita / p.SubsistenceFoodPerCapita
}
