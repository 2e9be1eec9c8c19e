package model

// Persistent pollution sector.
//
// Pollution is generated by industrial activity and agricultural chemical
// inputs, and assimilated by the environment with a time constant that
// lengthens sharply as the pollution index rises. The stock is normalized
// so that the 1970 level equals 1.0.

import (
	"math"

	"github.com/openw3/world3/internal/lookup"
)

const (
	// Stock level defining pollution index 1.0 (the 1970 reference).
	pollutionReferenceStock = 1.0
	// Generation rate [units/yr] at 1970 reference industrial and
	// agricultural activity, before the pollution-control lever. Calibrated
	// so the stock climbs from 0.05 in 1900 past the 1970 reference level
	// before 2000 and peaks near 2.5 around 2015 in the standard run.
	pollutionGenerationNormal = 0.15
	// 1970 reference values for normalizing the generation table inputs.
	iopcReference1970 = 500.0 // industrial output per capita [USD/person/yr]
	aiphReference1970 = 150.0 // agricultural inputs per hectare [USD/ha/yr]
	// Relative weight of industrial vs agricultural generation at reference.
	industryGenerationShare = 0.7
)

// pollutionIndexAuxiliary recomputes the index from the pollution stock.
// Runs early in the pass: agriculture and population both consume the index.
func pollutionIndexAuxiliary(s *WorldState) {
	s.Pollution.PollutionIndex = s.Pollution.PersistentPollution / pollutionReferenceStock
}

// pollutionDerivative fills the generation/assimilation auxiliaries on s
// and returns d(persistent_pollution)/dt.
func pollutionDerivative(s *WorldState, p ScenarioParams, t *lookup.Tables) float64 {
	genIndustry := t.PollutionGenerationIndustry.Eval(
		s.Capital.IndustrialOutputPerCapita / iopcReference1970)
	genAgri := t.PollutionGenerationAgri.Eval(
		s.Agriculture.AgriculturalInputsPerHectare / aiphReference1970)

	control := clamp(p.PollutionControl, 0, 1)
	generation := pollutionGenerationNormal *
		(industryGenerationShare*genIndustry + (1-industryGenerationShare)*genAgri) *
		(1 - control)
	s.Pollution.GenerationRate = generation

	assimilationTime := math.Max(t.PollutionAssimilationTime.Eval(s.Pollution.PollutionIndex), 1)
	assimilation := s.Pollution.PersistentPollution / assimilationTime
	s.Pollution.AssimilationRate = assimilation

	return generation - assimilation
}
