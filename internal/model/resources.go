package model

// Nonrenewable resource sector.
//
// Resources are depleted by industrial activity. As the fraction remaining
// falls, the capital sector's cost multiplier rises, diverting ever-larger
// shares of industrial capital to extraction instead of productive output.

// Resource depletion coefficient [NNR fraction / (person × USD/person/yr × yr)].
// Calibrated so that at 1970 conditions (pop 3.3e9, IOPC ~$230/yr) extraction
// is ~4.5e-3 NNR/yr, cumulatively depleting half the endowment by about 2030
// in the standard run.
const resourceDepletionCoeff = 6.0e-15

// resourceAuxiliaries recomputes fraction_remaining from the resource stock.
// Must run before the capital sector reads the cost multiplier.
func resourceAuxiliaries(s *WorldState) {
	s.Resources.FractionRemaining = clamp(s.Resources.NonrenewableResources, 0, 1)
}

// resourceDerivative returns d(nonrenewable_resources)/dt. Always
// non-positive: resources are consumed, never replenished. Per-capita
// resource demand scales with industrial output per capita; the FCAOR table
// appears only in the capital sector, not here.
func resourceDerivative(s *WorldState, p ScenarioParams) float64 {
	pop := s.Population.Population
	if pop <= 0 {
		return 0
	}
	iopc := max0(s.Capital.IndustrialOutputPerCapita)
	return -(pop * iopc * resourceDepletionCoeff / p.ResourceEfficiency)
}
