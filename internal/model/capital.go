package model

// Industrial and service capital sector.
//
// Capital grows through investment (a fraction of industrial output) and
// declines through depreciation. As nonrenewable resources deplete, the
// capital-output ratio rises and a growing share of industrial capital is
// diverted to resource extraction, reducing effective production.

import (
	"math"

	"github.com/openw3/world3/internal/lookup"
)

const (
	// Industrial capital-output ratio in 1970 [USD capital / USD output / yr].
	icor1970 = 3.0
	// Service capital-output ratio in 1970.
	scor1970 = 1.0
	// Reference population for per-capita normalizations (1970 world).
	popReference = 3.6e9
)

// capitalDerivatives fills the capital auxiliaries (industrial output, per
// capita outputs) on s and returns d(industrial_capital)/dt and
// d(service_capital)/dt.
func capitalDerivatives(s *WorldState, p ScenarioParams, t *lookup.Tables) (dIndustrial, dService float64) {
	pop := math.Max(s.Population.Population, 1)

	// Capital-output ratio rises as resources deplete.
	corMultiplier := t.CapitalOutputRatioResources.Eval(s.Resources.FractionRemaining)
	icor := icor1970 * corMultiplier

	// Technology progress: output per unit capital improves over time.
	techYears := max0(s.Time - 1970)
	techMultiplier := math.Pow(1+p.TechnologyGrowthRate, techYears)

	// Share of industrial capital consumed by resource extraction.
	capitalForResources := t.CapitalFractionResourceExtraction.Eval(s.Resources.FractionRemaining)

	productiveCapital := s.Capital.IndustrialCapital *
		(1 - clamp(capitalForResources, 0, 0.95)) * techMultiplier

	industrialOutput := max0(productiveCapital / icor)
	s.Capital.IndustrialOutput = industrialOutput
	s.Capital.IndustrialOutputPerCapita = industrialOutput / pop

	serviceOutput := max0(s.Capital.ServiceCapital / scor1970)
	s.Capital.ServiceOutputPerCapita = serviceOutput / pop

	// Service capital is funded by the share of industrial output allocated
	// to services, which shrinks as services per capita approach the
	// reference level.
	spcNormalized := s.Capital.ServiceOutputPerCapita /
		math.Max(industrialOutput/popReference, 1e-9)
	fracToServices := t.IndustrialFractionToSvc.Eval(spcNormalized)

	investment := industrialOutput * p.InvestmentRate
	depreciationI := s.Capital.IndustrialCapital * p.IndustrialDepreciationRate
	dIndustrial = investment - depreciationI

	serviceInvestment := industrialOutput * fracToServices
	depreciationS := s.Capital.ServiceCapital * p.ServiceDepreciationRate
	dService = serviceInvestment - depreciationS

	return dIndustrial, dService
}
