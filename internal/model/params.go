package model

import (
	"time"

	"github.com/google/uuid"
)

// ScenarioParams is the immutable-per-run configuration bundle: the policy
// levers exposed as sliders in the frontend plus solver configuration and
// display metadata. A run always works on its own copy; nothing in the core
// mutates a caller's params.
type ScenarioParams struct {
	Meta ScenarioMeta `json:"meta"`

	// Population policy.
	FamilyPlanningYear         float64 `json:"family_planning_year"`         // year of full effectiveness [1900..2100]
	FamilyPlanningEfficacy     float64 `json:"family_planning_efficacy"`     // [0..1]
	HealthInvestmentMultiplier float64 `json:"health_investment_multiplier"` // [0.5..3.0]

	// Capital / technology.
	IndustrialDepreciationRate float64 `json:"industrial_depreciation_rate"` // [yr⁻¹]
	ServiceDepreciationRate    float64 `json:"service_depreciation_rate"`    // [yr⁻¹]
	TechnologyGrowthRate       float64 `json:"technology_growth_rate"`       // [yr⁻¹]
	InvestmentRate             float64 `json:"investment_rate"`              // fraction of industrial output reinvested

	// Agriculture.
	AgriculturalTechnology   float64 `json:"agricultural_technology"`    // yield multiplier [0.5..3.0]
	LandProtectionFraction   float64 `json:"land_protection_fraction"`   // [0..0.5]
	SubsistenceFoodPerCapita float64 `json:"subsistence_food_per_capita"` // [kg/person/yr]

	// Resources.
	ResourceEfficiency float64 `json:"resource_efficiency"` // [1..5]
	InitialNNRFraction float64 `json:"initial_nnr_fraction"`

	// Pollution.
	PollutionControl float64 `json:"pollution_control"` // [0..1]

	// Solver configuration.
	StartYear float64 `json:"start_year"`
	EndYear   float64 `json:"end_year"`
	TimeStep  float64 `json:"time_step"` // [yr]
}

// ScenarioMeta is identity and display metadata for a named scenario.
type ScenarioMeta struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	// Hex color for chart rendering (e.g. "#e63946").
	ColorHex  string `json:"color_hex"`
	CreatedAt string `json:"created_at"`
}

// DefaultParams returns the neutral parameter set with a fresh identity.
func DefaultParams() ScenarioParams {
	return ScenarioParams{
		Meta: ScenarioMeta{
			ID:        uuid.NewString(),
			Name:      "Unnamed Scenario",
			ColorHex:  "#888888",
			CreatedAt: time.Now().UTC().Format(time.RFC3339),
		},
		FamilyPlanningYear:         2000,
		FamilyPlanningEfficacy:     0.75,
		HealthInvestmentMultiplier: 1.0,
		IndustrialDepreciationRate: 0.05,
		ServiceDepreciationRate:    0.05,
		TechnologyGrowthRate:       0.002,
		InvestmentRate:             0.12,
		AgriculturalTechnology:     1.0,
		LandProtectionFraction:     0.0,
		SubsistenceFoodPerCapita:   230.0,
		ResourceEfficiency:         1.0,
		InitialNNRFraction:         1.0,
		PollutionControl:           0.0,
		StartYear:                  1900,
		EndYear:                    2100,
		TimeStep:                   1.0,
	}
}

// BAU is the business-as-usual scenario: the original World3 standard run
// with no policy interventions. Fertility is purely demand-driven through
// the demographic transition.
func BAU() ScenarioParams {
	p := DefaultParams()
	p.Meta.Name = "Business as Usual"
	p.Meta.Description = "Original World 3 standard run. No policy interventions."
	p.Meta.ColorHex = "#e63946"
	p.FamilyPlanningEfficacy = 0
	return p
}

// ComprehensiveTechnology is the aggressive-efficiency scenario: technology
// addresses resource and pollution limits without social change.
func ComprehensiveTechnology() ScenarioParams {
	p := DefaultParams()
	p.Meta.Name = "Comprehensive Technology"
	p.Meta.Description = "Technology solves resource and pollution problems, but no social changes."
	p.Meta.ColorHex = "#2a9d8f"
	p.ResourceEfficiency = 4.0
	p.PollutionControl = 0.8
	p.AgriculturalTechnology = 2.0
	p.TechnologyGrowthRate = 0.02
	return p
}

// StabilizedWorld combines technology, pollution control, family planning,
// and land protection.
func StabilizedWorld() ScenarioParams {
	p := DefaultParams()
	p.Meta.Name = "Stabilized World"
	p.Meta.Description = "Combination of technology, pollution control, family planning, and resource efficiency."
	p.Meta.ColorHex = "#457b9d"
	p.ResourceEfficiency = 4.0
	p.PollutionControl = 0.8
	p.AgriculturalTechnology = 2.0
	p.TechnologyGrowthRate = 0.015
	p.FamilyPlanningEfficacy = 0.95
	p.FamilyPlanningYear = 1975
	p.LandProtectionFraction = 0.3
	return p
}

// Presets returns the built-in scenarios in display order.
func Presets() []ScenarioParams {
	return []ScenarioParams{BAU(), ComprehensiveTechnology(), StabilizedWorld()}
}

// Field reads a parameter by its wire field name. Unknown names read zero.
func (p *ScenarioParams) Field(name string) float64 {
	switch name {
	case "family_planning_year":
		return p.FamilyPlanningYear
	case "family_planning_efficacy":
		return p.FamilyPlanningEfficacy
	case "health_investment_multiplier":
		return p.HealthInvestmentMultiplier
	case "industrial_depreciation_rate":
		return p.IndustrialDepreciationRate
	case "service_depreciation_rate":
		return p.ServiceDepreciationRate
	case "technology_growth_rate":
		return p.TechnologyGrowthRate
	case "investment_rate":
		return p.InvestmentRate
	case "agricultural_technology":
		return p.AgriculturalTechnology
	case "land_protection_fraction":
		return p.LandProtectionFraction
	case "subsistence_food_per_capita":
		return p.SubsistenceFoodPerCapita
	case "resource_efficiency":
		return p.ResourceEfficiency
	case "initial_nnr_fraction":
		return p.InitialNNRFraction
	case "pollution_control":
		return p.PollutionControl
	default:
		return 0
	}
}

// SetField writes a parameter by its wire field name. Unknown names are
// ignored.
func (p *ScenarioParams) SetField(name string, v float64) {
	switch name {
	case "family_planning_year":
		p.FamilyPlanningYear = v
	case "family_planning_efficacy":
		p.FamilyPlanningEfficacy = v
	case "health_investment_multiplier":
		p.HealthInvestmentMultiplier = v
	case "industrial_depreciation_rate":
		p.IndustrialDepreciationRate = v
	case "service_depreciation_rate":
		p.ServiceDepreciationRate = v
	case "technology_growth_rate":
		p.TechnologyGrowthRate = v
	case "investment_rate":
		p.InvestmentRate = v
	case "agricultural_technology":
		p.AgriculturalTechnology = v
	case "land_protection_fraction":
		p.LandProtectionFraction = v
	case "subsistence_food_per_capita":
		p.SubsistenceFoodPerCapita = v
	case "resource_efficiency":
		p.ResourceEfficiency = v
	case "initial_nnr_fraction":
		p.InitialNNRFraction = v
	case "pollution_control":
		p.PollutionControl = v
	}
}

// ParameterDescriptor describes one adjustable parameter for UI slider
// generation: wire field name, label, unit, range, and sector grouping.
type ParameterDescriptor struct {
	Field       string  `json:"field"`
	Label       string  `json:"label"`
	Unit        string  `json:"unit"`
	Min         float64 `json:"min"`
	Max         float64 `json:"max"`
	Default     float64 `json:"default"`
	Step        float64 `json:"step"`
	Sector      string  `json:"sector"`
	Description string  `json:"description"`
}

// ParameterDescriptors returns the full slider schema served by the API.
func ParameterDescriptors() []ParameterDescriptor {
	return []ParameterDescriptor{
		{
			Field: "family_planning_year", Label: "Family Planning Year", Unit: "year",
			Min: 1950, Max: 2100, Default: 2000, Step: 5, Sector: "population",
			Description: "Year at which family planning reaches full effectiveness.",
		},
		{
			Field: "family_planning_efficacy", Label: "Family Planning Efficacy", Unit: "fraction",
			Min: 0, Max: 1, Default: 0.75, Step: 0.05, Sector: "population",
			Description: "Maximum reduction in desired family size from family planning programs.",
		},
		{
			Field: "health_investment_multiplier", Label: "Health Investment", Unit: "multiplier",
			Min: 0.5, Max: 3, Default: 1, Step: 0.1, Sector: "population",
			Description: "Scales health services spending, affecting life expectancy.",
		},
		{
			Field: "industrial_depreciation_rate", Label: "Industrial Capital Depreciation", Unit: "yr⁻¹",
			Min: 0.02, Max: 0.10, Default: 0.05, Step: 0.005, Sector: "capital",
			Description: "Annual fraction of industrial capital that wears out.",
		},
		{
			Field: "service_depreciation_rate", Label: "Service Capital Depreciation", Unit: "yr⁻¹",
			Min: 0.02, Max: 0.10, Default: 0.05, Step: 0.005, Sector: "capital",
			Description: "Annual fraction of service capital that wears out.",
		},
		{
			Field: "technology_growth_rate", Label: "Technology Progress Rate", Unit: "yr⁻¹",
			Min: 0, Max: 0.03, Default: 0.002, Step: 0.001, Sector: "capital",
			Description: "Annual improvement in industrial output per unit capital.",
		},
		{
			Field: "investment_rate", Label: "Investment Rate", Unit: "fraction",
			Min: 0, Max: 0.4, Default: 0.12, Step: 0.01, Sector: "capital",
			Description: "Fraction of industrial output reinvested in industrial capital.",
		},
		{
			Field: "agricultural_technology", Label: "Agricultural Technology", Unit: "multiplier",
			Min: 0.5, Max: 3, Default: 1, Step: 0.1, Sector: "agriculture",
			Description: "Multiplier on land yield from crop improvements and irrigation.",
		},
		{
			Field: "land_protection_fraction", Label: "Land Protection", Unit: "fraction",
			Min: 0, Max: 0.5, Default: 0, Step: 0.05, Sector: "agriculture",
			Description: "Fraction of arable land protected from degradation and overuse.",
		},
		{
			Field: "subsistence_food_per_capita", Label: "Subsistence Food", Unit: "kg/person/yr",
			Min: 150, Max: 400, Default: 230, Step: 10, Sector: "agriculture",
			Description: "Food per capita at which the food ratio equals one.",
		},
		{
			Field: "resource_efficiency", Label: "Resource Efficiency", Unit: "multiplier",
			Min: 1, Max: 5, Default: 1, Step: 0.25, Sector: "resources",
			Description: "Reduces resource use per unit of industrial output.",
		},
		{
			Field: "initial_nnr_fraction", Label: "Initial Resource Endowment", Unit: "fraction",
			Min: 0.25, Max: 2, Default: 1, Step: 0.25, Sector: "resources",
			Description: "Starting nonrenewable resource stock relative to the 1900 estimate.",
		},
		{
			Field: "pollution_control", Label: "Pollution Control", Unit: "fraction",
			Min: 0, Max: 1, Default: 0, Step: 0.05, Sector: "pollution",
			Description: "Fraction by which pollution generation is reduced per unit output.",
		},
	}
}
