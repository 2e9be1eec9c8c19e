// Package model holds the World3 state record, scenario parameters, and the
// sector derivative evaluator. The state is structured (one sub-record per
// sector) rather than a flat numeric vector; the flat form exists only at
// the solver boundary via Stocks/FromStocks.
package model

// WorldState is the complete model state at a single simulated instant.
// Ten fields are stocks (integrated by the solver); every other field is an
// auxiliary recomputed from the stocks and parameters each step.
//
// The JSON field names and sector nesting are the wire contract consumed by
// the frontend and persistence collaborators; do not rename.
type WorldState struct {
	// Simulation year (e.g. 1900.0 to 2100.0).
	Time float64 `json:"time"`

	Population  PopulationState  `json:"population"`
	Capital     CapitalState     `json:"capital"`
	Agriculture AgricultureState `json:"agriculture"`
	Resources   ResourceState    `json:"resources"`
	Pollution   PollutionState   `json:"pollution"`
}

// PopulationState tracks four age cohorts (stocks) plus derived vital rates.
type PopulationState struct {
	// Total population [persons], derived as the sum of the four cohorts.
	Population float64 `json:"population"`
	// Age cohort stocks [persons].
	Cohort0to14  float64 `json:"cohort_0_14"`
	Cohort15to44 float64 `json:"cohort_15_44"`
	Cohort45to64 float64 `json:"cohort_45_64"`
	Cohort65Plus float64 `json:"cohort_65_plus"`
	// Crude birth rate [births/person/yr].
	BirthRate float64 `json:"birth_rate"`
	// Crude death rate [deaths/person/yr].
	DeathRate float64 `json:"death_rate"`
	// Life expectancy at birth [yr].
	LifeExpectancy float64 `json:"life_expectancy"`
	// Total fertility rate [children/woman].
	FertilityRate float64 `json:"fertility_rate"`
}

// CapitalState tracks industrial and service capital stocks [1975 USD] and
// the output auxiliaries derived from them.
type CapitalState struct {
	IndustrialCapital float64 `json:"industrial_capital"`
	ServiceCapital    float64 `json:"service_capital"`
	// Industrial output [1975 USD/yr].
	IndustrialOutput float64 `json:"industrial_output"`
	// Industrial output per capita [1975 USD/person/yr].
	IndustrialOutputPerCapita float64 `json:"industrial_output_per_capita"`
	// Service output per capita [1975 USD/person/yr].
	ServiceOutputPerCapita float64 `json:"service_output_per_capita"`
}

// AgricultureState tracks land stocks [hectares] and food auxiliaries.
type AgricultureState struct {
	ArableLand            float64 `json:"arable_land"`
	PotentiallyArableLand float64 `json:"potentially_arable_land"`
	// Annual food production [vegetable-equivalent kg/yr].
	Food float64 `json:"food"`
	// Food per capita [kg/person/yr].
	FoodPerCapita float64 `json:"food_per_capita"`
	// Land yield [kg/hectare/yr].
	LandYield float64 `json:"land_yield"`
	// Agricultural capital inputs [1975 USD/hectare/yr].
	AgriculturalInputsPerHectare float64 `json:"agricultural_inputs_per_hectare"`
}

// ResourceState tracks the nonrenewable resource stock, normalized to 1.0
// at 1900.
type ResourceState struct {
	NonrenewableResources float64 `json:"nonrenewable_resources"`
	// Fraction of the original resource endowment remaining [0..1].
	FractionRemaining float64 `json:"fraction_remaining"`
}

// PollutionState tracks the persistent pollution stock (1970 level = 1)
// and its flow auxiliaries.
type PollutionState struct {
	PersistentPollution float64 `json:"persistent_pollution"`
	// Pollution index, normalized to 1.0 at the 1970 reference stock.
	PollutionIndex float64 `json:"pollution_index"`
	// Current generation rate [units/yr].
	GenerationRate float64 `json:"generation_rate"`
	// Current assimilation rate [units/yr].
	AssimilationRate float64 `json:"assimilation_rate"`
}

// NumStocks is the number of integrated state variables. Time is tracked
// separately by the solver.
const NumStocks = 10

// Stocks is the flat form of the ten integrated variables, in the fixed
// order documented on WorldState.Stocks. It doubles as the derivative
// vector returned by Derivatives.
type Stocks [NumStocks]float64

// Stocks extracts the integrable variables in a fixed order:
//
//	0..3  population cohorts (0-14, 15-44, 45-64, 65+)
//	4..5  industrial capital, service capital
//	6..7  arable land, potentially arable land
//	8     nonrenewable resources
//	9     persistent pollution
//
// The order is part of the solver contract and is round-trip tested.
func (s *WorldState) Stocks() Stocks {
	return Stocks{
		s.Population.Cohort0to14,
		s.Population.Cohort15to44,
		s.Population.Cohort45to64,
		s.Population.Cohort65Plus,
		s.Capital.IndustrialCapital,
		s.Capital.ServiceCapital,
		s.Agriculture.ArableLand,
		s.Agriculture.PotentiallyArableLand,
		s.Resources.NonrenewableResources,
		s.Pollution.PersistentPollution,
	}
}

// FromStocks rebuilds a state from the flat stock vector. Stocks are
// floored at zero and derived totals (total population, resource fraction)
// are recomputed. All other auxiliary fields are zero; ComputeAuxiliaries
// fills them before the state is used.
func FromStocks(time float64, v Stocks) WorldState {
	s := WorldState{Time: time}

	s.Population.Cohort0to14 = max0(v[0])
	s.Population.Cohort15to44 = max0(v[1])
	s.Population.Cohort45to64 = max0(v[2])
	s.Population.Cohort65Plus = max0(v[3])
	s.Population.Population = s.Population.Cohort0to14 + s.Population.Cohort15to44 +
		s.Population.Cohort45to64 + s.Population.Cohort65Plus

	s.Capital.IndustrialCapital = max0(v[4])
	s.Capital.ServiceCapital = max0(v[5])

	s.Agriculture.ArableLand = max0(v[6])
	s.Agriculture.PotentiallyArableLand = max0(v[7])

	s.Resources.NonrenewableResources = max0(v[8])
	s.Resources.FractionRemaining = clamp(v[8], 0, 1)

	s.Pollution.PersistentPollution = max0(v[9])
	return s
}

// Add returns a + b element-wise.
func (a Stocks) Add(b Stocks) Stocks {
	var out Stocks
	for i := range a {
		out[i] = a[i] + b[i]
	}
	return out
}

// Scale returns a * f element-wise.
func (a Stocks) Scale(f float64) Stocks {
	var out Stocks
	for i := range a {
		out[i] = a[i] * f
	}
	return out
}

func max0(x float64) float64 {
	if x < 0 {
		return 0
	}
	return x
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
