package lookup

// Tables bundles the digitized World3 relationships, loaded once at startup
// and shared read-only by every run. Sources: Meadows et al. "World
// Dynamics" (1972) and "Beyond the Limits" (1992), with calibration
// adjustments noted per table. Names follow the original Dynamo
// documentation.
type Tables struct {
	// Population sector
	LifeExpMultiplierFood      *Table // LEMF: x food ratio, y multiplier
	LifeExpMultiplierHealth    *Table // LMHS: x service output per capita [USD/person/yr]
	LifeExpMultiplierCrowding  *Table // LMCR: x crowding ratio
	LifeExpMultiplierPollution *Table // LMPO: x pollution index (1970 = 1)
	DesiredFamilySize          *Table // DCFS: x industrial output per capita
	FamilyPlanningMultiplier   *Table // FRSN: x effective family planning [0..1]
	FractionServicesHealth     *Table // FSH: x services per capita (normalized)
	FoodFertilityMultiplier    *Table // FRNF: x food ratio

	// Capital sector
	CapitalOutputRatioResources *Table // ICOR multiplier: x NNR fraction remaining
	IndustrialFractionToAgri    *Table // FIOAA: x food ratio
	IndustrialFractionToSvc     *Table // FIOAS: x services per capita (normalized)
	JobsPerCapital              *Table // JPICU: x industrial output per capita (normalized)
	LaborForceParticipation     *Table // LFP: x fraction population age 15-64

	// Agriculture sector
	LandYieldMultiplierCapital   *Table // LYMC: x agricultural inputs per hectare
	LandYieldMultiplierPollution *Table // LYMAP: x pollution index
	LandErosionMultiplier        *Table // LERD: x land yield ratio
	LandDevelopmentCost          *Table // LDCO: x fraction of potential land developed

	// Resource sector
	CapitalFractionResourceExtraction *Table // FCAOR: x NNR fraction remaining

	// Pollution sector
	PollutionGenerationIndustry *Table // PPGIO: x industrial output per capita (normalized)
	PollutionGenerationAgri     *Table // PPGAO: x agricultural inputs (normalized)
	PollutionAssimilationTime   *Table // PPASR: x pollution index, y assimilation time [yr]
}

// builder collects the first construction error while the table set is
// being assembled, so Load can report it once instead of per call.
type builder struct {
	err error
}

func (b *builder) table(name string, xs, ys []float64) *Table {
	t, err := New(name, xs, ys)
	if err != nil && b.err == nil {
		b.err = err
	}
	return t
}

// Load builds the canonical table set. The breakpoints are fixed at compile
// time and the result never mutates.
func Load() (*Tables, error) {
	var b builder
	t := &Tables{
		// x: food ratio (0=starvation, 1=subsistence); y: multiplier on life expectancy.
		LifeExpMultiplierFood: b.table("life_exp_multiplier_food",
			[]float64{0, 1, 2, 3, 4, 5},
			[]float64{0, 1, 1.43, 1.50, 1.50, 1.50}),

		// x: service output per capita [1975 USD/person/yr].
		// Calibrated for the ~20-year service-capital lag: 1900 sopc ≈ $200
		// gives LE ≈ 32 yr, 1970 sopc ≈ $500 gives LE ≈ 53 yr. Values below
		// 1 mean poor health services reduce life expectancy below base.
		LifeExpMultiplierHealth: b.table("life_exp_multiplier_health",
			[]float64{0, 200, 400, 600, 800, 1000},
			[]float64{0.50, 0.76, 1.15, 1.55, 1.78, 2.00}),

		// x: crowding ratio (population / 1970 reference).
		LifeExpMultiplierCrowding: b.table("life_exp_multiplier_crowding",
			[]float64{0, 0.5, 1, 1.5, 2, 2.5, 3, 3.5, 4, 4.5, 5},
			[]float64{1.50, 1.40, 1.30, 1.20, 1.10, 1.00, 0.90, 0.80, 0.70, 0.60, 0.50}),

		// x: persistent pollution index (1.0 = 1970 level).
		LifeExpMultiplierPollution: b.table("life_exp_multiplier_pollution",
			[]float64{0, 10, 20, 30, 40, 50, 60, 70, 80},
			[]float64{1.0, 0.99, 0.97, 0.95, 0.90, 0.85, 0.75, 0.65, 0.55}),

		// x: industrial output per capita [1975 USD/person/yr]; y: children/woman.
		// Family size begins dropping only past ~$400/yr, matching the slow
		// demographic transition of the World3 standard run.
		DesiredFamilySize: b.table("desired_family_size",
			[]float64{0, 400, 800, 1200, 1600},
			[]float64{5.0, 4.0, 3.0, 2.1, 1.9}),

		// x: effective family planning [0..1]; y: multiplier on fertility.
		FamilyPlanningMultiplier: b.table("family_planning_multiplier",
			[]float64{0, 0.25, 0.5, 0.75, 1},
			[]float64{1.0, 0.90, 0.75, 0.55, 0.40}),

		FractionServicesHealth: b.table("fraction_services_health",
			[]float64{0, 0.5, 1, 1.5, 2},
			[]float64{0.3, 0.35, 0.40, 0.45, 0.50}),

		// x: food per capita / subsistence food per capita.
		FoodFertilityMultiplier: b.table("food_fertility_multiplier",
			[]float64{0, 0.5, 1, 1.5, 2},
			[]float64{0, 0.6, 1.0, 1.05, 1.1}),

		// x: fraction of NNR remaining; y: multiplier on capital-output ratio.
		// At NNR=1.0 effective ICOR = 3.0 × 0.50 = 1.5, so investment (8%)
		// outruns depreciation (5%) and capital grows ~3%/yr; growth stalls
		// near NNR=0.6 and collapses toward ICOR=24 at NNR=0.
		CapitalOutputRatioResources: b.table("capital_output_ratio_resources",
			[]float64{0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
			[]float64{8.0, 5.0, 3.0, 1.8, 1.2, 0.90, 0.75, 0.65, 0.58, 0.53, 0.50}),

		// x: food ratio; y: fraction of industrial output diverted to agriculture.
		IndustrialFractionToAgri: b.table("industrial_fraction_to_agriculture",
			[]float64{0, 0.5, 1, 1.5, 2, 2.5},
			[]float64{0.40, 0.25, 0.15, 0.10, 0.07, 0.05}),

		// x: services per capita normalized to 1 at 1970.
		IndustrialFractionToSvc: b.table("industrial_fraction_to_services",
			[]float64{0, 0.5, 1, 1.5, 2},
			[]float64{0.30, 0.25, 0.20, 0.15, 0.12}),

		JobsPerCapital: b.table("jobs_per_capital",
			[]float64{0, 0.5, 1, 2, 3, 4},
			[]float64{0.0007, 0.0014, 0.0017, 0.0018, 0.0019, 0.002}),

		LaborForceParticipation: b.table("labor_force_participation",
			[]float64{0.5, 0.6, 0.7, 0.8},
			[]float64{0.50, 0.55, 0.60, 0.65}),

		// x: agricultural inputs per hectare [USD/ha/yr].
		LandYieldMultiplierCapital: b.table("land_yield_multiplier_capital",
			[]float64{0, 40, 80, 120, 160, 200, 240, 280, 320, 360, 400},
			[]float64{1.0, 3.0, 4.5, 5.0, 5.3, 5.6, 5.9, 6.1, 6.35, 6.6, 6.9}),

		// x: persistent pollution index.
		LandYieldMultiplierPollution: b.table("land_yield_multiplier_pollution",
			[]float64{0, 10, 20, 30, 40, 50, 60},
			[]float64{1.2, 1.0, 0.85, 0.75, 0.65, 0.55, 0.50}),

		// x: land yield / reference yield ratio; y: erosion multiplier.
		LandErosionMultiplier: b.table("land_erosion_multiplier",
			[]float64{0, 0.25, 0.5, 0.75, 1, 1.25, 1.5, 1.75, 2},
			[]float64{0, 0.1, 0.3, 0.5, 0.7, 1.0, 1.5, 2.0, 2.5}),

		// x: fraction of potential arable land already developed; y: cost
		// multiplier. Rises as marginal land comes into production.
		LandDevelopmentCost: b.table("land_development_cost",
			[]float64{0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
			[]float64{100, 117, 137, 161, 192, 232, 282, 344, 418, 507, 616}),

		// x: fraction of NNR remaining; y: fraction of industrial capital
		// diverted to resource extraction.
		CapitalFractionResourceExtraction: b.table("capital_fraction_resource_extraction",
			[]float64{0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
			[]float64{1.0, 0.80, 0.50, 0.30, 0.18, 0.10, 0.06, 0.04, 0.02, 0.01, 0}),

		// x: industrial output per capita normalized to 1.0 at 1970.
		PollutionGenerationIndustry: b.table("pollution_generation_industry",
			[]float64{0, 1, 2, 3, 4, 5},
			[]float64{0, 1.0, 1.5, 1.9, 2.16, 2.36}),

		// x: agricultural inputs per hectare normalized to 1.0 at 1970.
		PollutionGenerationAgri: b.table("pollution_generation_agriculture",
			[]float64{0, 1, 2, 3, 4},
			[]float64{0, 1.0, 1.7, 2.2, 2.5}),

		// x: persistent pollution index; y: assimilation time [years].
		// Steeper than the original Meadows table so pollution passes the
		// 1970 reference level well before 2000 and peaks near 2.5 around
		// 2015 in the standard run.
		PollutionAssimilationTime: b.table("pollution_assimilation_time",
			[]float64{0, 10, 20, 30, 40, 50, 60},
			[]float64{20, 45, 90, 150, 220, 320, 480}),
	}
	if b.err != nil {
		return nil, b.err
	}
	return t, nil
}
