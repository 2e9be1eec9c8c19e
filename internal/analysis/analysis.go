// Package analysis derives scalar indicators and a qualitative
// classification from a completed run. These are the numbers a policy
// comparison actually needs: when does population peak, how hard does it
// fall, when do resources effectively run out.
package analysis

import (
	"fmt"
	"strings"

	"github.com/openw3/world3/internal/sim"
)

// Trajectory shapes, judged on total population.
type Shape string

const (
	// ShapeCollapse is overshoot and decline: a peak followed by a drop of
	// more than 20% before the end of the run.
	ShapeCollapse Shape = "overshoot_collapse"
	// ShapeStabilized holds within 20% of its peak after reaching it.
	ShapeStabilized Shape = "stabilized"
	// ShapeGrowth is still rising at the end of the run.
	ShapeGrowth Shape = "continued_growth"
	// ShapeDecline never grows: the run starts at its peak.
	ShapeDecline Shape = "decline"
)

// Report is the indicator set for one run.
type Report struct {
	Shape Shape `json:"shape"`

	PeakPopulation     float64 `json:"peak_population"`
	PeakPopulationYear float64 `json:"peak_population_year"`
	FinalPopulation    float64 `json:"final_population"`
	// PopulationDrop is the fractional fall from peak to final, in [0,1].
	PopulationDrop float64 `json:"population_drop"`

	PeakPollution     float64 `json:"peak_pollution"`
	PeakPollutionYear float64 `json:"peak_pollution_year"`

	MinFoodPerCapita     float64 `json:"min_food_per_capita"`
	MinFoodPerCapitaYear float64 `json:"min_food_per_capita_year"`

	FinalResourceFraction float64 `json:"final_resource_fraction"`
	// ResourceHalfYear is the first year the resource endowment falls below
	// half of its initial value, or 0 when it never does.
	ResourceHalfYear float64 `json:"resource_half_year"`

	MaxLifeExpectancy   float64 `json:"max_life_expectancy"`
	FinalLifeExpectancy float64 `json:"final_life_expectancy"`
}

// collapseThreshold is the peak-to-final population drop separating a
// stabilized trajectory from overshoot and collapse.
const collapseThreshold = 0.2

// Analyze computes the report for a run. Empty outputs yield a zero report.
func Analyze(out *sim.Output) Report {
	var r Report
	if out == nil || len(out.States) == 0 {
		return r
	}

	first := out.States[0]
	last := out.States[len(out.States)-1]
	initialResources := first.Resources.NonrenewableResources

	r.MinFoodPerCapita = first.Agriculture.FoodPerCapita
	r.MinFoodPerCapitaYear = first.Time

	for _, s := range out.States {
		if p := s.Population.Population; p > r.PeakPopulation {
			r.PeakPopulation = p
			r.PeakPopulationYear = s.Time
		}
		if p := s.Pollution.PollutionIndex; p > r.PeakPollution {
			r.PeakPollution = p
			r.PeakPollutionYear = s.Time
		}
		if f := s.Agriculture.FoodPerCapita; f < r.MinFoodPerCapita {
			r.MinFoodPerCapita = f
			r.MinFoodPerCapitaYear = s.Time
		}
		if le := s.Population.LifeExpectancy; le > r.MaxLifeExpectancy {
			r.MaxLifeExpectancy = le
		}
		if r.ResourceHalfYear == 0 && s.Resources.NonrenewableResources < initialResources/2 {
			r.ResourceHalfYear = s.Time
		}
	}

	r.FinalPopulation = last.Population.Population
	r.FinalResourceFraction = last.Resources.FractionRemaining
	r.FinalLifeExpectancy = last.Population.LifeExpectancy
	if r.PeakPopulation > 0 {
		r.PopulationDrop = 1 - r.FinalPopulation/r.PeakPopulation
	}
	r.Shape = classify(r, first.Time, last.Time)
	return r
}

func classify(r Report, startYear, endYear float64) Shape {
	switch {
	case r.PeakPopulationYear == startYear:
		return ShapeDecline
	case r.PeakPopulationYear == endYear:
		return ShapeGrowth
	case r.PopulationDrop > collapseThreshold:
		return ShapeCollapse
	default:
		return ShapeStabilized
	}
}

// String renders the report as a fixed-width block for the CLI.
func (r Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Trajectory:           %s\n", r.Shape)
	fmt.Fprintf(&b, "Peak population:      %.2e in %.0f\n", r.PeakPopulation, r.PeakPopulationYear)
	fmt.Fprintf(&b, "Final population:     %.2e (%.0f%% below peak)\n", r.FinalPopulation, r.PopulationDrop*100)
	fmt.Fprintf(&b, "Peak pollution index: %.2f in %.0f\n", r.PeakPollution, r.PeakPollutionYear)
	fmt.Fprintf(&b, "Lowest food/capita:   %.1f in %.0f\n", r.MinFoodPerCapita, r.MinFoodPerCapitaYear)
	if r.ResourceHalfYear > 0 {
		fmt.Fprintf(&b, "Resources half gone:  %.0f\n", r.ResourceHalfYear)
	}
	fmt.Fprintf(&b, "Resources remaining:  %.0f%%\n", r.FinalResourceFraction*100)
	fmt.Fprintf(&b, "Life expectancy:      peak %.1f, final %.1f\n", r.MaxLifeExpectancy, r.FinalLifeExpectancy)
	return b.String()
}
