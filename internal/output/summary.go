package output

import (
	"fmt"
	"strings"

	"github.com/guptarohit/asciigraph"

	"github.com/openw3/world3/internal/sim"
)

// Summary renders a fixed-width table of the run, one row per decade.
func Summary(out *sim.Output) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%6s  %12s  %10s  %11s  %8s  %8s\n",
		"Year", "Population", "Food/cap", "Ind.Out/cap", "NNR%", "PollIdx")
	b.WriteString(strings.Repeat("-", 66))
	b.WriteByte('\n')

	for i := 0; i < len(out.States); i += 10 {
		s := out.States[i]
		fmt.Fprintf(&b, "%6.0f  %12.2e  %10.1f  %11.1f  %8.1f  %8.2f\n",
			s.Time,
			s.Population.Population,
			s.Agriculture.FoodPerCapita,
			s.Capital.IndustrialOutputPerCapita,
			s.Resources.FractionRemaining*100,
			s.Pollution.PollutionIndex)
	}
	return b.String()
}

// chartSeries is the classic six-variable overview, in render order.
var chartSeries = []string{
	"resources.fraction_remaining",
	"agriculture.food_per_capita",
	"population.population",
	"capital.service_output_per_capita",
	"capital.industrial_output_per_capita",
	"pollution.pollution_index",
}

var chartLabels = map[string]string{
	"resources.fraction_remaining":         "Resources",
	"agriculture.food_per_capita":          "Food / capita",
	"population.population":                "Population",
	"capital.service_output_per_capita":    "Services / cap",
	"capital.industrial_output_per_capita": "Ind. output / cap",
	"pollution.pollution_index":            "Pollution",
}

// Normalize scales a series into [0,1] by its maximum. All-nonpositive
// series flatten to zero.
func Normalize(v []float64) []float64 {
	max := 0.0
	for _, x := range v {
		if x > max {
			max = x
		}
	}
	out := make([]float64, len(v))
	if max <= 0 {
		return out
	}
	for i, x := range v {
		out[i] = x / max
	}
	return out
}

// Chart renders the normalized overview as terminal line charts, one block
// per variable. width and height bound each plot.
func Chart(out *sim.Output, width, height int) string {
	if width <= 0 {
		width = 80
	}
	if height <= 0 {
		height = 10
	}

	var b strings.Builder
	for _, path := range chartSeries {
		series := Normalize(out.Series(path))
		if len(series) == 0 {
			continue
		}
		fmt.Fprintf(&b, "%s (normalized)\n", chartLabels[path])
		b.WriteString(asciigraph.Plot(series,
			asciigraph.Width(width),
			asciigraph.Height(height),
			asciigraph.Precision(2),
		))
		b.WriteString("\n\n")
	}
	return b.String()
}
