package output

import (
	"fmt"
	"os"
	"strings"

	"github.com/openw3/world3/internal/sim"
)

// chartColors maps each overview series to its stroke color.
var chartColors = map[string]string{
	"resources.fraction_remaining":         "#8b5e3c",
	"agriculture.food_per_capita":          "#e9c46a",
	"population.population":                "#2a9d8f",
	"capital.service_output_per_capita":    "#6c757d",
	"capital.industrial_output_per_capita": "#457b9d",
	"pollution.pollution_index":            "#e63946",
}

const (
	svgMarginLeft   = 50.0
	svgMarginRight  = 20.0
	svgMarginTop    = 40.0
	svgMarginBottom = 40.0
)

// WriteSVG renders the normalized six-variable overview chart as a single
// SVG document with a shared year axis.
func WriteSVG(out *sim.Output, width, height int) string {
	if len(out.States) < 2 {
		return ""
	}
	if width <= 0 {
		width = 900
	}
	if height <= 0 {
		height = 500
	}

	plotW := float64(width) - svgMarginLeft - svgMarginRight
	plotH := float64(height) - svgMarginTop - svgMarginBottom

	startYear := out.States[0].Time
	endYear := out.States[len(out.States)-1].Time
	yearSpan := endYear - startYear
	if yearSpan == 0 {
		yearSpan = 1
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#ffffff"/>
`, width, height, width, height))

	sb.WriteString(fmt.Sprintf(
		`<text x="%.0f" y="24" font-family="sans-serif" font-size="16">World3 Overview (normalized)</text>
`, svgMarginLeft))

	// Frame and 20-year gridlines.
	sb.WriteString(fmt.Sprintf(
		`<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="none" stroke="#ced4da"/>
`, svgMarginLeft, svgMarginTop, plotW, plotH))
	for year := nextGridYear(startYear); year < endYear; year += 20 {
		x := svgMarginLeft + (year-startYear)/yearSpan*plotW
		sb.WriteString(fmt.Sprintf(
			`<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="#e9ecef"/>
`, x, svgMarginTop, x, svgMarginTop+plotH))
		sb.WriteString(fmt.Sprintf(
			`<text x="%.1f" y="%.1f" font-family="sans-serif" font-size="11" text-anchor="middle" fill="#6c757d">%.0f</text>
`, x, svgMarginTop+plotH+16, year))
	}

	for _, path := range chartSeries {
		series := Normalize(out.Series(path))
		if len(series) < 2 {
			continue
		}
		sb.WriteString(fmt.Sprintf(
			`<path fill="none" stroke="%s" stroke-width="1.5" d="M`, chartColors[path]))
		for i, v := range series {
			x := svgMarginLeft + (out.States[i].Time-startYear)/yearSpan*plotW
			y := svgMarginTop + (1-v)*plotH
			if i == 0 {
				sb.WriteString(fmt.Sprintf("%.1f,%.1f", x, y))
			} else {
				sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", x, y))
			}
		}
		sb.WriteString("\"/>\n")
	}

	// Legend along the top edge of the plot.
	lx := svgMarginLeft + 8
	for _, path := range chartSeries {
		label := chartLabels[path]
		sb.WriteString(fmt.Sprintf(
			`<rect x="%.1f" y="%.1f" width="10" height="10" fill="%s"/>
`, lx, svgMarginTop+6, chartColors[path]))
		sb.WriteString(fmt.Sprintf(
			`<text x="%.1f" y="%.1f" font-family="sans-serif" font-size="11">%s</text>
`, lx+14, svgMarginTop+15, label))
		lx += 14 + float64(len(label))*6.5 + 16
	}

	sb.WriteString("</svg>\n")
	return sb.String()
}

// WriteSVGFile writes the overview chart to path.
func WriteSVGFile(out *sim.Output, path string, width, height int) error {
	svg := WriteSVG(out, width, height)
	if svg == "" {
		return fmt.Errorf("not enough data to chart")
	}
	return os.WriteFile(path, []byte(svg), 0o644)
}

// nextGridYear rounds year up to the next multiple of 20.
func nextGridYear(year float64) float64 {
	n := float64(int(year/20)) * 20
	if n <= year {
		n += 20
	}
	return n
}
