package output

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openw3/world3/internal/lookup"
	"github.com/openw3/world3/internal/model"
	"github.com/openw3/world3/internal/sim"
)

func shortRun(t *testing.T) *sim.Output {
	t.Helper()
	tables, err := lookup.Load()
	require.NoError(t, err)
	p := model.DefaultParams()
	p.EndYear = 1950
	out, err := sim.NewRunner(tables).Run(context.Background(), p)
	require.NoError(t, err)
	return out
}

func TestWriteCSV(t *testing.T) {
	out := shortRun(t)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, out))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, len(out.States)+1)

	assert.Equal(t, csvHeader, records[0])
	assert.Equal(t, "1900.0", records[1][0])
	assert.Equal(t, "1950.0", records[len(records)-1][0])
	for _, rec := range records[1:] {
		assert.Len(t, rec, len(csvHeader))
	}
}

func TestSummary(t *testing.T) {
	out := shortRun(t)
	s := Summary(out)
	assert.Contains(t, s, "Year")
	assert.Contains(t, s, "1900")
	assert.Contains(t, s, "1950")
	// One header, one rule, one row per decade.
	assert.Equal(t, 2+6, strings.Count(s, "\n"))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, []float64{0.25, 0.5, 1}, Normalize([]float64{1, 2, 4}))
	assert.Equal(t, []float64{0, 0, 0}, Normalize([]float64{0, -1, 0}))
	assert.Empty(t, Normalize(nil))
}

func TestChart(t *testing.T) {
	out := shortRun(t)
	s := Chart(out, 60, 8)
	assert.Contains(t, s, "Population (normalized)")
	assert.Contains(t, s, "Resources (normalized)")
}

func TestWriteSVG(t *testing.T) {
	out := shortRun(t)
	svg := WriteSVG(out, 800, 400)

	assert.True(t, strings.HasPrefix(svg, `<?xml version="1.0"`))
	assert.Contains(t, svg, `width="800" height="400"`)
	assert.Contains(t, svg, "</svg>")
	// One path per overview series.
	assert.Equal(t, len(chartSeries), strings.Count(svg, `<path fill="none"`))
	for _, color := range chartColors {
		assert.Contains(t, svg, color)
	}
	assert.Contains(t, svg, ">1920<")
}

func TestWriteSVGEmpty(t *testing.T) {
	assert.Empty(t, WriteSVG(&sim.Output{}, 800, 400))
}
