// Package lookup implements the piecewise-linear tables that encode every
// nonlinear relationship in the world model. A table is immutable after
// construction and safe to share across concurrent simulation runs.
package lookup

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrMalformedTable reports invalid table construction input.
var ErrMalformedTable = errors.New("malformed lookup table")

// Table is an ordered sequence of (x, y) breakpoints with strictly
// increasing x. Evaluation interpolates linearly inside the domain and
// clamps to the boundary y outside it, never extrapolating.
type Table struct {
	name string
	xs   []float64
	ys   []float64
}

// New builds a table from breakpoint slices. It fails when fewer than two
// points are given, the slices differ in length, or x is not strictly
// increasing. The input slices are copied; callers may reuse them.
func New(name string, xs, ys []float64) (*Table, error) {
	if len(xs) < 2 {
		return nil, fmt.Errorf("%w: %s: need at least 2 points, got %d", ErrMalformedTable, name, len(xs))
	}
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("%w: %s: %d x values but %d y values", ErrMalformedTable, name, len(xs), len(ys))
	}
	for i := 1; i < len(xs); i++ {
		if xs[i] <= xs[i-1] {
			return nil, fmt.Errorf("%w: %s: x values must be strictly increasing (x[%d]=%g, x[%d]=%g)",
				ErrMalformedTable, name, i-1, xs[i-1], i, xs[i])
		}
	}
	t := &Table{
		name: name,
		xs:   append([]float64(nil), xs...),
		ys:   append([]float64(nil), ys...),
	}
	return t, nil
}

// Name returns the table's Dynamo-convention variable name.
func (t *Table) Name() string { return t.name }

// Eval returns the piecewise-linear interpolation of the table at x.
// Inputs below the first breakpoint return the first y; inputs above the
// last breakpoint return the last y. A NaN input yields NaN.
func (t *Table) Eval(x float64) float64 {
	if math.IsNaN(x) {
		return math.NaN()
	}
	n := len(t.xs)
	if x <= t.xs[0] {
		return t.ys[0]
	}
	if x >= t.xs[n-1] {
		return t.ys[n-1]
	}

	// Index of the first breakpoint strictly above x; the segment is [i-1, i].
	i := sort.SearchFloat64s(t.xs, x)
	if t.xs[i] == x {
		return t.ys[i]
	}

	x0, x1 := t.xs[i-1], t.xs[i]
	y0, y1 := t.ys[i-1], t.ys[i]
	f := (x - x0) / (x1 - x0)
	return y0 + f*(y1-y0)
}
