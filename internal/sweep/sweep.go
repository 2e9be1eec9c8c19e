// Package sweep runs sensitivity analyses: the same scenario executed many
// times with one policy lever stepped across a range, runs fanned out over
// a bounded worker pool.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/openw3/world3/internal/analysis"
	"github.com/openw3/world3/internal/model"
	"github.com/openw3/world3/internal/sim"
)

// Spec names the lever to vary and the grid to vary it over.
type Spec struct {
	Field string  // wire field name, e.g. "resource_efficiency"
	Min   float64
	Max   float64
	Steps int // number of grid points, at least 2
}

// Point is one completed grid run.
type Point struct {
	Value  float64         `json:"value"`
	Report analysis.Report `json:"report"`
}

// Result is the full sweep, points ordered by lever value.
type Result struct {
	Field  string  `json:"field"`
	Points []Point `json:"points"`
}

func (s Spec) validate() error {
	if s.Steps < 2 {
		return fmt.Errorf("sweep needs at least 2 steps, got %d", s.Steps)
	}
	if s.Max <= s.Min {
		return fmt.Errorf("sweep range [%g, %g] is empty", s.Min, s.Max)
	}
	known := false
	for _, d := range model.ParameterDescriptors() {
		if d.Field == s.Field {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("unknown parameter %q", s.Field)
	}
	return nil
}

// Run executes the sweep over base, one run per grid point. Workers bounds
// concurrency; values <= 0 use GOMAXPROCS. The first run error cancels the
// remaining work.
func Run(ctx context.Context, runner *sim.Runner, base model.ScenarioParams, spec Spec, workers int) (*Result, error) {
	if err := spec.validate(); err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	points := make([]Point, spec.Steps)
	errs := make([]error, spec.Steps)
	step := (spec.Max - spec.Min) / float64(spec.Steps-1)

	var wg sync.WaitGroup
	sem := make(chan struct{}, workers)
	for i := 0; i < spec.Steps; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				errs[idx] = ctx.Err()
				return
			}

			value := spec.Min + step*float64(idx)
			p := base // private copy per run
			p.SetField(spec.Field, value)

			out, err := runner.Run(ctx, p)
			if err != nil {
				errs[idx] = fmt.Errorf("%s=%g: %w", spec.Field, value, err)
				cancel()
				return
			}
			points[idx] = Point{Value: value, Report: analysis.Analyze(out)}
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil && !isCancel(err) {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Result{Field: spec.Field, Points: points}, nil
}

func isCancel(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// Table renders the sweep as a fixed-width comparison.
func (r *Result) Table() string {
	out := fmt.Sprintf("%12s  %20s  %10s  %10s  %8s\n",
		"value", "shape", "peak pop", "peak year", "NNR%")
	for _, p := range r.Points {
		out += fmt.Sprintf("%12.3f  %20s  %10.2e  %10.0f  %8.1f\n",
			p.Value, p.Report.Shape, p.Report.PeakPopulation,
			p.Report.PeakPopulationYear, p.Report.FinalResourceFraction*100)
	}
	return out
}
