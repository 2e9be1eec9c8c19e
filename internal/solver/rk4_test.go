package solver

import (
	"errors"
	"math"
	"testing"

	"github.com/openw3/world3/internal/lookup"
	"github.com/openw3/world3/internal/model"
)

func newSolver(t *testing.T) *RK4 {
	t.Helper()
	tables, err := lookup.Load()
	if err != nil {
		t.Fatalf("load tables: %v", err)
	}
	return New(tables)
}

func initial(t *testing.T, r *RK4, p model.ScenarioParams) model.WorldState {
	t.Helper()
	return model.ComputeAuxiliaries(model.InitialConditions1900(), p, r.Tables())
}

func TestStepAdvancesTime(t *testing.T) {
	r := newSolver(t)
	p := model.BAU()
	s := initial(t, r, p)

	next, err := r.Step(s, p, 1.0)
	if err != nil {
		t.Fatalf("step failed: %v", err)
	}
	if next.Time != 1901 {
		t.Errorf("expected year 1901, got %f", next.Time)
	}
	if next.Population.Population <= s.Population.Population {
		t.Error("population should grow in 1900")
	}
}

func TestStepDeterministic(t *testing.T) {
	r := newSolver(t)
	p := model.BAU()
	s := initial(t, r, p)

	a, err := r.Step(s, p, 1.0)
	if err != nil {
		t.Fatalf("step failed: %v", err)
	}
	b, err := r.Step(s, p, 1.0)
	if err != nil {
		t.Fatalf("step failed: %v", err)
	}
	if a != b {
		t.Error("identical steps produced different states")
	}
}

func TestStepKeepsStocksInDomain(t *testing.T) {
	r := newSolver(t)
	p := model.BAU()
	s := initial(t, r, p)

	// March a century forward; no stock may leave its physical domain.
	for i := 0; i < 100; i++ {
		next, err := r.Step(s, p, 1.0)
		if err != nil {
			t.Fatalf("step %d failed: %v", i, err)
		}
		for j, v := range next.Stocks() {
			if v < 0 || math.IsNaN(v) {
				t.Fatalf("stock %d left domain at year %.0f: %g", j, next.Time, v)
			}
		}
		if next.Resources.NonrenewableResources > s.Resources.NonrenewableResources {
			t.Fatalf("nonrenewable resources grew at year %.0f", next.Time)
		}
		s = next
	}
}

func TestStepRecomputesAuxiliaries(t *testing.T) {
	r := newSolver(t)
	p := model.BAU()
	s := initial(t, r, p)

	next, err := r.Step(s, p, 1.0)
	if err != nil {
		t.Fatalf("step failed: %v", err)
	}

	// The returned state must be internally consistent: recomputing its
	// auxiliaries from the stocks changes nothing.
	clean := model.ComputeAuxiliaries(next, p, r.Tables())
	if next != clean {
		t.Error("accepted state carries stale auxiliaries")
	}
}

func TestStepDivergenceReportsLastValid(t *testing.T) {
	r := newSolver(t)
	p := model.BAU()
	s := initial(t, r, p)

	// An absurd step size overflows the weighted combination.
	_, err := r.Step(s, p, 1e300)
	if err == nil {
		t.Fatal("expected divergence error")
	}
	var div *DivergedError
	if !errors.As(err, &div) {
		t.Fatalf("expected *DivergedError, got %T", err)
	}
	if div.Variable == "" {
		t.Error("divergence must name the offending variable")
	}
	if div.LastValid.Time != s.Time {
		t.Errorf("last valid state should be the pre-step state, got year %f", div.LastValid.Time)
	}
}

func TestFourthOrderConvergence(t *testing.T) {
	r := newSolver(t)
	p := model.BAU()
	s := initial(t, r, p)

	integrate := func(dt float64) float64 {
		cur := s
		steps := int(math.Round(1.0 / dt))
		for i := 0; i < steps; i++ {
			next, err := r.Step(cur, p, dt)
			if err != nil {
				t.Fatalf("step at dt=%g failed: %v", dt, err)
			}
			cur = next
		}
		return cur.Population.Population
	}

	// One year is short enough that no stage evaluation crosses a table
	// breakpoint; against a dt=1/256 reference the error must shrink by
	// about 16x per halving of dt.
	ref := integrate(1.0 / 256)
	errAt := func(dt float64) float64 {
		return math.Abs(integrate(dt)-ref) / ref
	}

	e1 := errAt(1.0)
	e2 := errAt(0.5)
	e3 := errAt(0.25)

	if e2 <= 0 || e3 <= 0 {
		t.Fatalf("fine-step errors vanished (e2=%g, e3=%g), cannot measure order", e2, e3)
	}
	if ratio := e1 / e2; ratio < 8 {
		t.Errorf("error ratio dt=1 vs dt=0.5 is %.1f, want > 8 for 4th-order convergence", ratio)
	}
	if ratio := e2 / e3; ratio < 8 {
		t.Errorf("error ratio dt=0.5 vs dt=0.25 is %.1f, want > 8 for 4th-order convergence", ratio)
	}
}

func TestSmallerStepConverges(t *testing.T) {
	r := newSolver(t)
	p := model.BAU()
	s := initial(t, r, p)

	// One 1-year step vs four quarter-year steps must land close together;
	// fixed-step RK4 error shrinks as O(dt^4).
	coarse, err := r.Step(s, p, 1.0)
	if err != nil {
		t.Fatalf("coarse step failed: %v", err)
	}

	fine := s
	for i := 0; i < 4; i++ {
		fine, err = r.Step(fine, p, 0.25)
		if err != nil {
			t.Fatalf("fine step %d failed: %v", i, err)
		}
	}

	rel := math.Abs(coarse.Population.Population-fine.Population.Population) / fine.Population.Population
	if rel > 1e-3 {
		t.Errorf("coarse and fine trajectories disagree by %.2e after one year", rel)
	}
}
