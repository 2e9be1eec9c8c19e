package sim

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openw3/world3/internal/lookup"
	"github.com/openw3/world3/internal/model"
)

func newTestRunner(t *testing.T) *Runner {
	t.Helper()
	tables, err := lookup.Load()
	require.NoError(t, err)
	return NewRunner(tables)
}

func TestRunProducesFullTimeline(t *testing.T) {
	r := newTestRunner(t)
	out, err := r.Run(context.Background(), model.BAU())
	require.NoError(t, err)

	// 1900..2100 inclusive at dt=1.
	assert.Len(t, out.States, 201)
	assert.Len(t, out.Timeline, 201)
	assert.Equal(t, 1900.0, out.States[0].Time)
	assert.Equal(t, 2100.0, out.States[200].Time)

	for i := 1; i < len(out.States); i++ {
		assert.Greater(t, out.States[i].Time, out.States[i-1].Time,
			"timeline must be strictly increasing")
	}
}

func TestRunDeterministic(t *testing.T) {
	r := newTestRunner(t)
	p := model.BAU()

	a, err := r.Run(context.Background(), p)
	require.NoError(t, err)
	b, err := r.Run(context.Background(), p)
	require.NoError(t, err)

	require.Equal(t, len(a.States), len(b.States))
	for i := range a.States {
		assert.Equal(t, a.States[i], b.States[i], "state %d differs between runs", i)
	}
}

func TestRunInitialState(t *testing.T) {
	r := newTestRunner(t)
	out, err := r.Run(context.Background(), model.BAU())
	require.NoError(t, err)

	first := out.States[0]
	assert.InDelta(t, 1.6e9, first.Population.Population, 0.2e9)
	assert.Equal(t, 1.0, first.Resources.FractionRemaining)
}

func TestRunDepletesResources(t *testing.T) {
	r := newTestRunner(t)
	out, err := r.Run(context.Background(), model.BAU())
	require.NoError(t, err)

	last := out.States[len(out.States)-1]
	assert.Less(t, last.Resources.FractionRemaining, 1.0)
	for i := 1; i < len(out.States); i++ {
		assert.LessOrEqual(t,
			out.States[i].Resources.NonrenewableResources,
			out.States[i-1].Resources.NonrenewableResources,
			"resources must never regenerate")
	}
}

func TestStandardRunReferenceDynamics(t *testing.T) {
	r := newTestRunner(t)
	out, err := r.Run(context.Background(), model.BAU())
	require.NoError(t, err)

	s1970 := out.StateAtYear(1970)
	require.NotNil(t, s1970)
	assert.Greater(t, s1970.Population.Population, 2.5e9)
	assert.Less(t, s1970.Population.Population, 5.0e9)

	last := out.States[len(out.States)-1]
	assert.Less(t, last.Resources.FractionRemaining, 0.7,
		"the standard run must deplete well past half its endowment by 2100")

	maxPollution := 0.0
	for _, s := range out.States {
		maxPollution = math.Max(maxPollution, s.Pollution.PollutionIndex)
	}
	assert.GreaterOrEqual(t, maxPollution, 0.5,
		"pollution must become a visible pressure in the standard run")
}

func TestRunEachEmitsInOrder(t *testing.T) {
	r := newTestRunner(t)
	p := model.BAU()
	p.EndYear = 1950

	prev := -1.0
	n, err := r.RunEach(context.Background(), p, func(s model.WorldState) error {
		require.Greater(t, s.Time, prev)
		prev = s.Time
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 51, n)
}

func TestRunEachStopsOnCallbackError(t *testing.T) {
	r := newTestRunner(t)
	p := model.BAU()

	sentinel := assert.AnError
	calls := 0
	n, err := r.RunEach(context.Background(), p, func(model.WorldState) error {
		calls++
		if calls == 5 {
			return sentinel
		}
		return nil
	})
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 5, calls)
	assert.Equal(t, 4, n)
}

func TestRunEachHonorsCancellation(t *testing.T) {
	r := newTestRunner(t)
	ctx, cancel := context.WithCancel(context.Background())

	emitted := 0
	_, err := r.RunEach(ctx, model.BAU(), func(model.WorldState) error {
		emitted++
		if emitted == 10 {
			cancel()
		}
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 10, emitted, "cancellation is checked between steps")
}

func TestRunRejectsBadParams(t *testing.T) {
	r := newTestRunner(t)

	p := model.BAU()
	p.TimeStep = 0
	_, err := r.Run(context.Background(), p)
	assert.Error(t, err)

	p = model.BAU()
	p.EndYear = p.StartYear
	_, err = r.Run(context.Background(), p)
	assert.Error(t, err)
}

func TestRunFractionalFinalStep(t *testing.T) {
	r := newTestRunner(t)
	p := model.BAU()
	p.EndYear = 1910.5

	out, err := r.Run(context.Background(), p)
	require.NoError(t, err)
	last := out.States[len(out.States)-1]
	assert.InDelta(t, 1910.5, last.Time, 1e-9, "final step truncates to land on the end year")
}

func TestInitialStateAppliesNNRFraction(t *testing.T) {
	r := newTestRunner(t)
	p := model.BAU()
	p.InitialNNRFraction = 0.5

	s := r.InitialState(p)
	assert.Equal(t, 0.5, s.Resources.NonrenewableResources)
	assert.Equal(t, 0.5, s.Resources.FractionRemaining)
}

func TestOutputStateAtYear(t *testing.T) {
	r := newTestRunner(t)
	out, err := r.Run(context.Background(), model.BAU())
	require.NoError(t, err)

	s := out.StateAtYear(1970)
	require.NotNil(t, s)
	assert.Equal(t, 1970.0, s.Time)

	s = out.StateAtYear(1969.6)
	require.NotNil(t, s)
	assert.Equal(t, 1970.0, s.Time, "nearest state wins")
}

func TestOutputSeries(t *testing.T) {
	r := newTestRunner(t)
	out, err := r.Run(context.Background(), model.BAU())
	require.NoError(t, err)

	pop := out.Series("population.population")
	require.Len(t, pop, len(out.States))
	assert.Equal(t, out.States[0].Population.Population, pop[0])

	unknown := out.Series("population.shoe_size")
	for _, v := range unknown {
		assert.True(t, math.IsNaN(v), "unknown paths yield NaN")
	}
}

func TestScenariosDiverge(t *testing.T) {
	r := newTestRunner(t)

	bau, err := r.Run(context.Background(), model.BAU())
	require.NoError(t, err)
	stab, err := r.Run(context.Background(), model.StabilizedWorld())
	require.NoError(t, err)

	// Policy levers must actually change the trajectory.
	b := bau.StateAtYear(2050)
	s := stab.StateAtYear(2050)
	require.NotNil(t, b)
	require.NotNil(t, s)
	assert.NotEqual(t, b.Population.Population, s.Population.Population)
}
