package session

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openw3/world3/internal/lookup"
	"github.com/openw3/world3/internal/model"
	"github.com/openw3/world3/internal/sim"
	"github.com/openw3/world3/internal/store"
)

// recordingSink captures delivered messages and closes done on the first
// terminal message (sim_complete or sim_error).
type recordingSink struct {
	mu   sync.Mutex
	msgs []ServerMsg
	done chan struct{}
	once sync.Once
	fail error // when set, every Send returns it
}

func newRecordingSink() *recordingSink {
	return &recordingSink{done: make(chan struct{})}
}

func (r *recordingSink) Send(msg ServerMsg) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	r.msgs = append(r.msgs, msg)
	if t := msg.MsgType(); t == TypeSimComplete || t == TypeSimError {
		r.once.Do(func() { close(r.done) })
	}
	return nil
}

func (r *recordingSink) snapshot() []ServerMsg {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ServerMsg, len(r.msgs))
	copy(out, r.msgs)
	return out
}

func (r *recordingSink) waitDone(t *testing.T) {
	t.Helper()
	select {
	case <-r.done:
	case <-time.After(10 * time.Second):
		t.Fatal("run did not finish in time")
	}
}

func shortParams() model.ScenarioParams {
	p := model.DefaultParams()
	p.StartYear = 1900
	p.EndYear = 1910
	p.TimeStep = 1
	return p
}

func newTestSession(t *testing.T, st store.Store) (*Session, *recordingSink) {
	t.Helper()
	tables, err := lookup.Load()
	require.NoError(t, err)
	sink := newRecordingSink()
	s := New(sim.NewRunner(tables), st, sink, nil)
	t.Cleanup(s.Close)
	return s, sink
}

func waitIdle(t *testing.T, s *Session) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if s.State() == Idle {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("session stuck in state %v", s.State())
}

func TestSessionRunsToCompletion(t *testing.T) {
	s, sink := newTestSession(t, nil)

	p := shortParams()
	s.Start("test", &p)
	sink.waitDone(t)
	waitIdle(t, s)

	msgs := sink.snapshot()
	require.NotEmpty(t, msgs)

	last, ok := msgs[len(msgs)-1].(CompleteMsg)
	require.True(t, ok, "last message should be sim_complete, got %T", msgs[len(msgs)-1])
	assert.Equal(t, "test", last.ScenarioID)
	assert.Equal(t, 11, last.TotalSteps) // 1900..1910 inclusive at dt=1

	prev := -1.0
	steps := 0
	for _, m := range msgs[:len(msgs)-1] {
		step, ok := m.(StepMsg)
		require.True(t, ok, "unexpected message %T before completion", m)
		assert.Greater(t, step.Year, prev, "steps must arrive in increasing time order")
		prev = step.Year
		steps++
	}
	assert.Equal(t, last.TotalSteps, steps)
	assert.Equal(t, 1900.0, msgs[0].(StepMsg).Year)
}

func TestSessionRapidUpdatesDebounce(t *testing.T) {
	s, sink := newTestSession(t, nil)

	// A burst of updates inside the debounce window must yield one ack each
	// but only a single run, built from the last parameter set.
	const updates = 5
	for i := 0; i < updates; i++ {
		p := shortParams()
		p.EndYear = 1905 + float64(i) // last write: 1909
		s.UpdateParams("test", p)
		time.Sleep(5 * time.Millisecond)
	}

	sink.waitDone(t)
	waitIdle(t, s)

	var acks, completes int
	var complete CompleteMsg
	prev := -1.0
	for _, m := range sink.snapshot() {
		switch v := m.(type) {
		case AckMsg:
			acks++
			assert.Equal(t, -1.0, prev, "acks must precede all steps")
		case StepMsg:
			assert.Greater(t, v.Year, prev, "no stale steps from superseded runs")
			prev = v.Year
		case CompleteMsg:
			completes++
			complete = v
		default:
			t.Fatalf("unexpected message %T", m)
		}
	}
	assert.Equal(t, updates, acks)
	assert.Equal(t, 1, completes, "exactly one run survives the burst")
	assert.Equal(t, 10, complete.TotalSteps, "1900..1909 at dt=1: last write wins")
}

func TestSessionStopEmitsNothingFurther(t *testing.T) {
	s, sink := newTestSession(t, nil)

	p := shortParams()
	p.EndYear = 2100 // long enough that Stop lands mid-run
	s.Start("test", &p)
	s.Stop()

	assert.Equal(t, Idle, s.State())
	n := len(sink.snapshot())
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, sink.snapshot(), n, "no output after stop")
	for _, m := range sink.snapshot() {
		assert.Equal(t, TypeSimStep, m.MsgType(), "neither sim_complete nor sim_error after stop")
	}
}

func TestSessionStopWhileDebouncing(t *testing.T) {
	s, sink := newTestSession(t, nil)

	p := shortParams()
	s.UpdateParams("test", p)
	s.Stop()

	time.Sleep(3 * DebounceDelay)
	assert.Equal(t, Idle, s.State())
	msgs := sink.snapshot()
	require.Len(t, msgs, 1, "only the ack, no run after stop")
	assert.Equal(t, TypeParamsAck, msgs[0].MsgType())
}

func TestSessionStartUnknownScenario(t *testing.T) {
	s, sink := newTestSession(t, store.NewMemStore())

	s.Start("no-such-id", nil)
	sink.waitDone(t)

	msgs := sink.snapshot()
	require.Len(t, msgs, 1)
	errMsg, ok := msgs[0].(ErrorMsg)
	require.True(t, ok)
	assert.Contains(t, errMsg.Message, "no-such-id")
	assert.Equal(t, Idle, s.State())
}

func TestSessionStartFromStore(t *testing.T) {
	st := store.NewMemStore()
	p := shortParams()
	p.Meta.Name = "stored"
	require.NoError(t, st.Put(store.Scenario{Params: p}))

	s, sink := newTestSession(t, st)
	s.Start(p.Meta.ID, nil)
	sink.waitDone(t)

	msgs := sink.snapshot()
	last, ok := msgs[len(msgs)-1].(CompleteMsg)
	require.True(t, ok)
	assert.Equal(t, 11, last.TotalSteps)
}

func TestSessionUpdateParamsPersists(t *testing.T) {
	st := store.NewMemStore()
	p := shortParams()
	p.Meta.Name = "tweakable"
	require.NoError(t, st.Put(store.Scenario{Params: p}))

	s, _ := newTestSession(t, st)

	p.ResourceEfficiency = 2.5
	s.UpdateParams(p.Meta.ID, p)
	waitIdle(t, s)

	got, err := st.Get(p.Meta.ID)
	require.NoError(t, err)
	assert.Equal(t, 2.5, got.Params.ResourceEfficiency)
}

func TestSessionRestartAfterComplete(t *testing.T) {
	s, sink := newTestSession(t, nil)

	p := shortParams()
	s.Start("test", &p)
	sink.waitDone(t)
	waitIdle(t, s)

	first := len(sink.snapshot())
	s.Start("test", &p) // restart with stored params
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		msgs := sink.snapshot()
		if len(msgs) > first && msgs[len(msgs)-1].MsgType() == TypeSimComplete {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("second run did not complete")
}

func TestSessionDivergedRunEmitsSingleError(t *testing.T) {
	s, sink := newTestSession(t, nil)

	// A step size vastly larger than the model's time scales overflows the
	// integrator on the first step.
	p := shortParams()
	p.EndYear = 1e301
	p.TimeStep = 1e300
	s.Start("test", &p)
	sink.waitDone(t)
	waitIdle(t, s)

	msgs := sink.snapshot()
	require.NotEmpty(t, msgs)
	errs := 0
	for _, m := range msgs {
		if m.MsgType() == TypeSimError {
			errs++
		}
	}
	assert.Equal(t, 1, errs, "exactly one terminal error per failed run")
	_, ok := msgs[len(msgs)-1].(ErrorMsg)
	assert.True(t, ok, "sim_error must be the final message, got %T", msgs[len(msgs)-1])
	assert.Equal(t, Idle, s.State())

	// The session stays usable: a fresh run completes normally.
	before := len(msgs)
	good := shortParams()
	s.Start("test", &good)
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		msgs = sink.snapshot()
		if len(msgs) > before && msgs[len(msgs)-1].MsgType() == TypeSimComplete {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("run after divergence did not complete")
}

func TestSessionSinkErrorStopsRun(t *testing.T) {
	s, sink := newTestSession(t, nil)

	sink.fail = errors.New("peer gone")
	p := shortParams()
	s.Start("test", &p)
	waitIdle(t, s)

	assert.Empty(t, sink.snapshot())
	assert.Equal(t, Idle, s.State())
}

func TestParseClientMsg(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"start", `{"type":"start_simulation","scenario_id":"abc"}`, false},
		{"start missing id", `{"type":"start_simulation"}`, true},
		{"stop", `{"type":"stop_simulation"}`, false},
		{"update", `{"type":"update_params","scenario_id":"abc","params":{"start_year":1900,"end_year":2100,"time_step":1}}`, false},
		{"update missing params", `{"type":"update_params","scenario_id":"abc"}`, true},
		{"unknown type", `{"type":"reticulate"}`, true},
		{"garbage", `{{{`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseClientMsg([]byte(tt.raw))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
