// Package session implements the per-client streaming state machine: it
// layers cancellation, debounce, and ordered delivery on top of a
// simulation run, decoupling the CPU-bound computation from the transport
// loop. A session owns zero or one in-flight run at any instant.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/openw3/world3/internal/model"
	"github.com/openw3/world3/internal/sim"
	"github.com/openw3/world3/internal/solver"
	"github.com/openw3/world3/internal/store"
)

// DebounceDelay is the quiet period after the last update_params before a
// new run starts. Each update resets (never accumulates) the delay.
const DebounceDelay = 50 * time.Millisecond

// State is the session lifecycle state, exposed for tests and diagnostics.
type State int

const (
	Idle State = iota
	Running
	Debouncing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Debouncing:
		return "debouncing"
	default:
		return "unknown"
	}
}

// Sink receives server messages in delivery order. A Send error means the
// consumer is gone; the session maps it to cancellation and stops producing.
type Sink interface {
	Send(ServerMsg) error
}

// errSuperseded aborts a worker whose run has been replaced or stopped.
// Never user-visible: a superseded run emits silence, not sim_error.
var errSuperseded = errors.New("run superseded")

// Hooks observe run lifecycle transitions, e.g. for metrics. All methods
// may be nil-safe no-ops.
type Hooks struct {
	RunStarted   func()
	RunCompleted func()
	RunDiverged  func()
}

// Session is the per-client slot tying one logical simulation to an
// active-or-absent compute worker, a pending debounce timer, and the latest
// acknowledged parameters. Created on client connect, destroyed on
// disconnect, never persisted.
//
// All state transitions and every sink delivery happen under one mutex, so
// messages are never reordered or duplicated and a superseded run can never
// slip output past its cancellation. The worker itself runs outside the
// lock; only its per-message delivery takes it, so control operations block
// for at most one in-flight send.
type Session struct {
	log    *logrus.Entry
	runner *sim.Runner
	store  store.Store
	sink   Sink
	hooks  Hooks

	mu       sync.Mutex
	state    State
	current  uint64 // id of the run allowed to deliver; bumped on supersession
	cancel   context.CancelFunc
	debounce *time.Timer
	pending  uint64 // debounce generation; stale timers do nothing

	// Latest acknowledged parameters; used when start_simulation carries none.
	scenarioID string
	params     model.ScenarioParams
	hasParams  bool
}

// New builds a session delivering to sink, resolving stored scenarios
// through st (which may be nil when every start carries explicit params).
func New(runner *sim.Runner, st store.Store, sink Sink, log *logrus.Entry) *Session {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Session{log: log, runner: runner, store: st, sink: sink}
}

// SetHooks installs lifecycle observers. Call before the first Start.
func (s *Session) SetHooks(h Hooks) { s.hooks = h }

// State reports the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Handle dispatches one decoded client message.
func (s *Session) Handle(msg ClientMsg) {
	switch msg.Type {
	case TypeStartSimulation:
		s.Start(msg.ScenarioID, msg.Params)
	case TypeUpdateParams:
		s.UpdateParams(msg.ScenarioID, *msg.Params)
	case TypeStopSimulation:
		s.Stop()
	}
}

// Start cancels any in-flight run and pending debounce, discards their
// output, and starts a new run with the given parameters (or the stored
// ones when params is nil).
func (s *Session) Start(scenarioID string, params *model.ScenarioParams) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.supersedeLocked()

	var p model.ScenarioParams
	switch {
	case params != nil:
		p = *params
	case s.hasParams && s.scenarioID == scenarioID:
		p = s.params
	default:
		sc, err := s.lookupScenario(scenarioID)
		if err != nil {
			s.deliverLocked(s.current, newError("scenario '"+scenarioID+"' not found"))
			s.state = Idle
			return
		}
		p = sc.Params
	}

	s.scenarioID, s.params, s.hasParams = scenarioID, p, true
	s.startRunLocked(scenarioID, p)
}

// UpdateParams persists the parameters, acknowledges synchronously, cancels
// the current run, and re-arms the debounce timer holding only the latest
// parameter set (last write wins). The run starts when the timer expires
// with no further updates.
func (s *Session) UpdateParams(scenarioID string, params model.ScenarioParams) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store != nil {
		if err := s.store.UpdateParams(scenarioID, params); err != nil && !errors.Is(err, store.ErrNotFound) {
			s.log.WithError(err).Warn("scenario store update failed")
		}
	}
	s.scenarioID, s.params, s.hasParams = scenarioID, params, true

	s.supersedeLocked()
	s.deliverLocked(s.current, newAck(scenarioID))

	s.state = Debouncing
	s.pending++
	gen := s.pending
	s.debounce = time.AfterFunc(DebounceDelay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.pending != gen || s.state != Debouncing {
			return
		}
		s.startRunLocked(s.scenarioID, s.params)
	})
}

// Stop cancels any in-flight run and pending timer and returns the session
// to Idle. Nothing further is emitted.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.supersedeLocked()
	s.state = Idle
}

// Close tears the session down on client disconnect. Equivalent to Stop.
func (s *Session) Close() { s.Stop() }

func (s *Session) lookupScenario(id string) (store.Scenario, error) {
	if s.store == nil {
		return store.Scenario{}, store.ErrNotFound
	}
	return s.store.Get(id)
}

// supersedeLocked cancels the active run and debounce timer and bumps the
// current run id so any in-flight worker output is discarded rather than
// forwarded.
func (s *Session) supersedeLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.debounce != nil {
		s.debounce.Stop()
		s.debounce = nil
	}
	s.pending++
	s.current++
}

func (s *Session) startRunLocked(scenarioID string, p model.ScenarioParams) {
	runID := s.current // runs are identified by the supersession counter
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.state = Running

	if s.hooks.RunStarted != nil {
		s.hooks.RunStarted()
	}
	s.log.WithFields(logrus.Fields{"scenario": scenarioID, "run": runID}).Debug("run started")

	go s.worker(ctx, runID, scenarioID, p)
}

// worker executes one run. It never touches session state except through
// deliverTo and finish, both gated on the run id.
func (s *Session) worker(ctx context.Context, runID uint64, scenarioID string, p model.ScenarioParams) {
	steps, err := s.runner.RunEach(ctx, p, func(st model.WorldState) error {
		return s.deliverTo(runID, newStep(st))
	})

	switch {
	case err == nil:
		s.finish(runID, newComplete(scenarioID, steps), false)
	case errors.Is(err, errSuperseded), errors.Is(err, context.Canceled):
		// Superseded or stopped: silence.
	default:
		var div *solver.DivergedError
		if errors.As(err, &div) {
			s.log.WithFields(logrus.Fields{"run": runID, "year": div.Year}).Info("run diverged")
		}
		s.finish(runID, newError(err.Error()), true)
	}
}

// deliverTo forwards one message if runID is still current. The check and
// the send are atomic under the session lock.
func (s *Session) deliverTo(runID uint64, msg ServerMsg) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deliverLocked(runID, msg)
}

func (s *Session) deliverLocked(runID uint64, msg ServerMsg) error {
	if runID != s.current {
		return errSuperseded
	}
	if err := s.sink.Send(msg); err != nil {
		// Consumer gone: treat as cancellation, stop producing.
		s.supersedeLocked()
		s.state = Idle
		return errSuperseded
	}
	return nil
}

// finish emits the terminal signal for a run and folds back to Idle,
// unless the run was superseded in the meantime.
func (s *Session) finish(runID uint64, msg ServerMsg, diverged bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if runID != s.current {
		return
	}
	if diverged {
		if s.hooks.RunDiverged != nil {
			s.hooks.RunDiverged()
		}
	} else if s.hooks.RunCompleted != nil {
		s.hooks.RunCompleted()
	}
	_ = s.deliverLocked(runID, msg)
	s.cancel = nil
	s.state = Idle
}
