// Package server exposes the simulator over HTTP: a small JSON REST
// surface for scenario management and one-shot batch runs, a WebSocket
// endpoint for interactive streaming, and Prometheus metrics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/openw3/world3/internal/analysis"
	"github.com/openw3/world3/internal/model"
	"github.com/openw3/world3/internal/sim"
	"github.com/openw3/world3/internal/store"
)

// Server ties the run generator and the scenario store to the HTTP surface.
// One Server handles any number of concurrent clients; each WebSocket
// connection gets its own session.
type Server struct {
	log     *logrus.Entry
	runner  *sim.Runner
	store   store.Store
	metrics *Metrics
}

// New builds a Server. metrics may be nil to disable instrumentation.
func New(runner *sim.Runner, st store.Store, metrics *Metrics, log *logrus.Entry) *Server {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Server{log: log, runner: runner, store: st, metrics: metrics}
}

// Handler returns the full route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /api/v1/params/schema", s.handleParamsSchema)
	mux.HandleFunc("GET /api/v1/scenarios", s.handleListScenarios)
	mux.HandleFunc("POST /api/v1/scenarios", s.handleCreateScenario)
	mux.HandleFunc("GET /api/v1/scenarios/{id}", s.handleGetScenario)
	mux.HandleFunc("PUT /api/v1/scenarios/{id}", s.handleUpdateScenario)
	mux.HandleFunc("DELETE /api/v1/scenarios/{id}", s.handleDeleteScenario)
	mux.HandleFunc("POST /api/v1/scenarios/{id}/run", s.handleRunScenario)
	mux.HandleFunc("GET /api/v1/scenarios/{id}/analysis", s.handleAnalyzeScenario)
	mux.HandleFunc("GET /ws", s.handleWS)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}
	return mux
}

// ListenAndServe runs the server until ctx is cancelled, then drains with a
// short grace period.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	s.log.WithField("addr", addr).Info("server listening")
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, "healthz", http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleParamsSchema(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, "params_schema", http.StatusOK, model.ParameterDescriptors())
}

func (s *Server) handleListScenarios(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.store.List()
	if err != nil {
		s.writeError(w, "scenarios_list", http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, "scenarios_list", http.StatusOK, summaries)
}

func (s *Server) handleCreateScenario(w http.ResponseWriter, r *http.Request) {
	params, err := decodeParams(r)
	if err != nil {
		s.writeError(w, "scenario_create", http.StatusBadRequest, err)
		return
	}
	if params.Meta.ID == "" {
		params.Meta.ID = uuid.NewString()
	}
	if params.Meta.CreatedAt == "" {
		params.Meta.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	sc := store.Scenario{Params: params}
	if err := s.store.Put(sc); err != nil {
		s.writeError(w, "scenario_create", http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, "scenario_create", http.StatusCreated, sc)
}

func (s *Server) handleGetScenario(w http.ResponseWriter, r *http.Request) {
	sc, err := s.store.Get(r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, "scenario_get", http.StatusNotFound, err)
		return
	}
	if err != nil {
		s.writeError(w, "scenario_get", http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, "scenario_get", http.StatusOK, sc)
}

func (s *Server) handleUpdateScenario(w http.ResponseWriter, r *http.Request) {
	params, err := decodeParams(r)
	if err != nil {
		s.writeError(w, "scenario_update", http.StatusBadRequest, err)
		return
	}
	id := r.PathValue("id")
	if err := s.store.UpdateParams(id, params); errors.Is(err, store.ErrNotFound) {
		s.writeError(w, "scenario_update", http.StatusNotFound, err)
		return
	} else if err != nil {
		s.writeError(w, "scenario_update", http.StatusInternalServerError, err)
		return
	}
	sc, _ := s.store.Get(id)
	s.writeJSON(w, "scenario_update", http.StatusOK, sc)
}

func (s *Server) handleDeleteScenario(w http.ResponseWriter, r *http.Request) {
	err := s.store.Delete(r.PathValue("id"))
	switch {
	case errors.Is(err, store.ErrNotFound):
		s.writeError(w, "scenario_delete", http.StatusNotFound, err)
	case errors.Is(err, store.ErrPreset):
		s.writeError(w, "scenario_delete", http.StatusForbidden, err)
	case err != nil:
		s.writeError(w, "scenario_delete", http.StatusInternalServerError, err)
	default:
		w.WriteHeader(http.StatusNoContent)
		s.count("scenario_delete", http.StatusNoContent)
	}
}

// handleRunScenario executes a one-shot batch run of a stored scenario and
// returns the full trajectory. The request body may carry a parameter
// override; omitted bodies run the stored parameters unchanged.
func (s *Server) handleRunScenario(w http.ResponseWriter, r *http.Request) {
	sc, err := s.store.Get(r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, "scenario_run", http.StatusNotFound, err)
		return
	}
	if err != nil {
		s.writeError(w, "scenario_run", http.StatusInternalServerError, err)
		return
	}

	params := sc.Params
	if r.ContentLength != 0 {
		if params, err = decodeParams(r); err != nil {
			s.writeError(w, "scenario_run", http.StatusBadRequest, err)
			return
		}
	}

	start := time.Now()
	out, err := s.runner.Run(r.Context(), params)
	if err != nil {
		s.writeError(w, "scenario_run", http.StatusUnprocessableEntity, err)
		return
	}
	if s.metrics != nil {
		s.metrics.RunDuration.Observe(time.Since(start).Seconds())
	}
	s.writeJSON(w, "scenario_run", http.StatusOK, out)
}

// handleAnalyzeScenario runs the stored scenario and returns trajectory
// indicators (peaks, drops, shape classification) instead of raw states.
func (s *Server) handleAnalyzeScenario(w http.ResponseWriter, r *http.Request) {
	sc, err := s.store.Get(r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, "scenario_analysis", http.StatusNotFound, err)
		return
	}
	if err != nil {
		s.writeError(w, "scenario_analysis", http.StatusInternalServerError, err)
		return
	}

	out, err := s.runner.Run(r.Context(), sc.Params)
	if err != nil {
		s.writeError(w, "scenario_analysis", http.StatusUnprocessableEntity, err)
		return
	}
	s.writeJSON(w, "scenario_analysis", http.StatusOK, analysis.Analyze(out))
}

func decodeParams(r *http.Request) (model.ScenarioParams, error) {
	var p model.ScenarioParams
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return model.ScenarioParams{}, err
	}
	return p, nil
}

func (s *Server) writeJSON(w http.ResponseWriter, route string, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.WithError(err).Warn("response encode failed")
	}
	s.count(route, status)
}

func (s *Server) writeError(w http.ResponseWriter, route string, status int, err error) {
	s.log.WithError(err).WithField("route", route).Debug("request failed")
	s.writeJSON(w, route, status, map[string]string{"error": err.Error()})
}

func (s *Server) count(route string, status int) {
	if s.metrics != nil {
		s.metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	}
}
