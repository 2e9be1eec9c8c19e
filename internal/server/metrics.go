package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the Prometheus instruments for the streaming surface and
// provides the /metrics handler.
type Metrics struct {
	gatherer prometheus.Gatherer

	ActiveSessions prometheus.Gauge
	RunsStarted    prometheus.Counter
	RunsCompleted  prometheus.Counter
	RunsDiverged   prometheus.Counter
	HTTPRequests   *prometheus.CounterVec
	RunDuration    prometheus.Histogram
}

// NewMetrics registers the instruments against reg, defaulting to the
// global registry when nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	m := &Metrics{
		gatherer: gatherer,
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "world3_active_sessions",
			Help: "Currently connected streaming sessions.",
		}),
		RunsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "world3_runs_started_total",
			Help: "Simulation runs started, including superseded ones.",
		}),
		RunsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "world3_runs_completed_total",
			Help: "Simulation runs that reached their end year.",
		}),
		RunsDiverged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "world3_runs_diverged_total",
			Help: "Simulation runs aborted on numerical divergence.",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "world3_http_requests_total",
			Help: "Handled HTTP requests, labeled by route and status code.",
		}, []string{"route", "code"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "world3_batch_run_duration_seconds",
			Help:    "Wall-clock duration of one-shot batch runs.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
	}

	reg.MustRegister(m.ActiveSessions, m.RunsStarted, m.RunsCompleted,
		m.RunsDiverged, m.HTTPRequests, m.RunDuration)
	return m
}

// Handler serves the Prometheus exposition endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
