// Package metrics prometheus instrumentation of the position service
package metrics

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gmcfx/GM-Capital/internal/model"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics position service metrics
type Metrics struct {
	PositionsOpened *prometheus.CounterVec
	PositionsClosed *prometheus.CounterVec
	Errors          *prometheus.CounterVec
	OpDuration      *prometheus.HistogramVec
	MarkRuns        *prometheus.CounterVec
	EventsPublished *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// NewMetrics creates and registers all metrics on reg
func NewMetrics(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		PositionsOpened: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "positions_opened_total",
			Help: "Positions opened",
		}, []string{"instrument", "side"}),

		PositionsClosed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "positions_closed_total",
			Help: "Positions closed",
		}, []string{"instrument", "reason"}),

		Errors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "position_service_errors_total",
			Help: "Failed service operations by error kind",
		}, []string{"op", "kind"}),

		OpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "position_service_op_duration_seconds",
			Help:    "Service operation latency",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"op"}),

		MarkRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mark_to_market_runs_total",
			Help: "Mark-to-market worker ticks by result",
		}, []string{"result"}),

		EventsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "events_published_total",
			Help: "Position events handed to publishers",
		}, []string{"publisher", "result"}),

		gatherer: reg,
	}
}

// ObserveOp records latency and, for failures, the error kind
func (m *Metrics) ObserveOp(op string, duration time.Duration, err error) {
	m.OpDuration.WithLabelValues(op).Observe(duration.Seconds())
	if err != nil {
		m.Errors.WithLabelValues(op, model.Kind(err)).Inc()
	}
}

// PositionOpened counts an open
func (m *Metrics) PositionOpened(instrument string, side model.Side) {
	m.PositionsOpened.WithLabelValues(instrument, string(side)).Inc()
}

// PositionClosed counts a close
func (m *Metrics) PositionClosed(instrument string, reason model.CloseReason) {
	m.PositionsClosed.WithLabelValues(instrument, string(reason)).Inc()
}

// MarkRun counts a worker tick
func (m *Metrics) MarkRun(result string) {
	m.MarkRuns.WithLabelValues(result).Inc()
}

// EventPublished counts a publish attempt
func (m *Metrics) EventPublished(publisher string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.EventsPublished.WithLabelValues(publisher, result).Inc()
}

// Handler /metrics handler over the registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// HealthChecker liveness and readiness state
type HealthChecker struct {
	ready     atomic.Bool
	startTime time.Time
}

// NewHealthChecker constructor
func NewHealthChecker() *HealthChecker {
	return &HealthChecker{startTime: time.Now()}
}

// SetReady marks the service ready to accept traffic
func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady ready state
func (h *HealthChecker) IsReady() bool {
	return h.ready.Load()
}

// LivenessHandler always 200 while the process runs
func (h *HealthChecker) LivenessHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status": "alive",
		"uptime": time.Since(h.startTime).String(),
	})
}

// ReadinessHandler 200 once stores and feeds are wired, 503 before
func (h *HealthChecker) ReadinessHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	status, code := "ready", http.StatusOK
	if !h.ready.Load() {
		status, code = "not_ready", http.StatusServiceUnavailable
	}
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": status})
}
