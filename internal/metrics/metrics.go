// Package metrics owns the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the service collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	authEvents      *prometheus.CounterVec
	controlCommands *prometheus.CounterVec
	questionCache   *prometheus.CounterVec
	wsConnections   prometheus.Gauge
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "proctor",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"route", "status"}),
		requestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "proctor",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		authEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "proctor",
			Name:      "auth_events_total",
			Help:      "Signup, login and two-factor outcomes.",
		}, []string{"event", "outcome"}),
		controlCommands: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "proctor",
			Name:      "session_commands_total",
			Help:      "Instructor shutdown/poweron commands.",
		}, []string{"action", "outcome"}),
		questionCache: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "proctor",
			Name:      "question_cache_lookups_total",
			Help:      "Exam question cache lookups by result.",
		}, []string{"result"}),
		wsConnections: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "proctor",
			Name:      "ws_connections",
			Help:      "Open student WebSocket connections.",
		}),
	}
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// AuthEvent records an auth flow outcome such as ("signup", "duplicate").
func (m *Metrics) AuthEvent(event, outcome string) {
	if m == nil {
		return
	}
	m.authEvents.WithLabelValues(event, outcome).Inc()
}

// ControlCommand records a shutdown or poweron attempt.
func (m *Metrics) ControlCommand(action, outcome string) {
	if m == nil {
		return
	}
	m.controlCommands.WithLabelValues(action, outcome).Inc()
}

// CacheLookup records a question cache hit or miss.
func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.questionCache.WithLabelValues(result).Inc()
}

// WSConnected adjusts the open connection gauge by delta.
func (m *Metrics) WSConnected(delta int) {
	if m == nil {
		return
	}
	m.wsConnections.Add(float64(delta))
}
