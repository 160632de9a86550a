package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gathered flattens a registry into name{label values...} -> value.
func gathered(t *testing.T, reg *prometheus.Registry) map[string]float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)

	out := map[string]float64{}
	for _, fam := range families {
		for _, m := range fam.GetMetric() {
			key := fam.GetName()
			for _, lp := range m.GetLabel() {
				key += "|" + lp.GetValue()
			}
			switch {
			case m.GetCounter() != nil:
				out[key] = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				out[key] = m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				out[key] = float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	return out
}

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveRequest("POST /signup", 201, 10*time.Millisecond)
	m.ObserveRequest("POST /signup", 201, 20*time.Millisecond)
	m.AuthEvent("signup", "duplicate")
	m.ControlCommand("shutdown", "ok")
	m.CacheLookup(true)
	m.CacheLookup(false)
	m.WSConnected(1)

	got := gathered(t, reg)
	assert.Equal(t, 2.0, got["proctor_http_requests_total|POST /signup|201"])
	assert.Equal(t, 2.0, got["proctor_http_request_duration_seconds|POST /signup"])
	assert.Equal(t, 1.0, got["proctor_auth_events_total|signup|duplicate"])
	assert.Equal(t, 1.0, got["proctor_session_commands_total|shutdown|ok"])
	assert.Equal(t, 1.0, got["proctor_question_cache_lookups_total|hit"])
	assert.Equal(t, 1.0, got["proctor_question_cache_lookups_total|miss"])
	assert.Equal(t, 1.0, got["proctor_ws_connections"])
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRequest("GET /healthz", 200, time.Millisecond)
		m.AuthEvent("login", "ok")
		m.ControlCommand("poweron", "ok")
		m.CacheLookup(true)
		m.WSConnected(-1)
	})
}
