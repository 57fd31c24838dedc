package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersAndHandler(t *testing.T) {
	m := New()
	m.Sweep()
	m.Sweep()
	m.Triggered("sweep")
	m.Delivery("gone")
	m.Pruned(2)
	m.Propagation("today_to_source", false)
	m.SchedulerRunning(true)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.sweeps))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.triggered.WithLabelValues("sweep")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.pruned))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.propagations.WithLabelValues("today_to_source", "skipped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.schedulerRunning))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "lazyday_scheduler_sweeps_total 2")
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Sweep()
		m.Triggered("manual")
		m.Delivery("sent")
		m.Pruned(1)
		m.Propagation("source_to_today", true)
		m.SchedulerRunning(false)
	})
}
