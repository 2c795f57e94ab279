package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()
	m.ObserveProbe("up", 20*time.Millisecond)
	m.ObserveProbe("up", 30*time.Millisecond)
	m.ObserveProbe("down", time.Second)
	m.ObserveNotification("sent")
	m.ObserveRequest(http.MethodGet, "/websites", 200, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.probeResults.WithLabelValues("up")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.probeResults.WithLabelValues("down")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.notifications.WithLabelValues("sent")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestTotal.WithLabelValues("GET", "/websites", "200")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.ObserveNotification("skipped")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `maintdash_notifications_total{outcome="skipped"} 1`)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveProbe("up", time.Millisecond)
		m.ObserveNotification("sent")
		m.ObserveRequest("GET", "/", 200, time.Millisecond)
	})
}
