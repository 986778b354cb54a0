package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordRequest(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("POST", "alert.panic", 200, 20*time.Millisecond)
	m.RecordRequest("POST", "alert.panic", 200, 10*time.Millisecond)
	m.RecordRequest("GET", "alert.user-alerts", 0, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("POST", "alert.panic", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "alert.user-alerts", "none")))
}

func TestBusinessAndCache(t *testing.T) {
	m := NewMetrics()
	m.RecordBusinessOperation("alert.panic", nil)
	m.RecordBusinessOperation("alert.panic", errors.New("x"))
	m.RecordCache("hospitals", true)
	m.RecordCache("hospitals", false)
	m.RecordSessionEvent("logged_in")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.businessCounter.WithLabelValues("alert.panic", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheHitsTotal.WithLabelValues("hospitals")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sessionEvents.WithLabelValues("logged_in")))
}

func TestNilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRequest("GET", "x", 200, time.Millisecond)
		m.RecordBusinessOperation("x", nil)
	})
	assert.False(t, IsEnabled())
	SetGlobal(NewMetrics())
	defer SetGlobal(nil)
	assert.True(t, IsEnabled())
}

func TestHandlerExportsRegistry(t *testing.T) {
	m := NewMetrics()
	m.RecordCache("nearby", true)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `guardian_cache_hits_total{cache="nearby"} 1`)

	var nilMetrics *Metrics
	rec = httptest.NewRecorder()
	nilMetrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
