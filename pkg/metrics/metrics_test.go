package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecordAndExpose(t *testing.T) {
	m, err := New(prometheus.NewRegistry())
	require.NoError(t, err)

	m.ObserveRequest(http.MethodPost, "/api/v1/users/login", http.StatusOK, 20*time.Millisecond)
	m.SessionEvent("refresh", nil)
	m.SessionEvent("refresh", errors.New("reused"))
	m.SessionEvent("refresh", errors.New("reused"))
	m.CacheLookup("hit")
	m.TokensPurged(3)
	m.TokensPurged(0)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.sessionEvents.WithLabelValues("refresh", "success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.sessionEvents.WithLabelValues("refresh", "failure")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.purgedTokens))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "accounts_http_requests_total"))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveRequest("GET", "/", 200, time.Millisecond)
	m.SessionEvent("login", nil)
	m.ObserveUpload(nil, time.Millisecond)
	m.CacheLookup("miss")
	m.BreakerState("media-upload", 1)
	m.TokensPurged(1)
}

func TestNewRejectsDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)
	_, err = New(reg)
	assert.Error(t, err)
}
