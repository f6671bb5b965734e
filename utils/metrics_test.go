package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromMetrics(t *testing.T) {
	m, ok := NewMetrics(true).(*PromMetrics)
	require.True(t, ok)

	m.IncCheckins(OutcomeAccepted)
	m.IncCheckins(OutcomeAccepted)
	m.IncCheckins(OutcomeAlreadyCheckedIn)
	m.IncRequestsTotal("/api/checkin", 201)
	m.IncRequestsTotal("/api/checkin", 503)
	m.ObserveRequestDuration("/api/checkin", 20*time.Millisecond)
	m.ObserveStreak(12)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.checkins.WithLabelValues(OutcomeAccepted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.checkins.WithLabelValues(OutcomeAlreadyCheckedIn)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("/api/checkin", "5xx")))

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "sobercast_checkins_total")
	assert.Contains(t, w.Body.String(), "sobercast_checkin_streak_days_bucket")

	// separate registries never collide
	assert.NotPanics(t, func() { NewMetrics(true) })
}

func TestNopMetrics(t *testing.T) {
	m := NewMetrics(false)
	m.IncCheckins(OutcomeFailed)
	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHTTPStatusBucket(t *testing.T) {
	assert.Equal(t, "2xx", httpStatusBucket(200))
	assert.Equal(t, "4xx", httpStatusBucket(429))
	assert.Equal(t, "5xx", httpStatusBucket(500))
}
