package utils

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Check-in outcomes reported to IncCheckins.
const (
	OutcomeAccepted         = "accepted"
	OutcomeAlreadyCheckedIn = "already_checked_in"
	OutcomeFailed           = "failed"
)

type Metrics interface {
	IncRequestsTotal(endpoint string, status int)
	ObserveRequestDuration(endpoint string, duration time.Duration)
	IncCacheHits(layer string)
	IncCacheMisses()
	IncCheckins(outcome string)
	ObserveStreak(streak int)
	Handler() http.Handler
}

type PromMetrics struct {
	registry        *prometheus.Registry
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     prometheus.Counter
	checkins        *prometheus.CounterVec
	streaks         prometheus.Histogram
}

// NewMetrics returns a Prometheus-backed Metrics with its own registry, or a
// no-op implementation when disabled.
func NewMetrics(enabled bool) Metrics {
	if !enabled {
		return NopMetrics{}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &PromMetrics{
		registry: reg,
		requestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sobercast_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"endpoint", "status"}),

		requestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sobercast_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),

		cacheHits: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sobercast_cache_hits_total",
			Help: "Total number of cache hits by layer",
		}, []string{"layer"}),

		cacheMisses: f.NewCounter(prometheus.CounterOpts{
			Name: "sobercast_cache_misses_total",
			Help: "Total number of cache misses",
		}),

		checkins: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sobercast_checkins_total",
			Help: "Check-in attempts by outcome",
		}, []string{"outcome"}),

		streaks: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "sobercast_checkin_streak_days",
			Help:    "Streak length reached by accepted check-ins",
			Buckets: []float64{1, 3, 7, 14, 30, 60, 90, 180, 365, 730},
		}),
	}
}

func (m *PromMetrics) IncRequestsTotal(endpoint string, status int) {
	m.requestsTotal.WithLabelValues(endpoint, httpStatusBucket(status)).Inc()
}

func (m *PromMetrics) ObserveRequestDuration(endpoint string, duration time.Duration) {
	m.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (m *PromMetrics) IncCacheHits(layer string) { m.cacheHits.WithLabelValues(layer).Inc() }

func (m *PromMetrics) IncCacheMisses() { m.cacheMisses.Inc() }

func (m *PromMetrics) IncCheckins(outcome string) { m.checkins.WithLabelValues(outcome).Inc() }

func (m *PromMetrics) ObserveStreak(streak int) { m.streaks.Observe(float64(streak)) }

// Handler serves this registry in the Prometheus exposition format.
func (m *PromMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry for tests.
func (m *PromMetrics) Registry() *prometheus.Registry { return m.registry }

func httpStatusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) IncRequestsTotal(_ string, _ int)                 {}
func (NopMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}
func (NopMetrics) IncCacheHits(_ string)                            {}
func (NopMetrics) IncCacheMisses()                                  {}
func (NopMetrics) IncCheckins(_ string)                             {}
func (NopMetrics) ObserveStreak(_ int)                              {}
func (NopMetrics) Handler() http.Handler                            { return http.NotFoundHandler() }
