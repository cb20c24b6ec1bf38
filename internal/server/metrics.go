package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics is registered on a per-service registry so several services can
// coexist in one process.
type metrics struct {
	registry *prometheus.Registry

	requests      *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	cacheHits     prometheus.Counter
	cacheMisses   prometheus.Counter
	rateLimited   prometheus.Counter
	engineErrors  *prometheus.CounterVec
	polls         *prometheus.CounterVec
	seriesDays    prometheus.Gauge
	seriesTotal   prometheus.Gauge
	anomalyCount  prometheus.Gauge
	seriesChanges prometheus.Counter
}

func newMetrics() *metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &metrics{
		registry: reg,
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "costcast_http_requests_total",
			Help: "HTTP requests by route and status code",
		}, []string{"route", "code"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "costcast_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		cacheHits: f.NewCounter(prometheus.CounterOpts{
			Name: "costcast_cache_hits_total",
			Help: "Responses served from the result cache",
		}),
		cacheMisses: f.NewCounter(prometheus.CounterOpts{
			Name: "costcast_cache_misses_total",
			Help: "Responses computed by the engine",
		}),
		rateLimited: f.NewCounter(prometheus.CounterOpts{
			Name: "costcast_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		}),
		engineErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "costcast_engine_errors_total",
			Help: "Engine errors by kind",
		}, []string{"kind"}),
		polls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "costcast_polls_total",
			Help: "Export directory polls by result",
		}, []string{"result"}),
		seriesDays: f.NewGauge(prometheus.GaugeOpts{
			Name: "costcast_series_days",
			Help: "Days in the default series at the last poll",
		}),
		seriesTotal: f.NewGauge(prometheus.GaugeOpts{
			Name: "costcast_series_total_cost",
			Help: "Total cost of the default series at the last poll",
		}),
		anomalyCount: f.NewGauge(prometheus.GaugeOpts{
			Name: "costcast_series_anomalies",
			Help: "Anomalous days in the default series at the last poll",
		}),
		seriesChanges: f.NewCounter(prometheus.CounterOpts{
			Name: "costcast_series_changes_total",
			Help: "Polls that observed a changed series",
		}),
	}
}

// instrument records request counts and latency keyed by chi route pattern.
func (m *metrics) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		code := ww.Status()
		if code == 0 {
			code = http.StatusOK
		}
		m.requests.WithLabelValues(route, strconv.Itoa(code)).Inc()
		m.latency.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
