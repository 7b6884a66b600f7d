// Package metrics instruments the index engines and the demo HTTP server
// with Prometheus collectors: per-engine operation counters and
// durations, a memory-usage gauge, and an HTTP request instrumentation
// helper in the same wrap-the-handler style the rest of this module's
// ambient stack favors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	statusHit  = "hit"
	statusMiss = "miss"
)

// Metrics holds every Prometheus collector this module registers.
type Metrics struct {
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight *prometheus.GaugeVec

	buildsTotal        *prometheus.CounterVec
	buildDuration      *prometheus.HistogramVec
	lookupsTotal       *prometheus.CounterVec
	lookupDuration     *prometheus.HistogramVec
	rangeQueriesTotal  *prometheus.CounterVec
	rangeQueryDuration *prometheus.HistogramVec
	insertsTotal       *prometheus.CounterVec
	memoryUsageBytes   *prometheus.GaugeVec
}

// New creates and registers every collector against reg. Production
// callers pass prometheus.DefaultRegisterer so promhttp.Handler()'s
// default gatherer picks them up; tests pass a fresh prometheus.Registry
// so repeated New() calls in the same binary don't collide.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "indexlab_http_requests_total",
				Help: "Total number of HTTP requests served by the demo server.",
			},
			[]string{"method", "endpoint", "status_code"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "indexlab_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		httpRequestsInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "indexlab_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
			[]string{"method", "endpoint"},
		),

		buildsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "indexlab_index_builds_total",
				Help: "Total number of index builds, by engine kind.",
			},
			[]string{"kind"},
		),
		buildDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "indexlab_index_build_duration_seconds",
				Help:    "Index build duration in seconds, by engine kind.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
		lookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "indexlab_index_lookups_total",
				Help: "Total number of point lookups, by engine kind and hit/miss.",
			},
			[]string{"kind", "result"},
		),
		lookupDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "indexlab_index_lookup_duration_seconds",
				Help:    "Point lookup duration in seconds, by engine kind.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
		rangeQueriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "indexlab_index_range_queries_total",
				Help: "Total number of range queries, by engine kind.",
			},
			[]string{"kind"},
		),
		rangeQueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "indexlab_index_range_query_duration_seconds",
				Help:    "Range query duration in seconds, by engine kind.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
		insertsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "indexlab_index_inserts_total",
				Help: "Total number of incremental inserts, by engine kind.",
			},
			[]string{"kind"},
		),
		memoryUsageBytes: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "indexlab_index_memory_usage_bytes",
				Help: "Estimated memory footprint of a built index, by engine kind.",
			},
			[]string{"kind"},
		),
	}
}

// RecordBuild records a completed build.
func (m *Metrics) RecordBuild(kind string, d time.Duration) {
	m.buildsTotal.WithLabelValues(kind).Inc()
	m.buildDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// RecordLookup records a completed point lookup.
func (m *Metrics) RecordLookup(kind string, found bool, d time.Duration) {
	result := statusMiss
	if found {
		result = statusHit
	}
	m.lookupsTotal.WithLabelValues(kind, result).Inc()
	m.lookupDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// RecordRangeQuery records a completed range query.
func (m *Metrics) RecordRangeQuery(kind string, d time.Duration) {
	m.rangeQueriesTotal.WithLabelValues(kind).Inc()
	m.rangeQueryDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// RecordInsert records a completed incremental insert.
func (m *Metrics) RecordInsert(kind string) {
	m.insertsTotal.WithLabelValues(kind).Inc()
}

// SetMemoryUsage updates the memory-usage gauge for kind.
func (m *Metrics) SetMemoryUsage(kind string, bytes int64) {
	m.memoryUsageBytes.WithLabelValues(kind).Set(float64(bytes))
}

// InstrumentHandler wraps an HTTP handler with request-count, duration,
// and in-flight gauges.
func (m *Metrics) InstrumentHandler(method, endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		gauge := m.httpRequestsInFlight.WithLabelValues(method, endpoint)
		gauge.Inc()
		defer gauge.Dec()

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		handler(rw, r)

		duration := time.Since(start)
		m.httpRequestsTotal.WithLabelValues(method, endpoint, statusCodeLabel(rw.statusCode)).Inc()
		m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
	}
}

func statusCodeLabel(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
