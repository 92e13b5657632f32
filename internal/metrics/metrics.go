// Package metrics exports Prometheus metrics for the HTTP surface and the
// thread aggregator.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "thesiscomments"

// Metrics holds every collector of the service.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	ThreadScansTotal      *prometheus.CounterVec
	ThreadScanDocuments   prometheus.Histogram
	ThreadCacheLookups    *prometheus.CounterVec
	DocumentWriteConflict prometheus.Counter

	gatherer prometheus.Gatherer
}

// New registers the collectors in reg. A nil reg gets a fresh private registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"method", "route"},
		),
		HTTPRequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_in_flight",
				Help:      "Current number of HTTP requests being processed",
			},
		),
		ThreadScansTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "thread_scans_total",
				Help:      "Thread aggregations by outcome",
			},
			[]string{"truncated"},
		),
		ThreadScanDocuments: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "thread_scan_documents",
				Help:      "User documents read per thread aggregation",
				Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500},
			},
		),
		ThreadCacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "thread_cache_lookups_total",
				Help:      "Thread cache lookups by result",
			},
			[]string{"result"},
		),
		DocumentWriteConflict: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "document_write_conflicts_total",
				Help:      "Conditional document writes that gave up after retrying",
			},
		),
		gatherer: reg,
	}
}

// Middleware records request counts and latencies labelled by chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		m.HTTPRequestsInFlight.Inc()
		defer m.HTTPRequestsInFlight.Dec()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		route := routePattern(r)
		m.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(wrapped.statusCode)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// routePattern keeps label cardinality bounded: raw paths carry usernames and thread ids.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// RecordThreadScan records one aggregation over documents user documents.
func (m *Metrics) RecordThreadScan(documents int, truncated bool) {
	m.ThreadScansTotal.WithLabelValues(strconv.FormatBool(truncated)).Inc()
	m.ThreadScanDocuments.Observe(float64(documents))
}

// RecordCacheLookup counts a thread cache hit or miss.
func (m *Metrics) RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.ThreadCacheLookups.WithLabelValues(result).Inc()
}

// RecordWriteConflict counts an update abandoned after exhausting its retries.
func (m *Metrics) RecordWriteConflict() {
	m.DocumentWriteConflict.Inc()
}
