// Package metrics exposes Prometheus collectors for searches, backend calls
// and the HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for SearchRequestsTotal.
const (
	OutcomeOK          = "ok"
	OutcomeQueryError  = "query_error"
	OutcomeConfigError = "config_error"
	OutcomeError       = "error"
)

var latencyBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

var (
	// SearchRequestsTotal counts searches by backend and outcome.
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filefinder_search_requests_total",
			Help: "Search requests",
		},
		[]string{"backend", "outcome"},
	)

	// BackendLatency records the duration of backend executions.
	BackendLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "filefinder_backend_latency_seconds",
			Help:    "Backend execution latency",
			Buckets: latencyBuckets,
		},
		[]string{"backend"},
	)

	// DegradedRecordsTotal counts hits rendered as error records.
	DegradedRecordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filefinder_degraded_records_total",
			Help: "Hits that failed enrichment",
		},
		[]string{"backend"},
	)

	// DroppedHitsTotal counts hits dropped because the user cannot see them.
	DroppedHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filefinder_dropped_hits_total",
			Help: "Hits not visible to the requesting user",
		},
		[]string{"backend"},
	)

	// ScannedFilesTotal counts file cache entries written by the scanner.
	ScannedFilesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filefinder_scanned_files_total",
			Help: "Files recorded by the file cache scanner",
		},
		[]string{"user"},
	)

	// HTTPRequestsTotal counts API requests by route and status class.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filefinder_http_requests_total",
			Help: "HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration records API request duration.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "filefinder_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: latencyBuckets,
		},
		[]string{"method", "route"},
	)
)

func init() {
	prometheus.MustRegister(
		SearchRequestsTotal,
		BackendLatency,
		DegradedRecordsTotal,
		DroppedHitsTotal,
		ScannedFilesTotal,
		HTTPRequestsTotal,
		HTTPRequestDuration,
	)
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveBackend records the latency of a backend call started at start.
func ObserveBackend(backend string, start time.Time) {
	BackendLatency.WithLabelValues(backend).Observe(time.Since(start).Seconds())
}

// Middleware records request counts and durations under the given route label.
func Middleware(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		class := strconv.Itoa(sw.status/100) + "xx"
		HTTPRequestsTotal.WithLabelValues(r.Method, route, class).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status  int
	written bool
}

func (w *statusWriter) WriteHeader(status int) {
	if !w.written {
		w.status = status
		w.written = true
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	w.written = true
	return w.ResponseWriter.Write(b)
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
