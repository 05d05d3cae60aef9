// Package metrics declares the Prometheus collectors for plexlist.
//
// Collectors are registered on the default registry through promauto; the server exposes them with promhttp.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Import metrics
var (
	ImportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plexlist_imports_total",
			Help: "Total number of import runs by outcome",
		},
		[]string{"outcome"},
	)

	ImportDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "plexlist_import_duration_seconds",
			Help:    "Import run duration in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	ImportsRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "plexlist_imports_running",
			Help: "Number of import runs currently executing",
		},
	)

	ImportsQueued = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "plexlist_imports_queued",
			Help: "Number of import runs waiting for a worker",
		},
	)

	MatchResultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plexlist_match_results_total",
			Help: "Total number of matched songs by tier",
		},
		[]string{"tier"},
	)
)

// Upstream metrics
var (
	LibraryRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plexlist_library_requests_total",
			Help: "Total number of media server requests",
		},
		[]string{"operation", "status"},
	)

	LibraryRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "plexlist_library_request_duration_seconds",
			Help:    "Media server request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	SourceFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plexlist_source_fetches_total",
			Help: "Total number of source playlist fetches",
		},
		[]string{"source", "status"},
	)
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plexlist_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "plexlist_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "plexlist_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Outcome labels for [ImportsTotal].
const (
	OutcomeSuccess    = "success"
	OutcomeFailed     = "failed"
	OutcomeAddFailed  = "add_failed"
	OutcomeCanceled   = "canceled"
	OutcomeConnection = "connection_error"
)
