// Package metrics provides Prometheus metrics for tree builds and the stores
// that keep them.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Remote API metrics
	apiRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hubmirror_api_requests_total",
			Help: "Total number of remote API requests",
		},
		[]string{"endpoint", "status"},
	)

	apiRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hubmirror_api_request_duration_seconds",
			Help:    "Remote API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// Build metrics
	folderFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hubmirror_folder_fetches_total",
			Help: "Total folder contents fetches made by the builder",
		},
		[]string{"status"},
	)

	folderChildren = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hubmirror_folder_children",
			Help:    "Number of children returned per folder fetch",
			Buckets: prometheus.ExponentialBuckets(1, 4, 7),
		},
	)

	buildsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hubmirror_builds_total",
			Help: "Total tree builds",
		},
		[]string{"result"},
	)

	buildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hubmirror_build_duration_seconds",
			Help:    "Time to build a project tree",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
		},
	)

	treeSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hubmirror_tree_size",
			Help: "Number of nodes in the last built tree",
		},
	)

	// Database metrics
	dbQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hubmirror_db_query_duration_seconds",
			Help:    "Catalog query duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"query"},
	)

	// Storage metrics
	storageOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hubmirror_storage_operation_duration_seconds",
			Help:    "Snapshot storage operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "operation"},
	)

	storageOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hubmirror_storage_operations_total",
			Help: "Total snapshot storage operations",
		},
		[]string{"backend", "operation", "status"},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordAPIRequest records one remote API call. status is 0 when no response
// was received.
func RecordAPIRequest(endpoint string, status int, duration time.Duration) {
	apiRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
	apiRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordFolderFetch records one folder contents fetch.
func RecordFolderFetch(children int, success bool) {
	folderFetchesTotal.WithLabelValues(statusLabel(success)).Inc()
	if success {
		folderChildren.Observe(float64(children))
	}
}

// RecordBuild records a finished build.
func RecordBuild(duration time.Duration, nodes int, success bool) {
	buildsTotal.WithLabelValues(statusLabel(success)).Inc()
	buildDuration.Observe(duration.Seconds())
	if success {
		treeSize.Set(float64(nodes))
	}
}

// RecordDBQuery records a catalog query duration.
func RecordDBQuery(query string, duration time.Duration) {
	dbQueryDuration.WithLabelValues(query).Observe(duration.Seconds())
}

// RecordStorageOperation records a snapshot backend operation.
func RecordStorageOperation(backend, operation string, duration time.Duration, success bool) {
	storageOperationDuration.WithLabelValues(backend, operation).Observe(duration.Seconds())
	storageOperationsTotal.WithLabelValues(backend, operation, statusLabel(success)).Inc()
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}
