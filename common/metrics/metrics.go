// Package metrics provides Prometheus metrics of scans, layouts and the HTTP API.
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
	scansStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dux_scans_started_total",
			Help: "Total number of scans started",
		},
		[]string{"source"},
	)

	scansFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dux_scans_finished_total",
			Help: "Total number of scans finished, by outcome",
		},
		[]string{"source", "state"},
	)

	scanDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dux_scan_duration_seconds",
			Help:    "Duration of completed scans in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
		},
		[]string{"source"},
	)

	entriesScanned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dux_entries_scanned_total",
			Help: "Total number of files and directories of completed scans",
		},
		[]string{"source", "type"},
	)

	treeSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dux_tree_size_bytes",
			Help: "Aggregated size of the current tree",
		},
	)

	diskAvailable = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dux_disk_available_bytes",
			Help: "Available bytes of the file system holding the last local scan root",
		},
	)

	layoutRects = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dux_layout_rects",
			Help:    "Number of rectangles emitted by a treemap layout",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
	)

	layoutDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dux_layout_duration_seconds",
			Help:    "Treemap layout duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dux_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordScanStarted records a scan started from the specified source, "local" or "remote".
func RecordScanStarted(source string) {
	scansStarted.WithLabelValues(source).Inc()
}

// RecordScanFinished records the terminal state of a scan. Statistics of the tree
// are recorded for completed scans only.
func RecordScanFinished(source, state string, elapsed time.Duration, files, dirs, size int64) {
	scansFinished.WithLabelValues(source, state).Inc()

	if state != "completed" {
		return
	}

	scanDuration.WithLabelValues(source).Observe(elapsed.Seconds())
	entriesScanned.WithLabelValues(source, "file").Add(float64(files))
	entriesScanned.WithLabelValues(source, "directory").Add(float64(dirs))
	treeSize.Set(float64(size))
}

// RecordTreeSize records the size of the current tree after a mutation.
func RecordTreeSize(size int64) {
	treeSize.Set(float64(size))
}

// RecordDiskAvailable records the available bytes of a file system.
func RecordDiskAvailable(bytes uint64) {
	diskAvailable.Set(float64(bytes))
}

// RecordLayout records a treemap layout.
func RecordLayout(rects int, duration time.Duration) {
	layoutRects.Observe(float64(rects))
	layoutDuration.Observe(duration.Seconds())
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(method, path string, status int) {
	httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
}
