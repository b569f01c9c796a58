package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	windowsComposed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "traceview_windows_composed_total",
			Help: "Total number of trace window documents composed",
		},
		[]string{"mode"},
	)

	windowTraces = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "traceview_window_traces",
			Help:    "Number of traces per composed window",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
	)

	windowBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "traceview_window_bytes_total",
			Help: "Total bytes written for composed windows",
		},
	)

	windowWriteFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "traceview_window_write_failures_total",
			Help: "Total number of windows aborted because the client sink failed",
		},
	)

	windowCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "traceview_window_cache_total",
			Help: "Closed window cache lookups by result",
		},
		[]string{"result"},
	)

	exportsEnqueued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "traceview_window_exports_enqueued_total",
			Help: "Total number of window export jobs enqueued",
		},
	)

	exportsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "traceview_window_exports_processed_total",
			Help: "Total number of window export jobs processed by status",
		},
		[]string{"status"},
	)

	exportDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "traceview_window_export_duration_seconds",
			Help:    "Window export job duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
	)
)

// RecordWindowComposed records a composed window. mode is "stream", "render" or "export".
func RecordWindowComposed(mode string, traces int, bytes int64) {
	windowsComposed.WithLabelValues(mode).Inc()
	windowTraces.Observe(float64(traces))
	windowBytes.Add(float64(bytes))
}

// RecordWindowWriteFailure records a window aborted by a failing sink
func RecordWindowWriteFailure() {
	windowWriteFailures.Inc()
}

// RecordWindowCache records a closed window cache lookup
func RecordWindowCache(hit bool) {
	if hit {
		windowCache.WithLabelValues("hit").Inc()
		return
	}
	windowCache.WithLabelValues("miss").Inc()
}

// RecordExportEnqueued records an enqueued window export
func RecordExportEnqueued() {
	exportsEnqueued.Inc()
}

// RecordExportProcessed records a finished window export job
func RecordExportProcessed(status string, duration time.Duration) {
	exportsProcessed.WithLabelValues(status).Inc()
	exportDuration.Observe(duration.Seconds())
}
