// Package metrics holds the Prometheus collectors of the trace store, the
// window composer and the export pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// dbQueryDuration tracks database query duration in seconds
	dbQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "traceview_db_query_duration_seconds",
			Help:    "Trace store query duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"database", "operation"},
	)

	// dbQueryTotal tracks total database queries
	dbQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "traceview_db_queries_total",
			Help: "Total number of trace store queries",
		},
		[]string{"database", "operation"},
	)

	// dbQueryErrors tracks database query errors
	dbQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "traceview_db_query_errors_total",
			Help: "Total number of trace store query errors",
		},
		[]string{"database", "operation"},
	)

	// dbRowsRead tracks rows returned by window lookups
	dbRowsRead = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "traceview_db_rows_read_total",
			Help: "Total number of rows read from the trace store",
		},
		[]string{"database", "operation"},
	)

	// dbSlowQueries tracks slow database queries
	dbSlowQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "traceview_db_slow_queries_total",
			Help: "Total number of slow trace store queries (>250ms)",
		},
		[]string{"database", "operation"},
	)

	storeCircuitState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "traceview_store_circuit_state",
			Help: "Trace store circuit state: 0 closed, 1 open, 2 half-open",
		},
		[]string{"store"},
	)
)

// RecordDBQuery records database query metrics
func RecordDBQuery(database, operation string, duration time.Duration, rows int) {
	dbQueryTotal.WithLabelValues(database, operation).Inc()
	dbQueryDuration.WithLabelValues(database, operation).Observe(duration.Seconds())
	dbRowsRead.WithLabelValues(database, operation).Add(float64(rows))

	if duration > 250*time.Millisecond {
		dbSlowQueries.WithLabelValues(database, operation).Inc()
	}
}

// RecordDBError records a database query error
func RecordDBError(database, operation string) {
	dbQueryErrors.WithLabelValues(database, operation).Inc()
}

// SetStoreCircuitState records the circuit breaker state of a store
func SetStoreCircuitState(store string, state int) {
	storeCircuitState.WithLabelValues(store).Set(float64(state))
}
