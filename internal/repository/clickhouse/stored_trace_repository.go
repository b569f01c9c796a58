package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/agenttrace/traceview/internal/domain"
	"github.com/agenttrace/traceview/internal/pkg/database"
	"github.com/agenttrace/traceview/internal/pkg/metrics"
)

// DefaultTable is the table holding stored traces
const DefaultTable = "stored_traces"

// CreateTableSQL is the DDL for the stored traces table. %s is the table name.
const CreateTableSQL = `
	CREATE TABLE IF NOT EXISTS %s (
		id           String,
		captured_at  Int64,
		start_at     Int64,
		duration     Float64,
		stuck        Bool,
		completed    Bool,
		username     Nullable(String),
		thread_names String,
		spans        String
	)
	ENGINE = MergeTree
	ORDER BY (captured_at, id)
`

// StoredTraceRepository reads stored traces from ClickHouse
type StoredTraceRepository struct {
	db    *database.ClickHouseDB
	table string
}

// NewStoredTraceRepository creates a new stored trace repository
func NewStoredTraceRepository(db *database.ClickHouseDB, table string) *StoredTraceRepository {
	if table == "" {
		table = DefaultTable
	}
	return &StoredTraceRepository{db: db, table: table}
}

// ReadStoredTraces returns the traces captured within [fromMillis, toMillis]
func (r *StoredTraceRepository) ReadStoredTraces(ctx context.Context, fromMillis, toMillis int64) ([]domain.StoredTrace, error) {
	query := fmt.Sprintf(`
		SELECT
			id, captured_at, start_at, duration, stuck, completed,
			username, thread_names, spans
		FROM %s
		WHERE captured_at >= ? AND captured_at <= ?
		ORDER BY captured_at ASC, id ASC
	`, r.table)

	start := time.Now()
	var traces []domain.StoredTrace
	if err := r.db.Select(ctx, &traces, query, fromMillis, toMillis); err != nil {
		metrics.RecordDBError("clickhouse", "read_stored_traces")
		return nil, fmt.Errorf("failed to read stored traces: %w", err)
	}
	metrics.RecordDBQuery("clickhouse", "read_stored_traces", time.Since(start), len(traces))

	return traces, nil
}

// ReadSummaries returns capture time and duration for each trace in [fromMillis, toMillis]
func (r *StoredTraceRepository) ReadSummaries(ctx context.Context, fromMillis, toMillis int64) ([]domain.TraceSummary, error) {
	query := fmt.Sprintf(`
		SELECT captured_at, duration
		FROM %s
		WHERE captured_at >= ? AND captured_at <= ?
		ORDER BY captured_at ASC, id ASC
	`, r.table)

	start := time.Now()
	var summaries []domain.TraceSummary
	if err := r.db.Select(ctx, &summaries, query, fromMillis, toMillis); err != nil {
		metrics.RecordDBError("clickhouse", "read_summaries")
		return nil, fmt.Errorf("failed to read trace summaries: %w", err)
	}
	metrics.RecordDBQuery("clickhouse", "read_summaries", time.Since(start), len(summaries))

	return summaries, nil
}

// Ping checks that ClickHouse is reachable
func (r *StoredTraceRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}
