package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/agenttrace/traceview/internal/domain"
	"github.com/agenttrace/traceview/internal/pkg/database"
	"github.com/agenttrace/traceview/internal/pkg/metrics"
)

// Schema creates the stored traces table. Fragments are kept as text so
// they come back byte-for-byte as written.
const Schema = `
	CREATE TABLE IF NOT EXISTS stored_traces (
		id           TEXT PRIMARY KEY,
		captured_at  BIGINT NOT NULL,
		start_at     BIGINT NOT NULL,
		duration     DOUBLE PRECISION NOT NULL,
		stuck        BOOLEAN NOT NULL DEFAULT FALSE,
		completed    BOOLEAN NOT NULL DEFAULT FALSE,
		username     TEXT,
		thread_names TEXT NOT NULL,
		spans        TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_stored_traces_captured ON stored_traces (captured_at, id);
`

// StoredTraceRepository reads stored traces from PostgreSQL
type StoredTraceRepository struct {
	db *database.PostgresDB
}

// NewStoredTraceRepository creates a new stored trace repository
func NewStoredTraceRepository(db *database.PostgresDB) *StoredTraceRepository {
	return &StoredTraceRepository{db: db}
}

// ReadStoredTraces returns the traces captured within [fromMillis, toMillis]
func (r *StoredTraceRepository) ReadStoredTraces(ctx context.Context, fromMillis, toMillis int64) ([]domain.StoredTrace, error) {
	query := `
		SELECT id, captured_at, start_at, duration, stuck, completed,
		       username, thread_names, spans
		FROM stored_traces
		WHERE captured_at >= $1 AND captured_at <= $2
		ORDER BY captured_at ASC, id ASC
	`

	start := time.Now()
	rows, err := r.db.Pool.Query(ctx, query, fromMillis, toMillis)
	if err != nil {
		metrics.RecordDBError("postgres", "read_stored_traces")
		return nil, fmt.Errorf("failed to read stored traces: %w", err)
	}

	traces, err := pgx.CollectRows(rows, pgx.RowToStructByName[domain.StoredTrace])
	if err != nil {
		metrics.RecordDBError("postgres", "read_stored_traces")
		return nil, fmt.Errorf("failed to scan stored traces: %w", err)
	}
	metrics.RecordDBQuery("postgres", "read_stored_traces", time.Since(start), len(traces))

	return traces, nil
}

// ReadSummaries returns capture time and duration for each trace in [fromMillis, toMillis]
func (r *StoredTraceRepository) ReadSummaries(ctx context.Context, fromMillis, toMillis int64) ([]domain.TraceSummary, error) {
	query := `
		SELECT captured_at, duration
		FROM stored_traces
		WHERE captured_at >= $1 AND captured_at <= $2
		ORDER BY captured_at ASC, id ASC
	`

	start := time.Now()
	rows, err := r.db.Pool.Query(ctx, query, fromMillis, toMillis)
	if err != nil {
		metrics.RecordDBError("postgres", "read_summaries")
		return nil, fmt.Errorf("failed to read trace summaries: %w", err)
	}

	summaries, err := pgx.CollectRows(rows, pgx.RowToStructByName[domain.TraceSummary])
	if err != nil {
		metrics.RecordDBError("postgres", "read_summaries")
		return nil, fmt.Errorf("failed to scan trace summaries: %w", err)
	}
	metrics.RecordDBQuery("postgres", "read_summaries", time.Since(start), len(summaries))

	return summaries, nil
}

// Ping checks that PostgreSQL is reachable
func (r *StoredTraceRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}
