// Package sqlite implements the embedded trace store.
//
// It backs local development and single-node deployments, and is the only
// store that can be written to through this service, so a window can be
// seeded without the capture pipeline.
package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/agenttrace/traceview/internal/domain"
	"github.com/agenttrace/traceview/internal/pkg/database"
	"github.com/agenttrace/traceview/internal/pkg/metrics"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS stored_traces (
		id           TEXT PRIMARY KEY,
		captured_at  INTEGER NOT NULL,
		start_at     INTEGER NOT NULL,
		duration     REAL NOT NULL,
		stuck        BOOLEAN NOT NULL DEFAULT 0,
		completed    BOOLEAN NOT NULL DEFAULT 0,
		username     TEXT,
		thread_names TEXT NOT NULL,
		spans        TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_stored_traces_captured ON stored_traces(captured_at, id)`,
}

// StoredTraceRepository reads and seeds stored traces in SQLite
type StoredTraceRepository struct {
	db *database.SQLiteDB
}

// NewStoredTraceRepository creates a new stored trace repository
func NewStoredTraceRepository(db *database.SQLiteDB) *StoredTraceRepository {
	return &StoredTraceRepository{db: db}
}

// Migrate creates the schema if it does not exist
func (r *StoredTraceRepository) Migrate(ctx context.Context) error {
	for _, m := range migrations {
		if _, err := r.db.DB.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("failed to migrate sqlite store: %w", err)
		}
	}
	return nil
}

// Insert stores traces, replacing any with the same id
func (r *StoredTraceRepository) Insert(ctx context.Context, traces ...domain.StoredTrace) error {
	if len(traces) == 0 {
		return nil
	}

	tx, err := r.db.DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareNamedContext(ctx, `
		INSERT OR REPLACE INTO stored_traces
			(id, captured_at, start_at, duration, stuck, completed, username, thread_names, spans)
		VALUES
			(:id, :captured_at, :start_at, :duration, :stuck, :completed, :username, :thread_names, :spans)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i := range traces {
		if _, err := stmt.ExecContext(ctx, &traces[i]); err != nil {
			return fmt.Errorf("failed to insert trace %s: %w", traces[i].ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit traces: %w", err)
	}
	return nil
}

// ReadStoredTraces returns the traces captured within [fromMillis, toMillis]
func (r *StoredTraceRepository) ReadStoredTraces(ctx context.Context, fromMillis, toMillis int64) ([]domain.StoredTrace, error) {
	query := `
		SELECT id, captured_at, start_at, duration, stuck, completed,
		       username, thread_names, spans
		FROM stored_traces
		WHERE captured_at >= ? AND captured_at <= ?
		ORDER BY captured_at ASC, id ASC
	`

	start := time.Now()
	var traces []domain.StoredTrace
	if err := r.db.DB.SelectContext(ctx, &traces, query, fromMillis, toMillis); err != nil {
		metrics.RecordDBError("sqlite", "read_stored_traces")
		return nil, fmt.Errorf("failed to read stored traces: %w", err)
	}
	metrics.RecordDBQuery("sqlite", "read_stored_traces", time.Since(start), len(traces))

	return traces, nil
}

// ReadSummaries returns capture time and duration for each trace in [fromMillis, toMillis]
func (r *StoredTraceRepository) ReadSummaries(ctx context.Context, fromMillis, toMillis int64) ([]domain.TraceSummary, error) {
	query := `
		SELECT captured_at, duration
		FROM stored_traces
		WHERE captured_at >= ? AND captured_at <= ?
		ORDER BY captured_at ASC, id ASC
	`

	start := time.Now()
	var summaries []domain.TraceSummary
	if err := r.db.DB.SelectContext(ctx, &summaries, query, fromMillis, toMillis); err != nil {
		metrics.RecordDBError("sqlite", "read_summaries")
		return nil, fmt.Errorf("failed to read trace summaries: %w", err)
	}
	metrics.RecordDBQuery("sqlite", "read_summaries", time.Since(start), len(summaries))

	return summaries, nil
}

// Ping checks the database
func (r *StoredTraceRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}
