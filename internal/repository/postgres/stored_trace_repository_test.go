package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenttrace/traceview/internal/config"
	"github.com/agenttrace/traceview/internal/domain"
	"github.com/agenttrace/traceview/internal/pkg/database"
)

// getTestDB returns a database connection for integration tests.
func getTestDB(t *testing.T) *database.PostgresDB {
	if os.Getenv("POSTGRES_TEST_HOST") == "" {
		t.Skip("Skipping integration test: POSTGRES_TEST_HOST not set")
		return nil
	}

	cfg := config.PostgresConfig{
		Host:     os.Getenv("POSTGRES_TEST_HOST"),
		Port:     5432,
		User:     os.Getenv("POSTGRES_TEST_USER"),
		Password: os.Getenv("POSTGRES_TEST_PASS"),
		Database: os.Getenv("POSTGRES_TEST_DB"),
		SSLMode:  "disable",
		MaxConns: 5,
		MinConns: 1,
	}
	if cfg.Database == "" {
		cfg.Database = "test_traceview"
	}
	if cfg.User == "" {
		cfg.User = "postgres"
	}

	db, err := database.NewPostgres(context.Background(), cfg)
	if err != nil {
		t.Skipf("Skipping integration test: failed to connect to PostgreSQL: %v", err)
		return nil
	}
	t.Cleanup(db.Close)

	_, err = db.Pool.Exec(context.Background(), Schema)
	require.NoError(t, err)
	return db
}

func cleanupTraces(t *testing.T, db *database.PostgresDB, ids ...string) {
	t.Cleanup(func() {
		for _, id := range ids {
			_, _ = db.Pool.Exec(context.Background(), "DELETE FROM stored_traces WHERE id = $1", id)
		}
	})
}

func insertTrace(t *testing.T, db *database.PostgresDB, tr domain.StoredTrace) {
	_, err := db.Pool.Exec(context.Background(), `
		INSERT INTO stored_traces (id, captured_at, start_at, duration, stuck, completed, username, thread_names, spans)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		tr.ID, tr.CapturedAt, tr.StartAt, tr.Duration, tr.Stuck, tr.Completed, tr.Username, tr.ThreadNames, tr.Spans,
	)
	require.NoError(t, err)
}

func TestStoredTraceRepository_ReadStoredTraces(t *testing.T) {
	db := getTestDB(t)
	repo := NewStoredTraceRepository(db)
	ctx := context.Background()
	cleanupTraces(t, db, "pg-a", "pg-b", "pg-c")
	user := "bob"
	base := int64(4_000_000_000_000)

	insertTrace(t, db, domain.StoredTrace{ID: "pg-b", CapturedAt: base + 10, Duration: 2, ThreadNames: `["w"]`, Spans: `[{"x": 1}]`})
	insertTrace(t, db, domain.StoredTrace{ID: "pg-a", CapturedAt: base + 10, Duration: 1, Username: &user, ThreadNames: `[]`, Spans: `[]`})
	insertTrace(t, db, domain.StoredTrace{ID: "pg-c", CapturedAt: base + 99, Duration: 3, ThreadNames: `[]`, Spans: `[]`})

	traces, err := repo.ReadStoredTraces(ctx, base, base+50)
	require.NoError(t, err)
	require.Len(t, traces, 2)

	assert.Equal(t, "pg-a", traces[0].ID)
	assert.Equal(t, "bob", *traces[0].Username)
	assert.Equal(t, "pg-b", traces[1].ID)
	assert.Equal(t, `[{"x": 1}]`, traces[1].Spans, "fragments are returned verbatim")
}

func TestStoredTraceRepository_ReadSummaries(t *testing.T) {
	db := getTestDB(t)
	repo := NewStoredTraceRepository(db)
	cleanupTraces(t, db, "pg-s1")
	base := int64(4_100_000_000_000)

	insertTrace(t, db, domain.StoredTrace{ID: "pg-s1", CapturedAt: base, Duration: 7.5, ThreadNames: `[]`, Spans: `[]`})

	summaries, err := repo.ReadSummaries(context.Background(), base, base)
	require.NoError(t, err)
	assert.Equal(t, []domain.TraceSummary{{CapturedAt: base, Duration: 7.5}}, summaries)
}
