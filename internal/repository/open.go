package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/agenttrace/traceview/internal/config"
	"github.com/agenttrace/traceview/internal/domain"
	"github.com/agenttrace/traceview/internal/pkg/database"
	chrepo "github.com/agenttrace/traceview/internal/repository/clickhouse"
	pgrepo "github.com/agenttrace/traceview/internal/repository/postgres"
	sqliterepo "github.com/agenttrace/traceview/internal/repository/sqlite"
)

// Open connects to the configured trace store backend and wraps it in a
// GuardedStore. The returned func releases the connection.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*GuardedStore, func(), error) {
	var (
		store TraceStore
		close func()
	)

	driver := domain.StoreDriver(cfg.Store.Driver)
	switch driver {
	case domain.StoreDriverClickHouse:
		db, err := database.NewClickHouse(ctx, cfg.ClickHouse)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize ClickHouse: %w", err)
		}
		store = chrepo.NewStoredTraceRepository(db, cfg.ClickHouse.Table)
		close = func() { _ = db.Close() }

	case domain.StoreDriverPostgres:
		db, err := database.NewPostgres(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
		}
		store = pgrepo.NewStoredTraceRepository(db)
		close = db.Close

	case domain.StoreDriverSQLite:
		db, err := database.NewSQLite(ctx, cfg.SQLite)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize SQLite: %w", err)
		}
		repo := sqliterepo.NewStoredTraceRepository(db)
		if cfg.SQLite.Migrate {
			if err := repo.Migrate(ctx); err != nil {
				_ = db.Close()
				return nil, nil, fmt.Errorf("failed to migrate SQLite: %w", err)
			}
		}
		store = repo
		close = func() { _ = db.Close() }

	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	logger.Info("trace store opened", zap.String("driver", string(driver)))

	guarded := NewGuardedStore(store, GuardConfig{
		Name:          string(driver),
		MaxFailures:   cfg.Store.CircuitFailures,
		OpenTimeout:   cfg.Store.CircuitTimeout,
		LookupTimeout: cfg.Query.LookupTimeout,
	}, logger)
	return guarded, close, nil
}
