package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/agenttrace/traceview/internal/config"
	"github.com/agenttrace/traceview/internal/pkg/logger"
)

// SQLiteDB wraps an embedded SQLite database
type SQLiteDB struct {
	DB *sqlx.DB
}

// NewSQLite opens a SQLite database
func NewSQLite(ctx context.Context, cfg config.SQLiteConfig) (*SQLiteDB, error) {
	db, err := sqlx.Open("sqlite3", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// Every connection to an in-memory database sees its own empty database
	if isMemoryDSN(cfg.Path) {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite: %w", err)
	}

	logger.Info("opened SQLite database", zap.String("path", cfg.Path))

	return &SQLiteDB{DB: db}, nil
}

// Close closes the database
func (db *SQLiteDB) Close() error {
	if db.DB != nil {
		return db.DB.Close()
	}
	return nil
}

// Ping checks the database
func (db *SQLiteDB) Ping(ctx context.Context) error {
	if db.DB == nil {
		return fmt.Errorf("sqlite database not initialized")
	}
	return db.DB.PingContext(ctx)
}

func isMemoryDSN(dsn string) bool {
	return dsn == ":memory:" || strings.Contains(dsn, "mode=memory")
}
