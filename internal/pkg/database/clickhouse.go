package database

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"

	"github.com/agenttrace/traceview/internal/config"
	"github.com/agenttrace/traceview/internal/pkg/logger"
)

// ClickHouseDB wraps a ClickHouse connection
type ClickHouseDB struct {
	Conn driver.Conn
}

// clickHouseOptions maps the configuration onto driver options. Window reads
// return whole rows including the span fragments, so blocks are kept small.
func clickHouseOptions(cfg config.ClickHouseConfig) *clickhouse.Options {
	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 10
	}
	maxIdle := maxOpen / 2
	if maxIdle < 1 {
		maxIdle = 1
	}

	settings := clickhouse.Settings{}
	if cfg.MaxExecutionTime > 0 {
		settings["max_execution_time"] = int(cfg.MaxExecutionTime.Seconds())
	}

	return &clickhouse.Options{
		Addr: []string{net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		Settings: settings,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
		DialTimeout:      10 * time.Second,
		MaxOpenConns:     maxOpen,
		MaxIdleConns:     maxIdle,
		ConnMaxLifetime:  time.Hour,
		ConnOpenStrategy: clickhouse.ConnOpenInOrder,
		BlockBufferSize:  2,
	}
}

// NewClickHouse opens and pings a ClickHouse connection
func NewClickHouse(ctx context.Context, cfg config.ClickHouseConfig) (*ClickHouseDB, error) {
	conn, err := clickhouse.Open(clickHouseOptions(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open clickhouse connection: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}

	logger.Info("connected to ClickHouse",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database),
		zap.String("table", cfg.Table),
	)

	return &ClickHouseDB{Conn: conn}, nil
}

// Close closes the connection
func (db *ClickHouseDB) Close() error {
	if db.Conn != nil {
		return db.Conn.Close()
	}
	return nil
}

// Ping checks the connection
func (db *ClickHouseDB) Ping(ctx context.Context) error {
	if db.Conn == nil {
		return fmt.Errorf("clickhouse connection not initialized")
	}
	return db.Conn.Ping(ctx)
}

// Select runs a query and scans every row into dest
func (db *ClickHouseDB) Select(ctx context.Context, dest any, query string, args ...any) error {
	return db.Conn.Select(ctx, dest, query, args...)
}

// Exec runs a statement, used for schema setup
func (db *ClickHouseDB) Exec(ctx context.Context, query string, args ...any) error {
	return db.Conn.Exec(ctx, query, args...)
}
