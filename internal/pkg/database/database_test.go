package database

import (
	"context"
	"net"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenttrace/traceview/internal/config"
	"github.com/agenttrace/traceview/internal/pkg/logger"
)

func TestMain(m *testing.M) {
	_ = logger.Init(logger.Config{
		Level:  "error",
		Format: "console",
	})
	os.Exit(m.Run())
}

func TestTruncateSQL(t *testing.T) {
	tests := []struct {
		name     string
		sql      string
		maxLen   int
		expected string
	}{
		{"short SQL unchanged", "SELECT 1", 100, "SELECT 1"},
		{"exactly at max length", "SELECT id FROM t", 16, "SELECT id FROM t"},
		{"truncated with ellipsis", "SELECT * FROM stored_traces WHERE captured_at >= $1", 27, "SELECT * FROM stored_traces..."},
		{"empty string", "", 10, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, truncateSQL(tt.sql, tt.maxLen))
		})
	}
}

func TestQueryTracer_StoresStartAndSQL(t *testing.T) {
	tracer := &queryTracer{}

	ctx := tracer.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{SQL: "SELECT 1"})

	trace, ok := ctx.Value(queryTraceKey{}).(queryTrace)
	assert.True(t, ok)
	assert.False(t, trace.start.IsZero())
	assert.Equal(t, "SELECT 1", trace.sql)

	// end without panicking, with and without start data
	tracer.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{})
	tracer.TraceQueryEnd(context.Background(), nil, pgx.TraceQueryEndData{})
}

func TestClickHouseOptions(t *testing.T) {
	opts := clickHouseOptions(config.ClickHouseConfig{
		Host:             "ch",
		Port:             9000,
		Database:         "traceview",
		MaxOpenConns:     8,
		MaxExecutionTime: 90 * time.Second,
	})

	assert.Equal(t, []string{"ch:9000"}, opts.Addr)
	assert.Equal(t, "traceview", opts.Auth.Database)
	assert.Equal(t, 8, opts.MaxOpenConns)
	assert.Equal(t, 4, opts.MaxIdleConns)
	assert.Equal(t, 90, opts.Settings["max_execution_time"])

	defaults := clickHouseOptions(config.ClickHouseConfig{Host: "ch", Port: 9000})
	assert.Equal(t, 10, defaults.MaxOpenConns)
	assert.NotContains(t, defaults.Settings, "max_execution_time")
}

func TestNilConnections(t *testing.T) {
	assert.NoError(t, (&ClickHouseDB{}).Close())
	assert.Error(t, (&ClickHouseDB{}).Ping(context.Background()))
	assert.Error(t, (&PostgresDB{}).Ping(context.Background()))
	assert.NoError(t, (&SQLiteDB{}).Close())
	(&PostgresDB{}).Close()
}

func TestIsMemoryDSN(t *testing.T) {
	assert.True(t, isMemoryDSN(":memory:"))
	assert.True(t, isMemoryDSN("file:traces?mode=memory&cache=shared"))
	assert.False(t, isMemoryDSN("/var/lib/traceview/traces.db"))
}

func TestNewSQLite_Memory(t *testing.T) {
	db, err := NewSQLite(context.Background(), config.SQLiteConfig{Path: ":memory:"})
	require.NoError(t, err)
	defer db.Close()

	assert.NoError(t, db.Ping(context.Background()))
	assert.Equal(t, 1, db.DB.Stats().MaxOpenConnections)
}

func testRedis(t *testing.T) *RedisDB {
	t.Helper()
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	host, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	rdb, err := NewRedis(context.Background(), config.RedisConfig{Host: host, Port: port})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestRateLimit_Redis(t *testing.T) {
	rdb := testRedis(t)
	ctx := context.Background()
	key := "traceview-test:rl:" + strconv.FormatInt(time.Now().UnixNano(), 10)
	t.Cleanup(func() { rdb.Client.Del(ctx, key) })

	var allowed []bool
	var remaining []int64
	for i := 0; i < 3; i++ {
		ok, left, err := rdb.RateLimit(ctx, key, 2, time.Minute)
		require.NoError(t, err)
		allowed = append(allowed, ok)
		remaining = append(remaining, left)
	}

	assert.Equal(t, []bool{true, true, false}, allowed)
	assert.Equal(t, []int64{1, 0, 0}, remaining)

	ttl, err := rdb.Client.PTTL(ctx, key).Result()
	require.NoError(t, err)
	assert.True(t, ttl > 0 && ttl <= time.Minute)
}

func TestCache_Redis(t *testing.T) {
	rdb := testRedis(t)
	ctx := context.Background()

	cache := NewCache(rdb, "traceview-test:", time.Minute)
	key := "window:" + strconv.FormatInt(time.Now().UnixNano(), 10)
	defer cache.Delete(ctx, key)

	_, ok := cache.Get(ctx, key)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, key, []byte(`{"start":1,"end":2,"traces":[]}`)))
	body, ok := cache.Get(ctx, key)
	assert.True(t, ok)
	assert.Equal(t, `{"start":1,"end":2,"traces":[]}`, string(body))
}

