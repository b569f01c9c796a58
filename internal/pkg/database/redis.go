package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/agenttrace/traceview/internal/config"
	"github.com/agenttrace/traceview/internal/pkg/logger"
	"github.com/agenttrace/traceview/internal/pkg/metrics"
)

// RedisDB wraps the client shared by the window cache and the rate limiter
type RedisDB struct {
	Client *redis.Client
}

// NewRedis connects and pings. Pool sizes are sized for cache reads on the
// request path, not for bulk work.
func NewRedis(ctx context.Context, cfg config.RedisConfig) (*RedisDB, error) {
	client := redis.NewClient(&redis.Options{
		Addr:            cfg.Addr(),
		Password:        cfg.Password,
		DB:              cfg.DB,
		MaxRetries:      3,
		MinRetryBackoff: 8 * time.Millisecond,
		MaxRetryBackoff: 512 * time.Millisecond,
		DialTimeout:     5 * time.Second,
		ReadTimeout:     3 * time.Second,
		WriteTimeout:    3 * time.Second,
		PoolSize:        50,
		MinIdleConns:    5,
		PoolTimeout:     4 * time.Second,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	logger.Info("connected to Redis",
		zap.String("addr", cfg.Addr()),
		zap.Int("db", cfg.DB),
	)

	return &RedisDB{Client: client}, nil
}

// Close closes the Redis connection
func (db *RedisDB) Close() error {
	if db.Client != nil {
		return db.Client.Close()
	}
	return nil
}

// Ping checks the connection
func (db *RedisDB) Ping(ctx context.Context) error {
	return db.Client.Ping(ctx).Err()
}

// fixedWindow counts a hit and starts the window on the first one, so steady
// traffic cannot keep extending it. Returns the count and the window's
// remaining milliseconds.
var fixedWindow = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

// RateLimit counts a hit against key in a fixed window and reports whether
// it is allowed, along with the remaining budget
func (db *RedisDB) RateLimit(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error) {
	count, err := fixedWindow.Run(ctx, db.Client, []string{key}, window.Milliseconds()).Int64()
	if err != nil {
		return false, 0, fmt.Errorf("rate limit %s: %w", key, err)
	}
	if count > limit {
		return false, 0, nil
	}
	return true, limit - count, nil
}

// Cache stores byte values under a key prefix with a fixed TTL
type Cache struct {
	redis  *RedisDB
	prefix string
	ttl    time.Duration
}

// NewCache creates a new cache
func NewCache(redis *RedisDB, prefix string, ttl time.Duration) *Cache {
	return &Cache{
		redis:  redis,
		prefix: prefix,
		ttl:    ttl,
	}
}

// Get returns a cached value. Redis errors are logged and reported as a miss.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	start := time.Now()
	val, err := c.redis.Client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.RecordDBQuery("redis", "cache_get", time.Since(start), 0)
		return nil, false
	}
	if err != nil {
		metrics.RecordDBError("redis", "cache_get")
		logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	metrics.RecordDBQuery("redis", "cache_get", time.Since(start), 1)
	return val, true
}

// Set stores a value
func (c *Cache) Set(ctx context.Context, key string, value []byte) error {
	start := time.Now()
	if err := c.redis.Client.Set(ctx, c.prefix+key, value, c.ttl).Err(); err != nil {
		metrics.RecordDBError("redis", "cache_set")
		return err
	}
	metrics.RecordDBQuery("redis", "cache_set", time.Since(start), 0)
	return nil
}

// Delete removes a cached value
func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.redis.Client.Del(ctx, c.prefix+key).Err()
}
