package config

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig
	Store      StoreConfig
	ClickHouse ClickHouseConfig
	Postgres   PostgresConfig
	SQLite     SQLiteConfig
	Redis      RedisConfig
	MinIO      MinIOConfig
	RateLimit  RateLimitConfig
	Worker     WorkerConfig
	Log        LogConfig
	Sentry     SentryConfig
	Query      QueryConfig
	Summary    SummaryConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port" validate:"min=1,max=65535"`
	Env  string `mapstructure:"env" validate:"oneof=development staging production test"`
	// CORSOrigins lists browser origins allowed to read responses. "*" allows
	// any, "*.example.com" allows subdomains.
	CORSOrigins []string `mapstructure:"cors_origins" validate:"dive,required"`
}

// StoreConfig selects the trace store backend
type StoreConfig struct {
	Driver string `mapstructure:"driver" validate:"store_driver"`
	// CircuitFailures is the number of consecutive lookup failures that opens the circuit
	CircuitFailures int           `mapstructure:"circuit_failures" validate:"min=1"`
	CircuitTimeout  time.Duration `mapstructure:"circuit_timeout"`
}

// ClickHouseConfig holds ClickHouse configuration
type ClickHouseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	Table    string `mapstructure:"table"`
	// MaxOpenConns bounds concurrent window reads
	MaxOpenConns     int           `mapstructure:"max_open_conns" validate:"min=0"`
	MaxExecutionTime time.Duration `mapstructure:"max_execution_time"`
}

// PostgresConfig holds PostgreSQL configuration
type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
	// StatementTimeout is applied server side to every query
	StatementTimeout time.Duration `mapstructure:"statement_timeout"`
}

// DSN returns the PostgreSQL connection string
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=%s",
		c.User, c.Password, net.JoinHostPort(c.Host, strconv.Itoa(c.Port)), c.Database, c.SSLMode)
}

// SQLiteConfig holds the embedded store configuration
type SQLiteConfig struct {
	// Path is a database file path, or ":memory:"
	Path    string `mapstructure:"path"`
	Migrate bool   `mapstructure:"migrate"`
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address
func (c RedisConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// MinIOConfig holds MinIO configuration
type MinIOConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerSecond int  `mapstructure:"requests_per_second" validate:"min=0"`
	Burst             int  `mapstructure:"burst" validate:"min=0"`
}

// WorkerConfig holds background worker configuration
type WorkerConfig struct {
	Concurrency   int           `mapstructure:"concurrency" validate:"min=1"`
	QueueDefault  string        `mapstructure:"queue_default"`
	ExportTimeout time.Duration `mapstructure:"export_timeout"`
	ExportRetries int           `mapstructure:"export_retries" validate:"min=0"`
	// ExportCompression is "gzip" or "none"
	ExportCompression string `mapstructure:"export_compression" validate:"compression"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
}

// SentryConfig holds error reporting configuration
type SentryConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	DSN              string  `mapstructure:"dsn"`
	Environment      string  `mapstructure:"environment"`
	Release          string  `mapstructure:"release"`
	Debug            bool    `mapstructure:"debug"`
	SampleRate       float64 `mapstructure:"sample_rate" validate:"min=0,max=1"`
	TracesSampleRate float64 `mapstructure:"traces_sample_rate" validate:"min=0,max=1"`
}

// QueryConfig holds trace window query configuration
type QueryConfig struct {
	// StrictFragments validates stored JSON fragments before composing
	StrictFragments     bool          `mapstructure:"strict_fragments"`
	FlushThresholdBytes int           `mapstructure:"flush_threshold_bytes" validate:"min=0"`
	CacheClosedWindows  bool          `mapstructure:"cache_closed_windows"`
	CacheTTL            time.Duration `mapstructure:"cache_ttl"`
	LookupTimeout       time.Duration `mapstructure:"lookup_timeout"`
}

// SummaryConfig holds summaries endpoint configuration
type SummaryConfig struct {
	Percentiles         []float64 `mapstructure:"percentiles" validate:"dive,gt=0,lte=100"`
	SlowThresholdMillis float64   `mapstructure:"slow_threshold_millis" validate:"gte=0"`
}

// IsDevelopment returns true if running in development mode
func (c Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// IsProduction returns true if running in production mode
func (c Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// CacheEnabled reports whether closed windows are cached in Redis
func (c Config) CacheEnabled() bool {
	return c.Redis.Enabled && c.Query.CacheClosedWindows && c.Query.CacheTTL > 0
}
