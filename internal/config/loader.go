package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/agenttrace/traceview/internal/validator"
)

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/traceview")

	// Ignore error if config file not found
	_ = v.ReadInConfig()

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Server
	cfg.Server.Host = v.GetString("server_host")
	cfg.Server.Port = v.GetInt("server_port")
	cfg.Server.Env = v.GetString("server_env")
	cfg.Server.CORSOrigins = splitList(v.GetString("server_cors_origins"))

	// Store
	cfg.Store.Driver = v.GetString("store_driver")
	cfg.Store.CircuitFailures = v.GetInt("store_circuit_failures")
	cfg.Store.CircuitTimeout = v.GetDuration("store_circuit_timeout")

	// ClickHouse
	cfg.ClickHouse.Host = v.GetString("clickhouse_host")
	cfg.ClickHouse.Port = v.GetInt("clickhouse_port")
	cfg.ClickHouse.User = v.GetString("clickhouse_user")
	cfg.ClickHouse.Password = v.GetString("clickhouse_password")
	cfg.ClickHouse.Database = v.GetString("clickhouse_db")
	cfg.ClickHouse.Table = v.GetString("clickhouse_table")
	cfg.ClickHouse.MaxOpenConns = v.GetInt("clickhouse_max_open_conns")
	cfg.ClickHouse.MaxExecutionTime = v.GetDuration("clickhouse_max_execution_time")

	// PostgreSQL
	cfg.Postgres.Host = v.GetString("postgres_host")
	cfg.Postgres.Port = v.GetInt("postgres_port")
	cfg.Postgres.User = v.GetString("postgres_user")
	cfg.Postgres.Password = v.GetString("postgres_password")
	cfg.Postgres.Database = v.GetString("postgres_db")
	cfg.Postgres.SSLMode = v.GetString("postgres_ssl_mode")
	cfg.Postgres.MaxConns = int32(v.GetInt("postgres_max_conns"))
	cfg.Postgres.MinConns = int32(v.GetInt("postgres_min_conns"))
	cfg.Postgres.StatementTimeout = v.GetDuration("postgres_statement_timeout")

	// SQLite
	cfg.SQLite.Path = v.GetString("sqlite_path")
	cfg.SQLite.Migrate = v.GetBool("sqlite_migrate")

	// Redis
	cfg.Redis.Enabled = v.GetBool("redis_enabled")
	cfg.Redis.Host = v.GetString("redis_host")
	cfg.Redis.Port = v.GetInt("redis_port")
	cfg.Redis.Password = v.GetString("redis_password")
	cfg.Redis.DB = v.GetInt("redis_db")

	// MinIO
	cfg.MinIO.Endpoint = v.GetString("minio_endpoint")
	cfg.MinIO.AccessKey = v.GetString("minio_access_key")
	cfg.MinIO.SecretKey = v.GetString("minio_secret_key")
	cfg.MinIO.UseSSL = v.GetBool("minio_use_ssl")
	cfg.MinIO.Bucket = v.GetString("minio_bucket")

	// Rate Limiting
	cfg.RateLimit.Enabled = v.GetBool("rate_limit_enabled")
	cfg.RateLimit.RequestsPerSecond = v.GetInt("rate_limit_requests_per_second")
	cfg.RateLimit.Burst = v.GetInt("rate_limit_burst")

	// Worker
	cfg.Worker.Concurrency = v.GetInt("worker_concurrency")
	cfg.Worker.QueueDefault = v.GetString("worker_queue_default")
	cfg.Worker.ExportTimeout = v.GetDuration("worker_export_timeout")
	cfg.Worker.ExportRetries = v.GetInt("worker_export_retries")
	cfg.Worker.ExportCompression = v.GetString("worker_export_compression")

	// Logging
	cfg.Log.Level = v.GetString("log_level")
	cfg.Log.Format = v.GetString("log_format")

	// Sentry
	cfg.Sentry.Enabled = v.GetBool("sentry_enabled")
	cfg.Sentry.DSN = v.GetString("sentry_dsn")
	cfg.Sentry.Environment = v.GetString("sentry_environment")
	cfg.Sentry.Release = v.GetString("sentry_release")
	cfg.Sentry.Debug = v.GetBool("sentry_debug")
	cfg.Sentry.SampleRate = v.GetFloat64("sentry_sample_rate")
	cfg.Sentry.TracesSampleRate = v.GetFloat64("sentry_traces_sample_rate")

	// Query
	cfg.Query.StrictFragments = v.GetBool("query_strict_fragments")
	cfg.Query.FlushThresholdBytes = v.GetInt("query_flush_threshold_bytes")
	cfg.Query.CacheClosedWindows = v.GetBool("query_cache_closed_windows")
	cfg.Query.CacheTTL = v.GetDuration("query_cache_ttl")
	cfg.Query.LookupTimeout = v.GetDuration("query_lookup_timeout")

	// Summary
	percentiles, err := parsePercentiles(v.GetString("summary_percentiles"))
	if err != nil {
		return nil, err
	}
	cfg.Summary.Percentiles = percentiles
	cfg.Summary.SlowThresholdMillis = v.GetFloat64("summary_slow_threshold_millis")

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server_host", "0.0.0.0")
	v.SetDefault("server_port", 8080)
	v.SetDefault("server_env", "development")
	v.SetDefault("server_cors_origins", "*")

	// Store defaults
	v.SetDefault("store_driver", "clickhouse")
	v.SetDefault("store_circuit_failures", 5)
	v.SetDefault("store_circuit_timeout", 30*time.Second)

	// ClickHouse defaults
	v.SetDefault("clickhouse_host", "localhost")
	v.SetDefault("clickhouse_port", 9000)
	v.SetDefault("clickhouse_user", "traceview")
	v.SetDefault("clickhouse_password", "traceview")
	v.SetDefault("clickhouse_db", "traceview")
	v.SetDefault("clickhouse_table", "stored_traces")
	v.SetDefault("clickhouse_max_open_conns", 10)
	v.SetDefault("clickhouse_max_execution_time", "60s")

	// PostgreSQL defaults
	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "traceview")
	v.SetDefault("postgres_password", "traceview")
	v.SetDefault("postgres_db", "traceview")
	v.SetDefault("postgres_ssl_mode", "disable")
	v.SetDefault("postgres_max_conns", 25)
	v.SetDefault("postgres_min_conns", 2)
	v.SetDefault("postgres_statement_timeout", "30s")

	// SQLite defaults
	v.SetDefault("sqlite_path", "traceview.db")
	v.SetDefault("sqlite_migrate", true)

	// Redis defaults
	v.SetDefault("redis_enabled", false)
	v.SetDefault("redis_host", "localhost")
	v.SetDefault("redis_port", 6379)
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)

	// MinIO defaults
	v.SetDefault("minio_endpoint", "localhost:9002")
	v.SetDefault("minio_access_key", "traceview")
	v.SetDefault("minio_secret_key", "traceview123")
	v.SetDefault("minio_use_ssl", false)
	v.SetDefault("minio_bucket", "traceview-exports")

	// Rate limiting defaults
	v.SetDefault("rate_limit_enabled", false)
	v.SetDefault("rate_limit_requests_per_second", 50)
	v.SetDefault("rate_limit_burst", 100)

	// Worker defaults
	v.SetDefault("worker_concurrency", 4)
	v.SetDefault("worker_queue_default", "default")
	v.SetDefault("worker_export_timeout", 15*time.Minute)
	v.SetDefault("worker_export_retries", 3)
	v.SetDefault("worker_export_compression", "gzip")

	// Logging defaults
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")

	// Sentry defaults
	v.SetDefault("sentry_enabled", false)
	v.SetDefault("sentry_sample_rate", 1.0)
	v.SetDefault("sentry_traces_sample_rate", 0.0)

	// Query defaults
	v.SetDefault("query_strict_fragments", false)
	v.SetDefault("query_flush_threshold_bytes", 32*1024)
	v.SetDefault("query_cache_closed_windows", true)
	v.SetDefault("query_cache_ttl", 5*time.Minute)
	v.SetDefault("query_lookup_timeout", 30*time.Second)

	// Summary defaults
	v.SetDefault("summary_percentiles", "50,95,99")
	v.SetDefault("summary_slow_threshold_millis", 2000.0)
}

// parsePercentiles reads a comma separated list such as "50,95,99.9"
func parsePercentiles(raw string) ([]float64, error) {
	var out []float64
	for _, part := range splitList(raw) {
		p, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid summary percentile %q: %w", part, err)
		}
		out = append(out, p)
	}
	return out, nil
}

func validate(cfg *Config) error {
	if err := validator.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.Sentry.Enabled && cfg.Sentry.DSN == "" {
		return fmt.Errorf("invalid configuration: sentry_dsn is required when sentry is enabled")
	}
	if cfg.CacheEnabled() && cfg.Query.CacheTTL < time.Second {
		return fmt.Errorf("invalid configuration: query_cache_ttl must be at least 1s")
	}
	return nil
}

// splitList splits a comma separated setting, dropping blanks
func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
