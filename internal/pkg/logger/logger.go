// Package logger owns the process wide zap logger. Components that are
// constructed with a logger use that one; package level helpers exist for
// infrastructure code that runs before any component is built.
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/agenttrace/traceview/internal/domain"
)

// Log is the global logger. It discards everything until Init is called.
var Log = zap.NewNop()

// Config holds logger configuration
type Config struct {
	// Level is a zap level name. Unknown names fall back to info.
	Level string
	// Format is "json" or "console"
	Format string
	// Output defaults to stdout
	Output zapcore.WriteSyncer
}

// New builds a logger without touching the global one
func New(cfg Config) *zap.Logger {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	out := cfg.Output
	if out == nil {
		out = zapcore.Lock(os.Stdout)
	}

	core := zapcore.NewCore(newEncoder(cfg.Format), out, level)
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
}

func newEncoder(format string) zapcore.Encoder {
	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "timestamp"
	ec.EncodeTime = zapcore.ISO8601TimeEncoder

	if format == "console" {
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return zapcore.NewConsoleEncoder(ec)
	}
	ec.EncodeLevel = zapcore.LowercaseLevelEncoder
	return zapcore.NewJSONEncoder(ec)
}

// Init replaces the global logger and returns it
func Init(cfg Config) *zap.Logger {
	Log = New(cfg)
	return Log
}

// Sync flushes any buffered log entries
func Sync() error {
	return Log.Sync()
}

// WithRequestID returns the global logger tagged with a request ID
func WithRequestID(requestID string) *zap.Logger {
	return Log.With(zap.String("request_id", requestID))
}

// WindowFields describes a resolved window
func WindowFields(rng domain.ResolvedRange) []zap.Field {
	return []zap.Field{
		zap.Int64("from", rng.From),
		zap.Int64("to", rng.To),
		zap.Bool("to_defaulted", rng.ToWasDefaulted),
	}
}

// Info logs on the global logger
func Info(msg string, fields ...zap.Field) {
	Log.Info(msg, fields...)
}

// Warn logs on the global logger
func Warn(msg string, fields ...zap.Field) {
	Log.Warn(msg, fields...)
}
