package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggerConfig configures the access log
type LoggerConfig struct {
	Logger *zap.Logger
	Skip   func(*fiber.Ctx) bool
	// SlowThreshold promotes successful requests slower than this to warn.
	// Zero disables it.
	SlowThreshold time.Duration
}

// DefaultLoggerConfig returns default logger config
func DefaultLoggerConfig(logger *zap.Logger) LoggerConfig {
	return LoggerConfig{
		Logger:        logger,
		Skip:          HealthSkipper,
		SlowThreshold: 5 * time.Second,
	}
}

// LoggerMiddleware writes one access log entry per request
type LoggerMiddleware struct {
	config LoggerConfig
}

// NewLoggerMiddleware creates a new logger middleware
func NewLoggerMiddleware(config LoggerConfig) *LoggerMiddleware {
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	return &LoggerMiddleware{
		config: config,
	}
}

// Handler returns the logger handler. Streamed bodies are still being written
// when the entry is logged, so latency covers lookup and headers only.
func (m *LoggerMiddleware) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if m.config.Skip != nil && m.config.Skip(c) {
			return c.Next()
		}

		start := time.Now()
		err := c.Next()
		latency := time.Since(start)

		status := c.Response().StatusCode()
		if ce := m.config.Logger.Check(m.level(status, latency), "request completed"); ce != nil {
			ce.Write(accessFields(c, status, latency, err)...)
		}

		return err
	}
}

func (m *LoggerMiddleware) level(status int, latency time.Duration) zapcore.Level {
	switch {
	case status >= fiber.StatusInternalServerError:
		return zapcore.ErrorLevel
	case status >= fiber.StatusBadRequest:
		return zapcore.WarnLevel
	case m.config.SlowThreshold > 0 && latency > m.config.SlowThreshold:
		return zapcore.WarnLevel
	}
	return zapcore.InfoLevel
}

// accessFields copies every request-backed string; fasthttp reuses the
// buffers once the handler returns and cores may retain fields.
func accessFields(c *fiber.Ctx, status int, latency time.Duration, err error) []zap.Field {
	fields := make([]zap.Field, 0, 12)
	fields = append(fields,
		zap.String("request_id", GetRequestID(c)),
		zap.String("method", utils.CopyString(c.Method())),
		zap.String("path", utils.CopyString(c.Path())),
		zap.String("route", c.Route().Path),
		zap.String("query", string(c.Request().URI().QueryString())),
		zap.Int("status", status),
		zap.Duration("latency", latency),
		zap.String("ip", c.IP()),
	)
	if ua := c.Get(fiber.HeaderUserAgent); ua != "" {
		fields = append(fields, zap.String("user_agent", utils.CopyString(ua)))
	}
	if c.Response().IsBodyStream() {
		fields = append(fields, zap.Bool("streamed", true))
	}
	if n, convErr := strconv.Atoi(c.GetRespHeader("X-Trace-Count")); convErr == nil {
		fields = append(fields, zap.Int("traces", n))
	}
	if cache := c.GetRespHeader("X-Cache"); cache != "" {
		fields = append(fields, zap.String("cache", utils.CopyString(cache)))
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	return fields
}

// HealthSkipper skips probe and scrape endpoints
func HealthSkipper(c *fiber.Ctx) bool {
	switch c.Path() {
	case "/health", "/healthz", "/readyz", "/livez", "/metrics":
		return true
	}
	return false
}
