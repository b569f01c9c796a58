package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/agenttrace/traceview/internal/config"
)

type fakeLimiter struct {
	hits   map[string]int64
	window time.Duration
	err    error
}

func (f *fakeLimiter) RateLimit(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error) {
	if f.err != nil {
		return false, 0, f.err
	}
	if f.hits == nil {
		f.hits = make(map[string]int64)
	}
	f.window = window
	f.hits[key]++
	if f.hits[key] > limit {
		return false, 0, nil
	}
	return true, limit - f.hits[key], nil
}

func okApp(handlers ...fiber.Handler) *fiber.App {
	app := fiber.New()
	for _, h := range handlers {
		app.Use(h)
	}
	app.Get("/v1/traces/window", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	return app
}

func TestRateLimitMiddleware(t *testing.T) {
	t.Run("limits after max requests", func(t *testing.T) {
		limiter := &fakeLimiter{}
		m := NewRateLimitMiddleware(limiter, zap.NewNop(), RateLimitConfig{Max: 2, Window: 2 * time.Second})
		app := okApp(m.Handler())

		var statuses []int
		for i := 0; i < 3; i++ {
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/v1/traces/window", nil))
			require.NoError(t, err)
			statuses = append(statuses, resp.StatusCode)
			if i == 2 {
				assert.Equal(t, "0", resp.Header.Get("X-RateLimit-Remaining"))
				assert.Equal(t, "2", resp.Header.Get("Retry-After"))
			}
		}

		assert.Equal(t, []int{200, 200, 429}, statuses)
		assert.Equal(t, 2*time.Second, limiter.window)
	})

	t.Run("skips health probes", func(t *testing.T) {
		limiter := &fakeLimiter{}
		m := NewRateLimitMiddleware(limiter, zap.NewNop(), RateLimitConfig{Max: 1, Skip: HealthSkipper})
		app := okApp(m.Handler())

		for i := 0; i < 3; i++ {
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, resp.StatusCode)
		}
		assert.Empty(t, limiter.hits)
	})

	t.Run("fails open when the limiter errors", func(t *testing.T) {
		m := NewRateLimitMiddleware(&fakeLimiter{err: errors.New("redis down")}, zap.NewNop(), RateLimitConfig{Max: 1})
		app := okApp(m.Handler())

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/v1/traces/window", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestBurstWindow(t *testing.T) {
	tests := []struct {
		rps, burst int
		wantMax    int
		wantWindow time.Duration
	}{
		{50, 100, 100, 2 * time.Second},
		{10, 10, 10, time.Second},
		{100, 10, 100, time.Second},
		{0, 5, 5, time.Second},
	}
	for _, tt := range tests {
		max, window := BurstWindow(tt.rps, tt.burst)
		assert.Equal(t, tt.wantMax, max)
		assert.Equal(t, tt.wantWindow, window)
	}
}

func TestCORSMiddleware(t *testing.T) {
	t.Run("preflight", func(t *testing.T) {
		app := okApp(NewCORSMiddleware(DefaultCORSConfig()).Handler())
		req := httptest.NewRequest(http.MethodOptions, "/v1/traces/window", nil)
		req.Header.Set("Origin", "https://ui.example.com")

		resp, err := app.Test(req)
		require.NoError(t, err)

		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "86400", resp.Header.Get("Access-Control-Max-Age"))
		assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "POST")
	})

	t.Run("wildcard subdomain", func(t *testing.T) {
		cfg := DefaultCORSConfig()
		cfg.AllowOrigins = []string{"*.example.com"}
		app := okApp(NewCORSMiddleware(cfg).Handler())

		req := httptest.NewRequest(http.MethodGet, "/v1/traces/window", nil)
		req.Header.Set("Origin", "https://ui.example.com")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, "https://ui.example.com", resp.Header.Get("Access-Control-Allow-Origin"))
		assert.Contains(t, resp.Header.Get("Access-Control-Expose-Headers"), "X-Cache")

		req = httptest.NewRequest(http.MethodGet, "/v1/traces/window", nil)
		req.Header.Set("Origin", "https://evil.test")
		resp, err = app.Test(req)
		require.NoError(t, err)
		assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
	})
}

func TestLoggerMiddleware(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	m := NewLoggerMiddleware(DefaultLoggerConfig(zap.New(core)))
	app := okApp(RequestID(), m.Handler())

	_, err := app.Test(httptest.NewRequest(http.MethodGet, "/v1/traces/window?from=-1000", nil))
	require.NoError(t, err)
	_, err = app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "request completed", entries[0].Message)
	assert.Equal(t, "/v1/traces/window", fields["path"])
	assert.Equal(t, "from=-1000", fields["query"])
	assert.Equal(t, int64(200), fields["status"])
	assert.NotEmpty(t, fields["request_id"])
}

func TestLoggerMiddleware_FieldsOutliveRequest(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	m := NewLoggerMiddleware(DefaultLoggerConfig(zap.New(core)))
	app := okApp(RequestID(), m.Handler())
	app.Post("/v1/x", func(c *fiber.Ctx) error {
		c.Set("X-Cache", "MISS")
		return c.SendStatus(http.StatusNotFound)
	})

	first := httptest.NewRequest(http.MethodGet, "/v1/traces/window", nil)
	first.Header.Set(HeaderRequestID, "req-window-0001")
	first.Header.Set(fiber.HeaderUserAgent, "traceview-cli/1.0")
	_, err := app.Test(first)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		next := httptest.NewRequest(http.MethodPost, "/v1/x", nil)
		next.Header.Set(HeaderRequestID, "other-request-id")
		next.Header.Set(fiber.HeaderUserAgent, "curl/8.0.0-long-agent")
		_, err = app.Test(next)
		require.NoError(t, err)
	}

	entries := logs.All()
	require.Len(t, entries, 4)
	fields := entries[0].ContextMap()
	assert.Equal(t, http.MethodGet, fields["method"])
	assert.Equal(t, "/v1/traces/window", fields["path"])
	assert.Equal(t, "req-window-0001", fields["request_id"])
	assert.Equal(t, "traceview-cli/1.0", fields["user_agent"])

	last := entries[3].ContextMap()
	assert.Equal(t, http.MethodPost, last["method"])
	assert.Equal(t, "/v1/x", last["path"])
	assert.Equal(t, "MISS", last["cache"])
}

func TestRecoverWithSentry(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	app := fiber.New()
	app.Use(RequestID(), RecoverWithSentry(zap.New(core), false))
	app.Get("/panic", func(c *fiber.Ctx) error {
		panic("boom")
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/panic", nil))
	require.NoError(t, err)
	_, err = app.Test(httptest.NewRequest(http.MethodPost, "/ok", nil))
	require.NoError(t, err)

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "panic recovered", entry.Message)
	assert.Equal(t, "/panic", entry.ContextMap()["path"])
	assert.Equal(t, http.MethodGet, entry.ContextMap()["method"])
}

func TestMetricsMiddleware(t *testing.T) {
	app := okApp(NewMetricsMiddleware(DefaultMetricsConfig()).Handler())
	app.Get("/v1/traces/:id", func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusNotFound)
	})

	counter := httpRequestsTotal.WithLabelValues(http.MethodGet, "/v1/traces/window", "200")
	routed := httpRequestsTotal.WithLabelValues(http.MethodGet, "/v1/traces/:id", "404")
	probes := httpRequestsTotal.WithLabelValues(http.MethodGet, "/health", "200")
	before, routedBefore, probesBefore := promtest.ToFloat64(counter), promtest.ToFloat64(routed), promtest.ToFloat64(probes)

	for _, path := range []string{"/v1/traces/window", "/v1/traces/abc", "/v1/traces/def", "/health"} {
		_, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
		require.NoError(t, err)
	}

	assert.Equal(t, before+1, promtest.ToFloat64(counter))
	assert.Equal(t, routedBefore+2, promtest.ToFloat64(routed))
	assert.Equal(t, probesBefore, promtest.ToFloat64(probes))
}

func TestInitSentry_DisabledWithoutDSN(t *testing.T) {
	assert.NoError(t, InitSentry(SentryOptions(config.SentryConfig{}, "test", "traceview@test")))
}

func TestSentryOptions(t *testing.T) {
	t.Run("fills environment and release", func(t *testing.T) {
		opts := SentryOptions(config.SentryConfig{DSN: "https://key@sentry.example.com/1", SampleRate: 0.5}, "staging", "traceview@1.0.0")
		assert.Equal(t, "staging", opts.Environment)
		assert.Equal(t, "traceview@1.0.0", opts.Release)
		assert.Equal(t, 0.5, opts.SampleRate)
		assert.True(t, opts.AttachStacktrace)
	})

	t.Run("configured values win", func(t *testing.T) {
		opts := SentryOptions(config.SentryConfig{Environment: "prod-eu", Release: "v9"}, "production", "traceview@1.0.0")
		assert.Equal(t, "prod-eu", opts.Environment)
		assert.Equal(t, "v9", opts.Release)
	})
}
