package middleware

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"

	"github.com/agenttrace/traceview/internal/config"
)

const localsSentryHub = "sentry_hub"

// SentryOptions maps the error reporting config onto client options.
// Environment and release fall back to the given values when unset.
func SentryOptions(cfg config.SentryConfig, env, release string) sentry.ClientOptions {
	opts := sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		Debug:            cfg.Debug,
		SampleRate:       cfg.SampleRate,
		TracesSampleRate: cfg.TracesSampleRate,
		AttachStacktrace: true,
	}
	if opts.Environment == "" {
		opts.Environment = env
	}
	if opts.Release == "" {
		opts.Release = release
	}
	return opts
}

// InitSentry initializes the Sentry SDK. An empty DSN leaves it disabled.
func InitSentry(opts sentry.ClientOptions) error {
	if opts.Dsn == "" {
		return nil
	}
	if err := sentry.Init(opts); err != nil {
		return fmt.Errorf("failed to initialize Sentry: %w", err)
	}
	return nil
}

// FlushSentry flushes any buffered events to Sentry
func FlushSentry(timeout time.Duration) {
	sentry.Flush(timeout)
}

// CaptureError reports an error with the request's hub, falling back to the
// global one. It is a no-op when Sentry was never initialized.
func CaptureError(c *fiber.Ctx, err error) {
	hub := requestHub(c)
	if hub == nil {
		hub = sentry.CurrentHub()
	}

	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetExtra("route", c.Route().Path)
		scope.SetExtra("query", string(c.Request().URI().QueryString()))
		hub.CaptureException(err)
	})
}

func requestHub(c *fiber.Ctx) *sentry.Hub {
	hub, _ := c.Locals(localsSentryHub).(*sentry.Hub)
	return hub
}

// attachHub clones the global hub and scopes it to the request
func attachHub(c *fiber.Ctx) *sentry.Hub {
	hub := sentry.CurrentHub().Clone()
	scope := hub.Scope()
	scope.SetTag("request_id", GetRequestID(c))
	scope.SetContext("request", sentry.Context{
		"url":         c.OriginalURL(),
		"method":      c.Method(),
		"remote_addr": c.IP(),
	})
	c.Locals(localsSentryHub, hub)
	return hub
}
