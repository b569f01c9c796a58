package middleware

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"go.uber.org/zap"
)

// RecoverWithSentry turns panics into 500 responses. With reporting enabled
// every request gets its own hub, used here and by CaptureError.
func RecoverWithSentry(logger *zap.Logger, sentryEnabled bool) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		var hub *sentry.Hub
		if sentryEnabled {
			hub = attachHub(c)
		}

		defer func() {
			if r := recover(); r != nil {
				err = recovered(c, logger, hub, r)
			}
		}()

		return c.Next()
	}
}

// recovered logs and reports a panic, then writes the 500 response. A panic
// inside a streamed body never reaches here; the stream writer owns it.
func recovered(c *fiber.Ctx, logger *zap.Logger, hub *sentry.Hub, r any) error {
	panicErr, ok := r.(error)
	if !ok {
		panicErr = fmt.Errorf("panic: %v", r)
	}

	logger.Error("panic recovered",
		zap.Error(panicErr),
		zap.String("request_id", GetRequestID(c)),
		zap.String("method", utils.CopyString(c.Method())),
		zap.String("path", utils.CopyString(c.Path())),
		zap.Stack("stack"),
	)

	if hub != nil {
		hub.Scope().SetLevel(sentry.LevelFatal)
		if id := hub.RecoverWithContext(c.UserContext(), r); id != nil {
			logger.Info("panic reported to Sentry", zap.String("event_id", string(*id)))
		}
		hub.Flush(2 * time.Second)
	}

	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error":      "Internal Server Error",
		"message":    "an unexpected error occurred",
		"request_id": GetRequestID(c),
	})
}
