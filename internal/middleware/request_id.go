package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agenttrace/traceview/internal/pkg/logger"
)

const (
	// HeaderRequestID carries the request ID in both directions
	HeaderRequestID = "X-Request-ID"

	localsRequestID = "requestID"
	localsLogger    = "logger"
)

// RequestID assigns every request an ID, reusing one sent by the client, and
// stores a request scoped logger next to it.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		requestID := utils.CopyString(c.Get(HeaderRequestID))
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set(HeaderRequestID, requestID)
		c.Locals(localsRequestID, requestID)
		c.Locals(localsLogger, logger.WithRequestID(requestID))

		return c.Next()
	}
}

// GetRequestID gets the request ID from context
func GetRequestID(c *fiber.Ctx) string {
	if requestID, ok := c.Locals(localsRequestID).(string); ok {
		return requestID
	}
	return ""
}

// GetLogger returns the request scoped logger, or the global one outside a request
func GetLogger(c *fiber.Ctx) *zap.Logger {
	if l, ok := c.Locals(localsLogger).(*zap.Logger); ok {
		return l
	}
	return logger.Log
}
