package middleware

import (
	"context"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"go.uber.org/zap"

	apperrors "github.com/agenttrace/traceview/internal/pkg/errors"
)

// RateLimiter counts hits against a key in a fixed window.
// *database.RedisDB implements it.
type RateLimiter interface {
	RateLimit(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error)
}

// RateLimitConfig configures the rate limiter
type RateLimitConfig struct {
	// Max requests per window
	Max int
	// Window duration
	Window time.Duration
	// Key generator function
	KeyGenerator func(*fiber.Ctx) string
	// Skip function
	Skip func(*fiber.Ctx) bool
	// Custom limit exceeded handler
	LimitReached fiber.Handler
}

// DefaultRateLimitConfig returns default rate limit config
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Max:    100,
		Window: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		Skip: HealthSkipper,
		LimitReached: func(c *fiber.Ctx) error {
			appErr := apperrors.RateLimited()
			return c.Status(appErr.StatusCode).JSON(fiber.Map{
				"error":   utils.StatusMessage(appErr.StatusCode),
				"message": appErr.Message,
				"code":    appErr.Code,
			})
		},
	}
}

// BurstWindow turns a sustained rate and a burst size into a fixed window
// holding burst requests, e.g. 50/s with a burst of 100 is 100 per 2s.
func BurstWindow(requestsPerSecond, burst int) (int, time.Duration) {
	if burst < requestsPerSecond {
		burst = requestsPerSecond
	}
	if requestsPerSecond <= 0 {
		return burst, time.Second
	}
	return burst, time.Duration(float64(burst) / float64(requestsPerSecond) * float64(time.Second))
}

// RateLimitMiddleware limits requests per client using a shared counter
type RateLimitMiddleware struct {
	limiter RateLimiter
	config  RateLimitConfig
	logger  *zap.Logger
}

// NewRateLimitMiddleware creates a new rate limit middleware. Unset fields
// of config fall back to the defaults.
func NewRateLimitMiddleware(limiter RateLimiter, logger *zap.Logger, config RateLimitConfig) *RateLimitMiddleware {
	def := DefaultRateLimitConfig()
	if config.Max <= 0 {
		config.Max = def.Max
	}
	if config.Window <= 0 {
		config.Window = def.Window
	}
	if config.KeyGenerator == nil {
		config.KeyGenerator = def.KeyGenerator
	}
	if config.LimitReached == nil {
		config.LimitReached = def.LimitReached
	}

	return &RateLimitMiddleware{
		limiter: limiter,
		config:  config,
		logger:  logger,
	}
}

// Handler returns the rate limit handler
func (m *RateLimitMiddleware) Handler() fiber.Handler {
	limit := strconv.Itoa(m.config.Max)

	return func(c *fiber.Ctx) error {
		if m.config.Skip != nil && m.config.Skip(c) {
			return c.Next()
		}

		key := "ratelimit:" + m.config.KeyGenerator(c)
		allowed, remaining, err := m.limiter.RateLimit(c.UserContext(), key, int64(m.config.Max), m.config.Window)
		if err != nil {
			// fail open
			m.logger.Warn("rate limiter unavailable", zap.Error(err))
			return c.Next()
		}

		c.Set("X-RateLimit-Limit", limit)
		c.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if !allowed {
			c.Set("Retry-After", strconv.Itoa(int(m.config.Window.Seconds()+0.999)))
			return m.config.LimitReached(c)
		}

		return c.Next()
	}
}
