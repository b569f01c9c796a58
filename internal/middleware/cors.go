package middleware

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CORSConfig configures the CORS middleware
type CORSConfig struct {
	// AllowOrigins accepts exact origins, "*" and "*.example.com" patterns
	AllowOrigins  []string
	AllowMethods  []string
	AllowHeaders  []string
	ExposeHeaders []string
	// MaxAge is how long a preflight may be cached, in seconds
	MaxAge int
}

// DefaultCORSConfig allows any origin to read windows and summaries
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{fiber.MethodGet, fiber.MethodHead, fiber.MethodPost, fiber.MethodOptions},
		AllowHeaders: []string{fiber.HeaderOrigin, fiber.HeaderContentType, fiber.HeaderAccept, HeaderRequestID},
		ExposeHeaders: []string{
			HeaderRequestID,
			"X-Cache",
			"X-Trace-Count",
			"X-RateLimit-Limit",
			"X-RateLimit-Remaining",
		},
		MaxAge: 86400,
	}
}

// originMatcher is AllowOrigins split by pattern kind
type originMatcher struct {
	any      bool
	exact    map[string]struct{}
	suffixes []string
}

func newOriginMatcher(patterns []string) originMatcher {
	m := originMatcher{exact: make(map[string]struct{}, len(patterns))}
	for _, p := range patterns {
		switch {
		case p == "*":
			m.any = true
		case strings.HasPrefix(p, "*."):
			m.suffixes = append(m.suffixes, p[1:])
		default:
			m.exact[p] = struct{}{}
		}
	}
	return m
}

// match returns the Access-Control-Allow-Origin value for origin, or "" when
// the origin is not allowed
func (m originMatcher) match(origin string) string {
	if m.any {
		return "*"
	}
	if _, ok := m.exact[origin]; ok {
		return origin
	}
	for _, suffix := range m.suffixes {
		if strings.HasSuffix(origin, suffix) {
			return origin
		}
	}
	return ""
}

// CORSMiddleware answers preflights and decorates cross origin responses
type CORSMiddleware struct {
	origins originMatcher
	headers corsHeaders
}

type corsHeaders struct {
	methods, allow, expose, maxAge string
}

// NewCORSMiddleware creates a new CORS middleware
func NewCORSMiddleware(config CORSConfig) *CORSMiddleware {
	h := corsHeaders{
		methods: strings.Join(config.AllowMethods, ", "),
		allow:   strings.Join(config.AllowHeaders, ", "),
		expose:  strings.Join(config.ExposeHeaders, ", "),
	}
	if config.MaxAge > 0 {
		h.maxAge = strconv.Itoa(config.MaxAge)
	}
	return &CORSMiddleware{
		origins: newOriginMatcher(config.AllowOrigins),
		headers: h,
	}
}

// Handler returns the CORS handler. Requests without an allowed Origin pass
// through untouched.
func (m *CORSMiddleware) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		origin := c.Get(fiber.HeaderOrigin)
		if origin == "" {
			return c.Next()
		}
		allowed := m.origins.match(origin)
		if allowed == "" {
			return c.Next()
		}

		c.Set(fiber.HeaderAccessControlAllowOrigin, allowed)
		if allowed != "*" {
			c.Vary(fiber.HeaderOrigin)
		}
		if m.headers.expose != "" {
			c.Set(fiber.HeaderAccessControlExposeHeaders, m.headers.expose)
		}

		if c.Method() != fiber.MethodOptions {
			return c.Next()
		}

		c.Set(fiber.HeaderAccessControlAllowMethods, m.headers.methods)
		c.Set(fiber.HeaderAccessControlAllowHeaders, m.headers.allow)
		if m.headers.maxAge != "" {
			c.Set(fiber.HeaderAccessControlMaxAge, m.headers.maxAge)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
