package handler

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/sync/errgroup"
)

const (
	healthTimeout    = 5 * time.Second
	readinessTimeout = 3 * time.Second
)

// HealthCheck is a named dependency probe. A failing required check makes the
// service unhealthy and not ready; a failing optional check only degrades it.
type HealthCheck struct {
	Name     string
	Required bool
	Ping     func(ctx context.Context) error
}

// HealthHandler serves the probe endpoints
type HealthHandler struct {
	checks    []HealthCheck
	version   string
	startTime time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(version string, checks ...HealthCheck) *HealthHandler {
	return &HealthHandler{
		checks:    checks,
		version:   version,
		startTime: time.Now(),
	}
}

// HealthStatus is the /health document
type HealthStatus struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Uptime    string            `json:"uptime"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

// RegisterRoutes registers health check routes
func (h *HealthHandler) RegisterRoutes(app *fiber.App) {
	app.Get("/health", h.Health)
	app.Get("/healthz", h.Health)
	app.Get("/livez", h.Liveness)
	app.Get("/readyz", h.Readiness)
	app.Get("/version", h.Version)
}

// pingAll runs every check concurrently and returns the failures by name
func (h *HealthHandler) pingAll(ctx context.Context) map[string]error {
	var (
		mu       sync.Mutex
		failures = make(map[string]error)
	)
	g, ctx := errgroup.WithContext(ctx)
	for _, check := range h.checks {
		g.Go(func() error {
			if err := check.Ping(ctx); err != nil {
				mu.Lock()
				failures[check.Name] = err
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return failures
}

// Health handles GET /health
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), healthTimeout)
	defer cancel()
	failures := h.pingAll(ctx)

	status := HealthStatus{
		Status:    "healthy",
		Version:   h.version,
		Uptime:    time.Since(h.startTime).String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    make(map[string]string, len(h.checks)),
	}
	for _, check := range h.checks {
		err, failed := failures[check.Name]
		switch {
		case !failed:
			status.Checks[check.Name] = "healthy"
			continue
		case check.Required:
			status.Status = "unhealthy"
		case status.Status == "healthy":
			status.Status = "degraded"
		}
		status.Checks[check.Name] = "unhealthy: " + err.Error()
	}

	if status.Status == "unhealthy" {
		return c.Status(fiber.StatusServiceUnavailable).JSON(status)
	}
	return c.JSON(status)
}

// Liveness handles GET /livez. It never touches dependencies.
func (h *HealthHandler) Liveness(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "alive"})
}

// Readiness handles GET /readyz. Only required checks gate readiness.
func (h *HealthHandler) Readiness(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), readinessTimeout)
	defer cancel()
	failures := h.pingAll(ctx)

	for _, check := range h.checks {
		if _, failed := failures[check.Name]; failed && check.Required {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "not ready",
				"reason": check.Name + " unavailable",
			})
		}
	}
	return c.JSON(fiber.Map{"status": "ready"})
}

// Version handles GET /version
func (h *HealthHandler) Version(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"version": h.version,
		"uptime":  time.Since(h.startTime).String(),
	})
}
