package handler

import (
	"bufio"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/agenttrace/traceview/internal/domain"
	apperrors "github.com/agenttrace/traceview/internal/pkg/errors"
	"github.com/agenttrace/traceview/internal/pkg/logger"
	"github.com/agenttrace/traceview/internal/service"
)

// TracesHandler handles trace window query endpoints
type TracesHandler struct {
	windows   *service.WindowService
	summaries *service.SummaryService
	logger    *zap.Logger
}

// NewTracesHandler creates a new traces handler
func NewTracesHandler(windows *service.WindowService, summaries *service.SummaryService, logger *zap.Logger) *TracesHandler {
	return &TracesHandler{
		windows:   windows,
		summaries: summaries,
		logger:    logger,
	}
}

// GetWindow handles GET /v1/traces/window
func (h *TracesHandler) GetWindow(c *fiber.Ctx) error {
	q, err := parseRangeQuery(c)
	if err != nil {
		return appErrorResponse(c, err)
	}
	return h.serveWindow(c, q)
}

// PostWindow handles POST /v1/traces/window
func (h *TracesHandler) PostWindow(c *fiber.Ctx) error {
	var q domain.TimeRangeQuery
	if err := c.BodyParser(&q); err != nil {
		return appErrorResponse(c, apperrors.BadRequest("invalid request body").WithError(err))
	}
	return h.serveWindow(c, q)
}

// serveWindow resolves and looks up the window before the status line is
// written, so lookup failures still produce an error response. Open windows
// are streamed; closed windows go through the render cache when one is set.
func (h *TracesHandler) serveWindow(c *fiber.Ctx, q domain.TimeRangeQuery) error {
	rng := h.windows.Resolve(q)

	if h.windows.Cacheable(rng) {
		body, hit, err := h.windows.Render(c.UserContext(), rng)
		if err != nil {
			return h.windowError(c, rng, err)
		}
		if hit {
			c.Set("X-Cache", "HIT")
		} else {
			c.Set("X-Cache", "MISS")
		}
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Send(body)
	}

	window, err := h.windows.Open(c.UserContext(), rng)
	if err != nil {
		return h.windowError(c, rng, err)
	}

	if !rng.Closed() {
		c.Set(fiber.HeaderCacheControl, "no-store")
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	c.Set("X-Trace-Count", strconv.Itoa(len(window.Traces)))

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		// the status is already sent; a failure can only cut the body short
		_ = h.windows.Stream(&flushWriter{w: w}, window)
	}))
	return nil
}

func (h *TracesHandler) windowError(c *fiber.Ctx, rng domain.ResolvedRange, err error) error {
	h.logger.Error("failed to serve trace window", append(logger.WindowFields(rng), zap.Error(err))...)
	return appErrorResponse(c, err)
}

// GetSummaries handles GET /v1/traces/summaries
func (h *TracesHandler) GetSummaries(c *fiber.Ctx) error {
	q, err := parseRangeQuery(c)
	if err != nil {
		return appErrorResponse(c, err)
	}

	report, err := h.summaries.Summarize(c.UserContext(), q)
	if err != nil {
		h.logger.Error("failed to summarize trace window", zap.Error(err))
		return appErrorResponse(c, err)
	}

	return c.JSON(report)
}

// RegisterRoutes registers trace routes
func (h *TracesHandler) RegisterRoutes(router fiber.Router) {
	traces := router.Group("/traces")
	traces.Get("/window", h.GetWindow)
	traces.Post("/window", h.PostWindow)
	traces.Get("/summaries", h.GetSummaries)
}
