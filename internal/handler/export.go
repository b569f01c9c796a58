package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/agenttrace/traceview/internal/domain"
	"github.com/agenttrace/traceview/internal/dto"
	apperrors "github.com/agenttrace/traceview/internal/pkg/errors"
	"github.com/agenttrace/traceview/internal/pkg/logger"
	"github.com/agenttrace/traceview/internal/pkg/metrics"
	"github.com/agenttrace/traceview/internal/service"
	"github.com/agenttrace/traceview/internal/worker"
)

// ExportConfig configures window export jobs
type ExportConfig struct {
	Bucket             string
	Queue              string
	DefaultCompression domain.ExportCompression
	Retries            int
	Timeout            time.Duration
}

// ExportHandler handles window export endpoints
type ExportHandler struct {
	windows *service.WindowService
	queue   worker.Enqueuer
	config  ExportConfig
	logger  *zap.Logger
}

// NewExportHandler creates a new export handler. queue may be nil when no
// broker is configured, in which case exports are refused.
func NewExportHandler(windows *service.WindowService, queue worker.Enqueuer, config ExportConfig, logger *zap.Logger) *ExportHandler {
	if config.DefaultCompression == "" {
		config.DefaultCompression = domain.ExportCompressionGzip
	}
	if config.Queue == "" {
		config.Queue = "default"
	}
	return &ExportHandler{
		windows: windows,
		queue:   queue,
		config:  config,
		logger:  logger,
	}
}

// ExportWindow handles POST /v1/traces/window/export
func (h *ExportHandler) ExportWindow(c *fiber.Ctx) error {
	if h.queue == nil {
		return appErrorResponse(c, apperrors.QueueUnavailable("window export is not configured"))
	}

	var req dto.ExportWindowRequest
	if err := dto.ParseAndValidate(c, &req); err != nil {
		return appErrorResponse(c, err)
	}

	compression := req.Compression
	if compression == "" {
		compression = h.config.DefaultCompression
	}

	// resolved now so the job exports the window as of this request
	rng := h.windows.Resolve(req.Query())
	jobID := uuid.New()
	export := domain.WindowExport{
		JobID:       jobID,
		Range:       rng,
		Bucket:      h.config.Bucket,
		Object:      domain.WindowExportObject(jobID, rng, compression),
		Compression: compression,
		Status:      domain.JobStatusPending,
	}

	var opts []asynq.Option
	if h.config.Retries > 0 {
		opts = append(opts, asynq.MaxRetry(h.config.Retries))
	}
	if h.config.Timeout > 0 {
		opts = append(opts, asynq.Timeout(h.config.Timeout))
	}

	payload := &worker.WindowExportPayload{
		JobID:       export.JobID,
		Range:       export.Range,
		Bucket:      export.Bucket,
		Object:      export.Object,
		Compression: export.Compression,
	}
	if _, err := worker.EnqueueWindowExport(c.UserContext(), h.queue, payload, h.config.Queue, opts...); err != nil {
		h.logger.Error("failed to enqueue window export",
			append(logger.WindowFields(rng), zap.String("job_id", jobID.String()), zap.Error(err))...)
		return appErrorResponse(c, apperrors.QueueUnavailable("failed to enqueue window export").WithError(err))
	}

	metrics.RecordExportEnqueued()
	h.logger.Info("window export enqueued",
		append(logger.WindowFields(rng),
			zap.String("job_id", jobID.String()),
			zap.String("object", export.Object),
		)...,
	)

	return c.Status(fiber.StatusAccepted).JSON(export)
}

// RegisterRoutes registers export routes
func (h *ExportHandler) RegisterRoutes(router fiber.Router) {
	router.Post("/traces/window/export", h.ExportWindow)
}
