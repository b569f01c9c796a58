package main

import (
	"go.uber.org/zap"

	"github.com/agenttrace/traceview/internal/config"
	"github.com/agenttrace/traceview/internal/domain"
	"github.com/agenttrace/traceview/internal/handler"
	"github.com/agenttrace/traceview/internal/middleware"
	"github.com/agenttrace/traceview/internal/pkg/database"
	"github.com/agenttrace/traceview/internal/worker"
)

// Handlers holds all handler instances
type Handlers struct {
	Health *handler.HealthHandler
	Traces *handler.TracesHandler
	Export *handler.ExportHandler
	Docs   *handler.DocsHandler
}

// initHandlers initializes all handlers. queue may be nil.
func initHandlers(cfg *config.Config, logger *zap.Logger, svcs *Services, dbs *Databases, queue worker.Enqueuer) *Handlers {
	checks := []handler.HealthCheck{
		{Name: cfg.Store.Driver, Required: true, Ping: dbs.Store.Ping},
	}
	if dbs.Redis != nil {
		checks = append(checks, handler.HealthCheck{Name: "redis", Ping: dbs.Redis.Ping})
	}

	return &Handlers{
		Health: handler.NewHealthHandler(appVersion, checks...),
		Traces: handler.NewTracesHandler(svcs.Windows, svcs.Summaries, logger),
		Export: handler.NewExportHandler(svcs.Windows, queue, handler.ExportConfig{
			Bucket:             cfg.MinIO.Bucket,
			Queue:              cfg.Worker.QueueDefault,
			DefaultCompression: domain.ExportCompression(cfg.Worker.ExportCompression),
			Retries:            cfg.Worker.ExportRetries,
			Timeout:            cfg.Worker.ExportTimeout,
		}, logger),
		Docs: handler.NewDocsHandler(),
	}
}

func newRateLimitMiddleware(cfg *config.Config, logger *zap.Logger, redisDB *database.RedisDB) *middleware.RateLimitMiddleware {
	rlConfig := middleware.DefaultRateLimitConfig()
	rlConfig.Max, rlConfig.Window = middleware.BurstWindow(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	return middleware.NewRateLimitMiddleware(redisDB, logger, rlConfig)
}
