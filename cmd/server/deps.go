package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/agenttrace/traceview/internal/config"
	"github.com/agenttrace/traceview/internal/middleware"
	"github.com/agenttrace/traceview/internal/service"
	"github.com/agenttrace/traceview/internal/worker"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config *config.Config
	Logger *zap.Logger

	*Databases

	// Cache is nil unless closed-window caching is enabled
	Cache service.WindowCache
	// Queue is nil when no broker is configured
	Queue worker.Enqueuer

	Services *Services
	Handlers *Handlers

	// RateLimit is nil when rate limiting is disabled
	RateLimit *middleware.RateLimitMiddleware
}

// initDependencies initializes all application dependencies
func initDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	dbs, err := initDatabases(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	deps.Databases = dbs

	// interface fields stay untyped nil when the backing client is absent
	if dbs.Redis != nil && cfg.CacheEnabled() {
		deps.Cache = newWindowCache(dbs.Redis, cfg)
	}
	if dbs.AsynqClient != nil {
		deps.Queue = dbs.AsynqClient
	}

	deps.Services = initServices(cfg, logger, dbs.Store, deps.Cache)
	deps.Handlers = initHandlers(cfg, logger, deps.Services, dbs, deps.Queue)

	if cfg.RateLimit.Enabled {
		if dbs.Redis == nil {
			dbs.Close()
			return nil, fmt.Errorf("rate limiting requires redis")
		}
		deps.RateLimit = newRateLimitMiddleware(cfg, logger, dbs.Redis)
	}

	return deps, nil
}

// Close closes all connections
func (d *Dependencies) Close() {
	if d.Databases != nil {
		d.Databases.Close()
	}
}
