package main

import (
	"go.uber.org/zap"

	"github.com/agenttrace/traceview/internal/config"
	"github.com/agenttrace/traceview/internal/pkg/clock"
	"github.com/agenttrace/traceview/internal/service"
)

// Services holds all service instances
type Services struct {
	Windows   *service.WindowService
	Summaries *service.SummaryService
}

// initServices initializes all services. cache may be nil.
func initServices(cfg *config.Config, logger *zap.Logger, store service.StoredTraceStore, cache service.WindowCache) *Services {
	resolver := service.NewRangeResolver(clock.System{})
	composer := service.NewTraceComposer(service.ComposerConfig{
		StrictFragments:     cfg.Query.StrictFragments,
		FlushThresholdBytes: cfg.Query.FlushThresholdBytes,
	})

	return &Services{
		Windows: service.NewWindowService(logger, resolver, store, composer, cache),
		Summaries: service.NewSummaryService(logger, resolver, store, service.SummaryConfig{
			Percentiles:         cfg.Summary.Percentiles,
			SlowThresholdMillis: cfg.Summary.SlowThresholdMillis,
		}),
	}
}
