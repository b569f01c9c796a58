package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/agenttrace/traceview/internal/config"
	"github.com/agenttrace/traceview/internal/pkg/clock"
	"github.com/agenttrace/traceview/internal/pkg/database"
	"github.com/agenttrace/traceview/internal/pkg/logger"
	"github.com/agenttrace/traceview/internal/repository"
	"github.com/agenttrace/traceview/internal/service"
	"github.com/agenttrace/traceview/internal/worker"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.Init(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	defer logger.Sync()

	if !cfg.Redis.Enabled {
		log.Fatal("the export worker requires redis")
	}

	log.Info("starting worker service")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	deps, cleanup, err := initWorkerDependencies(ctx, cfg, log)
	cancel()
	if err != nil {
		log.Fatal("failed to initialize dependencies", zap.Error(err))
	}
	defer cleanup()

	workerServer, err := worker.NewServer(log, cfg.Redis, cfg.Worker, deps)
	if err != nil {
		log.Fatal("failed to create worker server", zap.Error(err))
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- workerServer.Start()
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info("shutting down worker...")
		workerServer.Stop()
	case err := <-errCh:
		if err != nil {
			log.Error("worker server error", zap.Error(err))
		}
	}

	log.Info("worker stopped")
}

// initWorkerDependencies opens the trace store and the export bucket
func initWorkerDependencies(ctx context.Context, cfg *config.Config, log *zap.Logger) (*worker.WorkerDependencies, func(), error) {
	store, closeStore, err := repository.Open(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}

	minioClient, err := database.NewMinIO(ctx, cfg.MinIO)
	if err != nil {
		closeStore()
		return nil, nil, fmt.Errorf("failed to initialize MinIO: %w", err)
	}
	if minioClient == nil {
		closeStore()
		return nil, nil, fmt.Errorf("minio_endpoint is required for window exports")
	}

	// exports always compose from the store, never from the render cache
	windows := service.NewWindowService(
		log,
		service.NewRangeResolver(clock.System{}),
		store,
		service.NewTraceComposer(service.ComposerConfig{
			StrictFragments:     cfg.Query.StrictFragments,
			FlushThresholdBytes: cfg.Query.FlushThresholdBytes,
		}),
		nil,
	)

	deps := &worker.WorkerDependencies{
		Windows:  windows,
		Uploader: minioClient,
	}
	return deps, closeStore, nil
}
