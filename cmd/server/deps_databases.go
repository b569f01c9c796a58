package main

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/agenttrace/traceview/internal/config"
	"github.com/agenttrace/traceview/internal/pkg/database"
	"github.com/agenttrace/traceview/internal/repository"
	"github.com/agenttrace/traceview/internal/worker"
)

const cachePrefix = "traceview:"

// Databases holds all backend connections
type Databases struct {
	Store       *repository.GuardedStore
	Redis       *database.RedisDB
	AsynqClient *asynq.Client

	closeStore func()
}

// initDatabases opens the trace store and, when enabled, Redis and the task queue client
func initDatabases(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Databases, error) {
	dbs := &Databases{}

	store, closeStore, err := repository.Open(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	dbs.Store = store
	dbs.closeStore = closeStore

	if !cfg.Redis.Enabled {
		logger.Info("redis disabled, window cache and exports are off")
		return dbs, nil
	}

	redisDB, err := database.NewRedis(ctx, cfg.Redis)
	if err != nil {
		dbs.Close()
		return nil, fmt.Errorf("failed to initialize Redis: %w", err)
	}
	dbs.Redis = redisDB

	dbs.AsynqClient = asynq.NewClient(worker.RedisOpt(cfg.Redis))

	return dbs, nil
}

func newWindowCache(redisDB *database.RedisDB, cfg *config.Config) *database.Cache {
	return database.NewCache(redisDB, cachePrefix, cfg.Query.CacheTTL)
}

// Close closes all connections
func (d *Databases) Close() {
	if d.AsynqClient != nil {
		_ = d.AsynqClient.Close()
	}
	if d.Redis != nil {
		_ = d.Redis.Close()
	}
	if d.closeStore != nil {
		d.closeStore()
	}
}
