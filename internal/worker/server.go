package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/agenttrace/traceview/internal/config"
)

const shutdownTimeout = 30 * time.Second

// WorkerDependencies holds what the task handlers need
type WorkerDependencies struct {
	Windows  WindowSource
	Uploader ObjectUploader
}

// Server consumes export tasks from Redis
type Server struct {
	logger *zap.Logger
	cfg    config.WorkerConfig
	server *asynq.Server
	mux    *asynq.ServeMux
}

// RedisOpt builds the asynq connection options from the Redis configuration
func RedisOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

// NewServer wires the export worker onto an asynq server
func NewServer(logger *zap.Logger, redis config.RedisConfig, cfg config.WorkerConfig, deps *WorkerDependencies) (*Server, error) {
	if deps == nil || deps.Windows == nil || deps.Uploader == nil {
		return nil, errors.New("worker requires a window source and an object uploader")
	}

	server := asynq.NewServer(RedisOpt(redis), asynq.Config{
		Concurrency:     cfg.Concurrency,
		Queues:          map[string]int{cfg.QueueDefault: 1},
		ShutdownTimeout: shutdownTimeout,
		// a task cut short by shutdown is retried without counting against it
		IsFailure: func(err error) bool {
			return !errors.Is(err, context.Canceled)
		},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			logger.Error("task processing failed",
				zap.String("type", task.Type()),
				zap.Int("retried", retried),
				zap.Int("max_retry", maxRetry),
				zap.Error(err),
			)
		}),
		Logger: &asynqLogger{logger: logger.Named("asynq")},
	})

	mux := asynq.NewServeMux()
	mux.Use(taskLogging(logger))
	mux.HandleFunc(TypeWindowExport, NewExportWorker(logger, deps.Windows, deps.Uploader).ProcessTask)

	return &Server{
		logger: logger,
		cfg:    cfg,
		server: server,
		mux:    mux,
	}, nil
}

// Start runs the server and blocks until it stops
func (s *Server) Start() error {
	s.logger.Info("starting worker server",
		zap.Int("concurrency", s.cfg.Concurrency),
		zap.String("queue", s.cfg.QueueDefault),
	)
	return s.server.Run(s.mux)
}

// Stop waits up to the shutdown timeout for running tasks
func (s *Server) Stop() {
	s.server.Shutdown()
}

// taskLogging logs the start and outcome of every task at debug level
func taskLogging(logger *zap.Logger) asynq.MiddlewareFunc {
	return func(next asynq.Handler) asynq.Handler {
		return asynq.HandlerFunc(func(ctx context.Context, task *asynq.Task) error {
			id, _ := asynq.GetTaskID(ctx)
			log := logger.With(zap.String("task_id", id), zap.String("type", task.Type()))

			start := time.Now()
			log.Debug("task started")
			err := next.ProcessTask(ctx, task)
			log.Debug("task finished", zap.Duration("took", time.Since(start)), zap.Bool("ok", err == nil))
			return err
		})
	}
}

// Enqueuer submits tasks. *asynq.Client implements it.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// EnqueueWindowExport enqueues a window export task on queue
func EnqueueWindowExport(ctx context.Context, client Enqueuer, payload *WindowExportPayload, queue string, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	task, err := NewWindowExportTask(payload, opts...)
	if err != nil {
		return nil, err
	}
	return client.EnqueueContext(ctx, task, asynq.Queue(queue))
}

// asynqLogger adapts zap to asynq's printf-less logger
type asynqLogger struct {
	logger *zap.Logger
}

func (l *asynqLogger) Debug(args ...any) { l.logger.Debug(fmt.Sprint(args...)) }
func (l *asynqLogger) Info(args ...any)  { l.logger.Info(fmt.Sprint(args...)) }
func (l *asynqLogger) Warn(args ...any)  { l.logger.Warn(fmt.Sprint(args...)) }
func (l *asynqLogger) Error(args ...any) { l.logger.Error(fmt.Sprint(args...)) }
func (l *asynqLogger) Fatal(args ...any) { l.logger.Fatal(fmt.Sprint(args...)) }
