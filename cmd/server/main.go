package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"go.uber.org/zap"

	"github.com/agenttrace/traceview/internal/config"
	"github.com/agenttrace/traceview/internal/handler"
	"github.com/agenttrace/traceview/internal/middleware"
	apperrors "github.com/agenttrace/traceview/internal/pkg/errors"
	"github.com/agenttrace/traceview/internal/pkg/logger"
)

const appVersion = "0.1.0"

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

	sentryEnabled := cfg.Sentry.Enabled && cfg.Sentry.DSN != ""
	if sentryEnabled {
		opts := middleware.SentryOptions(cfg.Sentry, cfg.Server.Env, "traceview@"+appVersion)
		if err := middleware.InitSentry(opts); err != nil {
			log.Error("failed to initialize Sentry", zap.Error(err))
			sentryEnabled = false
		} else {
			log.Info("Sentry initialized",
				zap.String("environment", opts.Environment),
				zap.String("release", opts.Release),
			)
			defer middleware.FlushSentry(5 * time.Second)
		}
	}

	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	deps, err := initDependencies(initCtx, cfg, log)
	initCancel()
	if err != nil {
		log.Fatal("failed to initialize dependencies", zap.Error(err))
	}
	defer deps.Close()

	app := fiber.New(fiber.Config{
		AppName:     "traceview",
		ReadTimeout: 30 * time.Second,
		// windows are streamed, so the write deadline has to cover the whole body
		WriteTimeout:          5 * time.Minute,
		IdleTimeout:           120 * time.Second,
		DisableStartupMessage: cfg.IsProduction(),
		JSONEncoder:           sonic.Marshal,
		JSONDecoder:           sonic.Unmarshal,
		ErrorHandler:          errorHandler(log, sentryEnabled),
	})

	// Apply global middleware
	app.Use(middleware.RequestID())

	loggerMiddleware := middleware.NewLoggerMiddleware(middleware.DefaultLoggerConfig(log))
	app.Use(loggerMiddleware.Handler())

	app.Use(middleware.RecoverWithSentry(log, sentryEnabled))

	corsConfig := middleware.DefaultCORSConfig()
	if len(cfg.Server.CORSOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.Server.CORSOrigins
	}
	app.Use(middleware.NewCORSMiddleware(corsConfig).Handler())

	metricsMiddleware := middleware.NewMetricsMiddleware(middleware.DefaultMetricsConfig())
	app.Use(metricsMiddleware.Handler())

	if deps.RateLimit != nil {
		app.Use(deps.RateLimit.Handler())
	}

	registerRoutes(app, deps)

	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Info("starting server",
			zap.String("addr", addr),
			zap.String("store", cfg.Store.Driver),
			zap.Bool("cache", deps.Cache != nil),
			zap.Bool("exports", deps.Queue != nil),
		)
		if err := app.Listen(addr); err != nil {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Error("server shutdown error", zap.Error(err))
	}

	log.Info("server stopped")
}

// errorHandler renders errors that escape the handlers, in the same shape
// the handlers use
func errorHandler(log *zap.Logger, sentryEnabled bool) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		resp := handler.ErrorResponse{
			Error:   utils.StatusMessage(fiber.StatusInternalServerError),
			Message: "internal error",
		}
		code := fiber.StatusInternalServerError

		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
			resp.Error = utils.StatusMessage(code)
			resp.Message = e.Message
		} else if appErr := apperrors.GetAppError(err); appErr != nil {
			code = appErr.StatusCode
			resp.Error = utils.StatusMessage(code)
			resp.Message = appErr.Message
			resp.Code = appErr.Code
			resp.Details = appErr.Details
		}

		middleware.GetLogger(c).Error("request error",
			zap.Int("status", code),
			zap.Error(err),
			zap.String("path", utils.CopyString(c.Path())),
			zap.String("method", utils.CopyString(c.Method())),
		)

		if sentryEnabled && code >= 500 {
			middleware.CaptureError(c, err)
		}

		return c.Status(code).JSON(resp)
	}
}
