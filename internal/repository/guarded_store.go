package repository

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/agenttrace/traceview/internal/domain"
	"github.com/agenttrace/traceview/internal/pkg/circuitbreaker"
	apperrors "github.com/agenttrace/traceview/internal/pkg/errors"
	"github.com/agenttrace/traceview/internal/pkg/metrics"
)

// TraceStore is the read interface shared by every trace store backend
type TraceStore interface {
	ReadStoredTraces(ctx context.Context, fromMillis, toMillis int64) ([]domain.StoredTrace, error)
	ReadSummaries(ctx context.Context, fromMillis, toMillis int64) ([]domain.TraceSummary, error)
	Ping(ctx context.Context) error
}

// GuardConfig configures a GuardedStore
type GuardConfig struct {
	Name          string
	MaxFailures   int
	OpenTimeout   time.Duration
	LookupTimeout time.Duration
}

// GuardedStore bounds each lookup with a timeout and stops calling a backend
// that keeps failing until it has had time to recover.
type GuardedStore struct {
	inner   TraceStore
	breaker *circuitbreaker.Breaker
	timeout time.Duration
}

// NewGuardedStore wraps inner with a circuit breaker
func NewGuardedStore(inner TraceStore, cfg GuardConfig, logger *zap.Logger) *GuardedStore {
	breaker := circuitbreaker.New(circuitbreaker.Config{
		Name:        cfg.Name,
		MaxFailures: cfg.MaxFailures,
		OpenFor:     cfg.OpenTimeout,
		OnStateChange: func(name string, from, to circuitbreaker.State) {
			metrics.SetStoreCircuitState(name, int(to))
			logger.Warn("trace store circuit changed state",
				zap.String("store", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	metrics.SetStoreCircuitState(cfg.Name, int(circuitbreaker.StateClosed))

	return &GuardedStore{
		inner:   inner,
		breaker: breaker,
		timeout: cfg.LookupTimeout,
	}
}

// ReadStoredTraces reads through the circuit breaker
func (s *GuardedStore) ReadStoredTraces(ctx context.Context, fromMillis, toMillis int64) ([]domain.StoredTrace, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	traces, err := circuitbreaker.Do(ctx, s.breaker, func(ctx context.Context) ([]domain.StoredTrace, error) {
		return s.inner.ReadStoredTraces(ctx, fromMillis, toMillis)
	})
	return traces, guardError(err)
}

// ReadSummaries reads through the circuit breaker
func (s *GuardedStore) ReadSummaries(ctx context.Context, fromMillis, toMillis int64) ([]domain.TraceSummary, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	summaries, err := circuitbreaker.Do(ctx, s.breaker, func(ctx context.Context) ([]domain.TraceSummary, error) {
		return s.inner.ReadSummaries(ctx, fromMillis, toMillis)
	})
	return summaries, guardError(err)
}

// Ping bypasses the breaker so health checks see the real backend state
func (s *GuardedStore) Ping(ctx context.Context) error {
	return s.inner.Ping(ctx)
}

// State returns the breaker state
func (s *GuardedStore) State() circuitbreaker.State {
	return s.breaker.State()
}

func (s *GuardedStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func guardError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, circuitbreaker.ErrOpen), errors.Is(err, circuitbreaker.ErrProbeInFlight):
		return apperrors.StoreUnavailable(err)
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.StoreUnavailable(err)
	}
	return err
}
