package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/agenttrace/traceview/internal/domain"
	apperrors "github.com/agenttrace/traceview/internal/pkg/errors"
	"github.com/agenttrace/traceview/internal/pkg/logger"
	"github.com/agenttrace/traceview/internal/pkg/metrics"
)

// WindowService answers trace window queries.
//
// A request is resolved, looked up and composed in one synchronous pass.
// Closed windows can be rendered once and served from a cache, open windows
// are always streamed because their upper bound moves with the clock.
type WindowService struct {
	logger   *zap.Logger
	resolver *RangeResolver
	store    StoredTraceStore
	composer *TraceComposer
	cache    WindowCache
}

// NewWindowService creates a new window service. cache may be nil.
func NewWindowService(
	logger *zap.Logger,
	resolver *RangeResolver,
	store StoredTraceStore,
	composer *TraceComposer,
	cache WindowCache,
) *WindowService {
	return &WindowService{
		logger:   logger,
		resolver: resolver,
		store:    store,
		composer: composer,
		cache:    cache,
	}
}

// Resolve converts a raw query into absolute bounds
func (s *WindowService) Resolve(q domain.TimeRangeQuery) domain.ResolvedRange {
	return s.resolver.Resolve(q)
}

// Cacheable reports whether the window is served through the render cache
func (s *WindowService) Cacheable(rng domain.ResolvedRange) bool {
	return s.cache != nil && rng.Closed()
}

// Open looks up the traces of a window. In strict mode the stored fragments
// are validated here, so the error can still be reported before any output.
func (s *WindowService) Open(ctx context.Context, rng domain.ResolvedRange) (*domain.TraceWindow, error) {
	traces, err := s.store.ReadStoredTraces(ctx, rng.From, rng.To)
	if err != nil {
		return nil, lookupError(err)
	}
	if err := s.composer.Check(traces); err != nil {
		s.logger.Warn("stored trace fragment rejected", zap.Error(err))
		return nil, err
	}
	return &domain.TraceWindow{Range: rng, Traces: traces}, nil
}

// Stream composes an opened window onto w
func (s *WindowService) Stream(w io.Writer, window *domain.TraceWindow) error {
	return s.write(w, window, "stream")
}

// Export composes an opened window onto an export sink
func (s *WindowService) Export(w io.Writer, window *domain.TraceWindow) error {
	return s.write(w, window, "export")
}

// Render returns the composed document of a window, using the cache for closed windows.
// The second result reports a cache hit.
func (s *WindowService) Render(ctx context.Context, rng domain.ResolvedRange) ([]byte, bool, error) {
	key := windowCacheKey(rng)
	if s.Cacheable(rng) {
		if body, ok := s.cache.Get(ctx, key); ok {
			metrics.RecordWindowCache(true)
			s.logger.Debug("trace window served from cache", logger.WindowFields(rng)...)
			return body, true, nil
		}
		metrics.RecordWindowCache(false)
	}

	window, err := s.Open(ctx, rng)
	if err != nil {
		return nil, false, err
	}

	var buf bytes.Buffer
	if err := s.write(&buf, window, "render"); err != nil {
		return nil, false, err
	}
	body := buf.Bytes()

	if s.Cacheable(rng) {
		if err := s.cache.Set(ctx, key, body); err != nil {
			s.logger.Warn("failed to cache trace window", append(logger.WindowFields(rng), zap.Error(err))...)
		}
	}
	return body, false, nil
}

func (s *WindowService) write(w io.Writer, window *domain.TraceWindow, mode string) error {
	start := time.Now()
	cw := &countingWriter{w: w}

	err := s.composer.compose(cw, window.Range, window.Traces)
	if err != nil {
		if apperrors.IsWriteFailure(err) {
			metrics.RecordWindowWriteFailure()
		}
		s.logger.Warn("trace window composition aborted",
			append(logger.WindowFields(window.Range),
				zap.Int64("bytes_written", cw.n),
				zap.Error(err),
			)...,
		)
		return err
	}

	metrics.RecordWindowComposed(mode, len(window.Traces), cw.n)
	s.logger.Debug("trace window composed",
		append(logger.WindowFields(window.Range),
			zap.String("mode", mode),
			zap.Int("traces", len(window.Traces)),
			zap.Int64("bytes", cw.n),
			zap.Duration("elapsed", time.Since(start)),
		)...,
	)
	return nil
}

func windowCacheKey(rng domain.ResolvedRange) string {
	return fmt.Sprintf("window:%d:%d", rng.From, rng.To)
}

// lookupError keeps typed store errors and wraps everything else as internal
func lookupError(err error) error {
	if apperrors.GetAppError(err) != nil {
		return err
	}
	return apperrors.Internal("failed to read stored traces").WithError(err)
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
