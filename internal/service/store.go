package service

import (
	"context"

	"github.com/agenttrace/traceview/internal/domain"
)

// StoredTraceStore reads captured traces by capture time.
//
// Both reads return rows with captured_at in [fromMillis, toMillis], ordered
// by captured_at and then id. Implementations must be safe for concurrent use.
type StoredTraceStore interface {
	// ReadStoredTraces returns full trace records for a window.
	ReadStoredTraces(ctx context.Context, fromMillis, toMillis int64) ([]domain.StoredTrace, error)
	// ReadSummaries returns the capture time and duration of each trace in a window.
	ReadSummaries(ctx context.Context, fromMillis, toMillis int64) ([]domain.TraceSummary, error)
	// Ping checks that the store is reachable.
	Ping(ctx context.Context) error
}

// WindowCache stores rendered documents for closed windows
type WindowCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, body []byte) error
}
