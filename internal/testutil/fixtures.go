// Package testutil provides shared test utilities for traceview.
package testutil

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/agenttrace/traceview/internal/domain"
)

// NewStoredTrace creates a completed stored trace captured at capturedAt.
func NewStoredTrace(capturedAt int64) domain.StoredTrace {
	return domain.StoredTrace{
		ID:          "trace-" + uuid.New().String()[:8],
		CapturedAt:  capturedAt,
		StartAt:     capturedAt - 250,
		Duration:    250,
		Completed:   true,
		ThreadNames: `["main"]`,
		Spans:       `[{"name":"request","duration":250,"children":[]}]`,
	}
}

// NewStoredTraces creates n stored traces captured one millisecond apart.
func NewStoredTraces(n int, firstCapturedAt int64) []domain.StoredTrace {
	traces := make([]domain.StoredTrace, n)
	for i := range traces {
		traces[i] = NewStoredTrace(firstCapturedAt + int64(i))
		traces[i].ID = fmt.Sprintf("trace-%04d", i)
	}
	return traces
}

// WithUsername sets the username of a stored trace.
func WithUsername(t domain.StoredTrace, username string) domain.StoredTrace {
	t.Username = &username
	return t
}
