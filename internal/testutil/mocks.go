package testutil

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/agenttrace/traceview/internal/domain"
)

// MockStoredTraceStore is a testify mock of the trace store.
type MockStoredTraceStore struct {
	mock.Mock
}

// ReadStoredTraces records the call and returns the configured result.
func (m *MockStoredTraceStore) ReadStoredTraces(ctx context.Context, fromMillis, toMillis int64) ([]domain.StoredTrace, error) {
	args := m.Called(ctx, fromMillis, toMillis)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.StoredTrace), args.Error(1)
}

// ReadSummaries records the call and returns the configured result.
func (m *MockStoredTraceStore) ReadSummaries(ctx context.Context, fromMillis, toMillis int64) ([]domain.TraceSummary, error) {
	args := m.Called(ctx, fromMillis, toMillis)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.TraceSummary), args.Error(1)
}

// Ping records the call and returns the configured error.
func (m *MockStoredTraceStore) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// MemoryWindowCache is an in-process window cache for tests.
type MemoryWindowCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	Sets    int
}

// NewMemoryWindowCache creates an empty cache.
func NewMemoryWindowCache() *MemoryWindowCache {
	return &MemoryWindowCache{entries: make(map[string][]byte)}
}

// Get returns a cached body.
func (c *MemoryWindowCache) Get(ctx context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	body, ok := c.entries[key]
	return body, ok
}

// Set stores a copy of body.
func (c *MemoryWindowCache) Set(ctx context.Context, key string, body []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = append([]byte(nil), body...)
	c.Sets++
	return nil
}

// Len returns the number of cached entries.
func (c *MemoryWindowCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
