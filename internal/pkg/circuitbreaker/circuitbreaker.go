// Package circuitbreaker stops calling a backend that keeps failing and lets
// a single probe through once it has had time to recover.
package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	// ErrOpen is returned while the breaker is rejecting calls
	ErrOpen = errors.New("circuit breaker is open")
	// ErrProbeInFlight is returned while a half-open probe is still running
	ErrProbeInFlight = errors.New("circuit breaker is half-open and probing")
)

// State represents the breaker state
type State int

const (
	// StateClosed lets every call through
	StateClosed State = iota
	// StateOpen rejects every call
	StateOpen
	// StateHalfOpen lets one probe through
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Config holds breaker configuration
type Config struct {
	// Name identifies the breaker in state change callbacks
	Name string
	// MaxFailures is the number of consecutive failures that opens the breaker
	MaxFailures int
	// OpenFor is how long the breaker stays open before probing
	OpenFor time.Duration
	// IsFailure decides which errors count against the breaker.
	// Defaults to every error except context cancellation.
	IsFailure func(err error) bool
	// OnStateChange is called synchronously, outside the breaker lock
	OnStateChange func(name string, from, to State)
	// Now defaults to time.Now
	Now func() time.Time
}

// Breaker guards calls to a single backend. It is safe for concurrent use.
type Breaker struct {
	config Config

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probing  bool
}

// New creates a closed breaker
func New(config Config) *Breaker {
	if config.MaxFailures <= 0 {
		config.MaxFailures = 5
	}
	if config.OpenFor <= 0 {
		config.OpenFor = 30 * time.Second
	}
	if config.IsFailure == nil {
		config.IsFailure = func(err error) bool { return !errors.Is(err, context.Canceled) }
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &Breaker{config: config}
}

// Do runs fn unless the breaker rejects the call or ctx is already done
func Do[T any](ctx context.Context, b *Breaker, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if err := b.acquire(); err != nil {
		return zero, err
	}
	if err := ctx.Err(); err != nil {
		b.release(nil)
		return zero, err
	}

	result, err := fn(ctx)
	b.release(err)
	return result, err
}

func (b *Breaker) acquire() error {
	b.mu.Lock()
	var change *transition
	defer func() {
		b.mu.Unlock()
		b.notify(change)
	}()

	switch b.state {
	case StateOpen:
		if b.config.Now().Sub(b.openedAt) < b.config.OpenFor {
			return ErrOpen
		}
		change = b.moveTo(StateHalfOpen)
		b.probing = true
	case StateHalfOpen:
		if b.probing {
			return ErrProbeInFlight
		}
		b.probing = true
	}
	return nil
}

func (b *Breaker) release(err error) {
	b.mu.Lock()
	var change *transition
	defer func() {
		b.mu.Unlock()
		b.notify(change)
	}()

	wasProbe := b.state == StateHalfOpen
	b.probing = false

	switch {
	case err == nil:
		b.failures = 0
		if wasProbe {
			change = b.moveTo(StateClosed)
		}
	case b.config.IsFailure(err):
		b.failures++
		if wasProbe || b.failures >= b.config.MaxFailures {
			b.openedAt = b.config.Now()
			change = b.moveTo(StateOpen)
		}
	}
	// an error that is not a failure leaves a half-open breaker waiting for the next probe
}

type transition struct{ from, to State }

// moveTo must be called with mu held
func (b *Breaker) moveTo(to State) *transition {
	if b.state == to {
		return nil
	}
	t := &transition{from: b.state, to: to}
	b.state = to
	if to == StateClosed {
		b.failures = 0
	}
	return t
}

func (b *Breaker) notify(t *transition) {
	if t != nil && b.config.OnStateChange != nil {
		b.config.OnStateChange(b.config.Name, t.from, t.to)
	}
}

// State returns the current state
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
