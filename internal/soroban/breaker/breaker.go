package breaker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned without invoking the call while the breaker rejects traffic
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State is the breaker position
type State int

const (
	StateClosed   State = iota // requests pass through
	StateOpen                  // requests are rejected
	StateHalfOpen              // trial requests decide whether to close again
)

// String returns the wire name of the state
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state as its wire name
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Config holds breaker thresholds
type Config struct {
	FailureThreshold uint32        // Consecutive failures before opening
	SuccessThreshold uint32        // Successes in half-open needed to close
	Timeout          time.Duration // Time spent open before a trial is allowed
}

// DefaultConfig returns 5 failures / 2 successes / 60s
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Timeout:          60 * time.Second,
	}
}

// Stats is a snapshot of the breaker
type Stats struct {
	State           State      `json:"state"`
	FailureCount    uint32     `json:"failure_count"`
	SuccessCount    uint32     `json:"success_count"`
	IsOpen          bool       `json:"is_open"`
	LastFailureTime *time.Time `json:"last_failure_time,omitempty"`
}

// Breaker gates calls to a remote endpoint that keeps failing
type Breaker struct {
	name   string
	config Config
	now    func() time.Time

	mu              sync.Mutex
	state           State
	failureCount    uint32
	successCount    uint32
	lastFailureTime time.Time
}

// New creates a closed breaker. name is only used in logs.
func New(name string, config Config) *Breaker {
	if config.FailureThreshold == 0 {
		config.FailureThreshold = 1
	}
	if config.SuccessThreshold == 0 {
		config.SuccessThreshold = 1
	}

	slog.Info("🔌 Initializing circuit breaker",
		"name", name,
		"failure_threshold", config.FailureThreshold,
		"success_threshold", config.SuccessThreshold,
		"timeout", config.Timeout,
	)

	return &Breaker{
		name:   name,
		config: config,
		now:    time.Now,
		state:  StateClosed,
	}
}

// WithClock replaces the time source
func (b *Breaker) WithClock(now func() time.Time) *Breaker {
	b.mu.Lock()
	b.now = now
	b.mu.Unlock()
	return b
}

// Execute runs fn if the breaker admits it and records the outcome.
// The error from fn is returned unchanged.
func (b *Breaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := b.admit(); err != nil {
		return err
	}

	if err := fn(ctx); err != nil {
		var ex excludedError
		if errors.As(err, &ex) {
			return ex.err
		}
		b.onFailure()
		return err
	}

	b.onSuccess()
	return nil
}

// Excluded marks err as caused by the request rather than the endpoint.
// Execute returns the wrapped error without counting a success or a failure.
func Excluded(err error) error {
	if err == nil {
		return nil
	}
	return excludedError{err: err}
}

type excludedError struct {
	err error
}

func (e excludedError) Error() string { return e.err.Error() }

func (e excludedError) Unwrap() error { return e.err }

// Call is Execute for functions returning a value
func Call[T any](ctx context.Context, b *Breaker, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := b.Execute(ctx, func(ctx context.Context) error {
		var err error
		result, err = fn(ctx)
		return err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

// admit decides whether a call may proceed, moving Open to HalfOpen once the timeout elapsed
func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed, StateHalfOpen:
		return nil
	case StateOpen:
		if b.now().Sub(b.lastFailureTime) < b.config.Timeout {
			return ErrCircuitOpen
		}
		slog.Info("🔄 Circuit breaker transitioning to half-open", "name", b.name)
		b.state = StateHalfOpen
		b.successCount = 0
		return nil
	default:
		return ErrCircuitOpen
	}
}

func (b *Breaker) onSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		b.failureCount = 0
	case StateHalfOpen:
		b.successCount++
		if b.successCount >= b.config.SuccessThreshold {
			slog.Info("✅ Circuit breaker closing", "name", b.name, "successes", b.successCount)
			b.resetLocked()
		}
	case StateOpen:
		// A call admitted before the breaker opened finished late
		b.failureCount = 0
	}
}

func (b *Breaker) onFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failureCount++
	b.lastFailureTime = b.now()

	switch b.state {
	case StateClosed:
		if b.failureCount >= b.config.FailureThreshold {
			slog.Warn("⚠️  Circuit breaker opening",
				"name", b.name,
				"failures", b.failureCount,
			)
			b.state = StateOpen
		}
	case StateHalfOpen:
		slog.Warn("⚠️  Circuit breaker re-opening after failed trial", "name", b.name)
		b.state = StateOpen
		b.successCount = 0
	case StateOpen:
	}
}

// State returns the current position
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Stats returns counters and state
func (b *Breaker) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()

	stats := Stats{
		State:        b.state,
		FailureCount: b.failureCount,
		SuccessCount: b.successCount,
		IsOpen:       b.state == StateOpen,
	}
	if !b.lastFailureTime.IsZero() {
		t := b.lastFailureTime
		stats.LastFailureTime = &t
	}
	return stats
}

// Reset forces the breaker closed with zero counters
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	slog.Info("🔄 Manually resetting circuit breaker", "name", b.name)
	b.resetLocked()
}

func (b *Breaker) resetLocked() {
	b.state = StateClosed
	b.failureCount = 0
	b.successCount = 0
	b.lastFailureTime = time.Time{}
}
