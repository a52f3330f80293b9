package breaker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

var errRPC = errors.New("rpc unavailable")

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func newTestBreaker(failures, successes uint32, timeout time.Duration) (*Breaker, *fakeClock) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	b := New("test", Config{
		FailureThreshold: failures,
		SuccessThreshold: successes,
		Timeout:          timeout,
	}).WithClock(clock.Now)
	return b, clock
}

func fail(ctx context.Context) error    { return errRPC }
func succeed(ctx context.Context) error { return nil }

func TestBreaker_OpensAtThreshold(t *testing.T) {
	b, _ := newTestBreaker(3, 2, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := b.Execute(ctx, fail); !errors.Is(err, errRPC) {
			t.Fatalf("Expected inner error, got: %v", err)
		}
		if b.State() != StateClosed {
			t.Fatalf("Expected closed after %d failures", i+1)
		}
	}

	if err := b.Execute(ctx, fail); !errors.Is(err, errRPC) {
		t.Fatalf("Expected inner error on threshold failure, got: %v", err)
	}
	if b.State() != StateOpen {
		t.Fatalf("Expected open after threshold failure, got: %s", b.State())
	}

	invoked := false
	err := b.Execute(ctx, func(ctx context.Context) error {
		invoked = true
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Expected ErrCircuitOpen, got: %v", err)
	}
	if invoked {
		t.Error("Expected call not to be invoked while open")
	}
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	b, _ := newTestBreaker(3, 1, time.Minute)
	ctx := context.Background()

	_ = b.Execute(ctx, fail)
	_ = b.Execute(ctx, fail)
	_ = b.Execute(ctx, succeed)
	_ = b.Execute(ctx, fail)
	_ = b.Execute(ctx, fail)

	if b.State() != StateClosed {
		t.Errorf("Expected closed since failures were not consecutive, got: %s", b.State())
	}
	if got := b.Stats().FailureCount; got != 2 {
		t.Errorf("Expected failure count 2, got: %d", got)
	}
}

func TestBreaker_HalfOpenAfterTimeout(t *testing.T) {
	b, clock := newTestBreaker(1, 2, 10*time.Second)
	ctx := context.Background()

	_ = b.Execute(ctx, fail)
	if b.State() != StateOpen {
		t.Fatalf("Expected open, got: %s", b.State())
	}

	clock.Advance(9 * time.Second)
	if err := b.Execute(ctx, succeed); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("Expected ErrCircuitOpen before timeout, got: %v", err)
	}
	if got := b.Stats().FailureCount; got != 1 {
		t.Errorf("Expected rejected call to leave counters alone, got failures: %d", got)
	}

	clock.Advance(time.Second)
	invoked := false
	err := b.Execute(ctx, func(ctx context.Context) error {
		invoked = true
		return nil
	})
	if err != nil {
		t.Fatalf("Expected trial call to pass, got: %v", err)
	}
	if !invoked {
		t.Fatal("Expected first call after timeout to be executed")
	}
	if b.State() != StateHalfOpen {
		t.Fatalf("Expected half-open after one success, got: %s", b.State())
	}

	_ = b.Execute(ctx, succeed)
	if b.State() != StateClosed {
		t.Fatalf("Expected closed after success threshold, got: %s", b.State())
	}
	stats := b.Stats()
	if stats.FailureCount != 0 || stats.SuccessCount != 0 || stats.LastFailureTime != nil {
		t.Errorf("Expected counters reset on close, got: %+v", stats)
	}
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	b, clock := newTestBreaker(1, 3, 10*time.Second)
	ctx := context.Background()

	_ = b.Execute(ctx, fail)
	clock.Advance(10 * time.Second)

	_ = b.Execute(ctx, succeed)
	_ = b.Execute(ctx, succeed)
	if b.State() != StateHalfOpen {
		t.Fatalf("Expected half-open, got: %s", b.State())
	}

	_ = b.Execute(ctx, fail)
	if b.State() != StateOpen {
		t.Fatalf("Expected open after half-open failure, got: %s", b.State())
	}
	if got := b.Stats().SuccessCount; got != 0 {
		t.Errorf("Expected success count discarded, got: %d", got)
	}

	// The re-open restarted the timeout window
	clock.Advance(5 * time.Second)
	if err := b.Execute(ctx, succeed); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Expected ErrCircuitOpen inside new window, got: %v", err)
	}
}

func TestBreaker_Reset(t *testing.T) {
	b, _ := newTestBreaker(1, 1, time.Hour)
	_ = b.Execute(context.Background(), fail)

	b.Reset()
	if b.State() != StateClosed {
		t.Fatalf("Expected closed after reset, got: %s", b.State())
	}
	if err := b.Execute(context.Background(), succeed); err != nil {
		t.Errorf("Expected call to pass after reset, got: %v", err)
	}
}

func TestCall_ReturnsValue(t *testing.T) {
	b, _ := newTestBreaker(2, 1, time.Minute)

	got, err := Call(context.Background(), b, func(ctx context.Context) (string, error) {
		return "ok", nil
	})
	if err != nil || got != "ok" {
		t.Errorf("Expected ok, got: %q, %v", got, err)
	}

	got, err = Call(context.Background(), b, func(ctx context.Context) (string, error) {
		return "partial", errRPC
	})
	if !errors.Is(err, errRPC) || got != "" {
		t.Errorf("Expected zero value and inner error, got: %q, %v", got, err)
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state    State
		expected string
	}{
		{StateClosed, "closed"},
		{StateOpen, "open"},
		{StateHalfOpen, "half_open"},
		{State(42), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.state.String(); got != tt.expected {
				t.Errorf("State(%d).String() = %s, expected %s", tt.state, got, tt.expected)
			}
		})
	}
}

func TestBreaker_ExcludedErrorsDoNotCount(t *testing.T) {
	b, clock := newTestBreaker(2, 1, 10*time.Second)
	ctx := context.Background()
	errMissing := errors.New("entry not found")
	excluded := func(ctx context.Context) error { return Excluded(errMissing) }

	_ = b.Execute(ctx, fail)
	if err := b.Execute(ctx, excluded); err != errMissing {
		t.Fatalf("Expected the unwrapped request error, got: %v", err)
	}
	if got := b.Stats().FailureCount; got != 1 {
		t.Errorf("Expected excluded error to leave failures at 1, got: %d", got)
	}

	_ = b.Execute(ctx, fail)
	if b.State() != StateOpen {
		t.Fatalf("Expected open, got: %s", b.State())
	}

	clock.Advance(10 * time.Second)
	for i := 0; i < 3; i++ {
		_ = b.Execute(ctx, excluded)
	}
	if b.State() != StateHalfOpen {
		t.Errorf("Expected excluded errors to keep the breaker half-open, got: %s", b.State())
	}
	if got := b.Stats().SuccessCount; got != 0 {
		t.Errorf("Expected no trial successes, got: %d", got)
	}

	_ = b.Execute(ctx, succeed)
	if b.State() != StateClosed {
		t.Errorf("Expected a real success to close the breaker, got: %s", b.State())
	}
}

func TestExcluded_Nil(t *testing.T) {
	if Excluded(nil) != nil {
		t.Error("Expected Excluded(nil) to be nil")
	}
}
