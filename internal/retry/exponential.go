package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ExponentialBackoffStrategy retries recoverable errors with a doubling delay
type ExponentialBackoffStrategy struct {
	maxRetries   int
	initialDelay time.Duration
	maxDelay     time.Duration
}

// NewExponentialBackoffStrategy creates a new ExponentialBackoffStrategy
func NewExponentialBackoffStrategy(maxRetries int, initialDelay, maxDelay time.Duration) *ExponentialBackoffStrategy {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &ExponentialBackoffStrategy{
		maxRetries:   maxRetries,
		initialDelay: initialDelay,
		maxDelay:     maxDelay,
	}
}

func (s *ExponentialBackoffStrategy) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.initialDelay
	b.MaxInterval = s.maxDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()

	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(s.maxRetries)), ctx)
}

// Execute runs the operation, retrying recoverable failures until the budget is spent
func (s *ExponentialBackoffStrategy) Execute(ctx context.Context, operation Operation) error {
	attempts := 0

	wrapped := func() error {
		attempts++
		err := operation()
		if err == nil {
			if attempts > 1 {
				slog.Info("Operation succeeded after retry",
					"attempt", attempts,
					"total_attempts", s.maxRetries+1)
			}
			return nil
		}

		if !isRecoverableError(err) {
			slog.Error("Non-recoverable error, failing immediately",
				"error", err,
				"attempt", attempts)
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, next time.Duration) {
		slog.Warn("Operation failed, retrying with exponential backoff",
			"attempt", attempts,
			"max_attempts", s.maxRetries+1,
			"retry_in_seconds", next.Seconds(),
			"error", err)
	}

	err := backoff.RetryNotify(wrapped, s.newBackOff(ctx), notify)
	if err == nil {
		return nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return fmt.Errorf("context cancelled during retry: %w", err)
	}
	if !isRecoverableError(err) {
		return err
	}
	return fmt.Errorf("operation failed after %d attempts: %w", attempts, err)
}

// Name returns the strategy name
func (s *ExponentialBackoffStrategy) Name() string {
	return "ExponentialBackoff"
}

// isRecoverableError reports whether err looks like a transient network failure
func isRecoverableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	errStr := strings.ToLower(err.Error())

	recoverablePatterns := []string{
		"connection reset by peer",
		"connection refused",
		"timeout",
		"temporary failure",
		"network is unreachable",
		"broken pipe",
		"i/o timeout",
		"eof",
		"tls handshake timeout",
		"no such host",
		"connection timed out",
		"dial tcp",
		"read: connection reset",
		"write: broken pipe",
		"503 service unavailable",
		"502 bad gateway",
	}

	for _, pattern := range recoverablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}
