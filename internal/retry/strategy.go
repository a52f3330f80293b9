package retry

import (
	"context"
	"log/slog"
	"math"
	"time"
)

// Strategy defines the interface for retry strategies
type Strategy interface {
	// Execute runs the operation with the configured retry logic
	Execute(ctx context.Context, operation Operation) error

	// Name returns the name of the strategy for logging
	Name() string
}

// Operation is a function that can be retried
type Operation func() error

// Config holds retry configuration
type Config struct {
	Enabled      bool          // Enable/disable retry mechanism
	MaxRetries   int           // Maximum number of retry attempts
	InitialDelay time.Duration // Initial delay before first retry
	MaxDelay     time.Duration // Maximum delay between retries
}

// NewStrategy creates a retry strategy based on configuration
func NewStrategy(config Config) Strategy {
	if !config.Enabled {
		slog.Info("Retry disabled, running operations once")
		return once{}
	}

	slog.Info("Retry enabled, using ExponentialBackoffStrategy",
		"max_retries", config.MaxRetries,
		"initial_delay", config.InitialDelay,
		"max_delay", config.MaxDelay,
	)

	return NewExponentialBackoffStrategy(
		config.MaxRetries,
		config.InitialDelay,
		config.MaxDelay,
	)
}

// Delay returns base * 2^attempt, capped at ceiling when ceiling > 0.
// attempt 0 yields base.
func Delay(attempt int, base, ceiling time.Duration) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	d := base
	for i := 0; i < attempt; i++ {
		if ceiling > 0 && d >= ceiling {
			return ceiling
		}
		if d > math.MaxInt64/2 {
			return time.Duration(math.MaxInt64)
		}
		d *= 2
	}

	if ceiling > 0 && d > ceiling {
		return ceiling
	}
	return d
}

// once runs the operation a single time
type once struct{}

func (once) Execute(ctx context.Context, operation Operation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return operation()
}

func (once) Name() string {
	return "Once"
}
