package queue

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"contractgateway/internal/retry"

	"github.com/google/uuid"
)

var (
	// ErrQueueClosed is returned by Submit after Shutdown
	ErrQueueClosed = errors.New("operation queue is closed")
	// ErrQueueFull is returned by Submit when MaxDepth operations are already pending
	ErrQueueFull = errors.New("operation queue is full")
)

// Executor performs the side effect of an operation and returns its result
type Executor func(ctx context.Context, op *Operation) (string, error)

// Config controls retry backoff and intake
type Config struct {
	BackoffBase time.Duration // delay before retry n is BackoffBase * 2^n
	MaxBackoff  time.Duration // 0 = uncapped
	MaxDepth    int           // 0 = unbounded
}

// DefaultConfig returns a 1s backoff base with no caps
func DefaultConfig() Config {
	return Config{BackoffBase: time.Second}
}

// Queue runs submitted operations one at a time on a single worker and
// retries failures with exponential backoff
type Queue struct {
	config   Config
	executor Executor

	pending *fifo[*Operation]
	results *fifo[Result]

	stop      chan struct{}
	done      chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
}

// New creates a queue. Nothing is processed until Start is called.
func New(config Config, executor Executor) *Queue {
	if config.BackoffBase <= 0 {
		config.BackoffBase = DefaultConfig().BackoffBase
	}

	return &Queue{
		config:   config,
		executor: executor,
		pending:  newFIFO[*Operation](),
		results:  newFIFO[Result](),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the worker. Cancelling ctx does not interrupt an
// operation already executing; use Shutdown to stop the worker.
func (q *Queue) Start(ctx context.Context) {
	q.startOnce.Do(func() {
		slog.Info("🚀 Starting operation queue worker",
			"backoff_base", q.config.BackoffBase,
			"max_backoff", q.config.MaxBackoff,
			"max_depth", q.config.MaxDepth,
		)
		go q.run(context.WithoutCancel(ctx))
	})
}

// Submit enqueues a copy of op and returns its id. It never blocks.
func (q *Queue) Submit(op Operation) (string, error) {
	if q.isStopped() {
		return "", ErrQueueClosed
	}

	if op.ID == "" {
		op.ID = uuid.NewString()
	}
	if op.CreatedAt.IsZero() {
		op.CreatedAt = time.Now().UTC()
	}
	if op.MaxRetries < 0 {
		op.MaxRetries = 0
	}
	op.RetryCount = 0

	err := q.pending.pushIf(&op, func(depth int) error {
		if q.config.MaxDepth > 0 && depth >= q.config.MaxDepth {
			return ErrQueueFull
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	slog.Debug("Operation queued",
		"operation_id", op.ID,
		"contract_id", op.ContractID,
		"function", op.FunctionName,
		"priority", op.Priority.String(),
	)
	return op.ID, nil
}

// NextResult waits for the next result. It returns false once ctx is done,
// or once the worker has stopped and every result has been consumed.
func (q *Queue) NextResult(ctx context.Context) (Result, bool) {
	for {
		if r, ok := q.results.pop(); ok {
			return r, true
		}

		select {
		case <-ctx.Done():
			return Result{}, false
		case <-q.done:
			r, ok := q.results.pop()
			return r, ok
		case <-q.results.signal:
		}
	}
}

// Depth is the number of operations waiting for the worker
func (q *Queue) Depth() int {
	return q.pending.len()
}

// Shutdown stops the worker after the operation it is executing, if any.
// An operation waiting out its backoff is dropped. Pending operations are
// discarded. Shutdown waits for the worker to exit or ctx to be done.
func (q *Queue) Shutdown(ctx context.Context) error {
	q.stopOnce.Do(func() {
		// no Submit can succeed once the intake is sealed
		q.pending.seal()
		close(q.stop)
	})

	// Without a worker there is nothing to wait for
	q.startOnce.Do(func() {
		close(q.done)
	})

	select {
	case <-q.done:
		slog.Info("🛑 Operation queue worker stopped", "discarded", q.pending.len())
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) isStopped() bool {
	select {
	case <-q.stop:
		return true
	default:
		return false
	}
}

func (q *Queue) run(ctx context.Context) {
	defer close(q.done)

	for {
		if q.isStopped() {
			return
		}

		op, ok := q.pending.pop()
		if !ok {
			select {
			case <-q.stop:
				return
			case <-q.pending.signal:
				continue
			}
		}

		if !q.process(ctx, op) {
			return
		}
	}
}

// process executes op once and emits its result. It returns false if the
// queue was shut down while op was backing off.
func (q *Queue) process(ctx context.Context, op *Operation) bool {
	result, err := q.executor(ctx, op)
	if err == nil {
		slog.Info("✅ Operation succeeded",
			"operation_id", op.ID,
			"contract_id", op.ContractID,
			"retries", op.RetryCount,
		)
		q.results.push(Result{
			Kind:        ResultSuccess,
			OperationID: op.ID,
			ContractID:  op.ContractID,
			Result:      result,
			Attempt:     op.RetryCount,
		})
		return true
	}

	if op.RetryCount >= op.MaxRetries {
		slog.Error("❌ Operation failed, retries exhausted",
			"operation_id", op.ID,
			"contract_id", op.ContractID,
			"retries", op.RetryCount,
			"error", err,
		)
		q.results.push(Result{
			Kind:        ResultFailed,
			OperationID: op.ID,
			ContractID:  op.ContractID,
			Attempt:     op.RetryCount,
			Err:         err,
		})
		return true
	}

	op.RetryCount++
	delay := retry.Delay(op.RetryCount, q.config.BackoffBase, q.config.MaxBackoff)

	slog.Warn("⚠️  Operation failed, retrying",
		"operation_id", op.ID,
		"contract_id", op.ContractID,
		"attempt", op.RetryCount,
		"max_retries", op.MaxRetries,
		"retry_in", delay,
		"error", err,
	)

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-q.stop:
		slog.Warn("Dropping operation during backoff, queue shutting down", "operation_id", op.ID)
		return false
	case <-timer.C:
	}

	q.results.push(Result{
		Kind:        ResultRetry,
		OperationID: op.ID,
		ContractID:  op.ContractID,
		Attempt:     op.RetryCount,
		Err:         err,
	})
	q.pending.push(op)
	return true
}
