package pool

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

var (
	// ErrPoolClosed is returned by Get once Close has been called
	ErrPoolClosed = errors.New("connection pool is closed")
	// ErrConnect wraps failures of the connection factory
	ErrConnect = errors.New("failed to create connection")
)

// Factory opens a new connection to the pool's endpoint
type Factory[C any] func(ctx context.Context) (C, error)

// Config holds pool limits
type Config struct {
	MaxConnections int64
	IdleTimeout    time.Duration
}

// DefaultConfig returns 50 connections / 300s idle timeout
func DefaultConfig() Config {
	return Config{
		MaxConnections: 50,
		IdleTimeout:    300 * time.Second,
	}
}

// Stats is a point-in-time view of the pool
type Stats struct {
	TotalConnections     int   `json:"total_connections"`
	MaxConnections       int64 `json:"max_connections"`
	AvailableConnections int64 `json:"available_connections"`
}

type idleConn[C any] struct {
	conn     C
	lastUsed time.Time
}

// Pool bounds concurrent use of connections to one endpoint and keeps
// returned connections around for reuse until they go idle for too long
type Pool[C any] struct {
	name    string
	factory Factory[C]
	config  Config
	now     func() time.Time

	sem *semaphore.Weighted

	mu     sync.Mutex
	idle   []idleConn[C]
	inUse  int64
	closed chan struct{}
	once   sync.Once
}

// New creates an empty pool. Connections are opened lazily by Get.
func New[C any](name string, config Config, factory Factory[C]) *Pool[C] {
	if config.MaxConnections <= 0 {
		config.MaxConnections = DefaultConfig().MaxConnections
	}

	slog.Info("🏊 Initializing connection pool",
		"name", name,
		"max_connections", config.MaxConnections,
		"idle_timeout", config.IdleTimeout,
	)

	return &Pool[C]{
		name:    name,
		factory: factory,
		config:  config,
		now:     time.Now,
		sem:     semaphore.NewWeighted(config.MaxConnections),
		closed:  make(chan struct{}),
	}
}

// WithClock replaces the time source used for idle accounting
func (p *Pool[C]) WithClock(now func() time.Time) *Pool[C] {
	p.mu.Lock()
	p.now = now
	p.mu.Unlock()
	return p
}

// Get waits for a free slot and returns a handle to a connection.
// The handle must be released, typically with defer h.Release().
func (p *Pool[C]) Get(ctx context.Context) (*Handle[C], error) {
	if p.isClosed() {
		return nil, ErrPoolClosed
	}

	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-p.closed:
			cancel()
		case <-waitCtx.Done():
		}
	}()

	if err := p.sem.Acquire(waitCtx, 1); err != nil {
		if p.isClosed() {
			return nil, ErrPoolClosed
		}
		return nil, fmt.Errorf("waiting for connection: %w", err)
	}

	if p.isClosed() {
		p.sem.Release(1)
		return nil, ErrPoolClosed
	}

	conn, reused := p.takeIdle()
	if !reused {
		var err error
		conn, err = p.factory(ctx)
		if err != nil {
			p.sem.Release(1)
			slog.Error("Failed to create pooled connection", "name", p.name, "error", err)
			return nil, fmt.Errorf("%w: %w", ErrConnect, err)
		}
		slog.Debug("Opened new pooled connection", "name", p.name)
	}

	p.mu.Lock()
	p.inUse++
	p.mu.Unlock()

	return &Handle[C]{pool: p, conn: conn}, nil
}

// takeIdle drops stale connections and pops the most recently returned one
func (p *Pool[C]) takeIdle() (C, bool) {
	p.mu.Lock()
	now := p.now()
	fresh := p.idle[:0]
	var stale []C
	for _, ic := range p.idle {
		if p.config.IdleTimeout > 0 && now.Sub(ic.lastUsed) >= p.config.IdleTimeout {
			stale = append(stale, ic.conn)
			continue
		}
		fresh = append(fresh, ic)
	}
	p.idle = fresh

	var conn C
	reused := false
	if n := len(p.idle); n > 0 {
		conn = p.idle[n-1].conn
		p.idle = p.idle[:n-1]
		reused = true
	}
	p.mu.Unlock()

	if len(stale) > 0 {
		slog.Debug("Discarding idle connections", "name", p.name, "count", len(stale))
		for _, c := range stale {
			closeConn(c)
		}
	}
	return conn, reused
}

func (p *Pool[C]) put(conn C) {
	p.mu.Lock()
	p.inUse--
	if p.isClosed() {
		p.mu.Unlock()
		closeConn(conn)
		p.sem.Release(1)
		return
	}
	p.idle = append(p.idle, idleConn[C]{conn: conn, lastUsed: p.now()})
	p.mu.Unlock()

	p.sem.Release(1)
}

// Stats reports idle connections, the limit and free slots
func (p *Pool[C]) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	return Stats{
		TotalConnections:     len(p.idle),
		MaxConnections:       p.config.MaxConnections,
		AvailableConnections: p.config.MaxConnections - p.inUse,
	}
}

// Close wakes every waiter with ErrPoolClosed and closes idle connections.
// Connections still checked out are closed when their handles are released.
func (p *Pool[C]) Close() {
	p.once.Do(func() {
		close(p.closed)

		p.mu.Lock()
		idle := p.idle
		p.idle = nil
		p.mu.Unlock()

		for _, ic := range idle {
			closeConn(ic.conn)
		}
		slog.Info("🛑 Connection pool closed", "name", p.name, "closed_idle", len(idle))
	})
}

func (p *Pool[C]) isClosed() bool {
	select {
	case <-p.closed:
		return true
	default:
		return false
	}
}

func closeConn[C any](conn C) {
	if c, ok := any(conn).(io.Closer); ok {
		if err := c.Close(); err != nil {
			slog.Warn("Failed to close pooled connection", "error", err)
		}
	}
}

// Handle is a checked-out connection
type Handle[C any] struct {
	pool *Pool[C]
	conn C
	once sync.Once
}

// Conn returns the underlying connection
func (h *Handle[C]) Conn() C {
	return h.conn
}

// Release returns the connection to the pool. Calling it more than once is a no-op.
func (h *Handle[C]) Release() {
	h.once.Do(func() {
		h.pool.put(h.conn)
	})
}
