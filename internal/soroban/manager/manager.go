package manager

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"contractgateway/internal/metrics"
	"contractgateway/internal/soroban/breaker"
	"contractgateway/internal/soroban/cache"
	"contractgateway/internal/soroban/pool"
	"contractgateway/internal/soroban/queue"
	"contractgateway/internal/soroban/registry"
	"contractgateway/internal/storage"
)

// Cache lifetimes per read operation
const (
	ttlXDR          = 60 * time.Second
	ttlEvents       = 30 * time.Second
	ttlSimulation   = 60 * time.Second
	ttlPersistent   = 300 * time.Second
	ttlTemporary    = 60 * time.Second
	ttlFunctionCall = 60 * time.Second
)

// Config controls the write path
type Config struct {
	MaxRetries int // retry budget of every submitted transaction
	Queue      queue.Config
}

// DefaultConfig returns 3 retries with a 1s backoff base
func DefaultConfig() Config {
	return Config{
		MaxRetries: 3,
		Queue:      queue.DefaultConfig(),
	}
}

// Manager is the entry point for every contract operation. Reads go through
// the per-contract cache, pool and breaker; writes go through the queue.
type Manager struct {
	registry *registry.Registry
	queue    *queue.Queue
	store    storage.OperationStore
	metrics  *metrics.Metrics
	config   Config

	startOnce sync.Once
	drainDone chan struct{}
}

// ContractInfo is the live state of one contract's resources
type ContractInfo struct {
	Metadata     registry.ContractMetadata `json:"metadata"`
	PoolStats    pool.Stats                `json:"pool_stats"`
	BreakerStats breaker.Stats             `json:"circuit_breaker_stats"`
	CacheStats   cache.Stats               `json:"cache_stats"`
}

// HealthStatus aggregates registry and metrics state
type HealthStatus struct {
	Healthy          bool    `json:"healthy"`
	TotalContracts   int     `json:"total_contracts"`
	EnabledContracts int     `json:"enabled_contracts"`
	TotalOperations  uint64  `json:"total_operations"`
	FailedOperations uint64  `json:"failed_operations"`
	CacheHitRate     float64 `json:"cache_hit_rate"`
	QueueDepth       int     `json:"queue_depth"`
}

// New wires a manager. Call Start to begin processing submitted transactions.
func New(reg *registry.Registry, store storage.OperationStore, m *metrics.Metrics, config Config) *Manager {
	mgr := &Manager{
		registry:  reg,
		store:     store,
		metrics:   m,
		config:    config,
		drainDone: make(chan struct{}),
	}
	mgr.queue = queue.New(config.Queue, mgr.executeOperation)
	mgr.metrics.RegisteredContracts.Set(float64(reg.Stats().Total))

	slog.Info("🚀 Contract manager initialized",
		"contracts", reg.Stats().Total,
		"max_retries", config.MaxRetries,
	)
	return mgr
}

// Start launches the queue worker and the result drain
func (m *Manager) Start(ctx context.Context) {
	m.startOnce.Do(func() {
		m.queue.Start(ctx)
		go m.drain(context.WithoutCancel(ctx))
	})
}

// Close stops the queue, waits for the drain to finish and releases every contract
func (m *Manager) Close(ctx context.Context) error {
	err := m.queue.Shutdown(ctx)

	// no drain is running if Start was never called
	m.startOnce.Do(func() {
		close(m.drainDone)
	})

	select {
	case <-m.drainDone:
	case <-ctx.Done():
		if err == nil {
			err = ctx.Err()
		}
	}

	m.registry.Close()
	m.metrics.RegisteredContracts.Set(0)
	slog.Info("🛑 Contract manager closed")
	return err
}

// contract resolves a registered contract; the caller must Release it
func (m *Manager) contract(contractID string) (*registry.Contract, error) {
	c, ok := m.registry.Get(contractID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrContractNotFound, contractID)
	}
	return c, nil
}

func (m *Manager) recordFailure(operation, contractID string, err error) {
	m.metrics.OperationsFailed.Inc()
	m.metrics.ErrorsTotal.WithLabelValues(errorKind(err)).Inc()
	slog.Warn("Operation failed",
		"operation", operation,
		"contract_id", contractID,
		"error", err,
	)
}

// RegisterContract registers a contract; disabled contracts are skipped
func (m *Manager) RegisterContract(meta registry.ContractMetadata) error {
	if err := m.registry.Register(meta); err != nil {
		return err
	}
	m.metrics.RegisteredContracts.Set(float64(m.registry.Stats().Total))
	return nil
}

// UnregisterContract removes a contract from the registry
func (m *Manager) UnregisterContract(contractID string) error {
	if err := m.registry.Unregister(contractID); err != nil {
		return err
	}
	m.metrics.RegisteredContracts.Set(float64(m.registry.Stats().Total))
	return nil
}

// ListContracts returns every registered contract
func (m *Manager) ListContracts() []registry.ContractMetadata {
	return m.registry.ListAll()
}

// ContractInfo returns the live pool, breaker and cache stats of a contract
func (m *Manager) ContractInfo(contractID string) (ContractInfo, error) {
	c, err := m.contract(contractID)
	if err != nil {
		return ContractInfo{}, err
	}
	defer c.Release()

	return ContractInfo{
		Metadata:     c.Metadata,
		PoolStats:    c.Pool.Stats(),
		BreakerStats: c.Breaker.Stats(),
		CacheStats:   c.Cache.Stats(),
	}, nil
}

// InvalidateCache clears every cached read of a contract
func (m *Manager) InvalidateCache(contractID string) error {
	c, err := m.contract(contractID)
	if err != nil {
		return err
	}
	defer c.Release()
	c.Cache.Clear()
	return nil
}

// ResetCircuitBreaker forces a contract's breaker closed
func (m *Manager) ResetCircuitBreaker(contractID string) error {
	c, err := m.contract(contractID)
	if err != nil {
		return err
	}
	defer c.Release()
	c.Breaker.Reset()
	slog.Info("Circuit breaker reset", "contract_id", contractID)
	return nil
}

// Metrics returns a snapshot of the counters
func (m *Manager) Metrics() metrics.Snapshot {
	m.metrics.QueueDepth.Set(float64(m.queue.Depth()))
	return m.metrics.Snapshot()
}

// HealthCheck is healthy while at least one enabled contract is registered
func (m *Manager) HealthCheck() HealthStatus {
	stats := m.registry.Stats()
	snapshot := m.Metrics()

	return HealthStatus{
		Healthy:          stats.Enabled > 0,
		TotalContracts:   stats.Total,
		EnabledContracts: stats.Enabled,
		TotalOperations:  snapshot.TotalOperations,
		FailedOperations: snapshot.FailedOperations,
		CacheHitRate:     snapshot.CacheHitRate,
		QueueDepth:       snapshot.QueueDepth,
	}
}
