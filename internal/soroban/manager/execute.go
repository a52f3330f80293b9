package manager

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"contractgateway/internal/soroban/breaker"
	"contractgateway/internal/soroban/registry"
	"contractgateway/internal/stellar"

	"github.com/goccy/go-json"
)

// rpcCall is one outbound call made with a pooled connection
type rpcCall[T any] func(ctx context.Context, rpc stellar.RPC) (T, error)

// readRequest describes one cached read operation
type readRequest[T any] struct {
	operation string
	args      any
	ttl       time.Duration
	// succeeded decides whether a returned value counts as a success and is cached; nil means always
	succeeded func(T) bool
}

// cachedRead resolves the contract, serves from its cache when possible and
// otherwise runs call under the contract's pool and breaker
func cachedRead[T any](ctx context.Context, m *Manager, contractID string, read readRequest[T], call rpcCall[T]) (T, error) {
	var zero T

	contract, err := m.contract(contractID)
	if err != nil {
		m.metrics.OperationsTotal.Inc()
		m.recordFailure(read.operation, contractID, err)
		return zero, err
	}
	defer contract.Release()

	key, err := cacheKey(read.operation, contractID, read.args)
	if err != nil {
		return zero, fmt.Errorf("building cache key: %w", err)
	}

	if raw, ok := contract.Cache.Get(key); ok {
		value, err := decodeCached[T](raw)
		if err == nil {
			m.metrics.CacheHits.Inc()
			slog.Debug("✅ Served from cache", "operation", read.operation, "contract_id", contractID)
			return value, nil
		}
		slog.Warn("Discarding undecodable cache entry", "key", key, "error", err)
		contract.Cache.Invalidate(key)
	}
	m.metrics.CacheMisses.Inc()
	m.metrics.OperationsTotal.Inc()

	value, err := protected(ctx, m, contract, read.operation, call)
	if err != nil {
		m.recordFailure(read.operation, contractID, err)
		return zero, err
	}

	if read.succeeded != nil && !read.succeeded(value) {
		m.metrics.OperationsFailed.Inc()
		return value, nil
	}

	if raw, err := json.Marshal(value); err == nil {
		contract.Cache.Set(key, raw, read.ttl)
	} else {
		slog.Warn("Result not cached", "operation", read.operation, "error", err)
	}

	m.metrics.OperationsSuccessful.Inc()
	slog.Debug("Operation completed", "operation", read.operation, "contract_id", contractID)
	return value, nil
}

// protected takes a pooled connection for the duration of call and runs it through the breaker
func protected[T any](ctx context.Context, m *Manager, contract *registry.Contract, operation string, call rpcCall[T]) (T, error) {
	var zero T

	handle, err := contract.Pool.Get(ctx)
	if err != nil {
		return zero, fmt.Errorf("%w: %s: %w", ErrPool, contract.Metadata.ContractID, err)
	}
	defer handle.Release()

	started := time.Now()
	defer m.metrics.ObserveCall(operation, started)

	value, err := breaker.Call(ctx, contract.Breaker, func(ctx context.Context) (T, error) {
		v, err := call(ctx, handle.Conn())
		if err != nil && requestError(err) {
			return v, breaker.Excluded(err)
		}
		return v, err
	})

	switch {
	case errors.Is(err, ErrCircuitOpen):
		return zero, fmt.Errorf("%w: %s", ErrCircuitOpen, contract.Metadata.ContractID)
	case err != nil:
		return zero, fmt.Errorf("%w: %s: %w", ErrInnerCall, operation, err)
	}
	return value, nil
}

// cacheKey is operation:contract:sha256(args as JSON)
func cacheKey(operation, contractID string, args any) (string, error) {
	raw, err := json.Marshal(args)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return operation + ":" + contractID + ":" + hex.EncodeToString(sum[:]), nil
}

// decodeCached keeps numbers as json.Number so large integers survive the round trip
func decodeCached[T any](raw []byte) (T, error) {
	var value T
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	err := dec.Decode(&value)
	return value, err
}
