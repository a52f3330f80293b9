// Package stellartest provides an in-memory stellar.RPC for tests
package stellartest

import (
	"context"
	"sync"

	"contractgateway/internal/stellar"

	"github.com/stellar/go/strkey"
)

// Fake is a scriptable stellar.RPC. Unset funcs return zero values.
type Fake struct {
	HealthFunc      func(ctx context.Context) (stellar.Health, error)
	GenerateXDRFunc func(ctx context.Context, req stellar.InvokeRequest) (string, error)
	GetEventsFunc   func(ctx context.Context, query stellar.EventsQuery) (stellar.EventsPage, error)
	SimulateFunc    func(ctx context.Context, txXDR string, opts stellar.SimulationOptions) (stellar.SimulationResult, error)
	DataFunc        func(ctx context.Context, contractID, keyXDR string, durability stellar.Durability) (stellar.LedgerEntry, error)
	CallFunc        func(ctx context.Context, req stellar.InvokeRequest) (stellar.CallResult, error)
	SendFunc        func(ctx context.Context, signedXDR string) (stellar.SendResult, error)

	mu     sync.Mutex
	calls  map[string]int
	closed bool
}

var _ stellar.RPC = (*Fake)(nil)

func (f *Fake) record(method string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[method]++
}

// Calls returns how many times method was invoked
func (f *Fake) Calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

// Closed reports whether Close was called
func (f *Fake) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *Fake) Health(ctx context.Context) (stellar.Health, error) {
	f.record("Health")
	if f.HealthFunc != nil {
		return f.HealthFunc(ctx)
	}
	return stellar.Health{Status: "healthy"}, nil
}

func (f *Fake) GenerateXDR(ctx context.Context, req stellar.InvokeRequest) (string, error) {
	f.record("GenerateXDR")
	if f.GenerateXDRFunc != nil {
		return f.GenerateXDRFunc(ctx, req)
	}
	return "", nil
}

func (f *Fake) GetEvents(ctx context.Context, query stellar.EventsQuery) (stellar.EventsPage, error) {
	f.record("GetEvents")
	if f.GetEventsFunc != nil {
		return f.GetEventsFunc(ctx, query)
	}
	return stellar.EventsPage{Events: []stellar.Event{}}, nil
}

func (f *Fake) SimulateTransaction(ctx context.Context, txXDR string, opts stellar.SimulationOptions) (stellar.SimulationResult, error) {
	f.record("SimulateTransaction")
	if f.SimulateFunc != nil {
		return f.SimulateFunc(ctx, txXDR, opts)
	}
	return stellar.SimulationResult{}, nil
}

func (f *Fake) GetContractData(ctx context.Context, contractID, keyXDR string, durability stellar.Durability) (stellar.LedgerEntry, error) {
	f.record("GetContractData")
	if f.DataFunc != nil {
		return f.DataFunc(ctx, contractID, keyXDR, durability)
	}
	return stellar.LedgerEntry{}, nil
}

func (f *Fake) CallContractFunction(ctx context.Context, req stellar.InvokeRequest) (stellar.CallResult, error) {
	f.record("CallContractFunction")
	if f.CallFunc != nil {
		return f.CallFunc(ctx, req)
	}
	return stellar.CallResult{Success: true}, nil
}

func (f *Fake) SendTransaction(ctx context.Context, signedXDR string) (stellar.SendResult, error) {
	f.record("SendTransaction")
	if f.SendFunc != nil {
		return f.SendFunc(ctx, signedXDR)
	}
	return stellar.SendResult{Status: "PENDING"}, nil
}

func (f *Fake) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

// ContractID builds a valid C... strkey whose payload bytes are all fill
func ContractID(fill byte) string {
	raw := make([]byte, 32)
	for i := range raw {
		raw[i] = fill
	}
	id, err := strkey.Encode(strkey.VersionByteContract, raw)
	if err != nil {
		panic(err)
	}
	return id
}
