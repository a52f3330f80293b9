package manager

import (
	"context"

	"contractgateway/internal/stellar"
)

// GenerateXDR builds an unsigned invoke transaction for sourceAccount, prepared from a simulation
func (m *Manager) GenerateXDR(ctx context.Context, contractID, sourceAccount, function string, params []stellar.Parameter) (string, error) {
	req := stellar.InvokeRequest{
		ContractID:    contractID,
		SourceAccount: sourceAccount,
		Function:      function,
		Params:        params,
	}

	read := readRequest[string]{operation: "generate_xdr", args: req, ttl: ttlXDR}
	return cachedRead(ctx, m, contractID, read, func(ctx context.Context, rpc stellar.RPC) (string, error) {
		envelope, err := rpc.GenerateXDR(ctx, req)
		if err == nil {
			m.metrics.XDRGenerated.Inc()
		}
		return envelope, err
	})
}

// QueryEvents fetches contract events. Without filters the query is scoped to the contract.
func (m *Manager) QueryEvents(ctx context.Context, contractID string, query stellar.EventsQuery) (stellar.EventsPage, error) {
	if len(query.Filters) == 0 {
		query.Filters = []stellar.EventFilter{{Type: "contract", ContractIDs: []string{contractID}}}
	}

	read := readRequest[stellar.EventsPage]{operation: "query_events", args: query, ttl: ttlEvents}
	return cachedRead(ctx, m, contractID, read, func(ctx context.Context, rpc stellar.RPC) (stellar.EventsPage, error) {
		return rpc.GetEvents(ctx, query)
	})
}

// SimulateTransaction simulates a base64 transaction envelope
func (m *Manager) SimulateTransaction(ctx context.Context, contractID, txXDR string, opts stellar.SimulationOptions) (stellar.SimulationResult, error) {
	args := struct {
		TxXDR   string                    `json:"tx"`
		Options stellar.SimulationOptions `json:"options"`
	}{txXDR, opts}

	read := readRequest[stellar.SimulationResult]{operation: "simulate_transaction", args: args, ttl: ttlSimulation}
	return cachedRead(ctx, m, contractID, read, func(ctx context.Context, rpc stellar.RPC) (stellar.SimulationResult, error) {
		return rpc.SimulateTransaction(ctx, txXDR, opts)
	})
}

// GetContractData reads one storage entry. Persistent entries are cached longer than temporary ones.
func (m *Manager) GetContractData(ctx context.Context, contractID, keyXDR string, durability stellar.Durability) (stellar.LedgerEntry, error) {
	ttl := ttlPersistent
	if durability == stellar.DurabilityTemporary {
		ttl = ttlTemporary
	}

	args := struct {
		Key        string             `json:"key"`
		Durability stellar.Durability `json:"durability"`
	}{keyXDR, durability}

	read := readRequest[stellar.LedgerEntry]{operation: "get_contract_data", args: args, ttl: ttl}
	return cachedRead(ctx, m, contractID, read, func(ctx context.Context, rpc stellar.RPC) (stellar.LedgerEntry, error) {
		return rpc.GetContractData(ctx, contractID, keyXDR, durability)
	})
}

// CallContractFunction simulates a read-only call. A failed simulation is
// returned with Success false, counted as a failed operation and not cached.
func (m *Manager) CallContractFunction(ctx context.Context, contractID, function string, params []stellar.Parameter, sourceAccount string) (stellar.CallResult, error) {
	req := stellar.InvokeRequest{
		ContractID:    contractID,
		SourceAccount: sourceAccount,
		Function:      function,
		Params:        params,
	}

	read := readRequest[stellar.CallResult]{
		operation: "call_contract_function",
		args:      req,
		ttl:       ttlFunctionCall,
		succeeded: func(r stellar.CallResult) bool { return r.Success },
	}
	return cachedRead(ctx, m, contractID, read, func(ctx context.Context, rpc stellar.RPC) (stellar.CallResult, error) {
		return rpc.CallContractFunction(ctx, req)
	})
}
