package manager

import (
	"errors"

	"contractgateway/internal/soroban/breaker"
	"contractgateway/internal/stellar"
)

var (
	// ErrContractNotFound is returned for contracts missing from the registry
	ErrContractNotFound = errors.New("contract not found")
	// ErrPool wraps failures to obtain a pooled connection
	ErrPool = errors.New("connection pool error")
	// ErrCircuitOpen is returned while a contract's breaker rejects calls
	ErrCircuitOpen = breaker.ErrCircuitOpen
	// ErrInnerCall wraps failures of the RPC call itself
	ErrInnerCall = errors.New("contract rpc call failed")
)

// errorKind labels an error for the errors metric
func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrContractNotFound):
		return "contract_not_found"
	case errors.Is(err, ErrCircuitOpen):
		return "circuit_open"
	case errors.Is(err, ErrPool):
		return "pool"
	case errors.Is(err, stellar.ErrInvalidParameter):
		return "invalid_request"
	default:
		return "inner_call"
	}
}

// requestError reports errors caused by the request rather than the endpoint.
// They are returned to the caller but do not count against the breaker.
func requestError(err error) bool {
	return errors.Is(err, stellar.ErrInvalidParameter) || errors.Is(err, stellar.ErrEntryNotFound)
}
