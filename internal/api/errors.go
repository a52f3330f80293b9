package api

import (
	"errors"
	"net/http"

	"contractgateway/internal/soroban/manager"
	"contractgateway/internal/soroban/queue"
	"contractgateway/internal/soroban/registry"
	"contractgateway/internal/stellar"
	"contractgateway/internal/storage"
)

// statusFor maps a manager error to an HTTP status code
func statusFor(err error) int {
	switch {
	case errors.Is(err, stellar.ErrInvalidParameter), errors.Is(err, registry.ErrInvalidMetadata):
		return http.StatusBadRequest
	case errors.Is(err, manager.ErrContractNotFound),
		errors.Is(err, registry.ErrNotFound),
		errors.Is(err, storage.ErrNotFound),
		errors.Is(err, stellar.ErrEntryNotFound):
		return http.StatusNotFound
	case errors.Is(err, queue.ErrQueueFull):
		return http.StatusTooManyRequests
	case errors.Is(err, manager.ErrCircuitOpen),
		errors.Is(err, manager.ErrPool),
		errors.Is(err, queue.ErrQueueClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, manager.ErrInnerCall):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
