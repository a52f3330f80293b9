package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"contractgateway/internal/models"
	"contractgateway/internal/soroban/manager"
	"contractgateway/internal/soroban/queue"
	"contractgateway/internal/soroban/registry"
	"contractgateway/internal/stellar"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxBodyBytes caps request bodies; signed envelopes are the largest payload
const maxBodyBytes = 1 << 20

// handleIndex returns basic gateway information
// GET / - Returns service info and available endpoints
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, http.StatusOK, models.ServiceInfo{
		Service: "Soroban Contract Gateway",
		Version: "1.0.0",
		Status:  "running",
		Endpoints: []string{
			"GET /health",
			"GET /metrics",
			"GET /soroban/metrics",
			"GET /soroban/contracts",
			"POST /soroban/contracts",
			"GET /soroban/contracts/{id}",
			"DELETE /soroban/contracts/{id}",
			"POST /soroban/contracts/{id}/reset",
			"POST /soroban/contracts/{id}/invalidate",
			"POST /soroban/xdr",
			"POST /soroban/events",
			"POST /soroban/simulate",
			"POST /soroban/data",
			"POST /soroban/call",
			"POST /soroban/transactions",
			"GET /soroban/operations/{id}",
		},
	})
}

// handleHealth returns health status
// GET /health - 200 when every check passes, 503 otherwise
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := s.manager.HealthCheck()

	code := http.StatusOK
	status := "healthy"
	if !health.Healthy {
		code = http.StatusServiceUnavailable
		status = "unhealthy"
	}

	s.sendJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC(),
		"service":   "contract-gateway",
		"checks":    health,
	})
}

// handleMetrics returns Prometheus metrics
// GET /metrics - Prometheus scraping endpoint
func (s *Server) handleMetrics() http.Handler {
	return promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})
}

// handleMetricsSnapshot returns the gateway counters as JSON
// GET /soroban/metrics
func (s *Server) handleMetricsSnapshot(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, http.StatusOK, s.manager.Metrics())
}

// =============================================================================
// CONTRACT REGISTRY ENDPOINTS
// =============================================================================

// RegisterContractRequest is the body of POST /soroban/contracts.
// Enabled defaults to true when omitted.
type RegisterContractRequest struct {
	ContractID        string               `json:"contract_id"`
	Name              string               `json:"name"`
	Network           registry.NetworkType `json:"network"`
	NetworkPassphrase string               `json:"network_passphrase"`
	RPCURL            string               `json:"rpc_url"`
	Description       string               `json:"description"`
	Version           string               `json:"version"`
	Enabled           *bool                `json:"enabled"`
}

// handleListContracts lists every registered contract
// GET /soroban/contracts
func (s *Server) handleListContracts(w http.ResponseWriter, r *http.Request) {
	contracts := s.manager.ListContracts()
	s.sendJSON(w, http.StatusOK, map[string]any{
		"contracts": contracts,
		"total":     len(contracts),
	})
}

// handleRegisterContract adds a contract at runtime
// POST /soroban/contracts
func (s *Server) handleRegisterContract(w http.ResponseWriter, r *http.Request) {
	var req RegisterContractRequest
	if !s.decode(w, r, &req) {
		return
	}

	meta := registry.ContractMetadata{
		ContractID:        req.ContractID,
		Name:              req.Name,
		Network:           req.Network,
		NetworkPassphrase: req.NetworkPassphrase,
		RPCURL:            req.RPCURL,
		Description:       req.Description,
		Version:           req.Version,
		Enabled:           req.Enabled == nil || *req.Enabled,
	}

	if err := s.manager.RegisterContract(meta); err != nil {
		s.sendManagerError(w, err)
		return
	}

	if !meta.Enabled {
		s.sendJSON(w, http.StatusOK, models.MessageResponse{
			Message: fmt.Sprintf("contract %s is disabled and was not registered", meta.ContractID),
		})
		return
	}

	info, err := s.manager.ContractInfo(meta.ContractID)
	if err != nil {
		s.sendManagerError(w, err)
		return
	}
	s.sendJSON(w, http.StatusCreated, info.Metadata)
}

// handleContractInfo returns a contract with its pool, breaker and cache stats
// GET /soroban/contracts/{id}
func (s *Server) handleContractInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.manager.ContractInfo(mux.Vars(r)["id"])
	if err != nil {
		s.sendManagerError(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, info)
}

// handleUnregisterContract removes a contract
// DELETE /soroban/contracts/{id}
func (s *Server) handleUnregisterContract(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.manager.UnregisterContract(id); err != nil {
		s.sendManagerError(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, models.MessageResponse{Message: fmt.Sprintf("contract %s unregistered", id)})
}

// handleResetBreaker forces a contract's circuit breaker closed
// POST /soroban/contracts/{id}/reset
func (s *Server) handleResetBreaker(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.manager.ResetCircuitBreaker(id); err != nil {
		s.sendManagerError(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, models.MessageResponse{Message: fmt.Sprintf("circuit breaker for %s reset", id)})
}

// handleInvalidateCache drops every cached read of a contract
// POST /soroban/contracts/{id}/invalidate
func (s *Server) handleInvalidateCache(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.manager.InvalidateCache(id); err != nil {
		s.sendManagerError(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, models.MessageResponse{Message: fmt.Sprintf("cache for %s invalidated", id)})
}

// =============================================================================
// READ ENDPOINTS
// =============================================================================

// handleGenerateXDR builds an unsigned invocation envelope
// POST /soroban/xdr
func (s *Server) handleGenerateXDR(w http.ResponseWriter, r *http.Request) {
	var req GenerateXDRRequest
	if !s.decodeValid(w, r, &req, req.validate) {
		return
	}

	xdr, err := s.manager.GenerateXDR(r.Context(), req.ContractID, req.SourceAccount, req.Function, req.Params)
	if err != nil {
		s.sendManagerError(w, err)
		return
	}

	s.sendJSON(w, http.StatusOK, models.XDRResponse{
		ContractID: req.ContractID,
		Function:   req.Function,
		XDR:        xdr,
	})
}

// handleQueryEvents returns one page of contract events
// POST /soroban/events
func (s *Server) handleQueryEvents(w http.ResponseWriter, r *http.Request) {
	var req QueryEventsRequest
	if !s.decodeValid(w, r, &req, req.validate) {
		return
	}

	page, err := s.manager.QueryEvents(r.Context(), req.ContractID, req.query())
	if err != nil {
		s.sendManagerError(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, page)
}

// handleSimulate simulates a transaction envelope
// POST /soroban/simulate
func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var req SimulateRequest
	if !s.decodeValid(w, r, &req, req.validate) {
		return
	}

	result, err := s.manager.SimulateTransaction(r.Context(), req.ContractID, req.TransactionXDR, req.Options)
	if err != nil {
		s.sendManagerError(w, err)
		return
	}

	s.sendJSON(w, http.StatusOK, map[string]any{
		"success":    result.Success(),
		"simulation": result,
	})
}

// handleContractData reads one contract storage entry
// POST /soroban/data
func (s *Server) handleContractData(w http.ResponseWriter, r *http.Request) {
	var req ContractDataRequest
	if !s.decodeValid(w, r, &req, req.validate) {
		return
	}

	durability, err := stellar.ParseDurability(req.Durability)
	if err != nil {
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	entry, err := s.manager.GetContractData(r.Context(), req.ContractID, req.KeyXDR, durability)
	if err != nil {
		s.sendManagerError(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, entry)
}

// handleCallFunction runs a read-only contract call.
// A call the contract rejects still returns 200 with success false.
// POST /soroban/call
func (s *Server) handleCallFunction(w http.ResponseWriter, r *http.Request) {
	var req CallFunctionRequest
	if !s.decodeValid(w, r, &req, req.validate) {
		return
	}

	result, err := s.manager.CallContractFunction(r.Context(), req.ContractID, req.Function, req.Params, req.SourceAccount)
	if err != nil {
		s.sendManagerError(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, result)
}

// =============================================================================
// WRITE ENDPOINTS
// =============================================================================

// handleSubmitTransaction queues a signed transaction and returns at once
// POST /soroban/transactions - 202 with the operation id
func (s *Server) handleSubmitTransaction(w http.ResponseWriter, r *http.Request) {
	var req SubmitTransactionRequest
	if !s.decodeValid(w, r, &req, req.validate) {
		return
	}

	priority, err := queue.ParsePriority(req.Priority)
	if err != nil {
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	id, err := s.manager.SubmitTransaction(r.Context(), manager.SubmitRequest{
		ContractID:    req.ContractID,
		SourceAccount: req.SourceAccount,
		FunctionName:  req.Function,
		SignedXDR:     req.SignedXDR,
		Priority:      priority,
	})
	if err != nil {
		s.sendManagerError(w, err)
		return
	}

	s.sendJSON(w, http.StatusAccepted, models.OperationAcceptedResponse{
		OperationID: id,
		Status:      string(models.OperationPending),
		AcceptedAt:  time.Now().UTC(),
	})
}

// handleOperationStatus returns the journal record of a submitted transaction
// GET /soroban/operations/{id}
func (s *Server) handleOperationStatus(w http.ResponseWriter, r *http.Request) {
	record, err := s.manager.OperationStatus(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.sendManagerError(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, record)
}

// =============================================================================
// HELPERS
// =============================================================================

// decode reads a JSON body into v, writing a 400 on failure
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		s.sendError(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return false
	}
	return true
}

// decodeValid decodes and then runs validate; validate must be bound to v
func (s *Server) decodeValid(w http.ResponseWriter, r *http.Request, v any, validate func() error) bool {
	if !s.decode(w, r, v) {
		return false
	}
	if err := validate(); err != nil {
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

// sendJSON writes v as a JSON response
func (s *Server) sendJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// sendManagerError maps err to a status code and writes it
func (s *Server) sendManagerError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError && !errors.Is(err, queue.ErrQueueClosed) {
		slog.Error("Request failed", "status", code, "error", err)
	}
	s.sendError(w, err.Error(), code)
}

// sendError sends an error response
func (s *Server) sendError(w http.ResponseWriter, message string, code int) {
	s.sendJSON(w, code, models.ErrorResponse{
		Error:   http.StatusText(code),
		Message: message,
		Code:    code,
	})
}
