package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"contractgateway/internal/metrics"
	"contractgateway/internal/models"
	"contractgateway/internal/soroban/manager"
	"contractgateway/internal/soroban/registry"
	"contractgateway/internal/stellar"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
)

// ContractManager is the manager surface the HTTP layer calls into
type ContractManager interface {
	RegisterContract(meta registry.ContractMetadata) error
	UnregisterContract(contractID string) error
	ListContracts() []registry.ContractMetadata
	ContractInfo(contractID string) (manager.ContractInfo, error)
	InvalidateCache(contractID string) error
	ResetCircuitBreaker(contractID string) error
	Metrics() metrics.Snapshot
	HealthCheck() manager.HealthStatus

	GenerateXDR(ctx context.Context, contractID, sourceAccount, function string, params []stellar.Parameter) (string, error)
	QueryEvents(ctx context.Context, contractID string, query stellar.EventsQuery) (stellar.EventsPage, error)
	SimulateTransaction(ctx context.Context, contractID, txXDR string, opts stellar.SimulationOptions) (stellar.SimulationResult, error)
	GetContractData(ctx context.Context, contractID, keyXDR string, durability stellar.Durability) (stellar.LedgerEntry, error)
	CallContractFunction(ctx context.Context, contractID, function string, params []stellar.Parameter, sourceAccount string) (stellar.CallResult, error)

	SubmitTransaction(ctx context.Context, req manager.SubmitRequest) (string, error)
	OperationStatus(ctx context.Context, id string) (*models.OperationRecord, error)
}

var _ ContractManager = (*manager.Manager)(nil)

// Server represents the HTTP API server
// Provides endpoints for Prometheus metrics, health checks and the contract gateway
type Server struct {
	httpServer *http.Server
	router     *mux.Router
	manager    ContractManager
	gatherer   prometheus.Gatherer
	port       string
}

// NewServer creates a new API server instance.
// gatherer backs the /metrics endpoint.
func NewServer(port string, mgr ContractManager, gatherer prometheus.Gatherer) *Server {
	router := mux.NewRouter()

	s := &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%s", port),
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		router:   router,
		manager:  mgr,
		gatherer: gatherer,
		port:     port,
	}

	// Register all HTTP routes
	s.registerRoutes()

	return s
}

// Handler exposes the router, used by tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// registerRoutes sets up all HTTP routes
func (s *Server) registerRoutes() {
	// Core endpoints
	s.router.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.Handle("/metrics", s.handleMetrics()).Methods(http.MethodGet)

	api := s.router.PathPrefix("/soroban").Subrouter()
	api.HandleFunc("/metrics", s.handleMetricsSnapshot).Methods(http.MethodGet)

	// Contract registry
	api.HandleFunc("/contracts", s.handleListContracts).Methods(http.MethodGet)
	api.HandleFunc("/contracts", s.handleRegisterContract).Methods(http.MethodPost)
	api.HandleFunc("/contracts/{id}", s.handleContractInfo).Methods(http.MethodGet)
	api.HandleFunc("/contracts/{id}", s.handleUnregisterContract).Methods(http.MethodDelete)
	api.HandleFunc("/contracts/{id}/reset", s.handleResetBreaker).Methods(http.MethodPost)
	api.HandleFunc("/contracts/{id}/invalidate", s.handleInvalidateCache).Methods(http.MethodPost)

	// Reads
	api.HandleFunc("/xdr", s.handleGenerateXDR).Methods(http.MethodPost)
	api.HandleFunc("/events", s.handleQueryEvents).Methods(http.MethodPost)
	api.HandleFunc("/simulate", s.handleSimulate).Methods(http.MethodPost)
	api.HandleFunc("/data", s.handleContractData).Methods(http.MethodPost)
	api.HandleFunc("/call", s.handleCallFunction).Methods(http.MethodPost)

	// Writes
	api.HandleFunc("/transactions", s.handleSubmitTransaction).Methods(http.MethodPost)
	api.HandleFunc("/operations/{id}", s.handleOperationStatus).Methods(http.MethodGet)

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.sendError(w, "Endpoint not found", http.StatusNotFound)
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
	})
}

// Start starts the HTTP server in a goroutine
// Returns immediately after starting the server
func (s *Server) Start() error {
	go func() {
		slog.Info("API server starting",
			"port", s.port,
			"endpoints", []string{"/", "/health", "/metrics", "/soroban"},
		)

		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("API server error", "error", err)
		}
	}()

	// Give the server a moment to start
	time.Sleep(100 * time.Millisecond)

	return nil
}

// Shutdown gracefully shuts down the HTTP server
// Waits for active connections to close or context to timeout
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("API server shutting down...")
	return s.httpServer.Shutdown(ctx)
}
