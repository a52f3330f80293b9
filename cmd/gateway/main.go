package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"contractgateway/internal/api"
	"contractgateway/internal/config"
	"contractgateway/internal/metrics"
	"contractgateway/internal/retry"
	"contractgateway/internal/soroban/manager"
	"contractgateway/internal/soroban/registry"
	"contractgateway/internal/stellar"
	"contractgateway/internal/storage"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

func main() {
	fmt.Println("🌟 Starting Soroban Contract Gateway...")

	// 1. Load configuration
	_ = godotenv.Load()
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}

	// 2. Configure logger
	setupLogger(cfg)

	slog.Info("Configuration loaded",
		"http_port", cfg.HTTPPort,
		"rpc_server", cfg.SorobanRPCURL,
		"store", cfg.StoreBackend,
		"log_level", cfg.LogLevel,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Operation journal
	store, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("❌ Failed to open operation store: %v", err)
	}
	defer store.Close()

	// 4. Contract registry, one RPC client per pooled connection
	reg := registry.New(cfg.RegistryConfig(), func(ctx context.Context, meta registry.ContractMetadata) (stellar.RPC, error) {
		return stellar.NewClient(meta.RPCURL, meta.NetworkPassphrase, cfg.RPCTimeout), nil
	})

	contracts, err := cfg.Contracts()
	if err != nil {
		log.Fatalf("❌ Failed to load contracts: %v", err)
	}

	// 5. Manager
	mgr := manager.New(reg, store, metrics.New(prometheus.DefaultRegisterer), cfg.ManagerConfig())
	for _, meta := range contracts {
		if err := mgr.RegisterContract(meta); err != nil {
			slog.Error("Failed to register contract",
				"contract_id", meta.ContractID,
				"name", meta.Name,
				"error", err,
			)
		}
	}

	probeEndpoints(ctx, cfg, mgr.ListContracts())

	mgr.Start(ctx)

	// 6. HTTP API
	server := api.NewServer(cfg.HTTPPort, mgr, prometheus.DefaultGatherer)
	if err := server.Start(); err != nil {
		log.Fatalf("❌ Failed to start API server: %v", err)
	}

	// 7. Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	slog.Warn("Interrupt received, shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Error stopping API server", "error", err)
	}
	cancel()
	if err := mgr.Close(shutdownCtx); err != nil {
		slog.Error("Error stopping contract manager", "error", err)
	}

	slog.Info("Gateway stopped")
}

func setupLogger(cfg *config.Config) {
	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	var handler slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func openStore(ctx context.Context, cfg *config.Config) (storage.OperationStore, error) {
	switch cfg.StoreBackend {
	case config.StorePostgres:
		store, err := storage.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureSchema(ctx); err != nil {
			store.Close()
			return nil, err
		}
		slog.Info("Database connected successfully")
		return store, nil
	case config.StoreRedis:
		return storage.NewRedisStore(ctx, cfg.RedisAddr, cfg.OperationTTL)
	default:
		return storage.NewMemoryStore(), nil
	}
}

// probeEndpoints checks every distinct RPC URL once. Failures are logged only;
// the breakers take over once traffic starts.
func probeEndpoints(ctx context.Context, cfg *config.Config, contracts []registry.ContractMetadata) {
	endpoints := make(map[string]string)
	for _, meta := range contracts {
		endpoints[meta.RPCURL] = meta.NetworkPassphrase
	}

	g, ctx := errgroup.WithContext(ctx)
	for url, passphrase := range endpoints {
		g.Go(func() error {
			client := stellar.NewClient(url, passphrase, cfg.RPCTimeout)
			defer client.Close()

			var health stellar.Health
			err := retry.NewStrategy(cfg.Retry).Execute(ctx, func() error {
				var err error
				health, err = client.Health(ctx)
				return err
			})
			if err != nil {
				slog.Warn("⚠️  RPC endpoint unreachable", "rpc_url", url, "error", err)
				return nil
			}

			slog.Info("RPC endpoint reachable",
				"rpc_url", url,
				"status", health.Status,
				"latest_ledger", health.LatestLedger,
			)
			return nil
		})
	}
	_ = g.Wait()
}
