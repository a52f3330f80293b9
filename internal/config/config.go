package config

import (
	"fmt"
	"time"

	"contractgateway/internal/retry"
	"contractgateway/internal/soroban/breaker"
	"contractgateway/internal/soroban/manager"
	"contractgateway/internal/soroban/pool"
	"contractgateway/internal/soroban/queue"
	"contractgateway/internal/soroban/registry"
)

// Store backends for the operation journal
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

type Config struct {
	// HTTP API
	HTTPPort string

	// Logging ( debug | info | warn | error, text | json )
	LogLevel  string
	LogFormat string

	// RPC endpoint used by the builtin testnet contracts
	SorobanRPCURL string
	RPCTimeout    time.Duration

	// Leaderboard contract id for the builtin list
	ContractID string

	// JSON array of contract metadata replacing the builtin list
	ContractsJSON string

	// Per-contract resources
	PoolMaxConnections      int
	PoolIdleTimeout         time.Duration
	BreakerFailureThreshold int
	BreakerSuccessThreshold int
	BreakerTimeout          time.Duration
	CacheDefaultTTL         time.Duration
	CacheCleanupInterval    time.Duration

	// Write queue ( 0 max backoff / max depth means uncapped )
	QueueMaxRetries  int
	QueueBackoffBase time.Duration
	QueueMaxBackoff  time.Duration
	QueueMaxDepth    int

	// Operation journal
	StoreBackend string
	DatabaseURL  string
	RedisAddr    string
	OperationTTL time.Duration

	// Startup RPC health probe
	Retry retry.Config
}

// Load reads the configuration from environment variables
func Load() *Config {
	return &Config{
		HTTPPort: getEnv("HTTP_PORT", "8080"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		SorobanRPCURL: getEnv("SOROBAN_RPC_URL", registry.NetworkTestnet.DefaultRPCURL()),
		RPCTimeout:    getEnvAsDuration("RPC_TIMEOUT_SEC", 30, time.Second),

		ContractID:    getEnv("CONTRACT_ID", defaultLeaderboardContractID),
		ContractsJSON: getEnv("CONTRACTS_JSON", ""),

		PoolMaxConnections:      getEnvAsInt("POOL_MAX_CONNECTIONS", 50),
		PoolIdleTimeout:         getEnvAsDuration("POOL_IDLE_TIMEOUT_SEC", 300, time.Second),
		BreakerFailureThreshold: getEnvAsInt("BREAKER_FAILURE_THRESHOLD", 5),
		BreakerSuccessThreshold: getEnvAsInt("BREAKER_SUCCESS_THRESHOLD", 2),
		BreakerTimeout:          getEnvAsDuration("BREAKER_TIMEOUT_SEC", 60, time.Second),
		CacheDefaultTTL:         getEnvAsDuration("CACHE_DEFAULT_TTL_SEC", 300, time.Second),
		CacheCleanupInterval:    getEnvAsDuration("CACHE_CLEANUP_INTERVAL_SEC", 60, time.Second),

		QueueMaxRetries:  getEnvAsInt("QUEUE_MAX_RETRIES", 3),
		QueueBackoffBase: getEnvAsDuration("QUEUE_BACKOFF_BASE_MS", 1000, time.Millisecond),
		QueueMaxBackoff:  getEnvAsDuration("QUEUE_MAX_BACKOFF_SEC", 0, time.Second),
		QueueMaxDepth:    getEnvAsInt("QUEUE_MAX_DEPTH", 0),

		StoreBackend: getEnv("STORE_BACKEND", StoreMemory),
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		RedisAddr:    getEnv("REDIS_ADDR", "localhost:6379"),
		OperationTTL: getEnvAsDuration("OPERATION_TTL_SEC", 86400, time.Second),

		Retry: retry.Config{
			Enabled:      getEnvAsBool("RETRY_ENABLED", true),
			MaxRetries:   getEnvAsInt("RETRY_MAX_RETRIES", 5),
			InitialDelay: getEnvAsDuration("RETRY_INITIAL_DELAY_SEC", 1, time.Second),
			MaxDelay:     getEnvAsDuration("RETRY_MAX_DELAY_SEC", 30, time.Second),
		},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return fmt.Errorf("HTTP_PORT is required")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be debug, info, warn or error, got %q", c.LogLevel)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	if c.PoolMaxConnections <= 0 {
		return fmt.Errorf("POOL_MAX_CONNECTIONS must be positive")
	}
	if c.BreakerFailureThreshold <= 0 || c.BreakerSuccessThreshold <= 0 {
		return fmt.Errorf("breaker thresholds must be positive")
	}
	if c.QueueMaxRetries < 0 {
		return fmt.Errorf("QUEUE_MAX_RETRIES must not be negative")
	}
	if c.QueueBackoffBase <= 0 {
		return fmt.Errorf("QUEUE_BACKOFF_BASE_MS must be positive")
	}
	if c.QueueMaxBackoff < 0 || c.QueueMaxDepth < 0 {
		return fmt.Errorf("queue caps must not be negative")
	}

	switch c.StoreBackend {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres store")
		}
	case StoreRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required for the redis store")
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be memory, postgres or redis, got %q", c.StoreBackend)
	}

	if _, err := c.Contracts(); err != nil {
		return err
	}
	return nil
}

// RegistryConfig returns the per-contract resource settings
func (c *Config) RegistryConfig() registry.Config {
	return registry.Config{
		Pool: pool.Config{
			MaxConnections: int64(c.PoolMaxConnections),
			IdleTimeout:    c.PoolIdleTimeout,
		},
		Breaker: breaker.Config{
			FailureThreshold: uint32(c.BreakerFailureThreshold),
			SuccessThreshold: uint32(c.BreakerSuccessThreshold),
			Timeout:          c.BreakerTimeout,
		},
		CacheTTL:        c.CacheDefaultTTL,
		CleanupInterval: c.CacheCleanupInterval,
	}
}

// ManagerConfig returns the write path settings
func (c *Config) ManagerConfig() manager.Config {
	return manager.Config{
		MaxRetries: c.QueueMaxRetries,
		Queue: queue.Config{
			BackoffBase: c.QueueBackoffBase,
			MaxBackoff:  c.QueueMaxBackoff,
			MaxDepth:    c.QueueMaxDepth,
		},
	}
}
