package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Expected defaults to validate, got: %v", err)
	}

	tests := []struct {
		name     string
		got      any
		expected any
	}{
		{"http port", cfg.HTTPPort, "8080"},
		{"rpc url", cfg.SorobanRPCURL, "https://soroban-testnet.stellar.org"},
		{"pool max", cfg.PoolMaxConnections, 50},
		{"pool idle", cfg.PoolIdleTimeout, 300 * time.Second},
		{"breaker failures", cfg.BreakerFailureThreshold, 5},
		{"breaker successes", cfg.BreakerSuccessThreshold, 2},
		{"breaker timeout", cfg.BreakerTimeout, 60 * time.Second},
		{"cache ttl", cfg.CacheDefaultTTL, 300 * time.Second},
		{"cache cleanup", cfg.CacheCleanupInterval, 60 * time.Second},
		{"queue retries", cfg.QueueMaxRetries, 3},
		{"queue backoff", cfg.QueueBackoffBase, time.Second},
		{"queue max backoff", cfg.QueueMaxBackoff, time.Duration(0)},
		{"store", cfg.StoreBackend, StoreMemory},
	}
	for _, tt := range tests {
		if tt.got != tt.expected {
			t.Errorf("%s: expected %v, got: %v", tt.name, tt.expected, tt.got)
		}
	}
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("POOL_MAX_CONNECTIONS", "10")
	t.Setenv("QUEUE_BACKOFF_BASE_MS", "250")
	t.Setenv("RETRY_ENABLED", "false")
	t.Setenv("BREAKER_TIMEOUT_SEC", "not-a-number")

	cfg := Load()

	if cfg.PoolMaxConnections != 10 {
		t.Errorf("Expected 10 connections, got: %d", cfg.PoolMaxConnections)
	}
	if cfg.QueueBackoffBase != 250*time.Millisecond {
		t.Errorf("Expected 250ms backoff base, got: %v", cfg.QueueBackoffBase)
	}
	if cfg.Retry.Enabled {
		t.Error("Expected retry to be disabled")
	}
	if cfg.BreakerTimeout != 60*time.Second {
		t.Errorf("Expected invalid value to fall back to default, got: %v", cfg.BreakerTimeout)
	}

	rc := cfg.RegistryConfig()
	if rc.Pool.MaxConnections != 10 || rc.Breaker.FailureThreshold != 5 {
		t.Errorf("Unexpected registry config: %+v", rc)
	}
	if mc := cfg.ManagerConfig(); mc.Queue.BackoffBase != 250*time.Millisecond || mc.MaxRetries != 3 {
		t.Errorf("Unexpected manager config: %+v", mc)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(c *Config)
		wantErr string
	}{
		{"bad log level", func(c *Config) { c.LogLevel = "trace" }, "LOG_LEVEL"},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, "LOG_FORMAT"},
		{"zero pool", func(c *Config) { c.PoolMaxConnections = 0 }, "POOL_MAX_CONNECTIONS"},
		{"negative retries", func(c *Config) { c.QueueMaxRetries = -1 }, "QUEUE_MAX_RETRIES"},
		{"postgres without dsn", func(c *Config) { c.StoreBackend = StorePostgres }, "DATABASE_URL"},
		{"unknown store", func(c *Config) { c.StoreBackend = "sqlite" }, "STORE_BACKEND"},
		{"broken contracts json", func(c *Config) { c.ContractsJSON = "[{" }, "CONTRACTS_JSON"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load()
			tt.modify(cfg)

			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error mentioning %s, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestContracts_Builtin(t *testing.T) {
	t.Setenv("CONTRACT_ID", "CLEADERBOARD")
	contracts, err := Load().Contracts()
	if err != nil {
		t.Fatalf("Contracts() error = %v", err)
	}

	if len(contracts) != 7 {
		t.Fatalf("Expected 7 builtin contracts, got: %d", len(contracts))
	}
	if contracts[0].ContractID != "CLEADERBOARD" {
		t.Errorf("Expected leaderboard id from env, got: %s", contracts[0].ContractID)
	}

	disabled := 0
	for _, c := range contracts {
		if !c.Enabled {
			disabled++
			if c.Network != "mainnet" {
				t.Errorf("Expected only the mainnet oracle to be disabled, got: %s", c.Name)
			}
		}
	}
	if disabled != 1 {
		t.Errorf("Expected 1 disabled contract, got: %d", disabled)
	}
}

func TestContracts_FromJSON(t *testing.T) {
	t.Setenv("CONTRACTS_JSON", `[{"contract_id":"CABC","name":"custom","network":"Standalone","enabled":true}]`)

	contracts, err := Load().Contracts()
	if err != nil {
		t.Fatalf("Contracts() error = %v", err)
	}
	if len(contracts) != 1 || contracts[0].Name != "custom" || contracts[0].Network != "standalone" {
		t.Errorf("Unexpected contracts: %+v", contracts)
	}
}
