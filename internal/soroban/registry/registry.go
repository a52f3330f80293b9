package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"sync"
	"time"

	"contractgateway/internal/soroban/breaker"
	"contractgateway/internal/soroban/cache"
	"contractgateway/internal/soroban/pool"
	"contractgateway/internal/stellar"
)

var (
	// ErrNotFound is returned when unregistering an unknown contract
	ErrNotFound = errors.New("contract not found")
	// ErrInvalidMetadata is returned by Register for metadata that cannot be resourced
	ErrInvalidMetadata = errors.New("invalid contract metadata")
)

// ContractMetadata describes one contract and the network it lives on
type ContractMetadata struct {
	ContractID        string      `json:"contract_id"`
	Name              string      `json:"name"`
	Network           NetworkType `json:"network"`
	NetworkPassphrase string      `json:"network_passphrase"`
	RPCURL            string      `json:"rpc_url"`
	Description       string      `json:"description,omitempty"`
	Version           string      `json:"version,omitempty"`
	Enabled           bool        `json:"enabled"`
}

// Dialer opens an RPC connection for a contract; it backs each contract's pool
type Dialer func(ctx context.Context, meta ContractMetadata) (stellar.RPC, error)

// Config holds the resource settings applied to every registered contract
type Config struct {
	Pool            pool.Config
	Breaker         breaker.Config
	CacheTTL        time.Duration
	CleanupInterval time.Duration
}

// DefaultConfig returns the pool, breaker and cache defaults
func DefaultConfig() Config {
	return Config{
		Pool:            pool.DefaultConfig(),
		Breaker:         breaker.DefaultConfig(),
		CacheTTL:        300 * time.Second,
		CleanupInterval: cache.DefaultCleanupInterval,
	}
}

// Contract bundles the resources of one registered contract.
// Every holder of a *Contract shares the same pool, breaker and cache.
// Holders obtained from Get must call Release when done; the pool is closed
// once the registry has dropped the contract and the last holder released it.
type Contract struct {
	Metadata ContractMetadata
	Pool     *pool.Pool[stellar.RPC]
	Breaker  *breaker.Breaker
	Cache    *cache.Cache[[]byte]

	stopJanitor context.CancelFunc

	mu      sync.Mutex
	refs    int
	retired bool
}

func (c *Contract) acquire() {
	c.mu.Lock()
	c.refs++
	c.mu.Unlock()
}

// Release returns a reference taken by Registry.Get
func (c *Contract) Release() {
	c.mu.Lock()
	if c.refs > 0 {
		c.refs--
	}
	closePool := c.retired && c.refs == 0
	c.mu.Unlock()

	if closePool {
		c.closePool()
	}
}

// retire marks the contract as dropped by the registry. Its pool is closed
// now if nobody holds it, otherwise by the last Release.
func (c *Contract) retire() {
	c.stopJanitor()

	c.mu.Lock()
	already := c.retired
	c.retired = true
	closePool := !already && c.refs == 0
	c.mu.Unlock()

	if closePool {
		c.closePool()
	}
}

func (c *Contract) closePool() {
	c.Pool.Close()
	slog.Debug("Closed pool of dropped contract", "contract_id", c.Metadata.ContractID)
}

// Stats counts registered contracts
type Stats struct {
	Total    int `json:"total"`
	Enabled  int `json:"enabled"`
	Disabled int `json:"disabled"`
}

// Registry maps contract ids to their resources
type Registry struct {
	mu        sync.RWMutex
	contracts map[string]*Contract
	config    Config
	dial      Dialer
}

// New creates an empty registry
func New(config Config, dial Dialer) *Registry {
	slog.Info("🗂️  Initializing contract registry",
		"max_connections", config.Pool.MaxConnections,
		"cache_ttl", config.CacheTTL,
	)

	return &Registry{
		contracts: make(map[string]*Contract),
		config:    config,
		dial:      dial,
	}
}

// Register creates fresh resources for meta, replacing any prior entry with the same id.
// A disabled contract is skipped and nil is returned.
func (r *Registry) Register(meta ContractMetadata) error {
	if !meta.Enabled {
		slog.Warn("⚠️  Contract is disabled, skipping registration",
			"contract_id", meta.ContractID,
			"name", meta.Name,
		)
		return nil
	}

	meta, err := normalize(meta)
	if err != nil {
		return err
	}

	slog.Info("📝 Registering contract",
		"contract_id", meta.ContractID,
		"name", meta.Name,
		"network", meta.Network,
	)

	contract := r.newContract(meta)

	r.mu.Lock()
	prev, replaced := r.contracts[meta.ContractID]
	r.contracts[meta.ContractID] = contract
	r.mu.Unlock()

	if replaced {
		prev.retire()
		slog.Info("Replaced existing contract registration", "contract_id", meta.ContractID)
	}

	slog.Info("✅ Contract registered", "contract_id", meta.ContractID, "name", meta.Name)
	return nil
}

func (r *Registry) newContract(meta ContractMetadata) *Contract {
	dial := r.dial
	factory := func(ctx context.Context) (stellar.RPC, error) {
		return dial(ctx, meta)
	}

	c := cache.New[[]byte](r.config.CacheTTL)
	janitorCtx, stop := context.WithCancel(context.Background())
	c.StartJanitor(janitorCtx, r.config.CleanupInterval)

	return &Contract{
		Metadata:    meta,
		Pool:        pool.New(meta.ContractID, r.config.Pool, factory),
		Breaker:     breaker.New(meta.ContractID, r.config.Breaker),
		Cache:       c,
		stopJanitor: stop,
	}
}

// normalize fills network defaults and validates the metadata
func normalize(meta ContractMetadata) (ContractMetadata, error) {
	if !stellar.IsContractID(meta.ContractID) {
		return meta, fmt.Errorf("%w: %q is not a contract id", ErrInvalidMetadata, meta.ContractID)
	}

	if meta.Network == "" {
		meta.Network = NetworkTestnet
	}
	network, err := ParseNetworkType(string(meta.Network))
	if err != nil {
		return meta, fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}
	meta.Network = network

	if meta.NetworkPassphrase == "" {
		meta.NetworkPassphrase = meta.Network.DefaultPassphrase()
	}
	if meta.RPCURL == "" {
		meta.RPCURL = meta.Network.DefaultRPCURL()
	}

	u, err := url.Parse(meta.RPCURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return meta, fmt.Errorf("%w: rpc url %q must be an absolute http(s) url", ErrInvalidMetadata, meta.RPCURL)
	}

	if meta.Name == "" {
		meta.Name = meta.ContractID
	}
	return meta, nil
}

// Get returns the shared resources of a contract and takes a reference to them.
// The caller must call Release on the returned contract.
func (r *Registry) Get(contractID string) (*Contract, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.contracts[contractID]
	if ok {
		c.acquire()
	}
	return c, ok
}

// Unregister drops the registry's reference to a contract.
// Callers still holding the contract keep using its pool until they release it.
func (r *Registry) Unregister(contractID string) error {
	r.mu.Lock()
	c, ok := r.contracts[contractID]
	if ok {
		delete(r.contracts, contractID)
	}
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, contractID)
	}

	c.retire()
	slog.Info("🗑️  Unregistered contract", "contract_id", contractID)
	return nil
}

// ListAll returns the metadata of every registered contract ordered by id
func (r *Registry) ListAll() []ContractMetadata {
	r.mu.RLock()
	list := make([]ContractMetadata, 0, len(r.contracts))
	for _, c := range r.contracts {
		list = append(list, c.Metadata)
	}
	r.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool { return list[i].ContractID < list[j].ContractID })
	return list
}

// Stats counts registered contracts by enabled flag
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := Stats{Total: len(r.contracts)}
	for _, c := range r.contracts {
		if c.Metadata.Enabled {
			stats.Enabled++
		} else {
			stats.Disabled++
		}
	}
	return stats
}

// Close stops every janitor and closes every pool
func (r *Registry) Close() {
	r.mu.Lock()
	contracts := r.contracts
	r.contracts = make(map[string]*Contract)
	r.mu.Unlock()

	for _, c := range contracts {
		c.retire()
		// shutdown does not wait for holders; Pool.Close lets checked-out handles finish
		c.Pool.Close()
	}
	slog.Info("Contract registry closed", "contracts", len(contracts))
}
