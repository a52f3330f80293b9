package registry

import (
	"context"
	"errors"
	"testing"
	"time"

	"contractgateway/internal/stellar"
	"contractgateway/internal/stellar/stellartest"

	"github.com/goccy/go-json"
)

func newTestRegistry(t *testing.T) (*Registry, *int) {
	t.Helper()
	dials := 0
	r := New(DefaultConfig(), func(ctx context.Context, meta ContractMetadata) (stellar.RPC, error) {
		dials++
		return &stellartest.Fake{}, nil
	})
	t.Cleanup(r.Close)
	return r, &dials
}

// newDialRecordingRegistry keeps every connection it dials
func newDialRecordingRegistry(t *testing.T) (*Registry, *[]*stellartest.Fake) {
	t.Helper()
	var fakes []*stellartest.Fake
	r := New(DefaultConfig(), func(ctx context.Context, meta ContractMetadata) (stellar.RPC, error) {
		f := &stellartest.Fake{}
		fakes = append(fakes, f)
		return f, nil
	})
	t.Cleanup(r.Close)
	return r, &fakes
}

// openIdleConnection dials one connection and returns it to the pool
func openIdleConnection(t *testing.T, c *Contract) {
	t.Helper()
	h, err := c.Pool.Get(context.Background())
	if err != nil {
		t.Fatalf("Pool.Get() error = %v", err)
	}
	h.Release()
}

func testMetadata(fill byte) ContractMetadata {
	return ContractMetadata{
		ContractID: stellartest.ContractID(fill),
		Name:       "test",
		Network:    NetworkTestnet,
		Enabled:    true,
	}
}

func TestRegistry_DisabledIsNoop(t *testing.T) {
	r, _ := newTestRegistry(t)

	meta := testMetadata(1)
	meta.Enabled = false
	if err := r.Register(meta); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if _, ok := r.Get(meta.ContractID); ok {
		t.Error("Expected disabled contract to be absent")
	}
	if len(r.ListAll()) != 0 {
		t.Errorf("Expected empty list, got: %v", r.ListAll())
	}
	if stats := r.Stats(); stats.Total != 0 {
		t.Errorf("Expected 0 contracts, got: %d", stats.Total)
	}
}

func TestRegistry_RegisterFillsNetworkDefaults(t *testing.T) {
	r, _ := newTestRegistry(t)

	meta := testMetadata(2)
	meta.Network = NetworkMainnet
	if err := r.Register(meta); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	c, ok := r.Get(meta.ContractID)
	if !ok {
		t.Fatal("Expected contract to be registered")
	}
	if c.Metadata.NetworkPassphrase != "Public Global Stellar Network ; September 2015" {
		t.Errorf("Unexpected passphrase: %s", c.Metadata.NetworkPassphrase)
	}
	if c.Metadata.RPCURL != "https://mainnet.sorobanrpc.com" {
		t.Errorf("Unexpected rpc url: %s", c.Metadata.RPCURL)
	}
}

func TestRegistry_RegisterNormalizesNetworkCase(t *testing.T) {
	r, _ := newTestRegistry(t)

	meta := testMetadata(13)
	meta.Network = " Testnet"
	if err := r.Register(meta); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	c, ok := r.Get(meta.ContractID)
	if !ok {
		t.Fatal("Expected contract to be registered")
	}
	defer c.Release()

	if c.Metadata.Network != NetworkTestnet {
		t.Errorf("Expected network %s, got: %q", NetworkTestnet, c.Metadata.Network)
	}
	if c.Metadata.RPCURL != NetworkTestnet.DefaultRPCURL() {
		t.Errorf("Expected testnet rpc url, got: %s", c.Metadata.RPCURL)
	}
	if c.Metadata.NetworkPassphrase != NetworkTestnet.DefaultPassphrase() {
		t.Errorf("Expected testnet passphrase, got: %s", c.Metadata.NetworkPassphrase)
	}
}

func TestRegistry_RegisterValidation(t *testing.T) {
	tests := []struct {
		name   string
		modify func(m *ContractMetadata)
	}{
		{"account id instead of contract", func(m *ContractMetadata) { m.ContractID = stellar.DefaultSourceAccount }},
		{"garbage id", func(m *ContractMetadata) { m.ContractID = "CONTRACT" }},
		{"unknown network", func(m *ContractMetadata) { m.Network = "devnet" }},
		{"relative url", func(m *ContractMetadata) { m.RPCURL = "/soroban/rpc" }},
		{"unsupported scheme", func(m *ContractMetadata) { m.RPCURL = "ftp://example.com" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newTestRegistry(t)
			meta := testMetadata(3)
			tt.modify(&meta)

			if err := r.Register(meta); !errors.Is(err, ErrInvalidMetadata) {
				t.Errorf("Expected ErrInvalidMetadata, got: %v", err)
			}
		})
	}
}

func TestRegistry_GetSharesResources(t *testing.T) {
	r, _ := newTestRegistry(t)
	meta := testMetadata(4)
	if err := r.Register(meta); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	first, _ := r.Get(meta.ContractID)
	second, _ := r.Get(meta.ContractID)

	first.Cache.Set("key", []byte("value"), time.Minute)
	if got, ok := second.Cache.Get("key"); !ok || string(got) != "value" {
		t.Errorf("Expected cache write to be visible through second handle, got: %q", got)
	}

	first.Breaker.Execute(context.Background(), func(ctx context.Context) error { return errors.New("boom") })
	if second.Breaker.Stats().FailureCount != 1 {
		t.Errorf("Expected shared breaker failure count 1, got: %d", second.Breaker.Stats().FailureCount)
	}
}

func TestRegistry_PoolUsesDialer(t *testing.T) {
	r, dials := newTestRegistry(t)
	meta := testMetadata(5)
	if err := r.Register(meta); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	c, _ := r.Get(meta.ContractID)
	h, err := c.Pool.Get(context.Background())
	if err != nil {
		t.Fatalf("Pool.Get() error = %v", err)
	}
	h.Release()

	if *dials != 1 {
		t.Errorf("Expected 1 dial, got: %d", *dials)
	}
}

func TestRegistry_RegisterOverwrites(t *testing.T) {
	r, _ := newTestRegistry(t)
	meta := testMetadata(6)
	if err := r.Register(meta); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	old, _ := r.Get(meta.ContractID)
	old.Cache.Set("key", []byte("value"), time.Minute)

	meta.Version = "2"
	if err := r.Register(meta); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	current, _ := r.Get(meta.ContractID)
	if current == old {
		t.Fatal("Expected fresh resources after re-registration")
	}
	if current.Metadata.Version != "2" {
		t.Errorf("Expected version 2, got: %s", current.Metadata.Version)
	}
	if _, ok := current.Cache.Get("key"); ok {
		t.Error("Expected fresh cache to be empty")
	}
	if r.Stats().Total != 1 {
		t.Errorf("Expected 1 contract, got: %d", r.Stats().Total)
	}
}

func TestRegistry_Unregister(t *testing.T) {
	r, fakes := newDialRecordingRegistry(t)
	meta := testMetadata(7)
	if err := r.Register(meta); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	held, _ := r.Get(meta.ContractID)
	openIdleConnection(t, held)

	if err := r.Unregister(meta.ContractID); err != nil {
		t.Fatalf("Unregister() error = %v", err)
	}
	if _, ok := r.Get(meta.ContractID); ok {
		t.Error("Expected contract to be gone")
	}

	// a holder from before unregister can still use the pool
	h, err := held.Pool.Get(context.Background())
	if err != nil {
		t.Fatalf("Expected held pool to stay usable, got: %v", err)
	}
	h.Release()
	if (*fakes)[0].Closed() {
		t.Error("Expected connection to stay open while the contract is held")
	}

	held.Release()
	if !(*fakes)[0].Closed() {
		t.Error("Expected idle connection to be closed after the last holder released")
	}
	if _, err := held.Pool.Get(context.Background()); err == nil {
		t.Error("Expected pool of dropped contract to be closed")
	}

	if err := r.Unregister(meta.ContractID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got: %v", err)
	}
}

func TestRegistry_UnregisterClosesUnheldPool(t *testing.T) {
	r, fakes := newDialRecordingRegistry(t)
	meta := testMetadata(11)
	if err := r.Register(meta); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	c, _ := r.Get(meta.ContractID)
	openIdleConnection(t, c)
	c.Release()

	if (*fakes)[0].Closed() {
		t.Fatal("Expected idle connection to stay open while registered")
	}
	if err := r.Unregister(meta.ContractID); err != nil {
		t.Fatalf("Unregister() error = %v", err)
	}
	if !(*fakes)[0].Closed() {
		t.Error("Expected idle connection to be closed on unregister")
	}
}

func TestRegistry_ReRegisterClosesReplacedPool(t *testing.T) {
	r, fakes := newDialRecordingRegistry(t)
	meta := testMetadata(12)
	if err := r.Register(meta); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	c, _ := r.Get(meta.ContractID)
	openIdleConnection(t, c)
	c.Release()

	if err := r.Register(meta); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if !(*fakes)[0].Closed() {
		t.Error("Expected connection of the replaced registration to be closed")
	}

	current, _ := r.Get(meta.ContractID)
	defer current.Release()
	if _, err := current.Pool.Get(context.Background()); err != nil {
		t.Errorf("Expected new registration to be usable, got: %v", err)
	}
}

func TestRegistry_ListAllAndStats(t *testing.T) {
	r, _ := newTestRegistry(t)
	for _, fill := range []byte{9, 8} {
		if err := r.Register(testMetadata(fill)); err != nil {
			t.Fatalf("Register() error = %v", err)
		}
	}

	list := r.ListAll()
	if len(list) != 2 {
		t.Fatalf("Expected 2 contracts, got: %d", len(list))
	}
	if list[0].ContractID > list[1].ContractID {
		t.Error("Expected list ordered by contract id")
	}

	stats := r.Stats()
	if stats.Total != 2 || stats.Enabled != 2 || stats.Disabled != 0 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
}

func TestRegistry_CloseClosesPools(t *testing.T) {
	r := New(DefaultConfig(), func(ctx context.Context, meta ContractMetadata) (stellar.RPC, error) {
		return &stellartest.Fake{}, nil
	})
	meta := testMetadata(10)
	if err := r.Register(meta); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	c, _ := r.Get(meta.ContractID)

	r.Close()

	if _, err := c.Pool.Get(context.Background()); err == nil {
		t.Error("Expected pool to be closed")
	}
	if len(r.ListAll()) != 0 {
		t.Error("Expected registry to be empty after Close")
	}
}

func TestNetworkType_JSON(t *testing.T) {
	var meta ContractMetadata
	if err := json.Unmarshal([]byte(`{"contract_id":"C","network":"Futurenet","enabled":true}`), &meta); err != nil {
		t.Fatalf("Unmarshal error = %v", err)
	}
	if meta.Network != NetworkFuturenet {
		t.Errorf("Expected futurenet, got: %s", meta.Network)
	}
	if meta.Network.DefaultPassphrase() != "Test SDF Future Network ; October 2022" {
		t.Errorf("Unexpected passphrase: %s", meta.Network.DefaultPassphrase())
	}

	if err := json.Unmarshal([]byte(`{"network":"moonnet"}`), &meta); err == nil {
		t.Error("Expected error for unknown network")
	}
}
