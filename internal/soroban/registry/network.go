package registry

import (
	"fmt"
	"strings"

	"github.com/stellar/go/network"
)

// NetworkType is the Stellar network a contract lives on
type NetworkType string

const (
	NetworkTestnet    NetworkType = "testnet"
	NetworkMainnet    NetworkType = "mainnet"
	NetworkFuturenet  NetworkType = "futurenet"
	NetworkStandalone NetworkType = "standalone"
)

const (
	futurenetPassphrase  = "Test SDF Future Network ; October 2022"
	standalonePassphrase = "Standalone Network ; February 2017"
)

// ParseNetworkType accepts the network name in any case
func ParseNetworkType(s string) (NetworkType, error) {
	switch n := NetworkType(strings.ToLower(strings.TrimSpace(s))); n {
	case NetworkTestnet, NetworkMainnet, NetworkFuturenet, NetworkStandalone:
		return n, nil
	default:
		return "", fmt.Errorf("unknown network %q", s)
	}
}

// UnmarshalText makes JSON decoding case-insensitive
func (n *NetworkType) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*n = ""
		return nil
	}
	parsed, err := ParseNetworkType(string(text))
	if err != nil {
		return err
	}
	*n = parsed
	return nil
}

// DefaultPassphrase returns the well-known passphrase of the network
func (n NetworkType) DefaultPassphrase() string {
	switch n {
	case NetworkTestnet:
		return network.TestNetworkPassphrase
	case NetworkMainnet:
		return network.PublicNetworkPassphrase
	case NetworkFuturenet:
		return futurenetPassphrase
	case NetworkStandalone:
		return standalonePassphrase
	default:
		return ""
	}
}

// DefaultRPCURL returns the public Soroban RPC endpoint of the network
func (n NetworkType) DefaultRPCURL() string {
	switch n {
	case NetworkTestnet:
		return "https://soroban-testnet.stellar.org"
	case NetworkMainnet:
		return "https://mainnet.sorobanrpc.com"
	case NetworkFuturenet:
		return "https://rpc-futurenet.stellar.org"
	case NetworkStandalone:
		return "http://localhost:8000/soroban/rpc"
	default:
		return ""
	}
}
