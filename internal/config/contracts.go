package config

import (
	"fmt"

	"contractgateway/internal/soroban/registry"

	"github.com/goccy/go-json"
)

const defaultLeaderboardContractID = "CC25DOXDMJ3OMDKE4ZETPY34734VQABAYAXSPKFXJ7I2STLCFV2VT7FC"

// Contracts returns the contracts to register at startup: CONTRACTS_JSON when
// set, otherwise the builtin list
func (c *Config) Contracts() ([]registry.ContractMetadata, error) {
	if c.ContractsJSON != "" {
		var contracts []registry.ContractMetadata
		if err := json.Unmarshal([]byte(c.ContractsJSON), &contracts); err != nil {
			return nil, fmt.Errorf("CONTRACTS_JSON is not a valid contract list: %w", err)
		}
		return contracts, nil
	}
	return c.builtinContracts(), nil
}

func (c *Config) builtinContracts() []registry.ContractMetadata {
	testnet := func(id, name, description, version string) registry.ContractMetadata {
		return registry.ContractMetadata{
			ContractID:        id,
			Name:              name,
			Network:           registry.NetworkTestnet,
			NetworkPassphrase: registry.NetworkTestnet.DefaultPassphrase(),
			RPCURL:            c.SorobanRPCURL,
			Description:       description,
			Version:           version,
			Enabled:           true,
		}
	}

	// Mainnet oracle stays disabled on a testnet setup
	reflectorMainnet := registry.ContractMetadata{
		ContractID:        "CAFJZQWSED6YAWZU3GWRTOCNPPCGBN32L7QV43XX5LZLFTK6JLN34DLN",
		Name:              "Reflector Oracle (Mainnet)",
		Network:           registry.NetworkMainnet,
		NetworkPassphrase: registry.NetworkMainnet.DefaultPassphrase(),
		RPCURL:            registry.NetworkMainnet.DefaultRPCURL(),
		Description:       "Reflector price oracle for Stellar - SEP-40 compatible (Mainnet)",
		Version:           "1.0.0",
		Enabled:           false,
	}

	return []registry.ContractMetadata{
		testnet(c.ContractID, "Stellar Heads Leaderboard", "Game leaderboard smart contract", "1.0.0"),
		testnet("CAVLP5DH2GJPZMVO7IJY4CVOD5MWEFTJFVPD2YY2FQXOQHRGHK4D6HLP", "Reflector Oracle (Testnet)",
			"Reflector price oracle for Stellar - SEP-40 compatible", "1.0.0"),
		testnet("CCYOZJCOPG34LLQQ7N24YXBM7LL62R7ONMZ3G6WZAAYPB5OYKOMJRN63", "Reflector FX Rates (Testnet)",
			"Reflector FX rates oracle for fiat currencies", "1.0.0"),
		reflectorMainnet,
		testnet("CDSMKKCWEAYQW4DAUSH3XGRMIVIJB44TZ3UA5YCRHT6MP4LWEWR4GYV6", "Blend Pool Factory V2 (Testnet)",
			"Blend lending protocol - Pool Factory for creating lending pools", "2.0.0"),
		testnet("CDDG7DLOWSHRYQ2HWGZEZ4UTR7LPTKFFHN3QUCSZEXOWOPARMONX6T65", "Blend Test Pool (Testnet)",
			"Blend lending protocol - Main test lending pool", "2.0.0"),
		testnet("CBHWKF4RHIKOKSURAKXSJRIIA7RJAMJH4VHRVPYGUF4AJ5L544LYZ35X", "Blend Backstop V2 (Testnet)",
			"Blend lending protocol - Backstop module for pool insurance", "2.0.0"),
	}
}
