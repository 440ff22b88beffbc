package entity

// Network identifies a blockchain by its address format.
type Network string

// The closed set of networks SatoTrack can classify an address into.
const (
	NetworkBitcoin           Network = "bitcoin"
	NetworkEthereum          Network = "ethereum"
	NetworkBinanceSmartChain Network = "bsc"
	NetworkPolygon           Network = "polygon"
	NetworkSolana            Network = "solana"
	NetworkAvalanche         Network = "avalanche"
	NetworkArbitrum          Network = "arbitrum"
	NetworkOptimism          Network = "optimism"
)

// NetworkDefinition holds the static metadata for a supported network.
// This structure is defined at the domain level to be used across application and infrastructure layers.
type NetworkDefinition struct {
	Identifier       Network  `json:"identifier" yaml:"identifier"`
	Name             string   `json:"name" yaml:"name"`
	NativeSymbol     string   `json:"nativeSymbol" yaml:"nativeSymbol"`
	Decimals         int32    `json:"decimals" yaml:"decimals"`
	ChainID          uint64   `json:"chainId,omitempty" yaml:"chainId,omitempty"`
	IsEVM            bool     `json:"isEvm" yaml:"isEvm"`
	PrimaryRPCURL    string   `json:"primaryRpcUrl,omitempty" yaml:"primaryRpcUrl,omitempty"`
	FallbackRPCURLs  []string `json:"fallbackRpcUrls,omitempty" yaml:"fallbackRpcUrls,omitempty"`
	BlockExplorerURL string   `json:"blockExplorerUrl,omitempty" yaml:"blockExplorerUrl,omitempty"`
}

// Predefined network definitions
var ( //nolint:gochecknoglobals // Global for definitions
	Bitcoin = NetworkDefinition{
		Identifier:       NetworkBitcoin,
		Name:             "Bitcoin",
		NativeSymbol:     "BTC",
		Decimals:         8,
		BlockExplorerURL: "https://mempool.space",
	}
	Ethereum = NetworkDefinition{
		Identifier:       NetworkEthereum,
		Name:             "Ethereum Mainnet",
		NativeSymbol:     "ETH",
		Decimals:         18,
		ChainID:          1,
		IsEVM:            true,
		PrimaryRPCURL:    "https://ethereum-rpc.publicnode.com",
		FallbackRPCURLs:  []string{"https://rpc.ankr.com/eth", "https://ethereum.publicnode.com"},
		BlockExplorerURL: "https://etherscan.io",
	}
	BSC = NetworkDefinition{
		Identifier:       NetworkBinanceSmartChain,
		Name:             "BNB Smart Chain",
		NativeSymbol:     "BNB",
		Decimals:         18,
		ChainID:          56,
		IsEVM:            true,
		PrimaryRPCURL:    "https://1rpc.io/bnb",
		FallbackRPCURLs:  []string{"https://bsc-dataseed2.binance.org/", "https://bsc.publicnode.com"},
		BlockExplorerURL: "https://bscscan.com",
	}
	Polygon = NetworkDefinition{
		Identifier:       NetworkPolygon,
		Name:             "Polygon PoS",
		NativeSymbol:     "MATIC",
		Decimals:         18,
		ChainID:          137,
		IsEVM:            true,
		PrimaryRPCURL:    "https://polygon-rpc.com/",
		FallbackRPCURLs:  []string{"https://rpc.ankr.com/polygon", "https://polygon.publicnode.com"},
		BlockExplorerURL: "https://polygonscan.com",
	}
	Solana = NetworkDefinition{
		Identifier:       NetworkSolana,
		Name:             "Solana",
		NativeSymbol:     "SOL",
		Decimals:         9,
		BlockExplorerURL: "https://solscan.io",
	}
	Avalanche = NetworkDefinition{
		Identifier:       NetworkAvalanche,
		Name:             "Avalanche C-Chain",
		NativeSymbol:     "AVAX",
		Decimals:         18,
		ChainID:          43114,
		IsEVM:            true,
		PrimaryRPCURL:    "https://api.avax.network/ext/bc/C/rpc",
		FallbackRPCURLs:  []string{"https://avalanche.publicnode.com"},
		BlockExplorerURL: "https://snowtrace.io",
	}
	Arbitrum = NetworkDefinition{
		Identifier:       NetworkArbitrum,
		Name:             "Arbitrum One",
		NativeSymbol:     "ETH",
		Decimals:         18,
		ChainID:          42161,
		IsEVM:            true,
		PrimaryRPCURL:    "https://arb1.arbitrum.io/rpc",
		FallbackRPCURLs:  []string{"https://arbitrum.publicnode.com"},
		BlockExplorerURL: "https://arbiscan.io",
	}
	Optimism = NetworkDefinition{
		Identifier:       NetworkOptimism,
		Name:             "OP Mainnet",
		NativeSymbol:     "ETH",
		Decimals:         18,
		ChainID:          10,
		IsEVM:            true,
		PrimaryRPCURL:    "https://mainnet.optimism.io",
		FallbackRPCURLs:  []string{"https://optimism.publicnode.com"},
		BlockExplorerURL: "https://optimistic.etherscan.io",
	}
)

var networkDefinitions = map[Network]NetworkDefinition{ //nolint:gochecknoglobals // Lookup table for definitions
	NetworkBitcoin:           Bitcoin,
	NetworkEthereum:          Ethereum,
	NetworkBinanceSmartChain: BSC,
	NetworkPolygon:           Polygon,
	NetworkSolana:            Solana,
	NetworkAvalanche:         Avalanche,
	NetworkArbitrum:          Arbitrum,
	NetworkOptimism:          Optimism,
}

// Definition returns the static definition for the network and true if it is known.
func (n Network) Definition() (NetworkDefinition, bool) {
	def, ok := networkDefinitions[n]
	return def, ok
}

// Symbol returns the native token symbol for the network, or "" for an unknown network.
func (n Network) Symbol() string {
	if def, ok := networkDefinitions[n]; ok {
		return def.NativeSymbol
	}
	return ""
}

// AllNetworkDefinitions returns all supported network definitions as a slice.
func AllNetworkDefinitions() []NetworkDefinition {
	return []NetworkDefinition{Bitcoin, Ethereum, BSC, Polygon, Solana, Avalanche, Arbitrum, Optimism}
}
