package provider

import (
	"strings"

	"portfolio_tracker/internal/app/port"
	"portfolio_tracker/internal/domain/entity"
)

// Predefined chain definitions. Oracle slugs follow the price oracle's chain
// naming; wrapped native addresses are what the oracle indexes in place of
// the native coin.
var ( //nolint:gochecknoglobals // Global for definitions
	Ethereum = entity.ChainDefinition{
		ChainID:              1,
		Name:                 "Ethereum Mainnet",
		Identifier:           "ethereum",
		OracleSlug:           "ethereum",
		NativeSymbol:         "ETH",
		NativeName:           "Ether",
		Decimals:             18,
		WrappedNativeAddress: "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", // WETH
		PrimaryRPCURL:        "https://ethereum-rpc.publicnode.com",
		FallbackRPCURLs:      []string{"https://rpc.ankr.com/eth", "https://ethereum.publicnode.com"},
		BlockExplorerURL:     "https://etherscan.io",
	}
	BSC = entity.ChainDefinition{
		ChainID:              56,
		Name:                 "BNB Smart Chain",
		Identifier:           "bsc",
		OracleSlug:           "bsc",
		NativeSymbol:         "BNB",
		NativeName:           "BNB",
		Decimals:             18,
		WrappedNativeAddress: "0xbb4CdB9CBd36B01bD1cBaEBF2De08d9173bc095c", // WBNB
		PrimaryRPCURL:        "https://1rpc.io/bnb",
		FallbackRPCURLs:      []string{"https://bsc-dataseed2.binance.org/", "https://bsc.publicnode.com"},
		BlockExplorerURL:     "https://bscscan.com",
	}
	Polygon = entity.ChainDefinition{
		ChainID:              137,
		Name:                 "Polygon PoS",
		Identifier:           "polygon",
		OracleSlug:           "polygon",
		NativeSymbol:         "POL",
		NativeName:           "Polygon Ecosystem Token",
		Decimals:             18,
		WrappedNativeAddress: "0x0d500B1d8E8eF31E21C99d1Db9A6444d3ADf1270", // WPOL
		PrimaryRPCURL:        "https://polygon-rpc.com/",
		FallbackRPCURLs:      []string{"https://rpc.ankr.com/polygon", "https://polygon.publicnode.com"},
		BlockExplorerURL:     "https://polygonscan.com",
	}
	Arbitrum = entity.ChainDefinition{
		ChainID:              42161,
		Name:                 "Arbitrum One",
		Identifier:           "arbitrum",
		OracleSlug:           "arbitrum",
		NativeSymbol:         "ETH",
		NativeName:           "Ether",
		Decimals:             18,
		WrappedNativeAddress: "0x82aF49447D8a07e3bd95BD0d56f35241523fBab1", // WETH on Arbitrum
		PrimaryRPCURL:        "https://arb1.arbitrum.io/rpc",
		FallbackRPCURLs:      []string{"https://arbitrum.llamarpc.com", "https://arbitrum.publicnode.com"},
		BlockExplorerURL:     "https://arbiscan.io",
	}
	Optimism = entity.ChainDefinition{
		ChainID:              10,
		Name:                 "OP Mainnet",
		Identifier:           "optimism",
		OracleSlug:           "optimism",
		NativeSymbol:         "ETH",
		NativeName:           "Ether",
		Decimals:             18,
		WrappedNativeAddress: "0x4200000000000000000000000000000000000006", // WETH on OP
		PrimaryRPCURL:        "https://mainnet.optimism.io",
		FallbackRPCURLs:      []string{"https://optimism.publicnode.com"},
		BlockExplorerURL:     "https://optimistic.etherscan.io",
	}
	Base = entity.ChainDefinition{
		ChainID:              8453,
		Name:                 "Base Mainnet",
		Identifier:           "base",
		OracleSlug:           "base",
		NativeSymbol:         "ETH",
		NativeName:           "Ether",
		Decimals:             18,
		WrappedNativeAddress: "0x4200000000000000000000000000000000000006", // WETH on Base
		PrimaryRPCURL:        "https://1rpc.io/base",
		FallbackRPCURLs:      []string{"https://base.publicnode.com", "https://base.llamarpc.com"},
		BlockExplorerURL:     "https://basescan.org",
	}
	Avalanche = entity.ChainDefinition{
		ChainID:              43114,
		Name:                 "Avalanche C-Chain",
		Identifier:           "avalanche",
		OracleSlug:           "avax",
		NativeSymbol:         "AVAX",
		NativeName:           "Avalanche",
		Decimals:             18,
		WrappedNativeAddress: "0xB31f66AA3C1e785363F0875A1B74E27b85FD66c7", // WAVAX
		PrimaryRPCURL:        "https://api.avax.network/ext/bc/C/rpc",
		FallbackRPCURLs:      []string{"https://avalanche.public-rpc.com", "https://rpc.ankr.com/avalanche"},
		BlockExplorerURL:     "https://snowtrace.io",
	}
	Sepolia = entity.ChainDefinition{
		ChainID:          11155111,
		Name:             "Sepolia Testnet",
		Identifier:       "sepolia",
		NativeSymbol:     "ETH",
		NativeName:       "Sepolia Ether",
		Decimals:         18,
		PrimaryRPCURL:    "https://ethereum-sepolia-rpc.publicnode.com",
		FallbackRPCURLs:  []string{"https://rpc.sepolia.org"},
		BlockExplorerURL: "https://sepolia.etherscan.io",
		Testnet:          true,
		// No oracle slug: testnet tokens have no market price.
	}
)

func allDefinitions() []entity.ChainDefinition {
	return []entity.ChainDefinition{Ethereum, BSC, Polygon, Arbitrum, Optimism, Base, Avalanche, Sepolia}
}

// ChainDefinitionProvider implements port.ChainProvider over the predefined
// registry, optionally restricted to a set of enabled identifiers.
type ChainDefinitionProvider struct {
	logger  port.Logger
	enabled []entity.ChainDefinition
	byID    map[uint64]entity.ChainDefinition
}

// NewChainDefinitionProvider builds a provider for the given identifiers.
// An empty list enables every known chain, preserving registry order.
func NewChainDefinitionProvider(enabledIdentifiers []string, l port.Logger) *ChainDefinitionProvider {
	all := allDefinitions()

	var enabled []entity.ChainDefinition
	if len(enabledIdentifiers) == 0 {
		enabled = all
	} else {
		wanted := make(map[string]bool, len(enabledIdentifiers))
		for _, id := range enabledIdentifiers {
			wanted[strings.ToLower(id)] = true
		}
		for _, def := range all {
			if wanted[def.Identifier] {
				enabled = append(enabled, def)
			}
		}
		if len(enabled) < len(enabledIdentifiers) && l != nil {
			l.Warn("Some enabled chain identifiers did not match any known chain",
				"requested", len(enabledIdentifiers), "matched", len(enabled))
		}
	}

	byID := make(map[uint64]entity.ChainDefinition, len(enabled))
	for _, def := range enabled {
		byID[def.ChainID] = def
	}

	return &ChainDefinitionProvider{logger: l, enabled: enabled, byID: byID}
}

// GetAllChainDefinitions returns the enabled chains in registry order.
func (p *ChainDefinitionProvider) GetAllChainDefinitions() []entity.ChainDefinition {
	defs := make([]entity.ChainDefinition, len(p.enabled))
	copy(defs, p.enabled)
	return defs
}

// GetChainByID returns the definition for a chain ID, if enabled.
func (p *ChainDefinitionProvider) GetChainByID(chainID uint64) (entity.ChainDefinition, bool) {
	def, ok := p.byID[chainID]
	return def, ok
}
