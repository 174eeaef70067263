package entity

// ChainDefinition holds the static configuration for one blockchain network.
// Defined at the domain level so application and infrastructure layers share it.
type ChainDefinition struct {
	ChainID              uint64   `json:"chainId" yaml:"chainId"`
	Name                 string   `json:"name" yaml:"name"`
	Identifier           string   `json:"identifier" yaml:"identifier"`
	OracleSlug           string   `json:"oracleSlug" yaml:"oracleSlug"`
	NativeSymbol         string   `json:"nativeSymbol" yaml:"nativeSymbol"`
	NativeName           string   `json:"nativeName" yaml:"nativeName"`
	NativeLogoURL        string   `json:"nativeLogoUrl,omitempty" yaml:"nativeLogoUrl,omitempty"`
	Decimals             int32    `json:"decimals" yaml:"decimals"`
	WrappedNativeAddress string   `json:"wrappedNativeAddress" yaml:"wrappedNativeAddress"`
	PrimaryRPCURL        string   `json:"primaryRpcUrl" yaml:"primaryRpcUrl"`
	FallbackRPCURLs      []string `json:"fallbackRpcUrls" yaml:"fallbackRpcUrls"`
	BlockExplorerURL     string   `json:"blockExplorerUrl,omitempty" yaml:"blockExplorerUrl,omitempty"`
	Testnet              bool     `json:"testnet" yaml:"testnet"`
}

// MainnetChainID is preferred when a grouped asset picks its display identity.
const MainnetChainID uint64 = 1
