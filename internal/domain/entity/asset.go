package entity

import (
	"fmt"
	"strings"
)

// ZeroAddress is the sentinel contract address used for native coins.
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// Asset is one token holding on one specific chain.
// RawBalance carries the smallest-unit amount as a decimal string so that
// nothing upstream of display math loses precision.
type Asset struct {
	UniqueID   string   `json:"uniqueId"`
	ChainID    uint64   `json:"chainId"`
	Address    string   `json:"address"`
	Symbol     string   `json:"symbol"`
	Name       string   `json:"name"`
	Decimals   uint8    `json:"decimals"`
	RawBalance string   `json:"rawBalance"`
	Formatted  string   `json:"formatted"`
	LogoURL    string   `json:"logoUrl,omitempty"`
	Native     bool     `json:"native"`
	PriceUSD   *float64 `json:"priceUSD,omitempty"`
	ValueUSD   *float64 `json:"valueUSD,omitempty"`
}

// AssetUniqueID builds the canonical identity of an asset: chain ID plus
// lower-cased contract address. Native coins use ZeroAddress.
func AssetUniqueID(chainID uint64, contractAddress string) string {
	if contractAddress == "" {
		contractAddress = ZeroAddress
	}
	return fmt.Sprintf("%d:%s", chainID, strings.ToLower(contractAddress))
}

// GroupedAsset is the cross-chain rollup of Assets sharing an upper-cased
// symbol. It is derived from the current asset list on every pass and never
// mutated in place.
type GroupedAsset struct {
	Symbol       string   `json:"symbol"`
	Name         string   `json:"name"`
	LogoURL      string   `json:"logoUrl,omitempty"`
	TotalValue   float64  `json:"totalValue"`
	TotalBalance string   `json:"totalBalance"`
	AveragePrice float64  `json:"averagePrice"`
	Chains       []uint64 `json:"chains"`
	Assets       []Asset  `json:"assets"`
	Testnet      bool     `json:"testnet"`
}

// ChainResult is the tagged outcome of one chain's balance fetch. A failed
// chain contributes Err and no assets; it never aborts the other chains.
type ChainResult struct {
	ChainID uint64
	Name    string
	Assets  []Asset
	Err     error
}
