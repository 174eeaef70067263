package service

import (
	"sort"
	"strconv"
	"strings"

	"portfolio_tracker/internal/domain/entity"

	"github.com/shopspring/decimal"
)

// SymbolAggregator groups per-chain assets into cross-chain rollups keyed by
// upper-cased symbol. Grouping by ticker alone can merge unrelated tokens
// that share a symbol; that limitation is inherited deliberately.
type SymbolAggregator struct {
	testnets map[uint64]bool
}

// NewSymbolAggregator creates an aggregator that flags groups whose
// constituents all live on the given testnet chain IDs.
func NewSymbolAggregator(testnetChainIDs []uint64) *SymbolAggregator {
	testnets := make(map[uint64]bool, len(testnetChainIDs))
	for _, id := range testnetChainIDs {
		testnets[id] = true
	}
	return &SymbolAggregator{testnets: testnets}
}

// GroupBySymbol derives the grouped view from the current asset list. Pure:
// no I/O, a fresh result on every call, input untouched.
//
// Per group: total value sums constituent values with missing prices
// contributing zero (a lower bound, not an error); total balance is an
// arbitrary-precision sum rendered with 18 decimal places; average price is
// totalValue/totalBalance with a zero balance yielding zero. Display
// name/logo prefer the mainnet constituent when it has a logo, otherwise the
// highest-value constituent. Chains are ordered by descending per-chain
// value, groups by descending total value.
func (a *SymbolAggregator) GroupBySymbol(assets []entity.Asset) []entity.GroupedAsset {
	groups := make(map[string][]entity.Asset)
	var order []string
	for _, asset := range assets {
		key := strings.ToUpper(asset.Symbol)
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], asset)
	}

	result := make([]entity.GroupedAsset, 0, len(order))
	for _, symbol := range order {
		result = append(result, a.buildGroup(symbol, groups[symbol]))
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].TotalValue > result[j].TotalValue
	})
	return result
}

func (a *SymbolAggregator) buildGroup(symbol string, constituents []entity.Asset) entity.GroupedAsset {
	totalValue := 0.0
	totalBalance := decimal.Zero
	valueByChain := make(map[uint64]float64)
	var chainOrder []uint64

	for _, asset := range constituents {
		value := assetValue(asset)
		totalValue += value

		if balance, err := decimal.NewFromString(asset.Formatted); err == nil {
			totalBalance = totalBalance.Add(balance)
		}

		if _, seen := valueByChain[asset.ChainID]; !seen {
			chainOrder = append(chainOrder, asset.ChainID)
		}
		valueByChain[asset.ChainID] += value
	}

	sort.SliceStable(chainOrder, func(i, j int) bool {
		return valueByChain[chainOrder[i]] > valueByChain[chainOrder[j]]
	})

	averagePrice := 0.0
	if balanceFloat, _ := totalBalance.Float64(); balanceFloat != 0 {
		averagePrice = totalValue / balanceFloat
	}

	display := pickDisplayAsset(constituents)

	testnet := len(constituents) > 0
	for _, asset := range constituents {
		if !a.testnets[asset.ChainID] {
			testnet = false
			break
		}
	}

	return entity.GroupedAsset{
		Symbol:       symbol,
		Name:         display.Name,
		LogoURL:      display.LogoURL,
		TotalValue:   totalValue,
		TotalBalance: totalBalance.StringFixed(18),
		AveragePrice: averagePrice,
		Chains:       chainOrder,
		Assets:       constituents,
		Testnet:      testnet,
	}
}

// pickDisplayAsset chooses which constituent lends the group its name and
// logo: the mainnet one if it carries a logo, otherwise the highest-value
// one (first wins on ties).
func pickDisplayAsset(constituents []entity.Asset) entity.Asset {
	for _, asset := range constituents {
		if asset.ChainID == entity.MainnetChainID && asset.LogoURL != "" {
			return asset
		}
	}

	best := constituents[0]
	bestValue := assetValue(best)
	for _, asset := range constituents[1:] {
		if v := assetValue(asset); v > bestValue {
			best = asset
			bestValue = v
		}
	}
	return best
}

func assetValue(asset entity.Asset) float64 {
	if asset.ValueUSD != nil {
		return *asset.ValueUSD
	}
	return 0
}

// parseFormatted mirrors display math: a malformed balance counts as zero.
func parseFormatted(formatted string) float64 {
	f, err := strconv.ParseFloat(formatted, 64)
	if err != nil {
		return 0
	}
	return f
}
