package port

import (
	"context"

	"portfolio_tracker/internal/domain/entity"
)

// PriceOracle is the batch current-price endpoint consumed by the price
// service. Keys take the form "<chainSlug>:<contractAddress>". A key absent
// from the returned map means no price is available, never price-zero.
type PriceOracle interface {
	QueryPrices(ctx context.Context, keys []string) (map[string]entity.OraclePrice, error)
}

// HistoryOracle is the historical-price endpoint. One key per call; the
// upstream provider rate-limits this far harder than the current-price one.
type HistoryOracle interface {
	QueryHistory(ctx context.Context, key string, spanDays int) ([]entity.PricePoint, error)
}

// TransactionLister fetches the full transaction list of an address from a
// block-explorer API.
type TransactionLister interface {
	ListTransactions(ctx context.Context, address string) ([]entity.ExplorerTransaction, error)
}
