package port

import (
	"context"

	"portfolio_tracker/internal/domain/entity"
)

// PortfolioService fetches raw (unpriced) asset lists for an address.
type PortfolioService interface {
	// FetchPortfolio fans the balance fetch out across all enabled chains.
	// It returns the union of assets from succeeding chains plus a side list
	// of per-chain errors. It returns a non-nil error only when the address
	// is invalid or every chain failed.
	FetchPortfolio(ctx context.Context, address string) ([]entity.Asset, []entity.PortfolioError, error)
}
