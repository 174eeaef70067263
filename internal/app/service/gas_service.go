package service

import (
	"context"
	"math/big"
	"strings"
	"time"

	"portfolio_tracker/internal/app/port"
	"portfolio_tracker/internal/pkg/utils"

	gocache "github.com/patrickmn/go-cache"
)

// GasService totals the gas an address has ever spent on outgoing
// transactions, reading the full transaction list from a block explorer.
// Results are cached because the explorer call is the slowest and most
// rate-limited thing in the whole pipeline.
type GasService struct {
	lister port.TransactionLister
	cache  *gocache.Cache
	logger port.Logger
}

// NewGasService creates a new GasService with the given cache TTL.
func NewGasService(lister port.TransactionLister, cacheTTL time.Duration, l port.Logger) *GasService {
	return &GasService{
		lister: lister,
		cache:  gocache.New(cacheTTL, 2*cacheTTL),
		logger: l,
	}
}

// TotalGasSpent returns the lifetime gas spend of an address in ether, as a
// decimal string. The sum runs in integer wei (gasUsed * gasPrice per
// transaction) and converts to ether only at the end, so no precision is
// lost on the way. Any failure degrades to "0": gas spend is decoration,
// not something worth failing a portfolio over.
func (s *GasService) TotalGasSpent(ctx context.Context, address string) string {
	cacheKey := strings.ToLower(address)
	if cached, ok := s.cache.Get(cacheKey); ok {
		return cached.(string)
	}

	txs, err := s.lister.ListTransactions(ctx, address)
	if err != nil {
		s.logger.Warn("Gas spend fetch failed", "address", address, "error", err)
		return "0"
	}

	total := new(big.Int)
	for _, tx := range txs {
		// Only transactions the address itself sent burned its gas.
		if !strings.EqualFold(tx.From, address) {
			continue
		}
		gasUsed, ok := new(big.Int).SetString(tx.GasUsed, 10)
		if !ok {
			continue
		}
		gasPrice, ok := new(big.Int).SetString(tx.GasPrice, 10)
		if !ok {
			continue
		}
		total.Add(total, new(big.Int).Mul(gasUsed, gasPrice))
	}

	result := utils.WeiToEtherString(total)
	s.cache.Set(cacheKey, result, gocache.DefaultExpiration)
	return result
}
