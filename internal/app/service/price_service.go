package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"portfolio_tracker/internal/app/port"
	"portfolio_tracker/internal/app/store"
	"portfolio_tracker/internal/domain/entity"
	"portfolio_tracker/internal/pkg/retry"
	"portfolio_tracker/internal/pkg/utils"
	"portfolio_tracker/pkg/metrics"

	"golang.org/x/sync/errgroup"
)

// PriceService resolves USD prices for portfolio assets through the batch
// price oracle. Failed keys are handed to a detached retry coordinator so a
// transient oracle hiccup heals in the background without another full
// portfolio fetch.
type PriceService struct {
	oracle        port.PriceOracle
	chainProvider port.ChainProvider
	store         *store.Store
	logger        port.Logger

	maxKeysPerBatch int
	retryCfg        retry.Config

	inflightMu sync.Mutex
	inflight   map[string]struct{}
}

// NewPriceService creates a new PriceService.
func NewPriceService(
	oracle port.PriceOracle,
	cp port.ChainProvider,
	st *store.Store,
	l port.Logger,
	maxKeysPerBatch int,
	retryCfg retry.Config,
) *PriceService {
	if maxKeysPerBatch <= 0 {
		maxKeysPerBatch = 30
	}
	return &PriceService{
		oracle:          oracle,
		chainProvider:   cp,
		store:           st,
		logger:          l,
		maxKeysPerBatch: maxKeysPerBatch,
		retryCfg:        retryCfg,
	}
}

// DeriveKey maps an asset to its oracle key, "<chainSlug>:<address>". Native
// coins are priced through their wrapped ERC20 twin. The second return is
// false when the asset cannot be priced at all (no oracle slug for the
// chain, or a native coin without a wrapped address).
func (s *PriceService) DeriveKey(asset entity.Asset) (string, bool) {
	chainDef, ok := s.chainProvider.GetChainByID(asset.ChainID)
	if !ok || chainDef.OracleSlug == "" {
		return "", false
	}

	address := asset.Address
	if asset.Native {
		if chainDef.WrappedNativeAddress == "" {
			return "", false
		}
		address = chainDef.WrappedNativeAddress
	}
	return fmt.Sprintf("%s:%s", chainDef.OracleSlug, strings.ToLower(address)), true
}

// FetchPrices resolves prices for every priceable asset in the list and
// records them in the store, claiming the derived keys under a fresh
// epoch so only a newer cycle over the same keys can supersede the
// writes. Key chunks are fetched
// concurrently; a chunk failure marks its keys failed and queues them for
// background retry instead of aborting the call. The returned error is
// non-nil only when every chunk failed.
func (s *PriceService) FetchPrices(ctx context.Context, assets []entity.Asset) error {
	keySet := make(map[string]struct{})
	for _, asset := range assets {
		if key, ok := s.DeriveKey(asset); ok {
			keySet[key] = struct{}{}
		}
	}
	if len(keySet) == 0 {
		return nil
	}

	keys := make([]string, 0, len(keySet))
	for key := range keySet {
		keys = append(keys, key)
	}

	epoch := s.store.BeginPriceEpoch(keys)
	for _, key := range keys {
		s.store.MarkPriceLoading(epoch, key)
	}

	chunks := utils.BatchStrings(keys, s.maxKeysPerBatch)
	s.logger.Debug("Fetching prices", "key_count", len(keys), "chunk_count", len(chunks))

	var failedMu sync.Mutex
	var failedKeys []string
	failedChunks := 0

	g, gctx := errgroup.WithContext(ctx)
	for _, chunk := range chunks {
		g.Go(func() error {
			prices, err := s.oracle.QueryPrices(gctx, chunk)
			if err != nil {
				metrics.PriceBatchTotal.WithLabelValues("failure").Inc()
				s.logger.Warn("Price batch failed", "key_count", len(chunk), "error", err)
				for _, key := range chunk {
					s.store.MarkPriceFailed(epoch, key)
				}
				failedMu.Lock()
				failedKeys = append(failedKeys, chunk...)
				failedChunks++
				failedMu.Unlock()
				return nil
			}

			metrics.PriceBatchTotal.WithLabelValues("success").Inc()
			for _, key := range chunk {
				if price, ok := prices[key]; ok {
					s.store.SetPrice(epoch, key, price.Price)
				} else {
					// Absent from the response means the oracle has no
					// price for this key. Not an error, never zero.
					s.store.MarkPriceFailed(epoch, key)
				}
			}
			return nil
		})
	}
	_ = g.Wait() // workers swallow their errors and report through the store

	if len(failedKeys) > 0 {
		s.retryInBackground(context.WithoutCancel(ctx), epoch, failedKeys)
	}

	if failedChunks == len(chunks) {
		return fmt.Errorf("all %d price batches failed", len(chunks))
	}
	return nil
}

// ApplyPrices stamps stored prices onto the asset list. PriceUSD and
// ValueUSD stay nil for keys that have no successful price, so display
// layers can tell "no price" apart from "price is zero".
func (s *PriceService) ApplyPrices(assets []entity.Asset) []entity.Asset {
	out := make([]entity.Asset, len(assets))
	for i, asset := range assets {
		out[i] = asset
		key, ok := s.DeriveKey(asset)
		if !ok {
			continue
		}
		entry, found := s.store.Price(key)
		if !found || entry.Status != store.StatusSuccess {
			continue
		}
		price := entry.Price
		value := price * parseFormatted(asset.Formatted)
		out[i].PriceUSD = &price
		out[i].ValueUSD = &value
	}
	return out
}

// retryInBackground launches one detached coordinator for the keys that
// failed this cycle. Keys already under retry are skipped so overlapping
// portfolio fetches never double up on the same key.
func (s *PriceService) retryInBackground(ctx context.Context, epoch uint64, keys []string) {
	s.inflightMu.Lock()
	if s.inflight == nil {
		s.inflight = make(map[string]struct{})
	}
	claimed := make([]string, 0, len(keys))
	for _, key := range keys {
		if _, busy := s.inflight[key]; busy {
			continue
		}
		s.inflight[key] = struct{}{}
		claimed = append(claimed, key)
	}
	s.inflightMu.Unlock()

	if len(claimed) == 0 {
		return
	}

	go func() {
		defer func() {
			s.inflightMu.Lock()
			for _, key := range claimed {
				delete(s.inflight, key)
			}
			s.inflightMu.Unlock()
		}()

		remaining := claimed
		err := retry.Do(ctx, s.retryCfg, func(ctx context.Context, attempt int) error {
			owned := make([]string, 0, len(remaining))
			for _, key := range remaining {
				if s.store.OwnsPrice(epoch, key) {
					owned = append(owned, key)
				}
			}
			remaining = owned
			if len(remaining) == 0 {
				// Newer fetch cycles claimed every key.
				return nil
			}

			// The oracle client rejects oversized requests, so the retry
			// respects the same chunk bound as the initial fetch.
			var stillFailed []string
			var lastErr error
			for _, chunk := range utils.BatchStrings(remaining, s.maxKeysPerBatch) {
				prices, err := s.oracle.QueryPrices(ctx, chunk)
				if err != nil {
					stillFailed = append(stillFailed, chunk...)
					lastErr = err
					continue
				}
				for _, key := range chunk {
					if price, ok := prices[key]; ok {
						s.store.SetPrice(epoch, key, price.Price)
					} else {
						stillFailed = append(stillFailed, key)
					}
				}
			}
			remaining = stillFailed
			if lastErr != nil {
				metrics.PriceRetryTotal.WithLabelValues("failure").Inc()
				return lastErr
			}
			if len(remaining) > 0 {
				metrics.PriceRetryTotal.WithLabelValues("partial").Inc()
				return fmt.Errorf("%d keys still unpriced", len(remaining))
			}
			metrics.PriceRetryTotal.WithLabelValues("success").Inc()
			return nil
		})
		if err != nil {
			metrics.PriceRetryTotal.WithLabelValues("exhausted").Inc()
			s.logger.Warn("Price retry gave up", "key_count", len(remaining), "error", err)
		}
	}()
}
