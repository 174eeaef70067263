package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"portfolio_tracker/internal/app/store"
	"portfolio_tracker/internal/domain/entity"
	"portfolio_tracker/internal/pkg/retry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func priceTestChains() []entity.ChainDefinition {
	return []entity.ChainDefinition{
		{ChainID: 1, Identifier: "ethereum", OracleSlug: "ethereum",
			WrappedNativeAddress: "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"},
		{ChainID: 11155111, Identifier: "sepolia"},
	}
}

func fastRetry() retry.Config {
	return retry.Config{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond, Multiplier: 2}
}

func TestDeriveKey(t *testing.T) {
	svc := NewPriceService(nil, &fakeChainProvider{chains: priceTestChains()}, store.New(), nopLogger{}, 30, fastRetry())

	key, ok := svc.DeriveKey(entity.Asset{ChainID: 1, Address: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"})
	require.True(t, ok)
	assert.Equal(t, "ethereum:0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", key)

	// Native coins are priced through their wrapped twin.
	key, ok = svc.DeriveKey(entity.Asset{ChainID: 1, Address: entity.ZeroAddress, Native: true})
	require.True(t, ok)
	assert.Equal(t, "ethereum:0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2", key)

	// No oracle slug means the chain has no price coverage at all.
	_, ok = svc.DeriveKey(entity.Asset{ChainID: 11155111, Address: entity.ZeroAddress, Native: true})
	assert.False(t, ok)

	// Unknown chain.
	_, ok = svc.DeriveKey(entity.Asset{ChainID: 12345, Address: "0xdead"})
	assert.False(t, ok)
}

func TestFetchPricesAndApply(t *testing.T) {
	st := store.New()
	oracle := &fakePriceOracle{fn: func(_ int64, keys []string) (map[string]entity.OraclePrice, error) {
		return map[string]entity.OraclePrice{
			"ethereum:0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2": {Price: 2000, Symbol: "WETH"},
		}, nil
	}}
	svc := NewPriceService(oracle, &fakeChainProvider{chains: priceTestChains()}, st, nopLogger{}, 30, fastRetry())

	assets := []entity.Asset{
		{ChainID: 1, Address: entity.ZeroAddress, Native: true, Formatted: "2"},
		{ChainID: 11155111, Address: entity.ZeroAddress, Native: true, Formatted: "5"},
	}

	require.NoError(t, svc.FetchPrices(context.Background(), assets))

	entry, ok := st.Price("ethereum:0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2")
	require.True(t, ok)
	assert.Equal(t, store.StatusSuccess, entry.Status)
	assert.Equal(t, 2000.0, entry.Price)

	priced := svc.ApplyPrices(assets)
	require.NotNil(t, priced[0].PriceUSD)
	assert.Equal(t, 2000.0, *priced[0].PriceUSD)
	require.NotNil(t, priced[0].ValueUSD)
	assert.InDelta(t, 4000, *priced[0].ValueUSD, 1e-9)

	// Unsupported chain stays unpriced, nil rather than zero.
	assert.Nil(t, priced[1].PriceUSD)
	assert.Nil(t, priced[1].ValueUSD)
}

func TestFetchPricesKeyAbsentFromResponse(t *testing.T) {
	st := store.New()
	oracle := &fakePriceOracle{fn: func(_ int64, keys []string) (map[string]entity.OraclePrice, error) {
		return map[string]entity.OraclePrice{}, nil
	}}
	svc := NewPriceService(oracle, &fakeChainProvider{chains: priceTestChains()}, st, nopLogger{}, 30, fastRetry())

	assets := []entity.Asset{{ChainID: 1, Address: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", Formatted: "10"}}
	require.NoError(t, svc.FetchPrices(context.Background(), assets))

	entry, ok := st.Price("ethereum:0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48")
	require.True(t, ok)
	assert.Equal(t, store.StatusFailed, entry.Status)

	priced := svc.ApplyPrices(assets)
	assert.Nil(t, priced[0].PriceUSD)
}

func TestFetchPricesAllBatchesFailed(t *testing.T) {
	st := store.New()
	oracle := &fakePriceOracle{fn: func(_ int64, keys []string) (map[string]entity.OraclePrice, error) {
		return nil, errors.New("oracle down")
	}}
	// Retry disabled by a single attempt so the background goroutine settles fast.
	cfg := fastRetry()
	cfg.MaxAttempts = 1
	svc := NewPriceService(oracle, &fakeChainProvider{chains: priceTestChains()}, st, nopLogger{}, 30, cfg)

	assets := []entity.Asset{{ChainID: 1, Address: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"}}
	err := svc.FetchPrices(context.Background(), assets)
	require.Error(t, err)

	entry, ok := st.Price("ethereum:0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48")
	require.True(t, ok)
	assert.Equal(t, store.StatusFailed, entry.Status)
}

func TestFetchPricesNoPriceableAssets(t *testing.T) {
	oracle := &fakePriceOracle{fn: func(_ int64, keys []string) (map[string]entity.OraclePrice, error) {
		return nil, errors.New("oracle must not be called")
	}}
	svc := NewPriceService(oracle, &fakeChainProvider{chains: priceTestChains()}, store.New(), nopLogger{}, 30, fastRetry())

	assets := []entity.Asset{{ChainID: 11155111, Address: entity.ZeroAddress, Native: true}}
	require.NoError(t, svc.FetchPrices(context.Background(), assets))
	assert.Zero(t, oracle.calls.Load())
}

func TestPriceRetryRecoversInBackground(t *testing.T) {
	st := store.New()
	oracle := &fakePriceOracle{}
	oracle.fn = func(calls int64, keys []string) (map[string]entity.OraclePrice, error) {
		if calls <= 2 {
			return nil, errors.New("temporarily down")
		}
		return map[string]entity.OraclePrice{
			"ethereum:0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48": {Price: 1.0},
		}, nil
	}
	svc := NewPriceService(oracle, &fakeChainProvider{chains: priceTestChains()}, st, nopLogger{}, 30, fastRetry())

	assets := []entity.Asset{{ChainID: 1, Address: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"}}
	require.Error(t, svc.FetchPrices(context.Background(), assets))

	key := "ethereum:0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"
	require.Eventually(t, func() bool {
		entry, ok := st.Price(key)
		return ok && entry.Status == store.StatusSuccess
	}, 2*time.Second, 5*time.Millisecond)

	entry, _ := st.Price(key)
	assert.Equal(t, 1.0, entry.Price)
}

func TestFetchPricesChunksLargeKeySets(t *testing.T) {
	chains := []entity.ChainDefinition{{ChainID: 1, Identifier: "ethereum", OracleSlug: "ethereum"}}
	oracle := &fakePriceOracle{fn: func(_ int64, keys []string) (map[string]entity.OraclePrice, error) {
		// Batch size ceiling must hold on every request.
		if len(keys) > 2 {
			return nil, errors.New("batch too large")
		}
		out := make(map[string]entity.OraclePrice, len(keys))
		for _, k := range keys {
			out[k] = entity.OraclePrice{Price: 1}
		}
		return out, nil
	}}
	st := store.New()
	svc := NewPriceService(oracle, &fakeChainProvider{chains: chains}, st, nopLogger{}, 2, fastRetry())

	assets := []entity.Asset{
		{ChainID: 1, Address: "0xaa00000000000000000000000000000000000001"},
		{ChainID: 1, Address: "0xaa00000000000000000000000000000000000002"},
		{ChainID: 1, Address: "0xaa00000000000000000000000000000000000003"},
		{ChainID: 1, Address: "0xaa00000000000000000000000000000000000004"},
		{ChainID: 1, Address: "0xaa00000000000000000000000000000000000005"},
	}
	require.NoError(t, svc.FetchPrices(context.Background(), assets))
	assert.Equal(t, int64(3), oracle.calls.Load())

	for _, a := range assets {
		entry, ok := st.Price("ethereum:" + a.Address)
		require.True(t, ok)
		assert.Equal(t, store.StatusSuccess, entry.Status)
	}
}

func TestFetchPricesDeduplicatesSharedKeys(t *testing.T) {
	st := store.New()
	wrappedKey := "ethereum:0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"

	var mu sync.Mutex
	var requested []string
	oracle := &fakePriceOracle{fn: func(_ int64, keys []string) (map[string]entity.OraclePrice, error) {
		mu.Lock()
		requested = append(requested, keys...)
		mu.Unlock()
		return map[string]entity.OraclePrice{wrappedKey: {Price: 2500}}, nil
	}}
	svc := NewPriceService(oracle, &fakeChainProvider{chains: priceTestChains()}, st, nopLogger{}, 30, fastRetry())

	// Native ETH and the WETH contract resolve to the same oracle key.
	assets := []entity.Asset{
		{ChainID: 1, Address: entity.ZeroAddress, Native: true, Formatted: "2"},
		{ChainID: 1, Address: "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", Formatted: "1"},
	}
	require.NoError(t, svc.FetchPrices(context.Background(), assets))

	assert.Equal(t, int64(1), oracle.calls.Load())
	assert.Equal(t, []string{wrappedKey}, requested)

	// The single fetched price fans back out to every contributing asset.
	priced := svc.ApplyPrices(assets)
	require.NotNil(t, priced[0].PriceUSD)
	require.NotNil(t, priced[1].PriceUSD)
	assert.Equal(t, 2500.0, *priced[0].PriceUSD)
	assert.Equal(t, 2500.0, *priced[1].PriceUSD)
	assert.InDelta(t, 5000, *priced[0].ValueUSD, 1e-9)
	assert.InDelta(t, 2500, *priced[1].ValueUSD, 1e-9)
}

func TestPriceRetryRespectsBatchCeiling(t *testing.T) {
	chains := []entity.ChainDefinition{{ChainID: 1, Identifier: "ethereum", OracleSlug: "ethereum"}}
	st := store.New()
	oracle := &fakePriceOracle{}
	oracle.fn = func(calls int64, keys []string) (map[string]entity.OraclePrice, error) {
		// The real oracle client rejects oversized requests before any I/O.
		if len(keys) > 2 {
			return nil, errors.New("too many keys requested")
		}
		if calls <= 2 {
			return nil, errors.New("oracle outage")
		}
		out := make(map[string]entity.OraclePrice, len(keys))
		for _, k := range keys {
			out[k] = entity.OraclePrice{Price: 3}
		}
		return out, nil
	}
	svc := NewPriceService(oracle, &fakeChainProvider{chains: chains}, st, nopLogger{}, 2, fastRetry())

	// Four keys fail across both initial chunks, so the retry carries more
	// keys than fit in one request and must chunk them again.
	assets := []entity.Asset{
		{ChainID: 1, Address: "0xaa00000000000000000000000000000000000001"},
		{ChainID: 1, Address: "0xaa00000000000000000000000000000000000002"},
		{ChainID: 1, Address: "0xaa00000000000000000000000000000000000003"},
		{ChainID: 1, Address: "0xaa00000000000000000000000000000000000004"},
	}
	require.Error(t, svc.FetchPrices(context.Background(), assets))

	require.Eventually(t, func() bool {
		for _, a := range assets {
			entry, ok := st.Price("ethereum:" + a.Address)
			if !ok || entry.Status != store.StatusSuccess {
				return false
			}
		}
		return true
	}, 2*time.Second, 5*time.Millisecond)
}

func TestConcurrentFetchCyclesDoNotInvalidateEachOther(t *testing.T) {
	st := store.New()
	keyA := "ethereum:0xaa00000000000000000000000000000000000001"
	keyB := "ethereum:0xbb00000000000000000000000000000000000002"

	started := make(chan struct{})
	release := make(chan struct{})
	oracle := &fakePriceOracle{fn: func(_ int64, keys []string) (map[string]entity.OraclePrice, error) {
		out := make(map[string]entity.OraclePrice, len(keys))
		holdsA := false
		for _, k := range keys {
			out[k] = entity.OraclePrice{Price: 10}
			if k == keyA {
				holdsA = true
			}
		}
		if holdsA {
			close(started)
			<-release
		}
		return out, nil
	}}
	chains := []entity.ChainDefinition{{ChainID: 1, Identifier: "ethereum", OracleSlug: "ethereum"}}
	svc := NewPriceService(oracle, &fakeChainProvider{chains: chains}, st, nopLogger{}, 30, fastRetry())

	assetsA := []entity.Asset{{ChainID: 1, Address: "0xaa00000000000000000000000000000000000001", Formatted: "1"}}
	assetsB := []entity.Asset{{ChainID: 1, Address: "0xbb00000000000000000000000000000000000002", Formatted: "1"}}

	// Wallet A's fetch is held mid-flight while wallet B runs a full cycle.
	done := make(chan error, 1)
	go func() { done <- svc.FetchPrices(context.Background(), assetsA) }()
	<-started

	require.NoError(t, svc.FetchPrices(context.Background(), assetsB))
	entryB, ok := st.Price(keyB)
	require.True(t, ok)
	assert.Equal(t, store.StatusSuccess, entryB.Status)

	close(release)
	require.NoError(t, <-done)

	// A's successful round-trip must land even though B's cycle finished
	// in between: the cycles claim disjoint keys.
	entryA, ok := st.Price(keyA)
	require.True(t, ok)
	require.Equal(t, store.StatusSuccess, entryA.Status)

	priced := svc.ApplyPrices(assetsA)
	require.NotNil(t, priced[0].PriceUSD)
	assert.Equal(t, 10.0, *priced[0].PriceUSD)
}
