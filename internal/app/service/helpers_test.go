package service

import (
	"context"
	"sync/atomic"

	"portfolio_tracker/internal/app/port"
	"portfolio_tracker/internal/domain/entity"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

type fakeChainProvider struct {
	chains []entity.ChainDefinition
}

func (f *fakeChainProvider) GetAllChainDefinitions() []entity.ChainDefinition {
	return f.chains
}

func (f *fakeChainProvider) GetChainByID(chainID uint64) (entity.ChainDefinition, bool) {
	for _, c := range f.chains {
		if c.ChainID == chainID {
			return c, true
		}
	}
	return entity.ChainDefinition{}, false
}

type fakeClient struct {
	def     entity.ChainDefinition
	results []entity.BalanceResultItem
	err     error
	calls   int
}

func (f *fakeClient) GetBalances(_ context.Context, _ []entity.BalanceRequestItem) ([]entity.BalanceResultItem, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

func (f *fakeClient) Definition() entity.ChainDefinition { return f.def }

type fakeClientProvider struct {
	clients map[uint64]port.BlockchainClient
	err     error
}

func (f *fakeClientProvider) GetClient(def entity.ChainDefinition) (port.BlockchainClient, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.clients[def.ChainID], nil
}

type fakeTokenProvider struct {
	tokens map[uint64][]entity.TokenInfo
	err    error
}

func (f *fakeTokenProvider) GetTokensByChain(_ []entity.ChainDefinition) (map[uint64][]entity.TokenInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.tokens, nil
}

type fakePriceOracle struct {
	fn    func(calls int64, keys []string) (map[string]entity.OraclePrice, error)
	calls atomic.Int64
}

func (f *fakePriceOracle) QueryPrices(_ context.Context, keys []string) (map[string]entity.OraclePrice, error) {
	return f.fn(f.calls.Add(1), keys)
}

type fakeHistoryOracle struct {
	fn    func(calls int64, key string, spanDays int) ([]entity.PricePoint, error)
	calls atomic.Int64
}

func (f *fakeHistoryOracle) QueryHistory(_ context.Context, key string, spanDays int) ([]entity.PricePoint, error) {
	return f.fn(f.calls.Add(1), key, spanDays)
}

type fakeTransactionLister struct {
	txs   []entity.ExplorerTransaction
	err   error
	calls int
}

func (f *fakeTransactionLister) ListTransactions(_ context.Context, _ string) ([]entity.ExplorerTransaction, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.txs, nil
}

func floatPtr(v float64) *float64 { return &v }
