package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"portfolio_tracker/internal/app/port"
	"portfolio_tracker/internal/domain/entity"
	"portfolio_tracker/pkg/metrics"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"
)

// PortfolioServiceImpl implements port.PortfolioService. It fans the balance
// fetch out across all enabled chains and merges the tagged per-chain
// results, failing only when every chain failed.
type PortfolioServiceImpl struct {
	chainProvider  port.ChainProvider
	clientProvider port.BlockchainClientProvider
	tokenProvider  port.TokenProvider
	logger         port.Logger
	maxConcurrent  int
}

// NewPortfolioService creates a new PortfolioServiceImpl.
func NewPortfolioService(
	cp port.ChainProvider,
	bp port.BlockchainClientProvider,
	tp port.TokenProvider,
	l port.Logger,
	maxConcurrent int,
) port.PortfolioService {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &PortfolioServiceImpl{
		chainProvider:  cp,
		clientProvider: bp,
		tokenProvider:  tp,
		logger:         l,
		maxConcurrent:  maxConcurrent,
	}
}

// FetchPortfolio fetches native and token balances for an address across all
// enabled chains. An invalid address is rejected before any network call.
// Each chain's fetch is wrapped so its failure becomes a tagged result; the
// returned asset list preserves chain input order regardless of completion
// order.
func (s *PortfolioServiceImpl) FetchPortfolio(ctx context.Context, address string) ([]entity.Asset, []entity.PortfolioError, error) {
	if !common.IsHexAddress(address) {
		return nil, nil, fmt.Errorf("invalid wallet address: %q", address)
	}

	chains := s.chainProvider.GetAllChainDefinitions()
	if len(chains) == 0 {
		return nil, nil, fmt.Errorf("no chains enabled")
	}

	tokensByChain, err := s.tokenProvider.GetTokensByChain(chains)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load tracked tokens: %w", err)
	}

	s.logger.Debug("Fetching portfolio", "address", address, "chain_count", len(chains))

	// Indexed by chain input position, not completion order, so the merged
	// asset list is deterministic.
	results := make([]entity.ChainResult, len(chains))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrent)
	for i, chainDef := range chains {
		g.Go(func() error {
			results[i] = s.fetchChainAssets(gctx, address, chainDef, tokensByChain[chainDef.ChainID])
			return nil
		})
	}
	_ = g.Wait() // workers report failures through their ChainResult

	var assets []entity.Asset
	var partialErrs []entity.PortfolioError
	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
			metrics.ChainFetchTotal.WithLabelValues(res.Name, "failure").Inc()
			s.logger.Warn("Chain balance fetch failed", "chain", res.Name, "error", res.Err)
			partialErrs = append(partialErrs, entity.PortfolioError{
				WalletAddress: address,
				ChainID:       strconv.FormatUint(res.ChainID, 10),
				ChainName:     res.Name,
				Message:       res.Err.Error(),
			})
			continue
		}
		metrics.ChainFetchTotal.WithLabelValues(res.Name, "success").Inc()
		assets = append(assets, res.Assets...)
	}

	if failed == len(chains) {
		messages := make([]string, 0, len(partialErrs))
		for _, pe := range partialErrs {
			messages = append(messages, fmt.Sprintf("%s: %s", pe.ChainName, pe.Message))
		}
		return nil, partialErrs, fmt.Errorf("all chains failed: %s", strings.Join(messages, "; "))
	}

	s.logger.Info("Portfolio fetched", "address", address,
		"asset_count", len(assets), "failed_chains", failed)
	return assets, partialErrs, nil
}

// fetchChainAssets queries one chain and converts the batch results into
// assets. Any failure is folded into the returned ChainResult.
func (s *PortfolioServiceImpl) fetchChainAssets(
	ctx context.Context,
	address string,
	chainDef entity.ChainDefinition,
	tokens []entity.TokenInfo,
) entity.ChainResult {
	res := entity.ChainResult{ChainID: chainDef.ChainID, Name: chainDef.Name}

	client, err := s.clientProvider.GetClient(chainDef)
	if err != nil {
		res.Err = fmt.Errorf("failed to get client: %w", err)
		return res
	}

	nativeDecimals := chainDef.Decimals
	if nativeDecimals == 0 {
		nativeDecimals = 18
	}
	requests := []entity.BalanceRequestItem{{
		ID:            fmt.Sprintf("%s-%s-NATIVE", address, chainDef.Identifier),
		Type:          entity.NativeBalanceRequest,
		WalletAddress: address,
		TokenSymbol:   chainDef.NativeSymbol,
		TokenName:     chainDef.NativeName,
		TokenLogoURL:  chainDef.NativeLogoURL,
		TokenDecimals: uint8(nativeDecimals),
	}}

	for _, token := range tokens {
		if token.ChainID != chainDef.ChainID {
			s.logger.Warn("Token chain ID mismatch, skipping",
				"chain", chainDef.Name, "token_symbol", token.Symbol, "token_chain_id", token.ChainID)
			continue
		}
		requests = append(requests, entity.BalanceRequestItem{
			ID:            fmt.Sprintf("%s-%s-%s", address, chainDef.Identifier, token.Address),
			Type:          entity.TokenBalanceRequest,
			WalletAddress: address,
			TokenAddress:  token.Address,
			TokenSymbol:   token.Symbol,
			TokenName:     token.Name,
			TokenLogoURL:  token.LogoURL,
			TokenDecimals: token.Decimals,
		})
	}

	batchResults, err := client.GetBalances(ctx, requests)
	if err != nil {
		res.Err = fmt.Errorf("batch balance fetch failed: %w", err)
		return res
	}

	for _, item := range batchResults {
		if item.Error != nil {
			// A single bad token read degrades to a log line; the chain
			// still contributes its other balances.
			s.logger.Warn("Balance sub-request failed",
				"chain", chainDef.Name, "token_symbol", item.TokenSymbol,
				"token_address", item.TokenAddress, "error", item.Error)
			continue
		}
		if item.Balance == nil || item.Balance.Sign() == 0 {
			continue
		}

		contractAddress := item.TokenAddress
		if item.IsNative {
			contractAddress = entity.ZeroAddress
		}
		res.Assets = append(res.Assets, entity.Asset{
			UniqueID:   entity.AssetUniqueID(chainDef.ChainID, contractAddress),
			ChainID:    chainDef.ChainID,
			Address:    strings.ToLower(contractAddress),
			Symbol:     item.TokenSymbol,
			Name:       item.TokenName,
			Decimals:   item.Decimals,
			RawBalance: item.Balance.String(),
			Formatted:  item.FormattedBalance,
			LogoURL:    item.TokenLogoURL,
			Native:     item.IsNative,
		})
	}

	return res
}
