package port

import (
	"context"

	"portfolio_tracker/internal/domain/entity"
)

// BlockchainClient queries one chain for native and token balances.
// Implementations are specific to network types (currently EVM only).
type BlockchainClient interface {
	// GetBalances executes a batch of balance sub-requests. Per-item failures
	// are reported inside the result items; the returned error covers only
	// whole-batch failures (transport, RPC batch rejection).
	GetBalances(ctx context.Context, requests []entity.BalanceRequestItem) ([]entity.BalanceResultItem, error)

	// Definition returns the chain definition this client is bound to.
	Definition() entity.ChainDefinition
}

// BlockchainClientProvider hands out (and caches) per-chain clients.
type BlockchainClientProvider interface {
	GetClient(chainDef entity.ChainDefinition) (BlockchainClient, error)
}

// ChainProvider supplies the static chain registry.
type ChainProvider interface {
	// GetAllChainDefinitions returns the enabled chains in configured order.
	GetAllChainDefinitions() []entity.ChainDefinition

	// GetChainByID returns the definition for a chain ID, if enabled.
	GetChainByID(chainID uint64) (entity.ChainDefinition, bool)
}
