package port

import "portfolio_tracker/internal/domain/entity"

// TokenProvider supplies the tracked-token lists per chain.
type TokenProvider interface {
	// GetTokensByChain returns a map of chain ID to the tokens tracked on it,
	// restricted to the given chain definitions.
	GetTokensByChain(chains []entity.ChainDefinition) (map[uint64][]entity.TokenInfo, error)
}
