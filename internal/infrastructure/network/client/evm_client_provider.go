package client

import (
	"fmt"
	"sync"
	"time"

	"portfolio_tracker/internal/app/port"
	"portfolio_tracker/internal/domain/entity"
	"portfolio_tracker/internal/infrastructure/configloader"
)

const defaultConnectionTimeout = 10 * time.Second

// evmClientProvider implements port.BlockchainClientProvider, caching one
// client per chain so repeated fetch cycles reuse connections.
type evmClientProvider struct {
	clients           map[uint64]port.BlockchainClient
	mu                sync.Mutex
	logger            port.Logger
	connectionTimeout time.Duration
	rpcCallTimeout    time.Duration
}

// NewEVMClientProvider creates a provider with timeouts taken from config.
func NewEVMClientProvider(cfg *configloader.Config, l port.Logger) port.BlockchainClientProvider {
	return &evmClientProvider{
		clients:           make(map[uint64]port.BlockchainClient),
		logger:            l,
		connectionTimeout: defaultConnectionTimeout,
		rpcCallTimeout:    time.Duration(cfg.Performance.RPCCallTimeoutSeconds) * time.Second,
	}
}

// GetClient returns the cached client for a chain, dialing it on first use.
func (p *evmClientProvider) GetClient(chainDef entity.ChainDefinition) (port.BlockchainClient, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if existing, ok := p.clients[chainDef.ChainID]; ok {
		return existing, nil
	}

	p.logger.Debug("Creating new EVM client", "chain", chainDef.Name, "rpc_primary", chainDef.PrimaryRPCURL)
	newClient, err := NewEVMClient(chainDef, p.connectionTimeout, p.rpcCallTimeout)
	if err != nil {
		p.logger.Error("Failed to create EVM client", "chain", chainDef.Name, "error", err)
		return nil, fmt.Errorf("failed to create EVM client for %s: %w", chainDef.Name, err)
	}

	p.clients[chainDef.ChainID] = newClient
	return newClient, nil
}
