package tokenregistry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"portfolio_tracker/internal/app/port"
	"portfolio_tracker/internal/domain/entity"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// FileLoader implements port.TokenProvider by reading per-chain JSON files
// from a directory. Each file is named after a chain identifier, e.g.
// ethereum.json, and holds an array of tracked tokens.
type FileLoader struct {
	tokenDirPath string
	logger       port.Logger
}

// NewFileLoader creates a new FileLoader.
func NewFileLoader(tokenDirPath string, l port.Logger) port.TokenProvider {
	return &FileLoader{
		tokenDirPath: tokenDirPath,
		logger:       l,
	}
}

// GetTokensByChain scans the token directory and loads the files matching the
// given chains' identifiers. Unreadable or malformed files are logged and
// skipped, not fatal; tokens whose chain ID contradicts their file's chain
// are dropped individually.
func (l *FileLoader) GetTokensByChain(chains []entity.ChainDefinition) (map[uint64][]entity.TokenInfo, error) {
	tokensByChainID := make(map[uint64][]entity.TokenInfo)

	files, err := os.ReadDir(l.tokenDirPath)
	if err != nil {
		if os.IsNotExist(err) {
			l.logger.Warn("Token directory missing, tracking native balances only", "path", l.tokenDirPath)
			return tokensByChainID, nil
		}
		return nil, fmt.Errorf("failed to read token directory %s: %w", l.tokenDirPath, err)
	}

	chainsByIdentifier := make(map[string]entity.ChainDefinition, len(chains))
	for _, chainDef := range chains {
		chainsByIdentifier[chainDef.Identifier] = chainDef
	}

	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(strings.ToLower(file.Name()), ".json") {
			continue
		}

		identifier := strings.TrimSuffix(file.Name(), filepath.Ext(file.Name()))
		chainDef, active := chainsByIdentifier[identifier]
		if !active {
			continue
		}

		filePath := filepath.Join(l.tokenDirPath, file.Name())
		data, err := os.ReadFile(filePath)
		if err != nil {
			l.logger.Warn("Failed to read token file, skipping", "path", filePath, "error", err)
			continue
		}

		var tokensInFile []entity.TokenInfo
		if err := json.Unmarshal(data, &tokensInFile); err != nil {
			l.logger.Warn("Failed to parse token file, skipping", "path", filePath, "error", err)
			continue
		}

		valid := make([]entity.TokenInfo, 0, len(tokensInFile))
		for _, token := range tokensInFile {
			if token.ChainID != chainDef.ChainID {
				l.logger.Warn("Token chain ID contradicts its file, skipping token",
					"file", filePath, "token_symbol", token.Symbol,
					"token_chain_id", token.ChainID, "expected_chain_id", chainDef.ChainID)
				continue
			}
			if token.Address == "" {
				l.logger.Warn("Token without address, skipping token",
					"file", filePath, "token_symbol", token.Symbol)
				continue
			}
			valid = append(valid, token)
		}

		if len(valid) > 0 {
			tokensByChainID[chainDef.ChainID] = append(tokensByChainID[chainDef.ChainID], valid...)
			l.logger.Info("Loaded tracked tokens",
				"chain", chainDef.Identifier, "file", file.Name(), "count", len(valid))
		}
	}

	return tokensByChainID, nil
}
