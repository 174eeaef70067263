package watchlist

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"portfolio_tracker/internal/app/port"

	"github.com/ethereum/go-ethereum/common"
)

// FileLoader reads the watched wallet addresses from a plain text file, one
// address per line. Blank lines and #-comments are ignored.
type FileLoader struct {
	filePath string
	logger   port.Logger
}

// NewFileLoader creates a new FileLoader.
func NewFileLoader(filePath string, l port.Logger) *FileLoader {
	return &FileLoader{
		filePath: filePath,
		logger:   l,
	}
}

// GetAddresses reads the watchlist file. Lines that are not valid hex
// addresses are logged and skipped rather than failing the whole list.
func (l *FileLoader) GetAddresses() ([]string, error) {
	file, err := os.Open(l.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open watchlist file %s: %w", l.filePath, err)
	}
	defer file.Close()

	var addresses []string
	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !common.IsHexAddress(line) {
			l.logger.Warn("Skipping invalid address in watchlist",
				"file", l.filePath, "line_number", lineNum, "address", line)
			continue
		}
		addresses = append(addresses, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error scanning watchlist file %s: %w", l.filePath, err)
	}

	l.logger.Info("Watchlist loaded", "count", len(addresses), "path", l.filePath)
	return addresses, nil
}
