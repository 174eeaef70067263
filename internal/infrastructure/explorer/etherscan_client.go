// Package explorer implements the block-explorer transaction-list client
// consumed by the gas-spend accumulator.
package explorer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"portfolio_tracker/internal/domain/entity"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// EtherscanClient fetches the full transaction list of an address from an
// Etherscan-compatible API. A shared rate limiter keeps the client under the
// free-tier request ceiling.
type EtherscanClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewEtherscanClient creates a client for the given API endpoint.
func NewEtherscanClient(baseURL, apiKey string, timeout time.Duration, requestsPerSecond float64, logger *zap.Logger) *EtherscanClient {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 3
	}
	return &EtherscanClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		logger:  logger.Named("EtherscanClient"),
	}
}

// ListTransactions returns all normal transactions for an address, oldest
// first. The API key is a hard precondition: without it the endpoint returns
// rate-limit errors dressed up as results.
func (c *EtherscanClient) ListTransactions(ctx context.Context, address string) ([]entity.ExplorerTransaction, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("explorer API key is not configured")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("module", "account")
	params.Set("action", "txlist")
	params.Set("address", address)
	params.Set("startblock", "0")
	params.Set("endblock", "99999999")
	params.Set("sort", "asc")
	params.Set("apikey", c.apiKey)
	requestURL := c.baseURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build explorer request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("explorer request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read explorer response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("explorer request failed with status %d", resp.StatusCode)
	}

	parsed := gjson.ParseBytes(body)

	// Etherscan reports errors with status "0" and a string result, except
	// for the benign "no transactions found" case.
	status := parsed.Get("status").String()
	result := parsed.Get("result")
	if status != "1" {
		message := parsed.Get("message").String()
		if strings.EqualFold(message, "No transactions found") {
			return []entity.ExplorerTransaction{}, nil
		}
		if !result.IsArray() {
			return nil, fmt.Errorf("explorer API error: %s (%s)", message, result.String())
		}
	}

	var txs []entity.ExplorerTransaction
	result.ForEach(func(_, tx gjson.Result) bool {
		txs = append(txs, entity.ExplorerTransaction{
			Hash:     tx.Get("hash").String(),
			From:     tx.Get("from").String(),
			To:       tx.Get("to").String(),
			Value:    tx.Get("value").String(),
			GasUsed:  tx.Get("gasUsed").String(),
			GasPrice: tx.Get("gasPrice").String(),
			IsError:  tx.Get("isError").String(),
		})
		return true
	})

	c.logger.Debug("Fetched transaction list from explorer",
		zap.String("address", address), zap.Int("count", len(txs)))
	return txs, nil
}
