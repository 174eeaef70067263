package httpclient

import (
	"context"
	"fmt"
	"strings"
	"time"

	"portfolio_tracker/internal/domain/entity"

	jsoniter "github.com/json-iterator/go"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// OracleClient talks to the price oracle's batch current-price and
// single-key history endpoints. Keys are "<chainSlug>:<contractAddress>".
type OracleClient interface {
	QueryPrices(ctx context.Context, keys []string) (map[string]entity.OraclePrice, error)
	QueryHistory(ctx context.Context, key string, spanDays int) ([]entity.PricePoint, error)
}

type oracleClientImpl struct {
	client          *fasthttp.Client
	baseURL         string
	timeout         time.Duration
	logger          *zap.Logger
	maxKeysPerBatch int
}

// NewOracleClient creates a new oracle client.
func NewOracleClient(baseURL string, timeout time.Duration, logger *zap.Logger, maxKeysPerBatch int) OracleClient {
	return &oracleClientImpl{
		client:          &fasthttp.Client{},
		baseURL:         strings.TrimRight(baseURL, "/"),
		timeout:         timeout,
		logger:          logger.Named("OracleClient"),
		maxKeysPerBatch: maxKeysPerBatch,
	}
}

type currentPricesResponse struct {
	Coins map[string]entity.OraclePrice `json:"coins"`
}

type historyResponse struct {
	Coins map[string]struct {
		Prices []entity.PricePoint `json:"prices"`
	} `json:"coins"`
}

func (c *oracleClientImpl) execute(ctx context.Context, requestURL string) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	req.SetRequestURI(requestURL)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.SetContentTypeBytes([]byte("application/json"))

	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	if deadline, ok := ctx.Deadline(); ok {
		if err := c.client.DoDeadline(req, resp, deadline); err != nil {
			return nil, fmt.Errorf("failed to execute request to %s: %w", requestURL, err)
		}
	} else {
		if err := c.client.DoTimeout(req, resp, c.timeout); err != nil {
			return nil, fmt.Errorf("failed to execute request to %s with default timeout: %w", requestURL, err)
		}
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		c.logger.Error("Oracle API request failed",
			zap.String("url", requestURL),
			zap.Int("statusCode", resp.StatusCode()),
			zap.ByteString("responseBody", resp.Body()))
		return nil, fmt.Errorf("oracle request to %s failed with status %d", requestURL, resp.StatusCode())
	}

	// fasthttp reuses response buffers after release.
	body := make([]byte, len(resp.Body()))
	copy(body, resp.Body())
	return body, nil
}

// QueryPrices fetches current prices for up to maxKeysPerBatch keys in one
// request. Keys missing from the response carry no price; the caller treats
// absence as failure, not as zero.
func (c *oracleClientImpl) QueryPrices(ctx context.Context, keys []string) (map[string]entity.OraclePrice, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("keys cannot be empty")
	}
	if len(keys) > c.maxKeysPerBatch {
		return nil, fmt.Errorf("number of keys (%d) exceeds max keys per batch (%d)", len(keys), c.maxKeysPerBatch)
	}

	requestURL := fmt.Sprintf("%s/prices/current/%s", c.baseURL, strings.Join(keys, ","))
	c.logger.Debug("Requesting current prices from oracle", zap.String("url", requestURL), zap.Int("keyCount", len(keys)))

	body, err := c.execute(ctx, requestURL)
	if err != nil {
		return nil, err
	}

	var parsed currentPricesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal oracle prices response from %s: %w", requestURL, err)
	}

	if len(parsed.Coins) == 0 {
		c.logger.Warn("Oracle returned 200 OK with no priced coins",
			zap.String("url", requestURL), zap.Int("requestedKeys", len(keys)))
	}
	return parsed.Coins, nil
}

// QueryHistory fetches the raw daily price series for one key over spanDays.
// Points come back oldest first.
func (c *oracleClientImpl) QueryHistory(ctx context.Context, key string, spanDays int) ([]entity.PricePoint, error) {
	if key == "" {
		return nil, fmt.Errorf("key cannot be empty")
	}
	if spanDays <= 0 {
		spanDays = 7
	}

	requestURL := fmt.Sprintf("%s/chart/%s?span=%d&period=1d", c.baseURL, key, spanDays)
	c.logger.Debug("Requesting price history from oracle", zap.String("url", requestURL))

	body, err := c.execute(ctx, requestURL)
	if err != nil {
		return nil, err
	}

	var parsed historyResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal oracle history response from %s: %w", requestURL, err)
	}

	coin, ok := parsed.Coins[key]
	if !ok || len(coin.Prices) == 0 {
		return nil, fmt.Errorf("oracle returned no history for key %s", key)
	}
	return coin.Prices, nil
}
