package client

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"portfolio_tracker/internal/entity"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// CoinGeckoClient defines the read-only operations the tracker needs
// from the market data provider. Every call is a single network round
// trip; there are no retries at this layer. Failures, including a
// response missing the expected nested price field, surface as errors
// which callers translate to "data unavailable", never to zero.
type CoinGeckoClient interface {
	GetSimplePrice(ctx context.Context, assetID, currencySymbol string) (decimal.Decimal, error)
	GetSupportedCurrencies(ctx context.Context) ([]entity.Currency, error)
	GetTopAssets(ctx context.Context, limit int) ([]entity.Asset, error)
}

// coinGeckoClientImpl is the fasthttp-backed implementation of CoinGeckoClient.
type coinGeckoClientImpl struct {
	client  *fasthttp.Client
	baseURL string
	apiKey  string
	timeout time.Duration
	logger  *zap.Logger
}

// NewCoinGeckoClient creates a new instance of coinGeckoClientImpl.
// apiKey may be empty; the provider's public endpoints work without one
// at a lower rate limit.
func NewCoinGeckoClient(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) CoinGeckoClient {
	return &coinGeckoClientImpl{
		client:  &fasthttp.Client{},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		timeout: timeout,
		logger:  logger.Named("CoinGeckoClient"),
	}
}

// GetSimplePrice fetches the current price of one asset in one display
// currency. The currency symbol is lower-cased both in the request and
// when reading the response, as the provider treats it case-insensitively.
func (c *coinGeckoClientImpl) GetSimplePrice(ctx context.Context, assetID, currencySymbol string) (decimal.Decimal, error) {
	if assetID == "" || currencySymbol == "" {
		return decimal.Zero, fmt.Errorf("assetID and currencySymbol are required")
	}
	symbol := strings.ToLower(currencySymbol)

	requestURL := fmt.Sprintf("%s/api/v3/simple/price?ids=%s&vs_currencies=%s",
		c.baseURL, url.QueryEscape(assetID), url.QueryEscape(symbol))

	body, err := c.get(ctx, requestURL)
	if err != nil {
		return decimal.Zero, err
	}

	var prices entity.SimplePriceResponse
	if err := json.Unmarshal(body, &prices); err != nil {
		c.logger.Error("Failed to unmarshal simple price response",
			zap.String("assetID", assetID),
			zap.String("currency", symbol),
			zap.Error(err))
		return decimal.Zero, fmt.Errorf("failed to unmarshal simple price response: %w", err)
	}

	byCurrency, ok := prices[assetID]
	if !ok {
		return decimal.Zero, fmt.Errorf("simple price response has no entry for asset %q", assetID)
	}
	price, ok := byCurrency[symbol]
	if !ok {
		return decimal.Zero, fmt.Errorf("simple price response for asset %q has no price in %q", assetID, symbol)
	}

	c.logger.Debug("Fetched spot price",
		zap.String("assetID", assetID),
		zap.String("currency", symbol),
		zap.String("price", price.String()))
	return price, nil
}

// GetSupportedCurrencies fetches the flat list of display currency
// symbols the provider can quote prices in.
func (c *coinGeckoClientImpl) GetSupportedCurrencies(ctx context.Context) ([]entity.Currency, error) {
	requestURL := c.baseURL + "/api/v3/simple/supported_vs_currencies"

	body, err := c.get(ctx, requestURL)
	if err != nil {
		return nil, err
	}

	var symbols []string
	if err := json.Unmarshal(body, &symbols); err != nil {
		return nil, fmt.Errorf("failed to unmarshal supported currencies response: %w", err)
	}

	currencies := make([]entity.Currency, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		currencies = append(currencies, entity.Currency{ID: s, Symbol: s, DisplayName: s})
	}
	c.logger.Debug("Fetched supported currencies", zap.Int("count", len(currencies)))
	return currencies, nil
}

// GetTopAssets fetches the provider's market-cap ranked asset listing,
// truncated to limit entries.
func (c *coinGeckoClientImpl) GetTopAssets(ctx context.Context, limit int) ([]entity.Asset, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	requestURL := c.baseURL + "/api/v3/coins/markets?vs_currency=usd&order=market_cap_desc&per_page=100&page=1&sparkline=false"

	body, err := c.get(ctx, requestURL)
	if err != nil {
		return nil, err
	}

	var markets []entity.CoinMarket
	if err := json.Unmarshal(body, &markets); err != nil {
		return nil, fmt.Errorf("failed to unmarshal markets response: %w", err)
	}

	if len(markets) > limit {
		markets = markets[:limit]
	}
	assets := make([]entity.Asset, 0, len(markets))
	for _, m := range markets {
		assets = append(assets, m.Asset())
	}
	c.logger.Debug("Fetched top assets", zap.Int("count", len(assets)))
	return assets, nil
}

// get performs one GET round trip, honoring the context deadline when
// present and the configured default timeout otherwise.
func (c *coinGeckoClientImpl) get(ctx context.Context, requestURL string) ([]byte, error) {
	logURL := requestURL // logged without the api key
	if c.apiKey != "" {
		sep := "?"
		if strings.Contains(requestURL, "?") {
			sep = "&"
		}
		requestURL = requestURL + sep + "x_cg_demo_api_key=" + url.QueryEscape(c.apiKey)
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	req.SetRequestURI(requestURL)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")

	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	if deadline, ok := ctx.Deadline(); ok {
		if err := c.client.DoDeadline(req, resp, deadline); err != nil {
			c.logger.Error("Failed to execute request to CoinGecko", zap.String("url", logURL), zap.Error(err))
			return nil, fmt.Errorf("failed to execute request to %s: %w", logURL, err)
		}
	} else {
		if err := c.client.DoTimeout(req, resp, c.timeout); err != nil {
			c.logger.Error("Failed to execute request to CoinGecko (with default timeout)", zap.String("url", logURL), zap.Error(err))
			return nil, fmt.Errorf("failed to execute request to %s with default timeout: %w", logURL, err)
		}
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		c.logger.Error("CoinGecko API request failed",
			zap.String("url", logURL),
			zap.Int("statusCode", resp.StatusCode()))
		return nil, fmt.Errorf("CoinGecko API request to %s failed with status %d", logURL, resp.StatusCode())
	}

	// The response body is reused by fasthttp once released; copy it out.
	body := make([]byte, len(resp.Body()))
	copy(body, resp.Body())
	return body, nil
}
