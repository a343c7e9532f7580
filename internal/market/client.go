package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"signal-scanner/internal/candles"
)

// Client is the REST client for the upstream bar/price source. Responses
// feed the analysis pipeline, so lookup failures come back as empty
// results rather than errors wherever the upstream allows it.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *RateLimiter
	cache      *DataCache
	log        zerolog.Logger
}

// NewClient creates a market data client.
func NewClient(apiKey, baseURL string, cache *DataCache, log zerolog.Logger) *Client {
	return &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    NewRateLimiter(),
		cache:      cache,
		log:        log.With().Str("component", "market_client").Logger(),
	}
}

// intervalString renders minutes into the upstream interval notation.
func intervalString(intervalMinutes int) string {
	if intervalMinutes >= 60 && intervalMinutes%60 == 0 {
		return fmt.Sprintf("%dh", intervalMinutes/60)
	}
	return fmt.Sprintf("%dm", intervalMinutes)
}

// GetCandles fetches up to limit bars for one symbol. Unknown symbols and
// transient upstream failures return an empty slice with the error; callers
// in the scan path log and move on.
func (c *Client) GetCandles(ctx context.Context, symbol string, intervalMinutes, limit int) ([]candles.Candle, error) {
	if cached, ok := c.cache.GetCandles(symbol, intervalMinutes); ok && len(cached) >= limit {
		return cached[len(cached)-limit:], nil
	}

	if !c.limiter.Acquire(weightKlines) {
		return nil, fmt.Errorf("rate limit budget exhausted for %s klines", symbol)
	}

	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", intervalString(intervalMinutes))
	params.Set("limit", strconv.Itoa(limit))

	body, err := c.get(ctx, "/api/v3/klines", params)
	if err != nil {
		return nil, err
	}

	var rawKlines [][]interface{}
	if err := json.Unmarshal(body, &rawKlines); err != nil {
		return nil, fmt.Errorf("error parsing klines: %w", err)
	}

	out := make([]candles.Candle, 0, len(rawKlines))
	for _, raw := range rawKlines {
		if len(raw) < 6 {
			continue
		}
		openTime, ok := raw[0].(float64)
		if !ok {
			continue
		}
		out = append(out, candles.Candle{
			TimestampUTC:    time.UnixMilli(int64(openTime)).UTC(),
			Open:            parseFloat(raw[1]),
			High:            parseFloat(raw[2]),
			Low:             parseFloat(raw[3]),
			Close:           parseFloat(raw[4]),
			Volume:          parseFloat(raw[5]),
			IntervalMinutes: intervalMinutes,
		})
	}

	c.cache.PutCandles(symbol, intervalMinutes, out)
	return out, nil
}

// GetCandlesRange fetches bars between two instants, inclusive start,
// exclusive end.
func (c *Client) GetCandlesRange(ctx context.Context, symbol string, intervalMinutes int, start, end time.Time) ([]candles.Candle, error) {
	if !c.limiter.Acquire(weightKlines) {
		return nil, fmt.Errorf("rate limit budget exhausted for %s klines", symbol)
	}

	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", intervalString(intervalMinutes))
	params.Set("startTime", strconv.FormatInt(start.UnixMilli(), 10))
	params.Set("endTime", strconv.FormatInt(end.UnixMilli(), 10))
	params.Set("limit", "1000")

	body, err := c.get(ctx, "/api/v3/klines", params)
	if err != nil {
		return nil, err
	}

	var rawKlines [][]interface{}
	if err := json.Unmarshal(body, &rawKlines); err != nil {
		return nil, fmt.Errorf("error parsing klines: %w", err)
	}

	out := make([]candles.Candle, 0, len(rawKlines))
	for _, raw := range rawKlines {
		if len(raw) < 6 {
			continue
		}
		openTime, ok := raw[0].(float64)
		if !ok {
			continue
		}
		out = append(out, candles.Candle{
			TimestampUTC:    time.UnixMilli(int64(openTime)).UTC(),
			Open:            parseFloat(raw[1]),
			High:            parseFloat(raw[2]),
			Low:             parseFloat(raw[3]),
			Close:           parseFloat(raw[4]),
			Volume:          parseFloat(raw[5]),
			IntervalMinutes: intervalMinutes,
		})
	}
	return out, nil
}

// GetRealTimePrice returns the current price. The stream-fed cache answers
// first; a REST lookup backs it up. The bool is false when neither source
// has the symbol.
func (c *Client) GetRealTimePrice(ctx context.Context, symbol string) (float64, bool) {
	if quote, ok := c.cache.GetPrice(symbol); ok {
		return quote.Price, true
	}

	if !c.limiter.Acquire(weightTicker) {
		return 0, false
	}

	params := url.Values{}
	params.Set("symbol", symbol)

	body, err := c.get(ctx, "/api/v3/ticker/price", params)
	if err != nil {
		c.log.Warn().Err(err).Str("symbol", symbol).Msg("Real-time price lookup failed")
		return 0, false
	}

	var ticker struct {
		Symbol string `json:"symbol"`
		Price  string `json:"price"`
	}
	if err := json.Unmarshal(body, &ticker); err != nil {
		return 0, false
	}
	price, err := strconv.ParseFloat(ticker.Price, 64)
	if err != nil || price <= 0 {
		return 0, false
	}

	c.cache.PutPrice(symbol, price)
	return price, true
}

// GetAllSymbols lists tradeable symbols from exchange info.
func (c *Client) GetAllSymbols(ctx context.Context) ([]string, error) {
	if !c.limiter.Acquire(weightExchangeInfo) {
		return nil, fmt.Errorf("rate limit budget exhausted for exchange info")
	}

	body, err := c.get(ctx, "/api/v3/exchangeInfo", nil)
	if err != nil {
		return nil, err
	}

	var info struct {
		Symbols []struct {
			Symbol string `json:"symbol"`
			Status string `json:"status"`
		} `json:"symbols"`
	}
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("error parsing exchange info: %w", err)
	}

	symbols := make([]string, 0, len(info.Symbols))
	for _, s := range info.Symbols {
		if s.Status == "TRADING" {
			symbols = append(symbols, s.Symbol)
		}
	}
	return symbols, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("error building request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("X-MBX-APIKEY", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error fetching %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusForbidden {
		c.limiter.RecordRateLimitError(resp.Header.Get("Retry-After"))
		return nil, fmt.Errorf("upstream rate limited: %s", string(body))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("upstream error %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

func parseFloat(v interface{}) float64 {
	switch val := v.(type) {
	case string:
		f, _ := strconv.ParseFloat(val, 64)
		return f
	case float64:
		return val
	default:
		return 0
	}
}
