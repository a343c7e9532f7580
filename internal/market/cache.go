package market

import (
	"fmt"
	"sync"
	"time"

	"signal-scanner/internal/candles"
)

// PriceQuote is a cached price observation.
type PriceQuote struct {
	Price     float64
	UpdatedAt time.Time
}

// AgeMinutes reports how stale the quote is.
func (q PriceQuote) AgeMinutes() float64 {
	return time.Since(q.UpdatedAt).Minutes()
}

type cachedCandles struct {
	data      []candles.Candle
	updatedAt time.Time
}

// DataCache is the staleness-aware in-process cache between the stream,
// the REST client and the pipeline. Entries past their TTL read as
// misses; PeekPrice still surfaces them so the API can attach a
// staleness warning instead of dropping price context entirely.
type DataCache struct {
	prices  sync.Map // symbol -> PriceQuote
	candles sync.Map // "symbol:interval" -> cachedCandles

	priceTTL  time.Duration
	candleTTL time.Duration
}

// NewDataCache creates a cache with the given TTLs.
func NewDataCache(priceTTL, candleTTL time.Duration) *DataCache {
	if priceTTL <= 0 {
		priceTTL = 30 * time.Second
	}
	if candleTTL <= 0 {
		candleTTL = time.Minute
	}
	return &DataCache{priceTTL: priceTTL, candleTTL: candleTTL}
}

// PutPrice stores a fresh price observation.
func (c *DataCache) PutPrice(symbol string, price float64) {
	c.prices.Store(symbol, PriceQuote{Price: price, UpdatedAt: time.Now()})
}

// GetPrice returns the quote when it is within the freshness TTL.
func (c *DataCache) GetPrice(symbol string) (PriceQuote, bool) {
	if val, ok := c.prices.Load(symbol); ok {
		quote := val.(PriceQuote)
		if time.Since(quote.UpdatedAt) < c.priceTTL {
			return quote, true
		}
	}
	return PriceQuote{}, false
}

// PeekPrice returns the quote regardless of age. The second return is
// false only when the symbol has never been seen.
func (c *DataCache) PeekPrice(symbol string) (PriceQuote, bool) {
	if val, ok := c.prices.Load(symbol); ok {
		return val.(PriceQuote), true
	}
	return PriceQuote{}, false
}

// PutCandles stores a candle series for a symbol and interval.
func (c *DataCache) PutCandles(symbol string, intervalMinutes int, series []candles.Candle) {
	c.candles.Store(candleKey(symbol, intervalMinutes), cachedCandles{
		data:      series,
		updatedAt: time.Now(),
	})
}

// GetCandles returns the cached series when it is within the TTL.
func (c *DataCache) GetCandles(symbol string, intervalMinutes int) ([]candles.Candle, bool) {
	if val, ok := c.candles.Load(candleKey(symbol, intervalMinutes)); ok {
		cached := val.(cachedCandles)
		if time.Since(cached.updatedAt) < c.candleTTL {
			return cached.data, true
		}
	}
	return nil, false
}

func candleKey(symbol string, intervalMinutes int) string {
	return fmt.Sprintf("%s:%d", symbol, intervalMinutes)
}
