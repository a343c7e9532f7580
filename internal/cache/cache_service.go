// Package cache provides Redis-based caching for candle series and scan
// results, shared across instances.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"signal-scanner/internal/candles"
)

// Key prefixes for the cache types this service owns.
const (
	prefixCandles  = "candles:%s:%d" // symbol, intervalMinutes
	prefixLastScan = "scan:last"
	prefixScanByID = "scan:%s" // scan ID
)

// Default TTLs
const (
	DefaultCandleTTL = time.Minute
	DefaultScanTTL   = 10 * time.Minute
)

// CacheService caches candle slices and scan results in Redis with
// graceful degradation: when Redis is down, reads miss and writes are
// dropped, and the pipeline recomputes from source.
type CacheService struct {
	client *redis.Client
	log    zerolog.Logger

	candleTTL time.Duration
	scanTTL   time.Duration
}

// Config holds Redis connection configuration.
type Config struct {
	Address  string
	Password string
	DB       int
}

// NewCacheService connects to Redis and verifies connectivity.
func NewCacheService(cfg Config, log zerolog.Logger) (*CacheService, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Address, err)
	}

	return &CacheService{
		client:    client,
		log:       log.With().Str("component", "cache").Logger(),
		candleTTL: DefaultCandleTTL,
		scanTTL:   DefaultScanTTL,
	}, nil
}

// Close releases the Redis connection.
func (cs *CacheService) Close() error {
	return cs.client.Close()
}

// GetCandles returns a cached candle series, or false on miss or error.
func (cs *CacheService) GetCandles(ctx context.Context, symbol string, intervalMinutes int) ([]candles.Candle, bool) {
	key := fmt.Sprintf(prefixCandles, symbol, intervalMinutes)
	data, err := cs.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			cs.log.Warn().Err(err).Str("key", key).Msg("Candle cache read failed")
		}
		return nil, false
	}

	var series []candles.Candle
	if err := json.Unmarshal(data, &series); err != nil {
		cs.log.Warn().Err(err).Str("key", key).Msg("Candle cache entry corrupt, dropping")
		cs.client.Del(ctx, key)
		return nil, false
	}
	return series, true
}

// PutCandles stores a candle series. Write failures are logged, not
// returned: the cache is an accelerator, never a dependency.
func (cs *CacheService) PutCandles(ctx context.Context, symbol string, intervalMinutes int, series []candles.Candle) {
	data, err := json.Marshal(series)
	if err != nil {
		return
	}
	key := fmt.Sprintf(prefixCandles, symbol, intervalMinutes)
	if err := cs.client.Set(ctx, key, data, cs.candleTTL).Err(); err != nil {
		cs.log.Warn().Err(err).Str("key", key).Msg("Candle cache write failed")
	}
}

// PutScan stores a completed scan result under its ID and as the latest.
func (cs *CacheService) PutScan(ctx context.Context, scanID string, result interface{}) {
	data, err := json.Marshal(result)
	if err != nil {
		return
	}
	pipe := cs.client.Pipeline()
	pipe.Set(ctx, fmt.Sprintf(prefixScanByID, scanID), data, cs.scanTTL)
	pipe.Set(ctx, prefixLastScan, data, cs.scanTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		cs.log.Warn().Err(err).Str("scan_id", scanID).Msg("Scan cache write failed")
	}
}

// GetLastScan returns the most recent cached scan payload.
func (cs *CacheService) GetLastScan(ctx context.Context) (json.RawMessage, bool) {
	data, err := cs.client.Get(ctx, prefixLastScan).Bytes()
	if err != nil {
		if err != redis.Nil {
			cs.log.Warn().Err(err).Msg("Scan cache read failed")
		}
		return nil, false
	}
	return data, true
}

// GetScan returns a cached scan payload by ID.
func (cs *CacheService) GetScan(ctx context.Context, scanID string) (json.RawMessage, bool) {
	data, err := cs.client.Get(ctx, fmt.Sprintf(prefixScanByID, scanID)).Bytes()
	if err != nil {
		return nil, false
	}
	return data, true
}
