package marketdata

import (
	"context"
	"fmt"
	"sync"
	"time"

	"valuation-lab/internal/domain"
)

// cacheItem stores a cached series with expiration.
type cacheItem struct {
	series   *domain.RawSeries
	expireAt time.Time
}

// SeriesCacheConfig configures SeriesCache.
type SeriesCacheConfig struct {
	// TTL is how long an entry stays valid after Set.
	TTL time.Duration
	// MaxSize bounds the number of entries; the least recently used
	// entry is evicted when the bound is hit.
	MaxSize int
	// CleanupInterval is how often expired entries are swept.
	CleanupInterval time.Duration
}

// DefaultSeriesCacheConfig returns default cache configuration.
func DefaultSeriesCacheConfig() SeriesCacheConfig {
	return SeriesCacheConfig{
		TTL:             15 * time.Minute,
		MaxSize:         256,
		CleanupInterval: 5 * time.Minute,
	}
}

// SeriesCache is an explicit TTL cache for fetched series. It is owned
// by the caller and passed where needed; there is no package-level
// cache state.
type SeriesCache struct {
	mu      sync.Mutex
	data    map[string]*cacheItem
	access  map[string]time.Time
	ttl     time.Duration
	maxSize int
	ticker  *time.Ticker
	done    chan struct{}
}

// NewSeriesCache creates a series cache. Close must be called to stop
// the background sweeper.
func NewSeriesCache(config *SeriesCacheConfig) *SeriesCache {
	cfg := DefaultSeriesCacheConfig()
	if config != nil {
		cfg = *config
	}

	c := &SeriesCache{
		data:    make(map[string]*cacheItem),
		access:  make(map[string]time.Time),
		ttl:     cfg.TTL,
		maxSize: cfg.MaxSize,
		ticker:  time.NewTicker(cfg.CleanupInterval),
		done:    make(chan struct{}),
	}

	go c.sweepExpired()
	return c
}

// Key builds the cache key for a symbol, kind and date range.
func Key(symbol string, kind SeriesKind, from, to time.Time) string {
	return fmt.Sprintf("%s|%s|%s|%s",
		symbol, kind,
		from.UTC().Format("2006-01-02"),
		to.UTC().Format("2006-01-02"))
}

// Get returns the cached series for key, or ErrCacheMiss when the key
// is absent or expired.
func (c *SeriesCache) Get(key string) (*domain.RawSeries, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.data[key]
	if !ok || time.Now().After(item.expireAt) {
		if ok {
			delete(c.data, key)
			delete(c.access, key)
		}
		return nil, ErrCacheMiss
	}

	c.access[key] = time.Now()
	return item.series, nil
}

// Set stores a series under key with the configured TTL.
func (c *SeriesCache) Set(key string, series *domain.RawSeries) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.data[key]; !exists && len(c.data) >= c.maxSize {
		c.evictLRU()
	}

	c.data[key] = &cacheItem{
		series:   series,
		expireAt: time.Now().Add(c.ttl),
	}
	c.access[key] = time.Now()
}

// Invalidate removes the given keys.
func (c *SeriesCache) Invalidate(keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, key := range keys {
		delete(c.data, key)
		delete(c.access, key)
	}
}

// Len returns the number of live entries, expired included until swept.
func (c *SeriesCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}

// Close stops the background sweeper.
func (c *SeriesCache) Close() error {
	c.ticker.Stop()
	close(c.done)
	return nil
}

func (c *SeriesCache) evictLRU() {
	var oldestKey string
	oldestTime := time.Now()

	for key, accessTime := range c.access {
		if accessTime.Before(oldestTime) {
			oldestTime = accessTime
			oldestKey = key
		}
	}

	if oldestKey != "" {
		delete(c.data, oldestKey)
		delete(c.access, oldestKey)
	}
}

func (c *SeriesCache) sweepExpired() {
	for {
		select {
		case <-c.done:
			return
		case <-c.ticker.C:
			c.mu.Lock()
			now := time.Now()
			for key, item := range c.data {
				if now.After(item.expireAt) {
					delete(c.data, key)
					delete(c.access, key)
				}
			}
			c.mu.Unlock()
		}
	}
}

// CachedHistory wraps history providers with a SeriesCache.
type CachedHistory struct {
	prices     PriceHistoryProvider
	valuations ValuationHistoryProvider
	cache      *SeriesCache
}

// NewCachedHistory wraps the given providers with the given cache.
func NewCachedHistory(prices PriceHistoryProvider, valuations ValuationHistoryProvider, cache *SeriesCache) *CachedHistory {
	return &CachedHistory{prices: prices, valuations: valuations, cache: cache}
}

// PriceHistory returns cached price history, fetching on miss.
func (h *CachedHistory) PriceHistory(ctx context.Context, symbol string, from, to time.Time) (*domain.RawSeries, error) {
	key := Key(symbol, KindPrice, from, to)
	if series, err := h.cache.Get(key); err == nil {
		return series, nil
	}

	series, err := h.prices.PriceHistory(ctx, symbol, from, to)
	if err != nil {
		return nil, err
	}
	h.cache.Set(key, series)
	return series, nil
}

// ValuationHistory returns cached valuation history, fetching on miss.
func (h *CachedHistory) ValuationHistory(ctx context.Context, symbol string, kind SeriesKind, from, to time.Time) (*domain.RawSeries, error) {
	key := Key(symbol, kind, from, to)
	if series, err := h.cache.Get(key); err == nil {
		return series, nil
	}

	series, err := h.valuations.ValuationHistory(ctx, symbol, kind, from, to)
	if err != nil {
		return nil, err
	}
	h.cache.Set(key, series)
	return series, nil
}

// Compile-time interface checks.
var (
	_ PriceHistoryProvider     = (*CachedHistory)(nil)
	_ ValuationHistoryProvider = (*CachedHistory)(nil)
)
