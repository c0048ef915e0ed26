package marketdata

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Cache stores fetched stock data under a (ticker, timeframe) key with a
// time-to-live. Implementations: the in-memory cache below and the
// store-backed quote cache.
type Cache interface {
	Get(ctx context.Context, key string) (*StockData, bool, error)
	Set(ctx context.Context, key string, data *StockData, ttl time.Duration) error
}

// CachingClient wraps a Client with a TTL cache. Concurrent requests for
// the same key (serve mode) collapse into a single provider call.
type CachingClient struct {
	inner Client
	cache Cache
	ttl   time.Duration
	group singleflight.Group
}

// NewCachingClient wraps inner with the given cache and TTL.
func NewCachingClient(inner Client, cache Cache, ttl time.Duration) *CachingClient {
	return &CachingClient{inner: inner, cache: cache, ttl: ttl}
}

// CacheKey builds the cache key for one (ticker, timeframe) pull.
func CacheKey(ticker string, tf Timeframe) string {
	return ticker + "|" + tf.Key()
}

// FetchStockData returns cached data when fresh, otherwise fetches through
// the inner client and stores the result.
func (c *CachingClient) FetchStockData(ctx context.Context, ticker string, tf Timeframe) (*StockData, error) {
	key := CacheKey(ticker, tf)

	if data, ok, err := c.cache.Get(ctx, key); err != nil {
		zap.L().Warn("marketdata: cache read failed", zap.String("key", key), zap.Error(err))
	} else if ok {
		return data, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		data, err := c.inner.FetchStockData(ctx, ticker, tf)
		if err != nil {
			return nil, err
		}
		if err := c.cache.Set(ctx, key, data, c.ttl); err != nil {
			zap.L().Warn("marketdata: cache write failed", zap.String("key", key), zap.Error(err))
		}
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*StockData), nil
}

type memoryEntry struct {
	data      *StockData
	expiresAt time.Time
}

// MemoryCache is the default in-process Cache.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (m *MemoryCache) Get(_ context.Context, key string) (*StockData, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if m.now().After(entry.expiresAt) {
		delete(m.entries, key)
		return nil, false, nil
	}
	return entry.data, true, nil
}

func (m *MemoryCache) Set(_ context.Context, key string, data *StockData, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = memoryEntry{data: data, expiresAt: m.now().Add(ttl)}
	return nil
}
