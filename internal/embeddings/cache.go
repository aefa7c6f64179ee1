package embeddings

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ZanzyTHEbar/semantic-memory-go/internal/metrics"
)

const (
	DefaultCacheTTL  = time.Hour
	DefaultCacheSize = 10000
)

type cacheEntry struct {
	vector      []float32
	generatedAt time.Time
}

// Cache wraps a Provider with a TTL and size bounded embedding cache.
// Concurrent requests for the same text are collapsed into one provider call.
type Cache struct {
	provider Provider
	ttl      time.Duration
	maxSize  int
	now      func() time.Time

	mu      sync.RWMutex
	entries map[string]cacheEntry

	group  singleflight.Group
	hits   atomic.Int64
	misses atomic.Int64
}

// NewCache wraps provider. Non-positive ttl or maxSize fall back to the
// defaults.
func NewCache(provider Provider, ttl time.Duration, maxSize int) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if maxSize <= 0 {
		maxSize = DefaultCacheSize
	}
	return &Cache{
		provider: provider,
		ttl:      ttl,
		maxSize:  maxSize,
		now:      time.Now,
		entries:  make(map[string]cacheEntry),
	}
}

// SetClock overrides the cache's time source. Intended for tests.
func (c *Cache) SetClock(now func() time.Time) { c.now = now }

// Provider returns the wrapped provider.
func (c *Cache) Provider() Provider { return c.provider }

// Dimensions returns the wrapped provider's dimensionality, or 0 when no
// provider is configured.
func (c *Cache) Dimensions() int {
	if c.provider == nil {
		return 0
	}
	return c.provider.Dimensions()
}

// Name returns the wrapped provider's name, or "none".
func (c *Cache) Name() string {
	if c.provider == nil {
		return "none"
	}
	return c.provider.Name()
}

// Stats reports cache size and hit/miss counters.
func (c *Cache) Stats() (size int, hits, misses int64) {
	c.mu.RLock()
	size = len(c.entries)
	c.mu.RUnlock()
	return size, c.hits.Load(), c.misses.Load()
}

// Key derives the cache key for text: whitespace is collapsed and case is
// folded so trivially reformatted inputs share an entry.
func Key(text string) string {
	norm := strings.Join(strings.Fields(strings.ToLower(text)), " ")
	sum := sha256.Sum256([]byte(norm))
	return hex.EncodeToString(sum[:])
}

// GetOrGenerate returns the embedding for text, generating it through the
// wrapped provider on a miss. A fresh cached entry never reaches the
// provider; expired entries are treated as misses. Provider failures are not
// cached.
func (c *Cache) GetOrGenerate(ctx context.Context, text string) ([]float32, error) {
	if c.provider == nil {
		return nil, fmt.Errorf("embedding cache: no provider configured")
	}
	key := Key(text)
	if v, ok := c.lookup(key); ok {
		c.hits.Add(1)
		metrics.Default().IncEmbeddingCache(true)
		return v, nil
	}
	c.misses.Add(1)
	metrics.Default().IncEmbeddingCache(false)

	v, err, _ := c.group.Do(key, func() (any, error) {
		// A concurrent caller may have populated the entry while this
		// call waited on the flight group.
		if v, ok := c.lookup(key); ok {
			return v, nil
		}
		vecs, err := c.provider.Embed(ctx, []string{text})
		if err != nil {
			return nil, err
		}
		if len(vecs) != 1 {
			return nil, fmt.Errorf("embedding provider returned %d vectors for 1 input", len(vecs))
		}
		c.store(key, vecs[0])
		return vecs[0], nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]float32), nil
}

func (c *Cache) lookup(key string) ([]float32, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || c.now().Sub(e.generatedAt) >= c.ttl {
		return nil, false
	}
	return e.vector, true
}

func (c *Cache) store(key string, v []float32) {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxSize {
		c.evictLocked(now)
	}
	c.entries[key] = cacheEntry{vector: v, generatedAt: now}
}

// evictLocked drops expired entries first, then the oldest entry by
// generation time until the cache has room. Caller holds mu.
func (c *Cache) evictLocked(now time.Time) {
	for k, e := range c.entries {
		if now.Sub(e.generatedAt) >= c.ttl {
			delete(c.entries, k)
		}
	}
	for len(c.entries) >= c.maxSize {
		var oldestKey string
		var oldestAt time.Time
		for k, e := range c.entries {
			if oldestKey == "" || e.generatedAt.Before(oldestAt) {
				oldestKey = k
				oldestAt = e.generatedAt
			}
		}
		delete(c.entries, oldestKey)
	}
}
