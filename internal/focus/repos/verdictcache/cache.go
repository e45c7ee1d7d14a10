// Package verdictcache caches rule-engine verdicts keyed by normalized
// site, so repeated navigations to the same page skip the full rule scan.
package verdictcache

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"focusgate/internal/focus/domain"
	"focusgate/internal/focus/services/rules"
)

// verdictCache is an LRU-backed implementation of rules.VerdictCache.
// It tracks basic metrics: hits, misses, and evictions.
type verdictCache struct {
	lru       *lru.Cache[string, domain.Verdict]
	hits      uint64
	misses    uint64
	evictions uint64
}

// disabledCache is a no-op VerdictCache used when size <= 0.
type disabledCache struct{}

// newLRU is swappable for tests that need to force a construction error.
var newLRU = func(size int, onEvict func(string, domain.Verdict)) (*lru.Cache[string, domain.Verdict], error) {
	return lru.NewWithEvict(size, onEvict)
}

// New creates a VerdictCache with the given capacity. If size <= 0, a
// disabled no-op cache is returned that always misses and tracks no
// metrics.
func New(size int) (rules.VerdictCache, error) {
	if size <= 0 {
		return &disabledCache{}, nil
	}

	var vc verdictCache
	// NewWithEvict observes evictions, including Purge-induced ones.
	cache, err := newLRU(size, func(_ string, _ domain.Verdict) {
		atomic.AddUint64(&vc.evictions, 1)
	})
	if err != nil {
		return nil, err
	}
	vc.lru = cache
	return &vc, nil
}

// Get looks up a verdict by key. When found, increments hits; otherwise
// increments misses.
func (c *verdictCache) Get(key string) (domain.Verdict, bool) {
	if val, ok := c.lru.Get(key); ok {
		atomic.AddUint64(&c.hits, 1)
		return val, true
	}
	atomic.AddUint64(&c.misses, 1)
	var zero domain.Verdict
	return zero, false
}

// Put stores a verdict by key.
func (c *verdictCache) Put(key string, v domain.Verdict) {
	c.lru.Add(key, v)
}

// Len returns the number of entries in the cache.
func (c *verdictCache) Len() int { return c.lru.Len() }

// Purge clears all entries. Rule or toggle replacement invalidates every
// cached verdict, so the engine purges rather than patching.
func (c *verdictCache) Purge() { c.lru.Purge() }

// Stats returns cumulative hit/miss/eviction counters.
func (c *verdictCache) Stats() (hits, misses, evictions uint64) {
	return atomic.LoadUint64(&c.hits), atomic.LoadUint64(&c.misses), atomic.LoadUint64(&c.evictions)
}

// disabledCache implementation

func (d *disabledCache) Get(string) (domain.Verdict, bool) {
	var zero domain.Verdict
	return zero, false
}

func (d *disabledCache) Put(string, domain.Verdict) {}

func (d *disabledCache) Len() int { return 0 }

func (d *disabledCache) Purge() {}

func (d *disabledCache) Stats() (uint64, uint64, uint64) { return 0, 0, 0 }

var _ rules.VerdictCache = (*verdictCache)(nil)
var _ rules.VerdictCache = (*disabledCache)(nil)
