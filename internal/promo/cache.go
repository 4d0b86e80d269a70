package promo

import (
	"context"
	"sync"
	"time"

	"storefront/internal/clock"
	"storefront/internal/model"
)

type cacheEntry struct {
	promo     model.PromoCode
	expiresAt time.Time
}

// Cache is a read-through TTL cache in front of a Lookup. Entries may be up
// to one TTL stale, so it must only serve advisory reads; checkout always
// reads the store directly.
type Cache struct {
	next  Lookup
	ttl   time.Duration
	clock clock.Clock

	mu      sync.RWMutex
	entries map[string]cacheEntry
}

// NewCache wraps next with a cache holding entries for ttl. A non-positive
// ttl disables caching.
func NewCache(next Lookup, ttl time.Duration, clk clock.Clock) *Cache {
	if clk == nil {
		clk = clock.New()
	}
	return &Cache{
		next:    next,
		ttl:     ttl,
		clock:   clk,
		entries: make(map[string]cacheEntry),
	}
}

// GetByCode returns the cached promo for code, loading it on a miss.
// Lookup errors are never cached.
func (c *Cache) GetByCode(ctx context.Context, code string) (*model.PromoCode, error) {
	if c.ttl <= 0 {
		return c.next.GetByCode(ctx, code)
	}

	key := model.NormalizeCode(code)
	now := c.clock.Now()

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if ok && now.Before(entry.expiresAt) {
		p := entry.promo
		return &p, nil
	}

	p, err := c.next.GetByCode(ctx, key)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[key] = cacheEntry{promo: *p, expiresAt: now.Add(c.ttl)}
	c.mu.Unlock()

	return p, nil
}

// Invalidate drops the entry for code.
func (c *Cache) Invalidate(code string) {
	c.mu.Lock()
	delete(c.entries, model.NormalizeCode(code))
	c.mu.Unlock()
}

// Invalidating wraps store so that every successful upsert drops the
// cached entry for the upserted code.
func (c *Cache) Invalidating(store Upserter) Upserter {
	return &invalidatingUpserter{store: store, cache: c}
}

type invalidatingUpserter struct {
	store Upserter
	cache *Cache
}

func (u *invalidatingUpserter) Upsert(ctx context.Context, p *model.PromoCode) error {
	if err := u.store.Upsert(ctx, p); err != nil {
		return err
	}
	u.cache.Invalidate(p.Code)
	return nil
}
