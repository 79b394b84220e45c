package cache

import (
	"context"
	"sync"
	"time"

	"storefront/internal/gateway"
)

type entry struct {
	result    gateway.StatusResult
	expiresAt time.Time
}

// MemoryCache is the in-process fallback when Redis is not configured.
type MemoryCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]entry
	now     func() time.Time
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		ttl:     ttl,
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

func (c *MemoryCache) Get(ctx context.Context, transactionID string) (*gateway.StatusResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[transactionID]
	if !ok {
		return nil, false
	}
	if c.ttl > 0 && !c.now().Before(e.expiresAt) {
		delete(c.entries, transactionID)
		return nil, false
	}
	result := e.result
	return &result, true
}

func (c *MemoryCache) Put(ctx context.Context, transactionID string, result *gateway.StatusResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[transactionID] = entry{result: *result, expiresAt: c.now().Add(c.ttl)}
}

func (c *MemoryCache) Close() {}
