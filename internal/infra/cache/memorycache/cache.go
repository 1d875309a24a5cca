package memorycache

import (
	"context"
	"sync"
	"time"

	"readyrent/internal/domain/availability"
	"readyrent/internal/domain/product"
	"readyrent/internal/domain/shared/datespan"
)

const dateLayout = "2006-01-02"

type entry struct {
	result    availability.Result
	expiresAt time.Time
}

// Cache is the in-process availability cache. Alongside the value map it
// maintains a per-product index of live keys so a product-wide invalidation
// can drop every range variant, not just one composite key.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
	index   map[product.ProductID]map[string]struct{}
	ttl     time.Duration
	now     func() time.Time
}

func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = availability.DefaultCacheTTL
	}
	return &Cache{
		entries: make(map[string]entry),
		index:   make(map[product.ProductID]map[string]struct{}),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *Cache) Get(ctx context.Context, productID product.ProductID, span datespan.DateSpan) (availability.Result, bool) {
	key := cacheKey(productID, span)
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return availability.Result{}, false
	}
	if c.now().After(e.expiresAt) {
		c.evict(productID, key)
		return availability.Result{}, false
	}
	return e.result, true
}

func (c *Cache) Set(ctx context.Context, productID product.ProductID, span datespan.DateSpan, result availability.Result) {
	key := cacheKey(productID, span)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{result: result, expiresAt: c.now().Add(c.ttl)}
	keys, ok := c.index[productID]
	if !ok {
		keys = make(map[string]struct{})
		c.index[productID] = keys
	}
	keys[key] = struct{}{}
}

func (c *Cache) Invalidate(ctx context.Context, productID product.ProductID, span *datespan.DateSpan) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if span != nil {
		c.evict(productID, cacheKey(productID, *span))
		return nil
	}
	for key := range c.index[productID] {
		delete(c.entries, key)
	}
	delete(c.index, productID)
	return nil
}

func (c *Cache) evict(productID product.ProductID, key string) {
	delete(c.entries, key)
	if keys, ok := c.index[productID]; ok {
		delete(keys, key)
		if len(keys) == 0 {
			delete(c.index, productID)
		}
	}
}

func cacheKey(productID product.ProductID, span datespan.DateSpan) string {
	return string(productID) + "|" + span.Start.Format(dateLayout) + "|" + span.End.Format(dateLayout)
}

var _ availability.Cache = (*Cache)(nil)
