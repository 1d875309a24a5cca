package availability

import (
	"context"
	"time"

	"readyrent/internal/domain/booking"
	"readyrent/internal/domain/product"
	"readyrent/internal/domain/shared/datespan"
)

// DefaultCacheTTL bounds how stale a cached availability answer may get.
const DefaultCacheTTL = 5 * time.Minute

// Cache stores availability results keyed by (product, span). Get and Set are
// best-effort: a broken cache degrades to direct checks, never to an error on
// the availability path. Invalidate with a nil span must drop every entry for
// the product, not just one key.
type Cache interface {
	Get(ctx context.Context, productID product.ProductID, span datespan.DateSpan) (Result, bool)
	Set(ctx context.Context, productID product.ProductID, span datespan.DateSpan, result Result)
	Invalidate(ctx context.Context, productID product.ProductID, span *datespan.DateSpan) error
}

// CachedChecker is a read-through decorator over Checker. Cached answers are
// pre-flight hints only; reservation commits re-verify against the ledger.
type CachedChecker struct {
	next  *Checker
	cache Cache
}

func NewCachedChecker(next *Checker, cache Cache) *CachedChecker {
	return &CachedChecker{next: next, cache: cache}
}

func (c *CachedChecker) Check(ctx context.Context, productID product.ProductID, span datespan.DateSpan, excludeBookingID booking.BookingID) (Result, error) {
	// Exclusions change the answer per caller, so those checks bypass the
	// shared cache.
	if excludeBookingID != "" {
		return c.next.Check(ctx, productID, span, excludeBookingID)
	}
	if cached, ok := c.cache.Get(ctx, productID, span); ok {
		return cached, nil
	}
	result, err := c.next.Check(ctx, productID, span, "")
	if err != nil {
		return Result{}, err
	}
	if result.Reason != ReasonStockUnverified {
		c.cache.Set(ctx, productID, span, result)
	}
	return result, nil
}

func (c *CachedChecker) CheckMany(ctx context.Context, productIDs []product.ProductID, span datespan.DateSpan) (map[product.ProductID]Result, error) {
	results := make(map[product.ProductID]Result, len(productIDs))
	var misses []product.ProductID
	for _, id := range productIDs {
		if cached, ok := c.cache.Get(ctx, id, span); ok {
			results[id] = cached
			continue
		}
		misses = append(misses, id)
	}
	if len(misses) == 0 {
		return results, nil
	}
	fresh, err := c.next.CheckMany(ctx, misses, span)
	if err != nil {
		return nil, err
	}
	for id, result := range fresh {
		results[id] = result
		if result.Reason != ReasonStockUnverified {
			c.cache.Set(ctx, id, span, result)
		}
	}
	return results, nil
}

// Invalidate drops cached entries touching the product. Called whenever a
// booking or inventory mutation commits.
func (c *CachedChecker) Invalidate(ctx context.Context, productID product.ProductID, span *datespan.DateSpan) error {
	return c.cache.Invalidate(ctx, productID, span)
}

// Direct exposes the undecorated checker for callers that must not read
// cached state, such as the reservation path.
func (c *CachedChecker) Direct() *Checker {
	return c.next
}
