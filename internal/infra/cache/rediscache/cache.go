package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"readyrent/internal/domain/availability"
	"readyrent/internal/domain/product"
	"readyrent/internal/domain/shared/datespan"
)

const dateLayout = "2006-01-02"

// Cache is the Redis-backed availability cache. Every Set also registers the
// value key in a per-product index set, so Invalidate without a span can
// delete all range variants for the product. The index carries the same TTL
// as the values, refreshed on write, so it cannot outlive them for long.
type Cache struct {
	client redis.UniversalClient
	ttl    time.Duration
	logger *slog.Logger
}

func New(addr, password string, ttl time.Duration, logger *slog.Logger) *Cache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if ttl <= 0 {
		ttl = availability.DefaultCacheTTL
	}
	return &Cache{client: client, ttl: ttl, logger: logger}
}

func (c *Cache) Get(ctx context.Context, productID product.ProductID, span datespan.DateSpan) (availability.Result, bool) {
	raw, err := c.client.Get(ctx, valueKey(productID, span)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.warn("availability cache read failed", productID, err)
		}
		return availability.Result{}, false
	}
	var result availability.Result
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		c.warn("availability cache entry corrupt", productID, err)
		return availability.Result{}, false
	}
	return result, true
}

func (c *Cache) Set(ctx context.Context, productID product.ProductID, span datespan.DateSpan, result availability.Result) {
	payload, err := json.Marshal(result)
	if err != nil {
		c.warn("availability cache encode failed", productID, err)
		return
	}
	key := valueKey(productID, span)
	pipe := c.client.TxPipeline()
	pipe.Set(ctx, key, payload, c.ttl)
	pipe.SAdd(ctx, indexKey(productID), key)
	pipe.Expire(ctx, indexKey(productID), c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		c.warn("availability cache write failed", productID, err)
	}
}

func (c *Cache) Invalidate(ctx context.Context, productID product.ProductID, span *datespan.DateSpan) error {
	if span != nil {
		if err := c.client.Del(ctx, valueKey(productID, *span)).Err(); err != nil {
			return fmt.Errorf("rediscache: delete entry: %w", err)
		}
		return c.client.SRem(ctx, indexKey(productID), valueKey(productID, *span)).Err()
	}
	keys, err := c.client.SMembers(ctx, indexKey(productID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("rediscache: read index: %w", err)
	}
	keys = append(keys, indexKey(productID))
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("rediscache: delete entries: %w", err)
	}
	return nil
}

func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *Cache) Close() error {
	return c.client.Close()
}

func (c *Cache) warn(msg string, productID product.ProductID, err error) {
	if c.logger != nil {
		c.logger.Warn(msg, "product_id", productID, "error", err)
	}
}

func valueKey(productID product.ProductID, span datespan.DateSpan) string {
	return fmt.Sprintf("avail:%s:%s:%s", productID, span.Start.Format(dateLayout), span.End.Format(dateLayout))
}

func indexKey(productID product.ProductID) string {
	return fmt.Sprintf("avail:idx:%s", productID)
}

var _ availability.Cache = (*Cache)(nil)
