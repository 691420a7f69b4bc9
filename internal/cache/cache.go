package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/taskhive/taskhive/pkg/logger"
	"github.com/taskhive/taskhive/pkg/metrics"
)

// DefaultTTL bounds how long a read-through entry stays fresh.
const DefaultTTL = 5 * time.Minute

// Cache wraps a Store with best-effort semantics: a backend error on Get is a
// miss, backend errors on Set and Delete are swallowed. Callers never see an
// error from this type, so an unavailable backend degrades to pass-through.
type Cache struct {
	store Store
	log   *zap.Logger
}

// New constructs a best-effort cache over the supplied backend. A nil store
// yields a cache where every lookup is a miss.
func New(store Store) *Cache {
	return &Cache{
		store: store,
		log:   logger.WithModule("cache"),
	}
}

// Key derives the deterministic cache key for an entity.
// Distinct (entityType, id) pairs never collide.
func Key(entityType, id string) string {
	return fmt.Sprintf("%s:%s", entityType, id)
}

// Get returns the cached value for key, or ok=false on a miss.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	if c == nil || c.store == nil {
		return nil, false
	}

	value, ok, err := c.store.Get(ctx, key)
	if err != nil {
		metrics.CacheRequests.WithLabelValues("error").Inc()
		c.log.Warn("cache get degraded to miss", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	if !ok {
		metrics.CacheRequests.WithLabelValues("miss").Inc()
		return nil, false
	}

	metrics.CacheRequests.WithLabelValues("hit").Inc()
	return value, true
}

// Set stores a value under key for ttl. Failures are logged and swallowed;
// correctness never depends on the write landing.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if c == nil || c.store == nil {
		return
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	if err := c.store.Set(ctx, key, value, ttl); err != nil {
		c.log.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// Delete invalidates the supplied keys, swallowing backend errors.
func (c *Cache) Delete(ctx context.Context, keys ...string) {
	if c == nil || c.store == nil || len(keys) == 0 {
		return
	}

	if err := c.store.Delete(ctx, keys...); err != nil {
		c.log.Warn("cache delete failed", zap.Strings("keys", keys), zap.Error(err))
	}
}

// GetJSON unmarshals the cached value for key into dest.
func (c *Cache) GetJSON(ctx context.Context, key string, dest any) bool {
	raw, ok := c.Get(ctx, key)
	if !ok {
		return false
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		// A corrupt entry behaves like a miss and is evicted.
		c.Delete(ctx, key)
		return false
	}
	return true
}

// SetJSON marshals value and stores it under key.
func (c *Cache) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) {
	raw, err := json.Marshal(value)
	if err != nil {
		if c != nil && c.log != nil {
			c.log.Warn("cache marshal failed", zap.String("key", key), zap.Error(err))
		}
		return
	}
	c.Set(ctx, key, raw, ttl)
}
