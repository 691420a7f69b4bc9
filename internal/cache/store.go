package cache

import (
	"context"
	"time"
)

// Store represents a shared cache backend interface. Backends must be safe for
// concurrent use; errors indicate backend unavailability, never a miss.
type Store interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Delete(ctx context.Context, keys ...string) error
}
