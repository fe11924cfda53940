package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers request keys that have already been handled
type IdempotencyStore interface {
	// MarkProcessed records key with a TTL.
	// Returns true if the key was newly recorded, false if it already existed.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IsProcessed reports whether key has been recorded
	IsProcessed(ctx context.Context, key string) (bool, error)

	// Release forgets key so a failed request can be retried
	Release(ctx context.Context, key string) error

	// Close releases resources held by the store
	Close() error
}
