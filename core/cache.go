package core

import (
	"context"
	"time"
)

// Cache is a minimal string cache with TTL semantics, used to hold the
// bearer token between refreshes. The default in-memory implementation is
// enough for a single process; a distributed implementation can be plugged
// in when several proxy instances should share one token.
type Cache interface {
	// Get reads a value. Returns false when the key is absent or expired.
	Get(ctx context.Context, key string) (string, bool)

	// Set writes a value with a TTL. A TTL of 0 means no expiry.
	Set(ctx context.Context, key string, value string, ttl time.Duration) error

	// Delete removes a key. Deleting an absent key succeeds silently.
	Delete(ctx context.Context, key string) error
}
