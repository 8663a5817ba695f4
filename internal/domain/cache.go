package domain

import (
	"context"
	"time"
)

// CacheStore is the shared key/value store used by the geocode and POI clients.
// A miss is a normal outcome: implementations never surface storage errors to callers,
// they log them and report a miss or drop the write instead.
type CacheStore interface {
	// Get returns the live value for key. Expired entries are reported as a miss.
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set stores value under key for ttl. A non-positive ttl is a no-op.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
}
