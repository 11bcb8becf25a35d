// Package cache provides the injected key/value cache used for academic
// terms and other per-student lookups. Entries always carry a TTL.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache: miss")

// Store caches JSON-serialisable values.
type Store interface {
	// Get decodes the value stored under key into dst.
	Get(ctx context.Context, key string, dst any) error
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
