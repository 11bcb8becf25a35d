package cache

import (
	"context"
	"encoding/json"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore is a process local Store backed by go-cache. Values are kept
// as JSON so callers see the same copy semantics as with RedisStore.
type MemoryStore struct {
	cache *gocache.Cache
}

// NewMemoryStore returns a store whose entries default to defaultTTL and are
// swept every cleanupInterval.
func NewMemoryStore(defaultTTL, cleanupInterval time.Duration) *MemoryStore {
	return &MemoryStore{cache: gocache.New(defaultTTL, cleanupInterval)}
}

func (s *MemoryStore) Get(_ context.Context, key string, dst any) error {
	v, ok := s.cache.Get(key)
	if !ok {
		return ErrMiss
	}
	return json.Unmarshal(v.([]byte), dst)
}

// Set stores value under key. A ttl of zero uses the store default.
func (s *MemoryStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = gocache.DefaultExpiration
	}
	s.cache.Set(key, raw, ttl)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.cache.Delete(key)
	return nil
}

// Flush drops every entry.
func (s *MemoryStore) Flush() { s.cache.Flush() }

var _ Store = (*MemoryStore)(nil)
