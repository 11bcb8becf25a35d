package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore shares cached values between portal instances.
type RedisStore struct {
	rdb        *redis.Client
	prefix     string
	defaultTTL time.Duration
}

// NewRedisStore namespaces every key under prefix.
func NewRedisStore(rdb *redis.Client, prefix string, defaultTTL time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, prefix: prefix, defaultTTL: defaultTTL}
}

func (s *RedisStore) key(k string) string {
	if s.prefix == "" {
		return k
	}
	return s.prefix + ":" + k
}

func (s *RedisStore) Get(ctx context.Context, key string, dst any) error {
	raw, err := s.rdb.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrMiss
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

// Set stores value under key. A ttl of zero uses the store default.
func (s *RedisStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	return s.rdb.SetEx(ctx, s.key(key), raw, ttl).Err()
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, s.key(key)).Err()
}

var _ Store = (*RedisStore)(nil)
