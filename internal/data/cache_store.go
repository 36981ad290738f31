package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/redis/go-redis/v9"
)

// ErrCacheNotFound is returned when a tier-2 cache key does not exist
var ErrCacheNotFound = errors.New("cache: key not found")

// CacheStore is the Redis tier of the multi-level cache. It stores raw
// JSON-encoded values; encoding and decoding happen in the biz layer so a
// value is serialized exactly once per write.
// Implements biz.CacheStore.
type CacheStore struct {
	rdb    *redis.Client
	logger *log.Helper
}

// NewCacheStore creates the tier-2 cache store.
// A nil Redis client degrades every operation to an error the callers treat
// as a miss.
func NewCacheStore(d *Data, logger log.Logger) *CacheStore {
	return &CacheStore{
		rdb:    d.GetRedisClient(),
		logger: log.NewHelper(logger),
	}
}

// Get fetches the raw value stored under key.
// Returns ErrCacheNotFound if the key doesn't exist (redis.Nil).
func (s *CacheStore) Get(ctx context.Context, key string) ([]byte, error) {
	if s.rdb == nil {
		return nil, errors.New("cache: redis client is nil")
	}

	val, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheNotFound
		}
		return nil, fmt.Errorf("cache: failed to get key %s: %w", key, err)
	}

	return val, nil
}

// Set stores a raw value under key with the given TTL.
func (s *CacheStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if s.rdb == nil {
		return errors.New("cache: redis client is nil")
	}

	if err := s.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("cache: failed to set key %s: %w", key, err)
	}

	return nil
}

// Delete removes a key.
func (s *CacheStore) Delete(ctx context.Context, key string) error {
	if s.rdb == nil {
		return errors.New("cache: redis client is nil")
	}

	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("cache: failed to delete key %s: %w", key, err)
	}

	return nil
}

// GetMany fetches all keys in a single MGET round trip. Keys that are absent
// are omitted from the result map.
func (s *CacheStore) GetMany(ctx context.Context, keys []string) (map[string][]byte, error) {
	if s.rdb == nil {
		return nil, errors.New("cache: redis client is nil")
	}
	if len(keys) == 0 {
		return map[string][]byte{}, nil
	}

	vals, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("cache: failed to mget %d keys: %w", len(keys), err)
	}

	result := make(map[string][]byte, len(keys))
	for i, val := range vals {
		if val == nil {
			continue
		}
		str, ok := val.(string)
		if !ok {
			s.logger.Warnw("unexpected value type in MGET reply", "key", keys[i])
			continue
		}
		result[keys[i]] = []byte(str)
	}

	return result, nil
}
