package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// keyPrefix namespaces cache entries in a shared Redis instance.
const keyPrefix = "sgex:cache:"

// redisEntry is the serialized form: metadata and body travel as a single
// value so an entry is stored and replaced atomically.
type redisEntry struct {
	Entry
	Body []byte `json:"body"`
}

// RedisStore persists entries in Redis, one JSON value per fingerprint.
// Useful when several workers share a cache across hosts.
type RedisStore struct {
	redis  *redis.Client
	logger zerolog.Logger
}

// NewRedisStore creates a store over an existing Redis client.
func NewRedisStore(client *redis.Client, logger zerolog.Logger) (*RedisStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	return &RedisStore{redis: client, logger: logger}, nil
}

// Has reports whether an entry exists for the fingerprint.
func (s *RedisStore) Has(ctx context.Context, fp string) bool {
	n, err := s.redis.Exists(ctx, keyPrefix+fp).Result()
	if err != nil {
		s.logger.Warn().Err(err).Str("fingerprint", fp).Msg("Cache existence check failed")
		return false
	}
	return n > 0
}

// Get returns the stored entry or ErrCacheMiss. A corrupt value is deleted
// and reported as a miss.
func (s *RedisStore) Get(ctx context.Context, fp string) (*Entry, error) {
	data, err := s.redis.Get(ctx, keyPrefix+fp).Bytes()
	if err != nil {
		if err == redis.Nil {
			CacheMisses.Inc()
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var stored redisEntry
	if err := json.Unmarshal(data, &stored); err != nil {
		s.logger.Warn().Err(err).Str("fingerprint", fp).Msg("Corrupt cache entry, treating as miss")
		_ = s.redis.Del(ctx, keyPrefix+fp).Err()
		CacheErrors.WithLabelValues("get").Inc()
		CacheMisses.Inc()
		return nil, ErrCacheMiss
	}

	entry := stored.Entry
	entry.Body = stored.Body
	CacheHits.WithLabelValues("redis").Inc()
	return &entry, nil
}

// Put stores an entry, replacing any previous value wholesale.
func (s *RedisStore) Put(ctx context.Context, fp string, entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}
	data, err := json.Marshal(redisEntry{Entry: *entry, Body: entry.Body})
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}
	if err := s.redis.Set(ctx, keyPrefix+fp, data, 0).Err(); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}
	CacheBytesWritten.WithLabelValues("redis").Add(float64(len(data)))
	return nil
}

// Clear removes every entry under the cache prefix.
func (s *RedisStore) Clear(ctx context.Context) error {
	iter := s.redis.Scan(ctx, 0, keyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := s.redis.Del(ctx, iter.Val()).Err(); err != nil {
			CacheErrors.WithLabelValues("clear").Inc()
			return fmt.Errorf("redis del: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		CacheErrors.WithLabelValues("clear").Inc()
		return fmt.Errorf("redis scan: %w", err)
	}
	s.logger.Info().Msg("Cache cleared")
	return nil
}
