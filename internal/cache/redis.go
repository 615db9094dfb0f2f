package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"movie-discovery/internal/metrics"
)

const redisBackend = "redis"

// RedisStore is a Store backed by Redis. A nil client behaves as an empty cache.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore wraps rdb, which may be nil when Redis is unavailable.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool) {
	if s.rdb == nil {
		metrics.CacheRequests.WithLabelValues(redisBackend, "miss").Inc()
		return nil, false
	}
	val, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			metrics.CacheRequests.WithLabelValues(redisBackend, "miss").Inc()
		} else {
			metrics.CacheRequests.WithLabelValues(redisBackend, "error").Inc()
			slog.Warn("cache read failed, treating as miss", "key", key, "error", err)
		}
		return nil, false
	}
	metrics.CacheRequests.WithLabelValues(redisBackend, "hit").Inc()
	return val, true
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		metrics.CacheWrites.WithLabelValues(redisBackend, "error").Inc()
		slog.Error("failed to set cache", "key", key, "error", err)
		return
	}
	metrics.CacheWrites.WithLabelValues(redisBackend, "ok").Inc()
}

func (s *RedisStore) Delete(ctx context.Context, key string) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		slog.Error("failed to delete cache key", "key", key, "error", err)
	}
}

func (s *RedisStore) Exists(ctx context.Context, key string) bool {
	if s.rdb == nil {
		return false
	}
	n, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		slog.Warn("cache exists check failed", "key", key, "error", err)
		return false
	}
	return n > 0
}

func (s *RedisStore) DeletePrefix(ctx context.Context, prefix string) int {
	if s.rdb == nil {
		return 0
	}
	deleted := 0
	iter := s.rdb.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := s.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			slog.Error("failed to delete cache key", "key", iter.Val(), "error", err)
			continue
		}
		deleted++
	}
	if err := iter.Err(); err != nil {
		slog.Error("cache scan failed", "prefix", prefix, "error", err)
	}
	return deleted
}
