package cache

import (
	"context"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"movie-discovery/internal/metrics"
)

const memoryBackend = "memory"

// MemoryStore is an in-process Store for single-instance deployments and tests.
type MemoryStore struct {
	c *gocache.Cache
}

// NewMemoryStore creates a MemoryStore that purges expired entries every cleanupInterval.
func NewMemoryStore(cleanupInterval time.Duration) *MemoryStore {
	return &MemoryStore{c: gocache.New(gocache.NoExpiration, cleanupInterval)}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool) {
	v, ok := s.c.Get(key)
	if !ok {
		metrics.CacheRequests.WithLabelValues(memoryBackend, "miss").Inc()
		return nil, false
	}
	metrics.CacheRequests.WithLabelValues(memoryBackend, "hit").Inc()
	b := v.([]byte)
	return append([]byte(nil), b...), true
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	s.c.Set(key, append([]byte(nil), value...), ttl)
	metrics.CacheWrites.WithLabelValues(memoryBackend, "ok").Inc()
}

func (s *MemoryStore) Delete(_ context.Context, key string) {
	s.c.Delete(key)
}

func (s *MemoryStore) Exists(_ context.Context, key string) bool {
	_, ok := s.c.Get(key)
	return ok
}

func (s *MemoryStore) DeletePrefix(_ context.Context, prefix string) int {
	deleted := 0
	for key := range s.c.Items() {
		if strings.HasPrefix(key, prefix) {
			s.c.Delete(key)
			deleted++
		}
	}
	return deleted
}
