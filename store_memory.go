package reqcache

import (
	"context"
	"time"

	"github.com/goforj/reqcache/cachecore"
	gocache "github.com/patrickmn/go-cache"
)

const defaultMemoryCleanupInterval = 10 * time.Minute

// memoryStore is an unbounded map with a janitor sweeping expired entries.
type memoryStore struct {
	cache      *gocache.Cache
	defaultTTL time.Duration
}

// NewMemoryStore returns an unbounded in-process store whose expired entries are
// swept every cleanupInterval.
func NewMemoryStore(defaultTTL, cleanupInterval time.Duration) Store {
	return newMemoryStore(defaultTTL, cleanupInterval)
}

func newMemoryStore(defaultTTL, cleanupInterval time.Duration) *memoryStore {
	if cleanupInterval <= 0 {
		cleanupInterval = defaultMemoryCleanupInterval
	}
	return &memoryStore{
		cache:      gocache.New(gocache.NoExpiration, cleanupInterval),
		defaultTTL: defaultTTL,
	}
}

func (s *memoryStore) Driver() Driver { return DriverMemory }

func (s *memoryStore) Ready(context.Context) error { return nil }

func (s *memoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	item, ok := s.cache.Get(key)
	if !ok {
		return nil, false, nil
	}
	body, ok := item.([]byte)
	if !ok {
		return nil, false, nil
	}
	return cachecore.CloneBytes(body), true, nil
}

func (s *memoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	body := cachecore.CloneBytes(value)
	if body == nil {
		body = []byte{}
	}
	s.cache.Set(key, body, ttl)
	return nil
}

func (s *memoryStore) Delete(_ context.Context, key string) error {
	s.cache.Delete(key)
	return nil
}

func (s *memoryStore) DeleteMany(_ context.Context, keys ...string) error {
	for _, key := range keys {
		s.cache.Delete(key)
	}
	return nil
}

func (s *memoryStore) Flush(context.Context) error {
	s.cache.Flush()
	return nil
}
