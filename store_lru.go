package reqcache

import (
	"context"
	"fmt"
	"time"

	"github.com/goforj/reqcache/cachecore"
	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	defaultLRUEntries     = 999999
	defaultPrimaryEntries = 999
)

type lruEntry struct {
	body      []byte
	expiresAt time.Time
}

// lruStore bounds memory by entry count. Expiry is checked when an entry is read.
type lruStore struct {
	entries    *lru.Cache[string, lruEntry]
	defaultTTL time.Duration
	now        func() time.Time
}

// NewLRUStore returns an in-process store holding at most size entries
// (999999 when size <= 0). Entries written with ttl <= 0 use defaultTTL.
func NewLRUStore(size int, defaultTTL time.Duration) (Store, error) {
	return newLRUStore(size, defaultTTL)
}

func newLRUStore(size int, defaultTTL time.Duration) (*lruStore, error) {
	if size <= 0 {
		size = defaultLRUEntries
	}
	entries, err := lru.New[string, lruEntry](size)
	if err != nil {
		return nil, fmt.Errorf("lru store: %w", err)
	}
	return &lruStore{entries: entries, defaultTTL: defaultTTL, now: time.Now}, nil
}

func (s *lruStore) Driver() Driver { return DriverLRU }

func (s *lruStore) Ready(context.Context) error { return nil }

func (s *lruStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	entry, ok := s.entries.Get(key)
	if !ok {
		return nil, false, nil
	}
	if !entry.expiresAt.IsZero() && !s.now().Before(entry.expiresAt) {
		s.entries.Remove(key)
		return nil, false, nil
	}
	return cachecore.CloneBytes(entry.body), true, nil
}

func (s *lruStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	entry := lruEntry{body: cachecore.CloneBytes(value)}
	if entry.body == nil {
		entry.body = []byte{}
	}
	if ttl > 0 {
		entry.expiresAt = s.now().Add(ttl)
	}
	s.entries.Add(key, entry)
	return nil
}

func (s *lruStore) Delete(_ context.Context, key string) error {
	s.entries.Remove(key)
	return nil
}

func (s *lruStore) DeleteMany(_ context.Context, keys ...string) error {
	for _, key := range keys {
		s.entries.Remove(key)
	}
	return nil
}

func (s *lruStore) Flush(context.Context) error {
	s.entries.Purge()
	return nil
}

// Len reports how many entries are resident, expired ones included.
func (s *lruStore) Len() int { return s.entries.Len() }
