package reqcache

import (
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{now: time.Unix(1_700_000_000, 0)} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestLRU(t *testing.T, size int, ttl time.Duration, clock *fakeClock) *lruStore {
	t.Helper()
	s, err := newLRUStore(size, ttl)
	if err != nil {
		t.Fatalf("lru store: %v", err)
	}
	if clock != nil {
		s.now = clock.Now
	}
	return s
}

// clearRemoteEnv keeps a developer's REDIS_URL from leaking into factory tests.
func clearRemoteEnv(t *testing.T) {
	t.Helper()
	t.Setenv(EnvURL, "")
	t.Setenv(EnvRedisURL, "")
}
