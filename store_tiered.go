package reqcache

import (
	"context"
	"errors"
	"time"

	"github.com/goforj/reqcache/cachecore"
)

const defaultMultiLevelTTL = 1000 * time.Millisecond

// tieredStore fronts a shared secondary with a short-lived local primary.
// The secondary is the source of truth. primaryTTL bounds how long a process
// can serve a value another process has already replaced.
type tieredStore struct {
	primary    Store
	secondary  Store
	primaryTTL time.Duration
}

func newTieredStore(primary, secondary Store, primaryTTL time.Duration) *tieredStore {
	if primaryTTL <= 0 {
		primaryTTL = defaultMultiLevelTTL
	}
	return &tieredStore{primary: primary, secondary: secondary, primaryTTL: primaryTTL}
}

func (s *tieredStore) Driver() Driver { return DriverTiered }

func (s *tieredStore) Ready(ctx context.Context) error {
	return errors.Join(s.primary.Ready(ctx), s.secondary.Ready(ctx))
}

func (s *tieredStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	body, ok, err := s.primary.Get(ctx, key)
	if err == nil && ok {
		return body, true, nil
	}
	body, ok, err = s.secondary.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	// A failed back-fill only costs a later secondary read.
	_ = s.primary.Set(ctx, key, body, s.backfillTTL(ctx, key))
	return body, true, nil
}

// backfillTTL keeps a back-filled entry from outliving the secondary's copy.
func (s *tieredStore) backfillTTL(ctx context.Context, key string) time.Duration {
	reader, ok := s.secondary.(cachecore.TTLReader)
	if !ok {
		return s.primaryTTL
	}
	remaining, ok, err := reader.RemainingTTL(ctx, key)
	if err != nil || !ok {
		return s.primaryTTL
	}
	if s.primaryTTL <= 0 || remaining < s.primaryTTL {
		return remaining
	}
	return s.primaryTTL
}

func (s *tieredStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.secondary.Set(ctx, key, value, ttl); err != nil {
		return err
	}
	return s.primary.Set(ctx, key, value, s.primaryTTLFor(ttl))
}

func (s *tieredStore) Delete(ctx context.Context, key string) error {
	return errors.Join(s.secondary.Delete(ctx, key), s.primary.Delete(ctx, key))
}

func (s *tieredStore) DeleteMany(ctx context.Context, keys ...string) error {
	return errors.Join(s.secondary.DeleteMany(ctx, keys...), s.primary.DeleteMany(ctx, keys...))
}

func (s *tieredStore) Flush(ctx context.Context) error {
	return errors.Join(s.secondary.Flush(ctx), s.primary.Flush(ctx))
}

func (s *tieredStore) primaryTTLFor(ttl time.Duration) time.Duration {
	if ttl <= 0 || ttl > s.primaryTTL {
		return s.primaryTTL
	}
	return ttl
}
