package cachecore

import (
	"context"
	"time"
)

// Store is the key-value contract every backing store satisfies.
//
// A ttl <= 0 passed to Set means the entry does not expire.
type Store interface {
	Driver() Driver
	Ready(ctx context.Context) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeleteMany(ctx context.Context, keys ...string) error
	Flush(ctx context.Context) error
}

// TTLReader is implemented by stores that can report how long an entry has left.
// ok is false when the key is missing or never expires.
type TTLReader interface {
	RemainingTTL(ctx context.Context, key string) (ttl time.Duration, ok bool, err error)
}
