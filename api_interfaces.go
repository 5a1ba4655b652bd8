package reqcache

import (
	"context"
	"time"
)

// ReadAPI exposes read-oriented cache operations.
type ReadAPI interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	GetString(ctx context.Context, key string) (string, bool, error)
}

// WriteAPI exposes write and invalidation operations.
type WriteAPI interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	SetString(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeleteMany(ctx context.Context, keys ...string) error
	Flush(ctx context.Context) error
}

// API is what handlers need from the cache placed in request context. Handlers
// that depend on API rather than *Cache can be tested with cachefake.
type API interface {
	Driver() Driver
	ReadAPI
	WriteAPI
	Remember(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) ([]byte, error)) ([]byte, error)
}

var _ API = (*Cache)(nil)
