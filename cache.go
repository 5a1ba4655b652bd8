package reqcache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"
)

var errNoCallback = errors.New("reqcache: read-through requires a callback")

// Cache is the request-facing API over a Store. It is safe for concurrent use
// and is meant to be shared by every request a middleware serves.
type Cache struct {
	store      Store
	defaultTTL time.Duration
	observer   Observer

	closers   []func() error
	closeOnce sync.Once
	closeErr  error
}

// NewCache binds a facade to a store. defaultTTL applies when a call passes ttl <= 0;
// zero keeps such entries until they are deleted or evicted.
//
// Example: cache over the in-process LRU
//
//	c, _ := reqcache.New(ctx)
//	lru := reqcache.NewCache(c.Store(), time.Minute)
//	fmt.Println(lru.Driver()) // lru
func NewCache(store Store, defaultTTL time.Duration) *Cache {
	if defaultTTL < 0 {
		defaultTTL = 0
	}
	return &Cache{store: store, defaultTTL: defaultTTL}
}

// WithObserver attaches an observer to receive operation events.
func (c *Cache) WithObserver(o Observer) *Cache {
	c.observer = o
	return c
}

// Store returns the underlying store.
func (c *Cache) Store() Store { return c.store }

// Driver reports the driver of the outermost store.
func (c *Cache) Driver() Driver { return c.store.Driver() }

// Ready checks that every backing store is reachable.
func (c *Cache) Ready(ctx context.Context) error {
	start := time.Now()
	err := c.store.Ready(ctx)
	c.observe(ctx, "ready", "", err == nil, err, start)
	return err
}

// Get returns raw bytes for key when present.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	start := time.Now()
	body, ok, err := c.store.Get(ctx, key)
	c.observe(ctx, "get", key, ok, err, start)
	return body, ok, err
}

// GetString returns the value for key as a string.
func (c *Cache) GetString(ctx context.Context, key string) (string, bool, error) {
	body, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		return "", ok, err
	}
	return string(body), true, nil
}

// Set writes raw bytes to key.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	start := time.Now()
	err := c.store.Set(ctx, key, value, c.resolveTTL(ttl))
	c.observe(ctx, "set", key, false, err, start)
	return err
}

// SetString writes a string value to key.
func (c *Cache) SetString(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.Set(ctx, key, []byte(value), ttl)
}

// Delete removes key. Deleting a missing key is not an error.
func (c *Cache) Delete(ctx context.Context, key string) error {
	start := time.Now()
	err := c.store.Delete(ctx, key)
	c.observe(ctx, "delete", key, err == nil, err, start)
	return err
}

// DeleteMany removes every listed key.
func (c *Cache) DeleteMany(ctx context.Context, keys ...string) error {
	start := time.Now()
	err := c.store.DeleteMany(ctx, keys...)
	for _, key := range keys {
		c.observe(ctx, "delete_many", key, err == nil, err, start)
	}
	return err
}

// Flush clears every key in this cache's namespace.
func (c *Cache) Flush(ctx context.Context) error {
	start := time.Now()
	err := c.store.Flush(ctx)
	c.observe(ctx, "flush", "", err == nil, err, start)
	return err
}

// Remember returns the cached bytes for key, or computes, stores and returns them.
func (c *Cache) Remember(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) ([]byte, error)) ([]byte, error) {
	start := time.Now()
	body, ok, err := c.Get(ctx, key)
	if err != nil {
		c.observe(ctx, "remember", key, false, err, start)
		return nil, err
	}
	if ok {
		c.observe(ctx, "remember", key, true, nil, start)
		return body, nil
	}
	if fn == nil {
		c.observe(ctx, "remember", key, false, errNoCallback, start)
		return nil, errNoCallback
	}
	body, err = fn(ctx)
	if err == nil {
		err = c.Set(ctx, key, body, ttl)
	}
	c.observe(ctx, "remember", key, false, err, start)
	if err != nil {
		return nil, err
	}
	return body, nil
}

// Close releases connections the cache opened itself. Injected clients are left
// to their owner. Close is idempotent.
func (c *Cache) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = closeAll(c.closers)
	})
	return c.closeErr
}

// ValueCodec defines how typed helpers turn values into bytes and back.
type ValueCodec[T any] struct {
	Encode func(T) ([]byte, error)
	Decode func([]byte) (T, error)
}

// JSONCodec is the codec used by GetValue, SetValue and GetIfPresent.
func JSONCodec[T any]() ValueCodec[T] {
	return ValueCodec[T]{
		Encode: func(v T) ([]byte, error) { return json.Marshal(v) },
		Decode: func(b []byte) (T, error) {
			var out T
			err := json.Unmarshal(b, &out)
			return out, err
		},
	}
}

// GetValue decodes the JSON value stored at key.
func GetValue[T any](ctx context.Context, c *Cache, key string) (T, bool, error) {
	return GetValueWithCodec(ctx, c, key, JSONCodec[T]())
}

// GetValueWithCodec decodes the value stored at key with codec.
func GetValueWithCodec[T any](ctx context.Context, c *Cache, key string, codec ValueCodec[T]) (T, bool, error) {
	var zero T
	body, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		return zero, ok, err
	}
	out, err := codec.Decode(body)
	if err != nil {
		return zero, false, err
	}
	return out, true, nil
}

// SetValue stores value at key as JSON.
func SetValue[T any](ctx context.Context, c *Cache, key string, value T, ttl time.Duration) error {
	return SetValueWithCodec(ctx, c, key, value, ttl, JSONCodec[T]())
}

// SetValueWithCodec stores value at key using codec.
func SetValueWithCodec[T any](ctx context.Context, c *Cache, key string, value T, ttl time.Duration, codec ValueCodec[T]) error {
	body, err := codec.Encode(value)
	if err != nil {
		return err
	}
	return c.Set(ctx, key, body, ttl)
}

// GetIfPresent returns the value at key, computing it with fn on a miss.
//
// A hit is returned as-is and never rewritten. A stored JSON null is a miss. On a miss fn runs once: its error is
// returned and nothing is stored, and a result that encodes to JSON null is returned
// without being stored. Any other result is stored with ttl (<= 0 means the cache default).
//
// Example: per-request counter
//
//	count, err := reqcache.GetIfPresent(ctx, c, "count", 0, func(context.Context) (int, error) {
//		return 1, nil
//	})
//	if err != nil {
//		return err
//	}
//	ttl, _ := reqcache.ParseTTL("10s")
//	_ = reqcache.SetValue(ctx, c, "count", count+1, ttl)
func GetIfPresent[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, fn func(context.Context) (T, error)) (T, error) {
	return GetIfPresentWithCodec(ctx, c, key, ttl, fn, JSONCodec[T]())
}

// GetIfPresentWithCodec is GetIfPresent with a caller-supplied codec.
func GetIfPresentWithCodec[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, fn func(context.Context) (T, error), codec ValueCodec[T]) (T, error) {
	var zero T
	start := time.Now()
	cachedBody, ok, err := c.Get(ctx, key)
	if err != nil {
		c.observe(ctx, "get_if_present", key, false, err, start)
		return zero, err
	}
	// A stored null counts as a miss.
	if ok && !isAbsent(cachedBody) {
		cached, err := codec.Decode(cachedBody)
		if err != nil {
			c.observe(ctx, "get_if_present", key, false, err, start)
			return zero, err
		}
		c.observe(ctx, "get_if_present", key, true, nil, start)
		return cached, nil
	}
	if fn == nil {
		c.observe(ctx, "get_if_present", key, false, errNoCallback, start)
		return zero, errNoCallback
	}
	val, err := fn(ctx)
	if err != nil {
		c.observe(ctx, "get_if_present", key, false, err, start)
		return zero, err
	}
	body, err := codec.Encode(val)
	if err != nil {
		c.observe(ctx, "get_if_present", key, false, err, start)
		return zero, err
	}
	if isAbsent(body) {
		c.observe(ctx, "get_if_present", key, false, nil, start)
		return val, nil
	}
	err = c.Set(ctx, key, body, ttl)
	c.observe(ctx, "get_if_present", key, false, err, start)
	if err != nil {
		return zero, err
	}
	return val, nil
}

var jsonNull = []byte("null")

func isAbsent(body []byte) bool {
	return body == nil || bytes.Equal(bytes.TrimSpace(body), jsonNull)
}

func (c *Cache) resolveTTL(ttl time.Duration) time.Duration {
	if ttl > 0 {
		return ttl
	}
	return c.defaultTTL
}

func (c *Cache) observe(ctx context.Context, op, key string, hit bool, err error, start time.Time) {
	if c.observer == nil {
		return
	}
	c.observer.OnCacheOp(ctx, op, key, hit, err, time.Since(start), c.Driver())
}
