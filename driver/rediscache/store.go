package rediscache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goforj/reqcache/cachecore"
	"github.com/redis/go-redis/v9"
)

const (
	defaultPrefix = "reqcache"
	scanBatch     = 200
)

var errNoClient = errors.New("redis cache client unavailable")

// Client captures the subset of redis.UniversalClient used by the store.
type Client interface {
	Ping(ctx context.Context) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	PTTL(ctx context.Context, key string) *redis.DurationCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
}

// Config configures a Redis-backed cache store.
type Config struct {
	cachecore.BaseConfig
	Client Client
}

type store struct {
	client     Client
	defaultTTL time.Duration
	prefix     string
}

// New builds a Redis-backed cachecore.Store.
//
// Defaults:
// - DefaultTTL: zero keeps keys without expiry
// - Prefix: "reqcache" when empty
// - Client: nil allowed (operations return errors until a client is provided)
func New(cfg Config) cachecore.Store {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &store{
		client:     cfg.Client,
		defaultTTL: cfg.DefaultTTL,
		prefix:     prefix,
	}
}

// NewClientFromURL parses redis://, rediss:// and unix:// URLs into a client.
func NewClientFromURL(rawURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

func (s *store) Driver() cachecore.Driver {
	return cachecore.DriverRedis
}

func (s *store) Ready(ctx context.Context) error {
	if s.client == nil {
		return errNoClient
	}
	return s.client.Ping(ctx).Err()
}

func (s *store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if s.client == nil {
		return nil, false, errNoClient
	}
	value, err := s.client.Get(ctx, s.cacheKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return value, true, nil
}

func (s *store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if s.client == nil {
		return errNoClient
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	if ttl < 0 {
		ttl = 0
	}
	return s.client.Set(ctx, s.cacheKey(key), value, ttl).Err()
}

var _ cachecore.TTLReader = (*store)(nil)

// RemainingTTL reports the key's PTTL. Redis answers -1 for no expiry and -2
// for a missing key; both map to ok=false.
func (s *store) RemainingTTL(ctx context.Context, key string) (time.Duration, bool, error) {
	if s.client == nil {
		return 0, false, errNoClient
	}
	ttl, err := s.client.PTTL(ctx, s.cacheKey(key)).Result()
	if err != nil {
		return 0, false, err
	}
	if ttl <= 0 {
		return 0, false, nil
	}
	return ttl, true, nil
}

func (s *store) Delete(ctx context.Context, key string) error {
	if s.client == nil {
		return errNoClient
	}
	return s.client.Del(ctx, s.cacheKey(key)).Err()
}

func (s *store) DeleteMany(ctx context.Context, keys ...string) error {
	if s.client == nil {
		return errNoClient
	}
	if len(keys) == 0 {
		return nil
	}
	cacheKeys := make([]string, 0, len(keys))
	for _, key := range keys {
		cacheKeys = append(cacheKeys, s.cacheKey(key))
	}
	return s.client.Del(ctx, cacheKeys...).Err()
}

// Flush removes every key under the store prefix. Keys outside the prefix are untouched.
func (s *store) Flush(ctx context.Context) error {
	if s.client == nil {
		return errNoClient
	}
	pattern := escapeGlob(s.prefix) + ":*"
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

func (s *store) cacheKey(key string) string {
	return s.prefix + ":" + key
}

var globReplacer = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

func escapeGlob(s string) string {
	return globReplacer.Replace(s)
}
