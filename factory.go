package reqcache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/goforj/reqcache/cachecore"
	"github.com/goforj/reqcache/driver/dynamocache"
	"github.com/goforj/reqcache/driver/mysqlcache"
	"github.com/goforj/reqcache/driver/natscache"
	"github.com/goforj/reqcache/driver/postgrescache"
	"github.com/goforj/reqcache/driver/rediscache"
	"github.com/goforj/reqcache/driver/sqlitecache"
)

// ErrUnsupportedURL reports a remote URL whose scheme maps to no driver.
var ErrUnsupportedURL = errors.New("reqcache: unsupported remote url")

// New builds a Cache from options and fails on any configuration or connection error.
//
// Selection order: Disabled yields a null store; a remote URL or injected client
// yields the remote store, fronted by a local LRU when MultiLevelEnabled; otherwise
// a local LRU (or go-cache map) is used.
//
// Example: two-tier cache over redis
//
//	c, err := reqcache.New(ctx,
//		reqcache.WithRedisURL("redis://localhost:6379/0"),
//		reqcache.WithMultiLevel(true),
//	)
//	if err != nil {
//		return err
//	}
//	defer c.Close()
func New(ctx context.Context, opts ...Option) (*Cache, error) {
	return newFromOptions(ctx, applyOptions(opts))
}

// Open is New for call sites that cannot handle an error, such as middleware
// constructors. A failed build returns a Cache whose every call reports the failure.
func Open(ctx context.Context, opts ...Option) *Cache {
	o := applyOptions(opts)
	c, err := newFromOptions(ctx, o)
	if err == nil {
		return c
	}
	c = NewCache(&errorStore{driver: intendedDriver(o), err: err}, o.DefaultTTL)
	c.observer = o.Observer
	return c
}

func applyOptions(opts []Option) Options {
	var o Options
	for _, opt := range opts {
		if opt != nil {
			o = opt(o)
		}
	}
	return o.withDefaults()
}

func newFromOptions(ctx context.Context, o Options) (*Cache, error) {
	store, closers, err := buildStore(ctx, o)
	if err != nil {
		_ = closeAll(closers)
		return nil, err
	}
	c := NewCache(store, o.DefaultTTL)
	c.observer = o.Observer
	c.closers = closers
	return c, nil
}

func buildStore(ctx context.Context, o Options) (Store, []func() error, error) {
	if o.Disabled {
		return newNullStore(), nil, nil
	}
	var (
		base    Store
		closers []func() error
		err     error
	)
	if o.hasRemote() {
		base, closers, err = openRemote(ctx, o)
		if err != nil {
			return nil, closers, err
		}
		if o.MultiLevelEnabled {
			primary, err := newLRUStore(o.PrimaryMaxEntries, o.MultiLevelTTL)
			if err != nil {
				return nil, closers, err
			}
			base = newTieredStore(primary, base, o.MultiLevelTTL)
		}
	} else {
		base, err = openLocal(o)
		if err != nil {
			return nil, nil, err
		}
	}
	encrypted, err := newEncryptingStore(base, o.EncryptionKey)
	if err != nil {
		return nil, closers, err
	}
	return newShapingStore(encrypted, o.Compression, o.MaxValueBytes), closers, nil
}

func openLocal(o Options) (Store, error) {
	switch o.LocalDriver {
	case DriverLRU:
		return newLRUStore(o.LocalMaxEntries, o.DefaultTTL)
	case DriverMemory:
		return newMemoryStore(o.DefaultTTL, o.MemoryCleanupInterval), nil
	default:
		return nil, fmt.Errorf("reqcache: unknown local driver %q", o.LocalDriver)
	}
}

func openRemote(ctx context.Context, o Options) (Store, []func() error, error) {
	base := cachecore.BaseConfig{DefaultTTL: o.DefaultTTL, Prefix: o.Namespace}
	switch {
	case o.RedisClient != nil:
		return rediscache.New(rediscache.Config{BaseConfig: base, Client: o.RedisClient}), nil, nil
	case o.NATSKeyValue != nil:
		return natscache.New(natscache.Config{BaseConfig: base, KeyValue: o.NATSKeyValue}), nil, nil
	case o.DynamoClient != nil && o.RemoteURL == "":
		store, err := dynamocache.New(ctx, dynamocache.Config{BaseConfig: base, Client: o.DynamoClient})
		return store, nil, err
	}

	raw := o.RemoteURL
	scheme, _, ok := strings.Cut(raw, "://")
	if !ok {
		return nil, nil, fmt.Errorf("%w: missing scheme", ErrUnsupportedURL)
	}
	switch strings.ToLower(scheme) {
	case "redis", "rediss", "unix":
		client, err := rediscache.NewClientFromURL(raw)
		if err != nil {
			return nil, nil, err
		}
		return rediscache.New(rediscache.Config{BaseConfig: base, Client: client}), []func() error{client.Close}, nil

	case "nats", "tls":
		serverURL, bucket, err := splitNATSURL(raw)
		if err != nil {
			return nil, nil, err
		}
		kv, closeConn, err := natscache.Connect(serverURL, bucket)
		if err != nil {
			return nil, nil, err
		}
		return natscache.New(natscache.Config{BaseConfig: base, KeyValue: kv}), []func() error{closeConn}, nil

	case "postgres", "postgresql":
		u, err := url.Parse(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("parse postgres url: %w", err)
		}
		dsn, table, err := postgrescache.DSNFromURL(u)
		if err != nil {
			return nil, nil, err
		}
		return withCloser(postgrescache.New(postgrescache.Config{BaseConfig: base, DSN: dsn, Table: table}))

	case "mysql":
		dsn, table, err := mysqlcache.DSNFromURL(raw)
		if err != nil {
			return nil, nil, err
		}
		return withCloser(mysqlcache.New(mysqlcache.Config{BaseConfig: base, DSN: dsn, Table: table}))

	case "sqlite":
		dsn, table, err := sqlitecache.DSNFromURL(raw)
		if err != nil {
			return nil, nil, err
		}
		return withCloser(sqlitecache.New(sqlitecache.Config{BaseConfig: base, DSN: dsn, Table: table}))

	case "dynamodb":
		cfg, err := dynamocache.ConfigFromURL(raw)
		if err != nil {
			return nil, nil, err
		}
		cfg.BaseConfig = base
		cfg.Client = o.DynamoClient
		store, err := dynamocache.New(ctx, cfg)
		return store, nil, err

	default:
		return nil, nil, fmt.Errorf("%w: scheme %q", ErrUnsupportedURL, scheme)
	}
}

func withCloser(store Store, err error) (Store, []func() error, error) {
	if err != nil {
		return nil, nil, err
	}
	if c, ok := store.(io.Closer); ok {
		return store, []func() error{c.Close}, nil
	}
	return store, nil, nil
}

// splitNATSURL strips the bucket, given as the path or ?bucket=, from a server URL.
func splitNATSURL(raw string) (serverURL, bucket string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("parse nats url: %w", err)
	}
	bucket = strings.Trim(u.Path, "/")
	if b := u.Query().Get("bucket"); b != "" {
		bucket = b
	}
	u.Path, u.RawPath, u.RawQuery = "", "", ""
	return u.String(), bucket, nil
}

// intendedDriver names the backend a failed configuration was aiming for.
func intendedDriver(o Options) Driver {
	if o.Disabled {
		return DriverNull
	}
	if !o.hasRemote() {
		return o.LocalDriver
	}
	if o.MultiLevelEnabled {
		return DriverTiered
	}
	switch {
	case o.RedisClient != nil:
		return DriverRedis
	case o.NATSKeyValue != nil:
		return DriverNATS
	}
	scheme, _, _ := strings.Cut(strings.ToLower(o.RemoteURL), "://")
	switch scheme {
	case "redis", "rediss", "unix":
		return DriverRedis
	case "nats", "tls":
		return DriverNATS
	case "postgres", "postgresql", "mysql", "sqlite":
		return DriverSQL
	case "dynamodb":
		return DriverDynamo
	}
	return DriverNull
}

func closeAll(closers []func() error) error {
	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		errs = append(errs, closers[i]())
	}
	return errors.Join(errs...)
}
