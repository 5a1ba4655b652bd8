package reqcache

import (
	"time"

	"github.com/goforj/reqcache/driver/dynamocache"
	"github.com/goforj/reqcache/driver/natscache"
	"github.com/goforj/reqcache/driver/rediscache"
)

// Option mutates Options when constructing a Cache.
type Option func(Options) Options

// WithOptions replaces the accumulated options, typically with LoadOptionsFromEnv output.
// Options after it still apply.
func WithOptions(o Options) Option {
	return func(Options) Options { return o }
}

// WithRemoteURL selects the remote backend, e.g. "redis://localhost:6379".
func WithRemoteURL(url string) Option {
	return func(o Options) Options {
		o.RemoteURL = url
		return o
	}
}

// WithRedisURL is WithRemoteURL under the name most callers reach for.
func WithRedisURL(url string) Option { return WithRemoteURL(url) }

// WithMultiLevel toggles the local LRU tier in front of the remote store.
func WithMultiLevel(enabled bool) Option {
	return func(o Options) Options {
		o.MultiLevelEnabled = enabled
		return o
	}
}

// WithMultiLevelTTL caps the lifetime of local-tier entries.
func WithMultiLevelTTL(ttl time.Duration) Option {
	return func(o Options) Options {
		o.MultiLevelTTL = ttl
		return o
	}
}

// WithNamespace sets the remote key prefix.
func WithNamespace(ns string) Option {
	return func(o Options) Options {
		o.Namespace = ns
		return o
	}
}

// WithDefaultTTL overrides the TTL used when ttl <= 0.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(o Options) Options {
		o.DefaultTTL = ttl
		return o
	}
}

// WithLocalDriver picks DriverLRU or DriverMemory for the single-tier local store.
func WithLocalDriver(d Driver) Option {
	return func(o Options) Options {
		o.LocalDriver = d
		return o
	}
}

func WithLocalMaxEntries(n int) Option {
	return func(o Options) Options {
		o.LocalMaxEntries = n
		return o
	}
}

func WithPrimaryMaxEntries(n int) Option {
	return func(o Options) Options {
		o.PrimaryMaxEntries = n
		return o
	}
}

func WithMemoryCleanupInterval(interval time.Duration) Option {
	return func(o Options) Options {
		o.MemoryCleanupInterval = interval
		return o
	}
}

// WithDisabled turns the cache into a pass-through that never stores values.
func WithDisabled(disabled bool) Option {
	return func(o Options) Options {
		o.Disabled = disabled
		return o
	}
}

func WithCompression(codec CompressionCodec) Option {
	return func(o Options) Options {
		o.Compression = codec
		return o
	}
}

// WithMaxValueBytes rejects values larger than n bytes with ErrValueTooLarge.
func WithMaxValueBytes(n int) Option {
	return func(o Options) Options {
		o.MaxValueBytes = n
		return o
	}
}

func WithEncryptionKey(key []byte) Option {
	return func(o Options) Options {
		o.EncryptionKey = key
		return o
	}
}

func WithObserver(obs Observer) Option {
	return func(o Options) Options {
		o.Observer = obs
		return o
	}
}

// WithRedisClient uses an existing redis client instead of dialing RemoteURL.
func WithRedisClient(client rediscache.Client) Option {
	return func(o Options) Options {
		o.RedisClient = client
		return o
	}
}

// WithNATSKeyValue uses an existing JetStream bucket instead of dialing RemoteURL.
func WithNATSKeyValue(kv natscache.KeyValue) Option {
	return func(o Options) Options {
		o.NATSKeyValue = kv
		return o
	}
}

// WithDynamoClient uses an existing DynamoDB client. RemoteURL still names the table.
func WithDynamoClient(client dynamocache.DynamoAPI) Option {
	return func(o Options) Options {
		o.DynamoClient = client
		return o
	}
}
