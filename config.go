package reqcache

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goforj/reqcache/driver/dynamocache"
	"github.com/goforj/reqcache/driver/natscache"
	"github.com/goforj/reqcache/driver/rediscache"
)

const defaultNamespace = "reqcache"

// Environment variables read by LoadOptionsFromEnv. RemoteURL alone also falls
// back to them inside New.
const (
	EnvURL           = "REQCACHE_URL"
	EnvRedisURL      = "REDIS_URL"
	EnvMultiLevel    = "REQCACHE_MULTI_LEVEL"
	EnvMultiLevelTTL = "REQCACHE_MULTI_LEVEL_TTL"
	EnvNamespace     = "REQCACHE_NAMESPACE"
	EnvDefaultTTL    = "REQCACHE_DEFAULT_TTL"
	EnvLocalDriver   = "REQCACHE_LOCAL_DRIVER"
	EnvDisabled      = "REQCACHE_DISABLED"
)

// Options controls which stores back a Cache.
type Options struct {
	// RemoteURL selects a shared backend by scheme (redis, rediss, unix, nats,
	// tls, postgres, postgresql, mysql, sqlite, dynamodb). Empty means in-process only.
	RemoteURL string

	// MultiLevelEnabled puts a small local LRU in front of the remote store.
	// It has no effect without a remote store.
	MultiLevelEnabled bool
	// MultiLevelTTL caps how long the local tier keeps an entry. Defaults to 1s.
	MultiLevelTTL time.Duration

	// Namespace prefixes every remote key as "<namespace>:<key>".
	Namespace string
	// DefaultTTL applies when a call passes ttl <= 0. Zero keeps entries until deleted.
	DefaultTTL time.Duration

	// LocalDriver is DriverLRU (default) or DriverMemory for the single-tier local store.
	LocalDriver Driver
	// LocalMaxEntries bounds the single-tier LRU. Defaults to 999999.
	LocalMaxEntries int
	// PrimaryMaxEntries bounds the local tier of a two-tier cache. Defaults to 999.
	PrimaryMaxEntries int
	// MemoryCleanupInterval is the janitor period for DriverMemory.
	MemoryCleanupInterval time.Duration

	// Disabled replaces every store with one that never holds values.
	Disabled bool

	Compression   CompressionCodec
	MaxValueBytes int
	// EncryptionKey enables AES-GCM at rest when set (16, 24 or 32 bytes).
	EncryptionKey []byte

	Observer Observer

	// Injected clients take precedence over dialing RemoteURL and are never closed by Cache.
	RedisClient  rediscache.Client
	NATSKeyValue natscache.KeyValue
	DynamoClient dynamocache.DynamoAPI
}

func (o Options) withDefaults() Options {
	if o.RemoteURL == "" {
		o.RemoteURL = remoteURLFromEnv()
	}
	if o.MultiLevelTTL <= 0 {
		o.MultiLevelTTL = defaultMultiLevelTTL
	}
	if o.Namespace == "" {
		o.Namespace = defaultNamespace
	}
	if o.LocalDriver == "" {
		o.LocalDriver = DriverLRU
	}
	if o.LocalMaxEntries <= 0 {
		o.LocalMaxEntries = defaultLRUEntries
	}
	if o.PrimaryMaxEntries <= 0 {
		o.PrimaryMaxEntries = defaultPrimaryEntries
	}
	if o.MemoryCleanupInterval <= 0 {
		o.MemoryCleanupInterval = defaultMemoryCleanupInterval
	}
	if o.Compression == "" {
		o.Compression = CompressionNone
	}
	return o
}

func (o Options) hasRemote() bool {
	return o.RemoteURL != "" || o.RedisClient != nil || o.NATSKeyValue != nil || o.DynamoClient != nil
}

func remoteURLFromEnv() string {
	if v := strings.TrimSpace(os.Getenv(EnvURL)); v != "" {
		return v
	}
	return strings.TrimSpace(os.Getenv(EnvRedisURL))
}

// LoadOptionsFromEnv builds Options from REQCACHE_* variables, with REDIS_URL as
// the remote URL fallback. Unset variables keep their zero value.
func LoadOptionsFromEnv() (Options, error) {
	o := Options{RemoteURL: remoteURLFromEnv()}
	var err error
	if o.MultiLevelEnabled, err = envBool(EnvMultiLevel); err != nil {
		return Options{}, err
	}
	if o.Disabled, err = envBool(EnvDisabled); err != nil {
		return Options{}, err
	}
	if o.MultiLevelTTL, err = envTTL(EnvMultiLevelTTL); err != nil {
		return Options{}, err
	}
	if o.DefaultTTL, err = envTTL(EnvDefaultTTL); err != nil {
		return Options{}, err
	}
	o.Namespace = strings.TrimSpace(os.Getenv(EnvNamespace))
	if raw := strings.TrimSpace(os.Getenv(EnvLocalDriver)); raw != "" {
		switch d := Driver(strings.ToLower(raw)); d {
		case DriverLRU, DriverMemory:
			o.LocalDriver = d
		default:
			return Options{}, fmt.Errorf("%s: unknown local driver %q", EnvLocalDriver, raw)
		}
	}
	return o, nil
}

func envBool(name string) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s: %w", name, err)
	}
	return v, nil
}

func envTTL(name string) (time.Duration, error) {
	d, err := ParseTTL(os.Getenv(name))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return d, nil
}
