package reqcache

import (
	"testing"
	"time"
)

func TestOptionsWithDefaults(t *testing.T) {
	clearRemoteEnv(t)
	o := Options{}.withDefaults()
	if o.RemoteURL != "" {
		t.Fatalf("expected no remote url, got %q", o.RemoteURL)
	}
	if o.MultiLevelTTL != time.Second {
		t.Fatalf("expected 1s multi-level ttl, got %s", o.MultiLevelTTL)
	}
	if o.Namespace != "reqcache" {
		t.Fatalf("expected default namespace, got %q", o.Namespace)
	}
	if o.DefaultTTL != 0 {
		t.Fatalf("expected no default expiry, got %s", o.DefaultTTL)
	}
	if o.LocalDriver != DriverLRU || o.LocalMaxEntries != 999999 || o.PrimaryMaxEntries != 999 {
		t.Fatalf("unexpected local defaults: %+v", o)
	}
	if o.Compression != CompressionNone {
		t.Fatalf("expected no compression, got %q", o.Compression)
	}
}

func TestOptionsRemoteURLFallsBackToEnv(t *testing.T) {
	t.Setenv(EnvURL, "")
	t.Setenv(EnvRedisURL, "redis://from-redis-url:6379")
	if got := (Options{}).withDefaults().RemoteURL; got != "redis://from-redis-url:6379" {
		t.Fatalf("expected REDIS_URL fallback, got %q", got)
	}

	t.Setenv(EnvURL, "nats://from-reqcache-url:4222")
	if got := (Options{}).withDefaults().RemoteURL; got != "nats://from-reqcache-url:4222" {
		t.Fatalf("expected REQCACHE_URL to win, got %q", got)
	}

	if got := (Options{RemoteURL: "redis://explicit"}).withDefaults().RemoteURL; got != "redis://explicit" {
		t.Fatalf("expected explicit url to win, got %q", got)
	}
}

func TestLoadOptionsFromEnv(t *testing.T) {
	clearRemoteEnv(t)
	t.Setenv(EnvURL, "redis://localhost:6379/2")
	t.Setenv(EnvMultiLevel, "true")
	t.Setenv(EnvMultiLevelTTL, "250")
	t.Setenv(EnvNamespace, "api")
	t.Setenv(EnvDefaultTTL, "1h")
	t.Setenv(EnvLocalDriver, "memory")
	t.Setenv(EnvDisabled, "0")

	o, err := LoadOptionsFromEnv()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := Options{
		RemoteURL:         "redis://localhost:6379/2",
		MultiLevelEnabled: true,
		MultiLevelTTL:     250 * time.Millisecond,
		Namespace:         "api",
		DefaultTTL:        time.Hour,
		LocalDriver:       DriverMemory,
	}
	if o.RemoteURL != want.RemoteURL || o.MultiLevelEnabled != want.MultiLevelEnabled ||
		o.MultiLevelTTL != want.MultiLevelTTL || o.Namespace != want.Namespace ||
		o.DefaultTTL != want.DefaultTTL || o.LocalDriver != want.LocalDriver || o.Disabled {
		t.Fatalf("unexpected options: %+v", o)
	}
}

func TestLoadOptionsFromEnvErrors(t *testing.T) {
	cases := map[string]string{
		EnvMultiLevel:    "maybe",
		EnvDisabled:      "nope",
		EnvMultiLevelTTL: "soon",
		EnvDefaultTTL:    "-1s",
		EnvLocalDriver:   "redis",
	}
	for name, value := range cases {
		t.Run(name, func(t *testing.T) {
			clearRemoteEnv(t)
			t.Setenv(name, value)
			if _, err := LoadOptionsFromEnv(); err == nil {
				t.Fatalf("expected error for %s=%q", name, value)
			}
		})
	}
}

func TestWithOptionsReplacesThenLaterOptionsApply(t *testing.T) {
	clearRemoteEnv(t)
	o := applyOptions([]Option{
		WithNamespace("first"),
		WithOptions(Options{Namespace: "env", MultiLevelEnabled: true}),
		WithMultiLevel(false),
		nil,
	})
	if o.Namespace != "env" {
		t.Fatalf("expected namespace from WithOptions, got %q", o.Namespace)
	}
	if o.MultiLevelEnabled {
		t.Fatalf("expected later option to override")
	}
}
