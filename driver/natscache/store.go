// Package natscache provides a NATS JetStream KeyValue-backed cachecore.Store.
package natscache

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goforj/reqcache/cachecore"
	"github.com/nats-io/nats.go"
)

const (
	defaultPrefix = "reqcache"
	// DefaultBucket is used when a connection URL names no bucket.
	DefaultBucket = "reqcache"
	headerLen     = 12
)

var (
	envelopeMagic = []byte("RQC1")
	errNoKeyValue = errors.New("nats cache key-value unavailable")
)

// KeyValue captures the subset of nats.KeyValue used by the store.
type KeyValue interface {
	Status() (nats.KeyValueStatus, error)
	Get(key string) (nats.KeyValueEntry, error)
	Put(key string, value []byte) (uint64, error)
	Delete(key string, opts ...nats.DeleteOpt) error
	Purge(key string, opts ...nats.DeleteOpt) error
	ListKeys(opts ...nats.WatchOpt) (nats.KeyLister, error)
}

// Config configures a NATS JetStream KeyValue-backed cache store.
type Config struct {
	cachecore.BaseConfig
	KeyValue KeyValue
	// BucketTTL stores raw values and leaves expiry to the bucket's MaxAge.
	BucketTTL bool
}

type store struct {
	kv          KeyValue
	defaultTTL  time.Duration
	scopePrefix string
	bucketTTL   bool
	now         func() time.Time
}

// New builds a NATS-backed cachecore.Store.
//
// Per-key TTLs are kept in a small binary envelope ahead of the value and checked on
// read, since JetStream KV only supports bucket-wide expiry.
func New(cfg Config) cachecore.Store {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &store{
		kv:          cfg.KeyValue,
		defaultTTL:  cfg.DefaultTTL,
		scopePrefix: "p." + encodeKeyPart(prefix) + ".k.",
		bucketTTL:   cfg.BucketTTL,
		now:         time.Now,
	}
}

// Connect dials natsURL and binds the named bucket, creating it when missing.
// The returned close func drains the connection.
func Connect(natsURL, bucket string) (nats.KeyValue, func() error, error) {
	if bucket == "" {
		bucket = DefaultBucket
	}
	nc, err := nats.Connect(natsURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect nats: %w", err)
	}
	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("open jetstream: %w", err)
	}
	kv, err := js.KeyValue(bucket)
	if errors.Is(err, nats.ErrBucketNotFound) {
		kv, err = js.CreateKeyValue(&nats.KeyValueConfig{Bucket: bucket, History: 1})
	}
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("bind nats bucket %q: %w", bucket, err)
	}
	return kv, nc.Drain, nil
}

func (s *store) Driver() cachecore.Driver { return cachecore.DriverNATS }

func (s *store) Ready(context.Context) error {
	if s.kv == nil {
		return errNoKeyValue
	}
	_, err := s.kv.Status()
	return err
}

func (s *store) Get(_ context.Context, key string) ([]byte, bool, error) {
	if s.kv == nil {
		return nil, false, errNoKeyValue
	}
	cacheKey := s.cacheKey(key)
	entry, err := s.kv.Get(cacheKey)
	if isMiss(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if entry.Operation() == nats.KeyValueDelete || entry.Operation() == nats.KeyValuePurge {
		return nil, false, nil
	}
	if s.bucketTTL {
		return cachecore.CloneBytes(entry.Value()), true, nil
	}
	value, expiresAt, wrapped := decodeEnvelope(entry.Value())
	if !wrapped {
		return cachecore.CloneBytes(entry.Value()), true, nil
	}
	if expiresAt > 0 && s.now().UnixMilli() > expiresAt {
		_ = s.kv.Purge(cacheKey)
		return nil, false, nil
	}
	return cachecore.CloneBytes(value), true, nil
}

func (s *store) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if s.kv == nil {
		return errNoKeyValue
	}
	body := cachecore.CloneBytes(value)
	if !s.bucketTTL {
		body = s.encodeEnvelope(value, ttl)
	}
	_, err := s.kv.Put(s.cacheKey(key), body)
	return err
}

func (s *store) Delete(_ context.Context, key string) error {
	if s.kv == nil {
		return errNoKeyValue
	}
	err := s.kv.Delete(s.cacheKey(key))
	if isMiss(err) {
		return nil
	}
	return err
}

func (s *store) DeleteMany(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		if err := s.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

func (s *store) Flush(_ context.Context) error {
	if s.kv == nil {
		return errNoKeyValue
	}
	lister, err := s.kv.ListKeys(nats.IgnoreDeletes())
	if err != nil {
		if errors.Is(err, nats.ErrNoKeysFound) {
			return nil
		}
		return err
	}
	defer func() { _ = lister.Stop() }()

	var matched []string
	for key := range lister.Keys() {
		if strings.HasPrefix(key, s.scopePrefix) {
			matched = append(matched, key)
		}
	}
	for _, key := range matched {
		if err := s.kv.Purge(key); err != nil && !isMiss(err) {
			return err
		}
	}
	return nil
}

func (s *store) cacheKey(key string) string {
	return s.scopePrefix + encodeKeyPart(key)
}

func (s *store) encodeEnvelope(value []byte, ttl time.Duration) []byte {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	var expiresAt int64
	if ttl > 0 {
		expiresAt = s.now().Add(ttl).UnixMilli()
	}
	body := make([]byte, headerLen+len(value))
	copy(body[:4], envelopeMagic)
	binary.BigEndian.PutUint64(body[4:headerLen], uint64(expiresAt))
	copy(body[headerLen:], value)
	return body
}

func decodeEnvelope(body []byte) ([]byte, int64, bool) {
	if len(body) < headerLen || !bytes.Equal(body[:4], envelopeMagic) {
		return nil, 0, false
	}
	return body[headerLen:], int64(binary.BigEndian.Uint64(body[4:headerLen])), true
}

func isMiss(err error) bool {
	return errors.Is(err, nats.ErrKeyNotFound) || errors.Is(err, nats.ErrKeyDeleted)
}

// encodeKeyPart keeps arbitrary cache keys inside the KV key alphabet.
func encodeKeyPart(part string) string {
	if part == "" {
		return "_"
	}
	return base64.RawURLEncoding.EncodeToString([]byte(part))
}
