package cachecore

import "time"

// BaseConfig contains shared, backend-agnostic driver configuration.
type BaseConfig struct {
	// DefaultTTL applies when Set receives ttl <= 0. Zero keeps entries until deleted.
	DefaultTTL time.Duration
	// Prefix namespaces keys on shared backends ("<prefix>:<key>").
	Prefix string
}
