package cachecore

import (
	"fmt"
	"strings"
)

// CompressionCodec represents a value compression algorithm.
type CompressionCodec string

const (
	CompressionNone   CompressionCodec = "none"
	CompressionGzip   CompressionCodec = "gzip"
	CompressionSnappy CompressionCodec = "snappy"
)

// ParseCompressionCodec maps a config string to a codec. Empty means none.
func ParseCompressionCodec(raw string) (CompressionCodec, error) {
	switch CompressionCodec(strings.ToLower(strings.TrimSpace(raw))) {
	case "", CompressionNone:
		return CompressionNone, nil
	case CompressionGzip:
		return CompressionGzip, nil
	case CompressionSnappy:
		return CompressionSnappy, nil
	default:
		return "", fmt.Errorf("unknown compression codec %q", raw)
	}
}
