package reqcache

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ParseTTL reads a human-readable TTL. It accepts time.ParseDuration units,
// a "d" suffix for days, and a bare integer meaning milliseconds.
// An empty string is zero, which means the cache default.
func ParseTTL(raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		if ms < 0 {
			return 0, fmt.Errorf("reqcache: negative ttl %q", raw)
		}
		if ms > math.MaxInt64/int64(time.Millisecond) {
			return 0, fmt.Errorf("reqcache: invalid ttl %q: out of range", raw)
		}
		return time.Duration(ms) * time.Millisecond, nil
	}
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.ParseFloat(days, 64)
		if err != nil || !(n >= 0) {
			return 0, fmt.Errorf("reqcache: invalid ttl %q", raw)
		}
		// float64(math.MaxInt64) rounds up to 2^63, so equality overflows too.
		d := n * float64(24*time.Hour)
		if d >= float64(math.MaxInt64) {
			return 0, fmt.Errorf("reqcache: invalid ttl %q: out of range", raw)
		}
		return time.Duration(d), nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("reqcache: invalid ttl %q: %w", raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("reqcache: negative ttl %q", raw)
	}
	return d, nil
}
