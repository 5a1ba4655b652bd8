// Package reqcache provides a cache that lives in request context.
//
// A Cache is built once from Options and shared by every request through the
// middleware package. Depending on configuration it is backed by an in-process
// LRU, a remote store selected by URL scheme (redis, nats, postgres, mysql,
// sqlite, dynamodb), or both: a small local LRU with a short TTL in front of the
// remote store.
//
// GetIfPresent implements the read-through pattern handlers use most:
//
//	count, err := reqcache.GetIfPresent(ctx, c, "count", 0, func(context.Context) (int, error) {
//		return 1, nil
//	})
package reqcache
