// Package cachetest provides reusable store contract tests for cachecore.Store implementations.
//
// Example pattern (driver test against miniredis):
//
//	func TestStoreContract(t *testing.T) {
//		mr := miniredis.RunT(t)
//		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
//		store := rediscache.New(rediscache.Config{Client: client})
//
//		cachetest.RunStoreContract(t, store, cachetest.Options{
//			CaseName: t.Name(),
//			TTL:      time.Second,
//			TTLWait:  2 * time.Second,
//			Advance:  mr.FastForward,
//		})
//	}
package cachetest
