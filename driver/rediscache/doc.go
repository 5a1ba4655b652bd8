// Package rediscache provides a Redis-backed cachecore.Store.
//
// Example:
//
//	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:6379"})
//	store := rediscache.New(rediscache.Config{
//		BaseConfig: cachecore.BaseConfig{Prefix: "reqcache"},
//		Client:     rdb,
//	})
//	c := reqcache.NewCache(store)
package rediscache
