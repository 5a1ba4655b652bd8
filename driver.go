package reqcache

import "github.com/goforj/reqcache/cachecore"

// Store is the byte-level contract every backend implements.
type Store = cachecore.Store

// Driver identifies a cache backend.
type Driver = cachecore.Driver

const (
	DriverNull   = cachecore.DriverNull
	DriverMemory = cachecore.DriverMemory
	DriverLRU    = cachecore.DriverLRU
	DriverRedis  = cachecore.DriverRedis
	DriverNATS   = cachecore.DriverNATS
	DriverSQL    = cachecore.DriverSQL
	DriverDynamo = cachecore.DriverDynamo
	DriverTiered = cachecore.DriverTiered
)
