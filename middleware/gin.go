package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/goforj/reqcache"
)

// Gin stores c under ContextKey and in the request context, so both
// c.MustGet("cache") and FromContext(c.Request.Context()) work downstream.
func Gin(c *reqcache.Cache) gin.HandlerFunc {
	return func(gc *gin.Context) {
		gc.Set(ContextKey, c)
		gc.Request = gc.Request.WithContext(WithCache(gc.Request.Context(), c))
		gc.Next()
	}
}

// FromGin returns the cache set by Gin.
func FromGin(gc *gin.Context) (*reqcache.Cache, bool) {
	v, ok := gc.Get(ContextKey)
	if !ok {
		return nil, false
	}
	c, ok := v.(*reqcache.Cache)
	return c, ok && c != nil
}

// CacheMiddleware builds a cache and returns only the middleware. Use
// CreateCacheMiddleware when the caller needs the cache to close it.
func CacheMiddleware(ctx context.Context, opts ...reqcache.Option) gin.HandlerFunc {
	return Gin(reqcache.Open(ctx, opts...))
}

// CreateCacheMiddleware builds a cache and returns it with its gin middleware.
func CreateCacheMiddleware(ctx context.Context, opts ...reqcache.Option) (*reqcache.Cache, gin.HandlerFunc) {
	c := reqcache.Open(ctx, opts...)
	return c, Gin(c)
}
