// Package middleware places one shared *reqcache.Cache into every request.
//
// net/http and gorilla/mux handlers read it with FromContext; gin handlers read
// it with FromGin or c.MustGet(ContextKey).
//
//	c, handler := middleware.CreateCacheMiddleware(ctx, reqcache.WithRedisURL(url))
//	defer c.Close()
//	router := gin.New()
//	router.Use(handler)
package middleware
