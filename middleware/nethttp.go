package middleware

import (
	"context"
	"net/http"

	"github.com/goforj/reqcache"
)

// ContextKey is the name the cache is stored under in framework context maps.
const ContextKey = "cache"

type contextKey struct{}

// WithCache returns a copy of ctx carrying c.
func WithCache(ctx context.Context, c *reqcache.Cache) context.Context {
	return context.WithValue(ctx, contextKey{}, c)
}

// FromContext returns the cache placed in ctx by one of the middlewares.
func FromContext(ctx context.Context) (*reqcache.Cache, bool) {
	c, ok := ctx.Value(contextKey{}).(*reqcache.Cache)
	return c, ok && c != nil
}

// MustFromContext is FromContext for handlers mounted behind the middleware.
// It panics when no cache is present.
func MustFromContext(ctx context.Context) *reqcache.Cache {
	c, ok := FromContext(ctx)
	if !ok {
		panic("reqcache: no cache in request context; is the middleware installed?")
	}
	return c
}

// Handler attaches c to every request before calling next.
func Handler(c *reqcache.Cache) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(WithCache(r.Context(), c)))
		})
	}
}

// CreateHandler builds a cache with reqcache.Open and returns it with its middleware.
// The caller owns the cache and should Close it on shutdown.
func CreateHandler(ctx context.Context, opts ...reqcache.Option) (*reqcache.Cache, func(http.Handler) http.Handler) {
	c := reqcache.Open(ctx, opts...)
	return c, Handler(c)
}
