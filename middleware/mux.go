package middleware

import (
	"github.com/goforj/reqcache"
	"github.com/gorilla/mux"
)

// Mux adapts Handler for router.Use on a gorilla/mux router.
func Mux(c *reqcache.Cache) mux.MiddlewareFunc {
	return mux.MiddlewareFunc(Handler(c))
}
