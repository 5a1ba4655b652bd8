package main

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/goforj/reqcache"
	"github.com/goforj/reqcache/middleware"
)

// counterTTL keeps the counter for ten seconds after the last hit.
const counterTTL = "10s"

func newRouter(cacheMiddleware gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), cacheMiddleware)
	router.GET("/count", handleCount)
	router.GET("/delete", handleDelete)
	return router
}

func handleCount(gc *gin.Context) {
	c, ok := middleware.FromGin(gc)
	if !ok {
		gc.String(http.StatusInternalServerError, "cache middleware not installed")
		return
	}
	ctx := gc.Request.Context()
	count, err := reqcache.GetIfPresent(ctx, c, "count", 0, func(context.Context) (int, error) {
		return 1, nil
	})
	if err != nil {
		gc.String(http.StatusInternalServerError, err.Error())
		return
	}
	ttl, err := reqcache.ParseTTL(counterTTL)
	if err != nil {
		gc.String(http.StatusInternalServerError, err.Error())
		return
	}
	if err := reqcache.SetValue(ctx, c, "count", count+1, ttl); err != nil {
		gc.String(http.StatusInternalServerError, err.Error())
		return
	}
	gc.String(http.StatusOK, strconv.Itoa(count))
}

func handleDelete(gc *gin.Context) {
	c, ok := middleware.FromGin(gc)
	if !ok {
		gc.String(http.StatusInternalServerError, "cache middleware not installed")
		return
	}
	if err := c.Delete(gc.Request.Context(), "count"); err != nil {
		gc.String(http.StatusInternalServerError, err.Error())
		return
	}
	gc.String(http.StatusOK, "deleted")
}
