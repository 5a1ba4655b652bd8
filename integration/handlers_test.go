//go:build integration

package integration

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/goforj/reqcache"
	"github.com/goforj/reqcache/middleware"
)

func countHandler(w http.ResponseWriter, r *http.Request) {
	c := middleware.MustFromContext(r.Context())
	count, err := reqcache.GetIfPresent(r.Context(), c, "count", 0, func(context.Context) (int, error) {
		return 1, nil
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := reqcache.SetValue(r.Context(), c, "count", count+1, 10*time.Second); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	_, _ = io.WriteString(w, strconv.Itoa(count))
}

func get(t *testing.T, target string) int {
	t.Helper()
	resp, err := http.Get(target)
	if err != nil {
		t.Fatalf("get %s: %v", target, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %s", resp.StatusCode, body)
	}
	n, err := strconv.Atoi(string(body))
	if err != nil {
		t.Fatalf("body %q: %v", body, err)
	}
	return n
}
