// Package sqlitecache registers the pure-Go modernc sqlite driver and builds sqlite-backed stores.
package sqlitecache

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/goforj/reqcache/cachecore"
	"github.com/goforj/reqcache/driver/sqlcore"
	_ "modernc.org/sqlite"
)

// Config configures a sqlite-backed cache store.
type Config struct {
	cachecore.BaseConfig
	DSN   string
	Table string
}

// New builds a sqlite-backed cachecore.Store.
func New(cfg Config) (cachecore.Store, error) {
	return sqlcore.New(sqlcore.Config{
		BaseConfig: cfg.BaseConfig,
		DriverName: "sqlite",
		DSN:        cfg.DSN,
		Table:      cfg.Table,
	})
}

// DSNFromURL maps sqlite:///abs/path.db, sqlite://rel.db and sqlite://:memory: to a DSN.
// A table query parameter is lifted out; the rest of the query (such as _pragma)
// stays on the DSN for the driver.
func DSNFromURL(raw string) (dsn, table string, err error) {
	rest, ok := strings.CutPrefix(raw, "sqlite://")
	if !ok {
		return "", "", fmt.Errorf("sqlite url must start with sqlite://")
	}
	path, rawQuery, _ := strings.Cut(rest, "?")
	if path == "" {
		return "", "", fmt.Errorf("sqlite url needs a path")
	}
	q, err := url.ParseQuery(rawQuery)
	if err != nil {
		return "", "", fmt.Errorf("parse sqlite url query: %w", err)
	}
	table = q.Get("table")
	q.Del("table")

	dsn = path
	if path == ":memory:" {
		dsn = "file::memory:"
	}
	if len(q) > 0 {
		dsn += "?" + q.Encode()
	}
	return dsn, table, nil
}
