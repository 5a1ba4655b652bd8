// Package postgrescache registers the pgx driver and builds postgres-backed stores.
package postgrescache

import (
	"fmt"
	"net/url"

	"github.com/goforj/reqcache/cachecore"
	"github.com/goforj/reqcache/driver/sqlcore"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Config configures a postgres-backed cache store.
type Config struct {
	cachecore.BaseConfig
	DSN   string
	Table string
}

// New builds a postgres-backed cachecore.Store using the pgx stdlib driver.
func New(cfg Config) (cachecore.Store, error) {
	return sqlcore.New(sqlcore.Config{
		BaseConfig: cfg.BaseConfig,
		DriverName: "pgx",
		DSN:        cfg.DSN,
		Table:      cfg.Table,
	})
}

// DSNFromURL accepts postgres:// and postgresql:// URLs; pgx reads them as-is.
// A "table" query parameter is lifted out and returned separately.
func DSNFromURL(u *url.URL) (dsn, table string, err error) {
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return "", "", fmt.Errorf("postgres url has scheme %q", u.Scheme)
	}
	clone := *u
	q := clone.Query()
	table = q.Get("table")
	q.Del("table")
	clone.RawQuery = q.Encode()
	return clone.String(), table, nil
}
