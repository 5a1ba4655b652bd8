package sqlcore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/goforj/reqcache/cachecore"
)

const defaultTable = "reqcache_entries"

var sqlIdentPartRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Config configures the shared SQL-backed cache store.
type Config struct {
	cachecore.BaseConfig
	// DriverName is the database/sql driver ("pgx", "postgres", "mysql", "sqlite").
	DriverName string
	DSN        string
	Table      string
	// DB reuses an existing pool; DriverName still selects the SQL dialect.
	DB *sql.DB
}

type sqlStore struct {
	db         *sql.DB
	ownsDB     bool
	table      string
	driverName string
	prefix     string
	defaultTTL time.Duration
	getStmt    *sql.Stmt
	upsertStmt *sql.Stmt
	deleteStmt *sql.Stmt
	flushStmt  *sql.Stmt
}

// New opens (or reuses) a database, ensures the cache table exists and prepares
// the statements used by the store. Stores that opened their own pool close it on Close.
func New(cfg Config) (cachecore.Store, error) {
	if cfg.DriverName == "" {
		return nil, errors.New("sql driver requires a driver name")
	}
	table := cfg.Table
	if table == "" {
		table = defaultTable
	}
	if err := validateSQLTableName(table); err != nil {
		return nil, err
	}
	db, owns := cfg.DB, false
	if db == nil {
		if cfg.DSN == "" {
			return nil, errors.New("sql driver requires a dsn")
		}
		var err error
		db, err = sql.Open(cfg.DriverName, cfg.DSN)
		if err != nil {
			return nil, err
		}
		owns = true
		if cfg.DriverName == "sqlite" {
			// every in-memory sqlite connection is a separate database
			db.SetMaxOpenConns(1)
		}
	}
	s := &sqlStore{
		db:         db,
		ownsDB:     owns,
		table:      table,
		driverName: cfg.DriverName,
		prefix:     cfg.Prefix,
		defaultTTL: cfg.DefaultTTL,
	}
	if err := s.init(); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func (s *sqlStore) init() error {
	if err := s.db.Ping(); err != nil {
		return err
	}
	if _, err := s.db.Exec(s.schemaSQL()); err != nil {
		return fmt.Errorf("ensure cache table %s: %w", s.table, err)
	}
	return s.prepareStatements()
}

func (s *sqlStore) Driver() cachecore.Driver { return cachecore.DriverSQL }

func (s *sqlStore) Ready(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *sqlStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var v []byte
	var exp int64
	err := s.getStmt.QueryRowContext(ctx, s.cacheKey(key)).Scan(&v, &exp)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if exp > 0 && time.Now().UnixMilli() > exp {
		_ = s.Delete(ctx, key)
		return nil, false, nil
	}
	return cachecore.CloneBytes(v), true, nil
}

func (s *sqlStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	var exp int64
	if ttl > 0 {
		exp = time.Now().Add(ttl).UnixMilli()
	}
	if value == nil {
		value = []byte{}
	}
	_, err := s.upsertStmt.ExecContext(ctx, s.cacheKey(key), value, exp, value, exp)
	return err
}

func (s *sqlStore) Delete(ctx context.Context, key string) error {
	_, err := s.deleteStmt.ExecContext(ctx, s.cacheKey(key))
	return err
}

func (s *sqlStore) DeleteMany(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	placeholders := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys))
	for i, k := range keys {
		placeholders = append(placeholders, s.ph(i+1))
		args = append(args, s.cacheKey(k))
	}
	_, err := s.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE k IN (%s)", s.table, strings.Join(placeholders, ",")), args...)
	return err
}

// Flush removes the rows under the store prefix, or the whole table without one.
func (s *sqlStore) Flush(ctx context.Context) error {
	if s.prefix == "" {
		_, err := s.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", s.table))
		return err
	}
	_, err := s.flushStmt.ExecContext(ctx, escapeLike(s.prefix+":")+"%")
	return err
}

// Close releases prepared statements and, when the store opened it, the pool.
func (s *sqlStore) Close() error {
	for _, stmt := range []*sql.Stmt{s.getStmt, s.upsertStmt, s.deleteStmt, s.flushStmt} {
		if stmt != nil {
			_ = stmt.Close()
		}
	}
	if s.ownsDB && s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *sqlStore) cacheKey(key string) string {
	if s.prefix == "" {
		return key
	}
	return s.prefix + ":" + key
}

func (s *sqlStore) isPostgres() bool {
	return s.driverName == "postgres" || s.driverName == "pgx"
}

func (s *sqlStore) schemaSQL() string {
	switch {
	case s.isPostgres():
		return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			k TEXT PRIMARY KEY,
			v BYTEA NOT NULL,
			ea BIGINT NOT NULL
		)`, s.table)
	case s.driverName == "mysql":
		return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			k VARBINARY(255) PRIMARY KEY,
			v LONGBLOB NOT NULL,
			ea BIGINT NOT NULL
		) ENGINE=InnoDB`, s.table)
	default: // sqlite
		return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			k TEXT PRIMARY KEY,
			v BLOB NOT NULL,
			ea INTEGER NOT NULL
		)`, s.table)
	}
}

func (s *sqlStore) upsertSQL() string {
	// Placeholders must be positional for postgres/pgx.
	p1, p2, p3, p4, p5 := s.ph(1), s.ph(2), s.ph(3), s.ph(4), s.ph(5)
	switch {
	case s.isPostgres():
		return fmt.Sprintf("INSERT INTO %s (k, v, ea) VALUES (%s, %s, %s) ON CONFLICT (k) DO UPDATE SET v = %s, ea = %s", s.table, p1, p2, p3, p4, p5)
	case s.driverName == "mysql":
		return fmt.Sprintf("INSERT INTO %s (k, v, ea) VALUES (%s, %s, %s) ON DUPLICATE KEY UPDATE v = %s, ea = %s", s.table, p1, p2, p3, p4, p5)
	default: // sqlite
		return fmt.Sprintf("INSERT INTO %s (k, v, ea) VALUES (%s, %s, %s) ON CONFLICT(k) DO UPDATE SET v = %s, ea = %s", s.table, p1, p2, p3, p4, p5)
	}
}

func (s *sqlStore) prepareStatements() error {
	var err error
	if s.getStmt, err = s.db.Prepare(fmt.Sprintf("SELECT v, ea FROM %s WHERE k = %s", s.table, s.ph(1))); err != nil {
		return err
	}
	if s.upsertStmt, err = s.db.Prepare(s.upsertSQL()); err != nil {
		return err
	}
	if s.deleteStmt, err = s.db.Prepare(fmt.Sprintf("DELETE FROM %s WHERE k = %s", s.table, s.ph(1))); err != nil {
		return err
	}
	if s.flushStmt, err = s.db.Prepare(fmt.Sprintf(`DELETE FROM %s WHERE k LIKE %s ESCAPE '!'`, s.table, s.ph(1))); err != nil {
		return err
	}
	return nil
}

func (s *sqlStore) ph(i int) string {
	if s.isPostgres() {
		return fmt.Sprintf("$%d", i)
	}
	return "?"
}

var likeReplacer = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func escapeLike(s string) string {
	return likeReplacer.Replace(s)
}

func validateSQLTableName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("sql table name is required")
	}
	for _, part := range strings.Split(name, ".") {
		if !sqlIdentPartRE.MatchString(part) {
			return fmt.Errorf("invalid sql table name %q", name)
		}
	}
	return nil
}
