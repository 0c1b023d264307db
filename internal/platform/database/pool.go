package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// ErrNoURL is returned by Open when no DSN is configured.
var ErrNoURL = errors.New("database URL is required")

type options struct {
	pingTimeout time.Duration
	schema      fs.FS
}

// Option tunes Open.
type Option func(*options)

// WithPingTimeout bounds the reachability check done by Open.
func WithPingTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.pingTimeout = d
		}
	}
}

// WithSchema applies every *.up.sql file of fsys, in name order, once the
// pool is reachable. The files must be idempotent.
func WithSchema(fsys fs.FS) Option {
	return func(o *options) { o.schema = fsys }
}

// Pool is the pgx-backed *sql.DB holding the claim-check payload table.
type Pool struct {
	db *sql.DB
}

// Open connects to url, pings it and applies the schema if one was given.
func Open(ctx context.Context, url string, opts ...Option) (*Pool, error) {
	if url == "" {
		return nil, ErrNoURL
	}
	o := options{pingTimeout: 5 * time.Second}
	for _, opt := range opts {
		opt(&o)
	}

	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, o.pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if o.schema != nil {
		if err := Migrate(ctx, db, o.schema); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return &Pool{db: db}, nil
}

// Migrate executes the *.up.sql files of fsys against db in name order.
func Migrate(ctx context.Context, db *sql.DB, fsys fs.FS) error {
	names, err := upMigrations(fsys)
	if err != nil {
		return err
	}
	for _, name := range names {
		stmt, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		if _, err := db.ExecContext(ctx, string(stmt)); err != nil {
			return fmt.Errorf("apply migration %s: %w", strings.TrimSuffix(name, ".up.sql"), err)
		}
	}
	return nil
}

func upMigrations(fsys fs.FS) ([]string, error) {
	names, err := fs.Glob(fsys, "*.up.sql")
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	if len(names) == 0 {
		return nil, errors.New("no up migrations found")
	}
	slices.Sort(names)
	return names, nil
}

// DB returns the underlying handle for the payload store.
func (p *Pool) DB() *sql.DB {
	return p.db
}

// Health pings the database; it fails on a nil pool.
func (p *Pool) Health(ctx context.Context) error {
	if p == nil || p.db == nil {
		return errors.New("database not configured")
	}
	return p.db.PingContext(ctx)
}

// Close is safe on a nil pool.
func (p *Pool) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}

// Collector exposes sql.DBStats as Prometheus metrics labelled with db_name.
func (p *Pool) Collector(name string) prometheus.Collector {
	return collectors.NewDBStatsCollector(p.db, name)
}
