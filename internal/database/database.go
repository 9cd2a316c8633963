// Package database centralises sqlx connection helpers.  The driver is
// go-sql-driver/mysql, which also works with MariaDB.
//
// Public entry points:
//
//	Open(cfg, opts)  – *Database with a lazily-connecting pool.
//	Wrap(cfg, db)    – adopt an existing *sqlx.DB (sqlmock in tests).
//
// Nothing here dials the server.  Connectivity problems surface on first
// use, or on an explicit Ping from the health check.
package database

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// Options tunes the connection pool.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DefaultOptions: 15 max open, 5 idle, and a 30-minute connection lifetime.
func DefaultOptions() Options {
	return Options{MaxOpenConns: 15, MaxIdleConns: 5, ConnMaxLifetime: 30 * time.Minute}
}

// Database is one configured pool.  When logging is enabled every statement
// is written to the logger at debug level before it runs.
type Database struct {
	Config Config
	db     *sqlx.DB
	log    *zap.SugaredLogger
}

// Open builds the pool without pinging.
func Open(cfg Config, opts Options) (*Database, error) {
	db, err := sqlx.Open("mysql", cfg.DSN())
	if err != nil {
		return nil, err
	}
	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}
	return &Database{Config: cfg, db: db}, nil
}

// Wrap adopts an already-open pool.
func Wrap(cfg Config, db *sqlx.DB) *Database {
	return &Database{Config: cfg, db: db}
}

// DB exposes the raw pool for callers that need sqlx features not mirrored
// here.  Statements issued through it are not logged.
func (d *Database) DB() *sqlx.DB { return d.db }

// Logging reports whether statement logging is on.
func (d *Database) Logging() bool { return d.log != nil }

func (d *Database) trace(query string, args []any) {
	if d.log != nil {
		d.log.Debugw("sql", "db", d.Config.Name, "query", query, "args", len(args))
	}
}

func (d *Database) GetContext(ctx context.Context, dest any, query string, args ...any) error {
	d.trace(query, args)
	return d.db.GetContext(ctx, dest, query, args...)
}

func (d *Database) SelectContext(ctx context.Context, dest any, query string, args ...any) error {
	d.trace(query, args)
	return d.db.SelectContext(ctx, dest, query, args...)
}

func (d *Database) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	d.trace(query, args)
	return d.db.ExecContext(ctx, query, args...)
}

// BeginTxx starts a transaction.  Statements inside it go through *sqlx.Tx
// directly; only the BEGIN is traced.
func (d *Database) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	d.trace("BEGIN", nil)
	return d.db.BeginTxx(ctx, opts)
}

// Ping dials the server.  Only health checks call it.
func (d *Database) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

func (d *Database) Close() error { return d.db.Close() }
