// Package database centralises the connection provider every content
// repository receives.  The driver is go-sql-driver/mysql, which also works
// with MariaDB.
//
// Public entry points:
//
//	Open(ctx, dsn)                     – defaults suitable for the web process.
//	OpenWithOptions(ctx, dsn, opts)    – pool sizes plus ping retry/backoff.
//	FromDB(db)                         – wrap an existing handle (tests, tools).
//	Unavailable()                      – provider for a site with no database.
//
// Open pings before returning so callers learn about a dead store during
// bootstrap.  A failed ping is retried with exponential backoff; nothing
// else is retried, and a query that fails later is reported to the caller
// as-is.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// Options tunes the pool and the bootstrap ping.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	Retries         int           // extra ping attempts after the first
	RetryBackoff    time.Duration // initial wait, doubled per attempt
}

// DefaultOptions returns 15 open, 5 idle, a 30-minute lifetime, and two
// ping retries starting at 500 ms.
func DefaultOptions() Options {
	return Options{
		MaxOpenConns:    15,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
		Retries:         2,
		RetryBackoff:    500 * time.Millisecond,
	}
}

// Provider hands out the shared *sqlx.DB.  A zero Provider is valid and
// reports Available() == false.
type Provider struct {
	db *sqlx.DB
}

// Open is OpenWithOptions with DefaultOptions.
func Open(ctx context.Context, dsn string) (*Provider, error) {
	return OpenWithOptions(ctx, dsn, DefaultOptions())
}

// OpenWithOptions opens a pool for dsn and pings it, retrying the ping
// opts.Retries times.  An empty dsn or a ping that never succeeds returns
// an error wrapping ErrUnavailable.
func OpenWithOptions(ctx context.Context, dsn string, opts Options) (*Provider, error) {
	if dsn == "" {
		return nil, fmt.Errorf("%w: no dsn configured", ErrUnavailable)
	}

	db, err := sqlx.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)
	db.SetConnMaxLifetime(opts.ConnMaxLifetime)

	eb := backoff.NewExponentialBackOff()
	if opts.RetryBackoff > 0 {
		eb.InitialInterval = opts.RetryBackoff
	}
	retries := opts.Retries
	if retries < 0 {
		retries = 0
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(retries)), ctx)

	attempt := 0
	ping := func() error {
		attempt++
		err := db.PingContext(ctx)
		if err != nil {
			zap.L().Warn("database ping failed",
				zap.Int("attempt", attempt),
				zap.Error(err))
		}
		return err
	}
	if err := backoff.Retry(ping, policy); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	zap.L().Info("database online", zap.Int("attempts", attempt))
	return &Provider{db: db}, nil
}

// FromDB wraps an already-open handle.
func FromDB(db *sqlx.DB) *Provider { return &Provider{db: db} }

// Unavailable returns a provider with no store behind it.  Every
// repository call made through it fails with ErrUnavailable.
func Unavailable() *Provider { return &Provider{} }

// Available reports whether a store is configured.
func (p *Provider) Available() bool { return p != nil && p.db != nil }

// DB returns the underlying handle, or nil when unavailable.
func (p *Provider) DB() *sqlx.DB {
	if p == nil {
		return nil
	}
	return p.db
}

// Handle returns the handle for op, or ErrUnavailable (already logged).
func (p *Provider) Handle(op string) (*sqlx.DB, error) {
	if !p.Available() {
		p.LogError(ErrUnavailable, op)
		return nil, ErrUnavailable
	}
	return p.db, nil
}

// Ping probes connectivity.
func (p *Provider) Ping(ctx context.Context) error {
	if !p.Available() {
		return ErrUnavailable
	}
	return p.db.PingContext(ctx)
}

// Close releases the pool.  Safe on an unavailable provider.
func (p *Provider) Close() error {
	if !p.Available() {
		return nil
	}
	return p.db.Close()
}
