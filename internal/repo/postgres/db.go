package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrPoolTimeout is returned when no connection could be acquired within the
// configured acquire timeout.
var ErrPoolTimeout = errors.New("postgres pool acquire timeout")

type Config struct {
	DSN             string
	MaxConns        int32
	MaxConnIdleTime time.Duration
	ConnectTimeout  time.Duration
	AcquireTimeout  time.Duration
}

// DB owns the connection pool. Repositories borrow connections through
// WithConn and never hold them past the callback.
type DB struct {
	pool           *pgxpool.Pool
	acquireTimeout time.Duration
}

func NewDB(ctx context.Context, cfg Config) (*DB, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	poolCfg.MinConns = 0
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	if cfg.ConnectTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}

	return &DB{pool: pool, acquireTimeout: cfg.AcquireTimeout}, nil
}

// WithConn acquires a connection, runs fn and releases the connection on every
// exit path. Acquisition is bounded by the acquire timeout; the callback
// itself runs on the caller's context.
func (db *DB) WithConn(ctx context.Context, fn func(context.Context, *pgxpool.Conn) error) error {
	if db == nil || db.pool == nil {
		return errors.New("postgres pool is nil")
	}

	acquireCtx := ctx
	if db.acquireTimeout > 0 {
		var cancel context.CancelFunc
		acquireCtx, cancel = context.WithTimeout(ctx, db.acquireTimeout)
		defer cancel()
	}

	conn, err := db.pool.Acquire(acquireCtx)
	if err != nil {
		if ctx.Err() == nil && errors.Is(acquireCtx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w after %s", ErrPoolTimeout, db.acquireTimeout)
		}
		return fmt.Errorf("acquire postgres connection: %w", err)
	}
	defer conn.Release()

	return fn(ctx, conn)
}

func (db *DB) Ping(ctx context.Context) error {
	return db.WithConn(ctx, func(ctx context.Context, conn *pgxpool.Conn) error {
		return conn.Ping(ctx)
	})
}

func (db *DB) Close() {
	if db == nil || db.pool == nil {
		return
	}
	db.pool.Close()
}
