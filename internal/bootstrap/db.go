package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
)

type DBOptions struct {
	DSN       string
	MaxConns  int
	ConnectTO time.Duration
	PingTO    time.Duration
}

func (o *DBOptions) defaults() error {
	if o.DSN == "" {
		return fmt.Errorf("DB_DSN is not set")
	}
	if o.ConnectTO == 0 {
		o.ConnectTO = 5 * time.Second
	}
	if o.PingTO == 0 {
		o.PingTO = 2 * time.Second
	}
	if o.MaxConns <= 0 {
		o.MaxConns = 10
	}
	return nil
}

// OpenDB opens the pgx pool used for build history and health checks.
func OpenDB(ctx context.Context, opt DBOptions) (*pgxpool.Pool, error) {
	if err := opt.defaults(); err != nil {
		return nil, err
	}

	cfg, err := pgxpool.ParseConfig(opt.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.MaxConns = int32(opt.MaxConns)
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.HealthCheckPeriod = 30 * time.Second

	cctx, cancel := context.WithTimeout(ctx, opt.ConnectTO)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(cctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}

	pctx, pcancel := context.WithTimeout(ctx, opt.PingTO)
	defer pcancel()

	if err := pool.Ping(pctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	return pool, nil
}

// OpenSQL opens a database/sql handle on the lib/pq driver for the
// project store.
func OpenSQL(ctx context.Context, opt DBOptions) (*sql.DB, error) {
	if err := opt.defaults(); err != nil {
		return nil, err
	}

	db, err := sql.Open("postgres", opt.DSN)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	db.SetMaxOpenConns(opt.MaxConns)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pctx, cancel := context.WithTimeout(ctx, opt.PingTO)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}
