package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"session-vwap/internal/backtest"
	"session-vwap/internal/config"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

// ResultStore persists analysis runs and their session results.
type ResultStore interface {
	SaveRun(ctx context.Context, run Run, results []backtest.SessionResult) error
	ListRecentRuns(ctx context.Context, limit int) ([]Run, error)
	ListRecentResults(ctx context.Context, limit int) ([]ResultRecord, error)
	Close()
}

// Open returns the store selected by cfg.Driver, or nil when no DSN is set.
// The schema is created if missing.
func Open(ctx context.Context, cfg config.DatabaseConfig) (ResultStore, error) {
	if cfg.DSN == "" {
		return nil, nil
	}

	switch cfg.Driver {
	case "sqlite":
		store, err := OpenSQLite(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "postgres", "":
		pool, err := NewPool(ctx, cfg)
		if err != nil {
			return nil, err
		}
		store := NewStore(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			store.Close()
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// NewPool configures a PostgreSQL connection pool from runtime settings.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse database dsn: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}

	return pool, nil
}
