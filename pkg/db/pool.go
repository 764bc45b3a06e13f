// Package db mirrors the intents directory into Postgres: pgx pooling,
// versioned migrations and the intent_providers repository.
package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

const logPrefix = "db:pool"

// DefaultMaxConns bounds the pool when NewPoolParams.MaxConns is zero. The
// mirror only writes on registration, so a small pool suffices.
const DefaultMaxConns int32 = 4

// NewPoolParams holds parameters for NewPool.
type NewPoolParams struct {
	DatabaseURL string
	MaxConns    int32
}

func poolConfig(params NewPoolParams) (*pgxpool.Config, error) {
	config, err := pgxpool.ParseConfig(params.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to parse database URL: %w", logPrefix, err)
	}
	config.MaxConns = params.MaxConns
	if config.MaxConns <= 0 {
		config.MaxConns = DefaultMaxConns
	}
	config.MinConns = 0
	return config, nil
}

// NewPool creates a pgx connection pool and verifies connectivity.
func NewPool(ctx context.Context, params NewPoolParams) (*pgxpool.Pool, error) {
	slog.Info(fmt.Sprintf("%s - Connecting to database", logPrefix))

	config, err := poolConfig(params)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to create pool: %w", logPrefix, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s - failed to ping database: %w", logPrefix, err)
	}

	slog.Info(fmt.Sprintf("%s - Database connection established (max %d conns)", logPrefix, config.MaxConns))
	return pool, nil
}
