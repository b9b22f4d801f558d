package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/tricktake/tricktake-server-go/internal/config"
)

// DB wraps the pgx connection pool.
type DB struct {
	Pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewDB connects to PostgreSQL and verifies the connection.
func NewDB(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*DB, error) {
	pool, err := pgxpool.New(ctx, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &DB{Pool: pool, logger: logger}, nil
}

// Close releases the connection pool.
func (db *DB) Close() {
	db.Pool.Close()
}
