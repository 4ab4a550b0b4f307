// internal/common/database/postgres.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"probate-resolver/internal/common/config"
)

const (
	defaultOutcomeConns    = 4
	defaultConnMaxLifetime = 30 * time.Minute
	defaultConnMaxIdle     = 2 * time.Minute
)

// PostgresClient wraps the outcome store connection pool.
type PostgresClient struct {
	DB *sql.DB
}

// outcomePool holds the pool limits applied to the outcome store.
type outcomePool struct {
	maxOpen     int
	maxIdle     int
	maxLifetime time.Duration
	maxIdleTime time.Duration
}

func poolFor(cfg config.PostgresConfig) outcomePool {
	p := outcomePool{
		maxOpen:     cfg.MaxConnections,
		maxIdle:     cfg.MaxIdle,
		maxLifetime: millisOr(cfg.ConnMaxLifetimeMs, defaultConnMaxLifetime),
		maxIdleTime: millisOr(cfg.ConnMaxIdleMs, defaultConnMaxIdle),
	}
	if p.maxOpen <= 0 {
		p.maxOpen = defaultOutcomeConns
	}
	// one insert per resolution never needs more idle connections than open ones
	if p.maxIdle <= 0 || p.maxIdle > p.maxOpen {
		p.maxIdle = p.maxOpen
	}
	return p
}

// NewPostgres opens the pool; it does not dial until Ping or first use.
func NewPostgres(cfg config.PostgresConfig) (*PostgresClient, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	p := poolFor(cfg)
	db.SetMaxOpenConns(p.maxOpen)
	db.SetMaxIdleConns(p.maxIdle)
	db.SetConnMaxLifetime(p.maxLifetime)
	db.SetConnMaxIdleTime(p.maxIdleTime)

	return &PostgresClient{DB: db}, nil
}

// Ping tests the database connection
func (c *PostgresClient) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

// Close closes the database connection
func (c *PostgresClient) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
