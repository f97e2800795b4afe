package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	// ServerConns sizes the pool of a long-running server: one snapshot
	// write per refresh plus a few concurrent snapshot reads.
	ServerConns int32 = 8
	// CommandConns sizes the pool of a one-shot CLI command
	CommandConns int32 = 2
)

// Postgres holds the snapshot database pool
type Postgres struct {
	pool *pgxpool.Pool
}

// Open connects to databaseURL with at most maxConns connections and
// applies pending migrations. A failed migration closes the pool.
func Open(ctx context.Context, databaseURL string, maxConns int32) (*Postgres, error) {
	p, err := NewPostgres(ctx, databaseURL, maxConns)
	if err != nil {
		return nil, err
	}
	if err := RunMigrations(ctx, p.pool); err != nil {
		p.pool.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return p, nil
}

// NewPostgres connects without migrating
func NewPostgres(ctx context.Context, databaseURL string, maxConns int32) (*Postgres, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	if maxConns > 0 {
		config.MaxConns = maxConns
	}
	// Refreshes are minutes apart; idle connections are not worth keeping.
	config.MinConns = 0
	config.MaxConnIdleTime = 5 * time.Minute
	config.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(connectCtx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	slog.Debug("Connected to database", "max_conns", config.MaxConns)
	return &Postgres{pool: pool}, nil
}

// Pool returns the underlying connection pool
func (p *Postgres) Pool() *pgxpool.Pool {
	return p.pool
}

// Health pings the database
func (p *Postgres) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := p.pool.Ping(ctx); err != nil {
		return fmt.Errorf("database unreachable: %w", err)
	}
	return nil
}

// Close closes the pool
func (p *Postgres) Close() {
	p.pool.Close()
}
