package persistence

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/spec-kit/user-service/internal/config"
)

// ErrNotConfigured is returned when a store is used without a connection.
var ErrNotConfigured = errors.New("postgres not configured")

// Postgres wraps access to a pgx connection pool.
type Postgres struct {
	Pool         *pgxpool.Pool
	QueryTimeout time.Duration
}

// DatabaseStats is the snapshot reported by the status endpoint.
type DatabaseStats struct {
	Version           string
	MaxConnections    int
	ActiveConnections int
}

// NewPostgres establishes a connection pool when DSN is provided.
func NewPostgres(ctx context.Context, cfg config.PostgresConfig, logger *zap.Logger) (*Postgres, error) {
	if cfg.DSN == "" {
		logger.Warn("POSTGRES_DSN not provided; skipping database connection")
		return &Postgres{Pool: nil}, nil
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.ConnMaxIdleSec > 0 {
		poolCfg.MaxConnIdleTime = time.Duration(cfg.ConnMaxIdleSec) * time.Second
	}
	if cfg.ConnMaxLifeSec > 0 {
		poolCfg.MaxConnLifetime = time.Duration(cfg.ConnMaxLifeSec) * time.Second
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	logger.Info("connected to postgres")
	return &Postgres{Pool: pool, QueryTimeout: cfg.QueryTimeout()}, nil
}

// Close releases pool resources.
func (p *Postgres) Close() {
	if p != nil && p.Pool != nil {
		p.Pool.Close()
	}
}

// PoolHandle returns the underlying pgx pool.
func (p *Postgres) PoolHandle() *pgxpool.Pool {
	if p == nil {
		return nil
	}
	return p.Pool
}

// WithTimeout bounds ctx by the configured query timeout.
func (p *Postgres) WithTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if p == nil || p.QueryTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, p.QueryTimeout)
}

// Ping verifies database connectivity.
func (p *Postgres) Ping(ctx context.Context) error {
	if p == nil || p.Pool == nil {
		return ErrNotConfigured
	}
	return p.Pool.Ping(ctx)
}

// Stats reads server version and connection counters.
func (p *Postgres) Stats(ctx context.Context) (DatabaseStats, error) {
	if p == nil || p.Pool == nil {
		return DatabaseStats{}, ErrNotConfigured
	}
	ctx, cancel := p.WithTimeout(ctx)
	defer cancel()

	var stats DatabaseStats
	if err := p.Pool.QueryRow(ctx, `SELECT version()`).Scan(&stats.Version); err != nil {
		return DatabaseStats{}, fmt.Errorf("query version: %w", err)
	}

	var maxConns string
	if err := p.Pool.QueryRow(ctx, `SHOW max_connections`).Scan(&maxConns); err != nil {
		return DatabaseStats{}, fmt.Errorf("query max_connections: %w", err)
	}
	parsed, err := strconv.Atoi(maxConns)
	if err != nil {
		return DatabaseStats{}, fmt.Errorf("parse max_connections %q: %w", maxConns, err)
	}
	stats.MaxConnections = parsed

	if err := p.Pool.QueryRow(ctx, `SELECT count(*) FROM pg_stat_activity`).Scan(&stats.ActiveConnections); err != nil {
		return DatabaseStats{}, fmt.Errorf("query pg_stat_activity: %w", err)
	}
	return stats, nil
}
