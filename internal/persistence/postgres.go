package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/spec-kit/donor-auth/internal/config"
	"github.com/spec-kit/donor-auth/internal/repository"
)

// ErrPrincipalStoreOffline is returned by Ping when no DSN was configured.
var ErrPrincipalStoreOffline = errors.New("principal store: postgres not configured")

// PrincipalStore owns the pgx pool backing the principals table. A store opened
// without a DSN has no pool and hands out the in-memory repository instead.
type PrincipalStore struct {
	Pool *pgxpool.Pool
}

// OpenPrincipalStore connects to the principals database named by cfg.DSN.
// An empty DSN is not an error.
func OpenPrincipalStore(ctx context.Context, cfg config.PostgresConfig, logger *zap.Logger) (*PrincipalStore, error) {
	if cfg.DSN == "" {
		logger.Warn("POSTGRES_DSN not provided; principals will be kept in memory")
		return &PrincipalStore{}, nil
	}

	poolCfg, err := principalPoolConfig(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("principal store: open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("principal store: ping: %w", err)
	}

	logger.Info("principal store connected",
		zap.Int32("max_conns", poolCfg.MaxConns),
		zap.Int32("min_conns", poolCfg.MinConns),
	)
	return &PrincipalStore{Pool: pool}, nil
}

// principalPoolConfig parses the DSN and applies the non-zero pool limits.
func principalPoolConfig(cfg config.PostgresConfig) (*pgxpool.Config, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("principal store: parse dsn: %w", err)
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
	return poolCfg, nil
}

// Principals returns the repository for this store: Postgres when a pool is
// open, otherwise a fresh in-memory repository.
func (s *PrincipalStore) Principals() repository.PrincipalRepository {
	if !s.Configured() {
		return repository.NewMemoryPrincipalRepository()
	}
	return repository.NewPrincipalRepository(s.Pool)
}

// PoolHandle exposes the pool for migrations. Nil when unconfigured.
func (s *PrincipalStore) PoolHandle() *pgxpool.Pool {
	if s == nil {
		return nil
	}
	return s.Pool
}

func (s *PrincipalStore) Configured() bool {
	return s != nil && s.Pool != nil
}

// Ping backs the postgres entry of /health.
func (s *PrincipalStore) Ping(ctx context.Context) error {
	if !s.Configured() {
		return ErrPrincipalStoreOffline
	}
	return s.Pool.Ping(ctx)
}

func (s *PrincipalStore) Close() {
	if s.Configured() {
		s.Pool.Close()
	}
}
