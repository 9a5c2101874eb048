package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// PoolOptions tunes the pool. Zero values keep the pgx defaults.
type PoolOptions struct {
	// AppName is reported to Postgres as application_name, e.g. "seminar-api".
	AppName  string
	MaxConns int32
	// ConnectAttempts bounds the startup ping; the database may still be starting.
	ConnectAttempts int
	RetryDelay      time.Duration
}

func poolConfig(dsn string, opts PoolOptions) (*pgxpool.Config, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pgx config: %w", err)
	}
	if opts.MaxConns > 0 {
		config.MaxConns = opts.MaxConns
	}
	if opts.AppName != "" {
		config.ConnConfig.RuntimeParams["application_name"] = opts.AppName
	}
	return config, nil
}

// NewPostgresPool creates a pgx pool and pings until the database answers or attempts run out.
func NewPostgresPool(ctx context.Context, dsn string, opts PoolOptions, logger *zap.Logger) (*pgxpool.Pool, error) {
	config, err := poolConfig(dsn, opts)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	attempts := max(opts.ConnectAttempts, 1)
	delay := opts.RetryDelay
	if delay <= 0 {
		delay = time.Second
	}
	for attempt := 1; ; attempt++ {
		err = pool.Ping(ctx)
		if err == nil {
			break
		}
		if attempt >= attempts {
			pool.Close()
			return nil, fmt.Errorf("ping database after %d attempts: %w", attempt, err)
		}
		logger.Warn("database not ready", zap.Int("attempt", attempt), zap.Duration("retry_in", delay), zap.Error(err))
		select {
		case <-ctx.Done():
			pool.Close()
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	logger.Info("PostgreSQL connection pool established",
		zap.String("app", opts.AppName),
		zap.Int32("max_conns", config.MaxConns),
	)
	return pool, nil
}
