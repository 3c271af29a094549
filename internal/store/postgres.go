// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package store provides PostgreSQL connectivity and schema migrations.
package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// Default connection retry bounds.
const (
	DefaultConnectTimeout = 30 * time.Second
	connectBaseDelay      = 250 * time.Millisecond
	connectMaxDelay       = 5 * time.Second
)

// ConnectOptions configures Connect.
type ConnectOptions struct {
	// URL is a PostgreSQL connection string.
	URL string
	// Timeout bounds the total time spent waiting for the first successful
	// ping. Zero selects DefaultConnectTimeout.
	Timeout time.Duration
	Logger  *slog.Logger
}

// Connect opens a pool and pings it with capped exponential backoff until it
// answers or the timeout elapses. The pool is closed on failure.
func Connect(ctx context.Context, opts ConnectOptions) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(opts.URL)
	if err != nil {
		return nil, oops.Code("DB_CONFIG_INVALID").With("operation", "parse database url").Wrap(err)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "create pool").Wrap(err)
	}

	backoff := retry.NewExponential(connectBaseDelay)
	backoff = retry.WithCappedDuration(connectMaxDelay, backoff)
	backoff = retry.WithMaxDuration(timeout, backoff)

	attempt := 0
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if pingErr := pool.Ping(ctx); pingErr != nil {
			logger.WarnContext(ctx, "database not ready, retrying",
				"attempt", attempt, "host", cfg.ConnConfig.Host, "error", pingErr)
			return retry.RetryableError(pingErr)
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return nil, oops.Code("DB_CONNECT_FAILED").
			With("operation", "ping database").
			With("attempts", attempt).
			With("host", cfg.ConnConfig.Host).
			Wrap(err)
	}

	logger.InfoContext(ctx, "database connected", "host", cfg.ConnConfig.Host, "attempts", attempt)
	return pool, nil
}
