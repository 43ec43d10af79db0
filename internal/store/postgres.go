// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LodgePost Contributors

// Package store manages the PostgreSQL connection pool and schema migrations.
package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

const (
	// connectPingRetries bounds how many times Connect re-pings a database
	// that is still starting up before giving up.
	connectPingRetries = 5

	connectPingBackoff = 500 * time.Millisecond
)

// Connect opens a pgx connection pool against databaseURL and verifies it
// with a ping. The ping is retried with fibonacci backoff so callers can
// start concurrently with the database (compose setups, test containers).
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, oops.Code("STORE_CONFIG_INVALID").With("operation", "parse database url").Wrap(err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, oops.Code("STORE_CONNECT_FAILED").With("operation", "create pool").Wrap(err)
	}

	backoff := retry.WithMaxRetries(connectPingRetries, retry.NewFibonacci(connectPingBackoff))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := pool.Ping(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return nil, oops.Code("STORE_PING_FAILED").With("operation", "ping database").Wrap(err)
	}

	return pool, nil
}
