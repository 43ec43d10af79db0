// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LodgePost Contributors

// Package redis implements the auth lockout tracker on Redis so failure
// counters are shared across instances.
package redis

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/lodgepost/lodgepost/internal/auth"
)

const keyPrefix = "lockout:"

// LockoutTracker counts failed login attempts in Redis. Counters use
// INCR with a sliding EXPIRE, so every failure pushes the window forward.
type LockoutTracker struct {
	client    *redis.Client
	threshold int
	window    time.Duration
}

// NewLockoutTracker creates a tracker backed by client; zero threshold or
// window fall back to the defaults.
func NewLockoutTracker(client *redis.Client, threshold int, window time.Duration) *LockoutTracker {
	if threshold <= 0 {
		threshold = auth.DefaultLockoutThreshold
	}
	if window <= 0 {
		window = auth.DefaultLockoutWindow
	}
	return &LockoutTracker{client: client, threshold: threshold, window: window}
}

// RecordFailure increments the counter for the pair and slides the window
// expiry forward.
func (t *LockoutTracker) RecordFailure(ctx context.Context, email, ip string) error {
	key := t.key(email, ip)
	if _, err := t.client.Incr(ctx, key).Result(); err != nil {
		return oops.Code("LOCKOUT_BACKEND_FAILED").
			With("operation", "increment failure counter").
			With("cause", err.Error()).
			Wrap(auth.ErrUnavailable)
	}
	if err := t.client.Expire(ctx, key, t.window).Err(); err != nil {
		return oops.Code("LOCKOUT_BACKEND_FAILED").
			With("operation", "set counter expiry").
			With("cause", err.Error()).
			Wrap(auth.ErrUnavailable)
	}
	return nil
}

// RecordSuccess clears the counter for the pair.
func (t *LockoutTracker) RecordSuccess(ctx context.Context, email, ip string) error {
	if err := t.client.Del(ctx, t.key(email, ip)).Err(); err != nil {
		return oops.Code("LOCKOUT_BACKEND_FAILED").
			With("operation", "clear failure counter").
			With("cause", err.Error()).
			Wrap(auth.ErrUnavailable)
	}
	return nil
}

// IsLocked reports whether the pair has reached the failure threshold
// within the current window.
func (t *LockoutTracker) IsLocked(ctx context.Context, email, ip string) (bool, error) {
	val, err := t.client.Get(ctx, t.key(email, ip)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, oops.Code("LOCKOUT_BACKEND_FAILED").
			With("operation", "read failure counter").
			With("cause", err.Error()).
			Wrap(auth.ErrUnavailable)
	}

	count, err := strconv.Atoi(val)
	if err != nil {
		return false, oops.Code("LOCKOUT_COUNTER_CORRUPT").
			With("operation", "parse failure counter").
			Wrap(err)
	}
	return count >= t.threshold, nil
}

// key builds the Redis key. Email is lowercased so the counter matches the
// case-insensitive owner lookup.
func (t *LockoutTracker) key(email, ip string) string {
	return keyPrefix + strings.ToLower(strings.TrimSpace(email)) + "|" + ip
}

// Compile-time interface check.
var _ auth.LockoutTracker = (*LockoutTracker)(nil)
