// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LodgePost Contributors

package auth

import (
	"context"
	"sync"
	"time"
)

// Lockout policy defaults.
const (
	// DefaultLockoutThreshold is the number of failed attempts within the
	// window that locks an (email, ip) pair.
	DefaultLockoutThreshold = 5

	// DefaultLockoutWindow is the sliding inactivity window. Every failure
	// pushes the window expiry forward.
	DefaultLockoutWindow = 15 * time.Minute
)

// LockoutTracker counts failed login attempts per (email, ip) pair.
// Implementations must be safe for concurrent use.
type LockoutTracker interface {
	// RecordFailure increments the counter for the pair and slides the
	// window expiry forward.
	RecordFailure(ctx context.Context, email, ip string) error

	// RecordSuccess clears the counter for the pair.
	RecordSuccess(ctx context.Context, email, ip string) error

	// IsLocked reports whether the pair has reached the failure threshold
	// within the current window.
	IsLocked(ctx context.Context, email, ip string) (bool, error)
}

// lockoutKey builds the tracker key. Email is lowercased so the counter
// matches the case-insensitive owner lookup.
func lockoutKey(email, ip string) string {
	return normalizeEmail(email) + "|" + ip
}

type lockoutEntry struct {
	count     int
	expiresAt time.Time
}

// MemoryLockoutTracker is the in-process LockoutTracker for single-instance
// deployments. Counters live in a map guarded by a mutex; a janitor loop
// drops expired entries.
type MemoryLockoutTracker struct {
	mu        sync.Mutex
	entries   map[string]lockoutEntry
	threshold int
	window    time.Duration
	now       func() time.Time
}

// NewMemoryLockoutTracker creates a tracker with the given threshold and
// window; zero values fall back to the defaults.
func NewMemoryLockoutTracker(threshold int, window time.Duration) *MemoryLockoutTracker {
	if threshold <= 0 {
		threshold = DefaultLockoutThreshold
	}
	if window <= 0 {
		window = DefaultLockoutWindow
	}
	return &MemoryLockoutTracker{
		entries:   make(map[string]lockoutEntry),
		threshold: threshold,
		window:    window,
		now:       time.Now,
	}
}

// RecordFailure increments the counter and slides the window forward.
func (t *MemoryLockoutTracker) RecordFailure(_ context.Context, email, ip string) error {
	key := lockoutKey(email, ip)
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	entry := t.entries[key]
	if now.After(entry.expiresAt) {
		entry.count = 0
	}
	entry.count++
	entry.expiresAt = now.Add(t.window)
	t.entries[key] = entry
	return nil
}

// RecordSuccess clears the counter for the pair.
func (t *MemoryLockoutTracker) RecordSuccess(_ context.Context, email, ip string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, lockoutKey(email, ip))
	return nil
}

// IsLocked reports whether the pair has reached the failure threshold.
func (t *MemoryLockoutTracker) IsLocked(_ context.Context, email, ip string) (bool, error) {
	key := lockoutKey(email, ip)
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.entries[key]
	if !ok || now.After(entry.expiresAt) {
		return false, nil
	}
	return entry.count >= t.threshold, nil
}

// RunJanitor sweeps expired entries every interval until ctx is cancelled.
func (t *MemoryLockoutTracker) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.sweep()
		}
	}
}

func (t *MemoryLockoutTracker) sweep() {
	now := t.now()
	t.mu.Lock()
	defer t.mu.Unlock()
	for key, entry := range t.entries {
		if now.After(entry.expiresAt) {
			delete(t.entries, key)
		}
	}
}
