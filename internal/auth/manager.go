// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LodgePost Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// SessionManager coordinates session lifecycle over a SessionRepository:
// creation, refresh rotation, revocation, and expiry reaping.
type SessionManager struct {
	sessions SessionRepository
	ttl      time.Duration
	logger   *slog.Logger
}

// NewSessionManager creates a SessionManager. ttl is the refresh session
// lifetime; zero falls back to RefreshTokenExpiry.
func NewSessionManager(sessions SessionRepository, ttl time.Duration, logger *slog.Logger) (*SessionManager, error) {
	if sessions == nil {
		return nil, oops.Code("SESSION_MANAGER_INVALID").Errorf("session repository is required")
	}
	if ttl <= 0 {
		ttl = RefreshTokenExpiry
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionManager{sessions: sessions, ttl: ttl, logger: logger}, nil
}

// TTL returns the configured session lifetime.
func (m *SessionManager) TTL() time.Duration {
	return m.ttl
}

// Create opens a new session for the owner carrying the given refresh hash.
func (m *SessionManager) Create(ctx context.Context, ownerID ulid.ULID, refreshHash, userAgent, ip string) (*OwnerSession, error) {
	session, err := NewOwnerSession(ownerID, refreshHash, userAgent, ip, time.Now().Add(m.ttl))
	if err != nil {
		return nil, err
	}
	if err := m.sessions.Create(ctx, session); err != nil {
		return nil, oops.Code("SESSION_CREATE_FAILED").
			With("owner_id", ownerID.String()).
			Wrap(err)
	}
	return session, nil
}

// Rotate atomically replaces the session's refresh hash. When a concurrent
// rotation or a revocation wins the race, the compare-and-set misses and the
// caller gets ErrRefreshTokenRevoked.
func (m *SessionManager) Rotate(ctx context.Context, session *OwnerSession, newHash string) error {
	now := time.Now()
	err := m.sessions.RotateRefreshHash(ctx, session.ID, session.RefreshTokenHash, newHash, now)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code("AUTH_REFRESH_REVOKED").
				With("session_id", session.ID.String()).
				Wrap(ErrRefreshTokenRevoked)
		}
		return oops.Code("SESSION_ROTATE_FAILED").
			With("session_id", session.ID.String()).
			Wrap(err)
	}
	session.RefreshTokenHash = newHash
	session.RotatedAt = &now
	return nil
}

// Revoke marks the session revoked. Idempotent: revoking a session that is
// already revoked or gone succeeds.
func (m *SessionManager) Revoke(ctx context.Context, id ulid.ULID) error {
	err := m.sessions.Revoke(ctx, id, time.Now())
	if err != nil && !errors.Is(err, ErrNotFound) {
		return oops.Code("SESSION_REVOKE_FAILED").
			With("session_id", id.String()).
			Wrap(err)
	}
	return nil
}

// RevokeAllForOwner revokes every active session the owner has and returns
// the count revoked.
func (m *SessionManager) RevokeAllForOwner(ctx context.Context, ownerID ulid.ULID) (int64, error) {
	count, err := m.sessions.RevokeByOwner(ctx, ownerID, time.Now())
	if err != nil {
		return 0, oops.Code("SESSION_REVOKE_FAILED").
			With("owner_id", ownerID.String()).
			Wrap(err)
	}
	return count, nil
}

// FindByHash looks up a session by its current refresh token hash.
// Superseded hashes find nothing.
func (m *SessionManager) FindByHash(ctx context.Context, hash string) (*OwnerSession, error) {
	return m.sessions.GetByRefreshTokenHash(ctx, hash)
}

// Get retrieves a session by ID.
func (m *SessionManager) Get(ctx context.Context, id ulid.ULID) (*OwnerSession, error) {
	return m.sessions.GetByID(ctx, id)
}

// ListByOwner retrieves all sessions for an owner, newest first.
func (m *SessionManager) ListByOwner(ctx context.Context, ownerID ulid.ULID) ([]*OwnerSession, error) {
	return m.sessions.GetByOwner(ctx, ownerID)
}

// CleanupExpired deletes expired sessions and returns the count removed.
// Safe to run concurrently; a session deleted twice is deleted once.
func (m *SessionManager) CleanupExpired(ctx context.Context) (int64, error) {
	count, err := m.sessions.DeleteExpired(ctx)
	if err != nil {
		return 0, oops.Code("SESSION_CLEANUP_FAILED").Wrap(err)
	}
	return count, nil
}

// RunReaper deletes expired sessions every interval until ctx is cancelled.
// onReaped, when non-nil, receives the count of each non-empty sweep.
func (m *SessionManager) RunReaper(ctx context.Context, interval time.Duration, onReaped func(int64)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			count, err := m.CleanupExpired(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				m.logger.Warn("session reaper sweep failed", "error", err)
				continue
			}
			if count > 0 {
				m.logger.Info("reaped expired sessions", "count", count)
				if onReaped != nil {
					onReaped(count)
				}
			}
		}
	}
}
