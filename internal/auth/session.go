// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LodgePost Contributors

package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Refresh token configuration.
const (
	RefreshTokenBytes  = 32                  // 32 bytes = 64 hex chars
	RefreshTokenExpiry = 30 * 24 * time.Hour // 30 day session lifetime
)

// OwnerSession represents one authenticated device or browser. The session
// stores only the SHA256 hash of the current refresh token; rotation replaces
// the hash in place so at most one refresh token per session is ever live.
type OwnerSession struct {
	ID               ulid.ULID
	OwnerID          ulid.ULID
	RefreshTokenHash string
	UserAgent        string
	IPAddress        string
	IssuedAt         time.Time
	ExpiresAt        time.Time
	RotatedAt        *time.Time
	RevokedAt        *time.Time
}

// NewOwnerSession creates a validated OwnerSession instance.
// UserAgent and IPAddress are optional and may be empty.
func NewOwnerSession(ownerID ulid.ULID, refreshTokenHash, userAgent, ipAddress string, expiresAt time.Time) (*OwnerSession, error) {
	if ownerID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("SESSION_INVALID_OWNER").Errorf("owner ID cannot be zero")
	}
	if refreshTokenHash == "" {
		return nil, oops.Code("SESSION_INVALID_HASH").Errorf("refresh token hash cannot be empty")
	}
	if expiresAt.IsZero() {
		return nil, oops.Code("SESSION_INVALID_EXPIRY").Errorf("expiry time cannot be zero")
	}

	return &OwnerSession{
		ID:               ulid.Make(),
		OwnerID:          ownerID,
		RefreshTokenHash: refreshTokenHash,
		UserAgent:        userAgent,
		IPAddress:        ipAddress,
		IssuedAt:         time.Now(),
		ExpiresAt:        expiresAt,
	}, nil
}

// IsExpired returns true if the session has expired.
func (s *OwnerSession) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// IsExpiredAt returns true if the session would be expired at the given time.
// Useful for testing with deterministic time values.
func (s *OwnerSession) IsExpiredAt(t time.Time) bool {
	return t.After(s.ExpiresAt)
}

// IsRevoked returns true if the session has been revoked.
func (s *OwnerSession) IsRevoked() bool {
	return s.RevokedAt != nil
}

// IsActive returns true if the session is neither revoked nor expired.
func (s *OwnerSession) IsActive() bool {
	return !s.IsRevoked() && !s.IsExpired()
}

// GenerateRefreshToken creates a secure random refresh token and its hash.
// Returns (plaintext_token, sha256_hash, error).
// The plaintext token is sent to the client exactly once; only the hash is
// ever stored.
func GenerateRefreshToken() (token, hash string, err error) {
	tokenBytes := make([]byte, RefreshTokenBytes)
	if _, err = rand.Read(tokenBytes); err != nil {
		return "", "", oops.Code("SESSION_TOKEN_GENERATE_FAILED").
			With("operation", "crypto/rand.Read").
			With("requested_bytes", RefreshTokenBytes).
			Wrap(err)
	}

	token = hex.EncodeToString(tokenBytes)
	hash = HashRefreshToken(token)

	return token, hash, nil
}

// HashRefreshToken computes the SHA256 hash of a refresh token. The hash is
// the database lookup key: deterministic, non-invertible, and never the raw
// token.
func HashRefreshToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// SessionRepository manages owner session persistence.
type SessionRepository interface {
	// Create stores a new session.
	Create(ctx context.Context, session *OwnerSession) error

	// GetByID retrieves a session by its ID.
	GetByID(ctx context.Context, id ulid.ULID) (*OwnerSession, error)

	// GetByRefreshTokenHash retrieves a session by its current refresh
	// token hash. Superseded hashes match nothing.
	GetByRefreshTokenHash(ctx context.Context, hash string) (*OwnerSession, error)

	// GetByOwner retrieves all sessions for an owner, newest first.
	GetByOwner(ctx context.Context, ownerID ulid.ULID) ([]*OwnerSession, error)

	// RotateRefreshHash swaps oldHash for newHash on the session iff the
	// session still carries oldHash and is not revoked. Returns ErrNotFound
	// when the compare-and-set misses, which a concurrent rotation winner
	// or a revocation will cause.
	RotateRefreshHash(ctx context.Context, id ulid.ULID, oldHash, newHash string, rotatedAt time.Time) error

	// Revoke marks a session revoked. Revoking an already-revoked session
	// is a no-op.
	Revoke(ctx context.Context, id ulid.ULID, revokedAt time.Time) error

	// RevokeByOwner revokes all active sessions for an owner and returns
	// the count of sessions newly revoked.
	RevokeByOwner(ctx context.Context, ownerID ulid.ULID, revokedAt time.Time) (int64, error)

	// DeleteExpired removes all expired sessions and returns the count
	// of deleted records.
	DeleteExpired(ctx context.Context) (int64, error)
}
