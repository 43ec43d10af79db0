// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LodgePost Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/lodgepost/lodgepost/internal/auth"
)

// SessionRepository implements auth.SessionRepository using PostgreSQL.
type SessionRepository struct {
	pool poolIface
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool poolIface) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// Create stores a new session.
func (r *SessionRepository) Create(ctx context.Context, session *auth.OwnerSession) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO owner_sessions (id, owner_id, refresh_token_hash, user_agent, ip_address, issued_at, expires_at, rotated_at, revoked_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		session.ID.String(),
		session.OwnerID.String(),
		session.RefreshTokenHash,
		session.UserAgent,
		session.IPAddress,
		session.IssuedAt,
		session.ExpiresAt,
		session.RotatedAt,
		session.RevokedAt,
	)
	if err != nil {
		return oops.Code("SESSION_CREATE_FAILED").
			With("operation", "insert owner_session").
			With("owner_id", session.OwnerID.String()).
			Wrap(err)
	}
	return nil
}

// GetByID retrieves a session by its ID.
func (r *SessionRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.OwnerSession, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, owner_id, refresh_token_hash, user_agent, ip_address, issued_at, expires_at, rotated_at, revoked_at
		FROM owner_sessions
		WHERE id = $1
	`, id.String())

	session, err := r.scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("SESSION_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("SESSION_GET_BY_ID_FAILED").
			With("operation", "get session by id").
			With("id", id.String()).
			Wrap(err)
	}
	return session, nil
}

// GetByRefreshTokenHash retrieves a session by its current refresh token hash.
func (r *SessionRepository) GetByRefreshTokenHash(ctx context.Context, hash string) (*auth.OwnerSession, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, owner_id, refresh_token_hash, user_agent, ip_address, issued_at, expires_at, rotated_at, revoked_at
		FROM owner_sessions
		WHERE refresh_token_hash = $1
	`, hash)

	session, err := r.scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("SESSION_NOT_FOUND").
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("SESSION_GET_BY_HASH_FAILED").
			With("operation", "get session by refresh hash").
			Wrap(err)
	}
	return session, nil
}

// GetByOwner retrieves all sessions for an owner, newest first.
func (r *SessionRepository) GetByOwner(ctx context.Context, ownerID ulid.ULID) ([]*auth.OwnerSession, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, owner_id, refresh_token_hash, user_agent, ip_address, issued_at, expires_at, rotated_at, revoked_at
		FROM owner_sessions
		WHERE owner_id = $1
		ORDER BY issued_at DESC
	`, ownerID.String())
	if err != nil {
		return nil, oops.Code("SESSION_GET_BY_OWNER_FAILED").
			With("operation", "query sessions by owner").
			With("owner_id", ownerID.String()).
			Wrap(err)
	}
	defer rows.Close()

	var sessions []*auth.OwnerSession
	for rows.Next() {
		session, err := r.scanSession(rows)
		if err != nil {
			return nil, oops.Code("SESSION_GET_BY_OWNER_FAILED").
				With("operation", "scan session row").
				With("owner_id", ownerID.String()).
				Wrap(err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("SESSION_GET_BY_OWNER_FAILED").
			With("operation", "iterate session rows").
			With("owner_id", ownerID.String()).
			Wrap(err)
	}
	return sessions, nil
}

// RotateRefreshHash swaps oldHash for newHash iff the session still carries
// oldHash and is not revoked. The WHERE clause is the compare-and-set: under
// concurrent rotation exactly one UPDATE matches and the rest miss.
func (r *SessionRepository) RotateRefreshHash(ctx context.Context, id ulid.ULID, oldHash, newHash string, rotatedAt time.Time) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE owner_sessions
		SET refresh_token_hash = $3, rotated_at = $4
		WHERE id = $1 AND refresh_token_hash = $2 AND revoked_at IS NULL
	`, id.String(), oldHash, newHash, rotatedAt)
	if err != nil {
		return oops.Code("SESSION_ROTATE_FAILED").
			With("operation", "rotate refresh hash").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("SESSION_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// Revoke marks a session revoked. An already-revoked session keeps its
// original revocation time.
func (r *SessionRepository) Revoke(ctx context.Context, id ulid.ULID, revokedAt time.Time) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE owner_sessions
		SET revoked_at = $2
		WHERE id = $1 AND revoked_at IS NULL
	`, id.String(), revokedAt)
	if err != nil {
		return oops.Code("SESSION_REVOKE_FAILED").
			With("operation", "revoke session").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("SESSION_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// RevokeByOwner revokes all active sessions for an owner.
func (r *SessionRepository) RevokeByOwner(ctx context.Context, ownerID ulid.ULID, revokedAt time.Time) (int64, error) {
	result, err := r.pool.Exec(ctx, `
		UPDATE owner_sessions
		SET revoked_at = $2
		WHERE owner_id = $1 AND revoked_at IS NULL
	`, ownerID.String(), revokedAt)
	if err != nil {
		return 0, oops.Code("SESSION_REVOKE_FAILED").
			With("operation", "revoke sessions by owner").
			With("owner_id", ownerID.String()).
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

// DeleteExpired removes all expired sessions and returns the count deleted.
func (r *SessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.pool.Exec(ctx, `
		DELETE FROM owner_sessions WHERE expires_at < NOW()
	`)
	if err != nil {
		return 0, oops.Code("SESSION_DELETE_EXPIRED_FAILED").
			With("operation", "delete expired sessions").
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

// scanSession scans a single row into an OwnerSession.
// Callers are responsible for handling pgx.ErrNoRows.
func (r *SessionRepository) scanSession(row pgx.Row) (*auth.OwnerSession, error) {
	var (
		idStr      string
		ownerIDStr string
		tokenHash  string
		userAgent  string
		ipAddress  string
		issuedAt   time.Time
		expiresAt  time.Time
		rotatedAt  *time.Time
		revokedAt  *time.Time
	)

	err := row.Scan(
		&idStr,
		&ownerIDStr,
		&tokenHash,
		&userAgent,
		&ipAddress,
		&issuedAt,
		&expiresAt,
		&rotatedAt,
		&revokedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // Callers wrap with context-specific info
		}
		return nil, oops.Code("SESSION_SCAN_FAILED").
			With("operation", "scan session").
			Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("SESSION_INVALID_ID").
			With("operation", "parse session id").
			With("id", idStr).
			Wrap(err)
	}

	ownerID, err := ulid.Parse(ownerIDStr)
	if err != nil {
		return nil, oops.Code("SESSION_INVALID_OWNER_ID").
			With("operation", "parse owner id").
			With("owner_id", ownerIDStr).
			Wrap(err)
	}

	return &auth.OwnerSession{
		ID:               id,
		OwnerID:          ownerID,
		RefreshTokenHash: tokenHash,
		UserAgent:        userAgent,
		IPAddress:        ipAddress,
		IssuedAt:         issuedAt,
		ExpiresAt:        expiresAt,
		RotatedAt:        rotatedAt,
		RevokedAt:        revokedAt,
	}, nil
}

// Compile-time interface check.
var _ auth.SessionRepository = (*SessionRepository)(nil)
