// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LodgePost Contributors

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lodgepost/lodgepost/internal/auth"
)

func testSession(t *testing.T) *auth.OwnerSession {
	t.Helper()
	_, hash, err := auth.GenerateRefreshToken()
	require.NoError(t, err)
	session, err := auth.NewOwnerSession(ulid.Make(), hash, "test-agent", "203.0.113.7",
		time.Now().Add(time.Hour))
	require.NoError(t, err)
	return session
}

func sessionColumns() []string {
	return []string{
		"id", "owner_id", "refresh_token_hash", "user_agent", "ip_address",
		"issued_at", "expires_at", "rotated_at", "revoked_at",
	}
}

func sessionRow(session *auth.OwnerSession) *pgxmock.Rows {
	return pgxmock.NewRows(sessionColumns()).AddRow(
		session.ID.String(), session.OwnerID.String(), session.RefreshTokenHash,
		session.UserAgent, session.IPAddress, session.IssuedAt, session.ExpiresAt,
		session.RotatedAt, session.RevokedAt,
	)
}

func TestSessionRepository_Create(t *testing.T) {
	t.Run("successful insert", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err, "failed to create mock")
		defer mock.Close()

		session := testSession(t)
		mock.ExpectExec(`INSERT INTO owner_sessions`).
			WithArgs(session.ID.String(), session.OwnerID.String(), session.RefreshTokenHash,
				session.UserAgent, session.IPAddress, session.IssuedAt, session.ExpiresAt,
				session.RotatedAt, session.RevokedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		repo := NewSessionRepository(mock)
		require.NoError(t, repo.Create(context.Background(), session))
		assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
	})

	t.Run("database error", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err, "failed to create mock")
		defer mock.Close()

		session := testSession(t)
		mock.ExpectExec(`INSERT INTO owner_sessions`).
			WithArgs(session.ID.String(), session.OwnerID.String(), session.RefreshTokenHash,
				session.UserAgent, session.IPAddress, session.IssuedAt, session.ExpiresAt,
				session.RotatedAt, session.RevokedAt).
			WillReturnError(errors.New("connection refused"))

		repo := NewSessionRepository(mock)
		err = repo.Create(context.Background(), session)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection refused")
		assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
	})
}

func TestSessionRepository_GetByRefreshTokenHash(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err, "failed to create mock")
		defer mock.Close()

		session := testSession(t)
		mock.ExpectQuery(`SELECT .+ FROM owner_sessions\s+WHERE refresh_token_hash = \$1`).
			WithArgs(session.RefreshTokenHash).
			WillReturnRows(sessionRow(session))

		repo := NewSessionRepository(mock)
		got, err := repo.GetByRefreshTokenHash(context.Background(), session.RefreshTokenHash)
		require.NoError(t, err)
		assert.Equal(t, session.ID, got.ID)
		assert.Equal(t, session.OwnerID, got.OwnerID)
		assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
	})

	t.Run("not found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err, "failed to create mock")
		defer mock.Close()

		mock.ExpectQuery(`SELECT .+ FROM owner_sessions`).
			WithArgs("unknown-hash").
			WillReturnRows(pgxmock.NewRows(sessionColumns()))

		repo := NewSessionRepository(mock)
		_, err = repo.GetByRefreshTokenHash(context.Background(), "unknown-hash")
		require.ErrorIs(t, err, auth.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
	})
}

func TestSessionRepository_GetByOwner(t *testing.T) {
	t.Run("returns sessions newest first", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err, "failed to create mock")
		defer mock.Close()

		ownerID := ulid.Make()
		now := time.Now()
		newer := ulid.Make()
		older := ulid.Make()
		rows := pgxmock.NewRows(sessionColumns()).
			AddRow(newer.String(), ownerID.String(), "hash-b", "ua", "ip",
				now, now.Add(time.Hour), (*time.Time)(nil), (*time.Time)(nil)).
			AddRow(older.String(), ownerID.String(), "hash-a", "ua", "ip",
				now.Add(-time.Minute), now.Add(time.Hour), (*time.Time)(nil), (*time.Time)(nil))
		mock.ExpectQuery(`SELECT .+ FROM owner_sessions\s+WHERE owner_id = \$1\s+ORDER BY issued_at DESC`).
			WithArgs(ownerID.String()).
			WillReturnRows(rows)

		repo := NewSessionRepository(mock)
		got, err := repo.GetByOwner(context.Background(), ownerID)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, newer, got[0].ID)
		assert.Equal(t, older, got[1].ID)
		assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
	})

	t.Run("empty result", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err, "failed to create mock")
		defer mock.Close()

		ownerID := ulid.Make()
		mock.ExpectQuery(`SELECT .+ FROM owner_sessions`).
			WithArgs(ownerID.String()).
			WillReturnRows(pgxmock.NewRows(sessionColumns()))

		repo := NewSessionRepository(mock)
		got, err := repo.GetByOwner(context.Background(), ownerID)
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
	})

	t.Run("row iteration error", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err, "failed to create mock")
		defer mock.Close()

		ownerID := ulid.Make()
		session := testSession(t)
		rows := sessionRow(session).RowError(0, errors.New("row iteration error"))
		mock.ExpectQuery(`SELECT .+ FROM owner_sessions`).
			WithArgs(ownerID.String()).
			WillReturnRows(rows)

		repo := NewSessionRepository(mock)
		_, err = repo.GetByOwner(context.Background(), ownerID)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "row iteration error")
		assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
	})
}

func TestSessionRepository_RotateRefreshHash(t *testing.T) {
	t.Run("compare-and-set hit", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err, "failed to create mock")
		defer mock.Close()

		id := ulid.Make()
		now := time.Now()
		mock.ExpectExec(`UPDATE owner_sessions\s+SET refresh_token_hash = \$3, rotated_at = \$4\s+WHERE id = \$1 AND refresh_token_hash = \$2 AND revoked_at IS NULL`).
			WithArgs(id.String(), "old-hash", "new-hash", now).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		repo := NewSessionRepository(mock)
		require.NoError(t, repo.RotateRefreshHash(context.Background(), id, "old-hash", "new-hash", now))
		assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
	})

	t.Run("compare-and-set miss", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err, "failed to create mock")
		defer mock.Close()

		id := ulid.Make()
		now := time.Now()
		mock.ExpectExec(`UPDATE owner_sessions`).
			WithArgs(id.String(), "stale-hash", "new-hash", now).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		repo := NewSessionRepository(mock)
		err = repo.RotateRefreshHash(context.Background(), id, "stale-hash", "new-hash", now)
		require.ErrorIs(t, err, auth.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
	})
}

func TestSessionRepository_Revoke(t *testing.T) {
	t.Run("revokes active session", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err, "failed to create mock")
		defer mock.Close()

		id := ulid.Make()
		now := time.Now()
		mock.ExpectExec(`UPDATE owner_sessions\s+SET revoked_at = \$2\s+WHERE id = \$1 AND revoked_at IS NULL`).
			WithArgs(id.String(), now).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		repo := NewSessionRepository(mock)
		require.NoError(t, repo.Revoke(context.Background(), id, now))
		assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
	})

	t.Run("already revoked reports not found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err, "failed to create mock")
		defer mock.Close()

		id := ulid.Make()
		now := time.Now()
		mock.ExpectExec(`UPDATE owner_sessions`).
			WithArgs(id.String(), now).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		repo := NewSessionRepository(mock)
		err = repo.Revoke(context.Background(), id, now)
		require.ErrorIs(t, err, auth.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
	})
}

func TestSessionRepository_RevokeByOwner(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err, "failed to create mock")
	defer mock.Close()

	ownerID := ulid.Make()
	now := time.Now()
	mock.ExpectExec(`UPDATE owner_sessions\s+SET revoked_at = \$2\s+WHERE owner_id = \$1 AND revoked_at IS NULL`).
		WithArgs(ownerID.String(), now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 3))

	repo := NewSessionRepository(mock)
	n, err := repo.RevokeByOwner(context.Background(), ownerID, now)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
}

func TestSessionRepository_DeleteExpired(t *testing.T) {
	t.Run("deletes expired rows", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err, "failed to create mock")
		defer mock.Close()

		mock.ExpectExec(`DELETE FROM owner_sessions WHERE expires_at < NOW\(\)`).
			WillReturnResult(pgxmock.NewResult("DELETE", 2))

		repo := NewSessionRepository(mock)
		n, err := repo.DeleteExpired(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
		assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
	})

	t.Run("database error", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err, "failed to create mock")
		defer mock.Close()

		mock.ExpectExec(`DELETE FROM owner_sessions`).
			WillReturnError(errors.New("disk full"))

		repo := NewSessionRepository(mock)
		_, err = repo.DeleteExpired(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "disk full")
		assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
	})
}

// Test that the interface is correctly implemented.
func TestSessionRepositoryInterface(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err, "failed to create mock")
	defer mock.Close()

	var _ auth.SessionRepository = NewSessionRepository(mock)
}
