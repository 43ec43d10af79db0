// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LodgePost Contributors

// Package postgres implements the auth repositories using PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/lodgepost/lodgepost/internal/auth"
)

// OwnerRepository implements auth.OwnerRepository using PostgreSQL.
type OwnerRepository struct {
	pool poolIface
}

// NewOwnerRepository creates a new OwnerRepository.
func NewOwnerRepository(pool poolIface) *OwnerRepository {
	return &OwnerRepository{pool: pool}
}

// Create stores a new owner.
func (r *OwnerRepository) Create(ctx context.Context, owner *auth.Owner) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO owners (
			id, email, full_name, phone_e164, photo_url,
			role, password_hash, is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		owner.ID.String(),
		owner.Email,
		owner.FullName,
		owner.PhoneE164,
		owner.PhotoURL,
		string(owner.Role),
		owner.PasswordHash,
		owner.IsActive,
		owner.CreatedAt,
		owner.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return oops.Code("OWNER_DUPLICATE_EMAIL").
				With("email", owner.Email).
				Wrap(auth.ErrDuplicateEmail)
		}
		return oops.Code("OWNER_CREATE_FAILED").
			With("operation", "insert owner").
			With("email", owner.Email).
			Wrap(err)
	}
	return nil
}

// GetByID retrieves an owner by ID.
func (r *OwnerRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.Owner, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, email, full_name, phone_e164, photo_url,
		       role, password_hash, is_active, created_at, updated_at
		FROM owners
		WHERE id = $1
	`, id.String())

	owner, err := r.scanOwner(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("OWNER_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("OWNER_GET_BY_ID_FAILED").
			With("operation", "get owner by id").
			With("id", id.String()).
			Wrap(err)
	}
	return owner, nil
}

// GetByEmail retrieves an owner by email (case-insensitive).
func (r *OwnerRepository) GetByEmail(ctx context.Context, email string) (*auth.Owner, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, email, full_name, phone_e164, photo_url,
		       role, password_hash, is_active, created_at, updated_at
		FROM owners
		WHERE LOWER(email) = LOWER($1)
	`, email)

	owner, err := r.scanOwner(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("OWNER_NOT_FOUND").
			With("email", email).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("OWNER_GET_BY_EMAIL_FAILED").
			With("operation", "get owner by email").
			With("email", email).
			Wrap(err)
	}
	return owner, nil
}

// Update updates an existing owner.
func (r *OwnerRepository) Update(ctx context.Context, owner *auth.Owner) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE owners SET
			email = $2,
			full_name = $3,
			phone_e164 = $4,
			photo_url = $5,
			role = $6,
			password_hash = $7,
			is_active = $8,
			updated_at = $9
		WHERE id = $1
	`,
		owner.ID.String(),
		owner.Email,
		owner.FullName,
		owner.PhoneE164,
		owner.PhotoURL,
		string(owner.Role),
		owner.PasswordHash,
		owner.IsActive,
		time.Now(),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return oops.Code("OWNER_DUPLICATE_EMAIL").
				With("email", owner.Email).
				Wrap(auth.ErrDuplicateEmail)
		}
		return oops.Code("OWNER_UPDATE_FAILED").
			With("operation", "update owner").
			With("id", owner.ID.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("OWNER_NOT_FOUND").
			With("id", owner.ID.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// UpdatePassword updates only the password hash for an owner.
func (r *OwnerRepository) UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE owners SET password_hash = $2, updated_at = $3
		WHERE id = $1
	`, id.String(), passwordHash, time.Now())
	if err != nil {
		return oops.Code("OWNER_UPDATE_PASSWORD_FAILED").
			With("operation", "update password").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("OWNER_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// SetActive flips the active flag for an owner.
func (r *OwnerRepository) SetActive(ctx context.Context, id ulid.ULID, active bool) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE owners SET is_active = $2, updated_at = $3
		WHERE id = $1
	`, id.String(), active, time.Now())
	if err != nil {
		return oops.Code("OWNER_SET_ACTIVE_FAILED").
			With("operation", "set active").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("OWNER_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// scanOwner scans a single row into an Owner.
// Callers are responsible for handling pgx.ErrNoRows.
func (r *OwnerRepository) scanOwner(row pgx.Row) (*auth.Owner, error) {
	var (
		idStr        string
		email        string
		fullName     string
		phone        *string
		photoURL     *string
		role         string
		passwordHash string
		isActive     bool
		createdAt    time.Time
		updatedAt    time.Time
	)

	err := row.Scan(
		&idStr,
		&email,
		&fullName,
		&phone,
		&photoURL,
		&role,
		&passwordHash,
		&isActive,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		// Propagate pgx.ErrNoRows unchanged for callers to handle with context.
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // Callers wrap with context-specific info
		}
		return nil, oops.Code("OWNER_SCAN_FAILED").
			With("operation", "scan owner").
			Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("OWNER_INVALID_ID").
			With("operation", "parse owner id").
			With("id", idStr).
			Wrap(err)
	}

	return &auth.Owner{
		ID:           id,
		Email:        email,
		FullName:     fullName,
		PhoneE164:    phone,
		PhotoURL:     photoURL,
		Role:         auth.Role(role),
		PasswordHash: passwordHash,
		IsActive:     isActive,
		CreatedAt:    createdAt,
		UpdatedAt:    updatedAt,
	}, nil
}

// Compile-time interface check.
var _ auth.OwnerRepository = (*OwnerRepository)(nil)
