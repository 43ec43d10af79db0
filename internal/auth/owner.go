// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LodgePost Contributors

package auth

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/nyaruka/phonenumbers"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Role identifies the permission tier of an owner account.
type Role string

// Owner roles.
const (
	RoleOwner Role = "owner"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleOwner || r == RoleAdmin
}

// MaxFullNameLength bounds the owner display name.
const MaxFullNameLength = 120

// emailRegex is a pragmatic syntax check; deliverability is not our problem.
var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Owner represents a property-owner account.
type Owner struct {
	ID           ulid.ULID
	Email        string
	FullName     string
	PhoneE164    *string
	PhotoURL     *string
	Role         Role
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewOwner creates an active Owner with validated email, name, and role.
// phone, if non-nil, must already be E.164-normalized (see NormalizePhone).
func NewOwner(email, fullName, passwordHash string, role Role, phone, photoURL *string) (*Owner, error) {
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if fullName == "" || len(fullName) > MaxFullNameLength {
		return nil, oops.Code("AUTH_INVALID_NAME").
			With("max", MaxFullNameLength).
			Errorf("full name must be 1-%d characters", MaxFullNameLength)
	}
	if !role.Valid() {
		return nil, oops.Code("AUTH_INVALID_ROLE").
			With("role", string(role)).
			Errorf("unknown role: %s", role)
	}
	if passwordHash == "" {
		return nil, oops.Code("AUTH_EMPTY_HASH").Errorf("password hash cannot be empty")
	}

	now := time.Now()
	return &Owner{
		ID:           ulid.Make(),
		Email:        strings.ToLower(email),
		FullName:     fullName,
		PhoneE164:    phone,
		PhotoURL:     photoURL,
		Role:         role,
		PasswordHash: passwordHash,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// IsAdmin returns true if the owner holds the admin role.
func (o *Owner) IsAdmin() bool {
	return o.Role == RoleAdmin
}

// normalizeEmail lowercases and trims an email for case-insensitive matching.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail validates email syntax.
func ValidateEmail(email string) error {
	if email == "" {
		return oops.Code("AUTH_INVALID_EMAIL").Errorf("email cannot be empty")
	}
	if !emailRegex.MatchString(email) {
		return oops.Code("AUTH_INVALID_EMAIL").
			With("email", email).
			Errorf("malformed email address")
	}
	return nil
}

// NormalizePhone parses a phone number in the given ISO region and returns
// its E.164 form. Region may be empty when the input already carries a +CC
// prefix.
func NormalizePhone(number, region string) (string, error) {
	parsed, err := phonenumbers.Parse(number, region)
	if err != nil {
		return "", oops.Code("AUTH_INVALID_PHONE").
			With("number", number).
			Wrap(err)
	}
	if !phonenumbers.IsValidNumber(parsed) {
		return "", oops.Code("AUTH_INVALID_PHONE").
			With("number", number).
			Errorf("not a valid phone number")
	}
	return phonenumbers.Format(parsed, phonenumbers.E164), nil
}

// OwnerRepository manages owner persistence.
type OwnerRepository interface {
	// Create stores a new owner. A colliding email returns ErrDuplicateEmail.
	Create(ctx context.Context, owner *Owner) error

	// GetByID retrieves an owner by ID.
	GetByID(ctx context.Context, id ulid.ULID) (*Owner, error)

	// GetByEmail retrieves an owner by email (case-insensitive).
	// Returns ErrNotFound if no owner has the given email.
	GetByEmail(ctx context.Context, email string) (*Owner, error)

	// Update updates an existing owner.
	Update(ctx context.Context, owner *Owner) error

	// UpdatePassword updates only the password hash for an owner.
	UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error

	// SetActive flips the active flag for an owner.
	SetActive(ctx context.Context, id ulid.ULID, active bool) error
}
