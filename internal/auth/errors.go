// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LodgePost Contributors

package auth

import "errors"

// Sentinel error kinds for authentication outcomes. Services wrap these with
// oops codes and context; callers branch with errors.Is.
var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidCredentials is returned for unknown emails and wrong
	// passwords alike, so callers cannot distinguish the two.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAccountLocked is returned when the (email, ip) pair has exceeded
	// the failed-login threshold within the lockout window.
	ErrAccountLocked = errors.New("account locked")

	// ErrAccountInactive is returned when the owner account is deactivated.
	ErrAccountInactive = errors.New("account inactive")

	// ErrRefreshTokenRevoked is returned when a refresh token is unknown,
	// already rotated, revoked, or expired.
	ErrRefreshTokenRevoked = errors.New("refresh token revoked")

	// ErrInvalidToken is returned for any access token that fails
	// validation, regardless of the reason.
	ErrInvalidToken = errors.New("invalid token")

	// ErrInsufficientPermissions is returned when an actor targets
	// sessions belonging to another owner without the admin role.
	ErrInsufficientPermissions = errors.New("insufficient permissions")

	// ErrOwnerNotFound is returned when an owner lookup by ID fails.
	ErrOwnerNotFound = errors.New("owner not found")

	// ErrDuplicateEmail is returned when registration collides with an
	// existing owner email.
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrUnavailable is returned when a backing store cannot be reached.
	// Unlike the kinds above it marks a transient infrastructure failure.
	ErrUnavailable = errors.New("service unavailable")
)
