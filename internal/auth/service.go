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

// Login and refresh outcome labels reported to the metrics sink.
const (
	ResultSuccess  = "success"
	ResultInvalid  = "invalid"
	ResultLocked   = "locked"
	ResultInactive = "inactive"
	ResultRevoked  = "revoked"
)

// MetricsSink receives authentication outcome counts. Implementations must
// be safe for concurrent use. NopMetrics is the default.
type MetricsSink interface {
	LoginAttempt(result string)
	LockoutEngaged()
	RefreshAttempt(result string)
	SessionsRevoked(count int64)
}

// NopMetrics is a MetricsSink that discards everything.
type NopMetrics struct{}

func (NopMetrics) LoginAttempt(string)   {}
func (NopMetrics) LockoutEngaged()       {}
func (NopMetrics) RefreshAttempt(string) {}
func (NopMetrics) SessionsRevoked(int64) {}

// TokenPair is the result of a successful login or refresh. RefreshToken is
// the plaintext token, surfaced exactly once and never stored.
type TokenPair struct {
	AccessToken     string
	AccessExpiresAt time.Time
	RefreshToken    string
	SessionID       ulid.ULID
}

// MinPasswordLength is the floor for new owner passwords.
const MinPasswordLength = 8

// ServiceConfig carries the orchestration policy knobs.
type ServiceConfig struct {
	// LockoutFailClosed rejects logins when the lockout tracker is
	// unreachable. Default is fail-open with a warning log.
	LockoutFailClosed bool
}

// Service orchestrates login, refresh rotation, logout, and session
// administration.
type Service struct {
	owners   OwnerRepository
	sessions *SessionManager
	hasher   PasswordHasher
	tokens   *TokenIssuer
	lockout  LockoutTracker
	metrics  MetricsSink
	logger   *slog.Logger
	cfg      ServiceConfig
}

// NewService creates a Service, validating required dependencies.
func NewService(
	owners OwnerRepository,
	sessions *SessionManager,
	hasher PasswordHasher,
	tokens *TokenIssuer,
	lockout LockoutTracker,
	metrics MetricsSink,
	logger *slog.Logger,
	cfg ServiceConfig,
) (*Service, error) {
	if owners == nil || sessions == nil || hasher == nil || tokens == nil || lockout == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").
			Errorf("owners, sessions, hasher, tokens, and lockout are required")
	}
	if metrics == nil {
		metrics = NopMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		owners:   owners,
		sessions: sessions,
		hasher:   hasher,
		tokens:   tokens,
		lockout:  lockout,
		metrics:  metrics,
		logger:   logger,
		cfg:      cfg,
	}, nil
}

// dummyPasswordHash is used when an owner doesn't exist to prevent timing attacks.
// We still run password verification to make response time consistent.
// This is NOT a real credential - it's a fake hash that will never match any password.
//
//nolint:gosec // G101: This is an intentionally fake hash for timing attack prevention, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// Login authenticates an owner and opens a refresh session.
// Unknown emails and wrong passwords return the same ErrInvalidCredentials;
// both count toward the (email, ip) lockout.
func (s *Service) Login(ctx context.Context, email, password, userAgent, ipAddress string) (*TokenPair, error) {
	email = normalizeEmail(email)

	owner, lookupErr := s.owners.GetByEmail(ctx, email)
	if lookupErr != nil {
		if !errors.Is(lookupErr, ErrNotFound) {
			return nil, oops.Code("AUTH_LOGIN_FAILED").
				With("operation", "get owner by email").
				Wrap(lookupErr)
		}
		// Unknown email: verify against the dummy hash so response time
		// matches the known-email path, then count the failure.
		s.hasher.Verify(password, dummyPasswordHash)
		s.recordFailure(ctx, email, ipAddress)
		s.metrics.LoginAttempt(ResultInvalid)
		return nil, oops.Code("AUTH_INVALID_CREDENTIALS").Wrap(ErrInvalidCredentials)
	}

	if !owner.IsActive {
		s.metrics.LoginAttempt(ResultInactive)
		return nil, oops.Code("AUTH_ACCOUNT_INACTIVE").
			With("owner_id", owner.ID.String()).
			Wrap(ErrAccountInactive)
	}

	locked, err := s.lockout.IsLocked(ctx, email, ipAddress)
	if err != nil {
		if s.cfg.LockoutFailClosed {
			return nil, oops.Code("AUTH_LOCKOUT_UNAVAILABLE").Wrap(ErrUnavailable)
		}
		s.logger.Warn("lockout tracker unavailable, failing open", "error", err)
	}
	if locked {
		s.metrics.LoginAttempt(ResultLocked)
		return nil, oops.Code("AUTH_ACCOUNT_LOCKED").
			With("email", email).
			Wrap(ErrAccountLocked)
	}

	if !s.hasher.Verify(password, owner.PasswordHash) {
		s.recordFailure(ctx, email, ipAddress)
		s.metrics.LoginAttempt(ResultInvalid)
		return nil, oops.Code("AUTH_INVALID_CREDENTIALS").Wrap(ErrInvalidCredentials)
	}

	// Success - clear the failure counter. Best effort.
	if err := s.lockout.RecordSuccess(ctx, email, ipAddress); err != nil {
		s.logger.Warn("lockout reset failed", "error", err)
	}

	// Transparent rehash when the stored hash predates argon2id.
	if s.hasher.NeedsUpgrade(owner.PasswordHash) {
		if newHash, hashErr := s.hasher.Hash(password); hashErr == nil {
			if updErr := s.owners.UpdatePassword(ctx, owner.ID, newHash); updErr != nil {
				s.logger.Warn("password rehash failed", "owner_id", owner.ID.String(), "error", updErr)
			}
		}
	}

	pair, err := s.openSession(ctx, owner, userAgent, ipAddress)
	if err != nil {
		return nil, err
	}
	s.metrics.LoginAttempt(ResultSuccess)
	return pair, nil
}

// Refresh exchanges a live refresh token for a new token pair, rotating the
// session's refresh hash. The presented token is single-use: a replay, a
// revoked session, or a lost rotation race all return ErrRefreshTokenRevoked.
func (s *Service) Refresh(ctx context.Context, refreshToken, userAgent, ipAddress string) (*TokenPair, error) {
	if refreshToken == "" {
		s.metrics.RefreshAttempt(ResultRevoked)
		return nil, oops.Code("AUTH_REFRESH_REVOKED").Wrap(ErrRefreshTokenRevoked)
	}

	session, err := s.sessions.FindByHash(ctx, HashRefreshToken(refreshToken))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.metrics.RefreshAttempt(ResultRevoked)
			return nil, oops.Code("AUTH_REFRESH_REVOKED").Wrap(ErrRefreshTokenRevoked)
		}
		return nil, oops.Code("AUTH_REFRESH_FAILED").
			With("operation", "get session by refresh hash").
			Wrap(err)
	}

	if !session.IsActive() {
		s.metrics.RefreshAttempt(ResultRevoked)
		return nil, oops.Code("AUTH_REFRESH_REVOKED").
			With("session_id", session.ID.String()).
			Wrap(ErrRefreshTokenRevoked)
	}

	owner, err := s.owners.GetByID(ctx, session.OwnerID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.metrics.RefreshAttempt(ResultInactive)
			return nil, oops.Code("AUTH_ACCOUNT_INACTIVE").Wrap(ErrAccountInactive)
		}
		return nil, oops.Code("AUTH_REFRESH_FAILED").
			With("operation", "get owner").
			Wrap(err)
	}
	if !owner.IsActive {
		s.metrics.RefreshAttempt(ResultInactive)
		return nil, oops.Code("AUTH_ACCOUNT_INACTIVE").
			With("owner_id", owner.ID.String()).
			Wrap(ErrAccountInactive)
	}

	newToken, newHash, err := GenerateRefreshToken()
	if err != nil {
		return nil, oops.Code("AUTH_REFRESH_FAILED").
			With("operation", "generate refresh token").
			Wrap(err)
	}

	if err := s.sessions.Rotate(ctx, session, newHash); err != nil {
		if errors.Is(err, ErrRefreshTokenRevoked) {
			s.metrics.RefreshAttempt(ResultRevoked)
		}
		return nil, err
	}

	accessToken, expiresAt, err := s.tokens.IssueAccessToken(owner)
	if err != nil {
		return nil, err
	}

	s.metrics.RefreshAttempt(ResultSuccess)
	return &TokenPair{
		AccessToken:     accessToken,
		AccessExpiresAt: expiresAt,
		RefreshToken:    newToken,
		SessionID:       session.ID,
	}, nil
}

// Logout revokes the session behind a refresh token. Idempotent: an unknown
// or already-revoked token is a successful logout.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}

	session, err := s.sessions.FindByHash(ctx, HashRefreshToken(refreshToken))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return oops.Code("AUTH_LOGOUT_FAILED").
			With("operation", "get session by refresh hash").
			Wrap(err)
	}

	if err := s.sessions.Revoke(ctx, session.ID); err != nil {
		return err
	}
	s.metrics.SessionsRevoked(1)
	return nil
}

// ValidateAccessToken verifies a stateless access token and returns its
// claims. No store access happens here.
func (s *Service) ValidateAccessToken(token string) (*AccessClaims, error) {
	return s.tokens.ValidateAccessToken(token)
}

// ListSessions returns all sessions for the given owner. Non-admin actors
// may only list their own.
func (s *Service) ListSessions(ctx context.Context, actor *AccessClaims, ownerID ulid.ULID) ([]*OwnerSession, error) {
	if err := s.authorize(actor, ownerID); err != nil {
		return nil, err
	}
	return s.sessions.ListByOwner(ctx, ownerID)
}

// RevokeSession revokes a single session by ID. Non-admin actors may only
// revoke their own sessions.
func (s *Service) RevokeSession(ctx context.Context, actor *AccessClaims, sessionID ulid.ULID) error {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code("SESSION_NOT_FOUND").
				With("session_id", sessionID.String()).
				Wrap(ErrNotFound)
		}
		return oops.Code("SESSION_REVOKE_FAILED").Wrap(err)
	}

	if err := s.authorize(actor, session.OwnerID); err != nil {
		return err
	}

	if err := s.sessions.Revoke(ctx, sessionID); err != nil {
		return err
	}
	s.metrics.SessionsRevoked(1)
	return nil
}

// RegisterOwnerInput carries the fields for owner provisioning.
type RegisterOwnerInput struct {
	Email    string
	FullName string
	Password string
	Role     Role

	// Phone is optional; PhoneRegion is the ISO region used to parse a
	// national-format number, ignored when Phone carries a +CC prefix.
	Phone       string
	PhoneRegion string
	PhotoURL    string
}

// RegisterOwner provisions a new owner account. Admin only; a missing
// actor (bootstrap provisioning) may create anything.
func (s *Service) RegisterOwner(ctx context.Context, actor *AccessClaims, input RegisterOwnerInput) (*Owner, error) {
	if input.Role == "" {
		input.Role = RoleOwner
	}
	if actor != nil && !actor.IsAdmin() {
		return nil, oops.Code("AUTH_FORBIDDEN").Wrap(ErrInsufficientPermissions)
	}
	if len(input.Password) < MinPasswordLength {
		return nil, oops.Code("AUTH_WEAK_PASSWORD").
			With("min", MinPasswordLength).
			Errorf("password must be at least %d characters", MinPasswordLength)
	}

	var phone *string
	if input.Phone != "" {
		normalized, err := NormalizePhone(input.Phone, input.PhoneRegion)
		if err != nil {
			return nil, err
		}
		phone = &normalized
	}
	var photoURL *string
	if input.PhotoURL != "" {
		photoURL = &input.PhotoURL
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	owner, err := NewOwner(input.Email, input.FullName, hash, input.Role, phone, photoURL)
	if err != nil {
		return nil, err
	}

	if err := s.owners.Create(ctx, owner); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return nil, oops.Code("AUTH_DUPLICATE_EMAIL").
				With("email", owner.Email).
				Wrap(ErrDuplicateEmail)
		}
		return nil, oops.Code("AUTH_REGISTER_FAILED").Wrap(err)
	}

	return owner, nil
}

// SetOwnerActive flips the active flag on an owner account. Admin only.
// Deactivation does not tear down live sessions; their next refresh fails
// with ErrAccountInactive.
func (s *Service) SetOwnerActive(ctx context.Context, actor *AccessClaims, ownerID ulid.ULID, active bool) error {
	if actor == nil || !actor.IsAdmin() {
		return oops.Code("AUTH_FORBIDDEN").Wrap(ErrInsufficientPermissions)
	}

	if err := s.owners.SetActive(ctx, ownerID, active); err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code("AUTH_OWNER_NOT_FOUND").
				With("owner_id", ownerID.String()).
				Wrap(ErrOwnerNotFound)
		}
		return oops.Code("AUTH_UPDATE_FAILED").Wrap(err)
	}
	return nil
}

// authorize permits admins everywhere and owners on their own resources.
func (s *Service) authorize(actor *AccessClaims, ownerID ulid.ULID) error {
	if actor == nil {
		return oops.Code("AUTH_FORBIDDEN").Wrap(ErrInsufficientPermissions)
	}
	if actor.IsAdmin() {
		return nil
	}
	actorID, err := actor.Owner()
	if err != nil || actorID.Compare(ownerID) != 0 {
		return oops.Code("AUTH_FORBIDDEN").Wrap(ErrInsufficientPermissions)
	}
	return nil
}

// openSession mints the token pair for a freshly authenticated owner.
func (s *Service) openSession(ctx context.Context, owner *Owner, userAgent, ipAddress string) (*TokenPair, error) {
	refreshToken, refreshHash, err := GenerateRefreshToken()
	if err != nil {
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "generate refresh token").
			Wrap(err)
	}

	session, err := s.sessions.Create(ctx, owner.ID, refreshHash, userAgent, ipAddress)
	if err != nil {
		return nil, err
	}

	accessToken, expiresAt, err := s.tokens.IssueAccessToken(owner)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:     accessToken,
		AccessExpiresAt: expiresAt,
		RefreshToken:    refreshToken,
		SessionID:       session.ID,
	}, nil
}

// recordFailure counts a failed attempt, honoring the fail-open policy.
func (s *Service) recordFailure(ctx context.Context, email, ipAddress string) {
	if err := s.lockout.RecordFailure(ctx, email, ipAddress); err != nil {
		s.logger.Warn("lockout record failed", "error", err)
		return
	}
	locked, err := s.lockout.IsLocked(ctx, email, ipAddress)
	if err == nil && locked {
		s.metrics.LockoutEngaged()
	}
}
