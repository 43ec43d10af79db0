// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LodgePost Contributors

package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Access token configuration.
const (
	// AccessTokenExpiry is the default access token lifetime. Short on
	// purpose: revocation is only enforced at refresh time.
	AccessTokenExpiry = 10 * time.Minute

	// ClaimsVersion is stamped into every token so a future claims schema
	// change can invalidate old tokens wholesale.
	ClaimsVersion = 1
)

// AccessClaims is the registered claim set plus LodgePost-specific fields.
type AccessClaims struct {
	OwnerID string `json:"uid"`
	Role    Role   `json:"role"`
	Version int    `json:"ver"`
	jwt.RegisteredClaims
}

// Owner returns the owner ID parsed from the claims.
func (c *AccessClaims) Owner() (ulid.ULID, error) {
	id, err := ulid.Parse(c.OwnerID)
	if err != nil {
		return ulid.ULID{}, oops.Code("AUTH_INVALID_TOKEN").Wrap(ErrInvalidToken)
	}
	return id, nil
}

// IsAdmin returns true if the claims carry the admin role.
func (c *AccessClaims) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// TokenIssuerConfig configures a TokenIssuer.
type TokenIssuerConfig struct {
	// SigningSecret is the HMAC-SHA256 key. Must be non-empty.
	SigningSecret []byte

	// Issuer and Audience are stamped into and required of every token.
	Issuer   string
	Audience string

	// AccessTTL defaults to AccessTokenExpiry when zero.
	AccessTTL time.Duration
}

// TokenIssuer mints and validates stateless HS256 access tokens.
type TokenIssuer struct {
	cfg TokenIssuerConfig
}

// NewTokenIssuer creates a TokenIssuer, validating the config.
func NewTokenIssuer(cfg TokenIssuerConfig) (*TokenIssuer, error) {
	if len(cfg.SigningSecret) == 0 {
		return nil, oops.Code("AUTH_MISSING_SECRET").Errorf("signing secret cannot be empty")
	}
	if cfg.Issuer == "" || cfg.Audience == "" {
		return nil, oops.Code("AUTH_MISSING_ISSUER").Errorf("issuer and audience are required")
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = AccessTokenExpiry
	}
	return &TokenIssuer{cfg: cfg}, nil
}

// AccessTTL returns the configured access token lifetime.
func (t *TokenIssuer) AccessTTL() time.Duration {
	return t.cfg.AccessTTL
}

// IssueAccessToken mints a signed access token for the owner.
// Returns the compact JWT and its expiry.
func (t *TokenIssuer) IssueAccessToken(owner *Owner) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(t.cfg.AccessTTL)

	claims := AccessClaims{
		OwnerID: owner.ID.String(),
		Role:    owner.Role,
		Version: ClaimsVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   owner.ID.String(),
			Issuer:    t.cfg.Issuer,
			Audience:  jwt.ClaimStrings{t.cfg.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        ulid.Make().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.cfg.SigningSecret)
	if err != nil {
		return "", time.Time{}, oops.Code("AUTH_TOKEN_SIGN_FAILED").Wrap(err)
	}

	return signed, expiresAt, nil
}

// ValidateAccessToken parses and verifies an access token. Every failure
// mode (bad signature, expiry, wrong issuer or audience, malformed input,
// claims version mismatch) collapses into ErrInvalidToken so the caller
// cannot leak why a token was rejected.
func (t *TokenIssuer) ValidateAccessToken(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, oops.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return t.cfg.SigningSecret, nil
		},
		jwt.WithIssuer(t.cfg.Issuer),
		jwt.WithAudience(t.cfg.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return nil, oops.Code("AUTH_INVALID_TOKEN").Wrap(ErrInvalidToken)
	}
	if claims.Version != ClaimsVersion {
		return nil, oops.Code("AUTH_INVALID_TOKEN").Wrap(ErrInvalidToken)
	}
	return claims, nil
}
