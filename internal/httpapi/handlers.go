// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LodgePost Contributors

package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"

	"github.com/lodgepost/lodgepost/internal/auth"
)

// loginRequest is the request body for POST /auth/login.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// refreshRequest is the request body for POST /auth/refresh and
// POST /auth/logout.
type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// tokenResponse is the response body for successful login and refresh.
// RefreshToken is surfaced here exactly once; the server keeps only a hash.
type tokenResponse struct {
	AccessToken     string    `json:"access_token"`
	TokenType       string    `json:"token_type"`
	AccessExpiresAt time.Time `json:"access_expires_at"`
	RefreshToken    string    `json:"refresh_token"`
	SessionID       string    `json:"session_id"`
}

// registerOwnerRequest is the request body for POST /owners.
type registerOwnerRequest struct {
	Email       string `json:"email"`
	FullName    string `json:"full_name"`
	Password    string `json:"password"`
	Role        string `json:"role,omitempty"`
	Phone       string `json:"phone,omitempty"`
	PhoneRegion string `json:"phone_region,omitempty"`
	PhotoURL    string `json:"photo_url,omitempty"`
}

// ownerResponse is the public view of an owner account. The password hash
// never leaves the service.
type ownerResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Phone     *string   `json:"phone,omitempty"`
	PhotoURL  *string   `json:"photo_url,omitempty"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// sessionResponse is the public view of a session. The refresh token hash
// stays server-side.
type sessionResponse struct {
	ID        string     `json:"id"`
	OwnerID   string     `json:"owner_id"`
	UserAgent string     `json:"user_agent,omitempty"`
	IPAddress string     `json:"ip_address,omitempty"`
	IssuedAt  time.Time  `json:"issued_at"`
	ExpiresAt time.Time  `json:"expires_at"`
	RotatedAt *time.Time `json:"rotated_at,omitempty"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}

// setActiveRequest is the request body for PATCH /owners/{id}/active.
type setActiveRequest struct {
	Active bool `json:"active"`
}

// handleHealth returns server status and version.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.version,
	})
}

// handleLogin exchanges owner credentials for a token pair.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeBadRequest(w, "email and password are required")
		return
	}

	pair, err := s.svc.Login(r.Context(), req.Email, req.Password, r.UserAgent(), clientIP(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newTokenResponse(pair))
}

// handleRefresh rotates a refresh token and mints a fresh token pair.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.RefreshToken == "" {
		writeBadRequest(w, "refresh_token is required")
		return
	}

	pair, err := s.svc.Refresh(r.Context(), req.RefreshToken, r.UserAgent(), clientIP(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newTokenResponse(pair))
}

// handleLogout revokes the session behind a refresh token. A token that no
// longer matches an active session still yields 204; logout is idempotent.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.RefreshToken == "" {
		writeBadRequest(w, "refresh_token is required")
		return
	}

	if err := s.svc.Logout(r.Context(), req.RefreshToken); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleRegisterOwner provisions a new owner account.
func (s *Server) handleRegisterOwner(w http.ResponseWriter, r *http.Request) {
	var req registerOwnerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Email == "" || req.FullName == "" || req.Password == "" {
		writeBadRequest(w, "email, full_name, and password are required")
		return
	}

	owner, err := s.svc.RegisterOwner(r.Context(), claimsFrom(r.Context()), auth.RegisterOwnerInput{
		Email:       req.Email,
		FullName:    req.FullName,
		Password:    req.Password,
		Role:        auth.Role(req.Role),
		Phone:       req.Phone,
		PhoneRegion: req.PhoneRegion,
		PhotoURL:    req.PhotoURL,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, newOwnerResponse(owner))
}

// handleListSessions returns an owner's sessions, newest first.
func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	ownerID, err := ulid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeBadRequest(w, "invalid owner ID")
		return
	}

	sessions, err := s.svc.ListSessions(r.Context(), claimsFrom(r.Context()), ownerID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	out := make([]sessionResponse, 0, len(sessions))
	for _, session := range sessions {
		out = append(out, newSessionResponse(session))
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": out, "count": len(out)})
}

// handleRevokeSession revokes a single session by ID.
func (s *Server) handleRevokeSession(w http.ResponseWriter, r *http.Request) {
	sessionID, err := ulid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeBadRequest(w, "invalid session ID")
		return
	}

	if err := s.svc.RevokeSession(r.Context(), claimsFrom(r.Context()), sessionID); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleSetOwnerActive flips the active flag on an owner account.
func (s *Server) handleSetOwnerActive(w http.ResponseWriter, r *http.Request) {
	ownerID, err := ulid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeBadRequest(w, "invalid owner ID")
		return
	}

	var req setActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.svc.SetOwnerActive(r.Context(), claimsFrom(r.Context()), ownerID, req.Active); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func newTokenResponse(pair *auth.TokenPair) tokenResponse {
	return tokenResponse{
		AccessToken:     pair.AccessToken,
		TokenType:       "Bearer",
		AccessExpiresAt: pair.AccessExpiresAt,
		RefreshToken:    pair.RefreshToken,
		SessionID:       pair.SessionID.String(),
	}
}

func newOwnerResponse(owner *auth.Owner) ownerResponse {
	return ownerResponse{
		ID:        owner.ID.String(),
		Email:     owner.Email,
		FullName:  owner.FullName,
		Phone:     owner.PhoneE164,
		PhotoURL:  owner.PhotoURL,
		Role:      string(owner.Role),
		IsActive:  owner.IsActive,
		CreatedAt: owner.CreatedAt,
	}
}

func newSessionResponse(session *auth.OwnerSession) sessionResponse {
	return sessionResponse{
		ID:        session.ID.String(),
		OwnerID:   session.OwnerID.String(),
		UserAgent: session.UserAgent,
		IPAddress: session.IPAddress,
		IssuedAt:  session.IssuedAt,
		ExpiresAt: session.ExpiresAt,
		RotatedAt: session.RotatedAt,
		RevokedAt: session.RevokedAt,
	}
}
