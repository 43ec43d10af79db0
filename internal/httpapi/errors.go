// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LodgePost Contributors

package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/lodgepost/lodgepost/internal/auth"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeNotFound     = "not_found"
	ErrCodeUnauthorized = "unauthorised"
	ErrCodeForbidden    = "forbidden"
	ErrCodeConflict     = "conflict"
	ErrCodeLocked       = "locked"
	ErrCodeUnavailable  = "unavailable"
	ErrCodeInternal     = "internal_error"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeUnauthorized writes a 401 error response.
func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeServiceError maps auth package sentinels onto HTTP responses.
// Anything unrecognized becomes a 500 with a generic message so internal
// detail never leaks to clients.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeUnauthorized(w, "invalid email or password")
	case errors.Is(err, auth.ErrRefreshTokenRevoked):
		writeUnauthorized(w, "refresh token revoked")
	case errors.Is(err, auth.ErrInvalidToken):
		writeUnauthorized(w, "invalid token")
	case errors.Is(err, auth.ErrAccountInactive):
		writeUnauthorized(w, "account inactive")
	case errors.Is(err, auth.ErrAccountLocked):
		writeError(w, http.StatusTooManyRequests, ErrCodeLocked, "too many failed attempts, try again later")
	case errors.Is(err, auth.ErrInsufficientPermissions):
		writeError(w, http.StatusForbidden, ErrCodeForbidden, "insufficient permissions")
	case errors.Is(err, auth.ErrOwnerNotFound), errors.Is(err, auth.ErrNotFound):
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "not found")
	case errors.Is(err, auth.ErrDuplicateEmail):
		writeError(w, http.StatusConflict, ErrCodeConflict, "email already registered")
	case errors.Is(err, auth.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "service temporarily unavailable")
	default:
		writeInternalError(w, "internal server error")
	}
}
