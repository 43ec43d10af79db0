// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LodgePost Contributors

package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		// Credential exchange endpoints (no bearer token required; the
		// refresh and logout bodies carry their own proof of possession)
		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/refresh", s.handleRefresh)
		r.Post("/auth/logout", s.handleLogout)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Route("/owners", func(r chi.Router) {
				r.Post("/", s.handleRegisterOwner)
				r.Get("/{id}/sessions", s.handleListSessions)
				r.Patch("/{id}/active", s.handleSetOwnerActive)
			})

			r.Delete("/sessions/{id}", s.handleRevokeSession)
		})
	})

	return r
}
