// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LodgePost Contributors

// Package httpapi exposes the authentication and session lifecycle
// operations over HTTP. It owns the REST surface only; all policy lives
// in the auth package.
package httpapi

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/lodgepost/lodgepost/internal/auth"
)

// AuthService is the slice of the auth service the HTTP layer consumes.
// *auth.Service satisfies it; tests substitute lightweight fakes.
type AuthService interface {
	Login(ctx context.Context, email, password, userAgent, ipAddress string) (*auth.TokenPair, error)
	Refresh(ctx context.Context, refreshToken, userAgent, ipAddress string) (*auth.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	ValidateAccessToken(token string) (*auth.AccessClaims, error)
	ListSessions(ctx context.Context, actor *auth.AccessClaims, ownerID ulid.ULID) ([]*auth.OwnerSession, error)
	RevokeSession(ctx context.Context, actor *auth.AccessClaims, sessionID ulid.ULID) error
	RegisterOwner(ctx context.Context, actor *auth.AccessClaims, input auth.RegisterOwnerInput) (*auth.Owner, error)
	SetOwnerActive(ctx context.Context, actor *auth.AccessClaims, ownerID ulid.ULID, active bool) error
}

var _ AuthService = (*auth.Service)(nil)

// Server is the HTTP API server for the LodgePost auth subsystem.
type Server struct {
	addr       string
	svc        AuthService
	logger     *slog.Logger
	version    string
	listener   net.Listener
	httpServer *http.Server
	running    atomic.Bool
}

// NewServer creates an API server. It does not listen until Start is called.
func NewServer(addr string, svc AuthService, logger *slog.Logger, version string) (*Server, error) {
	if svc == nil {
		return nil, oops.Code("API_INVALID").Errorf("auth service is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		addr:    addr,
		svc:     svc,
		logger:  logger,
		version: version,
	}, nil
}

// Start begins serving API requests.
// It returns an error channel that will receive any errors from the HTTP
// server after it starts. The channel is closed when the server stops
// gracefully. Callers should monitor this channel to detect server failures.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Errorf("api server already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.With("addr", s.addr).Wrap(err)
	}
	s.listener = listener

	httpSrv := &http.Server{
		Handler:           s.buildRouter(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	s.httpServer = httpSrv

	errCh := make(chan error, 1)

	go func() {
		defer close(errCh)
		if serveErr := httpSrv.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			s.logger.Error("api server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	s.logger.Info("api server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop gracefully shuts down the API server, waiting for in-flight
// requests up to the context deadline.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.running.Store(true)
			return oops.With("operation", "shutdown_api_server").Wrap(err)
		}
	}

	s.logger.Info("api server stopped")
	return nil
}

// Addr returns the address the server is listening on.
// Returns empty string if not running.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}
