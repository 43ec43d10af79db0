// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LodgePost Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/lodgepost/lodgepost/internal/auth"
	authpg "github.com/lodgepost/lodgepost/internal/auth/postgres"
	authredis "github.com/lodgepost/lodgepost/internal/auth/redis"
	"github.com/lodgepost/lodgepost/internal/config"
	"github.com/lodgepost/lodgepost/internal/httpapi"
	"github.com/lodgepost/lodgepost/internal/logging"
	"github.com/lodgepost/lodgepost/internal/observability"
	"github.com/lodgepost/lodgepost/internal/store"
)

// shutdownTimeout bounds graceful shutdown of the HTTP servers.
const shutdownTimeout = 5 * time.Second

// readinessPingTimeout bounds the database ping behind the readiness probe.
const readinessPingTimeout = time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the auth server",
		Long: `Start the authentication server, which exposes the HTTP API for
owner login, token refresh, logout, and session administration.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServeWithDeps(cmd.Context(), cmd, nil)
		},
	}

	defaults := config.Default()
	cmd.Flags().String("http-addr", defaults.HTTPAddr, "HTTP API listen address")
	cmd.Flags().String("metrics-addr", defaults.MetricsAddr, "metrics/health HTTP address (empty = disabled)")
	cmd.Flags().String("log-format", defaults.LogFormat, "log format (json or text)")

	return cmd
}

// runServeWithDeps starts the auth server with injectable dependencies.
// If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cmd *cobra.Command, deps *ServeDeps) error {
	if deps == nil {
		deps = &ServeDeps{}
	}

	// Set up default factories
	if deps.PoolFactory == nil {
		deps.PoolFactory = func(ctx context.Context, databaseURL string) (Pool, error) {
			return store.Connect(ctx, databaseURL)
		}
	}
	if deps.APIServerFactory == nil {
		deps.APIServerFactory = func(addr string, svc httpapi.AuthService, logger *slog.Logger, version string) (APIServer, error) {
			return httpapi.NewServer(addr, svc, logger, version)
		}
	}
	if deps.ObservabilityServerFactory == nil {
		deps.ObservabilityServerFactory = func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, readinessChecker)
		}
	}

	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logging.SetDefault("lodgepost", version, cfg.LogFormat)

	slog.Info("starting auth server",
		"http_addr", cfg.HTTPAddr,
		"log_format", cfg.LogFormat,
	)

	pool, err := deps.PoolFactory(ctx, cfg.DatabaseURL)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer pool.Close()

	slog.Info("connected to database")

	// Set up graceful shutdown
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	hasher := auth.NewArgon2idHasher()

	tokens, err := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret: []byte(cfg.Auth.SigningSecret),
		Issuer:        cfg.Auth.Issuer,
		Audience:      cfg.Auth.Audience,
		AccessTTL:     cfg.Auth.AccessTTL,
	})
	if err != nil {
		return err
	}

	owners := authpg.NewOwnerRepository(pool)
	sessions := authpg.NewSessionRepository(pool)

	manager, err := auth.NewSessionManager(sessions, cfg.Auth.RefreshTTL, slog.Default())
	if err != nil {
		return err
	}

	tracker, err := buildLockoutTracker(ctx, cfg)
	if err != nil {
		return err
	}

	// Start observability server if configured; it owns the metrics sink
	var metrics auth.MetricsSink = auth.NopMetrics{}
	var obsServer ObservabilityServer
	if cfg.MetricsAddr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.MetricsAddr, func() bool {
			pingCtx, pingCancel := context.WithTimeout(context.Background(), readinessPingTimeout)
			defer pingCancel()
			return pool.Ping(pingCtx) == nil
		})
		obsErrChan, obsErr := obsServer.Start()
		if obsErr != nil {
			return oops.Code("OBSERVABILITY_START_FAILED").Wrap(obsErr)
		}
		// Monitor observability server errors - cancel context on error
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
		slog.Info("observability server started", "addr", obsServer.Addr())
		metrics = obsServer.Metrics()
	}

	svc, err := auth.NewService(owners, manager, hasher, tokens, tracker, metrics, slog.Default(), auth.ServiceConfig{
		LockoutFailClosed: cfg.Auth.LockoutFailClosed,
	})
	if err != nil {
		return err
	}

	apiServer, err := deps.APIServerFactory(cfg.HTTPAddr, svc, slog.Default(), version)
	if err != nil {
		return err
	}
	apiErrChan, err := apiServer.Start()
	if err != nil {
		return oops.Code("API_START_FAILED").Wrap(err)
	}
	// Monitor API server errors - cancel context on error
	go monitorServerErrors(ctx, cancel, apiErrChan, "api")

	// Reap expired sessions in the background
	go manager.RunReaper(ctx, cfg.Auth.ReaperInterval, observability.RecordSessionsReaped)

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Println("Auth server started")
	slog.Info("auth server ready", "http_addr", apiServer.Addr())

	// Wait for shutdown signal or server failure
	select {
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		slog.Info("context cancelled, shutting down")
	}

	// Graceful shutdown
	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := apiServer.Stop(shutdownCtx); err != nil {
		slog.Warn("error stopping api server", "error", err)
	}

	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			slog.Warn("error stopping observability server", "error", err)
		}
	}

	slog.Info("shutdown complete")
	return nil
}

// buildLockoutTracker selects the Redis tracker when an address is
// configured, falling back to the in-process tracker otherwise. The memory
// tracker's janitor runs until ctx is cancelled.
func buildLockoutTracker(ctx context.Context, cfg *config.Config) (auth.LockoutTracker, error) {
	if cfg.Redis.Addr != "" {
		client := goredis.NewClient(&goredis.Options{Addr: cfg.Redis.Addr})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, oops.Code("REDIS_CONNECT_FAILED").With("addr", cfg.Redis.Addr).Wrap(err)
		}
		slog.Info("lockout tracker using redis", "addr", cfg.Redis.Addr)
		return authredis.NewLockoutTracker(client, cfg.Auth.LockoutThreshold, cfg.Auth.LockoutWindow), nil
	}

	tracker := auth.NewMemoryLockoutTracker(cfg.Auth.LockoutThreshold, cfg.Auth.LockoutWindow)
	go tracker.RunJanitor(ctx, cfg.Auth.LockoutWindow)
	slog.Info("lockout tracker using process memory")
	return tracker, nil
}

// monitorServerErrors monitors a server's error channel and cancels the context on error.
// This ensures that server failures trigger graceful shutdown of the entire process.
// It exits when either an error is received, the channel is closed, or the context is cancelled.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			// Channel closed, server stopped gracefully
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
		// Context cancelled, exit monitoring
	}
}
