// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LodgePost Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/lodgepost/lodgepost/internal/auth"
	authpg "github.com/lodgepost/lodgepost/internal/auth/postgres"
	"github.com/lodgepost/lodgepost/internal/store"
)

// Default timeout for provision command.
const defaultProvisionTimeout = 30 * time.Second

// provisionConfig holds configuration for the provision command.
type provisionConfig struct {
	email    string
	fullName string
	timeout  time.Duration
}

// NewProvisionCmd creates the provision subcommand.
func NewProvisionCmd() *cobra.Command {
	cfg := &provisionConfig{}

	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Provision the initial admin account",
		Long: `Creates the first admin owner account so the HTTP API has an actor
that can register further owners. The password is read from the
LODGEPOST_ADMIN_PASSWORD environment variable, never from flags.
This command is idempotent - an existing account with the same email is
left untouched.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProvision(cmd, args, cfg)
		},
	}

	cmd.Flags().StringVar(&cfg.email, "email", "", "admin email address (required)")
	cmd.Flags().StringVar(&cfg.fullName, "full-name", "LodgePost Admin", "admin display name")
	cmd.Flags().DurationVar(&cfg.timeout, "timeout", defaultProvisionTimeout, "timeout for database operations (e.g., 30s, 1m)")
	//nolint:errcheck // MarkFlagRequired only fails for unknown flag names
	cmd.MarkFlagRequired("email")

	return cmd
}

func runProvision(cmd *cobra.Command, _ []string, cfg *provisionConfig) error {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("DATABASE_URL environment variable is required")
	}

	password := os.Getenv("LODGEPOST_ADMIN_PASSWORD")
	if len(password) < auth.MinPasswordLength {
		return oops.Code("CONFIG_INVALID").
			Errorf("LODGEPOST_ADMIN_PASSWORD must be set and at least %d characters", auth.MinPasswordLength)
	}

	// Use cmd.Context() to respect SIGINT/SIGTERM signals
	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.timeout)
	defer cancel()

	cmd.Println("Connecting to database...")
	pool, err := store.Connect(ctx, databaseURL)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer pool.Close()

	hash, err := auth.NewArgon2idHasher().Hash(password)
	if err != nil {
		return oops.Code("PROVISION_FAILED").With("operation", "hash admin password").Wrap(err)
	}

	admin, err := auth.NewOwner(cfg.email, cfg.fullName, hash, auth.RoleAdmin, nil, nil)
	if err != nil {
		return oops.Code("PROVISION_FAILED").With("operation", "build admin account").Wrap(err)
	}

	if err := authpg.NewOwnerRepository(pool).Create(ctx, admin); err != nil {
		if errors.Is(err, auth.ErrDuplicateEmail) {
			cmd.Println("Admin account already exists, skipping")
			slog.Info("admin already provisioned", "email", admin.Email)
			return nil
		}
		return oops.Code("PROVISION_FAILED").With("operation", "create admin account").Wrap(err)
	}

	cmd.Printf("Created admin account: %s\n", admin.Email)
	slog.Info("admin account provisioned", "id", admin.ID, "email", admin.Email)
	return nil
}
