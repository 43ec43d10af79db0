// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LodgePost Contributors

package main

import (
	"os"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/lodgepost/lodgepost/internal/store"
)

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long:  `Apply, roll back, or inspect schema migrations against the PostgreSQL database.`,
		RunE:  runMigrateUp,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE:  runMigrateUp,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		RunE:  runMigrateDown,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		RunE:  runMigrateStatus,
	})

	return cmd
}

// openMigrator builds a Migrator from the DATABASE_URL environment variable.
func openMigrator() (*store.Migrator, error) {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return nil, oops.Code("CONFIG_INVALID").Errorf("DATABASE_URL environment variable is required")
	}
	return store.NewMigrator(databaseURL)
}

func runMigrateUp(cmd *cobra.Command, _ []string) error {
	migrator, err := openMigrator()
	if err != nil {
		return err
	}
	defer migrator.Close()

	cmd.Println("Running migrations...")
	if err := migrator.Up(); err != nil {
		return oops.With("operation", "run migrations").Wrap(err)
	}

	cmd.Println("Migrations completed successfully")
	return nil
}

func runMigrateDown(cmd *cobra.Command, _ []string) error {
	migrator, err := openMigrator()
	if err != nil {
		return err
	}
	defer migrator.Close()

	cmd.Println("Rolling back one migration...")
	if err := migrator.Steps(-1); err != nil {
		return oops.With("operation", "roll back migration").Wrap(err)
	}

	cmd.Println("Rollback completed successfully")
	return nil
}

func runMigrateStatus(cmd *cobra.Command, _ []string) error {
	migrator, err := openMigrator()
	if err != nil {
		return err
	}
	defer migrator.Close()

	applied, err := migrator.AppliedMigrations()
	if err != nil {
		return oops.Code("MIGRATION_STATUS_FAILED").Wrap(err)
	}
	pending, err := migrator.PendingMigrations()
	if err != nil {
		return oops.Code("MIGRATION_STATUS_FAILED").Wrap(err)
	}

	printMigrations := func(label string, versions []uint) error {
		cmd.Printf("%s (%d):\n", label, len(versions))
		for _, version := range versions {
			name, nameErr := store.MigrationName(version)
			if nameErr != nil {
				return oops.Code("MIGRATION_STATUS_FAILED").With("version", version).Wrap(nameErr)
			}
			cmd.Printf("  %s\n", name)
		}
		return nil
	}

	if err := printMigrations("Applied", applied); err != nil {
		return err
	}
	return printMigrations("Pending", pending)
}
