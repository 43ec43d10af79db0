package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the LodgePost CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lodgepost",
		Short: "LodgePost - property listing platform auth server",
		Long: `LodgePost is a multi-tenant property-listing platform. This binary
runs the authentication and session lifecycle service: owner login,
refresh token rotation, lockout tracking, and session administration.`,
	}

	// Global flag for config file path
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	// Add subcommands
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewProvisionCmd())

	return cmd
}
