// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/holomush/authd/internal/config"
	"github.com/holomush/authd/internal/logging"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the authd CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "authd",
		Short: "authd - user registration, sessions and password reset",
		Long: `authd is a small authentication service. It registers users with
salted password hashes, issues session ids, and runs token-based password resets.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (default $XDG_CONFIG_HOME/authd/authd.yaml)")
	config.RegisterGlobalFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewConfigCmd())

	return cmd
}

// loadConfig resolves the effective configuration for cmd.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	//nolint:wrapcheck // config errors already carry codes and context
	return config.Load(configFile, cmd.Flags())
}

// newLogger builds the process logger. A nil w writes to stderr.
func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	// Validate already rejected unknown levels.
	level, _ := logging.ParseLevel(cfg.Log.Level)
	return logging.Setup(logging.Options{
		Service: "authd",
		Version: version,
		Format:  cfg.Log.Format,
		Level:   level,
		Output:  w,
	})
}
