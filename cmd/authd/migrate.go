// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"strconv"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/authd/internal/store"
)

// migratorFactory is replaced in tests.
var migratorFactory = func(url string) (Migrator, error) {
	return store.NewMigrator(url)
}

// NewMigrateCmd creates the migrate subcommand and its children.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
		Long:  `Apply, revert and inspect the embedded PostgreSQL schema migrations.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE:  withMigrator(runMigrateUp),
	})

	var yes bool
	down := &cobra.Command{
		Use:   "down",
		Short: "Revert all migrations (drops all users)",
		Args:  cobra.NoArgs,
		RunE: withMigrator(func(cmd *cobra.Command, m Migrator, _ []string) error {
			return runMigrateDown(cmd, m, yes)
		}),
	}
	down.Flags().BoolVar(&yes, "yes", false, "confirm that all data will be lost")
	cmd.AddCommand(down)

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the applied version and pending migrations",
		Args:  cobra.NoArgs,
		RunE:  withMigrator(runMigrateStatus),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		Args:  cobra.NoArgs,
		RunE:  withMigrator(runMigrateVersion),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "force VERSION",
		Short: "Mark VERSION as applied and clear the dirty flag",
		Args:  cobra.ExactArgs(1),
		RunE:  withMigrator(runMigrateForce),
	})

	return cmd
}

// withMigrator loads config, opens a migrator for the configured database,
// runs fn, and closes the migrator.
func withMigrator(fn func(cmd *cobra.Command, m Migrator, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cfg.Database.URL == "" {
			return oops.Code("CONFIG_INVALID").
				With("key", "database.url").
				Errorf("database url is required for migrations")
		}

		m, err := migratorFactory(cfg.Database.URL)
		if err != nil {
			return oops.Code("DB_CONNECT_FAILED").With("operation", "create migrator").Wrap(err)
		}
		defer func() {
			if closeErr := m.Close(); closeErr != nil && err == nil {
				err = closeErr
			}
		}()

		return fn(cmd, m, args)
	}
}

func runMigrateUp(cmd *cobra.Command, m Migrator, _ []string) error {
	pending, err := m.PendingMigrations()
	if err != nil {
		return err //nolint:wrapcheck // already coded
	}
	if len(pending) == 0 {
		cmd.Println("No pending migrations")
		return nil
	}

	cmd.Printf("Applying %d migration(s)...\n", len(pending))
	if err := m.Up(); err != nil {
		return err //nolint:wrapcheck // already coded
	}

	version, _, err := m.Version()
	if err != nil {
		return err //nolint:wrapcheck // already coded
	}
	cmd.Printf("Schema is at version %d\n", version)
	return nil
}

func runMigrateDown(cmd *cobra.Command, m Migrator, yes bool) error {
	if !yes {
		return oops.Code("CONFIRMATION_REQUIRED").
			Errorf("migrate down drops every user; rerun with --yes to confirm")
	}
	if err := m.Down(); err != nil {
		return err //nolint:wrapcheck // already coded
	}
	cmd.Println("All migrations reverted")
	return nil
}

func runMigrateStatus(cmd *cobra.Command, m Migrator, _ []string) error {
	version, dirty, err := m.Version()
	if err != nil {
		return err //nolint:wrapcheck // already coded
	}
	pending, err := m.PendingMigrations()
	if err != nil {
		return err //nolint:wrapcheck // already coded
	}

	state := "clean"
	if dirty {
		state = "dirty (run migrate force after fixing the schema)"
	}
	cmd.Printf("Current version: %d\n", version)
	cmd.Printf("State: %s\n", state)

	if len(pending) == 0 {
		cmd.Println("Pending: none")
		return nil
	}
	cmd.Println("Pending:")
	for _, v := range pending {
		name, err := store.MigrationName(v)
		if err != nil {
			return err //nolint:wrapcheck // already coded
		}
		cmd.Printf("  %s\n", name)
	}
	return nil
}

func runMigrateVersion(cmd *cobra.Command, m Migrator, _ []string) error {
	version, dirty, err := m.Version()
	if err != nil {
		return err //nolint:wrapcheck // already coded
	}
	if dirty {
		cmd.Printf("%d (dirty)\n", version)
		return nil
	}
	cmd.Printf("%d\n", version)
	return nil
}

func runMigrateForce(cmd *cobra.Command, m Migrator, args []string) error {
	version, err := parseForceVersion(args[0])
	if err != nil {
		return err
	}
	if err := m.Force(version); err != nil {
		return err //nolint:wrapcheck // already coded
	}
	cmd.Printf("Forced schema version to %d\n", version)
	return nil
}

// parseForceVersion parses a non-negative schema version.
func parseForceVersion(s string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, oops.Code("INVALID_VERSION").With("input", s).Wrap(err)
	}
	if v < 0 {
		return 0, oops.Code("INVALID_VERSION").With("input", s).Errorf("version must be non-negative")
	}
	return v, nil
}
