// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/holomush/authd/internal/config"
)

// NewConfigCmd creates the config subcommand.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration serve would run with, after applying defaults,
the config file and flags. The database password is masked.`,
		RunE: runConfig,
	}
	config.RegisterServeFlags(cmd.Flags())
	return cmd
}

func runConfig(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	out, err := cfg.YAML()
	if err != nil {
		return err //nolint:wrapcheck // already coded
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), string(out))
	return err //nolint:wrapcheck // stdout write
}
