// Copyright 2025, the Vertimus contributors
// SPDX-License-Identifier: AGPL-3.0-only

// Command vertimusctl runs statistics updates, maintenance and workflow
// actions against the Vertimus database from the command line.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"codeberg.org/vertimus/vertimus/config"
	"codeberg.org/vertimus/vertimus/core/audit"
	"codeberg.org/vertimus/vertimus/core/service"
	"codeberg.org/vertimus/vertimus/i18n"
)

// app carries the services opened for the running command.
type app struct {
	configPath string
	svc        *service.Service
	// opened is set when the services were opened by the command itself.
	opened bool
}

func main() {
	audit.SetDefaultLogger()

	if err := newRootCmd(&app{}).Execute(); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "vertimusctl",
		Short: "Operate the Vertimus translation statistics and workflow",
		Long: `vertimusctl works on the database of a Vertimus installation.

It reads the same configuration as the daemon: the file named by --config,
VERTIMUS_CONFIGFILE or ./config.yaml, then .env and VERTIMUS_* variables.`,
		Version:           config.BuildVersion,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.open,
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.close()
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "path to a Vertimus configuration file in YAML format")

	root.AddCommand(
		newUpdateStatsCmd(a),
		newMaintenanceCmd(a),
		newShowCmd(a),
		newActionsCmd(a),
		newApplyCmd(a),
		newHistoryCmd(a),
	)

	return root
}

func (a *app) open(cmd *cobra.Command, _ []string) error {
	if a.svc != nil {
		return nil
	}

	if err := config.Global.LoadFile(a.configPath); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := i18n.Setup(config.Global.Paths.LocaleDir); err != nil {
		return fmt.Errorf("failed to initialize i18n engine: %w", err)
	}

	svc, err := service.Open(cmd.Context(), &config.Global, service.Overrides{})
	if err != nil {
		return err
	}

	a.svc, a.opened = svc, true

	return nil
}

func (a *app) close() error {
	if !a.opened {
		return nil
	}

	a.opened = false

	return a.svc.Close()
}
