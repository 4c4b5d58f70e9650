// Copyright 2025, the Vertimus contributors
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"time"

	"github.com/spf13/cobra"
)

func newUpdateStatsCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "update-stats [module [branch]]",
		Short: "Recompute translation statistics",
		Long: `Recompute translation statistics of every module, of one module or of
one module branch.

Languages whose files did not change since the last run are skipped
unless --force is given.

Examples:
  vertimusctl update-stats
  vertimusctl update-stats gedit
  vertimusctl update-stats gedit main --force`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if len(args) == 0 {
				return a.svc.Engine.UpdateAll(ctx, force)
			}

			m, err := a.module(ctx, args[0])
			if err != nil {
				return err
			}

			if len(args) == 1 {
				return a.svc.Engine.UpdateModule(ctx, m, force)
			}

			b, err := a.branch(ctx, m, args[1])
			if err != nil {
				return err
			}

			outcomes, err := a.svc.Engine.UpdateBranch(ctx, b, force)
			printOutcomes(cmd.OutOrStdout(), outcomes)

			return err
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "recompute unchanged languages too")

	return cmd
}

func newMaintenanceCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run-maintenance",
		Short: "Purge expired archived actions and deactivate idle roles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.svc.Maintain(cmd.Context(), time.Now())
		},
	}
}
