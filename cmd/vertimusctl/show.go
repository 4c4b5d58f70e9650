// Copyright 2025, the Vertimus contributors
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"github.com/spf13/cobra"
)

func newShowCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print statistics rollups",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "release <release>",
			Short: "Print the totals of a release and the progress of every language",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx := cmd.Context()

				r, err := a.release(ctx, args[0])
				if err != nil {
					return err
				}

				totals, err := a.svc.Reporter.ReleaseTotals(ctx, r.ID)
				if err != nil {
					return err
				}

				languages, err := a.svc.Reporter.GlobalStats(ctx, r.ID)
				if err != nil {
					return err
				}

				printRelease(cmd.OutOrStdout(), r, totals, languages)

				return nil
			},
		},
		&cobra.Command{
			Use:   "language <release> <locale>",
			Short: "Print the progress of a language in a release by category and module",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx := cmd.Context()

				r, err := a.release(ctx, args[0])
				if err != nil {
					return err
				}

				l, err := a.language(ctx, args[1])
				if err != nil {
					return err
				}

				rep, err := a.svc.Reporter.ReleaseLanguageStats(ctx, r.ID, l.ID)
				if err != nil {
					return err
				}

				printLanguage(cmd.OutOrStdout(), rep)

				return nil
			},
		},
		&cobra.Command{
			Use:   "branch <module> <branch>",
			Short: "Print every domain of a module branch with its languages",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx := cmd.Context()

				m, err := a.module(ctx, args[0])
				if err != nil {
					return err
				}

				b, err := a.branch(ctx, m, args[1])
				if err != nil {
					return err
				}

				domains, err := a.svc.Reporter.BranchStats(ctx, b.ID)
				if err != nil {
					return err
				}

				printBranch(cmd.OutOrStdout(), m, b, domains)

				return nil
			},
		},
	)

	return cmd
}
