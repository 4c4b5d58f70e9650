// Copyright 2025, the Vertimus contributors
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"codeberg.org/vertimus/vertimus/core/model"
	"codeberg.org/vertimus/vertimus/core/workflow"
	"codeberg.org/vertimus/vertimus/i18n"
)

const targetUse = "<module> <branch> <domain> <locale>"

func targetOf(args []string) target {
	return target{module: args[0], branch: args[1], domain: args[2], locale: args[3]}
}

func newActionsCmd(a *app) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "actions " + targetUse,
		Short: "List the workflow actions a person may apply",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			st, err := a.state(ctx, targetOf(args))
			if err != nil {
				return err
			}

			p, err := a.person(ctx, email)
			if err != nil {
				return err
			}

			actions, err := a.svc.Workflow.AvailableActions(ctx, st.ID, p)
			if err != nil {
				return err
			}

			printActions(i18n.WithLocale(ctx, args[3]), cmd.OutOrStdout(), st, actions)

			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "person", "p", "", "email of the acting person")
	_ = cmd.MarkFlagRequired("person")

	return cmd
}

func newApplyCmd(a *app) *cobra.Command {
	var email, comment, file string

	cmd := &cobra.Command{
		Use:   "apply " + targetUse + " <action>",
		Short: "Apply a workflow action",
		Long: `Apply a workflow action on behalf of a person.

Actions are given by code: WC, RT, UT, RP, UP, TC, CI, RC, IC, TR, AA or UNDO.
Upload actions (UT, UP) need --file.

Examples:
  vertimusctl apply gedit main po fr RT -p alice@example.org
  vertimusctl apply gedit main po fr UT -p alice@example.org -f fr.po -m "Ready"`,
		Args: cobra.ExactArgs(5),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			st, err := a.state(ctx, targetOf(args))
			if err != nil {
				return err
			}

			p, err := a.person(ctx, email)
			if err != nil {
				return err
			}

			after, err := a.svc.Workflow.Apply(ctx, workflow.Request{
				StateID: st.ID,
				Person:  p,
				Action:  model.ActionName(strings.ToUpper(args[4])),
				Comment: comment,
				File:    file,
			})
			if err != nil {
				return err
			}

			fmt.Fprint(cmd.OutOrStdout(), "New state: ")
			color.New(color.FgGreen, color.Bold).Fprintln(cmd.OutOrStdout(),
				workflow.StateLabel(i18n.WithLocale(ctx, args[3]), after.Name))

			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "person", "p", "", "email of the acting person")
	cmd.Flags().StringVarP(&comment, "comment", "m", "", "comment attached to the action")
	cmd.Flags().StringVarP(&file, "file", "f", "", "translation file attached to the action")
	_ = cmd.MarkFlagRequired("person")

	return cmd
}

func newHistoryCmd(a *app) *cobra.Command {
	var sequence int64

	cmd := &cobra.Command{
		Use:   "history " + targetUse,
		Short: "Print the actions of a state, or of one of its archived cycles",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			w := cmd.OutOrStdout()

			st, err := a.state(ctx, targetOf(args))
			if err != nil {
				return err
			}

			var seq *model.ID
			if sequence > 0 {
				id := model.ID(sequence)
				seq = &id
			}

			entries, err := a.svc.Workflow.ActionHistory(ctx, st.ID, seq)
			if err != nil {
				return err
			}

			people := map[model.ID]string{}

			for _, e := range entries {
				if _, ok := people[e.Action.PersonID]; ok {
					continue
				}

				p, err := a.svc.Store.GetPerson(ctx, e.Action.PersonID)
				if err != nil {
					return err
				}

				people[p.ID] = p.DisplayName()
			}

			printHistory(i18n.WithLocale(ctx, args[3]), w, people, entries)

			archived, err := a.svc.Workflow.ArchivedSequences(ctx, st.ID)
			if err != nil {
				return err
			}

			if len(archived) > 0 {
				mutedColor.Fprintf(w, "\nArchived cycles (use --sequence):")

				for _, id := range archived {
					mutedColor.Fprintf(w, " %d", id)
				}

				fmt.Fprintln(w)
			}

			return nil
		},
	}

	cmd.Flags().Int64VarP(&sequence, "sequence", "s", 0, "archived cycle to print")

	return cmd
}
