// Copyright 2025, the Vertimus contributors
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"codeberg.org/vertimus/vertimus/core/model"
	"codeberg.org/vertimus/vertimus/core/report"
	"codeberg.org/vertimus/vertimus/core/stats"
	"codeberg.org/vertimus/vertimus/core/workflow"
)

var (
	headerColor  = color.New(color.FgCyan, color.Bold)
	sectionColor = color.New(color.Bold)
	mutedColor   = color.New(color.FgHiBlack)
)

const rule = "--------------------------------------------------------------------------------"

// percentColor follows the usual progress colouring: green once a
// language is fully translated, yellow past half, red below.
func percentColor(p int) *color.Color {
	switch {
	case p >= 100:
		return color.New(color.FgGreen)
	case p >= 50:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgRed)
	}
}

func kindColor(k model.InformationKind) *color.Color {
	switch k {
	case model.ErrorKind, model.ErrorExternalKind:
		return color.New(color.FgRed)
	case model.WarnKind, model.WarnExternalKind:
		return color.New(color.FgYellow)
	default:
		return mutedColor
	}
}

func printHeader(w io.Writer, format string, a ...any) {
	headerColor.Fprintf(w, format+"\n", a...)
	fmt.Fprintln(w, rule)
}

// printSummary writes "translated/fuzzy/untranslated (pct%)" with the
// percentage coloured.
func printSummary(w io.Writer, s model.Summary) {
	fmt.Fprintf(w, "%5d %5d %5d  ", s.Translated, s.Fuzzy, s.Untranslated)
	percentColor(s.TrPercent).Fprintf(w, "%3d%%", s.TrPercent)
}

func printOutcomes(w io.Writer, outcomes []stats.Outcome) {
	printHeader(w, "%-30s %-26s %9s %7s", "Domain", "Template", "Languages", "Skipped")

	for _, o := range outcomes {
		change := o.Change.String()
		if o.Removed {
			change = "removed"
		}

		fmt.Fprintf(w, "%-30s %-26s %9d %7d\n", o.Domain, change, o.Languages, o.Skipped)

		for _, key := range o.Added {
			mutedColor.Fprintf(w, "    + %s\n", key)
		}
	}
}

func printRelease(w io.Writer, r *model.Release, totals report.Totals, languages []report.LanguageTotals) {
	sectionColor.Fprintf(w, "%s", r.Name)

	if r.StringFrozen {
		color.New(color.FgMagenta).Fprint(w, " (string freeze)")
	}

	fmt.Fprintf(w, "\nUI strings: %d (%d in reduced files), documentation strings: %d\n\n",
		totals.UI, totals.UIPart, totals.Doc)

	printHeader(w, "%-24s %-23s %-23s", "Language", "UI", "Documentation")

	for _, l := range languages {
		fmt.Fprintf(w, "%-24s ", l.Language.Name)
		printSummary(w, l.UI)
		fmt.Fprint(w, "  ")
		printSummary(w, l.Doc)
		fmt.Fprintln(w)
	}
}

func printLanguage(w io.Writer, rep *report.LanguageReport) {
	sectionColor.Fprintf(w, "%s (%s)\n", rep.Language.Name, rep.Language.Locale)

	for _, part := range []struct {
		title string
		rep   report.TypeReport
	}{
		{"User interface", rep.UI},
		{"Documentation", rep.Doc},
	} {
		fmt.Fprintln(w)
		printHeader(w, "%-40s %-23s", part.title, "")

		for _, c := range part.rep.Categories {
			sectionColor.Fprintf(w, "%-40s ", c.Name)
			printSummary(w, c.Summary)
			fmt.Fprintln(w)

			for _, m := range c.Modules {
				name := m.Module.Name + "." + m.Branch.Name
				if m.Summary != nil {
					fmt.Fprintf(w, "  %-38s ", name)
					printSummary(w, *m.Summary)
					fmt.Fprintln(w)
				}

				for _, d := range m.Domains {
					label := name
					if m.Summary != nil || len(m.Domains) > 1 {
						label = "    " + d.Domain.Name
					}

					fmt.Fprintf(w, "  %-38s ", label)
					printSummary(w, d.Summary)
					printHeadline(w, d.Headline)
					fmt.Fprintln(w)
				}
			}
		}

		fmt.Fprintf(w, "%-40s ", "Total")
		printSummary(w, part.rep.Summary)
		fmt.Fprintln(w)
	}
}

func printBranch(w io.Writer, m *model.Module, b *model.Branch, domains []report.DomainReport) {
	sectionColor.Fprintf(w, "%s %s\n", m.DisplayName(), b.Name)

	for _, d := range domains {
		fmt.Fprintln(w)

		total := 0
		if d.Template != nil && d.Template.Full != nil {
			total = d.Template.Full.Total()
		}

		printHeader(w, "%s (%s, %d strings)", d.Domain.Name, d.Domain.Type, total)

		if d.Template != nil {
			for _, info := range d.Template.Information {
				kindColor(info.Kind).Fprintf(w, "  %s: %s\n", info.Kind, firstLine(info.Description))
			}
		}

		for _, l := range d.Languages {
			fmt.Fprintf(w, "%-24s ", l.Language.Name)
			printSummary(w, l.Summary)
			printHeadline(w, l.Headline)
			fmt.Fprintln(w)
		}
	}
}

func printHeadline(w io.Writer, info *model.Information) {
	if info == nil {
		return
	}

	kindColor(info.Kind).Fprintf(w, "  [%s] %s", info.Kind, firstLine(info.Description))
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")

	return line
}

func printActions(ctx context.Context, w io.Writer, st *model.State, actions []model.ActionName) {
	fmt.Fprint(w, "State: ")
	sectionColor.Fprintln(w, workflow.StateLabel(ctx, st.Name))

	printHeader(w, "%-6s %s", "Code", "Action")

	for _, a := range actions {
		fmt.Fprintf(w, "%-6s %s\n", a, workflow.Description(ctx, a))
	}
}

func printHistory(ctx context.Context, w io.Writer, people map[model.ID]string, entries []workflow.HistoryEntry) {
	printHeader(w, "%-17s %-20s %s", "Date", "Person", "Action")

	for _, e := range entries {
		fmt.Fprintf(w, "%-17s %-20s %s\n",
			e.Action.Created.Format("2006-01-02 15:04"),
			people[e.Action.PersonID],
			workflow.Description(ctx, e.Action.Name))

		if e.Action.Comment != "" {
			for line := range strings.SplitSeq(e.Action.Comment, "\n") {
				mutedColor.Fprintf(w, "    %s\n", line)
			}
		}

		for _, f := range e.Files {
			file := f.File
			if f.MergedFile != "" {
				file = f.MergedFile
			}

			mutedColor.Fprintf(w, "    file: %s\n", file)
		}
	}
}
