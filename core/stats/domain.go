// Copyright 2025, the Vertimus contributors
// SPDX-License-Identifier: AGPL-3.0-only

package stats

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/otiai10/copy"

	"codeberg.org/vertimus/vertimus/core/model"
	"codeberg.org/vertimus/vertimus/core/pofile"
	"codeberg.org/vertimus/vertimus/core/potdiff"
	"codeberg.org/vertimus/vertimus/core/store"
)

// updateDomain runs a full update of one domain. Problems are recorded on
// the statistics rows; the returned error is only set when no template
// could be obtained or the store failed.
func (e *Engine) updateDomain(ctx context.Context, run *branchRun, d *model.Domain, force bool) (*Outcome, error) {
	m, b := run.module, run.branch
	out := &Outcome{Domain: d.Name}
	logger := e.logger.With().Str("module", m.Name).Str("branch", b.Name).Str("domain", d.Name).Logger()

	dir := filepath.Join(run.root, d.Directory)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		logger.Info().Str("dir", dir).Msg("Domain directory is gone, dropping its statistics")

		out.Removed = true

		return out, e.deleteStats(ctx, b, d, nil)
	}

	var problems []model.Problem

	if d.Type == model.DomainUI && d.PotMethod == "" {
		problems = append(problems, e.checkPotfiles(ctx, dir)...)
	}

	potfile, errs := e.generateTemplate(ctx, m, d, dir)
	problems = append(problems, errs...)

	previous := e.layout.PotPath(m, b, d)
	hasPrevious := exists(previous)

	if potfile == "" {
		if !hasPrevious {
			if err := e.recordProblems(ctx, b, d, nil, problems); err != nil {
				return out, err
			}

			return out, fmt.Errorf("%w: %s", ErrTemplateGeneration, d.Potbase(m.Name))
		}

		potfile = previous

		problems = append(problems, errorProblem("Can't generate POT file, using old one."))
	}

	out.Change = potdiff.ChangedWithAdditions

	if hasPrevious {
		out.Change = potdiff.NotChanged

		if potfile != previous {
			res, err := e.differ.Diff(previous, potfile)
			if err != nil {
				logger.Warn().Err(err).Msg("Could not compare templates")

				out.Change = potdiff.ChangedWithAdditions
			} else {
				out.Change, out.Added = res.Kind, res.Added
			}
		}

		if run.frozen && d.Type == model.DomainUI && out.Change == potdiff.ChangedWithAdditions && len(out.Added) > 0 {
			e.notifyAdditions(ctx, m, b, out.Added)
		}
	}

	pot := potfile

	if potfile != previous {
		if err := publish(potfile, previous); err != nil {
			logger.Warn().Err(err).Str("path", previous).Msg("Could not copy template")

			problems = append(problems, errorProblem("Can't copy new POT file to public location."))
		} else {
			pot = previous
		}
	}

	if err := e.updateTemplateRow(ctx, run, d, dir, pot, problems); err != nil {
		return out, err
	}

	if hasPrevious && out.Change == potdiff.ChangedWithAdditions && e.uploads != nil {
		if err := e.uploads.RefreshMergedFiles(ctx, b, d, pot); err != nil {
			logger.Warn().Err(err).Msg("Could not refresh uploaded files")
		}
	}

	decl := declaredLanguages(run.root, dir, d)

	files, err := languageFiles(d, dir)
	if err != nil {
		logger.Warn().Err(err).Msg("Could not list language files")
	}

	present := make(map[string]bool, len(files))

	for _, lf := range files {
		present[lf.locale] = true

		skipped, err := e.updateLanguage(ctx, languageRun{
			branchRun: run, domain: d, dir: dir, pot: pot, file: lf, decl: decl, change: out.Change, force: force,
		})

		switch {
		case err != nil:
			logger.Warn().Err(err).Str("lang", lf.locale).Msg("Language update failed")
		case skipped:
			out.Skipped++
		default:
			out.Languages++
		}
	}

	if err := e.deleteStats(ctx, b, d, present); err != nil {
		logger.Warn().Err(err).Msg("Could not delete statistics of vanished languages")
	}

	logger.Debug().
		Stringer("change", out.Change).
		Int("added", len(out.Added)).
		Int("languages", out.Languages).
		Int("skipped", out.Skipped).
		Msg("Updated domain")

	return out, nil
}

// publish copies a fresh template to its public location.
func publish(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	return copy.Copy(src, dst)
}

func (e *Engine) updateTemplateRow(ctx context.Context, run *branchRun, d *model.Domain, dir, pot string, problems []model.Problem) error {
	counts, err := e.counter.Count(ctx, pot, false)
	if counts == nil {
		return fmt.Errorf("failed to count %s: %w", pot, err)
	}

	problems = append(problems, counts.Errors...)
	full := counts.PoFile(pot)

	var part *model.PoFile

	switch d.Type {
	case model.DomainDoc:
		if cat, err := pofile.ParseFile(pot); err == nil {
			full.Figures, _ = figures(cat, dir, "")
		}
	case model.DomainUI:
		var reduceProblems []model.Problem

		part, reduceProblems = e.reducedFile(ctx, d, pot, full)
		problems = append(problems, reduceProblems...)
	}

	st := &model.Statistics{
		BranchID:    run.branch.ID,
		DomainID:    d.ID,
		Full:        full,
		Part:        part,
		Information: infos(problems),
	}

	existing, err := e.existing(ctx, run.branch, d, nil)
	if err != nil {
		return err
	}

	return e.saveRow(ctx, existing, st, counts.Trusted)
}

// reducedFile writes the reduced version of the file at path and counts
// it. When the filter removes nothing countable, full is returned so the
// row links one snapshot twice.
func (e *Engine) reducedFile(ctx context.Context, d *model.Domain, path string, full *model.PoFile) (*model.PoFile, []model.Problem) {
	patterns := filterPatterns(d.RedFilter)
	if len(patterns) == 0 {
		return full, nil
	}

	reduced := Reduced(path)

	cat, err := pofile.ParseFile(path)
	if err == nil {
		err = reduce(cat, patterns).WriteFile(reduced)
	}

	if err != nil {
		return full, []model.Problem{warnProblem("Unable to build the reduced file: %s", err)}
	}

	counts, err := e.counter.Count(ctx, reduced, false)
	if err != nil || !counts.Trusted {
		return full, []model.Problem{warnProblem("Unable to count the reduced file %s.", filepath.Base(reduced))}
	}

	part := counts.PoFile(reduced)
	if part.SameCounts(full) {
		_ = os.Remove(reduced)

		return full, nil
	}

	return part, nil
}

func infos(problems []model.Problem) []model.Information {
	if len(problems) == 0 {
		return nil
	}

	out := make([]model.Information, 0, len(problems))
	for _, p := range problems {
		out = append(out, p.Info())
	}

	return out
}

func (e *Engine) existing(ctx context.Context, b *model.Branch, d *model.Domain, languageID *model.ID) (*model.Statistics, error) {
	st, err := e.store.GetStatistics(ctx, b.ID, d.ID, languageID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}

	return st, err
}

// saveRow stores st in place of existing. Untrusted counts never replace
// stored ones: the previous snapshots are kept and only the diagnostics
// change.
func (e *Engine) saveRow(ctx context.Context, existing, st *model.Statistics, trusted bool) error {
	var orphan model.ID

	switch {
	case !trusted && existing != nil:
		st.ID = existing.ID
		st.Full, st.Part = existing.Full, existing.Part
	case !trusted:
		st.Full, st.Part = nil, nil
	case existing != nil:
		st.ID = existing.ID

		if existing.Full != nil && st.Full != nil {
			st.Full.ID = existing.Full.ID
		}

		if existing.Part != nil && existing.Part != existing.Full {
			if st.Part != nil && st.Part != st.Full {
				st.Part.ID = existing.Part.ID
			} else {
				orphan = existing.Part.ID
			}
		}
	}

	return e.store.InTx(ctx, func(tx store.Store) error {
		if st.Full != nil {
			if err := tx.SavePoFile(ctx, st.Full); err != nil {
				return err
			}
		}

		if st.Part != nil && st.Part != st.Full {
			if err := tx.SavePoFile(ctx, st.Part); err != nil {
				return err
			}
		}

		if err := tx.SaveStatistics(ctx, st); err != nil {
			return err
		}

		if orphan != 0 {
			return tx.DeletePoFile(ctx, orphan)
		}

		return nil
	})
}

// recordProblems replaces the diagnostics of a row, keeping its counts.
func (e *Engine) recordProblems(ctx context.Context, b *model.Branch, d *model.Domain, languageID *model.ID, problems []model.Problem) error {
	existing, err := e.existing(ctx, b, d, languageID)
	if err != nil {
		return err
	}

	st := &model.Statistics{BranchID: b.ID, DomainID: d.ID, LanguageID: languageID, Information: infos(problems)}

	return e.saveRow(ctx, existing, st, false)
}

// deleteStats removes the rows of a domain whose language is not in keep,
// together with their generated files. A nil keep removes every row,
// the template row included.
func (e *Engine) deleteStats(ctx context.Context, b *model.Branch, d *model.Domain, keep map[string]bool) error {
	rows, err := e.store.ListStatistics(ctx, []model.ID{b.ID}, d.ID)
	if err != nil {
		return err
	}

	for i := range rows {
		st := &rows[i]

		if keep != nil {
			if st.IsTemplate() {
				continue
			}

			lang, err := e.store.GetLanguage(ctx, *st.LanguageID)
			if err != nil {
				return err
			}

			if keep[lang.Locale] {
				continue
			}
		}

		if err := e.store.DeleteStatistics(ctx, st.ID); err != nil {
			return err
		}

		for _, p := range []*model.PoFile{st.Full, st.Part} {
			if p != nil && p.Path != "" {
				_ = os.Remove(p.Path)
			}
		}
	}

	return nil
}
