// Copyright 2025, the Vertimus contributors
// SPDX-License-Identifier: AGPL-3.0-only

package stats

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"codeberg.org/vertimus/vertimus/core/model"
	"codeberg.org/vertimus/vertimus/core/pofile"
	"codeberg.org/vertimus/vertimus/core/potdiff"
	"codeberg.org/vertimus/vertimus/core/shell"
	"codeberg.org/vertimus/vertimus/core/store"
	"codeberg.org/vertimus/vertimus/i18n"
)

type langFile struct {
	locale string
	path   string
}

// languageFiles lists the translations of a domain: <locale>.po files for
// UI domains and <locale>/<locale>.po for documentation. Names that are
// not locale codes are ignored.
func languageFiles(d *model.Domain, dir string) ([]langFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var out []langFile

	for _, entry := range entries {
		var lf langFile

		switch d.Type {
		case model.DomainDoc:
			if !entry.IsDir() || entry.Name() == "C" {
				continue
			}

			lf = langFile{locale: entry.Name(), path: filepath.Join(dir, entry.Name(), entry.Name()+".po")}
			if !exists(lf.path) {
				continue
			}
		default:
			locale, ok := strings.CutSuffix(entry.Name(), ".po")
			if !ok || entry.IsDir() {
				continue
			}

			lf = langFile{locale: locale, path: filepath.Join(dir, entry.Name())}
		}

		if _, err := i18n.ParseLocale(lf.locale); err != nil {
			continue
		}

		out = append(out, lf)
	}

	slices.SortFunc(out, func(a, b langFile) int { return cmp.Compare(a.locale, b.locale) })

	return out, nil
}

// language returns the language of locale, registering unknown ones.
func (e *Engine) language(ctx context.Context, locale string) (*model.Language, error) {
	lang, err := e.store.GetLanguageByLocale(ctx, locale)
	if !errors.Is(err, store.ErrNotFound) {
		return lang, err
	}

	lang = &model.Language{Name: i18n.DisplayName(locale), Locale: locale}
	if lang.Name == "" {
		lang.Name = locale
	}

	if err := e.store.CreateLanguage(ctx, lang); err != nil {
		// Another module may have registered it meanwhile.
		if existing, getErr := e.store.GetLanguageByLocale(ctx, locale); getErr == nil {
			return existing, nil
		}

		return nil, err
	}

	e.logger.Info().Str("lang", locale).Msg("Registered new language")

	return lang, nil
}

type languageRun struct {
	*branchRun

	domain *model.Domain
	dir    string
	pot    string
	file   langFile
	decl   declared
	change potdiff.Kind
	force  bool
}

// newer reports whether path was modified after than.
func newer(path, than string) bool {
	a, err := os.Stat(path)
	if err != nil {
		return false
	}

	b, err := os.Stat(than)
	if err != nil {
		return false
	}

	return a.ModTime().After(b.ModTime())
}

// updateLanguage merges one translation against the template and stores
// its counts. It reports whether the language was left untouched because
// neither the template nor the translation changed.
func (e *Engine) updateLanguage(ctx context.Context, lr languageRun) (bool, error) {
	m, b, d := lr.module, lr.branch, lr.domain

	lang, err := e.language(ctx, lr.file.locale)
	if err != nil {
		return false, err
	}

	existing, err := e.existing(ctx, b, d, &lang.ID)
	if err != nil {
		return false, err
	}

	outpo := e.layout.PoPath(m, b, d, lang.Locale)

	if !lr.force && lr.change.Unchanged() && existing != nil && !existing.HasExternalProblem() &&
		newer(outpo, lr.file.path) {
		return true, nil
	}

	if err := os.MkdirAll(filepath.Dir(outpo), 0o755); err != nil {
		return false, err
	}

	res, err := e.runner.Run(ctx, shell.Command{
		Program: "msgmerge",
		Args:    []string{"--previous", "-o", outpo, lr.file.path, lr.pot},
		Env:     map[string]string{"LC_ALL": "C"},
	})
	if err != nil || !res.OK() {
		output := ""
		if res != nil {
			output = res.CombinedOutput()
		} else if err != nil {
			output = err.Error()
		}

		problems := []model.Problem{errorProblem("Unable to merge %s with the template:\n%s",
			filepath.Base(lr.file.path), output)}

		return false, e.recordProblems(ctx, b, d, &lang.ID, problems)
	}

	counts, err := e.counter.Count(ctx, outpo, true)
	if counts == nil {
		return false, fmt.Errorf("failed to count %s: %w", outpo, err)
	}

	problems := slices.Clone(counts.Errors)
	full := counts.PoFile(outpo)

	var part *model.PoFile

	switch d.Type {
	case model.DomainDoc:
		if cat, err := pofile.ParseFile(outpo); err == nil {
			var figureProblems []model.Problem

			full.Figures, figureProblems = figures(cat, lr.dir, lang.Locale)
			problems = append(problems, figureProblems...)
		}
	case model.DomainUI:
		var reduceProblems []model.Problem

		part, reduceProblems = e.reducedFile(ctx, d, outpo, full)
		problems = append(problems, reduceProblems...)
	}

	if p, ok := lr.decl.Check(lang.Locale); ok {
		problems = append(problems, p)
	}

	st := &model.Statistics{
		BranchID:    b.ID,
		DomainID:    d.ID,
		LanguageID:  &lang.ID,
		Full:        full,
		Part:        part,
		Information: infos(problems),
	}

	return false, e.saveRow(ctx, existing, st, counts.Trusted)
}
