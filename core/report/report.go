// Copyright 2025, the Vertimus contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package report rolls persisted statistics up per release, language,
category and branch.

All figures are derived from template totals: a language without a file
for some domain counts that domain's strings as untranslated, so every
Summary adds up to the release total.
*/
package report

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"codeberg.org/vertimus/vertimus/core/model"
	"codeberg.org/vertimus/vertimus/core/store"
)

// Totals is the number of template strings of a release per domain type.
type Totals struct {
	UI     int
	UIPart int
	Doc    int
}

// LanguageTotals is the progress of one language across a release.
type LanguageTotals struct {
	Language model.Language
	UI       model.Summary
	UIPart   model.Summary
	Doc      model.Summary
}

// Reporter computes rollups from a store.
type Reporter struct {
	store store.Store
}

// New returns a Reporter reading from st.
func New(st store.Store) *Reporter {
	return &Reporter{store: st}
}

type pair struct {
	branch, domain model.ID
}

// snapshot is everything a release rollup needs, loaded once.
type snapshot struct {
	categories []model.Category
	branches   map[model.ID]*model.Branch
	modules    map[model.ID]*model.Module
	domains    map[model.ID]*model.Domain
	templates  map[pair]*model.Statistics
	// byLanguage indexes language rows by language, then by pair.
	byLanguage map[model.ID]map[pair]*model.Statistics
}

func (r *Reporter) load(ctx context.Context, categories []model.Category) (*snapshot, error) {
	s := &snapshot{
		categories: categories,
		branches:   map[model.ID]*model.Branch{},
		modules:    map[model.ID]*model.Module{},
		domains:    map[model.ID]*model.Domain{},
		templates:  map[pair]*model.Statistics{},
		byLanguage: map[model.ID]map[pair]*model.Statistics{},
	}

	branchIDs := make([]model.ID, 0, len(categories))

	for _, c := range categories {
		b, err := r.store.GetBranch(ctx, c.BranchID)
		if err != nil {
			return nil, fmt.Errorf("failed to load branch %d: %w", c.BranchID, err)
		}

		s.branches[b.ID] = b
		branchIDs = append(branchIDs, b.ID)

		if _, ok := s.modules[b.ModuleID]; ok {
			continue
		}

		m, err := r.store.GetModule(ctx, b.ModuleID)
		if err != nil {
			return nil, fmt.Errorf("failed to load module %d: %w", b.ModuleID, err)
		}

		s.modules[m.ID] = m

		domains, err := r.store.ListDomains(ctx, m.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load domains of %s: %w", m.Name, err)
		}

		for i := range domains {
			s.domains[domains[i].ID] = &domains[i]
		}
	}

	rows, err := r.store.ListStatistics(ctx, branchIDs, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to load statistics: %w", err)
	}

	for i := range rows {
		st := &rows[i]
		key := pair{st.BranchID, st.DomainID}

		if st.IsTemplate() {
			s.templates[key] = st

			continue
		}

		m, ok := s.byLanguage[*st.LanguageID]
		if !ok {
			m = map[pair]*model.Statistics{}
			s.byLanguage[*st.LanguageID] = m
		}

		m[key] = st
	}

	return s, nil
}

func (r *Reporter) loadRelease(ctx context.Context, releaseID model.ID) (*snapshot, error) {
	categories, err := r.store.ListCategories(ctx, releaseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}

	return r.load(ctx, categories)
}

func (s *snapshot) domainType(domainID model.ID) model.DomainType {
	if d, ok := s.domains[domainID]; ok {
		return d.Type
	}

	return ""
}

func partTotal(st *model.Statistics) int {
	if st.Part != nil {
		return st.Part.Total()
	}

	return st.Full.Total()
}

func (s *snapshot) totals() Totals {
	var t Totals

	for key, st := range s.templates {
		switch s.domainType(key.domain) {
		case model.DomainUI:
			t.UI += st.Full.Total()
			t.UIPart += partTotal(st)
		case model.DomainDoc:
			t.Doc += st.Full.Total()
		}
	}

	return t
}

func (s *snapshot) languageTotals(lang model.Language) LanguageTotals {
	var trUI, fzUI, trPart, fzPart, trDoc, fzDoc int

	for key, st := range s.byLanguage[lang.ID] {
		if _, ok := s.templates[key]; !ok {
			continue
		}

		switch s.domainType(key.domain) {
		case model.DomainUI:
			full := st.Summary(0)
			part := st.PartSummary(0)
			trUI, fzUI = trUI+full.Translated, fzUI+full.Fuzzy
			trPart, fzPart = trPart+part.Translated, fzPart+part.Fuzzy
		case model.DomainDoc:
			full := st.Summary(0)
			trDoc, fzDoc = trDoc+full.Translated, fzDoc+full.Fuzzy
		}
	}

	t := s.totals()

	return LanguageTotals{
		Language: lang,
		UI:       model.Figures(t.UI, trUI, fzUI),
		UIPart:   model.Figures(t.UIPart, trPart, fzPart),
		Doc:      model.Figures(t.Doc, trDoc, fzDoc),
	}
}

// ReleaseTotals returns the template string totals of a release.
func (r *Reporter) ReleaseTotals(ctx context.Context, releaseID model.ID) (Totals, error) {
	s, err := r.loadRelease(ctx, releaseID)
	if err != nil {
		return Totals{}, err
	}

	return s.totals(), nil
}

// TotalForLanguage returns the progress of one language in a release.
func (r *Reporter) TotalForLanguage(ctx context.Context, releaseID, languageID model.ID) (LanguageTotals, error) {
	lang, err := r.store.GetLanguage(ctx, languageID)
	if err != nil {
		return LanguageTotals{}, err
	}

	s, err := r.loadRelease(ctx, releaseID)
	if err != nil {
		return LanguageTotals{}, err
	}

	return s.languageTotals(*lang), nil
}

// GlobalStats returns the progress of every language having at least one
// file in the release, best translated UI first, then best translated
// documentation, then by name.
func (r *Reporter) GlobalStats(ctx context.Context, releaseID model.ID) ([]LanguageTotals, error) {
	s, err := r.loadRelease(ctx, releaseID)
	if err != nil {
		return nil, err
	}

	languages, err := r.store.ListLanguages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load languages: %w", err)
	}

	out := make([]LanguageTotals, 0, len(s.byLanguage))

	for _, lang := range languages {
		if _, ok := s.byLanguage[lang.ID]; !ok {
			continue
		}

		out = append(out, s.languageTotals(lang))
	}

	slices.SortStableFunc(out, func(a, b LanguageTotals) int {
		if c := cmp.Compare(b.UI.Translated, a.UI.Translated); c != 0 {
			return c
		}

		if c := cmp.Compare(b.Doc.Translated, a.Doc.Translated); c != 0 {
			return c
		}

		return cmp.Compare(a.Language.Name, b.Language.Name)
	})

	return out, nil
}
