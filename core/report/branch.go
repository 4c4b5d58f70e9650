// Copyright 2025, the Vertimus contributors
// SPDX-License-Identifier: AGPL-3.0-only

package report

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"codeberg.org/vertimus/vertimus/core/model"
)

// LanguageLine is the progress of one language on a domain of a branch.
type LanguageLine struct {
	Language model.Language
	Summary  model.Summary
	Part     model.Summary
	Words    model.Summary
	Headline *model.Information
}

// DomainReport is the state of one domain of a branch.
type DomainReport struct {
	Domain    model.Domain
	Template  *model.Statistics
	Languages []LanguageLine
}

// BranchStats reports every domain of a branch with its languages, the
// best translated first.
func (r *Reporter) BranchStats(ctx context.Context, branchID model.ID) ([]DomainReport, error) {
	branch, err := r.store.GetBranch(ctx, branchID)
	if err != nil {
		return nil, err
	}

	domains, err := r.store.ListDomains(ctx, branch.ModuleID)
	if err != nil {
		return nil, fmt.Errorf("failed to load domains: %w", err)
	}

	rows, err := r.store.ListStatistics(ctx, []model.ID{branchID}, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to load statistics: %w", err)
	}

	languages := map[model.ID]*model.Language{}

	out := make([]DomainReport, 0, len(domains))

	for _, d := range domains {
		dr := DomainReport{Domain: d}

		for i := range rows {
			if rows[i].DomainID == d.ID && rows[i].IsTemplate() {
				dr.Template = &rows[i]
			}
		}

		if dr.Template == nil {
			continue
		}

		total, words, part := dr.Template.Full.Total(), dr.Template.Full.TotalWords(), partTotal(dr.Template)

		for i := range rows {
			st := &rows[i]
			if st.DomainID != d.ID || st.IsTemplate() {
				continue
			}

			lang, ok := languages[*st.LanguageID]
			if !ok {
				if lang, err = r.store.GetLanguage(ctx, *st.LanguageID); err != nil {
					return nil, err
				}

				languages[lang.ID] = lang
			}

			ll := LanguageLine{
				Language: *lang,
				Summary:  st.Summary(total),
				Part:     st.PartSummary(part),
			}

			if st.Full != nil {
				ll.Words = model.Figures(words, st.Full.TranslatedWords, st.Full.FuzzyWords)
			}

			if h, ok := st.Headline(); ok {
				ll.Headline = &h
			}

			dr.Languages = append(dr.Languages, ll)
		}

		slices.SortStableFunc(dr.Languages, func(a, b LanguageLine) int {
			if c := cmp.Compare(b.Summary.Translated, a.Summary.Translated); c != 0 {
				return c
			}

			return cmp.Compare(a.Language.Name, b.Language.Name)
		})

		out = append(out, dr)
	}

	slices.SortFunc(out, func(a, b DomainReport) int {
		if c := cmp.Compare(typeRank(a.Domain.Type), typeRank(b.Domain.Type)); c != 0 {
			return c
		}

		return cmp.Compare(a.Domain.Name, b.Domain.Name)
	})

	return out, nil
}

func typeRank(t model.DomainType) int {
	if t == model.DomainUI {
		return 0
	}

	return 1
}
