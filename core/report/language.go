// Copyright 2025, the Vertimus contributors
// SPDX-License-Identifier: AGPL-3.0-only

package report

import (
	"cmp"
	"context"
	"slices"

	"codeberg.org/vertimus/vertimus/core/model"
)

// DomainLine is the progress of one language on one domain.
type DomainLine struct {
	Domain   model.Domain
	Summary  model.Summary
	Headline *model.Information
}

// ModuleLine groups the domains of one type of a module branch.
type ModuleLine struct {
	Module  model.Module
	Branch  model.Branch
	Domains []DomainLine
	// Summary is set when the module has more than one domain of the type.
	Summary *model.Summary
}

// CategoryLine groups modules of a release category.
type CategoryLine struct {
	Name    string
	Summary model.Summary
	Modules []ModuleLine
}

// TypeReport is the progress of a language on one domain type.
type TypeReport struct {
	Summary    model.Summary
	Categories []CategoryLine
}

// LanguageReport details the progress of a language in a release.
type LanguageReport struct {
	Language model.Language
	UI       TypeReport
	Doc      TypeReport
}

// ReleaseLanguageStats breaks the progress of a language in a release down
// by category, module and domain.
func (r *Reporter) ReleaseLanguageStats(ctx context.Context, releaseID, languageID model.ID) (*LanguageReport, error) {
	lang, err := r.store.GetLanguage(ctx, languageID)
	if err != nil {
		return nil, err
	}

	s, err := r.loadRelease(ctx, releaseID)
	if err != nil {
		return nil, err
	}

	return &LanguageReport{
		Language: *lang,
		UI:       s.typeReport(lang.ID, model.DomainUI),
		Doc:      s.typeReport(lang.ID, model.DomainDoc),
	}, nil
}

func (s *snapshot) typeReport(languageID model.ID, dtype model.DomainType) TypeReport {
	var report TypeReport

	byName := map[string]*CategoryLine{}

	for _, c := range s.categories {
		branch := s.branches[c.BranchID]
		module := s.modules[branch.ModuleID]

		line := s.moduleLine(module, branch, languageID, dtype)
		if len(line.Domains) == 0 {
			continue
		}

		cat, ok := byName[c.Name]
		if !ok {
			cat = &CategoryLine{Name: c.Name}
			byName[c.Name] = cat
		}

		for _, d := range line.Domains {
			cat.Summary = cat.Summary.Add(d.Summary)
		}

		cat.Modules = append(cat.Modules, line)
	}

	for _, cat := range byName {
		slices.SortFunc(cat.Modules, func(a, b ModuleLine) int {
			return cmp.Compare(a.Module.Name, b.Module.Name)
		})

		report.Summary = report.Summary.Add(cat.Summary)
		report.Categories = append(report.Categories, *cat)
	}

	slices.SortFunc(report.Categories, func(a, b CategoryLine) int {
		return cmp.Compare(categoryRank(a.Name), categoryRank(b.Name))
	})

	return report
}

func categoryRank(name string) int {
	if i := slices.Index(model.CategoryNames, name); i >= 0 {
		return i
	}

	return len(model.CategoryNames)
}

func (s *snapshot) moduleLine(module *model.Module, branch *model.Branch, languageID model.ID, dtype model.DomainType) ModuleLine {
	line := ModuleLine{Module: *module, Branch: *branch}

	var sum model.Summary

	for key, pot := range s.templates {
		if key.branch != branch.ID {
			continue
		}

		d := s.domains[key.domain]
		if d == nil || d.Type != dtype {
			continue
		}

		dl := DomainLine{Domain: *d, Summary: model.Figures(pot.Full.Total(), 0, 0)}

		if st, ok := s.byLanguage[languageID][key]; ok {
			dl.Summary = st.Summary(pot.Full.Total())

			if h, ok := st.Headline(); ok {
				dl.Headline = &h
			}
		}

		sum = sum.Add(dl.Summary)
		line.Domains = append(line.Domains, dl)
	}

	slices.SortFunc(line.Domains, func(a, b DomainLine) int {
		return cmp.Compare(a.Domain.Name, b.Domain.Name)
	})

	if len(line.Domains) > 1 {
		line.Summary = &sum
	}

	return line
}
