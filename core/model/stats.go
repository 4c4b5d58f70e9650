// Copyright 2025, the Vertimus contributors
// SPDX-License-Identifier: AGPL-3.0-only

package model

import (
	"slices"
	"time"
)

// PoFile is a snapshot of the counts of one generated or uploaded
// message file.
type PoFile struct {
	ID   ID
	Path string

	Translated   int
	Fuzzy        int
	Untranslated int

	TranslatedWords   int
	FuzzyWords        int
	UntranslatedWords int

	Figures []Figure
	Updated time.Time
}

// Total returns the number of messages of the file.
func (p *PoFile) Total() int {
	if p == nil {
		return 0
	}

	return p.Translated + p.Fuzzy + p.Untranslated
}

// TotalWords returns the number of words of the file.
func (p *PoFile) TotalWords() int {
	if p == nil {
		return 0
	}

	return p.TranslatedWords + p.FuzzyWords + p.UntranslatedWords
}

// SameCounts reports whether both snapshots carry identical numbers.
func (p *PoFile) SameCounts(o *PoFile) bool {
	if p == nil || o == nil {
		return p == o
	}

	return p.Translated == o.Translated && p.Fuzzy == o.Fuzzy && p.Untranslated == o.Untranslated &&
		p.TranslatedWords == o.TranslatedWords && p.FuzzyWords == o.FuzzyWords &&
		p.UntranslatedWords == o.UntranslatedWords
}

// FigureStats sums the figure flags of a documentation file.
func (p *PoFile) FigureStats() FigureCounts {
	var c FigureCounts

	if p == nil {
		return c
	}

	for _, f := range p.Figures {
		c.Total++

		switch {
		case f.Translated:
			c.Translated++
		case f.Fuzzy:
			c.Fuzzy++
		}
	}

	c.Untranslated = c.Total - c.Translated - c.Fuzzy

	return c
}

// Figure is an image referenced by a documentation message.
type Figure struct {
	Path       string `json:"path"`
	Hash       string `json:"hash,omitempty"`
	Translated bool   `json:"translated"`
	Fuzzy      bool   `json:"fuzzy"`
	// TranslatedFile is set when a localized copy exists in the checkout.
	TranslatedFile bool `json:"translatedFile"`
	// Identical flags a localized copy that is byte-identical to the original.
	Identical bool `json:"identical"`
}

// FigureCounts summarizes Figure flags.
type FigureCounts struct {
	Total, Translated, Fuzzy, Untranslated int
}

// Statistics is the current snapshot for one branch, domain and language.
// A nil LanguageID denotes the template row.
type Statistics struct {
	ID         ID
	BranchID   ID
	DomainID   ID
	LanguageID *ID
	FullPoID   *ID
	PartPoID   *ID
	Date       time.Time

	// Full and Part are loaded alongside the row when available.
	Full *PoFile
	Part *PoFile

	Information []Information
}

// IsTemplate reports whether s is the template row.
func (s *Statistics) IsTemplate() bool {
	return s.LanguageID == nil
}

// Summary returns the derived figures of the full file against total.
func (s *Statistics) Summary(total int) Summary {
	if s.Full == nil {
		return Figures(total, 0, 0)
	}

	return Figures(total, s.Full.Translated, s.Full.Fuzzy)
}

// PartSummary returns the derived figures of the reduced file, falling back
// to the full file.
func (s *Statistics) PartSummary(total int) Summary {
	switch {
	case s.Part != nil:
		return Figures(total, s.Part.Translated, s.Part.Fuzzy)
	case s.Full != nil:
		return Figures(total, s.Full.Translated, s.Full.Fuzzy)
	default:
		return Figures(total, 0, 0)
	}
}

// HasExternalProblem reports whether an external diagnostic forces a recheck.
func (s *Statistics) HasExternalProblem() bool {
	return slices.ContainsFunc(s.Information, func(i Information) bool {
		return i.Kind.IsExternal()
	})
}

// Headline returns the most severe diagnostic, if any.
func (s *Statistics) Headline() (Information, bool) {
	return MostImportant(s.Information)
}

// InformationKind classifies a diagnostic.
type InformationKind string

const (
	InfoKind          InformationKind = "info"
	WarnKind          InformationKind = "warn"
	ErrorKind         InformationKind = "error"
	WarnExternalKind  InformationKind = "warn-ext"
	ErrorExternalKind InformationKind = "error-ext"
)

// Severity orders kinds; external variants rank with their base kind.
func (k InformationKind) Severity() int {
	switch k {
	case ErrorKind, ErrorExternalKind:
		return 3
	case WarnKind, WarnExternalKind:
		return 2
	case InfoKind:
		return 1
	default:
		return 0
	}
}

// IsExternal reports whether the issue originates outside the file content.
func (k InformationKind) IsExternal() bool {
	return k == WarnExternalKind || k == ErrorExternalKind
}

// Information is a diagnostic attached to a Statistics row.
type Information struct {
	ID           ID
	StatisticsID ID
	Kind         InformationKind
	Description  string
}

// Problem is a diagnostic not yet attached to any row.
type Problem struct {
	Kind        InformationKind
	Description string
}

// Info builds an Information from the problem.
func (p Problem) Info() Information {
	return Information{Kind: p.Kind, Description: p.Description}
}

// MostImportant picks the most severe diagnostic. Ties keep the first one.
func MostImportant(infos []Information) (Information, bool) {
	if len(infos) == 0 {
		return Information{}, false
	}

	best := infos[0]

	for _, i := range infos[1:] {
		if i.Kind.Severity() > best.Kind.Severity() {
			best = i
		}
	}

	return best, true
}
