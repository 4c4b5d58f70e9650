// Copyright 2025, the Vertimus contributors
// SPDX-License-Identifier: AGPL-3.0-only

package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPercent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		part, total, want int
	}{
		{80, 100, 80},
		{0, 0, 0},
		{5, 0, 0},
		{2, 3, 66},
		{1, 3, 33},
		{3, 3, 100},
		{999, 1000, 99},
		{12, 10, 100},
		{-1, 10, 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Percent(tt.part, tt.total), "Percent(%d, %d)", tt.part, tt.total)
	}
}

func TestFiguresAddUp(t *testing.T) {
	t.Parallel()

	s := Figures(100, 80, 5)
	assert.Equal(t, 15, s.Untranslated)
	assert.Equal(t, 80, s.TrPercent)
	assert.Equal(t, 5, s.FuPercent)
	assert.Equal(t, 15, s.UnPercent)
	assert.Equal(t, s.Total, s.Translated+s.Fuzzy+s.Untranslated)

	sum := s.Add(Figures(50, 10, 0))
	assert.Equal(t, 150, sum.Total)
	assert.Equal(t, 90, sum.Translated)
	assert.Equal(t, 55, sum.Untranslated)
	assert.Equal(t, 60, sum.TrPercent)

	empty := Figures(0, 0, 0)
	assert.Zero(t, empty.TrPercent)
	assert.Zero(t, empty.UnPercent)
}

func TestFiguresBoundedByTotal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name                     string
		total, translated, fuzzy int
		wantTr, wantFu, wantUntr int
		wantTrPct                int
	}{
		{"translated above total", 10, 12, 0, 10, 0, 0, 100},
		{"fuzzy overflows", 10, 7, 6, 7, 3, 0, 70},
		{"template emptied", 0, 4, 1, 0, 0, 0, 0},
		{"within bounds", 10, 5, 2, 5, 2, 3, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := Figures(tt.total, tt.translated, tt.fuzzy)
			assert.Equal(t, tt.wantTr, s.Translated)
			assert.Equal(t, tt.wantFu, s.Fuzzy)
			assert.Equal(t, tt.wantUntr, s.Untranslated)
			assert.Equal(t, tt.wantTrPct, s.TrPercent)
			assert.Equal(t, s.Total, s.Translated+s.Fuzzy+s.Untranslated)

			for _, pct := range []int{s.TrPercent, s.FuPercent, s.UnPercent} {
				assert.GreaterOrEqual(t, pct, 0)
				assert.LessOrEqual(t, pct, 100)
			}
		})
	}
}

func TestDomainPotbase(t *testing.T) {
	t.Parallel()

	tests := []struct {
		domain, want string
	}{
		{"po", "gedit"},
		{"po-properties", "gedit-properties"},
		{"help", "gedit-help"},
		{"mallard", "mallard"},
	}

	for _, tt := range tests {
		d := Domain{Name: tt.domain}
		assert.Equal(t, tt.want, d.Potbase("gedit"))
	}
}

func TestSortBranches(t *testing.T) {
	t.Parallel()

	branches := []Branch{
		{Name: "gnome-3-8"},
		{Name: "gnome-3-10"},
		{Name: "master"},
		{Name: "gnome-2-30"},
	}

	SortBranches(branches)

	names := make([]string, 0, len(branches))
	for _, b := range branches {
		names = append(names, b.Name)
	}

	assert.Equal(t, []string{"master", "gnome-3-8", "gnome-3-10", "gnome-2-30"}, names)
}

func TestBugURLs(t *testing.T) {
	t.Parallel()

	m := Module{BugsBase: "https://bugzilla.gnome.org/", BugsProduct: "gedit", BugsComponent: "general"}
	assert.Equal(t, "https://bugzilla.gnome.org/enter_bug.cgi?component=general&product=gedit", m.BugsEnterURL())
	assert.Contains(t, m.BugsI18nURL(), "buglist.cgi?")
	assert.Contains(t, m.BugsI18nURL(), "keywords=I18N+L10N")

	other := Module{BugsBase: "https://gitlab.example.org/gedit/issues"}
	assert.Equal(t, other.BugsBase, other.BugsEnterURL())
	assert.Empty(t, other.BugsI18nURL())
}

func TestMostImportant(t *testing.T) {
	t.Parallel()

	_, ok := MostImportant(nil)
	assert.False(t, ok)

	infos := []Information{
		{Kind: InfoKind, Description: "a"},
		{Kind: WarnExternalKind, Description: "b"},
		{Kind: ErrorKind, Description: "c"},
		{Kind: ErrorExternalKind, Description: "d"},
	}

	best, ok := MostImportant(infos)
	assert.True(t, ok)
	assert.Equal(t, "c", best.Description)

	s := Statistics{Information: infos[:2]}
	assert.True(t, s.HasExternalProblem())

	h, _ := s.Headline()
	assert.Equal(t, "b", h.Description)
}

func TestRoleRank(t *testing.T) {
	t.Parallel()

	assert.True(t, RoleCoordinator.AtLeast(RoleCommitter))
	assert.True(t, RoleReviewer.AtLeast(RoleTranslator))
	assert.False(t, RoleTranslator.AtLeast(RoleReviewer))
	assert.False(t, RoleName("").AtLeast(RoleTranslator))
}

func TestFigureStats(t *testing.T) {
	t.Parallel()

	p := &PoFile{Figures: []Figure{
		{Path: "a.png", Translated: true},
		{Path: "b.png", Fuzzy: true},
		{Path: "c.png"},
	}}

	assert.Equal(t, FigureCounts{Total: 3, Translated: 1, Fuzzy: 1, Untranslated: 1}, p.FigureStats())
}
