// Copyright 2025, the Vertimus contributors
// SPDX-License-Identifier: AGPL-3.0-only

package model

// Percent returns 100*part/total using integer floor division, and 0 for
// an empty total. A part larger than total counts as total.
func Percent(part, total int) int {
	if total <= 0 || part <= 0 {
		return 0
	}

	return 100 * min(part, total) / total
}

// Summary holds display figures that always add up to the total.
type Summary struct {
	Total        int
	Translated   int
	Fuzzy        int
	Untranslated int

	TrPercent int
	FuPercent int
	UnPercent int
}

// Figures derives a Summary. Untranslated is computed from total rather
// than read from a counter. Counts of a file older than the template may
// exceed it and are capped: translated first, then fuzzy.
func Figures(total, translated, fuzzy int) Summary {
	total = max(total, 0)
	translated = min(max(translated, 0), total)
	fuzzy = min(max(fuzzy, 0), total-translated)
	un := total - translated - fuzzy

	return Summary{
		Total:        total,
		Translated:   translated,
		Fuzzy:        fuzzy,
		Untranslated: un,
		TrPercent:    Percent(translated, total),
		FuPercent:    Percent(fuzzy, total),
		UnPercent:    Percent(un, total),
	}
}

// Add accumulates o into s and recomputes percentages.
func (s Summary) Add(o Summary) Summary {
	return Figures(s.Total+o.Total, s.Translated+o.Translated, s.Fuzzy+o.Fuzzy)
}
