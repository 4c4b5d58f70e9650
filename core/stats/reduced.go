// Copyright 2025, the Vertimus contributors
// SPDX-License-Identifier: AGPL-3.0-only

package stats

import (
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"codeberg.org/vertimus/vertimus/core/pofile"
)

var lineSuffixRe = regexp.MustCompile(`:\d+$`)

// filterPatterns splits a reduced-file filter into glob patterns. Blank
// lines, comments and invalid patterns are dropped.
func filterPatterns(filter string) []string {
	var out []string

	for line := range strings.SplitSeq(filter, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || !doublestar.ValidatePattern(line) {
			continue
		}

		out = append(out, line)
	}

	return out
}

// reduce drops the messages having a reference matched by one of the
// patterns.
func reduce(cat *pofile.Catalog, patterns []string) *pofile.Catalog {
	return cat.Filter(func(e *pofile.Entry) bool {
		for _, ref := range e.References {
			for _, tok := range strings.Fields(ref) {
				path := lineSuffixRe.ReplaceAllString(tok, "")

				for _, p := range patterns {
					if ok, _ := doublestar.Match(p, path); ok {
						return false
					}
				}
			}
		}

		return true
	})
}
