// Copyright 2025, the Vertimus contributors
// SPDX-License-Identifier: AGPL-3.0-only

package stats

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"

	"codeberg.org/vertimus/vertimus/core/model"
	"codeberg.org/vertimus/vertimus/core/pofile"
)

var imageRe = regexp.MustCompile(`^@@image: '([^']+)'; md5=(\S+)$`)

// figures lists the images referenced by a documentation catalogue. With
// a locale, localized copies under dir/<locale> are compared with the
// originals under dir/C.
func figures(cat *pofile.Catalog, dir, locale string) ([]model.Figure, []model.Problem) {
	var (
		out      []model.Figure
		problems []model.Problem
	)

	for _, e := range cat.Active() {
		m := imageRe.FindStringSubmatch(e.ID)
		if m == nil {
			continue
		}

		fig := model.Figure{Path: m[1], Hash: m[2]}

		if locale != "" {
			fig.Translated = e.IsTranslated()
			fig.Fuzzy = e.IsFuzzy()

			translated, err := os.ReadFile(filepath.Join(dir, locale, fig.Path)) // #nosec G304 -- path inside a checkout
			if err == nil {
				fig.TranslatedFile = true

				original, err := os.ReadFile(filepath.Join(dir, "C", fig.Path)) // #nosec G304 -- path inside a checkout
				if err == nil && bytes.Equal(original, translated) {
					fig.Identical = true
					problems = append(problems, warnProblem(
						"Figure '%s' is identical to the original one, it is probably not translated.", fig.Path))
				}
			}
		}

		out = append(out, fig)
	}

	return out, problems
}
