// Copyright 2025, the Vertimus contributors
// SPDX-License-Identifier: AGPL-3.0-only

package stats

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"codeberg.org/vertimus/vertimus/core/model"
)

// declared lists the languages a domain declares. A declaration that is
// not restricted accepts every language.
type declared struct {
	restricted bool
	langs      []string
	// missing describes a language absent from langs.
	missing string
}

func unrestricted() declared {
	return declared{}
}

// Check returns a problem when locale is not declared.
func (d declared) Check(locale string) (model.Problem, bool) {
	if !d.restricted || slices.Contains(d.langs, locale) {
		return model.Problem{}, false
	}

	return model.Problem{Kind: model.WarnExternalKind, Description: d.missing}, true
}

// declaredLanguages reads the language list of a domain. root is the
// checkout directory and dir the domain directory inside it.
func declaredLanguages(root, dir string, d *model.Domain) declared {
	if loc := d.LinguasLocation; loc != "" {
		return declaredByOverride(root, loc)
	}

	if d.Type == model.DomainDoc {
		return declaredDocLanguages(dir)
	}

	for _, path := range []string{filepath.Join(dir, "LINGUAS"), filepath.Join(root, "po", "LINGUAS")} {
		if langs, ok := readLinguasFile(path); ok {
			return declared{
				restricted: true,
				langs:      langs,
				missing:    "Entry for this language is not present in LINGUAS file.",
			}
		}
	}

	for _, name := range []string{"configure.ac", "configure.in"} {
		if langs, ok := readConfigureLinguas(filepath.Join(root, name)); ok {
			return declared{
				restricted: true,
				langs:      langs,
				missing:    "Entry for this language is not present in ALL_LINGUAS in configure file.",
			}
		}
	}

	return declared{
		restricted: true,
		missing:    "Don't know where to look if this language is actually used, ask the module maintainer.",
	}
}

func declaredByOverride(root, loc string) declared {
	if loc == "no" {
		return unrestricted()
	}

	if path, variable, ok := strings.Cut(loc, "#"); ok {
		return declared{
			restricted: true,
			langs:      strings.Fields(readMakefile(filepath.Join(root, path), variable, 0)),
			missing: fmt.Sprintf("Entry for this language is not present in %s variable in %s file.",
				variable, path),
		}
	}

	langs, _ := readLinguasFile(filepath.Join(root, loc))

	return declared{
		restricted: true,
		langs:      langs,
		missing:    fmt.Sprintf("Entry for this language is not present in %s file.", loc),
	}
}

func declaredDocLanguages(dir string) declared {
	if _, err := os.Stat(filepath.Join(dir, "Makefile.am")); err != nil {
		return unrestricted()
	}

	variable := "DOC_LINGUAS"
	if readMakefileVariable(dir, "HELP_ID") != "" {
		variable = "HELP_LINGUAS"
	}

	return declared{
		restricted: true,
		langs:      strings.Fields(readMakefileVariable(dir, variable)),
		missing:    fmt.Sprintf("%s list doesn't include this language.", variable),
	}
}
