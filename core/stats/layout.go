// Copyright 2025, the Vertimus contributors
// SPDX-License-Identifier: AGPL-3.0-only

package stats

import (
	"path/filepath"
	"strings"

	"codeberg.org/vertimus/vertimus/core/model"
)

const reducedSuffix = ".reduced"

// Layout places generated files below a root directory:
// <root>/<module>.<branch>/[docs/]<potbase>.<branch>[.<locale>].po[t].
type Layout struct {
	Root string
}

// OutputDir returns the directory holding the generated files of a branch
// for one domain type.
func (l Layout) OutputDir(m *model.Module, b *model.Branch, t model.DomainType) string {
	dir := filepath.Join(l.Root, m.Name+"."+b.Name)
	if t == model.DomainDoc {
		dir = filepath.Join(dir, "docs")
	}

	return dir
}

// PotPath returns the last known good template of a domain.
func (l Layout) PotPath(m *model.Module, b *model.Branch, d *model.Domain) string {
	return filepath.Join(l.OutputDir(m, b, d.Type), model.PotFileName(d.Potbase(m.Name), b.Name, ""))
}

// PoPath returns the merged file of a language.
func (l Layout) PoPath(m *model.Module, b *model.Branch, d *model.Domain, locale string) string {
	return filepath.Join(l.OutputDir(m, b, d.Type), model.PotFileName(d.Potbase(m.Name), b.Name, locale))
}

// Reduced returns the path of the reduced file derived from path.
func Reduced(path string) string {
	ext := filepath.Ext(path)

	return strings.TrimSuffix(path, ext) + reducedSuffix + ext
}
