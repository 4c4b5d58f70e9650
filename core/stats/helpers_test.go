// Copyright 2025, the Vertimus contributors
// SPDX-License-Identifier: AGPL-3.0-only

package stats

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/vertimus/vertimus/core/model"
	"codeberg.org/vertimus/vertimus/core/pofile"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLayout(t *testing.T) {
	t.Parallel()

	l := Layout{Root: "/srv/pot"}
	m := &model.Module{Name: "gedit"}
	b := &model.Branch{Name: "gnome-48"}

	ui := &model.Domain{Name: "po", Type: model.DomainUI}
	help := &model.Domain{Name: "help", Type: model.DomainDoc}

	assert.Equal(t, "/srv/pot/gedit.gnome-48/gedit.gnome-48.pot", l.PotPath(m, b, ui))
	assert.Equal(t, "/srv/pot/gedit.gnome-48/gedit.gnome-48.fr.po", l.PoPath(m, b, ui, "fr"))
	assert.Equal(t, "/srv/pot/gedit.gnome-48/docs/gedit-help.gnome-48.pot", l.PotPath(m, b, help))
	assert.Equal(t, "/srv/pot/gedit.gnome-48/gedit.gnome-48.fr.reduced.po", Reduced(l.PoPath(m, b, ui, "fr")))
}

func TestReadMakefileVariable(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "Makefile.am"), strings.Join([]string{
		"include $(top_srcdir)/gnome-doc-utils.make",
		"include common.am",
		"DOC_MODULE = gedit",
		"DOC_INCLUDES = \\",
		"\tlegal.xml \\",
		"\tfdl.xml",
		"",
	}, "\n"))
	writeFile(t, filepath.Join(dir, "common.am"), "HELP_ID = gedit\nHELP_LINGUAS = fr de\n")

	assert.Equal(t, "gedit", readMakefileVariable(dir, "DOC_MODULE"))
	assert.Equal(t, []string{"legal.xml", "fdl.xml"}, strings.Fields(readMakefileVariable(dir, "DOC_INCLUDES")))
	assert.Equal(t, "fr de", readMakefileVariable(dir, "HELP_LINGUAS"))
	assert.Empty(t, readMakefileVariable(dir, "DOC_LINGUAS"))
	assert.Empty(t, readMakefileVariable(t.TempDir(), "DOC_MODULE"))
}

func TestReadConfigureLinguas(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "configure.ac")
	writeFile(t, path, "AC_INIT([gedit])\nALL_LINGUAS=\"fr de\n  es\"\nAC_OUTPUT\n")

	langs, ok := readConfigureLinguas(path)
	require.True(t, ok)
	assert.Equal(t, []string{"fr", "de", "es"}, langs)

	writeFile(t, path, "AC_INIT([gedit])\n")

	_, ok = readConfigureLinguas(path)
	assert.False(t, ok)
}

func TestDeclaredLanguages(t *testing.T) {
	t.Parallel()

	ui := &model.Domain{Name: "po", Type: model.DomainUI, Directory: "po"}

	tests := []struct {
		name    string
		files   map[string]string
		domain  *model.Domain
		locale  string
		problem string
	}{
		{
			name:   "linguas file",
			files:  map[string]string{"po/LINGUAS": "# comment\nfr de\nes\n"},
			domain: ui,
			locale: "es",
		},
		{
			name:    "missing from linguas",
			files:   map[string]string{"po/LINGUAS": "fr\n"},
			domain:  ui,
			locale:  "de",
			problem: "Entry for this language is not present in LINGUAS file.",
		},
		{
			name:    "configure",
			files:   map[string]string{"configure.ac": "ALL_LINGUAS=\"fr\"\n"},
			domain:  ui,
			locale:  "de",
			problem: "Entry for this language is not present in ALL_LINGUAS in configure file.",
		},
		{
			name:    "nothing declared",
			domain:  ui,
			locale:  "fr",
			problem: "Don't know where to look if this language is actually used, ask the module maintainer.",
		},
		{
			name:   "override disabled",
			domain: &model.Domain{Type: model.DomainUI, Directory: "po", LinguasLocation: "no"},
			locale: "fr",
		},
		{
			name:    "override makefile variable",
			files:   map[string]string{"po/Makefile.am": "LANGS = fr\n"},
			domain:  &model.Domain{Type: model.DomainUI, Directory: "po", LinguasLocation: "po/Makefile.am#LANGS"},
			locale:  "de",
			problem: "Entry for this language is not present in LANGS variable in po/Makefile.am file.",
		},
		{
			name:   "doc without makefile",
			domain: &model.Domain{Type: model.DomainDoc, Directory: "help"},
			locale: "fr",
		},
		{
			name:    "doc help linguas",
			files:   map[string]string{"help/Makefile.am": "HELP_ID = gedit\nHELP_LINGUAS = de\n"},
			domain:  &model.Domain{Type: model.DomainDoc, Directory: "help"},
			locale:  "fr",
			problem: "HELP_LINGUAS list doesn't include this language.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			root := t.TempDir()
			for name, content := range tt.files {
				writeFile(t, filepath.Join(root, name), content)
			}

			decl := declaredLanguages(root, filepath.Join(root, tt.domain.Directory), tt.domain)

			p, ok := decl.Check(tt.locale)
			if tt.problem == "" {
				assert.False(t, ok)

				return
			}

			require.True(t, ok)
			assert.Equal(t, model.WarnExternalKind, p.Kind)
			assert.Equal(t, tt.problem, p.Description)
		})
	}
}

func TestFilterAndReduce(t *testing.T) {
	t.Parallel()

	patterns := filterPatterns("# schemas\ndata/*.gschema.xml.in\n\n  **/*.desktop.in  \n[invalid\n")
	assert.Equal(t, []string{"data/*.gschema.xml.in", "**/*.desktop.in"}, patterns)

	cat, err := pofile.Parse(strings.NewReader(`msgid ""
msgstr ""

#: src/window.c:12
msgid "Open"
msgstr ""

#: data/org.gnome.gedit.gschema.xml.in:40
msgid "Font"
msgstr ""

#: src/app.c:3 data/applications/org.gnome.gedit.desktop.in:4
msgid "Text Editor"
msgstr ""
`))
	require.NoError(t, err)

	reduced := reduce(cat, patterns)
	require.Len(t, reduced.Entries, 1)
	assert.Equal(t, "Open", reduced.Entries[0].ID)
	assert.Equal(t, cat.Header, reduced.Header)
}

func TestFigures(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "C", "figures", "a.png"), "original a")
	writeFile(t, filepath.Join(dir, "C", "figures", "b.png"), "original b")
	writeFile(t, filepath.Join(dir, "fr", "figures", "a.png"), "original a")
	writeFile(t, filepath.Join(dir, "fr", "figures", "b.png"), "traduit b")

	cat, err := pofile.Parse(strings.NewReader(`msgid ""
msgstr ""

msgid "@@image: 'figures/a.png'; md5=aaaa"
msgstr "@@image: 'figures/a.png'; md5=aaaa"

#, fuzzy
msgid "@@image: 'figures/b.png'; md5=bbbb"
msgstr "@@image: 'figures/b.png'; md5=cccc"

msgid "Some text"
msgstr "Du texte"
`))
	require.NoError(t, err)

	figs, problems := figures(cat, dir, "fr")
	require.Len(t, figs, 2)

	assert.Equal(t, model.Figure{Path: "figures/a.png", Hash: "aaaa", Translated: true, TranslatedFile: true, Identical: true}, figs[0])
	assert.Equal(t, model.Figure{Path: "figures/b.png", Hash: "bbbb", Fuzzy: true, TranslatedFile: true}, figs[1])

	require.Len(t, problems, 1)
	assert.Contains(t, problems[0].Description, "figures/a.png")

	figs, problems = figures(cat, dir, "")
	assert.Len(t, figs, 2)
	assert.False(t, figs[0].Translated)
	assert.Empty(t, problems)
}
