// Copyright 2025, the Vertimus contributors
// SPDX-License-Identifier: AGPL-3.0-only

// Command i18n_extract writes the template of the notification texts by
// scanning the Go sources for i18n.Tr, TrC, TrN, TrNC and i18n.MsgKey
// values.
package main

import (
	"cmp"
	"flag"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/tools/go/packages"

	"codeberg.org/vertimus/vertimus/config"
	"codeberg.org/vertimus/vertimus/core/audit"
	"codeberg.org/vertimus/vertimus/core/pofile"
)

func main() {
	outPath := flag.String("o", "po/vertimus.pot", "output file")
	flag.Parse()

	audit.SetDefaultLogger()

	wd, err := os.Getwd()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to get working directory")
	}

	pkgs, err := packages.Load(&packages.Config{Mode: packages.LoadAllSyntax}, "./...")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load packages")
	}

	if packages.PrintErrors(pkgs) > 0 {
		log.Fatal().Msg("Failed to load packages due to errors")
	}

	catalog := buildCatalog(extract(pkgs, projectRoot(wd)), config.BuildVersion, time.Now())

	if err := catalog.WriteFile(*outPath); err != nil {
		log.Fatal().Err(err).Str("path", *outPath).Msg("Failed to write template")
	}

	log.Info().Str("path", *outPath).Int("messages", len(catalog.Entries)).Msg("Wrote template")
}

// buildCatalog sorts the messages by context, msgid and plural and lists
// their unique source references.
func buildCatalog(refs map[message][]ref, version string, now time.Time) *pofile.Catalog {
	header := strings.Join([]string{
		"Project-Id-Version: Vertimus " + version,
		"Report-Msgid-Bugs-To: https://codeberg.org/vertimus/vertimus/issues",
		"POT-Creation-Date: " + now.UTC().Format("2006-01-02 15:04+0000"),
		"Language: en",
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=UTF-8",
		"Content-Transfer-Encoding: 8bit",
		"Plural-Forms: nplurals=2; plural=(n != 1);",
		"",
	}, "\n")

	c := &pofile.Catalog{Header: &pofile.Entry{Str: []string{header}}}

	for _, m := range slices.SortedFunc(maps.Keys(refs), compareMessages) {
		rs := refs[m]
		slices.SortFunc(rs, func(a, b ref) int {
			return cmp.Or(strings.Compare(a.file, b.file), cmp.Compare(a.line, b.line))
		})

		e := &pofile.Entry{
			HasContext: m.ctx != "",
			Context:    m.ctx,
			ID:         m.id,
			Plural:     m.plural,
		}

		for _, r := range slices.Compact(rs) {
			e.References = append(e.References, fmt.Sprintf("%s:%d", r.file, r.line))
		}

		if m.plural != "" {
			e.Str = []string{"", ""}
		}

		c.Entries = append(c.Entries, e)
	}

	return c
}

func compareMessages(a, b message) int {
	return cmp.Or(strings.Compare(a.ctx, b.ctx), strings.Compare(a.id, b.id), strings.Compare(a.plural, b.plural))
}

// projectRoot returns the work tree containing wd, falling back to the
// nearest directory holding go.mod, then to wd.
func projectRoot(wd string) string {
	if repo, err := git.PlainOpenWithOptions(wd, &git.PlainOpenOptions{DetectDotGit: true}); err == nil {
		if wt, err := repo.Worktree(); err == nil {
			return wt.Filesystem.Root()
		}
	}

	for dir := filepath.Clean(wd); ; dir = filepath.Dir(dir) {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		if filepath.Dir(dir) == dir {
			return wd
		}
	}
}
