// Copyright 2025, the Vertimus contributors
// SPDX-License-Identifier: AGPL-3.0-only

package i18n

import (
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"

	"github.com/leonelquinteros/gotext"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/language"
)

var (
	// poDomain is the gettext domain to load under each locale.
	poDomain = "vertimus"

	// localesByTag maps canonical BCP 47 tags, for example
	// "en", "fr", "pt-BR", to their loaded gotext.Locale.
	localesByTag map[string]*gotext.Locale

	// supportedTags holds the list of BCP 47 tags for which a locale was successfully loaded.
	supportedTags []language.Tag

	// matcher is a private [language.Matcher] derived from the loaded locales.
	matcher language.Matcher
)

// Setup loads the gettext catalogues found in dir and builds a language
// matcher. The expected layout is:
//
//	<dir>/<locale>.po
//
// Locale names use the gettext spelling ("pt_BR", "sr@latin") and are
// normalised with [ParseLocale]. The template, "<dir>/vertimus.pot", is
// ignored. A missing dir leaves only the base locale available.
//
// Calling Setup again replaces the previously loaded locales and matcher.
func Setup(dir string) error {
	return SetupFS(os.DirFS(dir))
}

// SetupFS is Setup reading from fsys.
func SetupFS(fsys fs.FS) error {
	Logger = log.With().Str("sys", "i18n").Logger()

	localesByTag = make(map[string]*gotext.Locale)
	supportedTags = nil
	matcher = nil

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to read po directory: %w", err)
	}

	var tagsList []language.Tag

	for _, entry := range entries {
		fileName := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(fileName, ".po") {
			continue
		}

		t, err := ParseLocale(strings.TrimSuffix(fileName, ".po"))
		if err != nil {
			Logger.Warn().Err(err).Str("file", fileName).Msg("Skipping invalid locale file")

			continue
		}

		canonical := t.String()

		po := gotext.NewPoFS(fsys)
		po.ParseFile(fileName)

		loc := gotext.NewLocale("", canonical) // Base path is unused when manually adding translators.
		loc.AddTranslator(poDomain, po)

		localesByTag[canonical] = loc

		tagsList = append(tagsList, t)

		Logger.Debug().
			Str("locale", canonical).
			Str("domain", poDomain).
			Msg("Loaded locale")
	}

	// baseTag is first to make it the default fallback for matching.
	all := make([]language.Tag, 0, len(tagsList)+1)
	all = append(all, baseTag)

	slices.SortFunc(tagsList, func(a, b language.Tag) int { return strings.Compare(a.String(), b.String()) })

	for _, t := range tagsList {
		if t != baseTag {
			all = append(all, t)
		}
	}

	matcher = language.NewMatcher(all)
	supportedTags = all

	Logger.Info().Int("locales", len(tagsList)).Msg("Loaded notification catalogues")

	return nil
}
