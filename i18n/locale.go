// Copyright 2025, the Vertimus contributors
// SPDX-License-Identifier: AGPL-3.0-only

package i18n

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/language"
)

// BaseLocale is the default locale used when no specific locale is set.
const BaseLocale = "en"

// baseTag is the canonical tag for BaseLocale.
var baseTag = language.Make(BaseLocale)

// gettext modifiers that name a script.
var scriptModifiers = map[string]string{
	"latin":      "Latn",
	"cyrillic":   "Cyrl",
	"devanagari": "Deva",
}

// ParseLocale converts a gettext locale name such as "pt_BR", "sr@latin"
// or "ca@valencia" into a BCP 47 tag.
func ParseLocale(code string) (language.Tag, error) {
	base, modifier, _ := strings.Cut(code, "@")
	s := strings.ReplaceAll(base, "_", "-")

	switch {
	case modifier == "":
	case scriptModifiers[modifier] != "":
		lang, region, _ := strings.Cut(s, "-")
		s = lang + "-" + scriptModifiers[modifier]

		if region != "" {
			s += "-" + region
		}
	case len(modifier) >= 5 && len(modifier) <= 8:
		// Other modifiers are variants, for example "valencia".
		s += "-" + modifier
	}

	t, err := language.Parse(s)
	if err != nil {
		return language.Und, fmt.Errorf("invalid locale %q: %w", code, err)
	}

	return t, nil
}

// Languages returns the list of supported language tags derived from
// the loaded gettext catalogs.
//
// The returned slice is a copy, is sorted by tag string, and is safe to retain.
//
// Setup must be called successfully before using Languages; otherwise it panics.
func Languages() []language.Tag {
	if matcher == nil {
		panic("i18n: Setup must be called before calling Languages")
	}

	out := slices.Clone(supportedTags)
	slices.SortFunc(out, func(a, b language.Tag) int { return strings.Compare(a.String(), b.String()) })

	return out
}

// DisplayName returns the English name of the locale, or the code itself
// when it cannot be parsed.
func DisplayName(code string) string {
	t, err := ParseLocale(code)
	if err != nil {
		return code
	}

	return displayNamer.Name(t)
}
