// Copyright 2025, the Vertimus contributors
// SPDX-License-Identifier: AGPL-3.0-only

package i18n

import (
	"context"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

type contextKeyType struct{}

var tagKey = contextKeyType{}

var displayNamer = display.English.Tags()

// WithTag stores t in ctx and returns a derived context that carries it.
//
// Passing the zero value of [language.Tag] clears any existing value.
func WithTag(ctx context.Context, t language.Tag) context.Context {
	return context.WithValue(ctx, tagKey, t)
}

// WithLocale is WithTag for a gettext locale name. Unparseable names keep
// the base locale.
func WithLocale(ctx context.Context, code string) context.Context {
	t, err := ParseLocale(code)
	if err != nil {
		Logger.Debug().Err(err).Msg("Falling back to base locale")

		return WithTag(ctx, baseTag)
	}

	return WithTag(ctx, t)
}

// TagFrom returns the language tag stored in ctx, or the tag for [BaseLocale]
// if none is present. It never returns the zero value of [language.Tag].
func TagFrom(ctx context.Context) language.Tag {
	if ctx != nil {
		if t, _ := ctx.Value(tagKey).(language.Tag); t != (language.Tag{}) {
			return t
		}
	}

	return baseTag
}
