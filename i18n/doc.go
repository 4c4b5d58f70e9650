// Copyright 2025, the Vertimus contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package i18n translates the texts of notification mails, backed by GNU
gettext .po catalogues. Mails about a translation are written in the
language of the team concerned.

# Quick start

Use the original English text as the msgid; do not invent keys.

	ctx = i18n.WithLocale(ctx, "pt_BR")
	i18n.Tr(ctx, "The new state is {{.State}}.", "State", name)
	i18n.TrN(ctx, "{{.Count}} string added", "{{.Count}} strings added", n, "Count", n)

Catalogues live in config.Global.Paths.LocaleDir as <locale>.po and are
refreshed from the template written by cmd/i18n_extract.

# Missing translations

Missing translations return the msgid unchanged. In development mode,
missing lookups are logged once per locale and key and the returned text
is visibly wrapped as "⟦...⟧".

# Formatting

Placeholders are processed by Go's standard text/template package.
Provide substitutions as alternating key-value pairs to any of the Tr
functions.
*/
package i18n
