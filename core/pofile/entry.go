// Copyright 2025, the Vertimus contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package pofile reads and writes gettext message catalogues (.po and .pot
files).

Unlike the runtime catalogue loader used by package i18n, this package
keeps everything a catalogue carries: flags, references, comments and
obsolete entries. The statistics engine needs those to diff templates,
count words and build reduced files.
*/
package pofile

import (
	"slices"
	"strings"
)

// Entry is one message of a catalogue. String fields hold unescaped text.
type Entry struct {
	TranslatorComments []string
	ExtractedComments  []string
	References         []string
	Flags              []string
	Previous           []string // raw "#|" lines

	HasContext bool
	Context    string
	ID         string
	Plural     string
	// Str holds msgstr, or msgstr[0..n] for plural entries.
	Str []string

	Obsolete bool
}

// IsHeader reports whether e is the catalogue header (empty msgid without context).
func (e *Entry) IsHeader() bool {
	return e.ID == "" && !e.HasContext
}

// IsPlural reports whether e has a msgid_plural.
func (e *Entry) IsPlural() bool {
	return e.Plural != ""
}

// HasFlag reports whether the "#," line contains flag.
func (e *Entry) HasFlag(flag string) bool {
	return slices.Contains(e.Flags, flag)
}

// IsFuzzy reports whether e is marked fuzzy.
func (e *Entry) IsFuzzy() bool {
	return e.HasFlag("fuzzy")
}

// HasTranslation reports whether the first msgstr is non-empty.
func (e *Entry) HasTranslation() bool {
	return len(e.Str) > 0 && e.Str[0] != ""
}

// IsTranslated reports whether e counts as translated: not fuzzy and with
// a non-empty msgstr.
func (e *Entry) IsTranslated() bool {
	return !e.IsFuzzy() && e.HasTranslation()
}

// Words counts the whitespace separated words of the source strings.
func (e *Entry) Words() int {
	return len(strings.Fields(e.ID)) + len(strings.Fields(e.Plural))
}

// Key renders the identity of e as used for template comparison:
// ["ctx"::]"msgid"[/"plural"], with escaped strings.
func (e *Entry) Key() string {
	var b strings.Builder

	if e.HasContext {
		b.WriteString(Quote(e.Context))
		b.WriteString("::")
	}

	b.WriteString(Quote(e.ID))

	if e.Plural != "" {
		b.WriteByte('/')
		b.WriteString(Quote(e.Plural))
	}

	return b.String()
}

// Quote escapes s the way gettext tools do and wraps it in double quotes.
func Quote(s string) string {
	var b strings.Builder

	b.Grow(len(s) + 2)
	b.WriteByte('"')

	for i := range len(s) {
		switch c := s[i]; c {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		default:
			b.WriteByte(c)
		}
	}

	b.WriteByte('"')

	return b.String()
}

// unquote reverses Quote for one quoted token. ok is false if s is not
// a double quoted string.
func unquote(s string) (string, bool) {
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return "", false
	}

	s = s[1 : len(s)-1]
	if !strings.Contains(s, `\`) {
		return s, true
	}

	var b strings.Builder

	b.Grow(len(s))

	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			b.WriteByte(c)

			continue
		}

		i++

		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case 'a':
			b.WriteByte('\a')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'v':
			b.WriteByte('\v')
		default:
			// \\, \" and unknown escapes keep the escaped character.
			b.WriteByte(s[i])
		}
	}

	return b.String(), true
}
