// Copyright 2025, the Vertimus contributors
// SPDX-License-Identifier: AGPL-3.0-only

package pofile

import (
	"strings"
)

// Catalog is a parsed .po or .pot file.
type Catalog struct {
	// Header is nil when the file has no header entry.
	Header  *Entry
	Entries []*Entry
}

// Active returns the non-obsolete entries.
func (c *Catalog) Active() []*Entry {
	out := make([]*Entry, 0, len(c.Entries))

	for _, e := range c.Entries {
		if !e.Obsolete {
			out = append(out, e)
		}
	}

	return out
}

// HeaderField returns the value of a "Name: value" header line.
func (c *Catalog) HeaderField(name string) string {
	if c.Header == nil || len(c.Header.Str) == 0 {
		return ""
	}

	prefix := strings.ToLower(name) + ":"

	for line := range strings.SplitSeq(c.Header.Str[0], "\n") {
		if strings.HasPrefix(strings.ToLower(line), prefix) {
			return strings.TrimSpace(line[len(prefix):])
		}
	}

	return ""
}

// Filter returns a shallow copy of c keeping the header and the entries
// for which keep returns true.
func (c *Catalog) Filter(keep func(*Entry) bool) *Catalog {
	out := &Catalog{Header: c.Header}

	for _, e := range c.Entries {
		if keep(e) {
			out.Entries = append(out.Entries, e)
		}
	}

	return out
}

// Counts is the message and word tally of a catalogue.
type Counts struct {
	Translated        int
	Fuzzy             int
	Untranslated      int
	TranslatedWords   int
	FuzzyWords        int
	UntranslatedWords int
}

// Total returns the number of messages.
func (c Counts) Total() int {
	return c.Translated + c.Fuzzy + c.Untranslated
}

// Count tallies active entries. A fuzzy entry without translation counts
// as untranslated, like msgfmt does.
func (c *Catalog) Count() Counts {
	var n Counts

	for _, e := range c.Entries {
		if e.Obsolete {
			continue
		}

		words := e.Words()

		switch {
		case e.IsTranslated():
			n.Translated++
			n.TranslatedWords += words
		case e.IsFuzzy() && e.HasTranslation():
			n.Fuzzy++
			n.FuzzyWords += words
		default:
			n.Untranslated++
			n.UntranslatedWords += words
		}
	}

	return n
}
