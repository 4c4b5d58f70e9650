// Copyright 2025, the Vertimus contributors
// SPDX-License-Identifier: AGPL-3.0-only

package pofile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ErrSyntax is wrapped by all parse errors.
var ErrSyntax = errors.New("po syntax error")

const maxLineLength = 1 << 20

// field identifies which string a continuation line extends.
type field int

const (
	fieldNone field = iota
	fieldContext
	fieldID
	fieldPlural
	fieldStr
)

type parser struct {
	cat *Catalog
	cur *Entry
	// seenID is set once the current entry has a msgid.
	seenID bool
	last   field
	strIdx int
	line   int
}

// ParseFile parses the catalogue at path.
func ParseFile(path string) (*Catalog, error) {
	f, err := os.Open(path) // #nosec G304 -- paths come from checkouts we manage
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cat, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return cat, nil
}

// Parse reads a catalogue from r.
func Parse(r io.Reader) (*Catalog, error) {
	p := &parser{cat: &Catalog{}}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)

	for scanner.Scan() {
		p.line++

		if err := p.feed(strings.TrimRight(scanner.Text(), "\r")); err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrSyntax, p.line, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	p.flush()

	return p.cat, nil
}

func (p *parser) entry() *Entry {
	if p.cur == nil {
		p.cur = &Entry{}
	}

	return p.cur
}

// flush finishes the current entry.
func (p *parser) flush() {
	if p.cur == nil {
		return
	}

	if p.seenID {
		if p.cur.IsHeader() && p.cat.Header == nil && !p.cur.Obsolete {
			p.cat.Header = p.cur
		} else {
			p.cat.Entries = append(p.cat.Entries, p.cur)
		}
	}

	p.cur = nil
	p.seenID = false
	p.last = fieldNone
}

func (p *parser) feed(line string) error {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		p.flush()

		return nil
	}

	obsolete := false

	if rest, ok := strings.CutPrefix(trimmed, "#~|"); ok {
		p.startComment()
		p.entry().Previous = append(p.entry().Previous, strings.TrimSpace(rest))

		return nil
	}

	if rest, ok := strings.CutPrefix(trimmed, "#~"); ok {
		obsolete = true
		trimmed = strings.TrimSpace(rest)
	}

	if strings.HasPrefix(trimmed, "#") {
		p.comment(trimmed)

		return nil
	}

	if strings.HasPrefix(trimmed, `"`) {
		s, ok := unquote(trimmed)
		if !ok {
			return fmt.Errorf("malformed string %q", trimmed)
		}

		return p.appendTo(s)
	}

	keyword, rest, _ := strings.Cut(trimmed, " ")
	rest = strings.TrimSpace(rest)

	s, ok := unquote(rest)
	if !ok {
		return fmt.Errorf("malformed string after %s", keyword)
	}

	switch {
	case keyword == "msgctxt":
		if p.seenID {
			p.flush()
		}

		e := p.entry()
		e.HasContext = true
		e.Context = s
		p.last = fieldContext
	case keyword == "msgid":
		if p.seenID {
			p.flush()
		}

		e := p.entry()
		e.ID = s
		p.seenID = true
		p.last = fieldID
	case keyword == "msgid_plural":
		if !p.seenID {
			return errors.New("msgid_plural without msgid")
		}

		p.cur.Plural = s
		p.last = fieldPlural
	case keyword == "msgstr":
		if !p.seenID {
			return errors.New("msgstr without msgid")
		}

		p.cur.Str = append(p.cur.Str, s)
		p.strIdx = len(p.cur.Str) - 1
		p.last = fieldStr
	case strings.HasPrefix(keyword, "msgstr["):
		if !p.seenID {
			return errors.New("msgstr without msgid")
		}

		idx, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(keyword, "msgstr["), "]"))
		if err != nil || idx < 0 {
			return fmt.Errorf("bad plural index in %q", keyword)
		}

		for len(p.cur.Str) <= idx {
			p.cur.Str = append(p.cur.Str, "")
		}

		p.cur.Str[idx] = s
		p.strIdx = idx
		p.last = fieldStr
	default:
		return fmt.Errorf("unknown keyword %q", keyword)
	}

	if obsolete {
		p.cur.Obsolete = true
	}

	return nil
}

// startComment flushes when a comment follows a complete entry without a
// separating blank line.
func (p *parser) startComment() {
	if p.seenID && p.last == fieldStr {
		p.flush()
	}
}

func (p *parser) comment(line string) {
	p.startComment()

	e := p.entry()

	switch {
	case strings.HasPrefix(line, "#:"):
		e.References = append(e.References, strings.Fields(line[2:])...)
	case strings.HasPrefix(line, "#,"):
		for flag := range strings.SplitSeq(line[2:], ",") {
			if flag = strings.TrimSpace(flag); flag != "" {
				e.Flags = append(e.Flags, flag)
			}
		}
	case strings.HasPrefix(line, "#."):
		e.ExtractedComments = append(e.ExtractedComments, strings.TrimSpace(line[2:]))
	case strings.HasPrefix(line, "#|"):
		e.Previous = append(e.Previous, strings.TrimSpace(line[2:]))
	default:
		e.TranslatorComments = append(e.TranslatorComments, strings.TrimPrefix(strings.TrimPrefix(line, "#"), " "))
	}
}

func (p *parser) appendTo(s string) error {
	if p.cur == nil {
		return errors.New("string continuation outside of an entry")
	}

	switch p.last {
	case fieldContext:
		p.cur.Context += s
	case fieldID:
		p.cur.ID += s
	case fieldPlural:
		p.cur.Plural += s
	case fieldStr:
		p.cur.Str[p.strIdx] += s
	default:
		return errors.New("string continuation outside of an entry")
	}

	return nil
}
