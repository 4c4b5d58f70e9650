// Copyright 2025, the Vertimus contributors
// SPDX-License-Identifier: AGPL-3.0-only

// Package pocount reports message and word counts of a single message file
// together with the validity problems found while counting.
package pocount

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"codeberg.org/vertimus/vertimus/core/cache"
	"codeberg.org/vertimus/vertimus/core/model"
	"codeberg.org/vertimus/vertimus/core/pofile"
	"codeberg.org/vertimus/vertimus/core/shell"
)

var (
	translatedRe   = regexp.MustCompile(`(\d+) translated`)
	untranslatedRe = regexp.MustCompile(`(\d+) untranslated`)
	fuzzyRe        = regexp.MustCompile(`(\d+) fuzzy`)
)

// ErrMissingFile is returned when the file to count does not exist.
var ErrMissingFile = errors.New("message file does not exist")

// Counts is the outcome of counting one file.
type Counts struct {
	Translated        int
	Fuzzy             int
	Untranslated      int
	TranslatedWords   int
	FuzzyWords        int
	UntranslatedWords int

	Errors []model.Problem
	// Trusted is false when the checking tool rejected the file. The counts
	// are still filled in but must not replace previously stored ones.
	Trusted bool
}

// Total returns the number of messages.
func (c *Counts) Total() int {
	return c.Translated + c.Fuzzy + c.Untranslated
}

// PoFile copies the counts into a snapshot for path.
func (c *Counts) PoFile(path string) *model.PoFile {
	return &model.PoFile{
		Path:              path,
		Translated:        c.Translated,
		Fuzzy:             c.Fuzzy,
		Untranslated:      c.Untranslated,
		TranslatedWords:   c.TranslatedWords,
		FuzzyWords:        c.FuzzyWords,
		UntranslatedWords: c.UntranslatedWords,
	}
}

// HasErrors reports whether any problem of error severity was found.
func (c *Counts) HasErrors() bool {
	for _, p := range c.Errors {
		if p.Kind.Severity() >= model.ErrorKind.Severity() {
			return true
		}
	}

	return false
}

// Counter runs msgfmt against message files.
type Counter struct {
	Runner shell.Runner
	// Cache memoizes results by file content; it may be nil.
	Cache *cache.Cache
}

// New returns a Counter.
func New(runner shell.Runner, c *cache.Cache) *Counter {
	return &Counter{Runner: runner, Cache: c}
}

// cached is the part of Counts depending only on the file content.
type cached struct {
	Counts Counts
}

// Count reports the counts of the file at path. In strict mode the file is
// validated with msgfmt -c; a rejected file yields an error problem and
// untrusted counts. The returned error is only set for a missing file or a
// tool that could not run at all.
func (c *Counter) Count(ctx context.Context, path string, strict bool) (*Counts, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Counts{Errors: []model.Problem{{
				Kind:        model.ErrorKind,
				Description: fmt.Sprintf("PO file '%s' doesn't exist.", path),
			}}}, fmt.Errorf("%w: %s", ErrMissingFile, path)
		}

		return nil, err
	}

	key, content, err := cache.FileKey(fmt.Sprintf("pocount.%t.%s", strict, path), path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var res *Counts

	var hit cached
	if c.Cache.GetValue(key, &hit) {
		res = &hit.Counts
	} else {
		res, err = c.count(ctx, path, content, strict)
		if err != nil {
			return nil, err
		}

		if err := c.Cache.PutValue(key, cached{Counts: *res}); err != nil {
			log.Warn().Err(err).Str("sys", "stats").Str("path", path).Msg("Could not cache counts")
		}
	}

	// The mode is not part of the content, so this check is never cached.
	if info.Mode().Perm()&0o111 != 0 {
		res.Errors = append(res.Errors, model.Problem{
			Kind:        model.WarnKind,
			Description: "This PO file has an executable bit set.",
		})
	}

	return res, nil
}

func (c *Counter) count(ctx context.Context, path string, content []byte, strict bool) (*Counts, error) {
	cmd := shell.Command{
		Program: "msgfmt",
		Args:    []string{"--statistics", "-o", os.DevNull, path},
		Env:     map[string]string{"LC_ALL": "C"},
	}
	if strict {
		cmd.Args = []string{"-cv", "-o", os.DevNull, path}
	}

	out, err := c.Runner.Run(ctx, cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to run msgfmt on %s: %w", path, err)
	}

	res := &Counts{Trusted: true}

	if !out.OK() {
		res.Trusted = false

		if strict {
			res.Errors = append(res.Errors, model.Problem{
				Kind:        model.ErrorKind,
				Description: fmt.Sprintf("PO file '%s' doesn't pass msgfmt check: not updating.", path),
			})
		} else {
			res.Errors = append(res.Errors, model.Problem{
				Kind:        model.ErrorKind,
				Description: fmt.Sprintf("Can't get statistics for POT file '%s'.", path),
			})
		}
	}

	// msgfmt prints its statistics on stderr.
	text := out.Stderr + out.Stdout
	res.Translated = match(translatedRe, text)
	res.Fuzzy = match(fuzzyRe, text)
	res.Untranslated = match(untranslatedRe, text)

	if strict && !utf8.Valid(content) {
		res.Errors = append(res.Errors, model.Problem{
			Kind:        model.WarnKind,
			Description: fmt.Sprintf("PO file '%s' is not UTF-8 encoded.", path),
		})
	}

	cat, err := pofile.Parse(bytes.NewReader(content))
	if err != nil {
		log.Debug().Err(err).Str("sys", "stats").Str("path", path).Msg("Word counts unavailable")

		return res, nil
	}

	words := cat.Count()
	res.TranslatedWords = words.TranslatedWords
	res.FuzzyWords = words.FuzzyWords
	res.UntranslatedWords = words.UntranslatedWords

	return res, nil
}

// match returns the first number captured by re in text, or 0.
func match(re *regexp.Regexp, text string) int {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return 0
	}

	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}

	return n
}
