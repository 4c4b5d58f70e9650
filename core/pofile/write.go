// Copyright 2025, the Vertimus contributors
// SPDX-License-Identifier: AGPL-3.0-only

package pofile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const filePermissions = 0o644

// WriteTo writes c in .po syntax.
func (c *Catalog) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: bufio.NewWriter(w)}

	first := true

	if c.Header != nil {
		writeEntry(cw, c.Header)

		first = false
	}

	for _, e := range c.Entries {
		if !first {
			cw.printf("\n")
		}

		writeEntry(cw, e)

		first = false
	}

	if cw.err == nil {
		cw.err = cw.w.Flush()
	}

	return cw.n, cw.err
}

// WriteFile writes c to path, creating parent directories.
func (c *Catalog) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path) // #nosec G304 -- output paths are computed by the engine
	if err != nil {
		return err
	}

	if _, err := c.WriteTo(f); err != nil {
		f.Close()

		return err
	}

	if err := f.Chmod(filePermissions); err != nil {
		f.Close()

		return err
	}

	return f.Close()
}

func writeEntry(w *countingWriter, e *Entry) {
	prefix := ""
	if e.Obsolete {
		prefix = "#~ "
	}

	for _, c := range e.TranslatorComments {
		if c == "" {
			w.printf("#\n")
		} else {
			w.printf("# %s\n", c)
		}
	}

	for _, c := range e.ExtractedComments {
		w.printf("#. %s\n", c)
	}

	if len(e.References) > 0 {
		w.printf("#: %s\n", strings.Join(e.References, " "))
	}

	if len(e.Flags) > 0 {
		w.printf("#, %s\n", strings.Join(e.Flags, ", "))
	}

	for _, p := range e.Previous {
		w.printf("#| %s\n", p)
	}

	if e.HasContext {
		writeString(w, prefix, "msgctxt", e.Context)
	}

	writeString(w, prefix, "msgid", e.ID)

	if e.Plural != "" {
		writeString(w, prefix, "msgid_plural", e.Plural)

		strs := e.Str
		if len(strs) == 0 {
			strs = []string{"", ""}
		}

		for i, s := range strs {
			writeString(w, prefix, fmt.Sprintf("msgstr[%d]", i), s)
		}

		return
	}

	str := ""
	if len(e.Str) > 0 {
		str = e.Str[0]
	}

	writeString(w, prefix, "msgstr", str)
}

// writeString splits multi-line values after each newline, the way
// xgettext lays them out.
func writeString(w *countingWriter, prefix, keyword, s string) {
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	if len(lines) <= 1 {
		w.printf("%s%s %s\n", prefix, keyword, Quote(s))

		return
	}

	w.printf("%s%s \"\"\n", prefix, keyword)

	for _, l := range lines {
		w.printf("%s%s\n", prefix, Quote(l))
	}
}

type countingWriter struct {
	w   *bufio.Writer
	n   int64
	err error
}

func (c *countingWriter) printf(format string, args ...any) {
	if c.err != nil {
		return
	}

	n, err := fmt.Fprintf(c.w, format, args...)
	c.n += int64(n)
	c.err = err
}
