// Copyright 2025, the Vertimus contributors
// SPDX-License-Identifier: AGPL-3.0-only

package stats

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	includeRe = regexp.MustCompile(`^include\s+(.+)$`)
	linguasRe = regexp.MustCompile(`ALL_LINGUAS\s*[=,]\s*"([^"]*)"`)
)

// readMakefileVariable returns the value assigned to variable in the
// Makefile.am of dir, following include lines. Continuation lines are
// joined. It returns "" when the variable or the file is missing.
func readMakefileVariable(dir, variable string) string {
	return readMakefile(filepath.Join(dir, "Makefile.am"), variable, 0)
}

func readMakefile(path, variable string, depth int) string {
	f, err := os.Open(path) // #nosec G304 -- path inside a checkout
	if err != nil || depth > 4 {
		return ""
	}
	defer f.Close()

	assign := regexp.MustCompile(`^` + regexp.QuoteMeta(variable) + `\s*=\s*([^=]*)$`)

	var full strings.Builder

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if before, ok := strings.CutSuffix(line, "\\"); ok {
			full.WriteString(" " + before)

			continue
		}

		full.WriteString(" " + line)
		stmt := strings.TrimSpace(full.String())
		full.Reset()

		if m := assign.FindStringSubmatch(stmt); m != nil {
			return strings.TrimSpace(m[1])
		}

		if m := includeRe.FindStringSubmatch(stmt); m != nil {
			inc := filepath.Join(filepath.Dir(path), filepath.Base(m[1]))
			if strings.Contains(inc, "gnome-doc-utils.make") {
				continue
			}

			if v := readMakefile(inc, variable, depth+1); v != "" {
				return v
			}
		}
	}

	return ""
}

// readLinguasFile returns the languages listed in a LINGUAS-style file.
func readLinguasFile(path string) ([]string, bool) {
	data, err := os.ReadFile(path) // #nosec G304 -- path inside a checkout
	if err != nil {
		return nil, false
	}

	var langs []string

	for line := range strings.SplitSeq(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		langs = append(langs, strings.Fields(line)...)
	}

	return langs, true
}

// readConfigureLinguas returns ALL_LINGUAS from a configure script.
// Quoted values spanning several lines are joined first. It reports
// false when the file or the variable is missing.
func readConfigureLinguas(path string) ([]string, bool) {
	data, err := os.ReadFile(path) // #nosec G304 -- path inside a checkout
	if err != nil {
		return nil, false
	}

	var (
		lines []string
		prev  string
	)

	for line := range strings.SplitSeq(string(data), "\n") {
		line = strings.TrimSpace(prev + " " + strings.TrimSpace(line))
		if strings.Count(line, `"`)%2 == 1 {
			prev = line

			continue
		}

		lines = append(lines, line)
		prev = ""
	}

	for _, line := range lines {
		if m := linguasRe.FindStringSubmatch(line); m != nil {
			return strings.Fields(m[1]), true
		}
	}

	return nil, false
}
