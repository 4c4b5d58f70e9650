// Copyright 2025, the Vertimus contributors
// SPDX-License-Identifier: AGPL-3.0-only

package stats

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"codeberg.org/vertimus/vertimus/core/model"
	"codeberg.org/vertimus/vertimus/core/shell"
)

// ErrTemplateGeneration is returned when no template could be produced
// for a domain, not even a previous one.
var ErrTemplateGeneration = errors.New("template generation failed")

const potFilePermissions = 0o644

func errorProblem(format string, args ...any) model.Problem {
	return model.Problem{Kind: model.ErrorKind, Description: fmt.Sprintf(format, args...)}
}

func warnProblem(format string, args ...any) model.Problem {
	return model.Problem{Kind: model.WarnKind, Description: fmt.Sprintf(format, args...)}
}

// checkPotfiles runs intltool-update -m, which lists files missing from
// POTFILES.in and listed files that do not exist.
func (e *Engine) checkPotfiles(ctx context.Context, dir string) []model.Problem {
	if _, err := os.Stat(filepath.Join(dir, "POTFILES.in")); err != nil {
		return nil
	}

	missing, notexist := filepath.Join(dir, "missing"), filepath.Join(dir, "notexist")
	_ = os.Remove(missing)
	_ = os.Remove(notexist)

	var problems []model.Problem

	res, err := e.runner.Run(ctx, shell.Command{Program: "intltool-update", Args: []string{"-m"}, Dir: dir})
	if err != nil || !res.OK() {
		problems = append(problems, errorProblem("Errors while running 'intltool-update -m' check."))
	}

	if files := readLines(missing); len(files) > 0 {
		problems = append(problems, warnProblem("There are some missing files from POTFILES.in: %s",
			strings.Join(files, ", ")))
	}

	if files := readLines(notexist); len(files) > 0 {
		problems = append(problems, errorProblem(
			"Following files are referenced in either POTFILES.in or POTFILES.skip, yet they don't exist: %s",
			strings.Join(files, ", ")))
	}

	return problems
}

func readLines(path string) []string {
	data, err := os.ReadFile(path) // #nosec G304 -- path inside a checkout
	if err != nil {
		return nil
	}

	var out []string

	for line := range strings.SplitSeq(string(data), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}

	return out
}

// generateTemplate produces a fresh template for the domain in dir and
// returns its path, or "" with the reasons when none could be made.
func (e *Engine) generateTemplate(ctx context.Context, m *model.Module, d *model.Domain, dir string) (string, []model.Problem) {
	potbase := d.Potbase(m.Name)

	switch {
	case strings.HasPrefix(d.PotMethod, "http://"), strings.HasPrefix(d.PotMethod, "https://"):
		return e.fetchTemplate(ctx, d.PotMethod, filepath.Join(dir, potbase+".pot"))
	case d.PotMethod != "":
		return e.runTemplateCommand(ctx, shell.Shell(dir, d.PotMethod), filepath.Join(dir, potbase+".pot"), potbase)
	case d.Type == model.DomainDoc:
		return e.generateDocTemplate(ctx, m, dir, potbase)
	default:
		cmd := shell.Command{
			Program: "intltool-update",
			Args:    []string{"-g", potbase, "-p"},
			Dir:     dir,
			Env:     map[string]string{"XGETTEXT_ARGS": "--msgid-bugs-address=" + m.BugsEnterURL()},
		}

		return e.runTemplateCommand(ctx, cmd, filepath.Join(dir, potbase+".pot"), potbase)
	}
}

func (e *Engine) runTemplateCommand(ctx context.Context, cmd shell.Command, potfile, potbase string) (string, []model.Problem) {
	res, err := e.runner.Run(ctx, cmd)

	var output string

	switch {
	case err != nil:
		output = err.Error()
	case res != nil:
		output = res.CombinedOutput()
	}

	if err == nil && res.OK() {
		if _, statErr := os.Stat(potfile); statErr == nil {
			return potfile, nil
		}
	}

	return "", []model.Problem{errorProblem("Error regenerating POT file for %s:\n%s\n%s", potbase, cmd, output)}
}

func (e *Engine) fetchTemplate(ctx context.Context, url, potfile string) (string, []model.Problem) {
	resp, err := e.http.R().SetContext(ctx).Get(url)
	if err != nil {
		return "", []model.Problem{errorProblem("Error retrieving POT file from URL %s: %s", url, err)}
	}

	if resp.IsError() {
		return "", []model.Problem{errorProblem("Error retrieving POT file from URL %s: %s", url, resp.Status())}
	}

	if err := os.WriteFile(potfile, resp.Body(), potFilePermissions); err != nil {
		return "", []model.Problem{errorProblem("Error retrieving POT file from URL %s: %s", url, err)}
	}

	return potfile, nil
}

// generateDocTemplate uses itstool for Mallard and HELP_ID based
// documentation and xml2po for gnome-doc-utils modules.
func (e *Engine) generateDocTemplate(ctx context.Context, m *model.Module, dir, potbase string) (string, []model.Problem) {
	potfile := filepath.Join(dir, "C", potbase+".pot")

	if files := itstoolSources(dir); len(files) > 0 {
		cmd := shell.Command{Program: "itstool", Args: append([]string{"-o", potfile}, files...), Dir: dir}

		return e.runTemplateCommand(ctx, cmd, potfile, potbase)
	}

	docModule := readMakefileVariable(dir, "DOC_MODULE")
	if docModule == "" {
		return "", []model.Problem{errorProblem("Module %s doesn't look like gnome-doc-utils module.", m.Name)}
	}

	var problems []model.Problem

	if !exists(filepath.Join(dir, "C", docModule+".xml")) {
		if !exists(filepath.Join(dir, "C", m.Name+".xml")) {
			return "", []model.Problem{errorProblem("DOC_MODULE doesn't point to a real file, probably a macro.")}
		}

		problems = append(problems, warnProblem("DOC_MODULE doesn't resolve to a real file, using '%s.xml'.", m.Name))
		docModule = m.Name
	}

	files := []string{filepath.Join("C", docModule+".xml")}
	for _, inc := range strings.Fields(readMakefileVariable(dir, "DOC_INCLUDES")) {
		files = append(files, filepath.Join("C", inc))
	}

	cmd := shell.Command{Program: "xml2po", Args: append([]string{"-o", potfile, "-e"}, files...), Dir: dir}
	path, errs := e.runTemplateCommand(ctx, cmd, potfile, potbase)

	return path, append(problems, errs...)
}

// itstoolSources returns the documentation sources relative to dir when
// the domain uses itstool.
func itstoolSources(dir string) []string {
	if readMakefileVariable(dir, "HELP_ID") != "" {
		var files []string
		for _, f := range strings.Fields(readMakefileVariable(dir, "HELP_FILES")) {
			files = append(files, filepath.Join("C", f))
		}

		return files
	}

	if exists(filepath.Join(dir, "Makefile.am")) {
		return nil
	}

	pages, err := doublestar.Glob(os.DirFS(dir), "C/**/*.page")
	if err != nil {
		return nil
	}

	return pages
}

func exists(path string) bool {
	_, err := os.Stat(path)

	return err == nil
}
