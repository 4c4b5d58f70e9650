// Copyright 2025, the Vertimus contributors
// SPDX-License-Identifier: AGPL-3.0-only

package workflow

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/otiai10/copy"

	"codeberg.org/vertimus/vertimus/core/model"
	"codeberg.org/vertimus/vertimus/core/shell"
)

const mergedSuffix = ".merged.po"

// attach stores src in the upload directory under a fresh name and merges
// it with the current template of the domain when there is one.
func (w *Workflow) attach(ctx context.Context, s *subject, a *model.Action, src string) error {
	rel := filepath.Join(s.language.Locale, uuid.NewString()+".po")

	if err := copy.Copy(src, filepath.Join(w.uploadDir, rel)); err != nil {
		return fmt.Errorf("failed to store uploaded file: %w", err)
	}

	a.File = rel

	pot := w.layout.PotPath(s.module, s.branch, s.domain)
	if _, err := os.Stat(pot); err != nil {
		return nil
	}

	merged := mergedName(rel)
	if err := w.merge(ctx, rel, merged, pot); err != nil {
		w.logger.Warn().Err(err).Str("file", rel).Msg("Could not merge uploaded file with the template")

		return nil
	}

	a.MergedFile = merged

	return nil
}

func mergedName(rel string) string {
	return strings.TrimSuffix(rel, filepath.Ext(rel)) + mergedSuffix
}

// merge runs msgmerge on two files relative to the upload directory.
func (w *Workflow) merge(ctx context.Context, file, merged, pot string) error {
	res, err := w.runner.Run(ctx, shell.Command{
		Program: "msgmerge",
		Args:    []string{"--previous", "-o", filepath.Join(w.uploadDir, merged), filepath.Join(w.uploadDir, file), pot},
		Env:     map[string]string{"LC_ALL": "C"},
	})
	if err != nil {
		return err
	}

	if !res.OK() {
		return fmt.Errorf("msgmerge exited with %d: %s", res.ExitCode, strings.TrimSpace(res.CombinedOutput()))
	}

	return nil
}

// removeFiles deletes files relative to the upload directory.
func (w *Workflow) removeFiles(files ...string) {
	for _, f := range files {
		if f == "" {
			continue
		}

		if err := os.Remove(filepath.Join(w.uploadDir, f)); err != nil && !errors.Is(err, os.ErrNotExist) {
			w.logger.Warn().Err(err).Str("file", f).Msg("Could not remove uploaded file")
		}
	}
}

// RefreshMergedFiles merges every uploaded file still in the workflow for
// the branch and domain with a new template.
func (w *Workflow) RefreshMergedFiles(ctx context.Context, b *model.Branch, d *model.Domain, potPath string) error {
	uploads, err := w.store.ListUploads(ctx, b.ID, d.ID)
	if err != nil {
		return err
	}

	var errs []error

	for i := range uploads {
		a := &uploads[i]

		merged := a.MergedFile
		if merged == "" {
			merged = mergedName(a.File)
		}

		if err := w.merge(ctx, a.File, merged, potPath); err != nil {
			errs = append(errs, fmt.Errorf("action %d: %w", a.ID, err))

			continue
		}

		if a.MergedFile != merged {
			a.MergedFile = merged
			if err := w.store.UpdateAction(ctx, a); err != nil {
				errs = append(errs, err)
			}
		}
	}

	w.logger.Debug().Int("uploads", len(uploads)).Str("template", potPath).Msg("Refreshed merged files")

	return errors.Join(errs...)
}
