// Copyright 2025, the Vertimus contributors
// SPDX-License-Identifier: AGPL-3.0-only

package stats

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"io/fs"
	"path/filepath"

	"codeberg.org/vertimus/vertimus/core/cache"
	"codeberg.org/vertimus/vertimus/core/doap"
	"codeberg.org/vertimus/vertimus/core/store"
)

// refreshDoap updates maintainers and homepage from <module>.doap at the
// root of a head branch, when the file changed since the last update.
func (e *Engine) refreshDoap(ctx context.Context, run *branchRun) error {
	if !run.branch.IsHead() {
		return nil
	}

	name := run.module.Name + ".doap"

	key, content, err := cache.FileKey("doap", filepath.Join(run.root, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	if err != nil {
		return err
	}

	hash := hex.EncodeToString(key.Digest[:])
	if run.branch.FileHashes[name] == hash {
		return nil
	}

	project, err := doap.Parse(bytes.NewReader(content))
	if err != nil {
		return err
	}

	return e.store.InTx(ctx, func(tx store.Store) error {
		changed, err := doap.Apply(ctx, tx, run.module, project)
		if err != nil {
			return err
		}

		if run.branch.FileHashes == nil {
			run.branch.FileHashes = map[string]string{}
		}

		run.branch.FileHashes[name] = hash

		if changed {
			e.logger.Info().Str("module", run.module.Name).Msg("Updated module from DOAP file")
		}

		return tx.UpdateBranch(ctx, run.branch)
	})
}
