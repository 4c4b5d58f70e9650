// Copyright 2025, the Vertimus contributors
// SPDX-License-Identifier: AGPL-3.0-only

package workflow

import (
	"context"
	"slices"

	"codeberg.org/vertimus/vertimus/core/model"
)

// HistoryEntry is one action with the files that can be compared with it.
type HistoryEntry struct {
	Action model.Action
	// Files are the actions carrying a file uploaded at or before Action,
	// newest first.
	Files []model.Action
}

// ActionHistory returns the live actions of a state oldest first, or the
// actions of an archived sequence of it when sequence is set.
func (w *Workflow) ActionHistory(ctx context.Context, stateID model.ID, sequence *model.ID) ([]HistoryEntry, error) {
	var actions []model.Action

	if sequence == nil {
		live, err := w.store.ListActions(ctx, stateID)
		if err != nil {
			return nil, err
		}

		actions = live
	} else {
		archived, err := w.store.ListArchivedActions(ctx, *sequence)
		if err != nil {
			return nil, err
		}

		for _, aa := range archived {
			if aa.StateID == stateID {
				actions = append(actions, aa.Action)
			}
		}
	}

	out := make([]HistoryEntry, 0, len(actions))

	var files []model.Action

	for _, a := range actions {
		if a.HasFile() {
			files = append(files, a)
		}

		seen := slices.Clone(files)
		slices.Reverse(seen)

		out = append(out, HistoryEntry{Action: a, Files: seen})
	}

	return out, nil
}
