// Copyright 2025, the Vertimus contributors
// SPDX-License-Identifier: AGPL-3.0-only

package workflow

import (
	"context"
	"time"

	"codeberg.org/vertimus/vertimus/core/model"
	"codeberg.org/vertimus/vertimus/core/store"
)

// archive moves the live actions of st to one archived sequence and
// resets st. The sequence is the archived ID of the oldest action, or the
// sequence it already has when a previous attempt archived it. Uploaded
// files stay with the archived copies.
func archive(ctx context.Context, tx store.Store, st *model.State) error {
	actions, err := tx.ListActions(ctx, st.ID)
	if err != nil {
		return err
	}

	var sequence model.ID

	for _, a := range actions {
		aa := &model.ArchivedAction{Action: a, ActionID: a.ID, Sequence: sequence}
		if err := tx.ArchiveAction(ctx, aa); err != nil {
			return err
		}

		if sequence != 0 {
			continue
		}

		sequence = aa.Sequence
		if sequence == 0 {
			sequence = aa.ID
			if err := tx.SetSequence(ctx, aa.ID, sequence); err != nil {
				return err
			}
		}
	}

	if err := tx.DeleteActions(ctx, st.ID); err != nil {
		return err
	}

	st.Name, st.PersonID, st.Updated = model.StateNone, nil, time.Now()

	return tx.SaveState(ctx, st)
}

// ArchivedSequences returns the archived cycles of a state, newest first.
func (w *Workflow) ArchivedSequences(ctx context.Context, stateID model.ID) ([]model.ID, error) {
	return w.store.ListSequences(ctx, stateID)
}

// PurgeArchives deletes archived sequences whose last action is older than
// the retention, attached files included. It returns how many sequences
// were removed.
func (w *Workflow) PurgeArchives(ctx context.Context, now time.Time) (int, error) {
	if w.retention <= 0 {
		return 0, nil
	}

	sequences, err := w.store.ExpiredSequences(ctx, now.Add(-w.retention))
	if err != nil {
		return 0, err
	}

	for i, seq := range sequences {
		actions, err := w.store.ListArchivedActions(ctx, seq)
		if err != nil {
			return i, err
		}

		if err := w.store.DeleteSequence(ctx, seq); err != nil {
			return i, err
		}

		for _, a := range actions {
			w.removeFiles(a.File, a.MergedFile)
		}
	}

	if len(sequences) > 0 {
		w.logger.Info().Int("sequences", len(sequences)).Msg("Purged archived actions")
	}

	return len(sequences), nil
}

// DeactivateIdleRoles marks inactive the roles of people who have not
// logged in for the configured inactivity period.
func (w *Workflow) DeactivateIdleRoles(ctx context.Context, now time.Time) (int, error) {
	if w.inactivity <= 0 {
		return 0, nil
	}

	n, err := w.store.DeactivateRoles(ctx, now.Add(-w.inactivity))
	if err != nil {
		return 0, err
	}

	if n > 0 {
		w.logger.Info().Int("roles", n).Msg("Deactivated idle roles")
	}

	return n, nil
}
