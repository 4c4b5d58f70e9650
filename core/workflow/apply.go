// Copyright 2025, the Vertimus contributors
// SPDX-License-Identifier: AGPL-3.0-only

package workflow

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"time"

	"codeberg.org/vertimus/vertimus/core/model"
	"codeberg.org/vertimus/vertimus/core/store"
	"codeberg.org/vertimus/vertimus/core/vcs"
)

// Request asks for one action to be applied.
type Request struct {
	StateID model.ID
	Person  *model.Person
	Action  model.ActionName
	Comment string
	// File is a local file attached to the action. Uploads require one.
	File string
}

// Apply checks that the person may apply the action, records it and
// moves the state. Rejected requests change nothing. The returned state is
// the one after the action, archival included.
func (w *Workflow) Apply(ctx context.Context, req Request) (*model.State, error) {
	spec, ok := actionSpecs[req.Action]
	if !ok {
		return nil, fmt.Errorf("%w: unknown action %q", ErrActionNotAllowed, req.Action)
	}

	if req.Person == nil {
		return nil, fmt.Errorf("%w: anonymous %s", ErrActionNotAllowed, req.Action)
	}

	unlock, err := w.locks.Lock(ctx, req.StateID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	s, err := w.load(ctx, w.store, req.StateID)
	if err != nil {
		return nil, err
	}

	a, role, err := w.actorOf(ctx, w.store, s, req.Person)
	if err != nil {
		return nil, err
	}

	if !slices.Contains(available(s.state.Name, a, w.writable(s)), req.Action) {
		return nil, fmt.Errorf("%w: %s by %s in state %s of %s",
			ErrActionNotAllowed, req.Action, req.Person.Username, s.state.Name, describe(s))
	}

	if spec.needsFile && req.File == "" {
		return nil, fmt.Errorf("%w: %s", ErrFileRequired, req.Action)
	}

	action := &model.Action{
		StateID:  s.state.ID,
		PersonID: req.Person.ID,
		Name:     req.Action,
		Comment:  req.Comment,
		Created:  time.Now(),
	}

	if req.File != "" {
		if err := w.attach(ctx, s, action, req.File); err != nil {
			return nil, err
		}
	}

	discard := func() { w.removeFiles(action.File, action.MergedFile) }

	if req.Action == model.ActionSubmitToRepository {
		if err := w.submit(ctx, s, req.Person); err != nil {
			discard()

			return nil, err
		}
	}

	reached := s.state.Name

	err = w.store.InTx(ctx, func(tx store.Store) error {
		if err := tx.CreateAction(ctx, action); err != nil {
			return err
		}

		if err := transition(ctx, tx, s.state, action, spec); err != nil {
			return err
		}

		reached = s.state.Name

		if role != nil && !role.IsActive {
			role.IsActive = true
			if err := tx.SaveRole(ctx, role); err != nil {
				return err
			}
		}

		switch {
		case req.Action == model.ActionArchive:
			return archive(ctx, tx, s.state)
		case s.state.Name == model.StateCommitted:
			aa := &model.Action{StateID: s.state.ID, PersonID: req.Person.ID, Name: model.ActionArchive, Created: time.Now()}
			if err := tx.CreateAction(ctx, aa); err != nil {
				return err
			}

			return archive(ctx, tx, s.state)
		default:
			return nil
		}
	})
	if err != nil {
		discard()

		return nil, err
	}

	w.logger.Info().
		Str("action", string(req.Action)).
		Str("person", req.Person.Username).
		Str("translation", describe(s)).
		Str("state", string(s.state.Name)).
		Msg("Applied action")

	w.notifyAction(ctx, s, req.Person, action, reached)

	return s.state, nil
}

// transition moves st according to the applied action a.
func transition(ctx context.Context, tx store.Store, st *model.State, a *model.Action, spec actionSpec) error {
	switch {
	case spec.keep:
		return nil
	case a.Name == model.ActionUndo:
		actions, err := tx.ListActions(ctx, st.ID)
		if err != nil {
			return err
		}

		st.Name, st.PersonID = undoTarget(actions)
	default:
		st.Name, st.PersonID = spec.target, nil

		if spec.target != model.StateNone {
			person := a.PersonID
			st.PersonID = &person
		}
	}

	st.Updated = a.Created

	return tx.SaveState(ctx, st)
}

// submit commits the newest uploaded file of the state into the branch
// checkout.
func (w *Workflow) submit(ctx context.Context, s *subject, p *model.Person) error {
	actions, err := w.store.ListActions(ctx, s.state.ID)
	if err != nil {
		return err
	}

	var file string

	for i := len(actions) - 1; i >= 0 && file == ""; i-- {
		switch {
		case actions[i].MergedFile != "":
			file = actions[i].MergedFile
		case actions[i].HasFile():
			file = actions[i].File
		}
	}

	if file == "" {
		return fmt.Errorf("%w: %s", ErrNothingToCommit, describe(s))
	}

	root, err := w.checkout.Checkout(ctx, s.module, s.branch)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCommitFailed, err)
	}

	hash, err := w.committer.Commit(ctx, vcs.CommitRequest{
		Root:    root,
		Source:  filepath.Join(w.uploadDir, file),
		Dest:    commitDest(s),
		Message: fmt.Sprintf("Update %s translation", s.language.Name),
		Author:  vcs.Author{Name: p.DisplayName(), Email: p.Email},
	})
	if err != nil {
		return fmt.Errorf("failed to submit %s: %w", describe(s), err)
	}

	w.logger.Info().Str("translation", describe(s)).Str("commit", hash).Msg("Submitted translation")

	return nil
}

// commitDest returns where the translation lives inside the checkout.
func commitDest(s *subject) string {
	locale := s.language.Locale

	if s.domain.Type == model.DomainDoc {
		return filepath.Join(s.domain.Directory, locale, locale+".po")
	}

	return filepath.Join(s.domain.Directory, locale+".po")
}
