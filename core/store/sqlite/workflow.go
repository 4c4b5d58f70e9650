// Copyright 2025, the Vertimus contributors
// SPDX-License-Identifier: AGPL-3.0-only

package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"codeberg.org/vertimus/vertimus/core/model"
)

var stateColumns = []string{"id", "branch_id", "domain_id", "language_id", "name", "person_id", "updated"}

func scanState(r scanner) (*model.State, error) {
	var (
		st      model.State
		person  sql.NullInt64
		updated string
	)

	if err := r.Scan(&st.ID, &st.BranchID, &st.DomainID, &st.LanguageID, &st.Name, &person, &updated); err != nil {
		return nil, err
	}

	st.PersonID = idPtr(person)
	st.Updated = parseTime(updated)

	return &st, nil
}

func (s *DB) GetOrCreateState(ctx context.Context, branchID, domainID, languageID model.ID) (*model.State, error) {
	_, err := s.exec(ctx, s.sq.Insert("states").
		Columns("branch_id", "domain_id", "language_id", "name", "updated").
		Values(branchID, domainID, languageID, model.StateNone, formatTime(time.Now())).
		Suffix("ON CONFLICT(branch_id, domain_id, language_id) DO NOTHING"))
	if err != nil {
		return nil, fmt.Errorf("failed to create state: %w", err)
	}

	st, err := scanState(s.queryRow(ctx, s.sq.Select(stateColumns...).From("states").
		Where(sq.Eq{"branch_id": branchID, "domain_id": domainID, "language_id": languageID})))

	return st, notFound(err, "state")
}

func (s *DB) GetState(ctx context.Context, id model.ID) (*model.State, error) {
	st, err := scanState(s.queryRow(ctx, s.sq.Select(stateColumns...).From("states").Where(sq.Eq{"id": id})))

	return st, notFound(err, "state")
}

func (s *DB) SaveState(ctx context.Context, st *model.State) error {
	if st.Updated.IsZero() {
		st.Updated = time.Now()
	}

	res, err := s.exec(ctx, s.sq.Update("states").SetMap(map[string]any{
		"name":      st.Name,
		"person_id": nullID(st.PersonID),
		"updated":   formatTime(st.Updated),
	}).Where(sq.Eq{"id": st.ID}))

	return requireRow(res, err, "state")
}

var actionColumns = []string{"id", "state_id", "person_id", "name", "created", "comment", "file", "merged_file"}

func scanAction(r scanner, extra ...any) (*model.Action, error) {
	var (
		a       model.Action
		created string
	)

	dest := append([]any{&a.ID, &a.StateID, &a.PersonID, &a.Name, &created, &a.Comment, &a.File, &a.MergedFile}, extra...)
	if err := r.Scan(dest...); err != nil {
		return nil, err
	}

	a.Created = parseTime(created)

	return &a, nil
}

func (s *DB) CreateAction(ctx context.Context, a *model.Action) error {
	if a.Created.IsZero() {
		a.Created = time.Now()
	}

	id, err := s.insert(ctx, s.sq.Insert("actions").
		Columns(actionColumns[1:]...).
		Values(a.StateID, a.PersonID, a.Name, formatTime(a.Created), a.Comment, a.File, a.MergedFile))
	if err != nil {
		return fmt.Errorf("failed to create action: %w", err)
	}

	a.ID = id

	return nil
}

func (s *DB) UpdateAction(ctx context.Context, a *model.Action) error {
	res, err := s.exec(ctx, s.sq.Update("actions").SetMap(map[string]any{
		"comment":     a.Comment,
		"file":        a.File,
		"merged_file": a.MergedFile,
	}).Where(sq.Eq{"id": a.ID}))

	return requireRow(res, err, "action")
}

func (s *DB) listActions(ctx context.Context, b sq.SelectBuilder) ([]model.Action, error) {
	rows, err := s.query(ctx, b)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Action

	for rows.Next() {
		a, err := scanAction(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, *a)
	}

	return out, rows.Err()
}

func (s *DB) ListActions(ctx context.Context, stateID model.ID) ([]model.Action, error) {
	return s.listActions(ctx, s.sq.Select(actionColumns...).From("actions").
		Where(sq.Eq{"state_id": stateID}).OrderBy("id"))
}

func (s *DB) ListUploads(ctx context.Context, branchID, domainID model.ID) ([]model.Action, error) {
	cols := make([]string, len(actionColumns))
	for i, c := range actionColumns {
		cols[i] = "a." + c
	}

	return s.listActions(ctx, s.sq.Select(cols...).From("actions a").
		Join("states st ON st.id = a.state_id").
		Where(sq.Eq{"st.branch_id": branchID, "st.domain_id": domainID}).
		Where(sq.NotEq{"a.file": ""}).
		OrderBy("a.id"))
}

func (s *DB) DeleteActions(ctx context.Context, stateID model.ID) error {
	if _, err := s.exec(ctx, s.sq.Delete("actions").Where(sq.Eq{"state_id": stateID})); err != nil {
		return fmt.Errorf("failed to delete actions: %w", err)
	}

	return nil
}

func (s *DB) ArchiveAction(ctx context.Context, a *model.ArchivedAction) error {
	_, err := s.exec(ctx, s.sq.Insert("archived_actions").
		Columns("action_id", "sequence", "state_id", "person_id", "name", "created", "comment", "file", "merged_file").
		Values(a.ActionID, a.Sequence, a.StateID, a.PersonID, a.Name, formatTime(a.Created), a.Comment, a.File, a.MergedFile).
		Suffix("ON CONFLICT(action_id) DO NOTHING"))
	if err != nil {
		return fmt.Errorf("failed to archive action %d: %w", a.ActionID, err)
	}

	stored, err := scanAction(s.queryRow(ctx, s.sq.Select(actionColumns...).Column("action_id").Column("sequence").
		From("archived_actions").Where(sq.Eq{"action_id": a.ActionID})), &a.ActionID, &a.Sequence)
	if err != nil {
		return notFound(err, "archived action")
	}

	a.Action = *stored

	return nil
}

func (s *DB) SetSequence(ctx context.Context, archivedID, sequence model.ID) error {
	res, err := s.exec(ctx, s.sq.Update("archived_actions").Set("sequence", sequence).Where(sq.Eq{"id": archivedID}))

	return requireRow(res, err, "archived action")
}

func (s *DB) ListArchivedActions(ctx context.Context, sequence model.ID) ([]model.ArchivedAction, error) {
	rows, err := s.query(ctx, s.sq.Select(actionColumns...).Column("action_id").Column("sequence").
		From("archived_actions").Where(sq.Eq{"sequence": sequence}).OrderBy("action_id"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ArchivedAction

	for rows.Next() {
		var aa model.ArchivedAction

		a, err := scanAction(rows, &aa.ActionID, &aa.Sequence)
		if err != nil {
			return nil, err
		}

		aa.Action = *a
		out = append(out, aa)
	}

	return out, rows.Err()
}

func (s *DB) ListSequences(ctx context.Context, stateID model.ID) ([]model.ID, error) {
	return s.listIDs(ctx, s.sq.Select("sequence").From("archived_actions").
		Where(sq.Eq{"state_id": stateID}).GroupBy("sequence").OrderBy("sequence DESC"))
}

func (s *DB) ExpiredSequences(ctx context.Context, before time.Time) ([]model.ID, error) {
	return s.listIDs(ctx, s.sq.Select("sequence").From("archived_actions").
		GroupBy("sequence").Having("MAX(created) < ?", formatTime(before)).OrderBy("sequence"))
}

func (s *DB) DeleteSequence(ctx context.Context, sequence model.ID) error {
	if _, err := s.exec(ctx, s.sq.Delete("archived_actions").Where(sq.Eq{"sequence": sequence})); err != nil {
		return fmt.Errorf("failed to delete sequence %d: %w", sequence, err)
	}

	return nil
}

func (s *DB) listIDs(ctx context.Context, b sq.SelectBuilder) ([]model.ID, error) {
	rows, err := s.query(ctx, b)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ID

	for rows.Next() {
		var id model.ID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}

		out = append(out, id)
	}

	return out, rows.Err()
}
