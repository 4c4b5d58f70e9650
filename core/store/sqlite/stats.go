// Copyright 2025, the Vertimus contributors
// SPDX-License-Identifier: AGPL-3.0-only

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"codeberg.org/vertimus/vertimus/core/model"
)

var poFileColumns = []string{
	"id", "path", "translated", "fuzzy", "untranslated", "translated_words", "fuzzy_words",
	"untranslated_words", "figures", "updated",
}

func scanPoFile(r scanner) (*model.PoFile, error) {
	var (
		p       model.PoFile
		figures string
		updated string
	)

	err := r.Scan(&p.ID, &p.Path, &p.Translated, &p.Fuzzy, &p.Untranslated, &p.TranslatedWords,
		&p.FuzzyWords, &p.UntranslatedWords, &figures, &updated)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(figures), &p.Figures); err != nil {
		return nil, fmt.Errorf("invalid figures of po file %d: %w", p.ID, err)
	}

	p.Updated = parseTime(updated)

	return &p, nil
}

func (s *DB) SavePoFile(ctx context.Context, p *model.PoFile) error {
	figures := []byte("[]")

	if len(p.Figures) > 0 {
		var err error
		if figures, err = json.Marshal(p.Figures); err != nil {
			return err
		}
	}

	if p.Updated.IsZero() {
		p.Updated = time.Now()
	}

	values := map[string]any{
		"path":               p.Path,
		"translated":         p.Translated,
		"fuzzy":              p.Fuzzy,
		"untranslated":       p.Untranslated,
		"translated_words":   p.TranslatedWords,
		"fuzzy_words":        p.FuzzyWords,
		"untranslated_words": p.UntranslatedWords,
		"figures":            string(figures),
		"updated":            formatTime(p.Updated),
	}

	if p.ID != 0 {
		res, err := s.exec(ctx, s.sq.Update("po_files").SetMap(values).Where(sq.Eq{"id": p.ID}))

		return requireRow(res, err, "po file")
	}

	id, err := s.insert(ctx, s.sq.Insert("po_files").SetMap(values))
	if err != nil {
		return fmt.Errorf("failed to create po file: %w", err)
	}

	p.ID = id

	return nil
}

func (s *DB) GetPoFile(ctx context.Context, id model.ID) (*model.PoFile, error) {
	p, err := scanPoFile(s.queryRow(ctx, s.sq.Select(poFileColumns...).From("po_files").Where(sq.Eq{"id": id})))

	return p, notFound(err, "po file")
}

func (s *DB) DeletePoFile(ctx context.Context, id model.ID) error {
	res, err := s.exec(ctx, s.sq.Delete("po_files").Where(sq.Eq{"id": id}))

	return requireRow(res, err, "po file")
}

var statisticsColumns = []string{"id", "branch_id", "domain_id", "language_id", "full_po_id", "part_po_id", "date"}

func languageCond(languageID *model.ID) sq.Sqlizer {
	if languageID == nil {
		return sq.Eq{"language_id": nil}
	}

	return sq.Eq{"language_id": *languageID}
}

func (s *DB) GetStatistics(ctx context.Context, branchID, domainID model.ID, languageID *model.ID) (*model.Statistics, error) {
	out, err := s.listStatistics(ctx, s.sq.Select(statisticsColumns...).From("statistics").
		Where(sq.Eq{"branch_id": branchID, "domain_id": domainID}).
		Where(languageCond(languageID)))
	if err != nil {
		return nil, err
	}

	if len(out) == 0 {
		return nil, notFound(sql.ErrNoRows, "statistics")
	}

	return &out[0], nil
}

func (s *DB) ListStatistics(ctx context.Context, branchIDs []model.ID, domainID model.ID) ([]model.Statistics, error) {
	if len(branchIDs) == 0 {
		return nil, nil
	}

	b := s.sq.Select(statisticsColumns...).From("statistics").Where(sq.Eq{"branch_id": branchIDs})
	if domainID != 0 {
		b = b.Where(sq.Eq{"domain_id": domainID})
	}

	return s.listStatistics(ctx, b.OrderBy("branch_id", "domain_id", "language_id"))
}

func (s *DB) listStatistics(ctx context.Context, b sq.SelectBuilder) ([]model.Statistics, error) {
	rows, err := s.query(ctx, b)
	if err != nil {
		return nil, err
	}

	var out []model.Statistics

	for rows.Next() {
		var (
			st             model.Statistics
			lang, full, pt sql.NullInt64
			date           string
		)

		if err := rows.Scan(&st.ID, &st.BranchID, &st.DomainID, &lang, &full, &pt, &date); err != nil {
			rows.Close()

			return nil, err
		}

		st.LanguageID, st.FullPoID, st.PartPoID = idPtr(lang), idPtr(full), idPtr(pt)
		st.Date = parseTime(date)
		out = append(out, st)
	}

	// Finish the cursor before issuing the follow-up queries; the
	// database has a single connection.
	if err := rows.Close(); err != nil {
		return nil, err
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		if err := s.loadRelations(ctx, &out[i]); err != nil {
			return nil, err
		}
	}

	return out, nil
}

func (s *DB) loadRelations(ctx context.Context, st *model.Statistics) error {
	var err error

	if st.FullPoID != nil {
		if st.Full, err = s.GetPoFile(ctx, *st.FullPoID); err != nil {
			return err
		}
	}

	switch {
	case st.PartPoID == nil:
	case st.FullPoID != nil && *st.PartPoID == *st.FullPoID:
		st.Part = st.Full
	default:
		if st.Part, err = s.GetPoFile(ctx, *st.PartPoID); err != nil {
			return err
		}
	}

	rows, err := s.query(ctx, s.sq.Select("id", "statistics_id", "kind", "description").
		From("information").Where(sq.Eq{"statistics_id": st.ID}).OrderBy("id"))
	if err != nil {
		return err
	}
	defer rows.Close()

	st.Information = nil

	for rows.Next() {
		var info model.Information
		if err := rows.Scan(&info.ID, &info.StatisticsID, &info.Kind, &info.Description); err != nil {
			return err
		}

		st.Information = append(st.Information, info)
	}

	return rows.Err()
}

func (s *DB) SaveStatistics(ctx context.Context, st *model.Statistics) error {
	if st.Date.IsZero() {
		st.Date = time.Now()
	}

	if st.Full != nil {
		st.FullPoID = &st.Full.ID
	}

	if st.Part != nil {
		st.PartPoID = &st.Part.ID
	}

	if st.ID == 0 {
		existing, err := s.GetStatistics(ctx, st.BranchID, st.DomainID, st.LanguageID)

		switch {
		case err == nil:
			st.ID = existing.ID
		case !isNotFound(err):
			return err
		}
	}

	values := map[string]any{
		"branch_id":   st.BranchID,
		"domain_id":   st.DomainID,
		"language_id": nullID(st.LanguageID),
		"full_po_id":  nullID(st.FullPoID),
		"part_po_id":  nullID(st.PartPoID),
		"date":        formatTime(st.Date),
	}

	if st.ID == 0 {
		id, err := s.insert(ctx, s.sq.Insert("statistics").SetMap(values))
		if err != nil {
			return fmt.Errorf("failed to create statistics: %w", err)
		}

		st.ID = id
	} else {
		res, err := s.exec(ctx, s.sq.Update("statistics").SetMap(values).Where(sq.Eq{"id": st.ID}))
		if err := requireRow(res, err, "statistics"); err != nil {
			return err
		}
	}

	if _, err := s.exec(ctx, s.sq.Delete("information").Where(sq.Eq{"statistics_id": st.ID})); err != nil {
		return fmt.Errorf("failed to clear information: %w", err)
	}

	for i := range st.Information {
		info := &st.Information[i]
		info.StatisticsID = st.ID

		id, err := s.insert(ctx, s.sq.Insert("information").
			Columns("statistics_id", "kind", "description").
			Values(info.StatisticsID, info.Kind, info.Description))
		if err != nil {
			return fmt.Errorf("failed to add information: %w", err)
		}

		info.ID = id
	}

	return nil
}

func (s *DB) DeleteStatistics(ctx context.Context, id model.ID) error {
	var full, part sql.NullInt64

	err := s.queryRow(ctx, s.sq.Select("full_po_id", "part_po_id").From("statistics").Where(sq.Eq{"id": id})).
		Scan(&full, &part)
	if err != nil {
		return notFound(err, "statistics")
	}

	if _, err := s.exec(ctx, s.sq.Delete("statistics").Where(sq.Eq{"id": id})); err != nil {
		return fmt.Errorf("failed to delete statistics: %w", err)
	}

	var files []int64

	for _, n := range []sql.NullInt64{full, part} {
		if n.Valid {
			files = append(files, n.Int64)
		}
	}

	if len(files) > 0 {
		if _, err := s.exec(ctx, s.sq.Delete("po_files").Where(sq.Eq{"id": files})); err != nil {
			return fmt.Errorf("failed to delete po files: %w", err)
		}
	}

	return nil
}
