// Copyright 2025, the Vertimus contributors
// SPDX-License-Identifier: AGPL-3.0-only

package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"codeberg.org/vertimus/vertimus/core/model"
)

var teamColumns = []string{"id", "name", "description", "webpage_url", "mailing_list", "use_workflow", "presentation"}

func (s *DB) CreateTeam(ctx context.Context, t *model.Team) error {
	id, err := s.insert(ctx, s.sq.Insert("teams").
		Columns(teamColumns[1:]...).
		Values(t.Name, t.Description, t.WebpageURL, t.MailingList, t.UseWorkflow, t.Presentation))
	if err != nil {
		return fmt.Errorf("failed to create team %s: %w", t.Name, err)
	}

	t.ID = id

	return nil
}

func (s *DB) GetTeam(ctx context.Context, id model.ID) (*model.Team, error) {
	var t model.Team

	err := s.queryRow(ctx, s.sq.Select(teamColumns...).From("teams").Where(sq.Eq{"id": id})).
		Scan(&t.ID, &t.Name, &t.Description, &t.WebpageURL, &t.MailingList, &t.UseWorkflow, &t.Presentation)
	if err != nil {
		return nil, notFound(err, "team")
	}

	return &t, nil
}

var languageColumns = []string{"id", "name", "locale", "plural_forms", "team_id"}

func scanLanguage(r scanner) (*model.Language, error) {
	var (
		l    model.Language
		team sql.NullInt64
	)

	if err := r.Scan(&l.ID, &l.Name, &l.Locale, &l.PluralForms, &team); err != nil {
		return nil, err
	}

	l.TeamID = idPtr(team)

	return &l, nil
}

func (s *DB) CreateLanguage(ctx context.Context, l *model.Language) error {
	id, err := s.insert(ctx, s.sq.Insert("languages").
		Columns(languageColumns[1:]...).
		Values(l.Name, l.Locale, l.PluralForms, nullID(l.TeamID)))
	if err != nil {
		return fmt.Errorf("failed to create language %s: %w", l.Locale, err)
	}

	l.ID = id

	return nil
}

func (s *DB) GetLanguage(ctx context.Context, id model.ID) (*model.Language, error) {
	l, err := scanLanguage(s.queryRow(ctx, s.sq.Select(languageColumns...).From("languages").Where(sq.Eq{"id": id})))

	return l, notFound(err, "language")
}

func (s *DB) GetLanguageByLocale(ctx context.Context, locale string) (*model.Language, error) {
	l, err := scanLanguage(s.queryRow(ctx, s.sq.Select(languageColumns...).From("languages").Where(sq.Eq{"locale": locale})))

	return l, notFound(err, "language "+locale)
}

func (s *DB) ListLanguages(ctx context.Context) ([]model.Language, error) {
	rows, err := s.query(ctx, s.sq.Select(languageColumns...).From("languages").OrderBy("name"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Language

	for rows.Next() {
		l, err := scanLanguage(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, *l)
	}

	return out, rows.Err()
}

var personColumns = []string{"id", "username", "first_name", "last_name", "email", "vcs_account", "last_login"}

func scanPerson(r scanner) (*model.Person, error) {
	var (
		p         model.Person
		lastLogin string
	)

	if err := r.Scan(&p.ID, &p.Username, &p.FirstName, &p.LastName, &p.Email, &p.VCSAccount, &lastLogin); err != nil {
		return nil, err
	}

	p.LastLogin = parseTime(lastLogin)

	return &p, nil
}

func (s *DB) CreatePerson(ctx context.Context, p *model.Person) error {
	id, err := s.insert(ctx, s.sq.Insert("people").
		Columns(personColumns[1:]...).
		Values(p.Username, p.FirstName, p.LastName, p.Email, p.VCSAccount, formatTime(p.LastLogin)))
	if err != nil {
		return fmt.Errorf("failed to create person %s: %w", p.Username, err)
	}

	p.ID = id

	return nil
}

func (s *DB) UpdatePerson(ctx context.Context, p *model.Person) error {
	res, err := s.exec(ctx, s.sq.Update("people").SetMap(map[string]any{
		"username":    p.Username,
		"first_name":  p.FirstName,
		"last_name":   p.LastName,
		"email":       p.Email,
		"vcs_account": p.VCSAccount,
		"last_login":  formatTime(p.LastLogin),
	}).Where(sq.Eq{"id": p.ID}))

	return requireRow(res, err, "person")
}

func (s *DB) GetPerson(ctx context.Context, id model.ID) (*model.Person, error) {
	p, err := scanPerson(s.queryRow(ctx, s.sq.Select(personColumns...).From("people").Where(sq.Eq{"id": id})))

	return p, notFound(err, "person")
}

func (s *DB) GetPersonByEmail(ctx context.Context, email string) (*model.Person, error) {
	p, err := scanPerson(s.queryRow(ctx, s.sq.Select(personColumns...).From("people").
		Where(sq.Eq{"lower(email)": strings.ToLower(email)}).OrderBy("id").Limit(1)))

	return p, notFound(err, "person "+email)
}

func (s *DB) SaveRole(ctx context.Context, r *model.Role) error {
	_, err := s.exec(ctx, s.sq.Insert("roles").
		Columns("team_id", "person_id", "role", "is_active").
		Values(r.TeamID, r.PersonID, r.Name, r.IsActive).
		Suffix("ON CONFLICT(team_id, person_id) DO UPDATE SET role = excluded.role, is_active = excluded.is_active"))
	if err != nil {
		return fmt.Errorf("failed to save role: %w", err)
	}

	return s.queryRow(ctx, s.sq.Select("id").From("roles").
		Where(sq.Eq{"team_id": r.TeamID, "person_id": r.PersonID})).Scan(&r.ID)
}

func (s *DB) GetRole(ctx context.Context, teamID, personID model.ID) (*model.Role, error) {
	var r model.Role

	err := s.queryRow(ctx, s.sq.Select("id", "team_id", "person_id", "role", "is_active").From("roles").
		Where(sq.Eq{"team_id": teamID, "person_id": personID})).
		Scan(&r.ID, &r.TeamID, &r.PersonID, &r.Name, &r.IsActive)
	if err != nil {
		return nil, notFound(err, "role")
	}

	return &r, nil
}

func (s *DB) ListRoles(ctx context.Context, teamID model.ID) ([]model.Role, error) {
	rows, err := s.query(ctx, s.sq.Select("id", "team_id", "person_id", "role", "is_active").
		From("roles").Where(sq.Eq{"team_id": teamID}).OrderBy("id"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Role

	for rows.Next() {
		var r model.Role
		if err := rows.Scan(&r.ID, &r.TeamID, &r.PersonID, &r.Name, &r.IsActive); err != nil {
			return nil, err
		}

		out = append(out, r)
	}

	return out, rows.Err()
}

func (s *DB) DeactivateRoles(ctx context.Context, before time.Time) (int, error) {
	res, err := s.exec(ctx, s.sq.Update("roles").Set("is_active", false).
		Where(sq.Eq{"is_active": true}).
		// People who never logged in keep their roles.
		Where(sq.Expr("person_id IN (SELECT id FROM people WHERE last_login <> '' AND last_login < ?)", formatTime(before))))
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate roles: %w", err)
	}

	n, err := res.RowsAffected()

	return int(n), err
}

func (s *DB) ListMaintainers(ctx context.Context, moduleID model.ID) ([]model.Person, error) {
	cols := make([]string, len(personColumns))
	for i, c := range personColumns {
		cols[i] = "p." + c
	}

	rows, err := s.query(ctx, s.sq.Select(cols...).From("people p").
		Join("module_maintainers mm ON mm.person_id = p.id").
		Where(sq.Eq{"mm.module_id": moduleID}).OrderBy("p.username"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Person

	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, *p)
	}

	return out, rows.Err()
}

func (s *DB) SetMaintainers(ctx context.Context, moduleID model.ID, personIDs []model.ID) error {
	if _, err := s.exec(ctx, s.sq.Delete("module_maintainers").Where(sq.Eq{"module_id": moduleID})); err != nil {
		return fmt.Errorf("failed to clear maintainers: %w", err)
	}

	if len(personIDs) == 0 {
		return nil
	}

	b := s.sq.Insert("module_maintainers").Columns("module_id", "person_id").Suffix("ON CONFLICT DO NOTHING")
	for _, id := range personIDs {
		b = b.Values(moduleID, id)
	}

	if _, err := s.exec(ctx, b); err != nil {
		return fmt.Errorf("failed to set maintainers: %w", err)
	}

	return nil
}
