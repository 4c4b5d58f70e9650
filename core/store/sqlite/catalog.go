// Copyright 2025, the Vertimus contributors
// SPDX-License-Identifier: AGPL-3.0-only

package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"codeberg.org/vertimus/vertimus/core/model"
)

type scanner interface {
	Scan(dest ...any) error
}

var moduleColumns = []string{
	"id", "name", "description", "homepage", "comment", "bugs_base", "bugs_product",
	"bugs_component", "vcs_type", "vcs_root", "vcs_web", "ext_platform",
}

func scanModule(r scanner) (*model.Module, error) {
	var m model.Module

	err := r.Scan(&m.ID, &m.Name, &m.Description, &m.Homepage, &m.Comment, &m.BugsBase,
		&m.BugsProduct, &m.BugsComponent, &m.VCSType, &m.VCSRoot, &m.VCSWeb, &m.ExtPlatform)
	if err != nil {
		return nil, err
	}

	return &m, nil
}

func (s *DB) CreateModule(ctx context.Context, m *model.Module) error {
	id, err := s.insert(ctx, s.sq.Insert("modules").
		Columns(moduleColumns[1:]...).
		Values(m.Name, m.Description, m.Homepage, m.Comment, m.BugsBase, m.BugsProduct,
			m.BugsComponent, m.VCSType, m.VCSRoot, m.VCSWeb, m.ExtPlatform))
	if err != nil {
		return fmt.Errorf("failed to create module %s: %w", m.Name, err)
	}

	m.ID = id

	return nil
}

func (s *DB) UpdateModule(ctx context.Context, m *model.Module) error {
	res, err := s.exec(ctx, s.sq.Update("modules").SetMap(map[string]any{
		"name":           m.Name,
		"description":    m.Description,
		"homepage":       m.Homepage,
		"comment":        m.Comment,
		"bugs_base":      m.BugsBase,
		"bugs_product":   m.BugsProduct,
		"bugs_component": m.BugsComponent,
		"vcs_type":       m.VCSType,
		"vcs_root":       m.VCSRoot,
		"vcs_web":        m.VCSWeb,
		"ext_platform":   m.ExtPlatform,
	}).Where(sq.Eq{"id": m.ID}))

	return requireRow(res, err, "module")
}

func (s *DB) GetModule(ctx context.Context, id model.ID) (*model.Module, error) {
	m, err := scanModule(s.queryRow(ctx, s.sq.Select(moduleColumns...).From("modules").Where(sq.Eq{"id": id})))

	return m, notFound(err, "module")
}

func (s *DB) GetModuleByName(ctx context.Context, name string) (*model.Module, error) {
	m, err := scanModule(s.queryRow(ctx, s.sq.Select(moduleColumns...).From("modules").Where(sq.Eq{"name": name})))

	return m, notFound(err, "module "+name)
}

func (s *DB) ListModules(ctx context.Context) ([]model.Module, error) {
	rows, err := s.query(ctx, s.sq.Select(moduleColumns...).From("modules").OrderBy("name"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Module

	for rows.Next() {
		m, err := scanModule(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, *m)
	}

	return out, rows.Err()
}

var branchColumns = []string{"id", "module_id", "name", "vcs_subpath", "weight", "file_hashes"}

func scanBranch(r scanner) (*model.Branch, error) {
	var (
		b      model.Branch
		hashes string
	)

	if err := r.Scan(&b.ID, &b.ModuleID, &b.Name, &b.VCSSubpath, &b.Weight, &hashes); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(hashes), &b.FileHashes); err != nil {
		return nil, fmt.Errorf("invalid file hashes of branch %d: %w", b.ID, err)
	}

	return &b, nil
}

func encodeHashes(h map[string]string) (string, error) {
	if h == nil {
		h = map[string]string{}
	}

	raw, err := json.Marshal(h)

	return string(raw), err
}

func (s *DB) CreateBranch(ctx context.Context, b *model.Branch) error {
	hashes, err := encodeHashes(b.FileHashes)
	if err != nil {
		return err
	}

	id, err := s.insert(ctx, s.sq.Insert("branches").
		Columns(branchColumns[1:]...).
		Values(b.ModuleID, b.Name, b.VCSSubpath, b.Weight, hashes))
	if err != nil {
		return fmt.Errorf("failed to create branch %s: %w", b.Name, err)
	}

	b.ID = id

	return nil
}

func (s *DB) UpdateBranch(ctx context.Context, b *model.Branch) error {
	hashes, err := encodeHashes(b.FileHashes)
	if err != nil {
		return err
	}

	res, err := s.exec(ctx, s.sq.Update("branches").SetMap(map[string]any{
		"name":        b.Name,
		"vcs_subpath": b.VCSSubpath,
		"weight":      b.Weight,
		"file_hashes": hashes,
	}).Where(sq.Eq{"id": b.ID}))

	return requireRow(res, err, "branch")
}

func (s *DB) GetBranch(ctx context.Context, id model.ID) (*model.Branch, error) {
	b, err := scanBranch(s.queryRow(ctx, s.sq.Select(branchColumns...).From("branches").Where(sq.Eq{"id": id})))

	return b, notFound(err, "branch")
}

func (s *DB) ListBranches(ctx context.Context, moduleID model.ID) ([]model.Branch, error) {
	rows, err := s.query(ctx, s.sq.Select(branchColumns...).From("branches").Where(sq.Eq{"module_id": moduleID}))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Branch

	for rows.Next() {
		b, err := scanBranch(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, *b)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	model.SortBranches(out)

	return out, nil
}

func (s *DB) DeleteBranch(ctx context.Context, id model.ID) error {
	res, err := s.exec(ctx, s.sq.Delete("branches").Where(sq.Eq{"id": id}))

	return requireRow(res, err, "branch")
}

var domainColumns = []string{
	"id", "module_id", "name", "description", "dtype", "directory", "pot_method",
	"linguas_location", "red_filter",
}

func scanDomain(r scanner) (*model.Domain, error) {
	var d model.Domain

	err := r.Scan(&d.ID, &d.ModuleID, &d.Name, &d.Description, &d.Type, &d.Directory,
		&d.PotMethod, &d.LinguasLocation, &d.RedFilter)
	if err != nil {
		return nil, err
	}

	return &d, nil
}

func (s *DB) CreateDomain(ctx context.Context, d *model.Domain) error {
	id, err := s.insert(ctx, s.sq.Insert("domains").
		Columns(domainColumns[1:]...).
		Values(d.ModuleID, d.Name, d.Description, d.Type, d.Directory, d.PotMethod,
			d.LinguasLocation, d.RedFilter))
	if err != nil {
		return fmt.Errorf("failed to create domain %s: %w", d.Name, err)
	}

	d.ID = id

	return nil
}

func (s *DB) GetDomain(ctx context.Context, id model.ID) (*model.Domain, error) {
	d, err := scanDomain(s.queryRow(ctx, s.sq.Select(domainColumns...).From("domains").Where(sq.Eq{"id": id})))

	return d, notFound(err, "domain")
}

func (s *DB) ListDomains(ctx context.Context, moduleID model.ID) ([]model.Domain, error) {
	rows, err := s.query(ctx, s.sq.Select(domainColumns...).From("domains").
		Where(sq.Eq{"module_id": moduleID}).OrderBy("dtype DESC", "name"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Domain

	for rows.Next() {
		d, err := scanDomain(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, *d)
	}

	return out, rows.Err()
}

var releaseColumns = []string{"id", "name", "description", "string_frozen", "status", "weight"}

func scanRelease(r scanner) (*model.Release, error) {
	var rel model.Release

	if err := r.Scan(&rel.ID, &rel.Name, &rel.Description, &rel.StringFrozen, &rel.Status, &rel.Weight); err != nil {
		return nil, err
	}

	return &rel, nil
}

func (s *DB) CreateRelease(ctx context.Context, r *model.Release) error {
	id, err := s.insert(ctx, s.sq.Insert("releases").
		Columns(releaseColumns[1:]...).
		Values(r.Name, r.Description, r.StringFrozen, r.Status, r.Weight))
	if err != nil {
		return fmt.Errorf("failed to create release %s: %w", r.Name, err)
	}

	r.ID = id

	return nil
}

func (s *DB) GetRelease(ctx context.Context, id model.ID) (*model.Release, error) {
	r, err := scanRelease(s.queryRow(ctx, s.sq.Select(releaseColumns...).From("releases").Where(sq.Eq{"id": id})))

	return r, notFound(err, "release")
}

func (s *DB) GetReleaseByName(ctx context.Context, name string) (*model.Release, error) {
	r, err := scanRelease(s.queryRow(ctx, s.sq.Select(releaseColumns...).From("releases").Where(sq.Eq{"name": name})))

	return r, notFound(err, "release "+name)
}

func (s *DB) listReleases(ctx context.Context, b sq.SelectBuilder) ([]model.Release, error) {
	rows, err := s.query(ctx, b)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Release

	for rows.Next() {
		r, err := scanRelease(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, *r)
	}

	return out, rows.Err()
}

func (s *DB) ListReleases(ctx context.Context) ([]model.Release, error) {
	return s.listReleases(ctx, s.sq.Select(releaseColumns...).From("releases").OrderBy("status", "weight DESC", "name DESC"))
}

func (s *DB) ReleasesForBranch(ctx context.Context, branchID model.ID) ([]model.Release, error) {
	cols := make([]string, len(releaseColumns))
	for i, c := range releaseColumns {
		cols[i] = "r." + c
	}

	return s.listReleases(ctx, s.sq.Select(cols...).From("releases r").
		Join("categories c ON c.release_id = r.id").
		Where(sq.Eq{"c.branch_id": branchID}).
		OrderBy("r.weight DESC", "r.name"))
}

func (s *DB) SaveCategory(ctx context.Context, c *model.Category) error {
	if c.Name == "" {
		c.Name = model.CategoryNames[0]
	}

	_, err := s.exec(ctx, s.sq.Insert("categories").
		Columns("release_id", "branch_id", "name").
		Values(c.ReleaseID, c.BranchID, c.Name).
		Suffix("ON CONFLICT(release_id, branch_id) DO UPDATE SET name = excluded.name"))
	if err != nil {
		return fmt.Errorf("failed to save category: %w", err)
	}

	return s.queryRow(ctx, s.sq.Select("id").From("categories").
		Where(sq.Eq{"release_id": c.ReleaseID, "branch_id": c.BranchID})).Scan(&c.ID)
}

func (s *DB) ListCategories(ctx context.Context, releaseID model.ID) ([]model.Category, error) {
	rows, err := s.query(ctx, s.sq.Select("id", "release_id", "branch_id", "name").
		From("categories").Where(sq.Eq{"release_id": releaseID}).OrderBy("name", "id"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Category

	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.ReleaseID, &c.BranchID, &c.Name); err != nil {
			return nil, err
		}

		out = append(out, c)
	}

	return out, rows.Err()
}
