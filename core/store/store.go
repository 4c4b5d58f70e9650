// Copyright 2025, the Vertimus contributors
// SPDX-License-Identifier: AGPL-3.0-only

// Package store declares the persistence contract shared by the statistics
// engine and the workflow. The sqlite subpackage implements it.
package store

import (
	"context"
	"errors"
	"time"

	"codeberg.org/vertimus/vertimus/core/model"
)

// ErrNotFound is returned when a looked up row does not exist.
var ErrNotFound = errors.New("not found")

// Store persists the data model. Methods are safe for concurrent use.
type Store interface {
	Catalog
	People
	Stats
	Workflow

	// InTx runs fn with a Store bound to one transaction. The transaction
	// commits when fn returns nil and rolls back otherwise. Nested calls
	// reuse the outer transaction.
	InTx(ctx context.Context, fn func(tx Store) error) error

	Close() error
}

// Catalog covers modules, branches, domains, releases and categories.
type Catalog interface {
	CreateModule(ctx context.Context, m *model.Module) error
	UpdateModule(ctx context.Context, m *model.Module) error
	GetModule(ctx context.Context, id model.ID) (*model.Module, error)
	GetModuleByName(ctx context.Context, name string) (*model.Module, error)
	ListModules(ctx context.Context) ([]model.Module, error)

	CreateBranch(ctx context.Context, b *model.Branch) error
	UpdateBranch(ctx context.Context, b *model.Branch) error
	GetBranch(ctx context.Context, id model.ID) (*model.Branch, error)
	ListBranches(ctx context.Context, moduleID model.ID) ([]model.Branch, error)
	DeleteBranch(ctx context.Context, id model.ID) error

	CreateDomain(ctx context.Context, d *model.Domain) error
	GetDomain(ctx context.Context, id model.ID) (*model.Domain, error)
	ListDomains(ctx context.Context, moduleID model.ID) ([]model.Domain, error)

	CreateRelease(ctx context.Context, r *model.Release) error
	GetRelease(ctx context.Context, id model.ID) (*model.Release, error)
	GetReleaseByName(ctx context.Context, name string) (*model.Release, error)
	ListReleases(ctx context.Context) ([]model.Release, error)
	// ReleasesForBranch returns the releases the branch takes part in.
	ReleasesForBranch(ctx context.Context, branchID model.ID) ([]model.Release, error)

	// SaveCategory inserts or replaces the category of (release, branch).
	SaveCategory(ctx context.Context, c *model.Category) error
	ListCategories(ctx context.Context, releaseID model.ID) ([]model.Category, error)
}

// People covers languages, teams, people, roles and maintainers.
type People interface {
	CreateTeam(ctx context.Context, t *model.Team) error
	GetTeam(ctx context.Context, id model.ID) (*model.Team, error)

	CreateLanguage(ctx context.Context, l *model.Language) error
	GetLanguage(ctx context.Context, id model.ID) (*model.Language, error)
	GetLanguageByLocale(ctx context.Context, locale string) (*model.Language, error)
	ListLanguages(ctx context.Context) ([]model.Language, error)

	CreatePerson(ctx context.Context, p *model.Person) error
	UpdatePerson(ctx context.Context, p *model.Person) error
	GetPerson(ctx context.Context, id model.ID) (*model.Person, error)
	GetPersonByEmail(ctx context.Context, email string) (*model.Person, error)

	// SaveRole inserts or updates the role of (team, person).
	SaveRole(ctx context.Context, r *model.Role) error
	GetRole(ctx context.Context, teamID, personID model.ID) (*model.Role, error)
	ListRoles(ctx context.Context, teamID model.ID) ([]model.Role, error)
	// DeactivateRoles marks inactive every active role whose person last
	// logged in before the cutoff, and returns how many changed.
	DeactivateRoles(ctx context.Context, before time.Time) (int, error)

	ListMaintainers(ctx context.Context, moduleID model.ID) ([]model.Person, error)
	SetMaintainers(ctx context.Context, moduleID model.ID, personIDs []model.ID) error
}

// Stats covers message file snapshots, statistics and diagnostics.
type Stats interface {
	// SavePoFile inserts p when its ID is zero and updates it otherwise.
	SavePoFile(ctx context.Context, p *model.PoFile) error
	GetPoFile(ctx context.Context, id model.ID) (*model.PoFile, error)
	// DeletePoFile removes a snapshot no statistics row refers to anymore.
	DeletePoFile(ctx context.Context, id model.ID) error

	// GetStatistics loads the row with its files and diagnostics. A nil
	// languageID selects the template row.
	GetStatistics(ctx context.Context, branchID, domainID model.ID, languageID *model.ID) (*model.Statistics, error)
	// ListStatistics loads every row of the given branches, files and
	// diagnostics included. A zero domainID selects all domains.
	ListStatistics(ctx context.Context, branchIDs []model.ID, domainID model.ID) ([]model.Statistics, error)
	// SaveStatistics inserts or updates the row for its (branch, domain,
	// language) and replaces its diagnostics with s.Information.
	SaveStatistics(ctx context.Context, s *model.Statistics) error
	// DeleteStatistics removes the row, its diagnostics and its files.
	DeleteStatistics(ctx context.Context, id model.ID) error
}

// Workflow covers states, live actions and archived actions.
type Workflow interface {
	// GetOrCreateState returns the state of the triple, creating a None
	// state on first access.
	GetOrCreateState(ctx context.Context, branchID, domainID, languageID model.ID) (*model.State, error)
	GetState(ctx context.Context, id model.ID) (*model.State, error)
	SaveState(ctx context.Context, s *model.State) error

	CreateAction(ctx context.Context, a *model.Action) error
	UpdateAction(ctx context.Context, a *model.Action) error
	// ListActions returns live actions of the state, oldest first.
	ListActions(ctx context.Context, stateID model.ID) ([]model.Action, error)
	// ListUploads returns live actions carrying a file for any language of
	// the branch and domain.
	ListUploads(ctx context.Context, branchID, domainID model.ID) ([]model.Action, error)
	DeleteActions(ctx context.Context, stateID model.ID) error

	// ArchiveAction stores a copy of a live action. Archiving the same
	// action twice returns the existing copy.
	ArchiveAction(ctx context.Context, a *model.ArchivedAction) error
	SetSequence(ctx context.Context, archivedID, sequence model.ID) error
	// ListArchivedActions returns the actions of one sequence, oldest first.
	ListArchivedActions(ctx context.Context, sequence model.ID) ([]model.ArchivedAction, error)
	// ListSequences returns the archived sequences of a state, newest first.
	ListSequences(ctx context.Context, stateID model.ID) ([]model.ID, error)
	// ExpiredSequences returns sequences whose newest action is older than
	// the cutoff.
	ExpiredSequences(ctx context.Context, before time.Time) ([]model.ID, error)
	DeleteSequence(ctx context.Context, sequence model.ID) error
}
