// Copyright 2025, the Vertimus contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package workflow implements the translation workflow ("Vertimus") run by
language teams on every (branch, domain, language).

A State names where the translation stands and who holds it. People move
it forward by applying actions. Which actions a person may apply depends
on the state, on the person's role in the language team and on whether
the person currently holds the state. Every applied action is recorded;
once a translation is committed its actions are archived as one sequence
and the state starts over.
*/
package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"codeberg.org/vertimus/vertimus/core/keylock"
	"codeberg.org/vertimus/vertimus/core/model"
	"codeberg.org/vertimus/vertimus/core/notify"
	"codeberg.org/vertimus/vertimus/core/shell"
	"codeberg.org/vertimus/vertimus/core/stats"
	"codeberg.org/vertimus/vertimus/core/store"
	"codeberg.org/vertimus/vertimus/core/vcs"
)

var (
	// ErrActionNotAllowed is returned when the person may not apply the
	// action on the state. Nothing is changed.
	ErrActionNotAllowed = errors.New("action not allowed")
	// ErrFileRequired is returned for uploads without a file.
	ErrFileRequired = errors.New("action requires a file")
	// ErrNothingToCommit is returned when submitting a state without any
	// uploaded file.
	ErrNothingToCommit = errors.New("no uploaded file to submit")
	// ErrCommitFailed is returned when the version control commit of a
	// submission failed. Nothing is changed.
	ErrCommitFailed = vcs.ErrCommitFailed
)

// Options configures a Workflow. Store and Runner are required.
type Options struct {
	Store  store.Store
	Runner shell.Runner

	// Checkout and Committer are needed for direct submissions.
	Checkout  vcs.CheckoutProvider
	Committer vcs.Committer
	// CommitEnabled allows direct submissions to git branches.
	CommitEnabled bool

	Notifier notify.Sink
	SiteURL  string

	// Layout locates the current templates uploads are merged with.
	Layout stats.Layout
	// UploadDir stores the files attached to actions.
	UploadDir string

	// ArchiveRetention is how long archived sequences are kept.
	ArchiveRetention time.Duration
	// RoleInactivity is how long a person may stay away before their
	// roles are deactivated.
	RoleInactivity time.Duration
}

// Workflow applies actions. It is safe for concurrent use.
type Workflow struct {
	store     store.Store
	runner    shell.Runner
	checkout  vcs.CheckoutProvider
	committer vcs.Committer
	canCommit bool

	notifier notify.Sink
	siteURL  string

	layout    stats.Layout
	uploadDir string

	retention  time.Duration
	inactivity time.Duration

	locks  *keylock.Locker[model.ID]
	logger zerolog.Logger
}

var _ stats.UploadRefresher = (*Workflow)(nil)

// New returns a Workflow.
func New(opts Options) *Workflow {
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notify.Discard{}
	}

	return &Workflow{
		store:      opts.Store,
		runner:     opts.Runner,
		checkout:   opts.Checkout,
		committer:  opts.Committer,
		canCommit:  opts.CommitEnabled && opts.Committer != nil && opts.Checkout != nil,
		notifier:   notifier,
		siteURL:    opts.SiteURL,
		layout:     opts.Layout,
		uploadDir:  opts.UploadDir,
		retention:  opts.ArchiveRetention,
		inactivity: opts.RoleInactivity,
		locks:      keylock.New[model.ID](),
		logger:     log.With().Str("sys", "workflow").Logger(),
	}
}

// StateFor returns the state of a translation, creating it on first use.
func (w *Workflow) StateFor(ctx context.Context, b *model.Branch, d *model.Domain, l *model.Language) (*model.State, error) {
	return w.store.GetOrCreateState(ctx, b.ID, d.ID, l.ID)
}

// subject gathers the rows a state refers to.
type subject struct {
	state    *model.State
	module   *model.Module
	branch   *model.Branch
	domain   *model.Domain
	language *model.Language
	team     *model.Team
}

func (w *Workflow) load(ctx context.Context, st store.Store, stateID model.ID) (*subject, error) {
	s := &subject{}

	var err error

	if s.state, err = st.GetState(ctx, stateID); err != nil {
		return nil, err
	}

	if s.branch, err = st.GetBranch(ctx, s.state.BranchID); err != nil {
		return nil, err
	}

	if s.module, err = st.GetModule(ctx, s.branch.ModuleID); err != nil {
		return nil, err
	}

	if s.domain, err = st.GetDomain(ctx, s.state.DomainID); err != nil {
		return nil, err
	}

	if s.language, err = st.GetLanguage(ctx, s.state.LanguageID); err != nil {
		return nil, err
	}

	if s.language.TeamID != nil {
		if s.team, err = st.GetTeam(ctx, *s.language.TeamID); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// writable reports whether translations of the subject may be committed
// directly from the workflow.
func (w *Workflow) writable(s *subject) bool {
	return w.canCommit && !s.module.ExtPlatform && s.module.VCSType == "git"
}

// role returns the team role of p, and the role row when one exists.
func (w *Workflow) role(ctx context.Context, st store.Store, s *subject, p *model.Person) (*model.Role, error) {
	if s.team == nil {
		return nil, nil
	}

	r, err := st.GetRole(ctx, s.team.ID, p.ID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}

	return r, err
}

func (w *Workflow) actorOf(ctx context.Context, st store.Store, s *subject, p *model.Person) (actor, *model.Role, error) {
	a := actor{holder: s.state.HeldBy(p.ID)}

	r, err := w.role(ctx, st, s, p)
	if err != nil {
		return a, nil, err
	}

	if r != nil {
		a.role = r.Name
	}

	maintainers, err := st.ListMaintainers(ctx, s.module.ID)
	if err != nil {
		return a, nil, err
	}

	for _, m := range maintainers {
		if m.ID == p.ID {
			a.maintainer = true

			break
		}
	}

	return a, r, nil
}

// AvailableActions returns the actions p may apply on the state.
func (w *Workflow) AvailableActions(ctx context.Context, stateID model.ID, p *model.Person) ([]model.ActionName, error) {
	s, err := w.load(ctx, w.store, stateID)
	if err != nil {
		return nil, err
	}

	a, _, err := w.actorOf(ctx, w.store, s, p)
	if err != nil {
		return nil, err
	}

	return available(s.state.Name, a, w.writable(s)), nil
}

func describe(s *subject) string {
	return fmt.Sprintf("%s.%s %s (%s)", s.module.Name, s.branch.Name, s.domain.Name, s.language.Locale)
}
