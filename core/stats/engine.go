// Copyright 2025, the Vertimus contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package stats regenerates translation templates from source checkouts and
measures how complete every language is.

An update works per module branch. The branch is checked out, then each
domain gets a fresh template which is compared with the previous one.
Language files are merged against it and counted. Results are stored as
snapshots linked from one statistics row per (branch, domain, language),
the template row having no language.

Updates of one module are serialized: its branches share checkout trees
and per-branch file hashes. Different modules update in parallel.
*/
package stats

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"codeberg.org/vertimus/vertimus/core/cache"
	"codeberg.org/vertimus/vertimus/core/keylock"
	"codeberg.org/vertimus/vertimus/core/model"
	"codeberg.org/vertimus/vertimus/core/notify"
	"codeberg.org/vertimus/vertimus/core/pocount"
	"codeberg.org/vertimus/vertimus/core/potdiff"
	"codeberg.org/vertimus/vertimus/core/shell"
	"codeberg.org/vertimus/vertimus/core/store"
	"codeberg.org/vertimus/vertimus/core/vcs"
)

// UploadRefresher re-merges uploaded translations against a new template.
type UploadRefresher interface {
	RefreshMergedFiles(ctx context.Context, b *model.Branch, d *model.Domain, potPath string) error
}

// Options configures an Engine. Store, Runner and Checkout are required.
type Options struct {
	Store    store.Store
	Runner   shell.Runner
	Checkout vcs.CheckoutProvider
	// Cache memoizes counts and template keys; it may be nil.
	Cache *cache.Cache
	// HTTP fetches templates of domains using a URL. A default client is
	// used when nil.
	HTTP *resty.Client

	// Notifier receives string additions in frozen releases.
	Notifier        notify.Sink
	NotificationsTo []string
	SiteURL         string

	Uploads UploadRefresher

	// PotDir is the root of generated templates and merged files.
	PotDir      string
	Parallelism int
}

// Outcome summarizes the update of one domain.
type Outcome struct {
	Domain string
	Change potdiff.Kind
	// Added lists the new message keys when the template gained strings.
	Added []string
	// Languages counts recomputed languages, Skipped unchanged ones.
	Languages int
	Skipped   int
	// Removed is set when the domain no longer exists in the branch.
	Removed bool
}

// Engine updates statistics. It is safe for concurrent use.
type Engine struct {
	store    store.Store
	runner   shell.Runner
	checkout vcs.CheckoutProvider
	counter  *pocount.Counter
	differ   *potdiff.Differ
	http     *resty.Client

	notifier notify.Sink
	notifyTo []string
	siteURL  string
	uploads  UploadRefresher

	layout      Layout
	parallelism int
	locks       *keylock.Locker[model.ID]
	pending     sync.WaitGroup

	logger zerolog.Logger
}

// New returns an Engine.
func New(opts Options) *Engine {
	client := opts.HTTP
	if client == nil {
		client = resty.New().SetHeader("User-Agent", "vertimus")
	}

	notifier := opts.Notifier
	if notifier == nil {
		notifier = notify.Discard{}
	}

	return &Engine{
		store:       opts.Store,
		runner:      opts.Runner,
		checkout:    opts.Checkout,
		counter:     pocount.New(opts.Runner, opts.Cache),
		differ:      &potdiff.Differ{Cache: opts.Cache},
		http:        client,
		notifier:    notifier,
		notifyTo:    opts.NotificationsTo,
		siteURL:     opts.SiteURL,
		uploads:     opts.Uploads,
		layout:      Layout{Root: opts.PotDir},
		parallelism: max(opts.Parallelism, 1),
		locks:       keylock.New[model.ID](),
		logger:      log.With().Str("sys", "stats").Logger(),
	}
}

// Layout returns where generated files are written.
func (e *Engine) Layout() Layout {
	return e.layout
}

// branchRun carries what every domain of a branch update shares.
type branchRun struct {
	module *model.Module
	branch *model.Branch
	root   string
	frozen bool
}

func (e *Engine) prepare(ctx context.Context, b *model.Branch) (*branchRun, error) {
	m, err := e.store.GetModule(ctx, b.ModuleID)
	if err != nil {
		return nil, fmt.Errorf("failed to load module of branch %s: %w", b.Name, err)
	}

	releases, err := e.store.ReleasesForBranch(ctx, b.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load releases of branch %s: %w", b.Name, err)
	}

	run := &branchRun{module: m, branch: b, root: e.checkout.Dir(m, b)}

	for _, r := range releases {
		run.frozen = run.frozen || r.StringFrozen
	}

	return run, nil
}

// UpdateDomainStats updates one domain of a branch from its current
// checkout, without refreshing it.
func (e *Engine) UpdateDomainStats(ctx context.Context, b *model.Branch, d *model.Domain, force bool) (*Outcome, error) {
	run, err := e.prepare(ctx, b)
	if err != nil {
		return nil, err
	}

	unlock, err := e.locks.Lock(ctx, run.module.ID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	return e.updateDomain(ctx, run, d, force)
}

// UpdateBranch refreshes the checkout of a branch and updates all domains
// of its module. A failing domain does not stop the others; its error is
// logged and recorded on its statistics.
func (e *Engine) UpdateBranch(ctx context.Context, b *model.Branch, force bool) ([]Outcome, error) {
	run, err := e.prepare(ctx, b)
	if err != nil {
		return nil, err
	}

	unlock, err := e.locks.Lock(ctx, run.module.ID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	logger := e.logger.With().Str("module", run.module.Name).Str("branch", b.Name).Logger()

	if run.root, err = e.checkout.Checkout(ctx, run.module, b); err != nil {
		return nil, fmt.Errorf("failed to check out %s.%s: %w", run.module.Name, b.Name, err)
	}

	domains, err := e.store.ListDomains(ctx, run.module.ID)
	if err != nil {
		return nil, err
	}

	outcomes := make([]Outcome, 0, len(domains))

	for i := range domains {
		out, err := e.updateDomain(ctx, run, &domains[i], force)
		if err != nil {
			logger.Warn().Err(err).Str("domain", domains[i].Name).Msg("Domain update failed")
		}

		if out != nil {
			outcomes = append(outcomes, *out)
		}

		if ctx.Err() != nil {
			return outcomes, ctx.Err()
		}
	}

	if err := e.refreshDoap(ctx, run); err != nil {
		logger.Warn().Err(err).Msg("Could not refresh maintainers from DOAP file")
	}

	logger.Info().Bool("force", force).Int("domains", len(outcomes)).Msg("Updated branch")

	return outcomes, nil
}

// UpdateModule updates every branch of a module, one after the other.
func (e *Engine) UpdateModule(ctx context.Context, m *model.Module, force bool) error {
	branches, err := e.store.ListBranches(ctx, m.ID)
	if err != nil {
		return err
	}

	var errs []error

	for i := range branches {
		if _, err := e.UpdateBranch(ctx, &branches[i], force); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// UpdateAll updates every module, Parallelism modules at a time. It
// returns the joined errors of the modules that failed.
func (e *Engine) UpdateAll(ctx context.Context, force bool) error {
	modules, err := e.store.ListModules(ctx)
	if err != nil {
		return err
	}

	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)

	g.SetLimit(e.parallelism)

	for i := range modules {
		m := &modules[i]

		g.Go(func() error {
			if err := e.UpdateModule(ctx, m, force); err != nil {
				e.logger.Warn().Err(err).Str("module", m.Name).Msg("Module update failed")

				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", m.Name, err))
				mu.Unlock()
			}

			return nil
		})
	}

	_ = g.Wait()

	return errors.Join(errs...)
}

// UpdateBranchAsync updates a branch in the background, typically right
// after it was created or its checkout settings changed. The update stops
// when ctx is cancelled, so pass a context that lives as long as the
// service rather than the triggering request. Use Wait to block until
// background updates are done.
func (e *Engine) UpdateBranchAsync(ctx context.Context, b *model.Branch, force bool) {
	e.pending.Go(func() {
		if _, err := e.UpdateBranch(ctx, b, force); err != nil {
			e.logger.Error().Err(err).Str("branch", b.Name).Msg("Background update failed")
		}
	})
}

// Wait blocks until background updates finished.
func (e *Engine) Wait() {
	e.pending.Wait()
}
