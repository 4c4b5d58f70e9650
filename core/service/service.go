// Copyright 2025, the Vertimus contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package service assembles the statistics engine, the translation workflow
and their collaborators from a loaded configuration. The daemon and
vertimusctl share it.
*/
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"codeberg.org/vertimus/vertimus/config"
	"codeberg.org/vertimus/vertimus/core/cache"
	"codeberg.org/vertimus/vertimus/core/notify"
	"codeberg.org/vertimus/vertimus/core/report"
	"codeberg.org/vertimus/vertimus/core/shell"
	"codeberg.org/vertimus/vertimus/core/stats"
	"codeberg.org/vertimus/vertimus/core/store/sqlite"
	"codeberg.org/vertimus/vertimus/core/vcs"
	"codeberg.org/vertimus/vertimus/core/workflow"
)

// Service holds the wired components.
type Service struct {
	Store    *sqlite.DB
	Engine   *stats.Engine
	Workflow *workflow.Workflow
	Reporter *report.Reporter

	cfg    *config.ServerConfig
	logger zerolog.Logger
}

// Overrides replaces collaborators that otherwise come from the
// configuration. Zero fields keep the configured ones.
type Overrides struct {
	Runner   shell.Runner
	Notifier notify.Sink
	Git      interface {
		vcs.CheckoutProvider
		vcs.Committer
	}
}

// Open opens the database and builds every component from cfg.
func Open(ctx context.Context, cfg *config.ServerConfig, o Overrides) (*Service, error) {
	db, err := sqlite.Open(ctx, cfg.Paths.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	c, err := cache.New(cfg.Cache.Size, cfg.Cache.Compress)
	if err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("failed to create cache: %w", err)
	}

	runner := o.Runner
	if runner == nil {
		runner = shell.NewExecRunner(cfg.Stats.ToolTimeout)
	}

	git := o.Git
	if git == nil {
		git = vcs.NewGit(cfg.CheckoutDir, cfg.Workflow.CommitEnabled)
	}

	notifier := o.Notifier
	if notifier == nil {
		if notifier, err = newNotifier(cfg); err != nil {
			_ = db.Close()

			return nil, err
		}
	}

	wf := workflow.New(workflow.Options{
		Store:            db,
		Runner:           runner,
		Checkout:         git,
		Committer:        git,
		CommitEnabled:    cfg.Workflow.CommitEnabled,
		Notifier:         notifier,
		SiteURL:          cfg.Notify.SiteURL,
		Layout:           stats.Layout{Root: cfg.Paths.PotDir},
		UploadDir:        cfg.Paths.UploadDir,
		ArchiveRetention: cfg.Workflow.ArchiveRetention,
		RoleInactivity:   cfg.Workflow.RoleInactivity,
	})

	engine := stats.New(stats.Options{
		Store:           db,
		Runner:          runner,
		Checkout:        git,
		Cache:           c,
		Notifier:        notifier,
		NotificationsTo: cfg.NotificationRecipients(),
		SiteURL:         cfg.Notify.SiteURL,
		Uploads:         wf,
		PotDir:          cfg.Paths.PotDir,
		Parallelism:     cfg.Stats.Parallelism,
	})

	return &Service{
		Store:    db,
		Engine:   engine,
		Workflow: wf,
		Reporter: report.New(db),
		cfg:      cfg,
		logger:   log.With().Str("sys", "service").Logger(),
	}, nil
}

func newNotifier(cfg *config.ServerConfig) (notify.Sink, error) {
	if !cfg.Notify.Enabled {
		return notify.Discard{}, nil
	}

	m, err := notify.NewMailer(notify.MailerConfig{
		Host:          cfg.Notify.SMTPHost,
		Port:          cfg.Notify.SMTPPort,
		User:          cfg.Notify.SMTPUser,
		Password:      cfg.Notify.SMTPPassword,
		From:          cfg.Notify.From,
		RatePerMinute: cfg.Notify.RatePerMinute,
		Burst:         cfg.Notify.Burst,
	})
	if err != nil {
		return nil, err
	}

	return m, nil
}

// Close waits for background updates and closes the database.
func (s *Service) Close() error {
	s.Engine.Wait()

	return s.Store.Close()
}

// Maintain purges expired archives and deactivates idle roles.
func (s *Service) Maintain(ctx context.Context, now time.Time) error {
	purged, purgeErr := s.Workflow.PurgeArchives(ctx, now)
	idle, idleErr := s.Workflow.DeactivateIdleRoles(ctx, now)

	s.logger.Info().
		Int("purged", purged).
		Int("deactivated", idle).
		Msg("Maintenance done")

	return errors.Join(purgeErr, idleErr)
}

// Run updates statistics every stats.updateInterval and runs maintenance
// every workflow.maintenanceInterval until ctx is done. The first update
// starts immediately and is forced when stats.forceOnStart is set.
func (s *Service) Run(ctx context.Context) error {
	updates := time.NewTicker(s.cfg.Stats.UpdateInterval)
	defer updates.Stop()

	maintenance := time.NewTicker(s.cfg.Workflow.MaintenanceInterval)
	defer maintenance.Stop()

	s.update(ctx, s.cfg.Stats.ForceOnStart)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-updates.C:
			s.update(ctx, false)
		case now := <-maintenance.C:
			if err := s.Maintain(ctx, now); err != nil {
				s.logger.Error().Err(err).Msg("Maintenance failed")
			}
		}
	}
}

func (s *Service) update(ctx context.Context, force bool) {
	start := time.Now()

	err := s.Engine.UpdateAll(ctx, force)

	ev := s.logger.Info()
	if err != nil {
		ev = s.logger.Warn().Err(err)
	}

	ev.Bool("force", force).Dur("dur", time.Since(start)).Msg("Statistics update finished")
}
