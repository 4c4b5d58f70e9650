// Copyright 2025, the Vertimus contributors
// SPDX-License-Identifier: AGPL-3.0-only

package config

import (
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"path/filepath"
	"strings"
)

// validation errors.
var (
	errEmptyPath              = errors.New("path cannot be empty")
	errNonPositiveInterval    = errors.New("interval must be positive")
	errNonPositiveParallelism = errors.New("stats.parallelism must be at least 1")
	errNonPositiveCacheSize   = errors.New("cache.size must be at least 1")
	errInvalidSMTPPort        = errors.New("notify.smtpPort must be between 1 and 65535")
	errInvalidMailRate        = errors.New("notify.ratePerMinute and notify.burst must be positive")
	errInvalidLogFormat       = errors.New("log.logFormat must be console or json")
	errInvalidSiteURL         = errors.New("notify.siteURL must be an absolute http(s) URL")
)

// validateAndSet validates the configuration and normalizes some fields.
func (cfg *ServerConfig) validateAndSet() error {
	paths := map[string]*string{
		"paths.scratchDir": &cfg.Paths.ScratchDir,
		"paths.potDir":     &cfg.Paths.PotDir,
		"paths.uploadDir":  &cfg.Paths.UploadDir,
		"paths.localeDir":  &cfg.Paths.LocaleDir,
		"paths.database":   &cfg.Paths.Database,
	}

	for name, p := range paths {
		if strings.TrimSpace(*p) == "" {
			return fmt.Errorf("%s: %w", name, errEmptyPath)
		}

		*p = filepath.Clean(*p)
	}

	intervals := map[string]int64{
		"stats.updateInterval":         int64(cfg.Stats.UpdateInterval),
		"stats.toolTimeout":            int64(cfg.Stats.ToolTimeout),
		"workflow.archiveRetention":    int64(cfg.Workflow.ArchiveRetention),
		"workflow.roleInactivity":      int64(cfg.Workflow.RoleInactivity),
		"workflow.maintenanceInterval": int64(cfg.Workflow.MaintenanceInterval),
	}

	for name, d := range intervals {
		if d <= 0 {
			return fmt.Errorf("%s: %w", name, errNonPositiveInterval)
		}
	}

	if cfg.Stats.Parallelism < 1 {
		return errNonPositiveParallelism
	}

	if cfg.Cache.Size < 1 {
		return errNonPositiveCacheSize
	}

	switch cfg.Log.Format {
	case "console", "json":
	default:
		return errInvalidLogFormat
	}

	// Skip validating mail settings if notifications are off
	if !cfg.Notify.Enabled {
		return nil
	}

	if cfg.Notify.SMTPPort < 1 || cfg.Notify.SMTPPort > 65535 {
		return errInvalidSMTPPort
	}

	if cfg.Notify.RatePerMinute < 1 || cfg.Notify.Burst < 1 {
		return errInvalidMailRate
	}

	if _, err := mail.ParseAddress(cfg.Notify.From); err != nil {
		return fmt.Errorf("invalid notify.from: %w", err)
	}

	if _, err := mail.ParseAddress(cfg.Notify.NotificationsTo); err != nil {
		return fmt.Errorf("invalid notify.notificationsTo: %w", err)
	}

	u, err := url.Parse(cfg.Notify.SiteURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errInvalidSiteURL
	}

	cfg.Notify.SiteURL = strings.TrimSuffix(u.String(), "/")

	return nil
}
