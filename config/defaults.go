// Copyright 2025, the Vertimus contributors
// SPDX-License-Identifier: AGPL-3.0-only

package config

import "time"

const (
	defaultUpdateInterval      = 6 * time.Hour
	defaultToolTimeout         = 10 * time.Minute
	defaultMaintenanceInterval = 24 * time.Hour

	// Archived cycles are kept for a year.
	defaultArchiveRetention = 365 * 24 * time.Hour
	// Roles are deactivated after 180 days without activity.
	defaultRoleInactivity = 180 * 24 * time.Hour
)

// SetDefaults populates the configuration with default values.
func (cfg *ServerConfig) SetDefaults() {
	cfg.Paths.ScratchDir = "./data/scratch"
	cfg.Paths.PotDir = "./data/POT"
	cfg.Paths.UploadDir = "./data/upload"
	cfg.Paths.LocaleDir = "./po"
	cfg.Paths.Database = "./data/vertimus.db"

	cfg.Stats.UpdateInterval = defaultUpdateInterval
	cfg.Stats.Parallelism = 4
	cfg.Stats.ToolTimeout = defaultToolTimeout
	cfg.Stats.ForceOnStart = false

	cfg.Workflow.CommitEnabled = false
	cfg.Workflow.ArchiveRetention = defaultArchiveRetention
	cfg.Workflow.RoleInactivity = defaultRoleInactivity
	cfg.Workflow.MaintenanceInterval = defaultMaintenanceInterval

	cfg.Notify.Enabled = false
	cfg.Notify.SMTPHost = "localhost"
	cfg.Notify.SMTPPort = 25
	cfg.Notify.From = "vertimus@localhost"
	cfg.Notify.NotificationsTo = "i18n-announce@localhost"
	cfg.Notify.SiteURL = "http://localhost:8000"
	cfg.Notify.RatePerMinute = 30
	cfg.Notify.Burst = 5

	cfg.Cache.Size = 256
	cfg.Cache.Compress = true

	cfg.Log.Level = "info"
	cfg.Log.Outputs = []string{"/dev/stderr"}
	cfg.Log.Format = "console"
}
