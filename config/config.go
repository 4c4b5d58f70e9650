// Copyright 2025, the Vertimus contributors
// SPDX-License-Identifier: AGPL-3.0-only

package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

// Global exposes the service configuration.
var Global ServerConfig

// ServerConfig holds the application configuration.
type ServerConfig struct {
	Build buildInfo `yaml:"-"`

	Paths struct {
		// ScratchDir holds one checkout per module branch.
		ScratchDir string `env:"VERTIMUS_SCRATCH_DIR,overwrite" yaml:"scratchDir"`
		// PotDir holds generated templates and merged language files.
		PotDir string `env:"VERTIMUS_POT_DIR,overwrite" yaml:"potDir"`
		// UploadDir holds files attached to workflow actions.
		UploadDir string `env:"VERTIMUS_UPLOAD_DIR,overwrite" yaml:"uploadDir"`
		// LocaleDir holds the catalogues used to translate notification mails.
		LocaleDir string `env:"VERTIMUS_LOCALE_DIR,overwrite" yaml:"localeDir"`
		Database  string `env:"VERTIMUS_DATABASE,overwrite" yaml:"database"`
	} `yaml:"paths"`

	Stats struct {
		UpdateInterval time.Duration `env:"VERTIMUS_UPDATE_INTERVAL,overwrite" yaml:"updateInterval"`
		Parallelism    int           `env:"VERTIMUS_PARALLELISM,overwrite" yaml:"parallelism"`
		ToolTimeout    time.Duration `env:"VERTIMUS_TOOL_TIMEOUT,overwrite" yaml:"toolTimeout"`
		ForceOnStart   bool          `env:"VERTIMUS_FORCE_ON_START,overwrite" yaml:"forceOnStart"`
	} `yaml:"stats"`

	Workflow struct {
		CommitEnabled       bool          `env:"VERTIMUS_COMMIT_ENABLED,overwrite" yaml:"commitEnabled"`
		ArchiveRetention    time.Duration `env:"VERTIMUS_ARCHIVE_RETENTION,overwrite" yaml:"archiveRetention"`
		RoleInactivity      time.Duration `env:"VERTIMUS_ROLE_INACTIVITY,overwrite" yaml:"roleInactivity"`
		MaintenanceInterval time.Duration `env:"VERTIMUS_MAINTENANCE_INTERVAL,overwrite" yaml:"maintenanceInterval"`
	} `yaml:"workflow"`

	Notify struct {
		Enabled         bool   `env:"VERTIMUS_NOTIFY,overwrite" yaml:"enabled"`
		SMTPHost        string `env:"VERTIMUS_SMTP_HOST,overwrite" yaml:"smtpHost"`
		SMTPPort        int    `env:"VERTIMUS_SMTP_PORT,overwrite" yaml:"smtpPort"`
		SMTPUser        string `env:"VERTIMUS_SMTP_USER" yaml:"smtpUser"`
		SMTPPassword    string `env:"VERTIMUS_SMTP_PASSWORD" yaml:"smtpPassword"`
		From            string `env:"VERTIMUS_MAIL_FROM,overwrite" yaml:"from"`
		NotificationsTo string `env:"VERTIMUS_NOTIFICATIONS_TO,overwrite" yaml:"notificationsTo"`
		SiteURL         string `env:"VERTIMUS_SITE_URL,overwrite" yaml:"siteURL"`
		RatePerMinute   int    `env:"VERTIMUS_MAIL_RATE,overwrite" yaml:"ratePerMinute"`
		Burst           int    `env:"VERTIMUS_MAIL_BURST,overwrite" yaml:"burst"`
	} `yaml:"notify"`

	Cache struct {
		Size     int  `env:"VERTIMUS_CACHE_SIZE,overwrite" yaml:"size"`
		Compress bool `env:"VERTIMUS_CACHE_COMPRESS,overwrite" yaml:"compress"`
	} `yaml:"cache"`

	Development struct {
		InDevelopment bool `env:"VERTIMUS_DEV" yaml:"inDevelopment"`
	} `yaml:"development"`

	Log struct {
		Level   string   `env:"VERTIMUS_LOG_LEVEL,overwrite" yaml:"logLevel"`
		Outputs []string `env:"VERTIMUS_LOG_OUTPUTS,overwrite" yaml:"logOutputs"`
		Format  string   `env:"VERTIMUS_LOG_FORMAT,overwrite" yaml:"logFormat"`
	} `yaml:"log"`
}

// LoadConfig loads the configuration from various sources.
func (cfg *ServerConfig) LoadConfig() error {
	parsedConfigFlagValue := parseCommandLineArgs()

	configFlagUserSet := false

	flag.Visit(func(f *flag.Flag) {
		if f.Name == "config" {
			configFlagUserSet = true
		}
	})

	return cfg.load(resolveConfigPath(parsedConfigFlagValue, configFlagUserSet))
}

// LoadFile loads the configuration using configFilePath instead of the
// command line. vertimusctl uses this since cobra owns its flags.
func (cfg *ServerConfig) LoadFile(configFilePath string) error {
	return cfg.load(resolveConfigPath(configFilePath, configFilePath != ""))
}

// resolveConfigPath applies the precedence flag > VERTIMUS_CONFIGFILE > ./config.yaml > ./config.yml.
func resolveConfigPath(flagValue string, flagSet bool) string {
	if flagSet {
		return flagValue
	}

	if envVar := os.Getenv("VERTIMUS_CONFIGFILE"); envVar != "" {
		return envVar
	}

	configFilePath := defaultConfigPath
	if _, err := os.Stat(configFilePath); os.IsNotExist(err) {
		ymlPath := "./config.yml"
		if _, statErr := os.Stat(ymlPath); statErr == nil {
			configFilePath = ymlPath
		}
	}

	return configFilePath
}

func (cfg *ServerConfig) load(configFilePath string) error {
	cfg.SetDefaults()

	cfg.Build.load()

	if err := cfg.readYAML(configFilePath); err != nil {
		return fmt.Errorf("error loading YAML config: %w", err)
	}

	if err := useDotEnv(); err != nil {
		return fmt.Errorf("error using .env file: %w", err)
	}

	if err := readEnv(cfg); err != nil {
		return fmt.Errorf("error loading environment variables: %w", err)
	}

	if err := cfg.validateAndSet(); err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}

	cfg.setupAudit()

	cfg.print()

	return nil
}

// CheckoutDir returns where the given module branch is checked out.
func (cfg *ServerConfig) CheckoutDir(vcsType, module, branch string) string {
	return filepath.Join(cfg.Paths.ScratchDir, vcsType, module+"."+branch)
}

// GetDurationEncoderOption returns a YAML encoder option that marshals
// time.Duration into a human-readable string format (e.g., "30m", "1h").
func GetDurationEncoderOption() yaml.EncodeOption {
	return yaml.CustomMarshaler[time.Duration](
		func(d time.Duration) ([]byte, error) {
			return yaml.Marshal(d.String())
		},
	)
}

// NotificationRecipients returns the comma separated notify.notificationsTo
// addresses.
func (cfg *ServerConfig) NotificationRecipients() []string {
	var out []string

	for addr := range strings.SplitSeq(cfg.Notify.NotificationsTo, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			out = append(out, addr)
		}
	}

	return out
}
