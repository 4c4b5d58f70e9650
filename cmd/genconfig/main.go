// Copyright 2025, the Vertimus contributors
// SPDX-License-Identifier: AGPL-3.0-only

// Command genconfig writes the example configuration files shipped in
// deploy/ from the configuration defaults.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/rs/zerolog/log"

	"codeberg.org/vertimus/vertimus/config"
	"codeberg.org/vertimus/vertimus/core/audit"
)

const (
	envOutputFile  = "deploy/.env.example"
	yamlOutputFile = "deploy/config.yaml.example"
	filePerm       = 0o644

	envFileHeader = `# Vertimus configuration (via environment variables)
#
# Copy this file to .env and customize the values below.
# Variables already set in the environment take precedence.
#
# This file was auto-generated using go run ./cmd/genconfig.

`
	yamlFileHeader = `# Vertimus configuration (via configuration file)
#
# Copy this file to config.yaml and customize the values below.
# ${VAR} references are expanded from the environment.
#
# This file was auto-generated using go run ./cmd/genconfig.
`
)

// Settings every deployment is expected to set. They are written
// uncommented.
var (
	essentialEnv  = []string{"VERTIMUS_DATABASE", "VERTIMUS_SITE_URL"}
	essentialYAML = []string{"database:", "siteURL:"}
)

// Secrets never get a default value in the examples.
var secretEnv = []string{"VERTIMUS_SMTP_USER", "VERTIMUS_SMTP_PASSWORD"}

func main() {
	audit.SetDefaultLogger()

	cfg := &config.ServerConfig{}
	cfg.SetDefaults()

	yamlContent, err := renderYAML(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to marshal config to YAML")
	}

	write(envOutputFile, renderEnv(cfg))
	write(yamlOutputFile, yamlContent)
}

func write(path, content string) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("Failed to create output directory")
	}

	if err := os.WriteFile(path, []byte(content), filePerm); err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("Failed to write example file")
	}

	log.Info().Str("path", path).Msg("Generated example file")
}

// renderEnv lists every env-tagged field, grouped by configuration section.
func renderEnv(cfg *config.ServerConfig) string {
	var sb strings.Builder
	sb.WriteString(envFileHeader)

	val := reflect.ValueOf(*cfg)
	typ := val.Type()

	for i := range typ.NumField() {
		section, sectionValue := typ.Field(i), val.Field(i)
		if sectionValue.Kind() != reflect.Struct || section.Name == "Build" {
			continue
		}

		fmt.Fprintf(&sb, "## %s\n", section.Name)

		for j := range section.Type.NumField() {
			field := section.Type.Field(j)

			tag, ok := field.Tag.Lookup("env")
			if !ok {
				continue
			}

			name, _, _ := strings.Cut(tag, ",")
			sb.WriteString(envLine(name, sectionValue.Field(j)))
		}

		sb.WriteString("\n")
	}

	return sb.String()
}

func envLine(name string, value reflect.Value) string {
	switch {
	case slices.Contains(essentialEnv, name):
		return fmt.Sprintf("%s=\"%v\"\n", name, value.Interface())
	case slices.Contains(secretEnv, name),
		value.Kind() == reflect.String && value.Len() == 0:
		return fmt.Sprintf("# %s=\n", name)
	case value.Kind() == reflect.Slice:
		parts := make([]string, value.Len())
		for k := range value.Len() {
			parts[k] = fmt.Sprint(value.Index(k).Interface())
		}

		return fmt.Sprintf("# %s=%s\n", name, strings.Join(parts, ","))
	default:
		return fmt.Sprintf("# %s=%v\n", name, value.Interface())
	}
}

// renderYAML marshals the defaults and comments out every leaf except the
// essential ones.
func renderYAML(cfg *config.ServerConfig) (string, error) {
	var encoded strings.Builder

	encoderOpts := []yaml.EncodeOption{
		config.GetDurationEncoderOption(),
		yaml.Indent(2),
	}
	if err := yaml.NewEncoder(&encoded, encoderOpts...).Encode(cfg); err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString(yamlFileHeader)

	for line := range strings.SplitSeq(encoded.String(), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		// Section header
		if !strings.HasPrefix(line, " ") {
			fmt.Fprintf(&sb, "\n%s\n", line)

			continue
		}

		if slices.ContainsFunc(essentialYAML, func(key string) bool { return strings.HasPrefix(trimmed, key) }) {
			sb.WriteString(line + "\n")

			continue
		}

		indent := len(line) - len(strings.TrimLeft(line, " "))
		fmt.Fprintf(&sb, "%s# %s\n", strings.Repeat(" ", indent), trimmed)
	}

	return sb.String(), nil
}
