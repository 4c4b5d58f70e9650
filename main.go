// Copyright 2025, the Vertimus contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Vertimus keeps translation statistics of software modules up to date and
runs the translation workflow of language teams.
*/
package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"codeberg.org/vertimus/vertimus/config"
	"codeberg.org/vertimus/vertimus/core/audit"
	"codeberg.org/vertimus/vertimus/core/service"
	"codeberg.org/vertimus/vertimus/i18n"
)

// main is the entry point of the application.
func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Application failed")
	}
}

// run loads the configuration, wires the services and schedules updates
// until SIGINT or SIGTERM.
func run() error {
	audit.SetDefaultLogger()

	if err := config.Global.LoadConfig(); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := i18n.Setup(config.Global.Paths.LocaleDir); err != nil {
		return fmt.Errorf("failed to initialize i18n engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := service.Open(ctx, &config.Global, service.Overrides{})
	if err != nil {
		return err
	}

	log.Info().
		Dur("updateInterval", config.Global.Stats.UpdateInterval).
		Dur("maintenanceInterval", config.Global.Workflow.MaintenanceInterval).
		Msg("Scheduler started")

	runErr := svc.Run(ctx)

	log.Info().Msg("Shutdown signal received, waiting for running updates")

	if err := svc.Close(); err != nil {
		return fmt.Errorf("failed to close services: %w", err)
	}

	log.Info().Msg("Exited gracefully")

	return runErr
}
