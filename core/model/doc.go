// Copyright 2025, the Vertimus contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package model defines the persisted entities shared by the statistics
engine and the translation workflow: modules and their branches and
domains, releases and categories, languages, teams and people, message
file snapshots and the statistics linking them, and workflow states and
actions.

Identifiers are storage-assigned int64 values; zero means "not stored yet".
*/
package model

// ID identifies a stored entity.
type ID = int64
