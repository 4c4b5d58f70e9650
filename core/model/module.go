// Copyright 2025, the Vertimus contributors
// SPDX-License-Identifier: AGPL-3.0-only

package model

import (
	"cmp"
	"fmt"
	"net/url"
	"slices"
	"strings"
)

// HeadBranchNames lists the branch names that denote a module's main line.
var HeadBranchNames = []string{"HEAD", "trunk", "master", "main"}

// Module is a translatable software project.
type Module struct {
	ID          ID
	Name        string
	Description string
	Homepage    string
	Comment     string

	BugsBase      string
	BugsProduct   string
	BugsComponent string

	VCSType string // git, svn, ...
	VCSRoot string
	VCSWeb  string
	// ExtPlatform marks modules hosted outside the main infrastructure,
	// where submitting translations is done by other means.
	ExtPlatform bool
}

// DisplayName returns the description, falling back to the name.
func (m *Module) DisplayName() string {
	if m.Description != "" {
		return m.Description
	}

	return m.Name
}

func (m *Module) isBugzilla() bool {
	return strings.Contains(m.BugsBase, "bugzilla") || strings.Contains(m.BugsBase, "freedesktop")
}

// BugsEnterURL returns where to file a bug against the module.
func (m *Module) BugsEnterURL() string {
	if !m.isBugzilla() {
		return m.BugsBase
	}

	q := url.Values{"product": {m.BugsProduct}, "component": {m.BugsComponent}}

	return m.BugsBase + "enter_bug.cgi?" + q.Encode()
}

// BugsI18nURL lists open translation bugs, or "" if the tracker is unknown.
func (m *Module) BugsI18nURL() string {
	if !m.isBugzilla() {
		return ""
	}

	q := url.Values{
		"product":       {m.BugsProduct},
		"component":     {m.BugsComponent},
		"keywords_type": {"anywords"},
		"keywords":      {"I18N L10N"},
		"bug_status":    {"UNCONFIRMED", "NEW", "ASSIGNED", "REOPENED", "NEEDINFO"},
	}

	return m.BugsBase + "buglist.cgi?" + q.Encode()
}

// Branch is one version control branch of a module.
type Branch struct {
	ID         ID
	ModuleID   ID
	Name       string
	VCSSubpath string
	Weight     int
	// FileHashes maps a path relative to the checkout to the hash of its
	// last seen content. It detects changes of files such as the DOAP file.
	FileHashes map[string]string
}

// IsHead reports whether b is the module's main line.
func (b *Branch) IsHead() bool {
	return slices.Contains(HeadBranchNames, b.Name)
}

// SortBranches orders head branches first, then by weight, then by name
// descending so that newer release branches come first.
func SortBranches(branches []Branch) {
	slices.SortStableFunc(branches, func(a, b Branch) int {
		if a.IsHead() != b.IsHead() {
			if a.IsHead() {
				return -1
			}

			return 1
		}

		if c := cmp.Compare(a.Weight, b.Weight); c != 0 {
			return c
		}

		return -cmp.Compare(a.Name, b.Name)
	})
}

// DomainType distinguishes UI message domains from documentation.
type DomainType string

const (
	DomainUI  DomainType = "ui"
	DomainDoc DomainType = "doc"
)

// Valid reports whether t is a known domain type.
func (t DomainType) Valid() bool {
	return t == DomainUI || t == DomainDoc
}

// Domain is a translation unit of a module.
type Domain struct {
	ID          ID
	ModuleID    ID
	Name        string
	Description string
	Type        DomainType
	// Directory is relative to the branch checkout.
	Directory string
	// PotMethod is empty for the standard toolchain, an http(s) URL to
	// fetch a pre-built template, or a shell command run in Directory.
	PotMethod string
	// LinguasLocation overrides where declared languages are read:
	// "no" for no restriction, a LINGUAS-style file path, or
	// "path#VARIABLE" for a Makefile variable.
	LinguasLocation string
	// RedFilter lists glob patterns, one per line, matched against message
	// references; matching messages are left out of the reduced file.
	RedFilter string
}

// Potbase returns the base name of the domain's generated files.
// A domain named "po" or "po-xxx" takes the module name, "help" becomes
// "<module>-help".
func (d *Domain) Potbase(moduleName string) string {
	switch {
	case strings.HasPrefix(d.Name, "po"):
		return moduleName + d.Name[2:]
	case d.Name == "help":
		return moduleName + "-help"
	default:
		return d.Name
	}
}

// DisplayName returns the description, falling back to the potbase.
func (d *Domain) DisplayName(moduleName string) string {
	if d.Description != "" {
		return d.Description
	}

	return d.Potbase(moduleName)
}

// ReleaseStatus classifies a release.
type ReleaseStatus string

const (
	ReleaseOfficial   ReleaseStatus = "official"
	ReleaseUnofficial ReleaseStatus = "unofficial"
	ReleaseExternal   ReleaseStatus = "xternal"
)

// Release is a named collection of branches shipping together.
type Release struct {
	ID           ID
	Name         string
	Description  string
	StringFrozen bool
	Status       ReleaseStatus
	Weight       int
}

// CategoryNames lists the known category classification names.
var CategoryNames = []string{"default", "admin-tools", "dev-tools", "desktop", "dev-platform", "proposed"}

// Category links a branch to a release; unique per (release, branch).
type Category struct {
	ID        ID
	ReleaseID ID
	BranchID  ID
	Name      string
}

// PotFileName returns the generated file name of a domain template or,
// with a locale, of a merged language file.
func PotFileName(potbase, branch, locale string) string {
	if locale == "" {
		return fmt.Sprintf("%s.%s.pot", potbase, branch)
	}

	return fmt.Sprintf("%s.%s.%s.po", potbase, branch, locale)
}
