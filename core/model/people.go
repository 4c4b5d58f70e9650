// Copyright 2025, the Vertimus contributors
// SPDX-License-Identifier: AGPL-3.0-only

package model

import "time"

// Language is a locale with its display name and plural rule.
type Language struct {
	ID          ID
	Name        string
	Locale      string
	PluralForms string
	TeamID      *ID
}

// Team is a translation team owning one or more languages.
type Team struct {
	ID           ID
	Name         string
	Description  string
	WebpageURL   string
	MailingList  string
	UseWorkflow  bool
	Presentation string
}

// Person is an actor of the workflow.
type Person struct {
	ID        ID
	Username  string
	FirstName string
	LastName  string
	Email     string
	// VCSAccount names the person on the version control hosting.
	VCSAccount string
	LastLogin  time.Time
}

// DisplayName returns the full name, falling back to the username.
func (p *Person) DisplayName() string {
	switch {
	case p.FirstName != "" && p.LastName != "":
		return p.FirstName + " " + p.LastName
	case p.FirstName != "":
		return p.FirstName
	default:
		return p.Username
	}
}

// RoleName is a team membership level.
type RoleName string

const (
	RoleTranslator  RoleName = "translator"
	RoleReviewer    RoleName = "reviewer"
	RoleCommitter   RoleName = "committer"
	RoleCoordinator RoleName = "coordinator"
)

// Rank orders roles; higher roles include the rights of lower ones.
// Unknown roles rank 0.
func (r RoleName) Rank() int {
	switch r {
	case RoleTranslator:
		return 1
	case RoleReviewer:
		return 2
	case RoleCommitter:
		return 3
	case RoleCoordinator:
		return 4
	default:
		return 0
	}
}

// AtLeast reports whether r includes the rights of min.
func (r RoleName) AtLeast(minimum RoleName) bool {
	return r.Rank() > 0 && r.Rank() >= minimum.Rank()
}

// Role is the membership of a person in a team.
type Role struct {
	ID       ID
	TeamID   ID
	PersonID ID
	Name     RoleName
	IsActive bool
}

// Maintainer links a person to a module they maintain.
type Maintainer struct {
	ModuleID ID
	PersonID ID
}
