// Copyright 2025, the Vertimus contributors
// SPDX-License-Identifier: AGPL-3.0-only

package model

import "time"

// StateName is the workflow status of one translation.
type StateName string

const (
	StateNone         StateName = "None"
	StateTranslating  StateName = "Translating"
	StateTranslated   StateName = "Translated"
	StateProofreading StateName = "Proofreading"
	StateProofread    StateName = "Proofread"
	StateToReview     StateName = "ToReview"
	StateToCommit     StateName = "ToCommit"
	StateCommitting   StateName = "Committing"
	StateCommitted    StateName = "Committed"
)

// StateNames lists every state in lifecycle order.
var StateNames = []StateName{
	StateNone, StateTranslating, StateTranslated, StateProofreading, StateProofread,
	StateToReview, StateToCommit, StateCommitting, StateCommitted,
}

// Valid reports whether n is a known state.
func (n StateName) Valid() bool {
	for _, s := range StateNames {
		if s == n {
			return true
		}
	}

	return false
}

// ActionName is the code of a workflow event.
type ActionName string

const (
	ActionWriteComment       ActionName = "WC"
	ActionReserveTranslation ActionName = "RT"
	ActionUploadTranslation  ActionName = "UT"
	ActionReserveProofread   ActionName = "RP"
	ActionUploadProofread    ActionName = "UP"
	ActionReadyToCommit      ActionName = "TC"
	ActionSubmitToRepository ActionName = "CI"
	ActionReserveCommit      ActionName = "RC"
	ActionInformCommitted    ActionName = "IC"
	ActionToReview           ActionName = "TR"
	ActionArchive            ActionName = "AA"
	ActionUndo               ActionName = "UNDO"
)

// State is the live workflow status of one branch, domain and language.
type State struct {
	ID         ID
	BranchID   ID
	DomainID   ID
	LanguageID ID
	Name       StateName
	PersonID   *ID
	Updated    time.Time
}

// HeldBy reports whether personID currently holds the state.
func (s *State) HeldBy(personID ID) bool {
	return s.PersonID != nil && *s.PersonID == personID
}

// Action is one recorded workflow event. File and MergedFile are paths
// relative to the upload directory.
type Action struct {
	ID         ID
	StateID    ID
	PersonID   ID
	Name       ActionName
	Created    time.Time
	Comment    string
	File       string
	MergedFile string
}

// HasFile reports whether the action carries an uploaded file.
func (a *Action) HasFile() bool {
	return a.File != ""
}

// ArchivedAction is an Action rotated out of the live table. Sequence
// groups the actions of one archived cycle.
type ArchivedAction struct {
	Action

	// ActionID is the identifier the action had while live.
	ActionID ID
	Sequence ID
}
