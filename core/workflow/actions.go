// Copyright 2025, the Vertimus contributors
// SPDX-License-Identifier: AGPL-3.0-only

package workflow

import (
	"context"
	"slices"

	"codeberg.org/vertimus/vertimus/core/model"
	"codeberg.org/vertimus/vertimus/i18n"
)

// actionSpec describes what applying an action does to its state.
type actionSpec struct {
	// target is the state reached; keep is set for actions leaving the
	// state untouched.
	target      model.StateName
	keep        bool
	needsFile   bool
	description i18n.MsgKey
}

var actionSpecs = map[model.ActionName]actionSpec{
	model.ActionWriteComment:       {keep: true, description: "Write a comment"},
	model.ActionReserveTranslation: {target: model.StateTranslating, description: "Reserve for translation"},
	model.ActionUploadTranslation:  {target: model.StateTranslated, needsFile: true, description: "Upload the new translation"},
	model.ActionReserveProofread:   {target: model.StateProofreading, description: "Reserve for proofreading"},
	model.ActionUploadProofread:    {target: model.StateProofread, needsFile: true, description: "Upload the proofread translation"},
	model.ActionReadyToCommit:      {target: model.StateToCommit, description: "Ready for submission"},
	model.ActionSubmitToRepository: {target: model.StateCommitted, description: "Submit to repository"},
	model.ActionReserveCommit:      {target: model.StateCommitting, description: "Reserve to submit"},
	model.ActionInformCommitted:    {target: model.StateCommitted, description: "Inform of submission"},
	model.ActionToReview:           {target: model.StateToReview, description: "Review required"},
	model.ActionArchive:            {target: model.StateNone, description: "Archive the actions"},
	model.ActionUndo:               {description: "Undo the last state change"},
}

// Description returns the human readable name of an action in the locale
// of ctx.
func Description(ctx context.Context, a model.ActionName) string {
	return actionSpecs[a].description.Tr(ctx)
}

var stateLabels = map[model.StateName]i18n.MsgKey{
	model.StateNone:         "Inactive",
	model.StateTranslating:  "Translating",
	model.StateTranslated:   "Translated",
	model.StateProofreading: "Proofreading",
	model.StateProofread:    "Proofread",
	model.StateToReview:     "To Review",
	model.StateToCommit:     "To Commit",
	model.StateCommitting:   "Committing",
	model.StateCommitted:    "Committed",
}

// StateLabel returns the human readable name of a state in the locale of
// ctx.
func StateLabel(ctx context.Context, s model.StateName) string {
	if label, ok := stateLabels[s]; ok {
		return label.Tr(ctx)
	}

	return string(s)
}

// actor is what the availability rules know about the acting person.
type actor struct {
	role       model.RoleName
	maintainer bool
	holder     bool
}

func (a actor) atLeast(r model.RoleName) bool {
	return a.role.AtLeast(r)
}

// available returns the actions a may apply on a state named name.
// writable tells whether the branch accepts direct submissions.
func available(name model.StateName, a actor, writable bool) []model.ActionName {
	out := []model.ActionName{model.ActionWriteComment}

	add := func(ok bool, actions ...model.ActionName) {
		if ok {
			out = append(out, actions...)
		}
	}

	translator := a.atLeast(model.RoleTranslator)
	reviewer := a.atLeast(model.RoleReviewer)
	committer := a.atLeast(model.RoleCommitter)

	switch name {
	case model.StateNone:
		add(translator || a.maintainer, model.ActionReserveTranslation)
	case model.StateTranslating:
		add(a.holder, model.ActionUploadTranslation, model.ActionUndo)
	case model.StateTranslated:
		add(reviewer, model.ActionReserveProofread)
		add(translator, model.ActionReserveTranslation, model.ActionToReview)
		add(committer, model.ActionReadyToCommit)
	case model.StateProofreading:
		add(a.holder, model.ActionUploadProofread, model.ActionToReview, model.ActionReadyToCommit, model.ActionUndo)
	case model.StateProofread:
		add(reviewer, model.ActionReadyToCommit, model.ActionReserveProofread, model.ActionToReview)
		add(committer && writable, model.ActionSubmitToRepository)
	case model.StateToReview:
		add(translator, model.ActionReserveTranslation)
	case model.StateToCommit:
		add(committer, model.ActionReserveCommit, model.ActionToReview)
		add(committer && writable, model.ActionSubmitToRepository)
	case model.StateCommitting:
		add(a.holder, model.ActionInformCommitted, model.ActionToReview, model.ActionUndo)
	case model.StateCommitted:
		add(committer, model.ActionArchive)
	}

	if name != model.StateNone && committer && !slices.Contains(out, model.ActionArchive) {
		out = append(out, model.ActionArchive)
	}

	return out
}
