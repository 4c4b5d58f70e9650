// Copyright 2025, the Vertimus contributors
// SPDX-License-Identifier: AGPL-3.0-only

package workflow

import "codeberg.org/vertimus/vertimus/core/model"

// undoTarget returns the state and holder to restore, given the live
// actions oldest first with the undo being applied last.
//
// Walking back from the newest action, comments are ignored and every
// UNDO cancels the next substantive action it meets. The first action
// left uncancelled defines the state. Without one the state is None.
func undoTarget(actions []model.Action) (model.StateName, *model.ID) {
	pending := 0

	for i := len(actions) - 1; i >= 0; i-- {
		a := actions[i]

		switch {
		case a.Name == model.ActionWriteComment:
			continue
		case a.Name == model.ActionUndo:
			pending++

			continue
		case pending > 0:
			pending--

			continue
		}

		target := actionSpecs[a.Name].target
		if target == model.StateNone {
			return model.StateNone, nil
		}

		person := a.PersonID

		return target, &person
	}

	return model.StateNone, nil
}
