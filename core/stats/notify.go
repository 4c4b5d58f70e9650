// Copyright 2025, the Vertimus contributors
// SPDX-License-Identifier: AGPL-3.0-only

package stats

import (
	"context"
	"fmt"
	"strings"

	"codeberg.org/vertimus/vertimus/core/model"
	"codeberg.org/vertimus/vertimus/core/notify"
)

// freezeMessage announces strings added to a module branch taking part in
// a string frozen release.
func freezeMessage(siteURL, moduleBranch string, added []string) notify.Message {
	var body strings.Builder

	fmt.Fprintf(&body, "This is an automatic notification from status generation scripts on:\n%s.\n\n", siteURL)
	fmt.Fprintf(&body, "There have been following string additions to module '%s':\n\n", moduleBranch)

	for _, key := range added {
		body.WriteString("    " + key + "\n")
	}

	body.WriteString("\nNote that this doesn't directly indicate a string freeze break, but it\n")
	body.WriteString("might be worth investigating.\n")

	return notify.Message{
		Subject: fmt.Sprintf("String additions to '%s'", moduleBranch),
		Body:    body.String(),
	}
}

func (e *Engine) notifyAdditions(ctx context.Context, m *model.Module, b *model.Branch, added []string) {
	if len(e.notifyTo) == 0 {
		e.logger.Warn().Str("module", m.Name).Msg("String additions in a frozen branch but no recipient configured")

		return
	}

	msg := freezeMessage(e.siteURL, m.Name+"."+b.Name, added)
	msg.To = e.notifyTo

	if err := e.notifier.Send(ctx, msg); err != nil {
		e.logger.Warn().Err(err).Str("module", m.Name).Str("branch", b.Name).Msg("Could not send string freeze notification")
	}
}
