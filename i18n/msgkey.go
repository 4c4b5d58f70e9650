// Copyright 2025, the Vertimus contributors
// SPDX-License-Identifier: AGPL-3.0-only

package i18n

import "context"

// Translatable is a value that can translate itself using a context.
// Types such as [MsgKey] implement Translatable.
type Translatable interface {
	Tr(ctx context.Context) string
}

// MsgKey is a source message id (msgid) string.
//
// Construct with MsgKey("Reserve for translation") and call Tr(ctx) to
// resolve using the current locale in ctx. Declaring a MsgKey lets
// cmd/i18n_extract find strings that are translated later.
type MsgKey string

// Tr translates this msgid within the current locale chain.
// It is equivalent to calling [Tr] with the same msgid.
func (s MsgKey) Tr(ctx context.Context) string {
	return Tr(ctx, string(s))
}
