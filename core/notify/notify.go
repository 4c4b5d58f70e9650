// Copyright 2025, the Vertimus contributors
// SPDX-License-Identifier: AGPL-3.0-only

// Package notify delivers string freeze and workflow notifications.
package notify

import (
	"context"
	"sync"
)

// Message is one notification.
type Message struct {
	To      []string
	Subject string
	Body    string
	// ReplyTo is optional.
	ReplyTo string
}

// Sink accepts notifications. Implementations must be safe for
// concurrent use. Delivery failures are reported but callers treat
// notifications as advisory.
type Sink interface {
	Send(ctx context.Context, msg Message) error
}

// Discard drops every message.
type Discard struct{}

// Send implements Sink.
func (Discard) Send(context.Context, Message) error { return nil }

// Recorder keeps messages in memory.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

// Send implements Sink.
func (r *Recorder) Send(_ context.Context, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.messages = append(r.messages, msg)

	return nil
}

// Messages returns a copy of the recorded messages.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Message, len(r.messages))
	copy(out, r.messages)

	return out
}

// Reset forgets recorded messages.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.messages = nil
}
