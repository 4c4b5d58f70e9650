// Copyright 2025, the Vertimus contributors
// SPDX-License-Identifier: AGPL-3.0-only

package shell

import (
	"context"
	"sync"
)

// HandlerFunc produces the outcome of a faked command.
type HandlerFunc func(cmd Command) (*Result, error)

// FakeRunner dispatches commands to handlers keyed by program name and
// records every invocation. Unknown programs succeed with empty output.
type FakeRunner struct {
	mu       sync.Mutex
	handlers map[string]HandlerFunc
	calls    []Command
}

// NewFakeRunner returns an empty FakeRunner.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{handlers: make(map[string]HandlerFunc)}
}

// Handle registers fn for program.
func (f *FakeRunner) Handle(program string, fn HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.handlers[program] = fn
}

// Run implements Runner.
func (f *FakeRunner) Run(_ context.Context, cmd Command) (*Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, cmd)
	fn := f.handlers[cmd.Program]
	f.mu.Unlock()

	if fn == nil {
		return &Result{}, nil
	}

	return fn(cmd)
}

// Calls returns the commands run so far, optionally filtered by program.
func (f *FakeRunner) Calls(program string) []Command {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []Command

	for _, c := range f.calls {
		if program == "" || c.Program == program {
			out = append(out, c)
		}
	}

	return out
}
