// Copyright 2025, the Vertimus contributors
// SPDX-License-Identifier: AGPL-3.0-only

package audit

import (
	"context"
	"fmt"
	"runtime/trace"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Span represents an external command in flight.
type Span struct {
	// only these fields are set automatically
	task     *trace.Task
	start    time.Time
	duration time.Duration

	Program  string
	Args     []string
	Dir      string
	ExitCode int
	Stdout   []byte
	Stderr   []byte
	Error    error
}

const stderrExcerptLength = 512

// Begin starts timing the span and opens a runtime/trace task for it.
func (span *Span) Begin(ctx context.Context) context.Context {
	span.start = time.Now()

	ctx, span.task = trace.NewTask(ctx, "shell."+span.Program)

	return ctx
}

// End stops timing the span. Calling End more than once has no effect.
func (span *Span) End() {
	if span.task != nil {
		span.duration = time.Since(span.start)
		span.task.End()

		span.task = nil
	}
}

// Duration reports how long the command ran.
func (span *Span) Duration() time.Duration {
	return span.duration
}

// Log writes the span. Failed commands are logged at warn level together
// with the beginning of their stderr.
func (span Span) Log() {
	var event *zerolog.Event

	failed := span.Error != nil || span.ExitCode != 0
	if failed {
		event = log.Warn()
	} else {
		event = log.Debug()
	}

	event.Str("sys", "shell")
	event.Str("program", span.Program)
	event.Strs("args", span.Args)
	event.Str("dir", span.Dir)
	event.Int("exit_code", span.ExitCode)
	event.Str("stdout_len", humanizeSize(len(span.Stdout)))
	event.Dur("dur", span.duration)

	if failed && len(span.Stderr) > 0 {
		event.Str("stderr", excerpt(string(span.Stderr)))
	}

	if span.Error != nil {
		event.Err(span.Error)
	}

	event.Msg(strings.Join(append([]string{span.Program}, span.Args...), " "))
}

func excerpt(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= stderrExcerptLength {
		return s
	}

	return s[:stderrExcerptLength] + "…"
}

const (
	bytesInKB = 1024
	bytesInMB = bytesInKB * bytesInKB
	bytesInGB = bytesInMB * bytesInKB
)

func humanizeSize(x int) string {
	if x < bytesInKB {
		return strconv.Itoa(x)
	}

	if x < bytesInMB {
		return fmt.Sprintf("%.2fK", float64(x)/bytesInKB)
	}

	if x < bytesInGB {
		return fmt.Sprintf("%.2fM", float64(x)/bytesInMB)
	}

	return fmt.Sprintf("%.2fG", float64(x)/bytesInGB)
}
