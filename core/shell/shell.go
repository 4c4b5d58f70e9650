// Copyright 2025, the Vertimus contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package shell runs external tools (gettext utilities, documentation
converters, version control) as blocking child processes and captures
their status and output.
*/
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"codeberg.org/vertimus/vertimus/core/audit"
)

// ErrTimeout is returned when a command was killed because it exceeded
// the runner timeout. Callers may retry.
var ErrTimeout = errors.New("command timed out")

// Command describes one invocation.
type Command struct {
	Program string
	Args    []string
	Dir     string
	// Env is appended to the current environment.
	Env   map[string]string
	Stdin string
}

// String renders the command line for diagnostics.
func (c Command) String() string {
	return strings.Join(append([]string{c.Program}, c.Args...), " ")
}

// Result holds the captured output of a finished command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// OK reports whether the command exited with status 0.
func (r *Result) OK() bool {
	return r != nil && r.ExitCode == 0
}

// Runner executes commands. A non-zero exit status is reported through
// Result.ExitCode with a nil error; the error is reserved for commands
// that could not be started or were killed.
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	// Timeout bounds every command; zero means no limit besides ctx.
	Timeout time.Duration
}

// NewExecRunner returns a runner killing commands after timeout.
func NewExecRunner(timeout time.Duration) *ExecRunner {
	return &ExecRunner{Timeout: timeout}
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, c Command) (*Result, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	span := audit.Span{Program: c.Program, Args: c.Args, Dir: c.Dir}
	ctx = span.Begin(ctx)

	defer func() {
		span.End()
		span.Log()
	}()

	cmd := exec.CommandContext(ctx, c.Program, c.Args...) // #nosec G204 -- programs are fixed by callers
	cmd.Dir = c.Dir

	if len(c.Env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range c.Env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
	}

	if c.Stdin != "" {
		cmd.Stdin = strings.NewReader(c.Stdin)
	}

	var stdout, stderr bytes.Buffer

	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	span.Stdout = stdout.Bytes()
	span.Stderr = stderr.Bytes()

	result := &Result{Stdout: stdout.String(), Stderr: stderr.String()}

	if ctxErr := ctx.Err(); ctxErr != nil {
		result.ExitCode = -1
		span.ExitCode = -1

		if errors.Is(ctxErr, context.DeadlineExceeded) {
			span.Error = fmt.Errorf("%w: %s", ErrTimeout, c)
		} else {
			span.Error = fmt.Errorf("%s: %w", c, ctxErr)
		}

		return result, span.Error
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		span.ExitCode = result.ExitCode

		return result, nil
	}

	if err != nil {
		result.ExitCode = -1
		span.ExitCode = -1
		span.Error = fmt.Errorf("failed to start %s: %w", c.Program, err)

		return result, span.Error
	}

	return result, nil
}

// Shell wraps a free-form script so it runs through sh -c in dir.
func Shell(dir, script string) Command {
	return Command{Program: "sh", Args: []string{"-c", script}, Dir: dir}
}

// CombinedOutput returns stdout followed by stderr.
func (r *Result) CombinedOutput() string {
	if r == nil {
		return ""
	}

	return r.Stdout + r.Stderr
}
