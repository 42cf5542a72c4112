// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

// Package backend runs the command-line tools the domain backends adapt.
// Each backend owns a Command built from a configurable command line such
// as "docker" or "sudo -n docker"; tests substitute the Runner.
package backend

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"

	"github.com/kballard/go-shellquote"
	"github.com/samber/oops"
)

// Result is a finished process.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner starts processes.
type Runner interface {
	// Run executes name with args, feeding stdin when non-empty. A process
	// that ran and exited non-zero is reported in Result with a nil error.
	Run(ctx context.Context, stdin, name string, args ...string) (Result, error)
}

// ExecRunner runs processes with os/exec.
type ExecRunner struct{}

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, stdin, name string, args ...string) (Result, error) {
	cmd := exec.CommandContext(ctx, name, args...) // #nosec G204 -- binaries come from host configuration
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}

	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	return res, err
}

// Command is a tool invocation prefix.
type Command struct {
	argv   []string
	runner Runner
}

// NewCommand parses line with shell quoting rules. A nil runner uses
// ExecRunner.
func NewCommand(line string, runner Runner) (*Command, error) {
	argv, err := shellquote.Split(line)
	if err != nil {
		return nil, oops.In("backend").With("command", line).Wrapf(err, "parse command line")
	}
	if len(argv) == 0 {
		return nil, oops.In("backend").Errorf("command line is empty")
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Command{argv: argv, runner: runner}, nil
}

// String is the command line, re-quoted.
func (c *Command) String() string {
	return shellquote.Join(c.argv...)
}

// Available reports whether the program is on PATH.
func (c *Command) Available() bool {
	_, err := exec.LookPath(c.argv[0])
	return err == nil
}

// Run executes the command with extra args appended.
func (c *Command) Run(ctx context.Context, stdin string, args ...string) (Result, error) {
	full := append(append([]string{}, c.argv[1:]...), args...)
	res, err := c.runner.Run(ctx, stdin, c.argv[0], full...)
	if err != nil {
		return res, oops.In("backend").
			With("command", shellquote.Join(append([]string{c.argv[0]}, full...)...)).
			Wrapf(err, "run %s", c.argv[0])
	}
	return res, nil
}

// Output runs the command and fails unless it exits zero.
func (c *Command) Output(ctx context.Context, stdin string, args ...string) (string, error) {
	res, err := c.Run(ctx, stdin, args...)
	if err != nil {
		return "", err
	}
	if res.ExitCode != 0 {
		msg := strings.TrimSpace(res.Stderr)
		if msg == "" {
			msg = strings.TrimSpace(res.Stdout)
		}
		return "", oops.In("backend").
			With("command", shellquote.Join(append(append([]string{}, c.argv...), args...)...)).
			With("exit_code", res.ExitCode).
			Errorf("%s exited %d: %s", c.argv[0], res.ExitCode, msg)
	}
	return res.Stdout, nil
}

// Lines splits output into trimmed non-empty lines.
func Lines(out string) []string {
	var lines []string
	for _, l := range strings.Split(out, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}
