// Package executil provides process execution utilities.
package executil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

const maxStderrLen = 500

// limitedWriter caps writes to a bytes.Buffer at a maximum byte count.
// Bytes beyond the limit are silently discarded.
type limitedWriter struct {
	buf *bytes.Buffer
	n   int64
	max int64
}

func (w *limitedWriter) Write(p []byte) (int, error) {
	if w.n >= w.max {
		return len(p), nil
	}
	remaining := w.max - w.n
	origLen := len(p)
	if int64(origLen) > remaining {
		p = p[:remaining]
	}
	n, err := w.buf.Write(p)
	w.n += int64(n)
	if err != nil {
		return n, err
	}
	return origLen, nil
}

// Executor runs external commands.
type Executor interface {
	// Run executes a command in dir (empty means inherit cwd) and returns its stdout.
	Run(ctx context.Context, dir, name string, args ...string) ([]byte, error)
	// RunIn is Run with data piped to the command's stdin. Used for git
	// plumbing commands such as apply and hash-object.
	RunIn(ctx context.Context, dir string, stdin []byte, name string, args ...string) ([]byte, error)
}

// ExitCode returns the exit code carried by err, or -1 if err does not wrap
// an *exec.ExitError. Callers use this to tell "command said no" (e.g.
// merge-base --is-ancestor exiting 1) apart from execution failures.
func ExitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// RealExecutor calls actual external commands.
type RealExecutor struct{}

// Run executes a command and returns its stdout.
func (e *RealExecutor) Run(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	return e.run(ctx, dir, nil, name, args...)
}

// RunIn executes a command with stdin and returns its stdout.
func (e *RealExecutor) RunIn(ctx context.Context, dir string, stdin []byte, name string, args ...string) ([]byte, error) {
	return e.run(ctx, dir, stdin, name, args...)
}

// run keeps stdout and stderr separate: stdout is returned to the caller,
// stderr is folded into the error message, capped at 500 bytes to prevent
// large or ANSI-polluted output from corrupting logs. The original
// *exec.ExitError is preserved via wrapping so callers can inspect exit
// codes with ExitCode.
func (e *RealExecutor) run(ctx context.Context, dir string, stdin []byte, name string, args ...string) ([]byte, error) {
	c := exec.CommandContext(ctx, name, args...)
	if dir != "" {
		c.Dir = dir
	}
	if stdin != nil {
		c.Stdin = bytes.NewReader(stdin)
	}

	var out, errBuf bytes.Buffer
	c.Stdout = &out
	c.Stderr = &limitedWriter{buf: &errBuf, max: maxStderrLen}

	if err := c.Run(); err != nil {
		if msg := strings.TrimSpace(errBuf.String()); msg != "" {
			return out.Bytes(), fmt.Errorf("exec %s: %s: %w", name, msg, err)
		}
		return out.Bytes(), fmt.Errorf("exec %s: %w", name, err)
	}
	return out.Bytes(), nil
}
