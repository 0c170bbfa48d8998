// Package shell runs external CLIs (docker, pm2, node) and classifies their
// failures. Collectors depend on the Runner interface so tests can substitute
// canned output.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// ErrNotFound is returned when the requested binary is not on PATH.
var ErrNotFound = errors.New("executable not found")

// Result holds the captured output of a finished command.
type Result struct {
	Stdout []byte
	Stderr []byte
}

// Runner executes a command and captures its output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (Result, error)
}

// ExitError reports a command that started but exited non-zero.
type ExitError struct {
	Name   string
	Args   []string
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		return fmt.Sprintf("%s %s: exit status %d", e.Name, strings.Join(e.Args, " "), e.Code)
	}
	return fmt.Sprintf("%s %s: exit status %d: %s", e.Name, strings.Join(e.Args, " "), e.Code, msg)
}

// ExecRunner runs commands with os/exec. Each invocation is bounded by Timeout
// when it is positive.
type ExecRunner struct {
	Timeout time.Duration
}

// NewExecRunner creates a runner with the given per-command timeout.
func NewExecRunner(timeout time.Duration) *ExecRunner {
	return &ExecRunner{Timeout: timeout}
}

// Run executes name with args and returns its stdout and stderr.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if err == nil {
		return res, nil
	}

	var exitErr *exec.ExitError
	switch {
	case errors.Is(err, exec.ErrNotFound):
		return res, fmt.Errorf("%s: %w", name, ErrNotFound)
	case errors.As(err, &exitErr):
		return res, &ExitError{Name: name, Args: args, Code: exitErr.ExitCode(), Stderr: stderr.String()}
	case ctx.Err() != nil:
		return res, fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), ctx.Err())
	default:
		return res, fmt.Errorf("running %s: %w", name, err)
	}
}

// Stderr returns the captured stderr of a failed command, if any.
func Stderr(err error) string {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Stderr
	}
	return ""
}

// Message returns a one-line, user-facing description of a command failure:
// the trimmed stderr when there is one, else the error text.
func Message(err error) string {
	if err == nil {
		return ""
	}
	if s := strings.TrimSpace(Stderr(err)); s != "" {
		return s
	}
	return err.Error()
}
