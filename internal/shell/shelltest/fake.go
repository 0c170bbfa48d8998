// Package shelltest provides a scripted shell.Runner for tests.
package shelltest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/arch-ai/spark/internal/shell"
)

// Response is the canned outcome of one command line.
type Response struct {
	Stdout string
	Stderr string
	Err    error
}

// Fake answers commands from a table keyed by "name arg1 arg2 ...".
// Unknown commands fail with shell.ErrNotFound.
type Fake struct {
	mu        sync.Mutex
	responses map[string]Response
	calls     []string
}

// New creates an empty Fake.
func New() *Fake {
	return &Fake{responses: make(map[string]Response)}
}

// On registers the response for a command line.
func (f *Fake) On(cmdline string, resp Response) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[cmdline] = resp
	return f
}

// Calls returns the command lines executed so far, in order.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

// Run implements shell.Runner.
func (f *Fake) Run(_ context.Context, name string, args ...string) (shell.Result, error) {
	line := strings.TrimSpace(name + " " + strings.Join(args, " "))
	f.mu.Lock()
	f.calls = append(f.calls, line)
	resp, ok := f.responses[line]
	f.mu.Unlock()
	if !ok {
		return shell.Result{}, fmt.Errorf("%s: %w", name, shell.ErrNotFound)
	}
	res := shell.Result{Stdout: []byte(resp.Stdout), Stderr: []byte(resp.Stderr)}
	if resp.Err != nil {
		return res, resp.Err
	}
	if resp.Stderr != "" && resp.Stdout == "" {
		return res, &shell.ExitError{Name: name, Args: args, Code: 1, Stderr: resp.Stderr}
	}
	return res, nil
}
