// Package fakeexec provides a scripted internalexec.Runner for tests.
package fakeexec

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/alexisbeaulieu97/sunbeam/internal/internalexec"
)

// Response is a canned reply for one command line.
type Response struct {
	Result internalexec.Result
	Err    error
}

// Runner is a thread-safe test double for internalexec.Runner. Commands are
// matched on their full command line. Several responses registered for the
// same line are replayed in order; the last one repeats.
type Runner struct {
	mu        sync.Mutex
	responses map[string][]Response
	calls     []internalexec.Command
}

// New creates an empty Runner.
func New() *Runner {
	return &Runner{responses: make(map[string][]Response)}
}

// On registers a successful result for the command line.
func (r *Runner) On(line string, stdout string) *Runner {
	return r.OnResult(line, internalexec.Result{Stdout: stdout}, nil)
}

// OnExit registers a non-zero exit for the command line.
func (r *Runner) OnExit(line string, code int, stderr string) *Runner {
	res := internalexec.Result{Stderr: stderr, ExitCode: code}
	return r.OnResult(line, res, &internalexec.ExitError{Command: line, Result: res})
}

// OnResult registers an arbitrary response for the command line.
func (r *Runner) OnResult(line string, res internalexec.Result, err error) *Runner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses[line] = append(r.responses[line], Response{Result: res, Err: err})
	return r
}

// Run replays the registered response for cmd.
func (r *Runner) Run(_ context.Context, cmd internalexec.Command) (internalexec.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls = append(r.calls, cmd)
	line := cmd.String()
	queue, ok := r.responses[line]
	if !ok || len(queue) == 0 {
		return internalexec.Result{}, fmt.Errorf("no fake response for command: %s", line)
	}

	resp := queue[0]
	if len(queue) > 1 {
		r.responses[line] = queue[1:]
	}
	return resp.Result, resp.Err
}

// Calls returns all recorded invocations.
func (r *Runner) Calls() []internalexec.Command {
	r.mu.Lock()
	defer r.mu.Unlock()

	calls := make([]internalexec.Command, len(r.calls))
	copy(calls, r.calls)
	return calls
}

// Lines returns the recorded invocations as command lines.
func (r *Runner) Lines() []string {
	calls := r.Calls()
	lines := make([]string, 0, len(calls))
	for _, c := range calls {
		lines = append(lines, c.String())
	}
	return lines
}

// Called reports whether a command line with the given prefix ran.
func (r *Runner) Called(prefix string) bool {
	for _, line := range r.Lines() {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}

var _ internalexec.Runner = (*Runner)(nil)
