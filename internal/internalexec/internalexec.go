package internalexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// Command describes a single external process invocation.
type Command struct {
	Name string
	Args []string
	// Env is appended to the parent environment of the child only.
	Env []string
	Dir string
	// Stream tees stdout and stderr to the runner's writers while capturing.
	Stream bool
	Stdin  io.Reader
}

// String renders the command line for logs and error messages.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Result captures stdout/stderr and the exit code of a finished command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner executes external commands.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// ExitError is returned when a command exits with a non-zero status.
type ExitError struct {
	Command string
	Result  Result
}

func (e *ExitError) Error() string {
	out := PrimaryOutput(e.Result)
	if out == "" {
		return fmt.Sprintf("%s exited with status %d", e.Command, e.Result.ExitCode)
	}
	return fmt.Sprintf("%s exited with status %d: %s", e.Command, e.Result.ExitCode, out)
}

// OSRunner runs commands with os/exec.
type OSRunner struct {
	Stdout io.Writer
	Stderr io.Writer
}

// NewOSRunner returns a runner that streams to the process stdout/stderr
// when a command asks for it.
func NewOSRunner() *OSRunner {
	return &OSRunner{Stdout: os.Stdout, Stderr: os.Stderr}
}

// Run executes cmd and returns its captured output. A non-zero exit is
// reported as *ExitError carrying the Result.
func (r *OSRunner) Run(ctx context.Context, cmd Command) (Result, error) {
	proc := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	proc.Dir = cmd.Dir
	proc.Stdin = cmd.Stdin
	if len(cmd.Env) > 0 {
		proc.Env = append(os.Environ(), cmd.Env...)
	}

	var (
		res Result
		err error
	)
	if cmd.Stream {
		proc.Stdout = r.Stdout
		proc.Stderr = r.Stderr
		res, err = RunStreaming(proc)
	} else {
		var stdout, stderr bytes.Buffer
		proc.Stdout = &stdout
		proc.Stderr = &stderr
		err = proc.Run()
		res = Result{
			Stdout: strings.TrimSpace(stdout.String()),
			Stderr: strings.TrimSpace(stderr.String()),
		}
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, &ExitError{Command: cmd.String(), Result: res}
		}
		return res, fmt.Errorf("run %s: %w", cmd.Name, err)
	}
	return res, nil
}

// RunStreaming wires the command's stdout/stderr through to the configured
// writers while collecting the output for later inspection.
func RunStreaming(cmd *exec.Cmd) (Result, error) {
	var stdoutBuf, stderrBuf bytes.Buffer

	if cmd.Stdout != nil {
		cmd.Stdout = io.MultiWriter(cmd.Stdout, &stdoutBuf)
	} else {
		cmd.Stdout = io.MultiWriter(os.Stdout, &stdoutBuf)
	}
	if cmd.Stderr != nil {
		cmd.Stderr = io.MultiWriter(cmd.Stderr, &stderrBuf)
	} else {
		cmd.Stderr = io.MultiWriter(os.Stderr, &stderrBuf)
	}

	err := cmd.Run()

	return Result{
		Stdout: strings.TrimSpace(stdoutBuf.String()),
		Stderr: strings.TrimSpace(stderrBuf.String()),
	}, err
}

// PrimaryOutput returns stderr if present, otherwise stdout.
func PrimaryOutput(res Result) string {
	if res.Stderr != "" {
		return res.Stderr
	}
	return res.Stdout
}

var _ Runner = (*OSRunner)(nil)
