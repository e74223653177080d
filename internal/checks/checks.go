// Package checks holds the pre-flight checks run before a command plan.
package checks

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Check is a single pre-flight condition.
type Check interface {
	Name() string
	Description() string
	// Run reports whether the condition holds.
	Run() bool
	// Message explains a failed check to the user.
	Message() string
}

// FailedError lists the checks that did not pass.
type FailedError struct {
	Messages []string
}

func (e *FailedError) Error() string {
	return strings.Join(e.Messages, "\n")
}

// Run runs every check and returns a *FailedError naming all failures.
func Run(checks ...Check) error {
	var failed []string
	for _, check := range checks {
		if !check.Run() {
			failed = append(failed, check.Message())
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return &FailedError{Messages: failed}
}

// NotRootCheck fails when the CLI runs as root.
type NotRootCheck struct {
	// Euid returns the effective user id; os.Geteuid when nil.
	Euid func() int
}

func (NotRootCheck) Name() string        { return "Check for root user" }
func (NotRootCheck) Description() string { return "Checking if user is root" }

func (c NotRootCheck) Run() bool {
	euid := c.Euid
	if euid == nil {
		euid = os.Geteuid
	}
	return euid() != 0
}

func (NotRootCheck) Message() string {
	return "Running as root is not supported. Please run as a non-root user with sudo access."
}

// BinaryCheck fails when a binary cannot be found on PATH.
type BinaryCheck struct {
	Binary   string
	LookPath func(string) (string, error)
}

func (c BinaryCheck) Name() string        { return "Check for " + c.Binary }
func (c BinaryCheck) Description() string { return "Checking for " + c.Binary + " binary" }

func (c BinaryCheck) Run() bool {
	lookPath := c.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	_, err := lookPath(c.Binary)
	return err == nil
}

func (c BinaryCheck) Message() string {
	return fmt.Sprintf("%s is not installed or not on PATH", c.Binary)
}

// Binaries returns a BinaryCheck per binary.
func Binaries(binaries ...string) []Check {
	out := make([]Check, 0, len(binaries))
	for _, binary := range binaries {
		out = append(out, BinaryCheck{Binary: binary})
	}
	return out
}

// SocketCheck fails when a service socket is missing.
type SocketCheck struct {
	Service string
	Path    string
}

func (c SocketCheck) Name() string        { return "Check " + c.Service + " socket" }
func (c SocketCheck) Description() string { return "Checking for " + c.Service + " socket at " + c.Path }

func (c SocketCheck) Run() bool {
	info, err := os.Stat(c.Path)
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeSocket != 0
}

func (c SocketCheck) Message() string {
	return fmt.Sprintf("%s is not reachable: no socket at %s", c.Service, c.Path)
}

// IsFailed reports whether err came from Run.
func IsFailed(err error) bool {
	var failed *FailedError
	return errors.As(err, &failed)
}
