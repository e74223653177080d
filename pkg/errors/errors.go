package errors

import (
	"fmt"
)

// ParseError represents a YAML or JSON parsing failure with optional line metadata.
type ParseError struct {
	Path    string
	Line    int
	Message string
	Err     error
}

// NewParseError constructs a ParseError.
func NewParseError(path string, line int, err error) error {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &ParseError{Path: path, Line: line, Message: message, Err: err}
}

func (e *ParseError) Error() string {
	if e == nil {
		return ""
	}

	if e.Line > 0 {
		return fmt.Sprintf("parse error: %s:%d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("parse error: %s: %s", e.Path, e.Message)
}

// Unwrap exposes the underlying error.
func (e *ParseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ValidationError captures configuration and flag validation issues.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// NewValidationError constructs a ValidationError.
func NewValidationError(field, message string, err error) error {
	return &ValidationError{Field: field, Message: message, Err: err}
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field != "" {
		return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// Unwrap exposes the underlying error.
func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// StepError reports a plan that was aborted by a failing step.
type StepError struct {
	Step    string
	Message string
	Err     error
}

// NewStepError constructs a StepError for the named step.
func NewStepError(step, message string, err error) error {
	if message == "" && err != nil {
		message = err.Error()
	}
	return &StepError{Step: step, Message: message, Err: err}
}

// Error returns the user-facing failure message. The step name is kept out
// of it since the status line already shows which step failed.
func (e *StepError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// Unwrap exposes the root error.
func (e *StepError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ActionError indicates a control-plane action that reported a failing return code.
type ActionError struct {
	App        string
	Action     string
	ReturnCode int
	Err        error
}

// NewActionError constructs an ActionError.
func NewActionError(app, action string, code int, err error) error {
	return &ActionError{App: app, Action: action, ReturnCode: code, Err: err}
}

func (e *ActionError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("action %s on %s failed: %v", e.Action, e.App, e.Err)
	}
	return fmt.Sprintf("action %s on %s returned code %d", e.Action, e.App, e.ReturnCode)
}

// Unwrap exposes the underlying error.
func (e *ActionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
