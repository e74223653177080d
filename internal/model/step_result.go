package model

import (
	"strings"
)

// ResultType classifies the outcome of a single step execution.
type ResultType int

const (
	// ResultCompleted marks a step that ran to completion.
	ResultCompleted ResultType = iota
	// ResultFailed marks a step whose failure aborts the plan.
	ResultFailed
	// ResultSkipped marks a step whose effect was already present.
	ResultSkipped
)

const defaultFailureMessage = "step failed"

func (t ResultType) String() string {
	switch t {
	case ResultCompleted:
		return "completed"
	case ResultFailed:
		return "failed"
	case ResultSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Result captures the outcome of executing a single step. A Result carries
// either a free-form message or an ordered list of lines.
type Result struct {
	Type    ResultType
	Message string
	Lines   []string
}

// NewResult constructs a Result. A single message is stored as Message,
// several are stored as Lines. Failed results always carry a message.
func NewResult(kind ResultType, messages ...string) Result {
	res := Result{Type: kind}
	switch len(messages) {
	case 0:
	case 1:
		res.Message = messages[0]
	default:
		res.Lines = append([]string(nil), messages...)
	}

	if kind == ResultFailed && strings.TrimSpace(res.Text()) == "" {
		res.Message = defaultFailureMessage
		res.Lines = nil
	}
	return res
}

// Completed returns a successful Result with optional report lines.
func Completed(lines ...string) Result {
	res := Result{Type: ResultCompleted}
	if len(lines) > 0 {
		res.Lines = append([]string(nil), lines...)
	}
	return res
}

// Failed returns a failed Result with a user-facing message.
func Failed(message string) Result {
	return NewResult(ResultFailed, message)
}

// Skipped returns a Result for a step that had nothing to do.
func Skipped(message string) Result {
	return NewResult(ResultSkipped, message)
}

// Text renders the Result payload as a single string.
func (r Result) Text() string {
	if len(r.Lines) > 0 {
		return strings.Join(r.Lines, "\n")
	}
	return r.Message
}

// Messages returns the payload as lines, promoting a plain message to a
// single-element slice.
func (r Result) Messages() []string {
	if len(r.Lines) > 0 {
		return append([]string(nil), r.Lines...)
	}
	if r.Message == "" {
		return nil
	}
	return []string{r.Message}
}

// IsFailed reports whether the Result aborts a plan.
func (r Result) IsFailed() bool {
	return r.Type == ResultFailed
}
