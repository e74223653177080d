package engine

import (
	"context"

	"github.com/alexisbeaulieu97/sunbeam/internal/console"
	"github.com/alexisbeaulieu97/sunbeam/internal/model"
)

// Step is a single idempotent unit of deployment work.
//
// IsSkip and Prompt may query external systems but must not change them;
// only Run mutates state. The runner turns an error returned by IsSkip or
// Prompt into a failed result.
type Step interface {
	Name() string
	Description() string
	IsSkip(ctx context.Context, status console.Status) (bool, error)
	HasPrompts() bool
	Prompt(ctx context.Context, prompter console.Prompter) error
	Run(ctx context.Context, status console.Status) model.Result
}

// Base provides the identity of a step and no-op defaults for the optional
// capabilities. Concrete steps embed it and override what they need.
type Base struct {
	StepName        string
	StepDescription string
}

// NewBase returns a Base with the given identity.
func NewBase(name, description string) Base {
	return Base{StepName: name, StepDescription: description}
}

// Name returns the log-facing name.
func (b Base) Name() string { return b.StepName }

// Description returns the user-facing status text.
func (b Base) Description() string { return b.StepDescription }

// IsSkip never skips by default.
func (b Base) IsSkip(context.Context, console.Status) (bool, error) { return false, nil }

// HasPrompts reports no prompts by default.
func (b Base) HasPrompts() bool { return false }

// Prompt is a no-op by default.
func (b Base) Prompt(context.Context, console.Prompter) error { return nil }
