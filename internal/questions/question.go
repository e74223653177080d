package questions

import (
	"context"
	"fmt"
	"strconv"

	"github.com/alexisbeaulieu97/sunbeam/internal/console"
)

// Kind selects how a question is rendered.
type Kind int

const (
	// PromptKind asks for a free-form line, optionally from a closed set of choices.
	PromptKind Kind = iota
	// ConfirmKind asks a yes/no question.
	ConfirmKind
	// PasswordKind asks for a secret with hidden input.
	PasswordKind
)

// Question is one configurable value resolved from preseed, previous
// answers, defaults or the user.
type Question struct {
	Text         string
	Kind         Kind
	DefaultValue any
	DefaultFunc  func() any
	Choices      []string

	AcceptDefaults bool
	Prompter       console.Prompter

	preseed     any
	hasPreseed  bool
	previous    any
	hasPrevious bool
	answer      any
	answered    bool
}

// Option customises a Question at construction.
type Option func(*Question)

// WithDefault sets the static fallback value.
func WithDefault(value any) Option {
	return func(q *Question) { q.DefaultValue = value }
}

// WithDefaultFunc sets a deferred default, computed only when needed.
func WithDefaultFunc(fn func() any) Option {
	return func(q *Question) { q.DefaultFunc = fn }
}

// WithChoices restricts accepted answers to the given values.
func WithChoices(choices ...string) Option {
	return func(q *Question) { q.Choices = choices }
}

// NewPrompt returns a free-form question.
func NewPrompt(text string, opts ...Option) *Question {
	return newQuestion(text, PromptKind, opts)
}

// NewConfirm returns a yes/no question.
func NewConfirm(text string, def bool, opts ...Option) *Question {
	return newQuestion(text, ConfirmKind, append([]Option{WithDefault(def)}, opts...))
}

// NewPassword returns a secret question.
func NewPassword(text string, opts ...Option) *Question {
	return newQuestion(text, PasswordKind, opts)
}

func newQuestion(text string, kind Kind, opts []Option) *Question {
	q := &Question{Text: text, Kind: kind}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// SetPreseed records a trusted, non-interactive answer.
func (q *Question) SetPreseed(value any) {
	q.preseed = value
	q.hasPreseed = true
}

// SetPrevious records the answer persisted by an earlier run.
func (q *Question) SetPrevious(value any) {
	q.previous = value
	q.hasPrevious = true
}

// Answer returns the cached answer, if Ask already resolved one.
func (q *Question) Answer() (any, bool) {
	return q.answer, q.answered
}

type askOptions struct {
	newDefault    any
	hasNewDefault bool
}

// AskOption customises a single Ask call.
type AskOption func(*askOptions)

// WithNewDefault offers a caller-computed default for this call.
func WithNewDefault(value any) AskOption {
	return func(o *askOptions) {
		o.newDefault = value
		o.hasNewDefault = true
	}
}

// Ask resolves the question. A preseed is returned verbatim. Otherwise the
// default is the previous answer, else the new default, else the default
// function, else the default value; it is returned as is when defaults are
// accepted and offered to the user otherwise. The resolved value is cached
// and later calls return it without prompting.
func (q *Question) Ask(ctx context.Context, opts ...AskOption) (any, error) {
	if q.answered {
		return q.answer, nil
	}
	if q.hasPreseed {
		return q.store(q.preseed), nil
	}

	var o askOptions
	for _, opt := range opts {
		opt(&o)
	}

	def := q.resolveDefault(o)
	if q.AcceptDefaults || q.Prompter == nil {
		return q.store(def), nil
	}

	value, err := q.prompt(ctx, def)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", q.Text, err)
	}
	return q.store(value), nil
}

func (q *Question) resolveDefault(o askOptions) any {
	switch {
	case q.hasPrevious:
		return q.previous
	case o.hasNewDefault:
		return o.newDefault
	case q.DefaultFunc != nil:
		return q.DefaultFunc()
	default:
		return q.DefaultValue
	}
}

func (q *Question) prompt(ctx context.Context, def any) (any, error) {
	switch q.Kind {
	case ConfirmKind:
		return q.Prompter.Confirm(ctx, q.Text, AsBool(def))
	case PasswordKind:
		return q.Prompter.Password(ctx, q.Text, AsString(def))
	default:
		answer, err := q.Prompter.Prompt(ctx, q.Text, AsString(def), q.Choices)
		if err != nil {
			return nil, err
		}
		return coerceLike(def, answer), nil
	}
}

func (q *Question) store(value any) any {
	q.answer = value
	q.answered = true
	return value
}

// coerceLike keeps numeric defaults numeric when the user types a number.
func coerceLike(def any, answer string) any {
	switch def.(type) {
	case int, int64, float64:
		if n, err := strconv.Atoi(answer); err == nil {
			return n
		}
	}
	return answer
}

// AsString renders an answer as text. nil is the empty string.
func AsString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// AsBool interprets an answer as a boolean.
func AsBool(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		b, err := strconv.ParseBool(v)
		return err == nil && b
	case int:
		return v != 0
	case float64:
		return v != 0
	default:
		return false
	}
}

// AsInt interprets an answer as an integer. JSON numbers decode as float64.
func AsInt(value any) (int, error) {
	switch v := value.(type) {
	case nil:
		return 0, nil
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	case string:
		if v == "" {
			return 0, nil
		}
		return strconv.Atoi(v)
	default:
		return 0, fmt.Errorf("cannot use %T as an integer", value)
	}
}
