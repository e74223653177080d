package questions

import (
	"context"
	"fmt"
	"sort"

	"github.com/alexisbeaulieu97/sunbeam/internal/console"
)

// BankOptions are applied to every question of a Bank.
type BankOptions struct {
	Prompter       console.Prompter
	Preseed        map[string]any
	Previous       map[string]any
	AcceptDefaults bool
}

// Bank groups the questions of one configuration section.
type Bank struct {
	questions map[string]*Question
}

// NewBank attaches the prompter, preseed and previous answers to each
// question keyed by its name.
func NewBank(questions map[string]*Question, opts BankOptions) *Bank {
	for key, q := range questions {
		q.Prompter = opts.Prompter
		q.AcceptDefaults = opts.AcceptDefaults
		if value, ok := opts.Preseed[key]; ok {
			q.SetPreseed(value)
		}
		if value, ok := opts.Previous[key]; ok {
			q.SetPrevious(value)
		}
	}
	return &Bank{questions: questions}
}

// Get returns the named question or nil.
func (b *Bank) Get(key string) *Question {
	return b.questions[key]
}

// Keys lists the question keys in sorted order.
func (b *Bank) Keys() []string {
	keys := make([]string, 0, len(b.questions))
	for key := range b.questions {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Ask resolves the named question.
func (b *Bank) Ask(ctx context.Context, key string, opts ...AskOption) (any, error) {
	q, ok := b.questions[key]
	if !ok {
		return nil, fmt.Errorf("unknown question %q", key)
	}
	return q.Ask(ctx, opts...)
}

// AskString resolves the named question as text.
func (b *Bank) AskString(ctx context.Context, key string, opts ...AskOption) (string, error) {
	value, err := b.Ask(ctx, key, opts...)
	if err != nil {
		return "", err
	}
	return AsString(value), nil
}

// AskBool resolves the named question as a boolean.
func (b *Bank) AskBool(ctx context.Context, key string, opts ...AskOption) (bool, error) {
	value, err := b.Ask(ctx, key, opts...)
	if err != nil {
		return false, err
	}
	return AsBool(value), nil
}

// AskInt resolves the named question as an integer.
func (b *Bank) AskInt(ctx context.Context, key string, opts ...AskOption) (int, error) {
	value, err := b.Ask(ctx, key, opts...)
	if err != nil {
		return 0, err
	}
	n, err := AsInt(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}
