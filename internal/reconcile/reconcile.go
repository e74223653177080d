// Package reconcile converges a target configuration object toward values
// read from one or more external sources, applying only declared fields
// that differ.
package reconcile

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strconv"

	"github.com/alexisbeaulieu97/sunbeam/internal/console"
	"github.com/alexisbeaulieu97/sunbeam/internal/engine"
	"github.com/alexisbeaulieu97/sunbeam/internal/logger"
	"github.com/alexisbeaulieu97/sunbeam/internal/model"
	"github.com/alexisbeaulieu97/sunbeam/pkg/diff"
)

// ReturnCodeKey is the field an external action uses to report its outcome.
const ReturnCodeKey = "return-code"

// ActionFailedMessage is reported when a source action returned an error code.
const ActionFailedMessage = "external action failed"

// Values is a flat field -> value configuration object.
type Values map[string]any

// Clone returns a shallow copy of v.
func (v Values) Clone() Values {
	out := make(Values, len(v))
	for key, value := range v {
		out[key] = value
	}
	return out
}

// Target is the system whose configuration is being converged.
type Target interface {
	Get(ctx context.Context) (Values, error)
	Update(ctx context.Context, values Values) (Values, error)
}

// Source produces desired values.
type Source struct {
	Name  string
	Fetch func(ctx context.Context) (Values, error)
	// Aliases renames source fields to target fields.
	Aliases map[string]string
	// Transform post-processes the aliased values, e.g. encoding TLS material.
	Transform func(Values) (Values, error)
	// Local sources do not report a return code.
	Local bool
}

// Spec declares one reconciliation.
type Spec struct {
	Name        string
	Description string
	Target      Target
	Sources     []Source
	// Fields is the closed set of target fields that may be compared and updated.
	Fields []string
	Logger *logger.Logger
}

// Step implements engine.Step for a Spec. Sources are read once during
// IsSkip and the staged result is reused by Run.
type Step struct {
	engine.Base
	spec Spec
	log  *logger.Logger

	evaluated    bool
	actionFailed bool
	current      Values
	staged       Values
}

// New builds a reconciliation step.
func New(spec Spec) *Step {
	log := spec.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Step{
		Base: engine.NewBase(spec.Name, spec.Description),
		spec: spec,
		log:  log.WithFields(map[string]any{"step": spec.Name}),
	}
}

// IsSkip fetches the current target object and every source, and stages the
// declared fields whose values differ.
func (s *Step) IsSkip(ctx context.Context, status console.Status) (bool, error) {
	current, err := s.spec.Target.Get(ctx)
	if err != nil {
		return false, fmt.Errorf("read current configuration: %w", err)
	}
	if current == nil {
		current = Values{}
	}
	s.log.Debugf("current configuration: %v", redact(current))

	desired := Values{}
	actionFailed := false
	for _, src := range s.spec.Sources {
		values, err := src.Fetch(ctx)
		if err != nil {
			return false, fmt.Errorf("%s: %w", src.Name, err)
		}
		if !src.Local && !succeeded(values) {
			s.log.Warn(fmt.Sprintf("source %s reported a failing return code", src.Name))
			actionFailed = true
		}

		mapped := applyAliases(values, src.Aliases)
		if src.Transform != nil {
			mapped, err = src.Transform(mapped)
			if err != nil {
				return false, fmt.Errorf("%s: %w", src.Name, err)
			}
		}
		for key, value := range mapped {
			desired[key] = value
		}
	}

	staged := Values{}
	for _, field := range s.spec.Fields {
		want := desired[field]
		if !Equal(current[field], want) {
			staged[field] = want
		}
	}

	s.current = current
	s.staged = staged
	s.actionFailed = actionFailed
	s.evaluated = true
	s.log.Debugf("staged fields: %v", sortedKeys(staged))

	if actionFailed {
		return false, nil
	}
	return len(staged) == 0, nil
}

// Run applies the staged configuration in a single update.
func (s *Step) Run(ctx context.Context, _ console.Status) model.Result {
	if !s.evaluated {
		return model.Failed(fmt.Sprintf("%s: configuration was not evaluated", s.spec.Name))
	}
	if s.actionFailed {
		return model.Failed(ActionFailedMessage)
	}

	update := s.current.Clone()
	for field, value := range s.staged {
		update[field] = value
	}
	s.log.Debugf("configuration changes:\n%s", diff.Values(redact(s.current), redact(update)))

	result, err := s.spec.Target.Update(ctx, update)
	if err != nil {
		s.log.Error(err, "updating configuration")
		return model.Failed(err.Error())
	}
	s.log.Debugf("configuration after update: %v", redact(result))
	return model.Completed()
}

// Staged returns the fields staged by the last IsSkip.
func (s *Step) Staged() Values {
	return s.staged.Clone()
}

// Equal compares two field values. nil and empty strings are both empty,
// and two empty values are equal.
func Equal(a, b any) bool {
	return reflect.DeepEqual(normalize(a), normalize(b))
}

func normalize(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		if t == "" {
			return nil
		}
		return t
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case int32:
		return float64(t)
	default:
		return v
	}
}

func succeeded(values Values) bool {
	raw, ok := values[ReturnCodeKey]
	if !ok {
		return false
	}
	switch code := raw.(type) {
	case int:
		return code == 0
	case float64:
		return code == 0
	case string:
		n, err := strconv.Atoi(code)
		return err == nil && n == 0
	default:
		return false
	}
}

func applyAliases(values Values, aliases map[string]string) Values {
	out := make(Values, len(values))
	for key, value := range values {
		if alias, ok := aliases[key]; ok {
			out[alias] = value
			continue
		}
		if _, shadowed := out[key]; !shadowed {
			out[key] = value
		}
	}
	return out
}

func sortedKeys(values Values) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

var sensitive = map[string]struct{}{
	"password": {}, "ovn-key": {}, "private-key": {}, "url": {},
}

func redact(values Values) Values {
	out := make(Values, len(values))
	for key, value := range values {
		if _, ok := sensitive[key]; ok && value != nil && value != "" {
			out[key] = "***"
			continue
		}
		out[key] = value
	}
	return out
}

var _ engine.Step = (*Step)(nil)
