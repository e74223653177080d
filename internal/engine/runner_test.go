package engine

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/sunbeam/internal/console"
	"github.com/alexisbeaulieu97/sunbeam/internal/model"
	sunbeamerrors "github.com/alexisbeaulieu97/sunbeam/pkg/errors"
)

type fakeStep struct {
	Base
	skip       bool
	skipErr    error
	prompts    bool
	promptErr  error
	result     model.Result
	calls      *[]string
	onRunState func()
}

func newFakeStep(name string, calls *[]string) *fakeStep {
	return &fakeStep{Base: NewBase(name, "Running "+name), result: model.Completed(), calls: calls}
}

func (s *fakeStep) IsSkip(context.Context, console.Status) (bool, error) {
	*s.calls = append(*s.calls, s.Name()+".skip")
	return s.skip, s.skipErr
}

func (s *fakeStep) HasPrompts() bool { return s.prompts }

func (s *fakeStep) Prompt(context.Context, console.Prompter) error {
	*s.calls = append(*s.calls, s.Name()+".prompt")
	return s.promptErr
}

func (s *fakeStep) Run(context.Context, console.Status) model.Result {
	*s.calls = append(*s.calls, s.Name()+".run")
	if s.onRunState != nil {
		s.onRunState()
	}
	return s.result
}

// recordingStatus captures every status call in order.
type recordingStatus struct {
	events []string
}

func (s *recordingStatus) Start(m string)   { s.events = append(s.events, "start:"+m) }
func (s *recordingStatus) Update(m string)  { s.events = append(s.events, "update:"+m) }
func (s *recordingStatus) Stop()            { s.events = append(s.events, "stop") }
func (s *recordingStatus) Resume()          { s.events = append(s.events, "resume") }
func (s *recordingStatus) Done(m string)    { s.events = append(s.events, "done:"+m) }
func (s *recordingStatus) Failed(m string)  { s.events = append(s.events, "failed:"+m) }
func (s *recordingStatus) Skipped(m string) { s.events = append(s.events, "skipped:"+m) }

func TestRunnerExecutesStepsInOrder(t *testing.T) {
	t.Parallel()

	var calls []string
	plan := []Step{newFakeStep("a", &calls), newFakeStep("b", &calls), newFakeStep("c", &calls)}

	reports, err := NewRunner(Options{}).Run(context.Background(), plan)
	require.NoError(t, err)
	require.Len(t, reports, 3)
	require.Equal(t, []string{"a.skip", "a.run", "b.skip", "b.run", "c.skip", "c.run"}, calls)
	for _, r := range reports {
		require.Equal(t, model.StateCompleted, r.State)
	}
}

func TestRunnerAbortsOnFailure(t *testing.T) {
	t.Parallel()

	var calls []string
	second := newFakeStep("b", &calls)
	second.result = model.Failed("deploy failed")
	third := newFakeStep("c", &calls)
	third.prompts = true

	reports, err := NewRunner(Options{}).Run(context.Background(), []Step{newFakeStep("a", &calls), second, third})
	require.Error(t, err)

	var stepErr *sunbeamerrors.StepError
	require.ErrorAs(t, err, &stepErr)
	require.Equal(t, "b", stepErr.Step)
	require.Equal(t, "deploy failed", err.Error())

	require.Len(t, reports, 2)
	require.Equal(t, model.StateFailed, reports[1].State)
	for _, call := range calls {
		require.False(t, strings.HasPrefix(call, "c."), "step c must not be touched, got %s", call)
	}
}

func TestRunnerSkipsConvergedSteps(t *testing.T) {
	t.Parallel()

	var calls []string
	step := newFakeStep("a", &calls)
	step.skip = true
	step.prompts = true
	status := &recordingStatus{}

	reports, err := NewRunner(Options{Status: status}).Run(context.Background(), []Step{step})
	require.NoError(t, err)
	require.Equal(t, []string{"a.skip"}, calls)
	require.Equal(t, model.StateSkipped, reports[0].State)
	require.Equal(t, model.ResultSkipped, reports[0].Result.Type)
	require.Equal(t, []string{"start:Running a ... ", "skipped:Running a ... "}, status.events)
}

func TestRunnerSuspendsStatusAroundPrompts(t *testing.T) {
	t.Parallel()

	var calls []string
	step := newFakeStep("configure", &calls)
	step.prompts = true
	status := &recordingStatus{}

	_, err := NewRunner(Options{Status: status}).Run(context.Background(), []Step{step})
	require.NoError(t, err)
	require.Equal(t, []string{"configure.skip", "configure.prompt", "configure.run"}, calls)
	require.Equal(t, []string{
		"start:Running configure ... ",
		"stop",
		"resume",
		"done:Running configure ... ",
	}, status.events)
}

func TestRunnerAutoDisablesPrompts(t *testing.T) {
	t.Parallel()

	var calls []string
	step := newFakeStep("configure", &calls)
	step.prompts = true

	_, err := NewRunner(Options{Auto: true}).Run(context.Background(), []Step{step})
	require.NoError(t, err)
	require.Equal(t, []string{"configure.skip", "configure.run"}, calls)
}

func TestRunnerTurnsSkipErrorIntoFailure(t *testing.T) {
	t.Parallel()

	var calls []string
	step := newFakeStep("install", &calls)
	step.skipErr = errors.New("more than one juju snap installed")

	reports, err := NewRunner(Options{}).Run(context.Background(), []Step{step, newFakeStep("next", &calls)})
	require.EqualError(t, err, "more than one juju snap installed")
	require.Equal(t, []string{"install.skip"}, calls)
	require.Equal(t, model.StateFailed, reports[0].State)
}

func TestRunnerTurnsPromptErrorIntoFailure(t *testing.T) {
	t.Parallel()

	var calls []string
	step := newFakeStep("install", &calls)
	step.prompts = true
	step.promptErr = errors.New("installation of juju declined")
	status := &recordingStatus{}

	_, err := NewRunner(Options{Status: status}).Run(context.Background(), []Step{step})
	require.EqualError(t, err, "installation of juju declined")
	require.Equal(t, []string{"install.skip", "install.prompt"}, calls)
	require.Equal(t, "failed:Running install ... ", status.events[len(status.events)-1])
}

func TestRunnerSecondPassIsIdempotent(t *testing.T) {
	t.Parallel()

	converged := map[string]bool{}
	var calls []string
	build := func(name string) Step {
		step := &convergingStep{name: name, state: converged, calls: &calls}
		return step
	}
	plan := []Step{build("a"), build("b")}

	runner := NewRunner(Options{})
	_, err := runner.Run(context.Background(), plan)
	require.NoError(t, err)

	calls = nil
	reports, err := runner.Run(context.Background(), plan)
	require.NoError(t, err)
	require.Equal(t, []string{"a.skip", "b.skip"}, calls)
	for _, r := range reports {
		require.Equal(t, model.StateSkipped, r.State)
	}
}

type convergingStep struct {
	Base
	name  string
	state map[string]bool
	calls *[]string
}

func (s *convergingStep) Name() string { return s.name }

func (s *convergingStep) IsSkip(context.Context, console.Status) (bool, error) {
	*s.calls = append(*s.calls, s.name+".skip")
	return s.state[s.name], nil
}

func (s *convergingStep) Run(context.Context, console.Status) model.Result {
	*s.calls = append(*s.calls, s.name+".run")
	s.state[s.name] = true
	return model.Completed()
}

func TestRunnerObserverSeesTransitions(t *testing.T) {
	t.Parallel()

	var calls []string
	step := newFakeStep("configure", &calls)
	step.prompts = true

	var states []model.StepState
	_, err := NewRunner(Options{Observer: func(r StepReport) { states = append(states, r.State) }}).
		Run(context.Background(), []Step{step})
	require.NoError(t, err)
	require.Equal(t, []model.StepState{model.StatePrompting, model.StateRunning, model.StateCompleted}, states)
}

func TestRunnerStopsOnCancelledContext(t *testing.T) {
	t.Parallel()

	var calls []string
	ctx, cancel := context.WithCancel(context.Background())
	first := newFakeStep("a", &calls)
	first.onRunState = cancel

	reports, err := NewRunner(Options{}).Run(ctx, []Step{first, newFakeStep("b", &calls)})
	require.ErrorIs(t, err, context.Canceled)
	require.Len(t, reports, 1)
	require.Equal(t, []string{"a.skip", "a.run"}, calls)
}

func TestLinesCollectsCompletedMessages(t *testing.T) {
	t.Parallel()

	reports := []StepReport{
		{State: model.StateCompleted, Result: model.Completed("App keystone is in active state", "App nova is in waiting state")},
		{State: model.StateSkipped, Result: model.Skipped("ignored")},
		{State: model.StateCompleted, Result: model.NewResult(model.ResultCompleted, "App vault is in active state")},
	}

	require.Equal(t, []string{
		"App keystone is in active state",
		"App nova is in waiting state",
		"App vault is in active state",
	}, Lines(reports))
}

func TestRunnerPlainStatusOutput(t *testing.T) {
	t.Parallel()

	var calls []string
	buf := &bytes.Buffer{}
	failing := newFakeStep("b", &calls)
	failing.result = model.Failed("boom")

	_, err := NewRunner(Options{Status: console.NewPlainStatus(buf)}).
		Run(context.Background(), []Step{newFakeStep("a", &calls), failing})
	require.Error(t, err)

	out := buf.String()
	require.Contains(t, out, "Running a ... ")
	require.Contains(t, out, "done")
	require.Contains(t, out, "Running b ... ")
	require.Contains(t, out, "failed")
}
