package engine

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/alexisbeaulieu97/sunbeam/internal/console"
	"github.com/alexisbeaulieu97/sunbeam/internal/logger"
	"github.com/alexisbeaulieu97/sunbeam/internal/model"
	sunbeamerrors "github.com/alexisbeaulieu97/sunbeam/pkg/errors"
)

// Options configures a Runner.
type Options struct {
	// Auto disables prompting; steps fall back to their defaults.
	Auto     bool
	Status   console.Status
	Prompter console.Prompter
	Logger   *logger.Logger
	// Observer, when set, is notified of every state a step enters.
	Observer func(StepReport)
}

// StepReport describes the outcome of one step of a plan.
type StepReport struct {
	Step        string
	Description string
	State       model.StepState
	Result      model.Result
	Duration    time.Duration
}

// Runner drives an ordered plan of steps to completion or first failure.
type Runner struct {
	opts Options
}

// NewRunner builds a Runner, filling in silent defaults for missing options.
func NewRunner(opts Options) *Runner {
	if opts.Status == nil {
		opts.Status = console.NewPlainStatus(io.Discard)
	}
	if opts.Prompter == nil {
		opts.Prompter = console.AutoPrompter{}
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	return &Runner{opts: opts}
}

// Run executes plan strictly in order. The first failed step aborts the rest
// of the plan; its message is returned as a *errors.StepError together with
// the reports of every step that was reached.
func (r *Runner) Run(ctx context.Context, plan []Step) ([]StepReport, error) {
	reports := make([]StepReport, 0, len(plan))

	for _, step := range plan {
		if err := ctx.Err(); err != nil {
			return reports, sunbeamerrors.NewStepError(step.Name(), "", err)
		}

		report := r.runStep(ctx, step)
		reports = append(reports, report)

		if report.State == model.StateFailed {
			return reports, sunbeamerrors.NewStepError(step.Name(), report.Result.Text(), nil)
		}
	}

	return reports, nil
}

func (r *Runner) runStep(ctx context.Context, step Step) StepReport {
	log := r.opts.Logger.WithFields(map[string]any{"step": step.Name()})
	status := r.opts.Status
	message := step.Description() + " ... "
	start := time.Now()

	report := StepReport{Step: step.Name(), Description: step.Description(), State: model.StatePending}
	transition := func(next model.StepState) {
		if !report.State.CanTransition(next) {
			log.Warn(fmt.Sprintf("unexpected transition %s -> %s", report.State, next))
		}
		report.State = next
		report.Duration = time.Since(start)
		if r.opts.Observer != nil {
			r.opts.Observer(report)
		}
	}
	fail := func(res model.Result) StepReport {
		report.Result = res
		transition(model.StateFailed)
		status.Failed(message)
		log.WithFields(map[string]any{"duration": report.Duration.String()}).Error(nil, "step failed: "+res.Text())
		return report
	}

	log.Debug("starting step")
	status.Start(message)

	skip, err := step.IsSkip(ctx, status)
	if err != nil {
		return fail(model.Failed(err.Error()))
	}
	if skip {
		report.Result = model.Skipped("")
		transition(model.StateSkipped)
		status.Skipped(message)
		log.Debug("skipping step")
		return report
	}

	if step.HasPrompts() && !r.opts.Auto {
		transition(model.StatePrompting)
		status.Stop()
		err := step.Prompt(ctx, r.opts.Prompter)
		status.Resume()
		if err != nil {
			return fail(model.Failed(err.Error()))
		}
	}

	transition(model.StateRunning)
	log.Debug("running step")
	res := step.Run(ctx, status)
	if res.IsFailed() {
		return fail(res)
	}

	report.Result = res
	transition(model.StateCompleted)
	status.Done(message)
	log.WithFields(map[string]any{"duration": report.Duration.String()}).Debug("finished step")
	return report
}

// Lines collects the report lines of every completed step in plan order.
func Lines(reports []StepReport) []string {
	var lines []string
	for _, report := range reports {
		if report.State == model.StateCompleted {
			lines = append(lines, report.Result.Messages()...)
		}
	}
	return lines
}
