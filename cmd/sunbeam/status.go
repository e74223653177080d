package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/sunbeam/internal/console"
	"github.com/alexisbeaulieu97/sunbeam/internal/engine"
	jujusteps "github.com/alexisbeaulieu97/sunbeam/internal/steps/juju"
)

func newStatusCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the status of the cloud applications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, root, runStatus)
		},
	}
}

func runStatus(ctx context.Context, app *AppContext) error {
	step := jujusteps.NewModelStatusStep(app.Juju(), app.Config.ControlPlane.Model, app.Config.Timeouts.ModelStatus, app.Logger)
	reports, err := app.RunPlan(ctx, true, []engine.Step{step})
	if err != nil {
		return err
	}
	renderStatus(app.Out, engine.Lines(reports))
	return nil
}

func renderStatus(out io.Writer, lines []string) {
	fmt.Fprintln(out, console.Header("Sunbeam status:"))
	for _, line := range lines {
		fmt.Fprintln(out, console.ApplicationLine(line))
	}
}

func printLines(out io.Writer, reports []engine.StepReport) {
	for _, line := range engine.Lines(reports) {
		fmt.Fprintln(out, line)
	}
}
