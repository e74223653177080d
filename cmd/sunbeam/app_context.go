package main

import (
	"context"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/alexisbeaulieu97/sunbeam/internal/config"
	"github.com/alexisbeaulieu97/sunbeam/internal/console"
	"github.com/alexisbeaulieu97/sunbeam/internal/engine"
	"github.com/alexisbeaulieu97/sunbeam/internal/hypervisor"
	"github.com/alexisbeaulieu97/sunbeam/internal/internalexec"
	"github.com/alexisbeaulieu97/sunbeam/internal/juju"
	"github.com/alexisbeaulieu97/sunbeam/internal/logger"
	"github.com/alexisbeaulieu97/sunbeam/internal/microk8s"
	"github.com/alexisbeaulieu97/sunbeam/internal/snapd"
	"github.com/alexisbeaulieu97/sunbeam/internal/terraform"
)

// AppContext bundles the services shared by one command invocation.
type AppContext struct {
	Config   *config.Config
	Logger   *logger.Logger
	Exec     internalexec.Runner
	Status   console.Status
	Prompter console.Prompter
	Out      io.Writer
	RunID    string
}

func newAppContext(cmd *cobra.Command, flags *rootFlags) (*AppContext, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}

	level := "info"
	var consoleOut io.Writer = io.Discard
	if flags.verbose {
		level = "debug"
		consoleOut = cmd.ErrOrStderr()
	}
	base, err := logger.New(logger.Options{
		Level:         level,
		HumanReadable: true,
		Writer:        consoleOut,
		FilePath:      cfg.LogFile(),
	})
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	log := base.WithFields(map[string]any{"run_id": runID, "command": cmd.Name()})
	log.Debugf("loaded config %s", cfg.File)

	out := cmd.OutOrStdout()
	return &AppContext{
		Config:   cfg,
		Logger:   log,
		Exec:     internalexec.NewOSRunner(),
		Status:   newStatus(out, flags.quiet),
		Prompter: console.NewLinePrompter(cmd.InOrStdin(), out),
		Out:      out,
		RunID:    runID,
	}, nil
}

func newStatus(out io.Writer, quiet bool) console.Status {
	if quiet {
		return console.NewPlainStatus(io.Discard)
	}
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return console.NewSpinnerStatus(out)
	}
	return console.NewPlainStatus(out)
}

// Close flushes the log file.
func (a *AppContext) Close() error {
	return a.Logger.Close()
}

// Role returns the node role, converged when init has not recorded one.
func (a *AppContext) Role() config.Role {
	if a.Config.Node.Role == "" {
		return config.RoleConverged
	}
	return a.Config.Node.Role
}

// RunPlan runs plan, prompting unless auto is set.
func (a *AppContext) RunPlan(ctx context.Context, auto bool, plan []engine.Step) ([]engine.StepReport, error) {
	runner := engine.NewRunner(engine.Options{
		Auto:     auto,
		Status:   a.Status,
		Prompter: a.Prompter,
		Logger:   a.Logger,
	})
	return runner.Run(ctx, plan)
}

func (a *AppContext) Juju() *juju.Client {
	return juju.NewClient(a.Exec, a.Config.Juju.Binary, a.Config.Juju.DataDir)
}

func (a *AppContext) Microk8s() *microk8s.Client {
	return microk8s.NewClient(a.Exec, a.Config.Microk8s.Binary)
}

func (a *AppContext) Terraform() *terraform.Client {
	return terraform.NewClient(a.Exec, a.Config.Terraform.Binary)
}

func (a *AppContext) Snapd() *snapd.Client {
	return snapd.NewClient(a.Config.Snapd.Socket)
}

func (a *AppContext) Hypervisor() *hypervisor.Client {
	return hypervisor.NewClient(a.Config.Hypervisor.Socket)
}

// withApp builds the AppContext for cmd and closes it after fn.
func withApp(cmd *cobra.Command, flags *rootFlags, fn func(ctx context.Context, app *AppContext) error) error {
	app, err := newAppContext(cmd, flags)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	if err := fn(cmd.Context(), app); err != nil {
		app.Logger.Error(err, "command failed")
		return err
	}
	return nil
}
