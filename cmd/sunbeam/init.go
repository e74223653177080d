package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/sunbeam/internal/checks"
	"github.com/alexisbeaulieu97/sunbeam/internal/config"
)

type initOptions struct {
	Auto bool
	Role string
}

func newInitCmd(root *rootFlags) *cobra.Command {
	opts := initOptions{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialise the local node",
		Long: "Initialise the local node as a control plane node, a compute node, or a\n" +
			"converged node running both.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			role, err := parseRoleFlag(opts.Role)
			if err != nil {
				return err
			}
			return withApp(cmd, root, func(ctx context.Context, app *AppContext) error {
				return runInit(ctx, app, role, opts.Auto)
			})
		},
	}

	cmd.Flags().BoolVar(&opts.Auto, "auto", false, "Automatically configure using the preselected defaults")
	cmd.Flags().StringVar(&opts.Role, "role", string(config.RoleConverged),
		"Node role: control, compute or converged")

	return cmd
}

func runInit(ctx context.Context, app *AppContext, role config.Role, auto bool) error {
	app.Logger.Debugf("initialising: auto %t, role %s", auto, role)

	if err := checks.Run(checks.SocketCheck{Service: "snapd", Path: app.Config.Snapd.Socket}); err != nil {
		return err
	}
	if err := config.SaveRole(app.Config.File, role); err != nil {
		return err
	}

	if _, err := app.RunPlan(ctx, auto, app.initPlan(role, os.Getenv("USER"))); err != nil {
		return err
	}
	fmt.Fprintf(app.Out, "Node has been initialised as a %s node\n", role)
	return nil
}
