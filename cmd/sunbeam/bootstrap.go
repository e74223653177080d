package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/sunbeam/internal/checks"
)

func newBootstrapCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "bootstrap",
		Short: "Bootstrap the local node",
		Long: "Bootstrap juju and deploy the control plane on control nodes, and point\n" +
			"the hypervisor at the control plane on compute nodes.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, root, runBootstrap)
		},
	}
}

func runBootstrap(ctx context.Context, app *AppContext) error {
	if err := checks.Run(checks.NotRootCheck{}); err != nil {
		return err
	}

	role := app.Role()
	app.Logger.Debugf("bootstrap node: role %s", role)
	if _, err := app.RunPlan(ctx, true, app.bootstrapPlan(role)); err != nil {
		return err
	}
	fmt.Fprintf(app.Out, "Node has been bootstrapped as a %s node\n", role)
	return nil
}
