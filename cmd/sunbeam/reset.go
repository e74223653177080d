package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newResetCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Reset the local node to its defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, root, runReset)
		},
	}
}

func runReset(ctx context.Context, app *AppContext) error {
	role := app.Role()
	if _, err := app.RunPlan(ctx, true, app.resetPlan(role)); err != nil {
		return err
	}
	fmt.Fprintf(app.Out, "Node has been reset as a %s node\n", role)
	return nil
}
