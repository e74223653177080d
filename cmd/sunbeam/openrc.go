package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	cloudsteps "github.com/alexisbeaulieu97/sunbeam/internal/steps/cloud"
)

func newOpenRCCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "openrc",
		Short: "Print the openrc of the cloud admin account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, root, runOpenRC)
		},
	}
}

func runOpenRC(ctx context.Context, app *AppContext) error {
	const message = "Retrieving openrc from Keystone service ... "

	app.Status.Start(message)
	openrc, err := cloudsteps.AdminOpenRC(ctx, app.Juju(), app.Config.ControlPlane.Model)
	if err != nil {
		app.Status.Failed(message)
		return err
	}
	app.Status.Done(message)

	fmt.Fprintln(app.Out, openrc)
	return nil
}
