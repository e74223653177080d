package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/sunbeam/internal/checks"
	cloudsteps "github.com/alexisbeaulieu97/sunbeam/internal/steps/cloud"
)

type configureOptions struct {
	Auto    bool
	Preseed string
	OpenRC  string
}

func newConfigureCmd(root *rootFlags) *cobra.Command {
	opts := configureOptions{}

	cmd := &cobra.Command{
		Use:   "configure",
		Short: "Configure the cloud with sane defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validatePreseedFlag(opts.Preseed); err != nil {
				return err
			}
			if err := validateOpenRCFlag(opts.OpenRC); err != nil {
				return err
			}
			return withApp(cmd, root, func(ctx context.Context, app *AppContext) error {
				return runConfigure(ctx, app, opts)
			})
		},
	}

	cmd.Flags().BoolVar(&opts.Auto, "auto", false, "Accept defaults for every unanswered question")
	cmd.Flags().StringVarP(&opts.Preseed, "preseed", "p", "", "Preseed file")
	cmd.Flags().StringVarP(&opts.OpenRC, "openrc", "o", "", "Output file for cloud access details")

	return cmd
}

func runConfigure(ctx context.Context, app *AppContext, opts configureOptions) error {
	cfg := app.Config
	if err := checks.Run(checks.Binaries(cfg.Juju.Binary, cfg.Terraform.Binary)...); err != nil {
		return err
	}

	if _, err := app.RunPlan(ctx, opts.Auto, app.syncPlan()); err != nil {
		return err
	}

	creds, err := cloudsteps.AdminCredentials(ctx, app.Juju(), cfg.ControlPlane.Model)
	if err != nil {
		return err
	}

	reports, err := app.RunPlan(ctx, opts.Auto, app.configurePlan(app.Role(), creds, opts.Preseed, opts.OpenRC))
	printLines(app.Out, reports)
	return err
}
