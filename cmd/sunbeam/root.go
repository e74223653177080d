package main

import (
	"github.com/spf13/cobra"
)

type rootFlags struct {
	verbose    bool
	quiet      bool
	configPath string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "sunbeam",
		Short:         "Sunbeam bootstraps an OpenStack cloud on the local node",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable debug logging on the console")
	cmd.PersistentFlags().BoolVarP(&flags.quiet, "quiet", "q", false, "Suppress progress output")
	cmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "Path to the sunbeam config file")

	cmd.AddCommand(newInitCmd(flags))
	cmd.AddCommand(newBootstrapCmd(flags))
	cmd.AddCommand(newConfigureCmd(flags))
	cmd.AddCommand(newResetCmd(flags))
	cmd.AddCommand(newStatusCmd(flags))
	cmd.AddCommand(newOpenRCCmd(flags))
	cmd.AddCommand(newInspectCmd(flags))
	cmd.AddCommand(newVersionCmd())

	return cmd
}
