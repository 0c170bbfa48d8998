package main

import (
	"github.com/spf13/cobra"

	"github.com/arch-ai/spark/internal/setup"
)

func newInitCmd() *cobra.Command {
	var opts setup.Options
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starting config file",
		Args:  cobra.NoArgs,
		// Runs before any config exists, so it skips the root's config loading.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := setup.Run(cmd.OutOrStdout(), cmd.InOrStdin(), opts)
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.Mode, "mode", "", "config scope: user or system")
	f.StringVar(&opts.LogLevel, "level", "", "log level to write")
	f.StringVar(&opts.DockerBin, "docker-bin", "", "container engine CLI to write")
	f.StringVar(&opts.PM2Bin, "pm2-bin", "", "PM2 CLI to write")
	f.StringVar(&opts.Path, "path", "", "write to this path instead of the mode's location")
	f.BoolVar(&opts.Force, "force", false, "overwrite an existing file")
	f.BoolVarP(&opts.Interactive, "interactive", "i", false, "prompt for values not given as flags")
	return cmd
}
