package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/arch-ai/spark/internal/config"
)

// cliState carries the persistent flags and the app built from them to every
// subcommand.
type cliState struct {
	configPath string
	overrides  config.CLIOverrides
	app        *app
}

func newRootCmd() *cobra.Command {
	s := &cliState{}
	root := &cobra.Command{
		Use:   "spark",
		Short: "Inspect processes, ports, containers and Node.js apps on this host",
		Long: `spark collects the live state behind the dashboard: the process tree with
consolidated memory, listening ports, compose-grouped containers and Node.js or
PM2 applications.

Examples:
  spark snapshot processes --filter node
  spark watch docker
  spark docker restart --group /srv/shop`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return s.init(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if s.app != nil {
				_ = s.app.logger.Sync()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&s.configPath, "config", "", "path to a config file (default: search standard locations)")
	flags.StringVar(&s.overrides.LogLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&s.overrides.LogFile, "log-file", "", "also write JSON logs to this file")
	flags.DurationVar(&s.overrides.Interval, "interval", 0, "refresh interval for watch (e.g. 500ms, 2s)")
	flags.BoolVar(&s.overrides.FlatTree, "flat", false, "list processes without the parent/child tree")
	flags.StringVar(&s.overrides.SortBy, "sort", "", "sort key: cpu, mem, name")
	flags.StringVar(&s.overrides.SortOrder, "order", "", "sort order: asc, desc")

	root.AddCommand(
		newSnapshotCmd(s),
		newWatchCmd(s),
		newEnvCmd(s),
		newKillCmd(s),
		newDockerCmd(s),
		newMetricsCmd(s),
		newInitCmd(),
	)
	return root
}

// init loads the configuration layers, validates them and wires the app.
func (s *cliState) init(cmd *cobra.Command) error {
	var (
		cfg *config.Config
		err error
	)
	if cmd.Flags().Changed("config") {
		cfg, err = config.LoadLayered(s.overrides, embeddedConfig, s.configPath)
	} else {
		cfg, err = config.LoadLayered(s.overrides, embeddedConfig)
	}
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := initLogger(cfg)
	logger.Debug("Configuration loaded",
		zap.String("version", version),
		zap.Duration("interval", cfg.Refresh.Interval.Duration),
		zap.Bool("tree_mode", cfg.Process.TreeMode))
	s.app = newApp(cfg, logger)
	return nil
}
