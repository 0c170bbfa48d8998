package main

import (
	"github.com/spf13/cobra"
)

func newMetricsCmd(s *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "Run every collector once and print self-telemetry in Prometheus text format",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s.app.registry.CollectAll(cmd.Context())
			return s.app.metrics.WriteText(cmd.OutOrStdout())
		},
	}
}
