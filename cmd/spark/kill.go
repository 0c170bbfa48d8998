package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/arch-ai/spark/internal/platform"
)

func newKillCmd(s *cliState) *cobra.Command {
	var term bool
	cmd := &cobra.Command{
		Use:   "kill <pid>...",
		Short: "Send SIGKILL (or SIGTERM with --term) to processes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := s.app
			failed := 0
			for _, arg := range args {
				pid, err := strconv.ParseInt(arg, 10, 32)
				if err != nil || pid <= 0 {
					return fmt.Errorf("invalid pid %q", arg)
				}
				if term {
					err = platform.Terminate(a.platform, int32(pid))
				} else {
					err = platform.Kill(a.platform, int32(pid))
				}
				if err != nil {
					failed++
					a.logger.Warn("Signal failed", zap.Int64("pid", pid), zap.Error(err))
					fmt.Fprintf(cmd.ErrOrStderr(), "%d: %v\n", pid, err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "signalled %d\n", pid)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d processes could not be signalled", failed, len(args))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&term, "term", false, "send SIGTERM instead of SIGKILL")
	return cmd
}
