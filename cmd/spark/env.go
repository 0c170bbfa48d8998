package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

const noEnvMessage = "No environment variables"

func newEnvCmd(s *cliState) *cobra.Command {
	var container bool
	cmd := &cobra.Command{
		Use:   "env <pid|container-id>",
		Short: "Print the environment of a process or container",
		Example: `  spark env 4312
  spark env --container 3f2a9c1d7b8e`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				lines []string
				err   error
			)
			if container {
				lines, err = s.app.docker.LoadContainerEnv(cmd.Context(), args[0])
			} else {
				pid, perr := strconv.ParseInt(args[0], 10, 32)
				if perr != nil || pid <= 0 {
					return fmt.Errorf("invalid pid %q", args[0])
				}
				lines, err = s.app.reader.Environ(int32(pid))
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(lines) == 0 {
				fmt.Fprintln(out, noEnvMessage)
				return nil
			}
			for _, line := range lines {
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&container, "container", "c", false, "treat the argument as a container id")
	return cmd
}
