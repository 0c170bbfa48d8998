package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/arch-ai/spark/internal/docker"
	"github.com/arch-ai/spark/internal/models"
	"github.com/arch-ai/spark/internal/scheduler"
)

func newDockerCmd(s *cliState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docker",
		Short: "Run lifecycle actions against containers",
	}
	for _, action := range []models.ContainerAction{models.ActionStart, models.ActionStop, models.ActionRestart, models.ActionKill} {
		cmd.AddCommand(newContainerActionCmd(s, action))
	}
	return cmd
}

func newContainerActionCmd(s *cliState, action models.ContainerAction) *cobra.Command {
	var (
		group   string
		noWait  bool
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   string(action) + " [container-id...]",
		Short: fmt.Sprintf("%s containers by id or compose group", action),
		Example: fmt.Sprintf(`  spark docker %[1]s 3f2a9c1d7b8e
  spark docker %[1]s --group /srv/shop`, action),
		Args: func(cmd *cobra.Command, args []string) error {
			if group == "" && len(args) == 0 {
				return errors.New("give container ids or --group")
			}
			if group != "" && len(args) > 0 {
				return errors.New("container ids and --group are mutually exclusive")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.app.containerAction(cmd.Context(), cmd.OutOrStdout(), action, args, group, !noWait, timeout)
		},
	}
	cmd.Flags().StringVarP(&group, "group", "g", "", "target every container of this compose group (path or project name)")
	cmd.Flags().BoolVar(&noWait, "no-wait", false, "return once the commands finish, without waiting for the new state")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "how long to wait for the new state")
	return cmd
}

// containerAction dispatches action and reports each result. Unless wait is
// false it keeps polling until every successful target reaches its expected
// state.
func (a *app) containerAction(ctx context.Context, w io.Writer, action models.ContainerAction, ids []string, group string, wait bool, timeout time.Duration) error {
	disp := docker.NewDispatcher(a.docker, a.logger.Named("dispatch"), a.metrics)

	if group != "" {
		records, err := a.docker.ListContainers(ctx)
		if err != nil {
			return err
		}
		if ids = disp.DispatchGroup(ctx, action, records, group); len(ids) == 0 {
			return fmt.Errorf("no containers in group %q", group)
		}
	} else {
		disp.Dispatch(ctx, action, ids...)
	}
	total := len(ids)

	if !wait {
		failed := 0
		for i := 0; i < total; i++ {
			r := <-disp.Events()
			if !r.Success {
				failed++
			}
			fmt.Fprintln(w, disp.HandleResult(r))
		}
		return opError(failed, total)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	worker := docker.StartWorker(ctx, a.docker, a.cfg.Refresh.DockerPoll.Duration, a.logger.Named("worker"), a.metrics)
	defer worker.Stop()

	finished, failed := 0, 0
	settled := false
	handlers := scheduler.Handlers{
		Status: func(r models.ContainerOpResult, msg string) {
			finished++
			if !r.Success {
				failed++
			}
			fmt.Fprintln(w, msg)
		},
		Containers: func([]models.ContainerRecord) {
			if finished == total && disp.PendingCount() == 0 {
				settled = true
				cancel()
			}
		},
	}
	if err := scheduler.New(a.cfg.Refresh, worker, disp, handlers, a.logger.Named("loop")).Run(ctx); err != nil {
		return err
	}
	if !settled {
		a.logger.Warn("Gave up waiting for containers",
			zap.Int("finished", finished),
			zap.Int("pending", disp.PendingCount()))
		for _, line := range disp.Unconfirmed(ids) {
			fmt.Fprintln(w, line)
		}
		return fmt.Errorf("timed out after %s with %d container(s) unconfirmed", timeout, disp.PendingCount())
	}
	return opError(failed, total)
}

func opError(failed, total int) error {
	if failed == 0 {
		return nil
	}
	return fmt.Errorf("%d of %d container operations failed", failed, total)
}
