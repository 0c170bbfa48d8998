package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/arch-ai/spark/internal/docker"
	"github.com/arch-ai/spark/internal/models"
	"github.com/arch-ai/spark/internal/scheduler"
)

const clearScreen = "\x1b[H\x1b[2J"

func newWatchCmd(s *cliState) *cobra.Command {
	var (
		filter  string
		noClear bool
	)
	cmd := &cobra.Command{
		Use:       "watch [processes|ports|docker|node]",
		Short:     "Refresh a view until interrupted",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"processes", "ports", "docker", "node"},
		RunE: func(cmd *cobra.Command, args []string) error {
			view := "processes"
			if len(args) == 1 {
				view = args[0]
			}
			return s.app.watch(cmd.Context(), cmd.OutOrStdout(), view, filter, !noClear)
		},
	}
	cmd.Flags().StringVarP(&filter, "filter", "f", "", "case-insensitive substring filter")
	cmd.Flags().BoolVar(&noClear, "no-clear", false, "append frames instead of redrawing the screen")
	return cmd
}

// watch redraws view on every refresh tick. The docker view reads the
// background worker's snapshot instead of calling the engine inline.
func (a *app) watch(ctx context.Context, w io.Writer, view, filter string, clear bool) error {
	ctx, cancel := signalContext(ctx, a.logger)
	defer cancel()

	var (
		snapshots scheduler.Snapshotter
		worker    *docker.Worker
		latest    []models.ContainerRecord
	)
	if view == "docker" {
		worker = docker.StartWorker(ctx, a.docker, a.cfg.Refresh.DockerPoll.Duration, a.logger.Named("worker"), a.metrics)
		defer worker.Stop()
		snapshots = worker
	} else {
		a.primeCPU(ctx, view)
	}

	handlers := scheduler.Handlers{
		Refresh: func(ctx context.Context) error {
			var buf bytes.Buffer
			if clear {
				buf.WriteString(clearScreen)
			}
			if summary, err := a.system.Summary(ctx); err == nil {
				renderSummary(&buf, summary)
				buf.WriteByte('\n')
			}

			var err error
			if view == "docker" {
				records, rows := a.dockerView(latest, filter)
				err = renderDockerFrame(&buf, records, rows, worker.Polls(), worker.LastError())
			} else {
				err = a.snapshot(ctx, &buf, view, filter, false)
			}
			if err != nil {
				fmt.Fprintf(&buf, "error: %v\n", err)
			}
			_, werr := w.Write(buf.Bytes())
			return werr
		},
		Containers: func(snapshot []models.ContainerRecord) {
			latest = snapshot
		},
	}

	a.logger.Info("Watching",
		zap.String("view", view),
		zap.Duration("interval", a.cfg.Refresh.Interval.Duration))
	return scheduler.New(a.cfg.Refresh, snapshots, nil, handlers, a.logger.Named("loop")).Run(ctx)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context, logger *zap.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigCh)
		select {
		case sig := <-sigCh:
			logger.Info("Received signal, shutting down", zap.String("signal", sig.String()))
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
