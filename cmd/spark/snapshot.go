package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/arch-ai/spark/internal/collector"
	"github.com/arch-ai/spark/internal/models"
)

var views = []string{"processes", "ports", "docker", "node", "system", "all"}

func newSnapshotCmd(s *cliState) *cobra.Command {
	var (
		filter string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:       "snapshot [processes|ports|docker|node|system|all]",
		Short:     "Collect one view and print it",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: views,
		RunE: func(cmd *cobra.Command, args []string) error {
			view := "processes"
			if len(args) == 1 {
				view = args[0]
			}
			s.app.primeCPU(cmd.Context(), view)
			return s.app.snapshot(cmd.Context(), cmd.OutOrStdout(), view, filter, asJSON)
		},
	}
	cmd.Flags().StringVarP(&filter, "filter", "f", "", "case-insensitive substring filter")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print records as JSON")
	return cmd
}

func (a *app) snapshot(ctx context.Context, w io.Writer, view, filter string, asJSON bool) error {
	switch view {
	case "processes":
		records, rows, err := a.processView(ctx, filter)
		if err != nil {
			return fmt.Errorf("collecting processes: %w", err)
		}
		if asJSON {
			ordered := make([]models.ProcessRecord, 0, len(rows))
			for _, row := range rows {
				ordered = append(ordered, records[row.PID])
			}
			return writeJSON(w, ordered)
		}
		return renderProcesses(w, records, rows)

	case "ports":
		records, rows, err := a.portsView(ctx, filter)
		if err != nil {
			return fmt.Errorf("collecting ports: %w", err)
		}
		if asJSON {
			return writeJSON(w, records)
		}
		return renderPorts(w, records, rows)

	case "docker":
		listing, err := a.docker.ListContainers(ctx)
		if err != nil {
			a.logger.Warn("Container listing unavailable", zap.Error(err))
		}
		records, rows := a.dockerView(listing, filter)
		if asJSON {
			return writeJSON(w, records)
		}
		return renderContainers(w, records, rows)

	case "node":
		records, rows, err := a.nodeView(ctx, filter)
		if err != nil {
			return fmt.Errorf("collecting node processes: %w", err)
		}
		if asJSON {
			return writeJSON(w, records)
		}
		return renderNode(w, records, rows)

	case "system":
		summary, err := a.system.Summary(ctx)
		if err != nil {
			return fmt.Errorf("collecting system summary: %w", err)
		}
		if asJSON {
			return writeJSON(w, summary)
		}
		renderSummary(w, summary)
		return nil

	case "all":
		return a.snapshotAll(ctx, w, asJSON)
	}
	return fmt.Errorf("unknown view %q", view)
}

// snapshotAll runs every registered collector concurrently. Views whose
// collector failed are left out.
func (a *app) snapshotAll(ctx context.Context, w io.Writer, asJSON bool) error {
	results := a.registry.CollectAll(ctx)
	if asJSON {
		return writeJSON(w, results)
	}

	for _, c := range a.registry.Collectors() {
		if err := a.renderSection(w, c.Name(), results[c.Name()]); err != nil {
			return err
		}
	}
	return nil
}

// renderSection renders one collector's result in registration order. A
// missing result (failed collector) renders nothing.
func (a *app) renderSection(w io.Writer, name string, data interface{}) error {
	switch v := data.(type) {
	case models.SystemSummary:
		renderSummary(w, v)
		return nil
	case map[int32]models.ProcessRecord:
		fmt.Fprintln(w, "\n== processes")
		rows := collector.BuildTreeRows(v, a.sortBy(), a.sortOrder(), a.cfg.Process.TreeMode, a.skip)
		return renderProcesses(w, v, rows)
	case []models.PortRecord:
		fmt.Fprintln(w, "\n== ports")
		return renderPorts(w, v, collector.GroupPorts(v))
	case []models.ContainerRecord:
		fmt.Fprintln(w, "\n== docker")
		records, rows := a.dockerView(v, "")
		return renderContainers(w, records, rows)
	case []models.NodeProcessRecord:
		fmt.Fprintln(w, "\n== node")
		return renderNode(w, v, collector.GroupNodeProcesses(v))
	case nil:
		return nil
	}
	a.logger.Debug("No renderer for collector", zap.String("collector", name))
	return nil
}
