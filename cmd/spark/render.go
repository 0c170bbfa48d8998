package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/arch-ai/spark/internal/collector"
	"github.com/arch-ai/spark/internal/docker"
	"github.com/arch-ai/spark/internal/models"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func formatBytes(b uint64) string {
	if b == 0 {
		return "-"
	}
	return humanize.IBytes(b)
}

func formatCPU(pct float64) string {
	return strconv.FormatFloat(pct, 'f', 1, 64) + "%"
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderSummary(w io.Writer, s models.SystemSummary) {
	uptime := s.UptimeSecs
	fmt.Fprintf(w, "cpu %s  mem %s / %s  swap %s / %s  up %s\n",
		formatCPU(s.CPUPercent),
		humanize.IBytes(s.MemUsed), humanize.IBytes(s.MemTotal),
		humanize.IBytes(s.SwapUsed), humanize.IBytes(s.SwapTotal),
		collector.FormatUptime(&uptime))
}

func renderProcesses(w io.Writer, records map[int32]models.ProcessRecord, rows []models.ProcessTreeRow) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "PID\tNAME\tCPU\tMEM\tUSER\tCONTAINER")
	for _, row := range rows {
		rec, ok := records[row.PID]
		if !ok {
			continue
		}
		fmt.Fprintf(tw, "%d\t%s%s\t%s\t%s\t%s\t%s\n",
			rec.PID, row.Prefix, rec.Name, formatCPU(rec.CPU), formatBytes(rec.MemoryBytes), rec.User, orDash(rec.ContainerLabel))
	}
	return tw.Flush()
}

func renderPorts(w io.Writer, records []models.PortRecord, rows []models.PortRow) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "PROTO\tPORT\tPID\tPROCESS\tPROJECT\tEXE")
	for _, row := range rows {
		switch row.Kind {
		case models.RowGroup:
			fmt.Fprintf(tw, "%s (%d)\t\t\t\t\t\n", row.Name, row.Count)
		case models.RowItem:
			r := records[row.Index]
			pid := "-"
			if r.PID > 0 {
				pid = strconv.Itoa(int(r.PID))
			}
			fmt.Fprintf(tw, "  %s\t%d\t%s\t%s\t%s\t%s\n", r.Proto, r.Port, pid, r.ProcessName, orDash(r.ProjectName), r.Exe)
		case models.RowSeparator:
			fmt.Fprintln(tw, "\t\t\t\t\t")
		}
	}
	return tw.Flush()
}

func renderContainers(w io.Writer, records []models.ContainerRecord, rows []models.DockerRow) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, docker.EmptyMessage)
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "NAME\tID\tIMAGE\tSTATUS\tCPU\tMEM\tPORTS\tINTERNAL")
	for _, row := range rows {
		switch row.Kind {
		case models.RowGroup:
			label := row.Name
			if row.Path != "" && row.Path != row.Name {
				label += " (" + row.Path + ")"
			}
			fmt.Fprintf(tw, "%s [%d/%d running]\t\t\t\t\t\t\t\n", label, row.RunningCount, row.Count)
		case models.RowItem:
			c := records[row.Index]
			fmt.Fprintf(tw, "%s%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				row.Prefix, c.Name, docker.ShortID(c.ID), c.Image, c.Status,
				formatCPU(c.CPU), formatBytes(c.MemoryBytes), c.Ports, c.InternalPorts)
		case models.RowSeparator:
			fmt.Fprintln(tw, "\t\t\t\t\t\t\t")
		}
	}
	return tw.Flush()
}

const loadingMessage = "Loading containers..."

// renderDockerFrame renders the container view from the background worker's
// state: a loading line until the first poll completes, then the table, with
// the latest poll failure reported beneath it.
func renderDockerFrame(w io.Writer, records []models.ContainerRecord, rows []models.DockerRow, polls uint64, lastErr error) error {
	if polls == 0 && len(records) == 0 {
		_, err := fmt.Fprintln(w, loadingMessage)
		return err
	}
	if err := renderContainers(w, records, rows); err != nil {
		return err
	}
	if lastErr != nil {
		_, err := fmt.Fprintf(w, "docker: last poll failed: %v\n", lastErr)
		return err
	}
	return nil
}

func renderNode(w io.Writer, records []models.NodeProcessRecord, rows []models.NodeRow) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "PID\tNAME\tSCRIPT\tPROJECT\tNODE\tCPU\tMEM\tUPTIME\tPM2")
	for _, row := range rows {
		switch row.Kind {
		case models.RowUtilities:
			fmt.Fprintf(tw, "\t\t\t\t\t\t\t\t\n== %s (%d)\t\t\t\t\t\t\t\t\n", row.Name, row.Count)
		case models.RowGroup:
			fmt.Fprintf(tw, "%s (%d)\t\t\t\t\t\t\t\t\n", row.Name, row.Count)
		case models.RowItem:
			r := records[row.Index]
			name := r.Name
			if r.WorkerCount > 1 {
				name = fmt.Sprintf("%s x%d", name, r.WorkerCount)
			}
			pid := "-"
			if r.PID > 0 {
				pid = strconv.Itoa(int(r.PID))
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				pid, name, r.Script, orDash(r.ProjectName), orDash(r.NodeVersion),
				formatCPU(r.CPU), formatBytes(r.MemoryBytes), collector.FormatUptime(r.UptimeSecs), pm2Column(r.PM2))
		}
	}
	return tw.Flush()
}

func pm2Column(info *models.PM2Info) string {
	if info == nil {
		return "-"
	}
	parts := []string{fmt.Sprintf("#%d", info.PMID), info.Status, info.Mode}
	if info.Restarts > 0 {
		parts = append(parts, fmt.Sprintf("↻%d", info.Restarts))
	}
	return strings.Join(parts, " ")
}

// filterPorts keeps rows whose port, process, project or exe contains
// filter, ignoring case.
func filterPorts(records []models.PortRecord, filter string) []models.PortRecord {
	if filter == "" {
		return records
	}
	f := strings.ToLower(filter)
	var out []models.PortRecord
	for _, r := range records {
		for _, field := range []string{strconv.Itoa(int(r.Port)), r.ProcessName, r.ProjectName, r.Exe} {
			if strings.Contains(strings.ToLower(field), f) {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
