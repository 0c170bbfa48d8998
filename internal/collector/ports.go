// Ports collector: listening TCP/UDP sockets joined to their owning process,
// plus host ports published by containers that no local process owns.
package collector

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/arch-ai/spark/internal/cache"
	"github.com/arch-ai/spark/internal/grouping"
	"github.com/arch-ai/spark/internal/models"
	"github.com/arch-ai/spark/internal/sysfs"
	"github.com/arch-ai/spark/internal/telemetry"
)

// SocketReader reads kernel socket tables.
type SocketReader interface {
	ReadSocketTable(file string, listenOnly bool) ([]sysfs.SocketEntry, error)
}

// PortBindingSource lists host ports published by containers.
type PortBindingSource interface {
	PortBindings(ctx context.Context) ([]models.PortRecord, error)
}

// PortsCollector builds the ports view.
type PortsCollector struct {
	source   ProcessSource
	sockets  SocketReader
	inodes   *cache.InodeCache
	bindings PortBindingSource
	projects *ProjectResolver
	metrics  *telemetry.Metrics
	logger   *zap.Logger
}

// PortsCollectorOptions configures a PortsCollector. Bindings and Projects
// are optional.
type PortsCollectorOptions struct {
	Source   ProcessSource
	Sockets  SocketReader
	Inodes   *cache.InodeCache
	Bindings PortBindingSource
	Projects *ProjectResolver
	Metrics  *telemetry.Metrics
	Logger   *zap.Logger
}

// NewPortsCollector creates a ports collector.
func NewPortsCollector(opts PortsCollectorOptions) *PortsCollector {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PortsCollector{
		source:   opts.Source,
		sockets:  opts.Sockets,
		inodes:   opts.Inodes,
		bindings: opts.Bindings,
		projects: opts.Projects,
		metrics:  opts.Metrics,
		logger:   logger,
	}
}

// Name returns the collector identifier.
func (c *PortsCollector) Name() string { return "ports" }

// IsAvailable returns true when sockets can be read and resolved.
func (c *PortsCollector) IsAvailable() bool {
	return c.source != nil && c.sockets != nil && c.inodes != nil
}

// Collect runs CollectPorts.
func (c *PortsCollector) Collect(ctx context.Context) (interface{}, error) {
	return c.CollectPorts(ctx)
}

// CollectPorts returns listening ports sorted by port, protocol and pid.
// A container binding is dropped when a process already owns the same
// protocol and port. Unreadable tables and unresolved sockets are skipped.
func (c *PortsCollector) CollectPorts(ctx context.Context) ([]models.PortRecord, error) {
	start := time.Now()
	inodes, err := c.inodes.Map()
	if err != nil {
		c.metrics.ObserveCollect(c.Name(), start, err)
		return nil, err
	}
	raw, err := c.source.Processes(ctx)
	c.metrics.ObserveCollect(c.Name(), start, err)
	if err != nil {
		return nil, err
	}
	procs := make(map[int32]*RawProcess, len(raw))
	for i := range raw {
		procs[raw[i].PID] = &raw[i]
	}

	var rows []models.PortRecord
	for _, table := range sysfs.SocketTables {
		entries, err := c.sockets.ReadSocketTable(table.File, table.ListenOnly)
		if err != nil {
			c.logger.Debug("Socket table unreadable", zap.String("table", table.File), zap.Error(err))
			continue
		}
		for _, e := range entries {
			pid, ok := inodes[e.Inode]
			if !ok {
				continue
			}
			p, ok := procs[pid]
			if !ok {
				continue
			}
			rows = append(rows, c.procRow(table.Proto, e.Port, p))
		}
	}

	rows = mergeBindings(rows, c.containerRows(ctx))
	SortPorts(rows)
	return rows, nil
}

func (c *PortsCollector) procRow(proto string, port uint16, p *RawProcess) models.PortRecord {
	row := models.PortRecord{
		Proto:       proto,
		Port:        port,
		PID:         p.PID,
		ProcessName: p.Name,
		Exe:         p.Exe,
	}
	if row.Exe == "" {
		row.Exe = unknownField
	}
	if c.projects != nil && p.Cwd != "" {
		if name, ok := c.projects.ForDir(p.Cwd); ok {
			row.ProjectName = name
		}
	}
	return row
}

func (c *PortsCollector) containerRows(ctx context.Context) []models.PortRecord {
	if c.bindings == nil {
		return nil
	}
	rows, err := c.bindings.PortBindings(ctx)
	if err != nil {
		c.logger.Debug("Container port bindings unavailable", zap.Error(err))
		return nil
	}
	return rows
}

type protoPort struct {
	proto string
	port  uint16
}

// mergeBindings appends container rows whose (proto, port) is not already taken.
func mergeBindings(rows, bindings []models.PortRecord) []models.PortRecord {
	seen := make(map[protoPort]struct{}, len(rows)+len(bindings))
	for _, r := range rows {
		seen[protoPort{r.Proto, r.Port}] = struct{}{}
	}
	for _, b := range bindings {
		key := protoPort{b.Proto, b.Port}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		rows = append(rows, b)
	}
	return rows
}

// SortPorts orders rows by port, then protocol, then pid.
func SortPorts(rows []models.PortRecord) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Port != b.Port {
			return a.Port < b.Port
		}
		if a.Proto != b.Proto {
			return a.Proto < b.Proto
		}
		return a.PID < b.PID
	})
}

// PortGroupLabel is the grouping label of a row: its project, else its
// compose group, else its process name.
func PortGroupLabel(r models.PortRecord) string {
	for _, s := range []string{r.ProjectName, r.GroupName, r.ProcessName} {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

// GroupPorts groups rows by project for the tree view.
func GroupPorts(rows []models.PortRecord) []models.PortRow {
	return grouping.Group(len(rows), func(i int) string { return PortGroupLabel(rows[i]) })
}
