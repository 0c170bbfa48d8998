// Process collector: builds the per-cycle process map shown in the process view.
// Names are filtered before any per-process lookups; user and container labels
// come from the shared caches, then multi-process memory is consolidated.
package collector

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/arch-ai/spark/internal/cache"
	"github.com/arch-ai/spark/internal/models"
	"github.com/arch-ai/spark/internal/telemetry"
)

const unknownField = "-"

// ContainerIDReader resolves the container a process runs in.
type ContainerIDReader interface {
	ContainerID(pid int32) string
}

// ProcessCollector collects ProcessRecords from a ProcessSource.
type ProcessCollector struct {
	source      ProcessSource
	caches      *cache.Caches
	containers  ContainerIDReader
	aggregator  *MemoryAggregator
	skipThreads bool
	metrics     *telemetry.Metrics
	logger      *zap.Logger

	// filter is used by Collect when the collector runs from a Registry.
	filter string
}

// ProcessCollectorOptions configures a ProcessCollector.
type ProcessCollectorOptions struct {
	Source      ProcessSource
	Caches      *cache.Caches
	Containers  ContainerIDReader
	Aggregator  *MemoryAggregator
	SkipThreads bool
	Filter      string
	Metrics     *telemetry.Metrics
	Logger      *zap.Logger
}

// NewProcessCollector creates a process collector. A nil Aggregator disables
// memory consolidation.
func NewProcessCollector(opts ProcessCollectorOptions) *ProcessCollector {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProcessCollector{
		source:      opts.Source,
		caches:      opts.Caches,
		containers:  opts.Containers,
		aggregator:  opts.Aggregator,
		skipThreads: opts.SkipThreads,
		filter:      opts.Filter,
		metrics:     opts.Metrics,
		logger:      logger,
	}
}

// Name returns the collector identifier.
func (c *ProcessCollector) Name() string { return "processes" }

// IsAvailable returns true when a process source is configured.
func (c *ProcessCollector) IsAvailable() bool { return c.source != nil }

// Collect runs CollectProcesses with the configured filter in list mode.
func (c *ProcessCollector) Collect(ctx context.Context) (interface{}, error) {
	return c.CollectProcesses(ctx, c.filter, false)
}

// CollectProcesses returns every process whose name contains filter
// (case-insensitive), keyed by pid. Kernel threads are dropped in tree mode
// and whenever the collector is configured to skip them. Unknown users and
// executables are reported as "-".
func (c *ProcessCollector) CollectProcesses(ctx context.Context, filter string, treeMode bool) (map[int32]models.ProcessRecord, error) {
	start := time.Now()
	raw, err := c.source.Processes(ctx)
	c.metrics.ObserveCollect(c.Name(), start, err)
	if err != nil {
		return nil, err
	}

	skipThreads := treeMode || c.skipThreads
	filterLower := strings.ToLower(filter)
	records := make(map[int32]models.ProcessRecord, len(raw))
	for i := range raw {
		p := &raw[i]
		if skipThreads && p.IsThread {
			continue
		}
		if filterLower != "" && !containsFold(p.Name, filterLower) {
			continue
		}
		records[p.PID] = c.record(p)
	}

	if c.aggregator != nil {
		c.aggregator.Aggregate(records)
	}
	return records, nil
}

func (c *ProcessCollector) record(p *RawProcess) models.ProcessRecord {
	rec := models.ProcessRecord{
		PID:         p.PID,
		Name:        p.Name,
		NameLower:   strings.ToLower(p.Name),
		CPU:         p.CPU,
		MemoryBytes: p.RSS,
		RSSBytes:    p.RSS,
		User:        unknownField,
		Exe:         p.Exe,
		IsThread:    p.IsThread,
	}
	if rec.Exe == "" {
		rec.Exe = unknownField
	}
	if p.HasParent {
		ppid := p.PPID
		rec.PPID = &ppid
	}
	if p.HasUID && c.caches != nil {
		rec.User = c.caches.Users.Name(p.UID)
	}
	if c.containers != nil && c.caches != nil {
		if id := c.containers.ContainerID(p.PID); id != "" {
			rec.ContainerLabel = c.caches.Containers.Label(id)
		}
	}
	return rec
}

// containsFold reports whether s contains the lowercase substring sub,
// comparing ASCII case-insensitively without allocating.
func containsFold(s, sub string) bool {
	if sub == "" {
		return true
	}
	n := len(sub)
	for i := 0; i+n <= len(s); i++ {
		j := 0
		for ; j < n; j++ {
			c := s[i+j]
			if 'A' <= c && c <= 'Z' {
				c += 'a' - 'A'
			}
			if c != sub[j] {
				break
			}
		}
		if j == n {
			return true
		}
	}
	return false
}
