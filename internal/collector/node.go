// Node collector: JavaScript runtime processes that are running a project,
// enriched with PM2 state and with manually forked cluster workers merged.
package collector

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/arch-ai/spark/internal/cache"
	"github.com/arch-ai/spark/internal/grouping"
	"github.com/arch-ai/spark/internal/models"
	"github.com/arch-ai/spark/internal/shell"
	"github.com/arch-ai/spark/internal/telemetry"
)

// NodeCollector detects Node.js, Bun and Deno project processes.
type NodeCollector struct {
	source   ProcessSource
	pm2      *PM2Client
	projects *ProjectResolver
	versions *cache.VersionCache
	runner   shell.Runner
	home     string
	metrics  *telemetry.Metrics
	logger   *zap.Logger
	now      func() time.Time

	filter string
}

// NodeCollectorOptions configures a NodeCollector.
type NodeCollectorOptions struct {
	Source   ProcessSource
	PM2      *PM2Client
	Projects *ProjectResolver
	Versions *cache.VersionCache
	// Runner runs `node --version` for binaries without a version in their path.
	Runner  shell.Runner
	Home    string
	Filter  string
	Metrics *telemetry.Metrics
	Logger  *zap.Logger
}

// NewNodeCollector creates a node collector. A nil PM2 client disables PM2
// enrichment.
func NewNodeCollector(opts NodeCollectorOptions) *NodeCollector {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	projects := opts.Projects
	if projects == nil {
		projects = NewProjectResolver(nil, nil, opts.Home, 0)
	}
	versions := opts.Versions
	if versions == nil {
		versions = cache.NewVersionCache()
	}
	return &NodeCollector{
		source:   opts.Source,
		pm2:      opts.PM2,
		projects: projects,
		versions: versions,
		runner:   opts.Runner,
		home:     opts.Home,
		metrics:  opts.Metrics,
		logger:   logger,
		now:      time.Now,
		filter:   opts.Filter,
	}
}

// Name returns the collector identifier.
func (c *NodeCollector) Name() string { return "node" }

// IsAvailable returns true when a process source is configured.
func (c *NodeCollector) IsAvailable() bool { return c.source != nil }

// Collect runs CollectNodeProcesses with the configured filter.
func (c *NodeCollector) Collect(ctx context.Context) (interface{}, error) {
	return c.CollectNodeProcesses(ctx, c.filter)
}

// IsPM2Running reports whether the PM2 daemon answers.
func (c *NodeCollector) IsPM2Running(ctx context.Context) bool {
	return c.pm2 != nil && c.pm2.IsPM2Running(ctx)
}

// CollectNodeProcesses returns project runtime processes matching filter.
// PM2-managed entries come first ordered by pm_id, then the rest by pid.
// PM2 failures degrade to an unenriched list.
func (c *NodeCollector) CollectNodeProcesses(ctx context.Context, filter string) ([]models.NodeProcessRecord, error) {
	start := time.Now()
	raw, err := c.source.Processes(ctx)
	c.metrics.ObserveCollect(c.Name(), start, err)
	if err != nil {
		return nil, fmt.Errorf("sampling processes: %w", err)
	}

	records := c.detect(ctx, raw)
	records = enrichPM2(records, c.listPM2(ctx), c.projects)
	records = mergeClusterWorkers(records)
	records = filterNodeRecords(records, filter)
	sortNodeRecords(records)
	return records, nil
}

func (c *NodeCollector) detect(ctx context.Context, raw []RawProcess) []models.NodeProcessRecord {
	nowMS := c.now().UnixMilli()
	var out []models.NodeProcessRecord
	for i := range raw {
		p := &raw[i]
		if !IsNodeProcess(p.Name, p.Exe) {
			continue
		}
		script := ExtractScriptPath(p.Cmdline, c.home)
		if !IsProjectProcess(p.Exe, script, p.Cwd, p.Cmdline, c.projects.HasPackageJSON(p.Cwd)) {
			continue
		}

		rec := models.NodeProcessRecord{
			PID:         p.PID,
			Name:        ScriptDisplayName(script, p.Name),
			Script:      script,
			UsesNVM:     UsesNVM(p.Name, script, p.Cmdline),
			NodeVersion: c.nodeVersion(ctx, p.Exe),
			CPU:         p.CPU,
			MemoryBytes: p.RSS,
			WorkerCount: 1,
		}
		if project, ok := c.projects.FromProcess(script, p.Cwd); ok {
			rec.ProjectName = project
		}
		if p.CreateTime > 0 && nowMS > p.CreateTime {
			secs := uint64(nowMS-p.CreateTime) / 1000
			rec.UptimeSecs = &secs
		}
		out = append(out, rec)
	}
	return out
}

// nodeVersion reads the version from a version-manager path, else asks the
// binary itself once per path.
func (c *NodeCollector) nodeVersion(ctx context.Context, exe string) string {
	if exe == "" {
		return ""
	}
	if v, ok := NodeVersionFromPath(exe); ok {
		return v
	}
	if c.runner == nil {
		return ""
	}
	v, _ := c.versions.Lookup(exe, func(bin string) (string, bool) {
		res, err := c.runner.Run(ctx, bin, "--version")
		if err != nil {
			c.logger.Debug("node --version failed", zap.String("binary", bin), zap.Error(err))
			return "", false
		}
		v := strings.TrimSpace(string(res.Stdout))
		return v, v != ""
	})
	return v
}

func (c *NodeCollector) listPM2(ctx context.Context) []models.PM2Info {
	if c.pm2 == nil || !c.pm2.IsPM2Running(ctx) {
		return nil
	}
	list, err := c.pm2.ListPM2(ctx)
	if err != nil {
		if errors.Is(err, ErrPM2NotInstalled) || errors.Is(err, ErrPM2DaemonNotRunning) {
			c.logger.Debug("PM2 unavailable", zap.Error(err))
		} else {
			c.logger.Warn("PM2 list failed", zap.Error(err))
		}
		return nil
	}
	return list
}

func enrichPM2(records []models.NodeProcessRecord, list []models.PM2Info, projects *ProjectResolver) []models.NodeProcessRecord {
	if len(list) == 0 {
		return records
	}
	byPID := make(map[int32]*models.PM2Info, len(list))
	for i := range list {
		if list[i].PID > 0 {
			byPID[int32(list[i].PID)] = &list[i]
		}
	}

	tracked := make(map[int32]struct{}, len(records))
	for i := range records {
		rec := &records[i]
		tracked[rec.PID] = struct{}{}
		info, ok := byPID[rec.PID]
		if !ok {
			continue
		}
		pm2 := *info
		rec.Name = pm2.Name
		rec.PM2 = &pm2
		if pm2.UptimeMS > 0 {
			secs := pm2.UptimeMS / 1000
			rec.UptimeSecs = &secs
		}
		if pm2.CPU != nil {
			rec.CPU = *pm2.CPU
		}
	}

	for i := range list {
		info := list[i]
		if info.PID > 0 {
			if _, ok := tracked[int32(info.PID)]; ok {
				continue
			}
		}
		rec := models.NodeProcessRecord{
			PID:         int32(info.PID),
			Name:        info.Name,
			Script:      unknownField,
			MemoryBytes: info.MemoryBytes,
			PM2:         &info,
			WorkerCount: 1,
		}
		if info.Script != "" {
			rec.Script = info.Script
		}
		if project, ok := projects.FromScript(rec.Script, ""); ok {
			rec.ProjectName = project
		}
		if info.CPU != nil {
			rec.CPU = *info.CPU
		}
		if info.UptimeMS > 0 {
			secs := info.UptimeMS / 1000
			rec.UptimeSecs = &secs
		}
		records = append(records, rec)
	}
	return records
}

// mergeClusterWorkers folds non-PM2 records sharing a script into one row
// keyed by the lowest pid. CPU and memory are summed.
func mergeClusterWorkers(records []models.NodeProcessRecord) []models.NodeProcessRecord {
	var (
		order    []string
		byScript = make(map[string][]models.NodeProcessRecord)
		managed  []models.NodeProcessRecord
	)
	for _, rec := range records {
		if rec.PM2 != nil {
			managed = append(managed, rec)
			continue
		}
		if _, ok := byScript[rec.Script]; !ok {
			order = append(order, rec.Script)
		}
		byScript[rec.Script] = append(byScript[rec.Script], rec)
	}

	out := make([]models.NodeProcessRecord, 0, len(records))
	for _, script := range order {
		group := byScript[script]
		if len(group) == 1 {
			out = append(out, group[0])
			continue
		}
		sort.Slice(group, func(i, j int) bool { return group[i].PID < group[j].PID })
		merged := group[0]
		for _, w := range group[1:] {
			merged.CPU += w.CPU
			merged.MemoryBytes += w.MemoryBytes
			merged.UsesNVM = merged.UsesNVM || w.UsesNVM
		}
		merged.WorkerCount = len(group)
		out = append(out, merged)
	}
	return append(out, managed...)
}

func filterNodeRecords(records []models.NodeProcessRecord, filter string) []models.NodeProcessRecord {
	if filter == "" {
		return records
	}
	f := strings.ToLower(filter)
	out := records[:0]
	for _, rec := range records {
		if nodeRecordMatches(rec, f) {
			out = append(out, rec)
		}
	}
	return out
}

func nodeRecordMatches(rec models.NodeProcessRecord, f string) bool {
	fields := []string{rec.Name, rec.Script, strconv.Itoa(int(rec.PID)), rec.ProjectName}
	if rec.PM2 != nil {
		fields = append(fields, rec.PM2.Status, rec.PM2.Mode)
	}
	for _, s := range fields {
		if strings.Contains(strings.ToLower(s), f) {
			return true
		}
	}
	return false
}

func sortNodeRecords(records []models.NodeProcessRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i].PM2, records[j].PM2
		switch {
		case a != nil && b != nil:
			return a.PMID < b.PMID
		case a != nil:
			return true
		case b != nil:
			return false
		default:
			return records[i].PID < records[j].PID
		}
	})
}

// NodeGroupLabel is the grouping label of a record: its project, else its name.
func NodeGroupLabel(rec models.NodeProcessRecord) string {
	if p := strings.TrimSpace(rec.ProjectName); p != "" {
		return p
	}
	return rec.Name
}

// IsUtilityRecord reports whether a node record is tooling rather than a
// service.
func IsUtilityRecord(rec models.NodeProcessRecord) bool {
	return IsNodeUtility(rec.Name, rec.Script, rec.ProjectName, rec.UsesNVM)
}

// GroupNodeProcesses groups records by project for the tree view. Services
// come first; utilities follow under a single RowUtilities header and are
// grouped among themselves.
func GroupNodeProcesses(records []models.NodeProcessRecord) []models.NodeRow {
	var services, utilities []int
	for i := range records {
		if IsUtilityRecord(records[i]) {
			utilities = append(utilities, i)
		} else {
			services = append(services, i)
		}
	}

	rows := groupNodeIndices(records, services)
	if len(utilities) > 0 {
		rows = append(rows, models.NodeRow{Kind: models.RowUtilities, Name: UtilitiesTitle, Count: len(utilities)})
		rows = append(rows, groupNodeIndices(records, utilities)...)
	}
	return rows
}

// UtilitiesTitle names the utilities section of the node view.
const UtilitiesTitle = "Utils"

func groupNodeIndices(records []models.NodeProcessRecord, idx []int) []models.NodeRow {
	rows := grouping.Group(len(idx), func(i int) string { return NodeGroupLabel(records[idx[i]]) })
	for i := range rows {
		if rows[i].Kind == models.RowItem {
			rows[i].Index = idx[rows[i].Index]
		}
	}
	return rows
}

// FormatUptime renders an uptime as "3d 4h", "2h 5m", "4m 10s" or "9s".
// A missing or zero uptime renders as "-".
func FormatUptime(secs *uint64) string {
	if secs == nil || *secs == 0 {
		return unknownField
	}
	s := *secs
	days, hours, mins := s/86400, (s%86400)/3600, (s%3600)/60
	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, mins)
	case mins > 0:
		return fmt.Sprintf("%dm %ds", mins, s%60)
	default:
		return fmt.Sprintf("%ds", s)
	}
}
