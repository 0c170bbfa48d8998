// Memory aggregator: consolidates multi-process applications (browsers,
// Electron apps, IDEs) into one figure on the family's root process.
// The total comes from a shared cgroup when the family has one, otherwise
// from summed PSS with RSS as the per-process fallback.
package collector

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/arch-ai/spark/internal/models"
)

type matchKind int

const (
	matchContains matchKind = iota
	matchExact
)

type familyPattern struct {
	kind    matchKind
	pattern string
}

type familyRule struct {
	family   string
	patterns []familyPattern
}

func anyContains(p ...string) []familyPattern { return makePatterns(matchContains, p) }
func anyExact(p ...string) []familyPattern    { return makePatterns(matchExact, p) }

func makePatterns(kind matchKind, p []string) []familyPattern {
	out := make([]familyPattern, len(p))
	for i, s := range p {
		out[i] = familyPattern{kind: kind, pattern: s}
	}
	return out
}

// appFamilies is checked in order; the first matching rule wins. Tokens
// match anywhere in the name except where a bare token would also match
// unrelated processes ("code", "rider").
var appFamilies = []familyRule{
	{"chrome", anyContains("chrome", "chromium")},
	{"firefox", append(anyContains("firefox"), anyExact("web content", "isolated web co", "webextensions")...)},
	{"brave", anyContains("brave")},
	{"edge", anyContains("msedge")},
	{"jetbrains", append(anyContains("idea", "webstorm", "pycharm", "goland", "clion", "phpstorm", "rubymine", "datagrip", "jetbrains"), anyExact("rider")...)},
	{"vscode", append(anyExact("code"), anyContains("code-oss", "code-insiders", "vscode")...)},
	{"electron", anyContains("electron")},
	{"slack", anyContains("slack")},
	{"discord", anyContains("discord")},
	{"spotify", anyContains("spotify")},
	{"teams", anyContains("teams")},
	{"obsidian", anyContains("obsidian")},
}

// AppFamily returns the family a lowercase process name belongs to, or ""
// when the process is not part of a known multi-process application.
func AppFamily(nameLower string) string {
	for _, rule := range appFamilies {
		for _, p := range rule.patterns {
			var ok bool
			switch p.kind {
			case matchContains:
				ok = strings.Contains(nameLower, p.pattern)
			case matchExact:
				ok = nameLower == p.pattern
			}
			if ok {
				return rule.family
			}
		}
	}
	return ""
}

// CgroupReader reads unified cgroup membership and memory counters.
type CgroupReader interface {
	CgroupPath(pid int32) (string, error)
	CgroupMemoryCurrent(path string) (uint64, error)
}

// PSSSource returns a process's proportional set size in bytes.
type PSSSource interface {
	Get(pid int32) (uint64, bool)
}

// MemoryAggregator rewrites the MemoryBytes of family roots. It only reads
// RSSBytes, so applying it repeatedly to the same records is stable.
type MemoryAggregator struct {
	cgroups CgroupReader
	pss     PSSSource
	logger  *zap.Logger
}

// NewMemoryAggregator creates an aggregator. Either source may be nil.
func NewMemoryAggregator(cgroups CgroupReader, pss PSSSource, logger *zap.Logger) *MemoryAggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryAggregator{cgroups: cgroups, pss: pss, logger: logger}
}

// Families groups the non-thread records into app families. Members are
// sorted by pid and families by name.
func Families(records map[int32]models.ProcessRecord) []models.MemoryFamily {
	byName := make(map[string][]int32)
	for pid, rec := range records {
		if rec.IsThread {
			continue
		}
		name := rec.NameLower
		if name == "" {
			name = strings.ToLower(rec.Name)
		}
		if family := AppFamily(name); family != "" {
			byName[family] = append(byName[family], pid)
		}
	}

	families := make([]models.MemoryFamily, 0, len(byName))
	for name, members := range byName {
		sort.Slice(members, func(i, j int) bool { return members[i] < members[j] })
		families = append(families, models.MemoryFamily{Name: name, Members: members})
	}
	sort.Slice(families, func(i, j int) bool { return families[i].Name < families[j].Name })
	return families
}

// Aggregate assigns each family's total to its root and resets other members
// to their own RSS. It returns the families it processed.
func (a *MemoryAggregator) Aggregate(records map[int32]models.ProcessRecord) []models.MemoryFamily {
	families := Families(records)
	for _, fam := range families {
		for _, pid := range fam.Members {
			rec := records[pid]
			rec.MemoryBytes = rec.RSSBytes
			records[pid] = rec
		}

		root := FamilyRoot(fam.Members, records)
		total, source := a.familyTotal(fam, records)
		rec := records[root]
		rec.MemoryBytes = total
		records[root] = rec

		a.logger.Debug("Aggregated app family",
			zap.String("family", fam.Name),
			zap.Int32("root", root),
			zap.Int("members", len(fam.Members)),
			zap.String("source", source),
			zap.Uint64("bytes", total))
	}
	return families
}

// FamilyRoot returns the lowest pid among members whose parent is outside
// the family, or the lowest member when every parent is inside.
func FamilyRoot(members []int32, records map[int32]models.ProcessRecord) int32 {
	inFamily := make(map[int32]struct{}, len(members))
	for _, pid := range members {
		inFamily[pid] = struct{}{}
	}
	root, found := int32(0), false
	lowest := members[0]
	for _, pid := range members {
		if pid < lowest {
			lowest = pid
		}
		rec := records[pid]
		if parent, ok := rec.ParentPID(); ok {
			if _, inside := inFamily[parent]; inside {
				continue
			}
		}
		if !found || pid < root {
			root, found = pid, true
		}
	}
	if !found {
		return lowest
	}
	return root
}

func (a *MemoryAggregator) familyTotal(fam models.MemoryFamily, records map[int32]models.ProcessRecord) (uint64, string) {
	if total, ok := a.cgroupTotal(fam); ok {
		return total, "cgroup"
	}
	var total uint64
	for _, pid := range fam.Members {
		if a.pss != nil {
			if pss, ok := a.pss.Get(pid); ok {
				total += pss
				continue
			}
		}
		total += records[pid].RSSBytes
	}
	return total, "pss"
}

// cgroupTotal returns the memory.current of the cgroup shared by every member,
// provided that cgroup is specific to the application.
func (a *MemoryAggregator) cgroupTotal(fam models.MemoryFamily) (uint64, bool) {
	if a.cgroups == nil {
		return 0, false
	}
	shared := ""
	for i, pid := range fam.Members {
		path, err := a.cgroups.CgroupPath(pid)
		if err != nil || path == "" {
			return 0, false
		}
		if i == 0 {
			shared = path
		} else if path != shared {
			return 0, false
		}
	}
	if !IsAppCgroup(shared, fam.Name) {
		return 0, false
	}
	total, err := a.cgroups.CgroupMemoryCurrent(shared)
	if err != nil {
		a.logger.Debug("cgroup memory unreadable", zap.String("path", shared), zap.Error(err))
		return 0, false
	}
	return total, true
}

// IsAppCgroup reports whether a cgroup path is dedicated to one application:
// it names the family or has an "app-*" or "*.scope" segment, and is not a
// login session scope.
func IsAppCgroup(path, family string) bool {
	lower := strings.ToLower(path)
	segments := strings.Split(strings.Trim(lower, "/"), "/")
	for _, seg := range segments {
		if strings.HasPrefix(seg, "session-") && strings.HasSuffix(seg, ".scope") {
			return false
		}
	}
	if family != "" && strings.Contains(lower, family) {
		return true
	}
	for _, seg := range segments {
		if strings.HasPrefix(seg, "app-") || strings.HasSuffix(seg, ".scope") {
			return true
		}
	}
	return false
}
