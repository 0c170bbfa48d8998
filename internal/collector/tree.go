// Process tree builder: turns a process map into ordered, prefixed rows.
package collector

import (
	"sort"
	"strings"

	"github.com/arch-ai/spark/internal/models"
)

const (
	treeBranch     = "├─ "
	treeLast       = "└─ "
	treeContinue   = "│  "
	treeBlankShift = "   "
)

// SkipAncestors lists parents that never adopt children in the tree. Without
// it init and the desktop shell would each hold most of the system as one
// flat bucket.
type SkipAncestors struct {
	pids  map[int32]struct{}
	names map[string]struct{}
}

// NewSkipAncestors builds a skip list from pids and exact process names.
func NewSkipAncestors(pids []int32, names []string) SkipAncestors {
	s := SkipAncestors{
		pids:  make(map[int32]struct{}, len(pids)),
		names: make(map[string]struct{}, len(names)),
	}
	for _, pid := range pids {
		s.pids[pid] = struct{}{}
	}
	for _, name := range names {
		s.names[name] = struct{}{}
	}
	return s
}

// DefaultSkipAncestors skips PID 1 and gnome-shell.
func DefaultSkipAncestors() SkipAncestors {
	return NewSkipAncestors([]int32{1}, []string{"gnome-shell"})
}

func (s SkipAncestors) skips(pid int32, records map[int32]models.ProcessRecord) bool {
	if _, ok := s.pids[pid]; ok {
		return true
	}
	if rec, ok := records[pid]; ok {
		_, skip := s.names[rec.Name]
		return skip
	}
	return false
}

// BuildTreeRows orders records for display. In tree mode children are nested
// under their parent with box-drawing prefixes; otherwise every record is a
// top-level row with an empty prefix. Each level is sorted by sortBy with the
// pid as tiebreaker, and Desc reverses that order.
func BuildTreeRows(records map[int32]models.ProcessRecord, sortBy models.SortBy, order models.SortOrder, treeMode bool, skip SkipAncestors) []models.ProcessTreeRow {
	if !treeMode {
		roots := make([]int32, 0, len(records))
		for pid := range records {
			roots = append(roots, pid)
		}
		sortPIDs(roots, records, sortBy, order)
		rows := make([]models.ProcessTreeRow, len(roots))
		for i, pid := range roots {
			rows[i] = models.ProcessTreeRow{PID: pid}
		}
		return rows
	}

	children := make(map[int32][]int32)
	var roots []int32
	for pid, rec := range records {
		if parent, ok := rec.ParentPID(); ok && parent != pid {
			if _, present := records[parent]; present && !skip.skips(parent, records) {
				children[parent] = append(children[parent], pid)
				continue
			}
		}
		roots = append(roots, pid)
	}

	sortPIDs(roots, records, sortBy, order)
	for _, list := range children {
		sortPIDs(list, records, sortBy, order)
	}

	rows := make([]models.ProcessTreeRow, 0, len(records))
	var ancestorLast []bool
	var walk func(pid int32, isLast bool)
	walk = func(pid int32, isLast bool) {
		rows = append(rows, models.ProcessTreeRow{PID: pid, Prefix: treePrefix(ancestorLast, isLast)})
		ancestorLast = append(ancestorLast, isLast)
		list := children[pid]
		for i, child := range list {
			walk(child, i == len(list)-1)
		}
		ancestorLast = ancestorLast[:len(ancestorLast)-1]
	}
	for i, pid := range roots {
		walk(pid, i == len(roots)-1)
	}
	return rows
}

func treePrefix(ancestorLast []bool, isLast bool) string {
	if len(ancestorLast) == 0 {
		return ""
	}
	var b strings.Builder
	for _, last := range ancestorLast {
		if last {
			b.WriteString(treeBlankShift)
		} else {
			b.WriteString(treeContinue)
		}
	}
	if isLast {
		b.WriteString(treeLast)
	} else {
		b.WriteString(treeBranch)
	}
	return b.String()
}

func sortPIDs(pids []int32, records map[int32]models.ProcessRecord, sortBy models.SortBy, order models.SortOrder) {
	sort.Slice(pids, func(i, j int) bool {
		a, b := records[pids[i]], records[pids[j]]
		if c := compareRecords(&a, &b, sortBy); c != 0 {
			return c < 0
		}
		return pids[i] < pids[j]
	})
	if order == models.Desc {
		for i, j := 0, len(pids)-1; i < j; i, j = i+1, j-1 {
			pids[i], pids[j] = pids[j], pids[i]
		}
	}
}

func compareRecords(a, b *models.ProcessRecord, sortBy models.SortBy) int {
	switch sortBy {
	case models.SortMemory:
		return compareUint(a.MemoryBytes, b.MemoryBytes)
	case models.SortName:
		return strings.Compare(lowerName(a), lowerName(b))
	default:
		return compareFloat(a.CPU, b.CPU)
	}
}

func lowerName(r *models.ProcessRecord) string {
	if r.NameLower != "" {
		return r.NameLower
	}
	return strings.ToLower(r.Name)
}

func compareUint(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
