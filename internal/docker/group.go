package docker

import (
	"sort"
	"strings"

	"github.com/arch-ai/spark/internal/models"
)

const (
	itemPrefix     = "  ├─ "
	lastItemPrefix = "  └─ "
)

type partition struct {
	key         string
	name        string
	path        string
	records     []models.ContainerRecord
	minActivity uint64
}

// GroupContainers orders containers by compose project for display. Projects
// with the most recent activity come first and "Other" is always last, with a
// separator row between projects. It returns the containers in row order;
// item rows index into that slice.
func GroupContainers(records []models.ContainerRecord, sortBy models.SortBy, order models.SortOrder) ([]models.ContainerRecord, []models.DockerRow) {
	byKey := make(map[string]*partition)
	var parts []*partition
	var other *partition
	for _, rec := range records {
		key := rec.GroupKey()
		p, ok := byKey[key]
		if !ok {
			p = &partition{key: key, name: rec.GroupName, path: rec.GroupPath, minActivity: ^uint64(0)}
			byKey[key] = p
			if key == models.OtherGroup {
				other = p
			} else {
				parts = append(parts, p)
			}
		}
		if rec.Activity < p.minActivity {
			p.minActivity = rec.Activity
		}
		p.records = append(p.records, rec)
	}

	sort.Slice(parts, func(i, j int) bool {
		if parts[i].minActivity != parts[j].minActivity {
			return parts[i].minActivity < parts[j].minActivity
		}
		return parts[i].key < parts[j].key
	})
	if other != nil {
		parts = append(parts, other)
	}

	flat := make([]models.ContainerRecord, 0, len(records))
	rows := make([]models.DockerRow, 0, len(records)+2*len(parts))
	for i, p := range parts {
		sortPartition(p.records, sortBy, order)
		if i > 0 {
			rows = append(rows, models.DockerRow{Kind: models.RowSeparator})
		}
		running := 0
		for _, rec := range p.records {
			if rec.Running {
				running++
			}
		}
		rows = append(rows, models.DockerRow{
			Kind:         models.RowGroup,
			Name:         p.name,
			Path:         p.path,
			Count:        len(p.records),
			RunningCount: running,
		})
		for j, rec := range p.records {
			prefix := itemPrefix
			if j == len(p.records)-1 {
				prefix = lastItemPrefix
			}
			rows = append(rows, models.DockerRow{Kind: models.RowItem, Index: len(flat), Prefix: prefix})
			flat = append(flat, rec)
		}
	}
	return flat, rows
}

// sortPartition orders by recency, then by the user's sort key, then by name.
func sortPartition(recs []models.ContainerRecord, sortBy models.SortBy, order models.SortOrder) {
	sort.SliceStable(recs, func(i, j int) bool {
		a, b := &recs[i], &recs[j]
		if a.Activity != b.Activity {
			return a.Activity < b.Activity
		}
		if c := compareBy(a, b, sortBy); c != 0 {
			if order == models.Desc {
				return c > 0
			}
			return c < 0
		}
		return strings.ToLower(a.Name) < strings.ToLower(b.Name)
	})
}

func compareBy(a, b *models.ContainerRecord, sortBy models.SortBy) int {
	switch sortBy {
	case models.SortMemory:
		switch {
		case a.MemoryBytes < b.MemoryBytes:
			return -1
		case a.MemoryBytes > b.MemoryBytes:
			return 1
		}
	case models.SortName:
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	default:
		switch {
		case a.CPU < b.CPU:
			return -1
		case a.CPU > b.CPU:
			return 1
		}
	}
	return 0
}

// FilterContainers keeps the records whose id, name, image, ports, status or
// compose group contains filter, ignoring case.
func FilterContainers(records []models.ContainerRecord, filter string) []models.ContainerRecord {
	if filter == "" {
		return records
	}
	f := strings.ToLower(filter)
	var out []models.ContainerRecord
	for _, rec := range records {
		for _, field := range []string{rec.ID, rec.Name, rec.Image, rec.Ports, rec.InternalPorts, rec.Status, rec.GroupName, rec.GroupPath} {
			if strings.Contains(strings.ToLower(field), f) {
				out = append(out, rec)
				break
			}
		}
	}
	return out
}

// ContainersInGroup returns the ids of records whose group key is key.
func ContainersInGroup(records []models.ContainerRecord, key string) []string {
	var ids []string
	for i := range records {
		if records[i].GroupKey() == key {
			ids = append(ids, records[i].ID)
		}
	}
	return ids
}
