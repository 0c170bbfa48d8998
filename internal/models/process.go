// Package models defines the records and row variants produced by the
// collectors. Records are rebuilt every collection cycle; rows are derived
// views that a renderer iterates in order.
package models

import "strings"

// SortBy selects the key used to order process, container and node rows.
type SortBy int

const (
	SortCPU SortBy = iota
	SortMemory
	SortName
)

// String returns the config/CLI spelling of the sort key.
func (s SortBy) String() string {
	switch s {
	case SortMemory:
		return "memory"
	case SortName:
		return "name"
	default:
		return "cpu"
	}
}

// ParseSortBy maps "cpu", "mem"/"memory" and "name" to a SortBy.
// Unknown values fall back to SortCPU.
func ParseSortBy(s string) SortBy {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mem", "memory":
		return SortMemory
	case "name":
		return SortName
	default:
		return SortCPU
	}
}

// SortOrder is the direction applied after the sort key.
type SortOrder int

const (
	Desc SortOrder = iota
	Asc
)

// ParseSortOrder maps "asc" to Asc; everything else is Desc.
func ParseSortOrder(s string) SortOrder {
	if strings.EqualFold(strings.TrimSpace(s), "asc") {
		return Asc
	}
	return Desc
}

// ProcessRecord is one OS process as seen in a single snapshot.
// The PID is only meaningful within that snapshot.
type ProcessRecord struct {
	PID       int32   `json:"pid"`
	Name      string  `json:"name"`
	NameLower string  `json:"-"`
	CPU       float64 `json:"cpu"`
	// MemoryBytes is the displayed memory, replaced by the family total on
	// the root of a multi-process application.
	MemoryBytes uint64 `json:"memory_bytes"`
	// RSSBytes is the OS-reported resident size and is never rewritten.
	RSSBytes       uint64 `json:"rss_bytes"`
	User           string `json:"user"`
	Exe            string `json:"exe"`
	PPID           *int32 `json:"ppid,omitempty"`
	ContainerLabel string `json:"container,omitempty"`
	IsThread       bool   `json:"is_thread"`
}

// ParentPID returns the parent id and whether one is known.
func (r ProcessRecord) ParentPID() (int32, bool) {
	if r.PPID == nil {
		return 0, false
	}
	return *r.PPID, true
}

// ProcessTreeRow is one visible row of the process view.
type ProcessTreeRow struct {
	PID    int32
	Prefix string
}

// MemoryFamily is the set of processes inferred to belong to one
// multi-process application.
type MemoryFamily struct {
	Name    string
	Members []int32
}

// SystemSummary is the host-wide header shown above every view.
type SystemSummary struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemTotal   uint64  `json:"mem_total"`
	MemUsed    uint64  `json:"mem_used"`
	SwapTotal  uint64  `json:"swap_total"`
	SwapUsed   uint64  `json:"swap_used"`
	UptimeSecs uint64  `json:"uptime_secs"`
}
