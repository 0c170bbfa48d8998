// Package collector gathers the process, ports, node and system views.
// Each view has a collector that turns OS and CLI state into row records.
package collector

import "context"

// Collector is the interface implemented by every view collector.
type Collector interface {
	// Name returns the unique identifier for this collector.
	Name() string

	// Collect gathers one snapshot of the view. The context bounds any
	// external command the collector runs.
	Collect(ctx context.Context) (interface{}, error)

	// IsAvailable reports whether the collector has what it needs to run.
	// Collectors that return false are not registered.
	IsAvailable() bool
}
