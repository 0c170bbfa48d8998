// System summary collector: host-wide CPU, memory, swap and uptime for the
// dashboard header. Uses gopsutil.
package collector

import (
	"context"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/arch-ai/spark/internal/models"
)

// SystemCollector collects a models.SystemSummary.
type SystemCollector struct{}

// NewSystemCollector creates a new system summary collector.
func NewSystemCollector() *SystemCollector {
	return &SystemCollector{}
}

// Name returns the collector identifier.
func (c *SystemCollector) Name() string { return "system" }

// Collect gathers the summary. CPU usage is measured since the previous call,
// so the first call after startup may report 0. Swap and uptime failures are
// non-fatal.
func (c *SystemCollector) Collect(ctx context.Context) (interface{}, error) {
	return c.Summary(ctx)
}

// Summary is the typed form of Collect.
func (c *SystemCollector) Summary(ctx context.Context) (models.SystemSummary, error) {
	var summary models.SystemSummary

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return summary, err
	}
	summary.MemTotal = vm.Total
	summary.MemUsed = vm.Used

	if pct, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(pct) > 0 {
		summary.CPUPercent = pct[0]
	}
	if swap, err := mem.SwapMemoryWithContext(ctx); err == nil {
		summary.SwapTotal = swap.Total
		summary.SwapUsed = swap.Used
	}
	if uptime, err := host.UptimeWithContext(ctx); err == nil {
		summary.UptimeSecs = uptime
	}
	return summary, nil
}

// IsAvailable returns true: host metrics are available on all platforms.
func (c *SystemCollector) IsAvailable() bool { return true }
