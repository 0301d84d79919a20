package telemetry

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
)

// ResourceSnapshot is the host resource usage at the time of a record
type ResourceSnapshot struct {
	MemoryUsedMB float64
	CPUPercent   float64
}

// ResourceSampler takes resource snapshots
type ResourceSampler interface {
	Sample(ctx context.Context) (ResourceSnapshot, error)
}

// HostSampler reads system-wide memory and CPU usage. CPU usage is measured
// since the previous call without blocking.
type HostSampler struct{}

// Sample implements ResourceSampler
func (HostSampler) Sample(ctx context.Context) (ResourceSnapshot, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return ResourceSnapshot{}, fmt.Errorf("failed to read memory usage: %w", err)
	}

	percents, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return ResourceSnapshot{}, fmt.Errorf("failed to read cpu usage: %w", err)
	}

	snapshot := ResourceSnapshot{MemoryUsedMB: float64(vm.Used) / (1024 * 1024)}
	if len(percents) > 0 {
		snapshot.CPUPercent = percents[0]
	}
	return snapshot, nil
}
