package collector

import (
	"context"

	"github.com/dreschagin/ddc-kiosk/internal/application/port"
	"github.com/shirou/gopsutil/v3/mem"
)

// MemoryCollector собирает использование памяти
type MemoryCollector struct{}

// NewMemoryCollector создает новый Memory collector
func NewMemoryCollector() *MemoryCollector {
	return &MemoryCollector{}
}

func (c *MemoryCollector) Collect(ctx context.Context, stats *port.HostStats) error {
	vmStat, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return err
	}
	stats.MemoryPercent = vmStat.UsedPercent
	stats.MemoryUsedMB = float64(vmStat.Used) / 1024 / 1024
	return nil
}
