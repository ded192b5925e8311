package collector

import (
	"context"
	"time"

	"github.com/dreschagin/ddc-kiosk/internal/application/port"
	"github.com/shirou/gopsutil/v3/cpu"
)

// CPUCollector собирает загрузку CPU
type CPUCollector struct {
	interval time.Duration
}

// NewCPUCollector создает новый CPU collector
func NewCPUCollector() *CPUCollector {
	return &CPUCollector{interval: 500 * time.Millisecond}
}

// Collect измеряет загрузку CPU за interval
func (c *CPUCollector) Collect(ctx context.Context, stats *port.HostStats) error {
	percentages, err := cpu.PercentWithContext(ctx, c.interval, false)
	if err != nil {
		return err
	}
	if len(percentages) > 0 {
		stats.CPUPercent = percentages[0]
	}
	return nil
}
