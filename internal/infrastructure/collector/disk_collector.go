package collector

import (
	"context"

	"github.com/dreschagin/ddc-kiosk/internal/application/port"
	"github.com/shirou/gopsutil/v3/disk"
)

// DiskCollector собирает заполненность раздела с данными киоска (галерея SQLite)
type DiskCollector struct {
	path string
}

// NewDiskCollector создает новый Disk collector
func NewDiskCollector(path string) *DiskCollector {
	if path == "" {
		path = "/"
	}
	return &DiskCollector{path: path}
}

func (c *DiskCollector) Collect(ctx context.Context, stats *port.HostStats) error {
	usage, err := disk.UsageWithContext(ctx, c.path)
	if err != nil {
		return err
	}
	stats.DiskPercent = usage.UsedPercent
	return nil
}
