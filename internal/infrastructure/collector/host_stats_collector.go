package collector

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dreschagin/ddc-kiosk/internal/application/port"
	"github.com/shirou/gopsutil/v3/host"
)

// part заполняет свою часть снимка
type part interface {
	Collect(ctx context.Context, stats *port.HostStats) error
}

// HostStatsCollector собирает состояние машины киоска для /api/diagnostics.
// Реализует интерфейс port.HostStatsCollector
type HostStatsCollector struct {
	parts []part
	now   func() time.Time
}

// NewHostStatsCollector создает collector с CPU, памятью, диском и сетью
func NewHostStatsCollector(diskPath string) *HostStatsCollector {
	return &HostStatsCollector{
		parts: []part{
			NewCPUCollector(),
			NewMemoryCollector(),
			NewDiskCollector(diskPath),
			NewNetworkCollector(),
		},
		now: time.Now,
	}
}

// Collect собирает все части параллельно. Ошибки частей не прерывают сбор:
// возвращается заполненный снимок и объединенная ошибка.
func (c *HostStatsCollector) Collect(ctx context.Context) (port.HostStats, error) {
	stats := port.HostStats{CollectedAt: c.now().UTC()}

	if info, err := host.InfoWithContext(ctx); err == nil {
		stats.Hostname = info.Hostname
		stats.Platform = info.Platform + " " + info.PlatformVersion
		stats.Uptime = time.Duration(info.Uptime) * time.Second
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	var errs []error

	partials := make([]port.HostStats, len(c.parts))
	for i, p := range c.parts {
		wg.Add(1)
		go func(i int, p part) {
			defer wg.Done()
			if err := p.Collect(ctx, &partials[i]); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}(i, p)
	}
	wg.Wait()

	for _, partial := range partials {
		merge(&stats, partial)
	}

	return stats, errors.Join(errs...)
}

func merge(dst *port.HostStats, src port.HostStats) {
	if src.CPUPercent != 0 {
		dst.CPUPercent = src.CPUPercent
	}
	if src.MemoryPercent != 0 {
		dst.MemoryPercent = src.MemoryPercent
		dst.MemoryUsedMB = src.MemoryUsedMB
	}
	if src.DiskPercent != 0 {
		dst.DiskPercent = src.DiskPercent
	}
	if src.NetSentKBps != 0 || src.NetRecvKBps != 0 {
		dst.NetSentKBps = src.NetSentKBps
		dst.NetRecvKBps = src.NetRecvKBps
	}
}
