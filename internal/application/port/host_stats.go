package port

import (
	"context"
	"time"
)

// HostStats: снимок состояния машины киоска для диагностики
type HostStats struct {
	Hostname      string        `json:"hostname"`
	Platform      string        `json:"platform"`
	Uptime        time.Duration `json:"uptime"`
	CPUPercent    float64       `json:"cpuPercent"`
	MemoryPercent float64       `json:"memoryPercent"`
	MemoryUsedMB  float64       `json:"memoryUsedMb"`
	DiskPercent   float64       `json:"diskPercent"`
	NetSentKBps   float64       `json:"netSentKbps"`
	NetRecvKBps   float64       `json:"netRecvKbps"`
	CollectedAt   time.Time     `json:"collectedAt"`
}

// HostStatsCollector собирает HostStats (реализация в Infrastructure слое)
type HostStatsCollector interface {
	Collect(ctx context.Context) (HostStats, error)
}
