package collector

import (
	"context"
	"sync"
	"time"

	"github.com/dreschagin/ddc-kiosk/internal/application/port"
	"github.com/shirou/gopsutil/v3/net"
)

// NetworkCollector считает скорость сети между вызовами.
// Первый вызов только запоминает счетчики.
type NetworkCollector struct {
	mu            sync.Mutex
	lastStat      *net.IOCountersStat
	lastCheckTime time.Time
}

// NewNetworkCollector создает новый Network collector
func NewNetworkCollector() *NetworkCollector {
	return &NetworkCollector{}
}

func (c *NetworkCollector) Collect(ctx context.Context, stats *port.HostStats) error {
	counters, err := net.IOCountersWithContext(ctx, false)
	if err != nil || len(counters) == 0 {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	current := counters[0]
	if c.lastStat != nil {
		stats.NetSentKBps, stats.NetRecvKBps = rates(*c.lastStat, current, now.Sub(c.lastCheckTime))
	}
	c.lastStat = &current
	c.lastCheckTime = now
	return nil
}

// rates возвращает KB/s; сброс счетчиков дает 0
func rates(prev, cur net.IOCountersStat, elapsed time.Duration) (sent, recv float64) {
	seconds := elapsed.Seconds()
	if seconds <= 0 {
		return 0, 0
	}
	if cur.BytesSent >= prev.BytesSent {
		sent = float64(cur.BytesSent-prev.BytesSent) / seconds / 1024
	}
	if cur.BytesRecv >= prev.BytesRecv {
		recv = float64(cur.BytesRecv-prev.BytesRecv) / seconds / 1024
	}
	return sent, recv
}
