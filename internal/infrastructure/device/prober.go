package device

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dreschagin/ddc-kiosk/internal/application/port"
	"github.com/dreschagin/ddc-kiosk/pkg/logger"
	probing "github.com/prometheus-community/pro-bing"
)

// Pinger: одна ICMP проверка; заменяется в тестах
type Pinger func(ctx context.Context, host string, timeout time.Duration) (time.Duration, error)

type ProberConfig struct {
	ICMP        bool
	ICMPTimeout time.Duration
	// Privileged: raw socket (нужен CAP_NET_RAW), иначе UDP ping
	Privileged bool
}

// Prober проверяет доступность панели DDC4000: ICMP (если включен) и HTTP GET
// того же адреса, который загрузит iframe. Реализует port.DeviceProber.
type Prober struct {
	client *http.Client
	ping   Pinger
	config ProberConfig
	logger *logger.Logger
}

func NewProber(client *http.Client, config ProberConfig, log *logger.Logger) *Prober {
	if client == nil {
		client = &http.Client{
			// редиректам панели не следуем: важен сам факт ответа
			CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
		}
	}
	if config.ICMPTimeout <= 0 {
		config.ICMPTimeout = time.Second
	}
	p := &Prober{client: client, config: config, logger: log}
	p.ping = p.icmp
	return p
}

// Probe возвращает ошибку, если панель не ответила по HTTP.
// Неудачный ICMP не считается ошибкой: многие сети режут ping.
func (p *Prober) Probe(ctx context.Context, host, targetURL string) (port.ProbeResult, error) {
	var result port.ProbeResult

	if p.config.ICMP && host != "" {
		rtt, err := p.ping(ctx, host, p.config.ICMPTimeout)
		if err != nil {
			p.logger.Debug("ICMP probe failed", "host", host, "error", err.Error())
		} else {
			result.ICMP = true
			result.Latency = rtt
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return result, fmt.Errorf("invalid device url: %w", err)
	}

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return result, fmt.Errorf("device is not responding: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))

	result.Reachable = true
	result.HTTPStatus = resp.StatusCode
	if !result.ICMP {
		result.Latency = time.Since(start)
	}
	return result, nil
}

func (p *Prober) icmp(ctx context.Context, host string, timeout time.Duration) (time.Duration, error) {
	pinger, err := probing.NewPinger(host)
	if err != nil {
		return 0, err
	}
	pinger.Count = 1
	pinger.Timeout = timeout
	pinger.SetPrivileged(p.config.Privileged)

	if err := pinger.RunWithContext(ctx); err != nil {
		return 0, err
	}
	stats := pinger.Statistics()
	if stats.PacketsRecv == 0 {
		return 0, fmt.Errorf("no echo reply from %s", host)
	}
	return stats.AvgRtt, nil
}
