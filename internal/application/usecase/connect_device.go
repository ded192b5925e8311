package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	ttlworker "github.com/FloatTech/ttl"
	"github.com/dreschagin/ddc-kiosk/internal/application/port"
	"github.com/dreschagin/ddc-kiosk/internal/domain/entity"
	"github.com/dreschagin/ddc-kiosk/internal/domain/service"
	"github.com/dreschagin/ddc-kiosk/pkg/logger"
	"github.com/samber/lo"
)

// Connection states reported to the shell.
const (
	StateConnecting = "connecting"
	StateConnected  = "connected"
	StateFailed     = "failed"
	StateTimeout    = "timeout"
)

const defaultLoadTimeout = 15 * time.Second

// ConnectionStatus: состояние последней загрузки устройства
type ConnectionStatus struct {
	State      string                  `json:"state"`
	Message    string                  `json:"message"`
	Connection entity.ConnectionConfig `json:"connection"`
	URL        service.DeviceURL       `json:"url"`
	Probe      *port.ProbeResult       `json:"probe,omitempty"`
	UpdatedAt  time.Time               `json:"updatedAt"`
}

type ConnectDeviceCommand struct {
	Connection  entity.ConnectionConfig
	ShellScheme string
	// SkipProbe: только построить адрес, без проверки устройства
	SkipProbe bool
}

type ConnectDeviceConfig struct {
	LoadTimeout time.Duration
	StatusTTL   time.Duration
}

// ConnectDeviceUseCase: валидация → адрес → проверка устройства под watchdog → статус
type ConnectDeviceUseCase struct {
	urls     *service.URLBuilder
	prober   port.DeviceProber
	settings *SettingsUseCase
	known    *KnownDevices
	notifier port.NotificationService
	events   port.EventPublisher
	config   ConnectDeviceConfig
	logger   *logger.Logger

	statuses *ttlworker.Cache[string, *ConnectionStatus]
}

func NewConnectDeviceUseCase(
	urls *service.URLBuilder,
	prober port.DeviceProber,
	settings *SettingsUseCase,
	known *KnownDevices,
	notifier port.NotificationService,
	events port.EventPublisher,
	config ConnectDeviceConfig,
	log *logger.Logger,
) *ConnectDeviceUseCase {
	if config.LoadTimeout <= 0 {
		config.LoadTimeout = defaultLoadTimeout
	}
	if config.StatusTTL <= 0 {
		config.StatusTTL = 10 * time.Minute
	}
	return &ConnectDeviceUseCase{
		urls:     urls,
		prober:   prober,
		settings: settings,
		known:    known,
		notifier: notifier,
		events:   events,
		config:   config,
		logger:   log,
		statuses: ttlworker.NewCache[string, *ConnectionStatus](config.StatusTTL),
	}
}

// BuildURL строит адрес iframe с cache buster, без проверки устройства
func (uc *ConnectDeviceUseCase) BuildURL(conn entity.ConnectionConfig, shellScheme string) (service.DeviceURL, error) {
	u, err := uc.urls.Build(conn, shellScheme)
	if err != nil {
		return service.DeviceURL{}, err
	}
	u.URL = uc.urls.WithCacheBuster(u.URL)
	if u.ProxyQueryURL != "" {
		u.ProxyQueryURL = service.ProxyQuery(uc.urls.WithCacheBuster(u.Target))
	}
	return u, nil
}

func (uc *ConnectDeviceUseCase) Execute(ctx context.Context, cmd ConnectDeviceCommand) (*ConnectionStatus, error) {
	conn := cmd.Connection
	u, err := uc.BuildURL(conn, cmd.ShellScheme)
	if err != nil {
		return nil, err
	}

	status := &ConnectionStatus{
		State:      StateConnecting,
		Message:    "Connecting to " + conn.Host + "...",
		Connection: conn,
		URL:        u,
		UpdatedAt:  time.Now().UTC(),
	}
	uc.publish(ctx, status)

	if cmd.SkipProbe || uc.prober == nil {
		status = uc.connected(status, nil)
	} else {
		status = uc.probe(ctx, status)
	}

	uc.statuses.Set(conn.Host, status)
	uc.publish(ctx, status)

	if status.State == StateConnected && uc.settings != nil {
		if err := uc.settings.SaveLastConnection(context.WithoutCancel(ctx), conn); err != nil {
			uc.logger.Warn("Failed to remember last connection", "error", err.Error())
		}
	}

	uc.logger.Info("Device connection finished", "host", conn.Host, "state", status.State, "proxied", u.Proxied)
	return status, nil
}

// Status возвращает последний известный статус устройства
func (uc *ConnectDeviceUseCase) Status(host string) (*ConnectionStatus, bool) {
	status := uc.statuses.Get(strings.TrimSpace(host))
	return status, status != nil
}

func (uc *ConnectDeviceUseCase) probe(ctx context.Context, status *ConnectionStatus) *ConnectionStatus {
	watchdog, cancel := context.WithTimeout(ctx, uc.config.LoadTimeout)
	defer cancel()

	result, err := uc.prober.Probe(watchdog, status.Connection.HostOnly(), status.URL.Target)
	next := *status
	next.UpdatedAt = time.Now().UTC()

	switch {
	case err == nil && result.Reachable:
		return uc.connected(&next, &result)
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(watchdog.Err(), context.DeadlineExceeded):
		next.State = StateTimeout
		next.Message = fmt.Sprintf("Connection timeout - device may be unreachable (%s)", uc.config.LoadTimeout)
	default:
		next.State = StateFailed
		next.Message = "Connection failed - check IP address"
		if err != nil {
			next.Message += ": " + err.Error()
		}
	}
	if err == nil {
		next.Probe = &result
	}
	return &next
}

func (uc *ConnectDeviceUseCase) connected(status *ConnectionStatus, result *port.ProbeResult) *ConnectionStatus {
	next := *status
	next.State = StateConnected
	next.Message = "Connected"
	if next.URL.Proxied {
		next.Message = "Connected (via proxy)"
	}
	next.Probe = result
	next.UpdatedAt = time.Now().UTC()
	return &next
}

func (uc *ConnectDeviceUseCase) publish(ctx context.Context, status *ConnectionStatus) {
	if uc.notifier != nil {
		uc.notifier.Broadcast(port.NotifyConnection, status)
	}
	if uc.events != nil {
		if err := uc.events.PublishEvent(ctx, port.SubjectConnectionStatus, status); err != nil {
			uc.logger.Warn("Failed to publish connection status", "error", err.Error())
		}
	}
}

// KnownDevices: allowlist адресов, к которым proxy разрешено обращаться:
// адреса из конфигурации и источники (preset'ы, последнее успешное подключение).
// Сам по себе список не растет: неудачная попытка подключения ничего не добавляет.
type KnownDevices struct {
	static  []string
	sources []func(context.Context) []string
}

func NewKnownDevices(static []string, sources ...func(context.Context) []string) *KnownDevices {
	return &KnownDevices{
		static:  lo.Map(static, func(h string, _ int) string { return normalizeHost(h) }),
		sources: sources,
	}
}

// Allowed проверяет host (с портом или без)
func (k *KnownDevices) Allowed(ctx context.Context, host string) bool {
	host = normalizeHost(host)
	if host == "" {
		return false
	}
	if lo.Contains(k.static, "*") || lo.Contains(k.static, host) {
		return true
	}

	for _, source := range k.sources {
		if lo.ContainsBy(source(ctx), func(h string) bool { return normalizeHost(h) == host }) {
			return true
		}
	}
	return false
}

// Hosts возвращает все известные адреса (для диагностики)
func (k *KnownDevices) Hosts(ctx context.Context) []string {
	hosts := append([]string{}, k.static...)

	for _, source := range k.sources {
		hosts = append(hosts, lo.Map(source(ctx), func(h string, _ int) string { return normalizeHost(h) })...)
	}
	return lo.Uniq(lo.Compact(hosts))
}

func normalizeHost(host string) string {
	return strings.ToLower(strings.TrimSpace(host))
}
