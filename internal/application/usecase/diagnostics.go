package usecase

import (
	"context"
	"time"

	"github.com/dreschagin/ddc-kiosk/internal/application/port"
	"github.com/dreschagin/ddc-kiosk/internal/domain/repository"
	"github.com/dreschagin/ddc-kiosk/pkg/logger"
)

// ShellVersion: имя кеша service worker'а оболочки
const ShellVersion = "ddc4000-browser-v1.1.0"

type Diagnostics struct {
	Version         string          `json:"version"`
	KioskID         string          `json:"kioskId"`
	StartedAt       time.Time       `json:"startedAt"`
	Uptime          string          `json:"uptime"`
	Host            *port.HostStats `json:"host,omitempty"`
	HostError       string          `json:"hostError,omitempty"`
	WebSocketClient int             `json:"websocketClients"`
	GalleryItems    int             `json:"galleryItems"`
	KnownDevices    []string        `json:"knownDevices"`
	CaptureChain    []string        `json:"captureChain"`
}

// DiagnosticsUseCase собирает состояние киоска для /api/v1/diagnostics и kioskctl status
type DiagnosticsUseCase struct {
	kioskID   string
	startedAt time.Time
	host      port.HostStatsCollector
	notifier  port.NotificationService
	gallery   repository.GalleryRepository
	known     *KnownDevices
	chain     *CaptureChain
	logger    *logger.Logger
}

func NewDiagnosticsUseCase(
	kioskID string,
	host port.HostStatsCollector,
	notifier port.NotificationService,
	gallery repository.GalleryRepository,
	known *KnownDevices,
	chain *CaptureChain,
	log *logger.Logger,
) *DiagnosticsUseCase {
	return &DiagnosticsUseCase{
		kioskID:   kioskID,
		startedAt: time.Now().UTC(),
		host:      host,
		notifier:  notifier,
		gallery:   gallery,
		known:     known,
		chain:     chain,
		logger:    log,
	}
}

func (uc *DiagnosticsUseCase) Execute(ctx context.Context) *Diagnostics {
	d := &Diagnostics{
		Version:      ShellVersion,
		KioskID:      uc.kioskID,
		StartedAt:    uc.startedAt,
		Uptime:       time.Since(uc.startedAt).Round(time.Second).String(),
		KnownDevices: []string{},
		CaptureChain: []string{},
	}

	if uc.host != nil {
		stats, err := uc.host.Collect(ctx)
		if err != nil {
			uc.logger.Warn("Failed to collect host stats", "error", err.Error())
			d.HostError = err.Error()
		} else {
			d.Host = &stats
		}
	}
	if uc.notifier != nil {
		d.WebSocketClient = uc.notifier.ClientCount()
	}
	if uc.gallery != nil {
		if n, err := uc.gallery.Count(ctx); err == nil {
			d.GalleryItems = n
		}
	}
	if uc.known != nil {
		d.KnownDevices = uc.known.Hosts(ctx)
	}
	if uc.chain != nil {
		d.CaptureChain = append(uc.chain.Strategies(), TechniquePlaceholder)
	}
	return d
}
