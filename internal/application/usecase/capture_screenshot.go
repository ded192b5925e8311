package usecase

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dreschagin/ddc-kiosk/internal/application/port"
	"github.com/dreschagin/ddc-kiosk/internal/domain/entity"
	"github.com/dreschagin/ddc-kiosk/internal/domain/repository"
	"github.com/dreschagin/ddc-kiosk/internal/domain/service"
	"github.com/dreschagin/ddc-kiosk/pkg/logger"
	"github.com/samber/lo"
)

const defaultGalleryMaxItems = 50

// Потолок размера снимка: WVGA 800×480 при MaxZoom
const (
	maxCaptureWidth  = 4000
	maxCaptureHeight = 2400
)

// FailureUnknownDevice: адрес не входит в allowlist, техники не запускались
const FailureUnknownDevice = "device-allowlist"

type CaptureScreenshotCommand struct {
	Connection entity.ConnectionConfig
	Zoom       float64
	Width      int
	Height     int
}

type CaptureScreenshotResult struct {
	Screenshot *entity.Screenshot
	Fallback   bool
	Failures   []StrategyFailure
	Evicted    int
}

type CaptureScreenshotConfig struct {
	MaxItems      int
	KeyPrefix     string
	KioskID       string
	PublicBaseURL string
}

// CaptureScreenshotUseCase запускает цепочку захвата и добавляет ровно один снимок в галерею.
// Захваты одного киоска выполняются последовательно.
type CaptureScreenshotUseCase struct {
	chain    *CaptureChain
	urls     *service.URLBuilder
	devices  port.DeviceAllowlist
	gallery  repository.GalleryRepository
	storage  port.ScreenshotStorage
	notifier port.NotificationService
	events   port.EventPublisher
	metrics  port.MetricsPublisher
	config   CaptureScreenshotConfig
	logger   *logger.Logger

	mu  sync.Mutex
	ids *IDGenerator
	now func() time.Time
}

func NewCaptureScreenshotUseCase(
	chain *CaptureChain,
	urls *service.URLBuilder,
	devices port.DeviceAllowlist,
	gallery repository.GalleryRepository,
	storage port.ScreenshotStorage,
	notifier port.NotificationService,
	events port.EventPublisher,
	metrics port.MetricsPublisher,
	config CaptureScreenshotConfig,
	log *logger.Logger,
) *CaptureScreenshotUseCase {
	if config.MaxItems <= 0 {
		config.MaxItems = defaultGalleryMaxItems
	}
	return &CaptureScreenshotUseCase{
		chain:    chain,
		urls:     urls,
		devices:  devices,
		gallery:  gallery,
		storage:  storage,
		notifier: notifier,
		events:   events,
		metrics:  metrics,
		config:   config,
		logger:   log,
		ids:      NewIDGenerator(),
		now:      time.Now,
	}
}

func (uc *CaptureScreenshotUseCase) Execute(ctx context.Context, cmd CaptureScreenshotCommand) (*CaptureScreenshotResult, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	capturedAt := uc.now().UTC()
	zoom := service.ClampZoom(cmd.Zoom)
	if cmd.Zoom == 0 {
		zoom = service.DefaultZoom
	}

	target := uc.buildTarget(cmd, zoom, capturedAt)
	var outcome CaptureOutcome
	if uc.devices.Allowed(ctx, cmd.Connection.Host) {
		outcome = uc.chain.Run(ctx, target)
	} else {
		uc.logger.Warn("Capture target is not a known device, using placeholder", "device", cmd.Connection.Host)
		outcome = uc.chain.Fallback(target, []StrategyFailure{{
			Strategy: FailureUnknownDevice,
			Error:    "device is not in the allowlist",
		}})
	}

	shot := entity.NewScreenshot(uc.ids.Next(capturedAt), outcome.Image.PNG, capturedAt, cmd.Connection, zoom)
	shot.Technique = outcome.Image.Technique
	shot.Notes = outcome.Image.Notes
	shot.Width = outcome.Image.Width
	shot.Height = outcome.Image.Height

	// Дальше работаем без отмены: снимок уже сделан и должен попасть в галерею
	persistCtx := context.WithoutCancel(ctx)

	uc.archive(persistCtx, shot, outcome.Image.PNG)

	evicted, err := uc.gallery.Append(persistCtx, shot, uc.config.MaxItems)
	if err != nil {
		uc.logger.Error("Failed to store screenshot in gallery", err, "screenshot_id", shot.ID)
		uc.cleanupEvicted(persistCtx, []*entity.Screenshot{shot})
		return nil, fmt.Errorf("failed to store screenshot: %w", err)
	}
	uc.cleanupEvicted(persistCtx, evicted)

	uc.logger.Info("Screenshot captured",
		"screenshot_id", shot.ID,
		"device", shot.Host,
		"technique", shot.Technique,
		"fallback", outcome.Fallback,
		"evicted", len(evicted),
	)

	uc.announce(persistCtx, shot, outcome)

	return &CaptureScreenshotResult{
		Screenshot: shot,
		Fallback:   outcome.Fallback,
		Failures:   outcome.Failures,
		Evicted:    len(evicted),
	}, nil
}

func (uc *CaptureScreenshotUseCase) buildTarget(cmd CaptureScreenshotCommand, zoom float64, at time.Time) port.CaptureTarget {
	width, height := cmd.Width, cmd.Height
	if width <= 0 || height <= 0 {
		nw, nh := cmd.Connection.Resolution.NominalSize()
		width = int(float64(nw) * zoom)
		height = int(float64(nh) * zoom)
	}
	width = min(width, maxCaptureWidth)
	height = min(height, maxCaptureHeight)

	target := port.CaptureTarget{
		Connection: cmd.Connection,
		Zoom:       zoom,
		Width:      width,
		Height:     height,
		At:         at,
	}

	if uc.urls == nil || cmd.Connection.Validate() != nil {
		// Недействительный адрес: техники не смогут загрузить устройство, но placeholder будет
		target.DeviceURL = cmd.Connection.Address()
		return target
	}

	target.DeviceURL = uc.urls.Target(cmd.Connection)
	base := strings.TrimRight(uc.config.PublicBaseURL, "/")
	if base == "" {
		return target
	}

	if proxied, err := service.ProxyPath(target.DeviceURL); err == nil {
		target.ProxiedURL = base + proxied
	}
	target.ShellURL = base + "/?ip=" + cmd.Connection.Host +
		"&protocol=" + cmd.Connection.Scheme.String() +
		"&resolution=" + cmd.Connection.Resolution.String() +
		"&zoom=" + strconv.FormatFloat(zoom, 'f', 2, 64)
	return target
}

// archive загружает PNG во внешнее хранилище; ошибка не мешает сохранению в галерею
func (uc *CaptureScreenshotUseCase) archive(ctx context.Context, shot *entity.Screenshot, png []byte) {
	if uc.storage == nil {
		return
	}

	key := uc.buildS3Key(shot.ID, shot.CapturedAt)
	url, err := uc.storage.PutObject(ctx, key, "image/png", png)
	if err != nil {
		uc.logger.Warn("Failed to archive screenshot", "screenshot_id", shot.ID, "error", err.Error())
		return
	}
	shot.ObjectKey = key
	shot.ObjectURL = url
}

// cleanupEvicted удаляет из S3 объекты снимков, которых больше нет в галерее
func (uc *CaptureScreenshotUseCase) cleanupEvicted(ctx context.Context, evicted []*entity.Screenshot) {
	if uc.storage == nil {
		return
	}
	for _, key := range objectKeys(evicted) {
		if err := uc.storage.DeleteObject(ctx, key); err != nil {
			uc.logger.Warn("Failed to delete evicted screenshot object", "key", key, "error", err.Error())
		}
	}
}

func (uc *CaptureScreenshotUseCase) announce(ctx context.Context, shot *entity.Screenshot, outcome CaptureOutcome) {
	summary := map[string]interface{}{
		"id":          shot.ID,
		"device":      shot.Host,
		"resolution":  shot.Resolution.String(),
		"technique":   shot.Technique,
		"fallback":    outcome.Fallback,
		"timestamp":   shot.CapturedAt,
		"description": shot.SourceDescription(),
		"objectUrl":   shot.ObjectURL,
	}

	if uc.notifier != nil {
		uc.notifier.Broadcast(port.NotifyScreenshot, summary)
	}

	if uc.events != nil {
		if err := uc.events.PublishEvent(ctx, port.SubjectScreenshotCaptured, summary); err != nil {
			uc.logger.Warn("Failed to publish screenshot event", "error", err.Error())
		}
	}

	if uc.metrics != nil {
		dims := map[string]string{"Technique": shot.Technique, "Resolution": shot.Resolution.String()}
		points := []port.MetricPoint{
			{Name: "ScreenshotCaptured", Value: 1, Unit: "Count", Dimensions: dims, Timestamp: shot.CapturedAt},
			{Name: "CaptureFailedTechniques", Value: float64(len(outcome.Failures)), Unit: "Count", Dimensions: dims, Timestamp: shot.CapturedAt},
		}
		if err := uc.metrics.PublishBatch(ctx, points); err != nil {
			uc.logger.Warn("Failed to publish capture metrics", "error", err.Error())
		}
	}
}

func (uc *CaptureScreenshotUseCase) buildS3Key(id string, capturedAt time.Time) string {
	prefix := strings.Trim(uc.config.KeyPrefix, "/")
	if prefix == "" {
		prefix = "kiosk-screenshots"
	}
	kioskID := strings.TrimSpace(uc.config.KioskID)
	if kioskID == "" {
		kioskID = "default"
	}

	timestamp := capturedAt.Format("20060102T150405Z")
	datePrefix := capturedAt.Format("2006/01/02")

	return fmt.Sprintf("%s/%s/%s/%s_%s.png", prefix, kioskID, datePrefix, timestamp, id)
}

func objectKeys(shots []*entity.Screenshot) []string {
	return lo.FilterMap(shots, func(s *entity.Screenshot, _ int) (string, bool) {
		if s == nil {
			return "", false
		}
		return s.ObjectKey, s.ObjectKey != ""
	})
}

// IDGenerator выдает строго возрастающие идентификаторы на основе unix millis
type IDGenerator struct {
	mu   sync.Mutex
	last int64
}

func NewIDGenerator() *IDGenerator {
	return &IDGenerator{}
}

func (g *IDGenerator) Next(at time.Time) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := at.UnixMilli()
	if id <= g.last {
		id = g.last + 1
	}
	g.last = id
	return strconv.FormatInt(id, 10)
}
