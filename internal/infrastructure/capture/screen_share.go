package capture

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/dreschagin/ddc-kiosk/internal/application/port"
	"github.com/dreschagin/ddc-kiosk/internal/application/usecase"
	"github.com/kbinani/screenshot"
)

// DefaultAcquireTimeout: сколько ждать решения пользователя о доступе к экрану
const DefaultAcquireTimeout = 30 * time.Second

// ScreenShareStrategy снимает экран киоска через ScreenSource.
// Поток останавливается на любом пути выхода, включая поток,
// выданный уже после истечения таймаута.
type ScreenShareStrategy struct {
	source  port.ScreenSource
	timeout time.Duration
}

func NewScreenShareStrategy(source port.ScreenSource, timeout time.Duration) *ScreenShareStrategy {
	if timeout <= 0 {
		timeout = DefaultAcquireTimeout
	}
	return &ScreenShareStrategy{source: source, timeout: timeout}
}

func (s *ScreenShareStrategy) Name() string { return usecase.StrategyScreenShare }

type acquired struct {
	stream port.MediaStream
	err    error
}

func (s *ScreenShareStrategy) Attempt(ctx context.Context, target port.CaptureTarget) (*port.CapturedImage, error) {
	if s.source == nil {
		return nil, port.ErrUnsupported
	}

	acquireCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result := make(chan acquired, 1)
	go func() {
		stream, err := s.source.Acquire(acquireCtx)
		result <- acquired{stream: stream, err: err}
	}()

	var stream port.MediaStream
	select {
	case a := <-result:
		if a.err != nil {
			if a.stream != nil {
				a.stream.Stop()
			}
			return nil, a.err
		}
		stream = a.stream
	case <-acquireCtx.Done():
		// поток может прийти позже, его нужно остановить
		go func() {
			if a := <-result; a.stream != nil {
				a.stream.Stop()
			}
		}()
		return nil, fmt.Errorf("screen share not granted: %w", acquireCtx.Err())
	}
	if stream == nil {
		return nil, port.ErrUnsupported
	}
	defer stream.Stop()

	frame, err := stream.GrabFrame(ctx)
	if err != nil {
		return nil, err
	}
	data, err := encodePNG(frame)
	if err != nil {
		return nil, err
	}
	return pngImage(data, usecase.StrategyScreenShare, "Captured from the kiosk display")
}

// DisplaySource выдает поток с дисплея машины киоска. Согласие пользователя
// на захват экрана задается конфигурацией (CAPTURE_SCREEN_SHARE_ENABLED).
type DisplaySource struct {
	consent bool
	display int
}

func NewDisplaySource(consent bool, display int) *DisplaySource {
	return &DisplaySource{consent: consent, display: display}
}

func (d *DisplaySource) Acquire(ctx context.Context) (port.MediaStream, error) {
	if !d.consent {
		return nil, port.ErrPermissionDenied
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n := screenshot.NumActiveDisplays()
	if n == 0 || d.display >= n {
		return nil, fmt.Errorf("%w: no active display", port.ErrUnsupported)
	}
	return &displayStream{bounds: screenshot.GetDisplayBounds(d.display)}, nil
}

type displayStream struct {
	bounds  image.Rectangle
	once    sync.Once
	mu      sync.Mutex
	stopped bool
}

func (s *displayStream) GrabFrame(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	stopped := s.stopped
	s.mu.Unlock()
	if stopped {
		return nil, fmt.Errorf("stream stopped")
	}
	return screenshot.CaptureRect(s.bounds)
}

func (s *displayStream) Stop() {
	s.once.Do(func() {
		s.mu.Lock()
		s.stopped = true
		s.mu.Unlock()
	})
}
