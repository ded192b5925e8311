package capture

import (
	"context"
	"fmt"
	"time"

	"github.com/dreschagin/ddc-kiosk/internal/application/port"
	"github.com/dreschagin/ddc-kiosk/internal/application/usecase"
)

// DirectReadStrategy читает документ устройства напрямую. Это возможно только
// через собственный proxy киоска: тогда документ same-origin.
type DirectReadStrategy struct {
	renderer PageRenderer
	timeout  time.Duration
	settle   time.Duration
}

func NewDirectReadStrategy(renderer PageRenderer, timeout time.Duration) *DirectReadStrategy {
	return &DirectReadStrategy{renderer: renderer, timeout: timeout, settle: 500 * time.Millisecond}
}

func (s *DirectReadStrategy) Name() string { return usecase.StrategyDirectRead }

func (s *DirectReadStrategy) Attempt(ctx context.Context, target port.CaptureTarget) (*port.CapturedImage, error) {
	if target.ProxiedURL == "" {
		return nil, port.ErrNotSameOrigin
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	png, err := s.renderer.Render(ctx, RenderRequest{
		URL:    target.ProxiedURL,
		Width:  target.Width,
		Height: target.Height,
		Settle: s.settle,
	})
	if err != nil {
		return nil, err
	}
	return pngImage(png, usecase.StrategyDirectRead, "Rendered through the kiosk proxy")
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func pngImage(data []byte, technique string, notes ...string) (*port.CapturedImage, error) {
	cfg, err := decodePNGConfig(data)
	if err != nil {
		return nil, fmt.Errorf("%s produced an invalid image: %w", technique, err)
	}
	return &port.CapturedImage{
		PNG:       data,
		Width:     cfg.Width,
		Height:    cfg.Height,
		Technique: technique,
		Notes:     notes,
	}, nil
}
