package capture

import (
	"context"
	"errors"
	"time"

	"github.com/dreschagin/ddc-kiosk/internal/application/port"
	"github.com/dreschagin/ddc-kiosk/internal/application/usecase"
)

// FrameElementID: id iframe устройства на странице оболочки
const FrameElementID = "ddcFrame"

// ContainerRenderStrategy отрисовывает страницу оболочки и снимает область iframe.
// Для cross-origin устройства кадр может быть пустым, такой результат принимается.
type ContainerRenderStrategy struct {
	renderer PageRenderer
	timeout  time.Duration
	settle   time.Duration
}

func NewContainerRenderStrategy(renderer PageRenderer, timeout time.Duration) *ContainerRenderStrategy {
	return &ContainerRenderStrategy{renderer: renderer, timeout: timeout, settle: time.Second}
}

func (s *ContainerRenderStrategy) Name() string { return usecase.StrategyContainerRender }

func (s *ContainerRenderStrategy) Attempt(ctx context.Context, target port.CaptureTarget) (*port.CapturedImage, error) {
	if target.ShellURL == "" {
		return nil, errors.New("kiosk shell url is not configured")
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	// запас под панель настроек оболочки
	png, err := s.renderer.Render(ctx, RenderRequest{
		URL:      target.ShellURL,
		Width:    target.Width + 80,
		Height:   target.Height + 240,
		Selector: "#" + FrameElementID,
		Settle:   s.settle,
	})
	if err != nil {
		return nil, err
	}
	return pngImage(png, usecase.StrategyContainerRender, "Rendered container element, cross-origin content may be blank")
}
