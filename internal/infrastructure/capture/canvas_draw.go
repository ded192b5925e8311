package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dreschagin/ddc-kiosk/internal/application/port"
	"github.com/dreschagin/ddc-kiosk/internal/application/usecase"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
)

const maxDeviceImageSize = 8 << 20

// CanvasDrawStrategy загружает картинку экрана с самой панели (например /image.jpg)
// и рисует ее на холсте номинального размера × zoom. Не все прошивки отдают такой endpoint.
type CanvasDrawStrategy struct {
	client  *http.Client
	paths   []string
	timeout time.Duration
}

func NewCanvasDrawStrategy(client *http.Client, paths []string, timeout time.Duration) *CanvasDrawStrategy {
	if client == nil {
		client = http.DefaultClient
	}
	return &CanvasDrawStrategy{client: client, paths: paths, timeout: timeout}
}

func (s *CanvasDrawStrategy) Name() string { return usecase.StrategyCanvasDraw }

func (s *CanvasDrawStrategy) Attempt(ctx context.Context, target port.CaptureTarget) (*port.CapturedImage, error) {
	if len(s.paths) == 0 {
		return nil, port.ErrUnsupported
	}
	if err := target.Connection.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var errs []error
	for _, p := range s.paths {
		src, err := s.fetch(ctx, target.Connection.Address()+"/"+strings.TrimPrefix(p, "/"))
		if err != nil {
			errs = append(errs, err)
			if ctx.Err() != nil {
				break
			}
			continue
		}

		canvas := s.draw(src, target)
		data, err := encodePNG(canvas)
		if err != nil {
			return nil, err
		}
		return pngImage(data, usecase.StrategyCanvasDraw, "Drawn from the device image endpoint "+p)
	}
	return nil, errors.Join(errs...)
}

func (s *CanvasDrawStrategy) fetch(ctx context.Context, url string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: status %d", url, resp.StatusCode)
	}
	img, _, err := image.Decode(io.LimitReader(resp.Body, maxDeviceImageSize))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", url, err)
	}
	return img, nil
}

// draw масштабирует картинку панели на холст размером цели
func (s *CanvasDrawStrategy) draw(src image.Image, target port.CaptureTarget) *image.RGBA {
	w, h := target.Width, target.Height
	if w <= 0 || h <= 0 {
		w, h = target.Connection.Resolution.NominalSize()
	}
	canvas := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.CatmullRom.Scale(canvas, canvas.Bounds(), src, src.Bounds(), draw.Over, nil)
	return canvas
}
