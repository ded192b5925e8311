package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"time"

	"github.com/dreschagin/ddc-kiosk/internal/application/port"
	"github.com/dreschagin/ddc-kiosk/pkg/logger"
)

// Capture technique names, in chain order.
const (
	StrategyDirectRead      = "direct-read"
	StrategyContainerRender = "container-render"
	StrategyScreenShare     = "screen-share"
	StrategyCanvasDraw      = "canvas-draw"
	TechniquePlaceholder    = "placeholder"
)

var errEmptyImage = errors.New("technique returned an empty image")

// StrategyFailure records why one technique did not produce an image.
type StrategyFailure struct {
	Strategy string `json:"strategy"`
	Error    string `json:"error"`
}

// CaptureOutcome is the single result of one chain run.
type CaptureOutcome struct {
	Image    *port.CapturedImage
	Failures []StrategyFailure
	Fallback bool
}

// CaptureChain tries techniques in order and falls back to a synthesized placeholder.
// Run never fails.
type CaptureChain struct {
	strategies []port.CaptureStrategy
	fallback   port.PlaceholderRenderer
	observer   port.CaptureObserver
	logger     *logger.Logger
}

func NewCaptureChain(
	strategies []port.CaptureStrategy,
	fallback port.PlaceholderRenderer,
	observer port.CaptureObserver,
	log *logger.Logger,
) *CaptureChain {
	return &CaptureChain{
		strategies: strategies,
		fallback:   fallback,
		observer:   observer,
		logger:     log,
	}
}

// Strategies returns technique names in the order they are tried.
func (c *CaptureChain) Strategies() []string {
	names := make([]string, 0, len(c.strategies))
	for _, s := range c.strategies {
		names = append(names, s.Name())
	}
	return names
}

func (c *CaptureChain) Run(ctx context.Context, target port.CaptureTarget) CaptureOutcome {
	failures := make([]StrategyFailure, 0, len(c.strategies))

	for _, strategy := range c.strategies {
		name := strategy.Name()
		startedAt := time.Now()

		img, err := c.attempt(ctx, strategy, target)
		if err == nil && (img == nil || len(img.PNG) == 0) {
			err = errEmptyImage
		}
		c.observe(name, err == nil, time.Since(startedAt))

		if err != nil {
			c.logger.Debug("Capture technique failed", "strategy", name, "error", err.Error())
			failures = append(failures, StrategyFailure{Strategy: name, Error: err.Error()})
			continue
		}

		if img.Technique == "" {
			img.Technique = name
		}
		c.logger.Debug("Capture technique succeeded", "strategy", name, "attempts", len(failures)+1)
		return CaptureOutcome{Image: img, Failures: failures}
	}

	c.logger.Warn("All capture techniques failed, using placeholder", "attempts", len(failures))
	return c.Fallback(target, failures)
}

// Fallback пропускает техники и сразу рисует placeholder
func (c *CaptureChain) Fallback(target port.CaptureTarget, failures []StrategyFailure) CaptureOutcome {
	return CaptureOutcome{
		Image:    c.renderFallback(target, failures),
		Failures: failures,
		Fallback: true,
	}
}

func (c *CaptureChain) attempt(ctx context.Context, strategy port.CaptureStrategy, target port.CaptureTarget) (img *port.CapturedImage, err error) {
	defer func() {
		if r := recover(); r != nil {
			img = nil
			err = fmt.Errorf("technique panicked: %v", r)
		}
	}()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return strategy.Attempt(ctx, target)
}

func (c *CaptureChain) renderFallback(target port.CaptureTarget, failures []StrategyFailure) (img *port.CapturedImage) {
	names := make([]string, 0, len(failures))
	for _, f := range failures {
		names = append(names, f.Strategy)
	}

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Placeholder renderer panicked", fmt.Errorf("%v", r))
			img = blankPlaceholder()
		}
	}()

	if c.fallback != nil {
		if img = c.fallback.Render(target, names); img != nil && len(img.PNG) > 0 {
			img.Technique = TechniquePlaceholder
			return img
		}
	}
	return blankPlaceholder()
}

func (c *CaptureChain) observe(strategy string, success bool, d time.Duration) {
	if c.observer != nil {
		c.observer.ObserveAttempt(strategy, success, d)
	}
}

// blankPlaceholder is the last resort when the renderer itself is unavailable.
func blankPlaceholder() *port.CapturedImage {
	img := image.NewGray(image.Rect(0, 0, 8, 8))
	for i := range img.Pix {
		img.Pix[i] = color.Gray{Y: 0xf0}.Y
	}
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return &port.CapturedImage{
		PNG:       buf.Bytes(),
		Width:     8,
		Height:    8,
		Technique: TechniquePlaceholder,
		Notes:     []string{PlaceholderMarker},
	}
}

// PlaceholderMarker is the first diagnostic line of every synthesized placeholder.
const PlaceholderMarker = "DDC4000 Interface Screenshot"
