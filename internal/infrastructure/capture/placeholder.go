package capture

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"
	"time"

	"github.com/dreschagin/ddc-kiosk/internal/application/port"
	"github.com/dreschagin/ddc-kiosk/internal/application/usecase"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	placeholderBackground = color.RGBA{R: 0xf0, G: 0xf0, B: 0xf0, A: 0xff}
	placeholderInk        = color.RGBA{R: 0x33, G: 0x33, B: 0x33, A: 0xff}
)

const (
	placeholderBorder     = 2
	placeholderFirstLine  = 60
	placeholderLineHeight = 25
	placeholderMargin     = 20
)

// PlaceholderRenderer рисует PNG с диагностикой, когда ни одна техника не сработала.
// Первая строка всегда usecase.PlaceholderMarker.
type PlaceholderRenderer struct {
	width  int
	height int
}

func NewPlaceholderRenderer(width, height int) *PlaceholderRenderer {
	if width <= 0 {
		width = 800
	}
	if height <= 0 {
		height = 600
	}
	return &PlaceholderRenderer{width: width, height: height}
}

func (r *PlaceholderRenderer) Render(target port.CaptureTarget, failures []string) *port.CapturedImage {
	lines := PlaceholderLines(target, r.width, r.height, failures)

	canvas := image.NewRGBA(image.Rect(0, 0, r.width, r.height))
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{C: placeholderInk}, image.Point{}, draw.Src)
	inner := canvas.Bounds().Inset(placeholderBorder)
	draw.Draw(canvas, inner, &image.Uniform{C: placeholderBackground}, image.Point{}, draw.Src)

	face := basicfont.Face7x13
	d := &font.Drawer{Dst: canvas, Src: &image.Uniform{C: placeholderInk}, Face: face}
	maxChars := (r.width - 2*placeholderMargin) / face.Advance

	y := placeholderFirstLine
	for _, line := range lines {
		for _, part := range wrap(line, maxChars) {
			if y > r.height-placeholderMargin {
				break
			}
			// центрирование, как в исходной оболочке
			x := (r.width - len(part)*face.Advance) / 2
			d.Dot = fixed.P(x, y)
			d.DrawString(part)
			y += placeholderLineHeight
		}
	}

	data, err := encodePNG(canvas)
	if err != nil {
		return nil
	}
	return &port.CapturedImage{
		PNG:       data,
		Width:     r.width,
		Height:    r.height,
		Technique: usecase.TechniquePlaceholder,
		Notes:     lines,
	}
}

// PlaceholderLines: текст placeholder'а, он же сохраняется в Notes скриншота
func PlaceholderLines(target port.CaptureTarget, width, height int, failures []string) []string {
	at := target.At
	if at.IsZero() {
		at = time.Now()
	}
	failed := "none"
	if len(failures) > 0 {
		failed = strings.Join(failures, ", ")
	}

	return []string{
		usecase.PlaceholderMarker,
		"URL: " + target.DeviceURL,
		fmt.Sprintf("Size: %dx%d", width, height),
		fmt.Sprintf("Resolution: %s at %d%%", target.Connection.Resolution, int(math.Round(target.Zoom*100))),
		"Captured: " + at.UTC().Format(time.RFC3339),
		"Failed techniques: " + failed,
		"",
		"Note: the device page could not be captured directly.",
		"",
		"Try these alternatives:",
		"- Use the browser screenshot tool (Ctrl+Shift+S)",
		"- Open the DDC page in a new tab and capture it",
		"- Use a screen capture tool",
	}
}

// wrap режет строку по словам до limit символов (basicfont только ASCII ширины 7)
func wrap(line string, limit int) []string {
	if limit <= 0 || len(line) <= limit {
		return []string{line}
	}
	var out []string
	for len(line) > limit {
		cut := limit
		if line[limit] != ' ' {
			cut = strings.LastIndex(line[:limit], " ")
		}
		if cut <= 0 {
			cut = limit
		}
		out = append(out, line[:cut])
		line = strings.TrimLeft(line[cut:], " ")
	}
	return append(out, line)
}
