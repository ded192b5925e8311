package port

import (
	"context"
	"errors"
	"image"
	"time"

	"github.com/dreschagin/ddc-kiosk/internal/domain/entity"
)

var (
	// ErrNotSameOrigin: the embedded document cannot be read directly.
	ErrNotSameOrigin = errors.New("embedded document is not same-origin")
	// ErrPermissionDenied: the user (or policy) refused screen capture.
	ErrPermissionDenied = errors.New("screen capture permission denied")
	// ErrUnsupported: the technique is not available in this environment.
	ErrUnsupported = errors.New("capture technique unsupported")
)

// CaptureTarget describes what the user currently sees.
type CaptureTarget struct {
	Connection entity.ConnectionConfig
	// DeviceURL is the direct vendor UI address.
	DeviceURL string
	// ProxiedURL is the same-origin address through the kiosk proxy, empty when unavailable.
	ProxiedURL string
	// ShellURL is the kiosk page embedding the device iframe.
	ShellURL string
	Zoom     float64
	Width    int
	Height   int
	At       time.Time
}

// CapturedImage is a PNG produced by one technique.
type CapturedImage struct {
	PNG       []byte
	Width     int
	Height    int
	Technique string
	Notes     []string
}

// CaptureStrategy is one technique of the capture chain.
type CaptureStrategy interface {
	Name() string
	Attempt(ctx context.Context, target CaptureTarget) (*CapturedImage, error)
}

// PlaceholderRenderer synthesizes the fallback image. It must not fail.
type PlaceholderRenderer interface {
	Render(target CaptureTarget, failures []string) *CapturedImage
}

// MediaStream is an acquired screen-capture stream. Stop releases every track and is idempotent.
type MediaStream interface {
	GrabFrame(ctx context.Context) (image.Image, error)
	Stop()
}

// ScreenSource negotiates a MediaStream; Acquire may block on a user decision.
type ScreenSource interface {
	Acquire(ctx context.Context) (MediaStream, error)
}

// CaptureObserver receives per-technique outcomes (prometheus counters).
type CaptureObserver interface {
	ObserveAttempt(strategy string, success bool, duration time.Duration)
}
