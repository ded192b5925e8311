package service

import (
	"fmt"
	"math"
	"strconv"

	"github.com/dreschagin/ddc-kiosk/internal/domain/valueobject"
)

const (
	MinZoom      = 0.25
	MaxZoom      = 5.0
	ZoomStep     = 0.25
	DefaultZoom  = 1.0
	MaxAutoFit   = 3.0
	MobileLayout = 768
)

// Transform: итоговая геометрия iframe для текущего zoom (Value Object)
type Transform struct {
	Zoom            float64 `json:"zoom"`
	Scale           float64 `json:"scale"`
	TranslateX      float64 `json:"translateX"`
	CropOffsetX     float64 `json:"cropOffsetX"`
	ClipInsetLeft   float64 `json:"clipInsetLeft"`
	FrameWidth      float64 `json:"frameWidth"`
	FrameHeight     float64 `json:"frameHeight"`
	TransformOrigin string  `json:"transformOrigin"`
	Mobile          bool    `json:"mobile"`
	Percent         int     `json:"percent"`
}

// CSS возвращает значение CSS свойства transform
func (t Transform) CSS() string {
	if t.Mobile {
		return "none"
	}
	css := "scale(" + strconv.FormatFloat(t.Scale, 'f', -1, 64) + ")"
	if t.TranslateX != 0 {
		css += fmt.Sprintf(" translateX(%gpx)", t.TranslateX)
	}
	return css
}

// ClampZoom приводит zoom к [MinZoom, MaxZoom]; NaN превращается в DefaultZoom
func ClampZoom(zoom float64) float64 {
	if math.IsNaN(zoom) {
		return DefaultZoom
	}
	return math.Max(MinZoom, math.Min(MaxZoom, zoom))
}

// ZoomIn увеличивает zoom на ZoomStep
func ZoomIn(zoom float64) float64 {
	return ClampZoom(zoom + ZoomStep)
}

// ZoomOut уменьшает zoom на ZoomStep
func ZoomOut(zoom float64) float64 {
	return ClampZoom(zoom - ZoomStep)
}

// IsMobileLayout: мобильная раскладка, если меньшая сторона окна <= 768.
// Неизвестный размер окна считается desktop.
func IsMobileLayout(viewportWidth, viewportHeight float64) bool {
	if viewportWidth <= 0 || viewportHeight <= 0 {
		return false
	}
	return math.Min(viewportWidth, viewportHeight) <= MobileLayout
}

// ComputeAutoFitScale вычисляет максимальный масштаб (<= 3.0), при котором номинальный
// размер интерфейса помещается в контейнер. ok=false, если контейнер схлопнут
// или размеры невалидны: вызывающий должен оставить прежнее состояние.
func ComputeAutoFitScale(rc valueobject.ResolutionClass, containerWidth, containerHeight float64, mobile bool) (float64, bool) {
	if !validDimension(containerWidth) || !validDimension(containerHeight) {
		return 0, false
	}

	nominalW, nominalH := rc.NominalSize()

	if mobile {
		frameW, frameH := mobileFrame(rc, containerWidth, containerHeight)
		scale := math.Min(math.Min(frameW/float64(nominalW), frameH/float64(nominalH)), MaxAutoFit)
		return scale, scale > 0
	}

	padding := float64(rc.AutoFitPadding())
	w := containerWidth - padding
	h := containerHeight - padding
	if w <= 0 || h <= 0 {
		return 0, false
	}

	scale := math.Min(math.Min(w/float64(nominalW), h/float64(nominalH)), MaxAutoFit)
	return scale, true
}

// mobileFrame рассчитывает размер iframe в мобильной раскладке.
// Portrait: по ширине. Landscape: вся высота, если при этом ширина помещается.
func mobileFrame(rc valueobject.ResolutionClass, containerWidth, containerHeight float64) (float64, float64) {
	ratio := rc.AspectRatio()

	if containerHeight > containerWidth {
		return containerWidth, math.Min(containerWidth*ratio, containerHeight)
	}

	heightBasedWidth := containerHeight / ratio
	if heightBasedWidth <= containerWidth {
		return heightBasedWidth, containerHeight
	}
	return containerWidth, containerWidth * ratio
}

// ApplyZoom строит desktop-трансформацию для zoom. Для QVGA добавляется сдвиг и
// обрезка боковой панели; видимый сдвиг пропорционален zoom.
func ApplyZoom(rc valueobject.ResolutionClass, zoom float64) Transform {
	z := ClampZoom(zoom)
	frameW, frameH := rc.FrameSize()
	crop := float64(rc.CropOffset())

	t := Transform{
		Zoom:            z,
		Scale:           z,
		FrameWidth:      float64(frameW),
		FrameHeight:     float64(frameH),
		TransformOrigin: "center center",
		Percent:         int(math.Round(z * 100)),
	}
	if crop > 0 {
		t.TranslateX = -crop
		t.CropOffsetX = crop * z
		t.ClipInsetLeft = crop
	}
	return t
}

// applyMobileZoom: iframe подгоняется под контейнер, zoom умножается на базовый масштаб,
// обрезка не применяется.
func applyMobileZoom(rc valueobject.ResolutionClass, zoom, containerWidth, containerHeight float64) Transform {
	z := ClampZoom(zoom)
	base := DefaultZoom
	frameW, frameH := rc.FrameSize()
	fw, fh := float64(frameW), float64(frameH)

	if s, ok := ComputeAutoFitScale(rc, containerWidth, containerHeight, true); ok {
		base = s
		fw, fh = mobileFrame(rc, containerWidth, containerHeight)
	}

	return Transform{
		Zoom:            z,
		Scale:           base * z,
		FrameWidth:      fw,
		FrameHeight:     fh,
		TransformOrigin: "top left",
		Mobile:          true,
		Percent:         int(math.Round(z * 100)),
	}
}

func validDimension(v float64) bool {
	return v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}

// ViewportState: состояние окна просмотра. Все методы возвращают новое значение.
type ViewportState struct {
	Zoom            float64                     `json:"zoom"`
	Resolution      valueobject.ResolutionClass `json:"resolution"`
	ContainerWidth  float64                     `json:"containerWidth"`
	ContainerHeight float64                     `json:"containerHeight"`
	ViewportWidth   float64                     `json:"viewportWidth"`
	ViewportHeight  float64                     `json:"viewportHeight"`
	Fullscreen      bool                        `json:"fullscreen"`
}

// NewViewportState создает состояние с zoom 1.0
func NewViewportState(rc valueobject.ResolutionClass) ViewportState {
	if rc.Validate() != nil {
		rc = valueobject.WVGA
	}
	return ViewportState{Zoom: DefaultZoom, Resolution: rc}
}

func (s ViewportState) Mobile() bool {
	return IsMobileLayout(s.ViewportWidth, s.ViewportHeight)
}

func (s ViewportState) WithZoom(zoom float64) ViewportState {
	s.Zoom = ClampZoom(zoom)
	return s
}

func (s ViewportState) ZoomIn() ViewportState {
	return s.WithZoom(ZoomIn(s.Zoom))
}

func (s ViewportState) ZoomOut() ViewportState {
	return s.WithZoom(ZoomOut(s.Zoom))
}

func (s ViewportState) ResetZoom() ViewportState {
	return s.WithZoom(DefaultZoom)
}

// Resize сохраняет новые размеры контейнера и окна
func (s ViewportState) Resize(containerWidth, containerHeight, viewportWidth, viewportHeight float64) ViewportState {
	s.ContainerWidth = containerWidth
	s.ContainerHeight = containerHeight
	s.ViewportWidth = viewportWidth
	s.ViewportHeight = viewportHeight
	return s
}

// SetResolution меняет класс разрешения; zoom сохраняется, а сдвиг пересчитывается
// из нового класса в Transform.
func (s ViewportState) SetResolution(rc valueobject.ResolutionClass) ViewportState {
	if rc.Validate() == nil {
		s.Resolution = rc
	}
	return s
}

// SetFullscreen: вход в fullscreen сразу делает auto-fit
func (s ViewportState) SetFullscreen(on bool) ViewportState {
	s.Fullscreen = on
	if on {
		s, _ = s.AutoFit()
	}
	return s
}

// AutoFit подбирает zoom под контейнер. На мобильной раскладке базовый масштаб уже
// учитывается в Transform, поэтому zoom сбрасывается в 1.0.
func (s ViewportState) AutoFit() (ViewportState, bool) {
	if s.Mobile() {
		if _, ok := ComputeAutoFitScale(s.Resolution, s.ContainerWidth, s.ContainerHeight, true); !ok {
			return s, false
		}
		return s.ResetZoom(), true
	}

	scale, ok := ComputeAutoFitScale(s.Resolution, s.ContainerWidth, s.ContainerHeight, false)
	if !ok {
		return s, false
	}
	return s.WithZoom(scale), true
}

// Transform возвращает геометрию для текущего состояния
func (s ViewportState) Transform() Transform {
	if s.Mobile() {
		return applyMobileZoom(s.Resolution, s.Zoom, s.ContainerWidth, s.ContainerHeight)
	}
	return ApplyZoom(s.Resolution, s.Zoom)
}
