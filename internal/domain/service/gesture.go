package service

import (
	"math"
	"time"
)

// DoubleTapWindow: максимальный интервал между касаниями двойного тапа
const DoubleTapWindow = 500 * time.Millisecond

// Point: координата касания
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Distance возвращает расстояние между двумя касаниями
func Distance(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// PinchTracker переводит жест двумя пальцами в zoom
type PinchTracker struct {
	initialDistance float64
	initialZoom     float64
	active          bool
}

// Start фиксирует начальное расстояние и zoom. Совпадающие точки жест не начинают.
func (p *PinchTracker) Start(a, b Point, zoom float64) bool {
	d := Distance(a, b)
	if d <= 0 || math.IsNaN(d) {
		p.active = false
		return false
	}
	p.initialDistance = d
	p.initialZoom = ClampZoom(zoom)
	p.active = true
	return true
}

// Move возвращает новый zoom = initialZoom × current/initial
func (p *PinchTracker) Move(a, b Point) (float64, bool) {
	if !p.active {
		return 0, false
	}
	d := Distance(a, b)
	if math.IsNaN(d) {
		return 0, false
	}
	return ClampZoom(p.initialZoom * (d / p.initialDistance)), true
}

func (p *PinchTracker) End() {
	p.active = false
	p.initialDistance = 0
	p.initialZoom = 0
}

func (p *PinchTracker) Active() bool {
	return p.active
}

// DoubleTapDetector распознает двойной тап одним пальцем
type DoubleTapDetector struct {
	lastTap time.Time
}

// Tap регистрирует касание и возвращает true, если это второй тап пары
func (d *DoubleTapDetector) Tap(at time.Time) bool {
	if !d.lastTap.IsZero() {
		gap := at.Sub(d.lastTap)
		if gap >= 0 && gap < DoubleTapWindow {
			d.lastTap = time.Time{}
			return true
		}
	}
	d.lastTap = at
	return false
}

// Inspector zoom used by the gallery image viewer.
const (
	InspectorZoomFactor = 1.2
	InspectorMinZoom    = 0.1
	InspectorMaxZoom    = 5.0
)

func InspectorZoomIn(zoom float64) float64 {
	return clampInspector(zoom * InspectorZoomFactor)
}

func InspectorZoomOut(zoom float64) float64 {
	return clampInspector(zoom / InspectorZoomFactor)
}

func clampInspector(zoom float64) float64 {
	if math.IsNaN(zoom) {
		return DefaultZoom
	}
	return math.Max(InspectorMinZoom, math.Min(InspectorMaxZoom, zoom))
}
