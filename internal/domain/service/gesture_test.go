package service

import (
	"math"
	"testing"
	"time"
)

func TestPinchTracker(t *testing.T) {
	var p PinchTracker

	if p.Start(Point{X: 10, Y: 10}, Point{X: 10, Y: 10}, 1) {
		t.Fatalf("zero distance must not start a pinch")
	}
	if _, ok := p.Move(Point{}, Point{X: 1}); ok {
		t.Fatalf("move without start must be ignored")
	}

	if !p.Start(Point{X: 0, Y: 0}, Point{X: 100, Y: 0}, 1.5) {
		t.Fatalf("expected pinch start")
	}
	zoom, ok := p.Move(Point{X: 0, Y: 0}, Point{X: 200, Y: 0})
	if !ok || math.Abs(zoom-3.0) > 1e-9 {
		t.Fatalf("Move() = %v, %v", zoom, ok)
	}
	zoom, _ = p.Move(Point{X: 0, Y: 0}, Point{X: 1000, Y: 0})
	if zoom != MaxZoom {
		t.Fatalf("expected clamp to %v, got %v", MaxZoom, zoom)
	}
	zoom, _ = p.Move(Point{X: 0, Y: 0}, Point{X: 1, Y: 0})
	if zoom != MinZoom {
		t.Fatalf("expected clamp to %v, got %v", MinZoom, zoom)
	}

	p.End()
	if p.Active() {
		t.Fatalf("expected inactive after End")
	}
}

func TestDoubleTapDetector(t *testing.T) {
	var d DoubleTapDetector
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	if d.Tap(t0) {
		t.Fatalf("first tap must not trigger")
	}
	if !d.Tap(t0.Add(300 * time.Millisecond)) {
		t.Fatalf("second tap within window must trigger")
	}
	if d.Tap(t0.Add(400 * time.Millisecond)) {
		t.Fatalf("third tap starts a new pair")
	}
	if d.Tap(t0.Add(400*time.Millisecond + DoubleTapWindow)) {
		t.Fatalf("tap after window must not trigger")
	}
}

func TestInspectorZoom(t *testing.T) {
	if got := InspectorZoomIn(1); math.Abs(got-1.2) > 1e-9 {
		t.Fatalf("InspectorZoomIn(1) = %v", got)
	}
	if got := InspectorZoomIn(4.9); got != InspectorMaxZoom {
		t.Fatalf("InspectorZoomIn(4.9) = %v", got)
	}
	if got := InspectorZoomOut(0.11); got != InspectorMinZoom {
		t.Fatalf("InspectorZoomOut(0.11) = %v", got)
	}
}
