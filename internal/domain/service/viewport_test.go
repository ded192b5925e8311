package service

import (
	"math"
	"testing"

	"github.com/dreschagin/ddc-kiosk/internal/domain/valueobject"
)

const eps = 1e-9

func TestComputeAutoFitScale_Scenario(t *testing.T) {
	scale, ok := ComputeAutoFitScale(valueobject.WVGA, 1000, 700, false)
	if !ok {
		t.Fatalf("expected ok")
	}
	if math.Abs(scale-1.2) > eps {
		t.Fatalf("scale = %v, want 1.2", scale)
	}
}

func TestComputeAutoFitScale_FitsAndIsMaximal(t *testing.T) {
	for _, rc := range valueobject.AllResolutionClasses() {
		nominalW, nominalH := rc.NominalSize()
		for _, mobile := range []bool{false, true} {
			padding := float64(rc.AutoFitPadding())
			if mobile {
				padding = 0
			}
			for w := 100.0; w <= 4000; w += 137 {
				for h := 100.0; h <= 3000; h += 91 {
					scale, ok := ComputeAutoFitScale(rc, w, h, mobile)
					if !ok {
						t.Fatalf("%s %vx%v mobile=%v: expected ok", rc, w, h, mobile)
					}
					if scale <= 0 || scale > MaxAutoFit {
						t.Fatalf("%s %vx%v: scale %v out of (0, 3]", rc, w, h, scale)
					}
					fitW := float64(nominalW) * scale
					fitH := float64(nominalH) * scale
					if fitW > w-padding+1e-6 || fitH > h-padding+1e-6 {
						t.Fatalf("%s %vx%v mobile=%v: %vx%v overflows", rc, w, h, mobile, fitW, fitH)
					}
					tight := math.Abs(fitW-(w-padding)) < 1e-6 || math.Abs(fitH-(h-padding)) < 1e-6
					if scale < MaxAutoFit && !tight {
						t.Fatalf("%s %vx%v mobile=%v: scale %v is not maximal", rc, w, h, mobile, scale)
					}
				}
			}
		}
	}
}

func TestComputeAutoFitScale_InvalidContainer(t *testing.T) {
	tests := []struct {
		name string
		w, h float64
	}{
		{name: "zero", w: 0, h: 0},
		{name: "negative", w: -10, h: 500},
		{name: "padding collapses", w: 30, h: 600},
		{name: "nan", w: math.NaN(), h: 600},
		{name: "inf", w: math.Inf(1), h: 600},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if scale, ok := ComputeAutoFitScale(valueobject.WVGA, tc.w, tc.h, false); ok {
				t.Fatalf("expected skip, got scale %v", scale)
			}
		})
	}
}

func TestComputeAutoFitScale_Idempotent(t *testing.T) {
	a, _ := ComputeAutoFitScale(valueobject.QVGA, 1280, 720, false)
	b, _ := ComputeAutoFitScale(valueobject.QVGA, 1280, 720, false)
	if a != b {
		t.Fatalf("auto-fit not idempotent: %v vs %v", a, b)
	}
}

func TestMobileFrameOrientation(t *testing.T) {
	// portrait: full width
	w, h := mobileFrame(valueobject.WVGA, 400, 800)
	if w != 400 || math.Abs(h-240) > eps {
		t.Fatalf("portrait frame = %vx%v", w, h)
	}
	// landscape, full height fits
	w, h = mobileFrame(valueobject.WVGA, 800, 360)
	if math.Abs(w-600) > eps || h != 360 {
		t.Fatalf("landscape frame = %vx%v", w, h)
	}
	// landscape constrained by width
	w, h = mobileFrame(valueobject.WVGA, 500, 400)
	if w != 500 || math.Abs(h-300) > eps {
		t.Fatalf("constrained frame = %vx%v", w, h)
	}
}

func TestClampZoom(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{in: 7.0, want: 5.0},
		{in: 0.01, want: 0.25},
		{in: -3, want: 0.25},
		{in: 1.75, want: 1.75},
		{in: math.NaN(), want: 1.0},
	}
	for _, tc := range tests {
		if got := ClampZoom(tc.in); got != tc.want {
			t.Fatalf("ClampZoom(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestZoomSteps(t *testing.T) {
	if got := ZoomIn(4.9); got != MaxZoom {
		t.Fatalf("ZoomIn(4.9) = %v", got)
	}
	if got := ZoomOut(0.3); got != MinZoom {
		t.Fatalf("ZoomOut(0.3) = %v", got)
	}
	if got := ZoomIn(1.0); got != 1.25 {
		t.Fatalf("ZoomIn(1.0) = %v", got)
	}
}

func TestApplyZoom_IdempotentAndLinearCrop(t *testing.T) {
	base := ApplyZoom(valueobject.QVGA, 1.0).CropOffsetX
	if base != 85 {
		t.Fatalf("crop at 1.0 = %v, want 85", base)
	}
	for z := 0.25; z <= 5.0; z += 0.05 {
		a := ApplyZoom(valueobject.QVGA, z)
		b := ApplyZoom(valueobject.QVGA, z)
		if a != b {
			t.Fatalf("ApplyZoom(%v) not idempotent", z)
		}
		if math.Abs(a.CropOffsetX-base*a.Zoom) > 1e-9 {
			t.Fatalf("crop at %v = %v, want %v", z, a.CropOffsetX, base*a.Zoom)
		}
		if a.ClipInsetLeft != 85 || a.TranslateX != -85 {
			t.Fatalf("unexpected QVGA clip: %+v", a)
		}
	}

	wvga := ApplyZoom(valueobject.WVGA, 7)
	if wvga.Zoom != 5 || wvga.CropOffsetX != 0 || wvga.ClipInsetLeft != 0 {
		t.Fatalf("unexpected WVGA transform: %+v", wvga)
	}
	if wvga.CSS() != "scale(5)" {
		t.Fatalf("CSS() = %s", wvga.CSS())
	}
	if css := ApplyZoom(valueobject.QVGA, 1.5).CSS(); css != "scale(1.5) translateX(-85px)" {
		t.Fatalf("QVGA CSS() = %s", css)
	}
}

func TestViewportState_SwitchResolutionDoesNotLeakCrop(t *testing.T) {
	s := NewViewportState(valueobject.QVGA).WithZoom(2)
	if s.Transform().CropOffsetX != 170 {
		t.Fatalf("QVGA crop = %v", s.Transform().CropOffsetX)
	}
	s = s.SetResolution(valueobject.WVGA)
	tr := s.Transform()
	if tr.CropOffsetX != 0 || tr.ClipInsetLeft != 0 || tr.TranslateX != 0 {
		t.Fatalf("crop leaked into WVGA: %+v", tr)
	}
}

func TestViewportState_AutoFitSkipsCollapsedContainer(t *testing.T) {
	s := NewViewportState(valueobject.WVGA).WithZoom(1.5).Resize(0, 0, 1920, 1080)
	next, ok := s.AutoFit()
	if ok || next.Zoom != 1.5 {
		t.Fatalf("expected unchanged state, got ok=%v zoom=%v", ok, next.Zoom)
	}

	next, ok = s.Resize(1000, 700, 1920, 1080).AutoFit()
	if !ok || math.Abs(next.Zoom-1.2) > eps {
		t.Fatalf("AutoFit() = %v, %v", next.Zoom, ok)
	}
}

func TestViewportState_MobileAutoFit(t *testing.T) {
	s := NewViewportState(valueobject.WVGA).WithZoom(2).Resize(400, 800, 400, 800)
	if !s.Mobile() {
		t.Fatalf("expected mobile layout")
	}
	next, ok := s.AutoFit()
	if !ok || next.Zoom != 1.0 {
		t.Fatalf("mobile AutoFit() = %v, %v", next.Zoom, ok)
	}
	tr := next.Transform()
	if math.Abs(tr.Scale-0.5) > eps || tr.CropOffsetX != 0 || tr.CSS() != "none" {
		t.Fatalf("unexpected mobile transform: %+v", tr)
	}
}

func TestViewportState_FullscreenAutoFits(t *testing.T) {
	s := NewViewportState(valueobject.WVGA).Resize(1000, 700, 1920, 1080).SetFullscreen(true)
	if !s.Fullscreen || math.Abs(s.Zoom-1.2) > eps {
		t.Fatalf("unexpected fullscreen state: %+v", s)
	}
}
