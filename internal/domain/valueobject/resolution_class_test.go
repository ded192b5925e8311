package valueobject

import "testing"

func TestParseResolutionClass(t *testing.T) {
	tests := []struct {
		raw     string
		want    ResolutionClass
		wantErr bool
	}{
		{raw: "WVGA", want: WVGA},
		{raw: " qvga ", want: QVGA},
		{raw: "vga", wantErr: true},
		{raw: "", wantErr: true},
	}

	for _, tc := range tests {
		got, err := ParseResolutionClass(tc.raw)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("ParseResolutionClass(%q) expected error", tc.raw)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseResolutionClass(%q) error = %v", tc.raw, err)
		}
		if got != tc.want {
			t.Fatalf("ParseResolutionClass(%q) = %s, want %s", tc.raw, got, tc.want)
		}
	}
}

func TestResolutionClassGeometry(t *testing.T) {
	if w, h := WVGA.NominalSize(); w != 800 || h != 480 {
		t.Fatalf("WVGA nominal = %dx%d", w, h)
	}
	if w, h := QVGA.NominalSize(); w != 320 || h != 240 {
		t.Fatalf("QVGA nominal = %dx%d", w, h)
	}
	if w, h := QVGA.FrameSize(); w != 720 || h != 480 {
		t.Fatalf("QVGA frame = %dx%d", w, h)
	}
	if WVGA.CropOffset() != 0 || QVGA.CropOffset() != 85 {
		t.Fatalf("unexpected crop offsets: %d/%d", WVGA.CropOffset(), QVGA.CropOffset())
	}
	if WVGA.AutoFitPadding() != 40 || QVGA.AutoFitPadding() != 20 {
		t.Fatalf("unexpected paddings")
	}
}

func TestParseTransportScheme(t *testing.T) {
	if s, err := ParseTransportScheme(""); err != nil || s != HTTP {
		t.Fatalf("empty scheme = %q, %v", s, err)
	}
	if s, err := ParseTransportScheme("HTTPS"); err != nil || s != HTTPS {
		t.Fatalf("HTTPS scheme = %q, %v", s, err)
	}
	if _, err := ParseTransportScheme("ftp"); err == nil {
		t.Fatalf("expected error for ftp")
	}
}
