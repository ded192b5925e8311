package capture

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dreschagin/ddc-kiosk/internal/application/port"
	"github.com/dreschagin/ddc-kiosk/internal/application/usecase"
	"github.com/dreschagin/ddc-kiosk/internal/domain/entity"
	"github.com/dreschagin/ddc-kiosk/internal/domain/valueobject"
)

func solidPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = 0x10, 0x80, 0x10, 0xff
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	return buf.Bytes()
}

type fakeRenderer struct {
	png  []byte
	err  error
	reqs []RenderRequest
}

func (r *fakeRenderer) Render(_ context.Context, req RenderRequest) ([]byte, error) {
	r.reqs = append(r.reqs, req)
	if r.err != nil {
		return nil, r.err
	}
	return r.png, nil
}

func TestDirectReadStrategy(t *testing.T) {
	r := &fakeRenderer{png: solidPNG(t, 800, 480)}
	s := NewDirectReadStrategy(r, time.Second)

	if _, err := s.Attempt(context.Background(), port.CaptureTarget{DeviceURL: "http://10.0.0.1/ddcdialog.html"}); !errors.Is(err, port.ErrNotSameOrigin) {
		t.Fatalf("expected ErrNotSameOrigin without proxy url, got %v", err)
	}
	if len(r.reqs) != 0 {
		t.Fatalf("renderer must not be called without proxy url")
	}

	img, err := s.Attempt(context.Background(), port.CaptureTarget{
		ProxiedURL: "http://kiosk/proxy-ddc/http/10.0.0.1/ddcdialog.html",
		Width:      800,
		Height:     480,
	})
	if err != nil {
		t.Fatalf("Attempt() error = %v", err)
	}
	if img.Technique != usecase.StrategyDirectRead || img.Width != 800 || img.Height != 480 {
		t.Fatalf("unexpected image: %+v", img)
	}
	if r.reqs[0].URL != "http://kiosk/proxy-ddc/http/10.0.0.1/ddcdialog.html" || r.reqs[0].Selector != "" {
		t.Fatalf("unexpected render request: %+v", r.reqs[0])
	}
}

func TestDirectReadStrategy_InvalidImage(t *testing.T) {
	s := NewDirectReadStrategy(&fakeRenderer{png: []byte("not a png")}, 0)
	if _, err := s.Attempt(context.Background(), port.CaptureTarget{ProxiedURL: "http://kiosk/p"}); err == nil {
		t.Fatalf("expected error for invalid png")
	}
}

func TestContainerRenderStrategy(t *testing.T) {
	r := &fakeRenderer{png: solidPNG(t, 10, 10)}
	s := NewContainerRenderStrategy(r, time.Second)

	if _, err := s.Attempt(context.Background(), port.CaptureTarget{}); err == nil {
		t.Fatalf("expected error without shell url")
	}

	img, err := s.Attempt(context.Background(), port.CaptureTarget{ShellURL: "http://kiosk/?ip=10.0.0.1", Width: 320, Height: 240})
	if err != nil {
		t.Fatalf("Attempt() error = %v", err)
	}
	if img.Technique != usecase.StrategyContainerRender {
		t.Fatalf("unexpected technique: %s", img.Technique)
	}
	req := r.reqs[0]
	if req.Selector != "#ddcFrame" || req.Width != 400 || req.Height != 480 {
		t.Fatalf("unexpected render request: %+v", req)
	}

	failing := NewContainerRenderStrategy(&fakeRenderer{err: errors.New("chrome missing")}, 0)
	if _, err := failing.Attempt(context.Background(), port.CaptureTarget{ShellURL: "http://kiosk/"}); err == nil {
		t.Fatalf("expected renderer error")
	}
}

type fakeStream struct {
	stops int32
	frame image.Image
	err   error
}

func (s *fakeStream) GrabFrame(context.Context) (image.Image, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.frame, nil
}

func (s *fakeStream) Stop() { atomic.AddInt32(&s.stops, 1) }

type fakeSource struct {
	mu      sync.Mutex
	streams []*fakeStream
	delay   time.Duration
	err     error
	grabErr error
}

func (s *fakeSource) Acquire(ctx context.Context) (port.MediaStream, error) {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.err != nil {
		return nil, s.err
	}
	stream := &fakeStream{frame: image.NewRGBA(image.Rect(0, 0, 4, 4)), err: s.grabErr}
	s.mu.Lock()
	s.streams = append(s.streams, stream)
	s.mu.Unlock()
	return stream, nil
}

func (s *fakeSource) allStopped(want int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.streams) < want {
		return false
	}
	for _, st := range s.streams {
		if atomic.LoadInt32(&st.stops) == 0 {
			return false
		}
	}
	return true
}

func TestScreenShareStrategy_StopsStreamOnEveryPath(t *testing.T) {
	tests := []struct {
		name    string
		source  *fakeSource
		timeout time.Duration
		wantErr bool
	}{
		{name: "success", source: &fakeSource{}, timeout: time.Second},
		{name: "grab failure", source: &fakeSource{grabErr: errors.New("black frame")}, timeout: time.Second, wantErr: true},
		{name: "late grant", source: &fakeSource{delay: 20 * time.Millisecond}, timeout: 5 * time.Millisecond, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := NewScreenShareStrategy(tc.source, tc.timeout)
			for i := 0; i < 100; i++ {
				_, err := s.Attempt(context.Background(), port.CaptureTarget{})
				if (err != nil) != tc.wantErr {
					t.Fatalf("run %d: err = %v, wantErr %v", i, err, tc.wantErr)
				}
			}

			deadline := time.Now().Add(5 * time.Second)
			for !tc.source.allStopped(100) && time.Now().Before(deadline) {
				time.Sleep(10 * time.Millisecond)
			}
			if !tc.source.allStopped(100) {
				t.Fatalf("some streams were never stopped")
			}
		})
	}
}

func TestScreenShareStrategy_Denied(t *testing.T) {
	s := NewScreenShareStrategy(&fakeSource{err: port.ErrPermissionDenied}, time.Second)
	if _, err := s.Attempt(context.Background(), port.CaptureTarget{}); !errors.Is(err, port.ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}

	if _, err := NewScreenShareStrategy(nil, 0).Attempt(context.Background(), port.CaptureTarget{}); !errors.Is(err, port.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported without source, got %v", err)
	}
	if _, err := NewDisplaySource(false, 0).Acquire(context.Background()); !errors.Is(err, port.ErrPermissionDenied) {
		t.Fatalf("display source without consent must deny, got %v", err)
	}
}

func TestCanvasDrawStrategy(t *testing.T) {
	src := solidPNG(t, 160, 96)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/image.png" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(src)
	}))
	defer srv.Close()

	conn := entity.ConnectionConfig{
		Scheme:     valueobject.HTTP,
		Host:       strings.TrimPrefix(srv.URL, "http://"),
		Resolution: valueobject.WVGA,
	}
	s := NewCanvasDrawStrategy(srv.Client(), []string{"/image.jpg", "image.png"}, time.Second)

	img, err := s.Attempt(context.Background(), port.CaptureTarget{Connection: conn})
	if err != nil {
		t.Fatalf("Attempt() error = %v", err)
	}
	if img.Width != 800 || img.Height != 480 {
		t.Fatalf("expected nominal 800x480 canvas, got %dx%d", img.Width, img.Height)
	}
	decoded, err := png.Decode(bytes.NewReader(img.PNG))
	if err != nil {
		t.Fatalf("png.Decode() error = %v", err)
	}
	r, g, b, _ := decoded.At(400, 240).RGBA()
	if g>>8 < 0x70 || r>>8 > 0x20 || b>>8 > 0x20 {
		t.Fatalf("expected scaled device image at center, got %v", color.RGBA64{R: uint16(r), G: uint16(g), B: uint16(b)})
	}

	none := NewCanvasDrawStrategy(srv.Client(), []string{"/missing.jpg"}, time.Second)
	if _, err := none.Attempt(context.Background(), port.CaptureTarget{Connection: conn}); err == nil {
		t.Fatalf("expected error when no endpoint serves an image")
	}
	if _, err := NewCanvasDrawStrategy(nil, nil, 0).Attempt(context.Background(), port.CaptureTarget{Connection: conn}); !errors.Is(err, port.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported without paths, got %v", err)
	}
}

func TestPlaceholderRenderer(t *testing.T) {
	r := NewPlaceholderRenderer(0, 0)
	target := port.CaptureTarget{
		Connection: entity.ConnectionConfig{Scheme: valueobject.HTTP, Host: "10.0.0.1", Resolution: valueobject.QVGA},
		DeviceURL:  "http://10.0.0.1/ddcdialog.html?type=QVGA",
		Zoom:       1.5,
		At:         time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	img := r.Render(target, []string{usecase.StrategyDirectRead, usecase.StrategyScreenShare})
	if img == nil {
		t.Fatalf("Render() returned nil")
	}
	if img.Notes[0] != usecase.PlaceholderMarker {
		t.Fatalf("first line must be the marker, got %q", img.Notes[0])
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(img.PNG))
	if err != nil || cfg.Width != 800 || cfg.Height != 600 {
		t.Fatalf("unexpected png: %+v, %v", cfg, err)
	}

	joined := strings.Join(img.Notes, "\n")
	for _, want := range []string{"URL: http://10.0.0.1/ddcdialog.html?type=QVGA", "Size: 800x600", "QVGA at 150%", "direct-read, screen-share"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("placeholder text missing %q:\n%s", want, joined)
		}
	}
}

func TestWrap(t *testing.T) {
	tests := []struct {
		line  string
		limit int
		want  []string
	}{
		{line: "short", limit: 10, want: []string{"short"}},
		{line: "one two three", limit: 7, want: []string{"one two", "three"}},
		{line: "abcdefghij", limit: 4, want: []string{"abcd", "efgh", "ij"}},
		{line: "", limit: 4, want: []string{""}},
	}
	for _, tc := range tests {
		got := wrap(tc.line, tc.limit)
		if strings.Join(got, "|") != strings.Join(tc.want, "|") {
			t.Fatalf("wrap(%q, %d) = %q, want %q", tc.line, tc.limit, got, tc.want)
		}
	}
}
