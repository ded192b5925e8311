package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

type recordedRequest struct {
	Method string
	Path   string
	Auth   string
	Body   map[string]interface{}
}

// fakeKiosk: минимальный kioskd для проверки команд
type fakeKiosk struct {
	mu       sync.Mutex
	requests []recordedRequest
	routes   map[string]func(w http.ResponseWriter)
}

func newFakeKiosk(t *testing.T) (*fakeKiosk, *httptest.Server) {
	t.Helper()
	f := &fakeKiosk{routes: map[string]func(w http.ResponseWriter){}}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		rec := recordedRequest{Method: r.Method, Path: r.URL.Path, Auth: r.Header.Get("Authorization")}
		if len(raw) > 0 {
			_ = json.Unmarshal(raw, &rec.Body)
		}
		f.mu.Lock()
		f.requests = append(f.requests, rec)
		handler, ok := f.routes[r.Method+" "+r.URL.Path]
		f.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"not found"}`))
			return
		}
		handler(w)
	}))
	t.Cleanup(server.Close)
	return f, server
}

func (f *fakeKiosk) on(route string, status int, body string) {
	f.routes[route] = func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func (f *fakeKiosk) last() recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestFitAndZoomAreLocal(t *testing.T) {
	out, err := run(t, "fit", "--resolution", "WVGA", "--container", "1280x800", "--server", "http://127.0.0.1:1")
	if err != nil {
		t.Fatalf("fit error = %v", err)
	}
	if !strings.Contains(out, "%") || !strings.Contains(out, "800x480") {
		t.Fatalf("unexpected fit output:\n%s", out)
	}

	out, err = run(t, "zoom", "--resolution", "QVGA", "--zoom", "2", "--container", "1280x1024", "--json")
	if err != nil {
		t.Fatalf("zoom error = %v", err)
	}
	var snap struct {
		Transform struct {
			Percent int `json:"percent"`
		} `json:"transform"`
	}
	if err := json.Unmarshal([]byte(out), &snap); err != nil {
		t.Fatalf("zoom --json must print JSON: %v\n%s", err, out)
	}
	if snap.Transform.Percent != 200 {
		t.Fatalf("expected 200%%, got %d", snap.Transform.Percent)
	}
}

func TestFitRejectsBadSize(t *testing.T) {
	if _, err := run(t, "fit", "--container", "wide"); err == nil {
		t.Fatalf("expected error for malformed container size")
	}
}

func TestURLCommand(t *testing.T) {
	out, err := run(t, "url", "--ip", "192.168.10.21", "--resolution", "QVGA", "--shell-scheme", "https", "--json")
	if err != nil {
		t.Fatalf("url error = %v", err)
	}
	var u struct {
		Target  string `json:"originalUrl"`
		URL     string `json:"url"`
		Proxied bool   `json:"proxied"`
	}
	if err := json.Unmarshal([]byte(out), &u); err != nil {
		t.Fatalf("decode url output: %v\n%s", err, out)
	}
	if !strings.HasPrefix(u.Target, "http://192.168.10.21/") || !strings.Contains(u.Target, "type=QVGA") {
		t.Fatalf("unexpected target %q", u.Target)
	}
	if !u.Proxied || !strings.HasPrefix(u.URL, "/proxy-ddc") {
		t.Fatalf("http device behind https shell must be proxied, got %+v", u)
	}

	if _, err := run(t, "url", "--ip", "bad host!"); err == nil {
		t.Fatalf("expected validation error for invalid host")
	}
}

func TestPresetsCommands(t *testing.T) {
	fake, server := newFakeKiosk(t)
	fake.on("GET /api/v1/presets", http.StatusOK, `{"presets":[{"name":"Boiler","protocol":"http","ip":"10.0.0.5","resolution":"QVGA"}],"autoload":"Boiler"}`)
	fake.on("POST /api/v1/presets", http.StatusConflict, `{"error":"preset already exists"}`)
	fake.on("PUT /api/v1/presets/autoload", http.StatusOK, `{"success":true}`)
	fake.on("DELETE /api/v1/presets/Boiler Room", http.StatusOK, `{"success":true}`)

	out, err := run(t, "presets", "list", "--server", server.URL, "--token", "secret")
	if err != nil {
		t.Fatalf("presets list error = %v", err)
	}
	if !strings.Contains(out, "Boiler") || !strings.Contains(out, "10.0.0.5") {
		t.Fatalf("unexpected list output:\n%s", out)
	}
	if got := fake.last().Auth; got != "Bearer secret" {
		t.Fatalf("expected bearer token, got %q", got)
	}

	_, err = run(t, "presets", "save", "Boiler", "--ip", "10.0.0.5", "--server", server.URL)
	if err == nil || !strings.Contains(err.Error(), "--overwrite") {
		t.Fatalf("expected overwrite hint on conflict, got %v", err)
	}
	if body := fake.last().Body; body["name"] != "Boiler" || body["ip"] != "10.0.0.5" || body["overwrite"] != false {
		t.Fatalf("unexpected save body %+v", body)
	}

	if _, err := run(t, "presets", "autoload", "--server", server.URL); err != nil {
		t.Fatalf("autoload clear error = %v", err)
	}
	if body := fake.last().Body; body["name"] != "" {
		t.Fatalf("autoload without name must clear, got %+v", body)
	}

	if _, err := run(t, "presets", "delete", "Boiler Room", "--server", server.URL); err != nil {
		t.Fatalf("delete error = %v", err)
	}
}

func TestCaptureUsesLastConnectionWithoutIP(t *testing.T) {
	fake, server := newFakeKiosk(t)
	fake.on("POST /api/v1/capture", http.StatusCreated, `{
		"screenshot":{"id":"1718000000000","technique":"placeholder","description":"10.0.0.5 · QVGA · 100%","width":320,"height":240},
		"fallback":true,
		"failures":[{"strategy":"direct-read","error":"cross-origin"}],
		"evicted":0}`)

	out, err := run(t, "capture", "--server", server.URL)
	if err != nil {
		t.Fatalf("capture error = %v", err)
	}
	body := fake.last().Body
	if _, ok := body["ip"]; ok {
		t.Fatalf("capture without --ip must not send ip, got %+v", body)
	}
	if !strings.Contains(out, "1718000000000") || !strings.Contains(out, "direct-read failed: cross-origin") {
		t.Fatalf("unexpected capture output:\n%s", out)
	}
}

func TestConnectCommand(t *testing.T) {
	fake, server := newFakeKiosk(t)
	fake.on("POST /api/v1/connection/connect", http.StatusOK, `{"state":"connected","message":"device reachable","url":{"url":"http://10.0.0.5/ddcdialog.html"}}`)

	out, err := run(t, "connect", "--ip", "10.0.0.5", "--resolution", "QVGA", "--skip-probe", "--server", server.URL)
	if err != nil {
		t.Fatalf("connect error = %v", err)
	}
	body := fake.last().Body
	if body["ip"] != "10.0.0.5" || body["resolution"] != "QVGA" || body["skipProbe"] != true {
		t.Fatalf("unexpected connect body %+v", body)
	}
	if !strings.Contains(out, "connected") || !strings.Contains(out, "device reachable") {
		t.Fatalf("unexpected connect output:\n%s", out)
	}

	if _, err := run(t, "connect", "--server", server.URL); err == nil {
		t.Fatalf("expected error without --ip")
	}
}

func TestViewportCommand(t *testing.T) {
	fake, server := newFakeKiosk(t)
	fake.on("POST /api/v1/viewport/sessions/shell-1/auto-fit", http.StatusOK, `{"sessionId":"shell-1","transform":{"percent":150},"applied":false}`)

	out, err := run(t, "viewport", "shell-1", "auto-fit", "--container", "1280x800", "--server", server.URL)
	if err != nil {
		t.Fatalf("viewport error = %v", err)
	}
	body := fake.last().Body
	if body["containerWidth"] != float64(1280) || body["viewportHeight"] != float64(800) {
		t.Fatalf("viewport must default to container size, got %+v", body)
	}
	if !strings.Contains(out, "150%") || !strings.Contains(out, "auto-fit not applied") {
		t.Fatalf("unexpected viewport output:\n%s", out)
	}

	if _, err := run(t, "viewport", "shell-1", "--server", server.URL); err == nil {
		t.Fatalf("expected error without action argument")
	}
}

func TestGalleryCommands(t *testing.T) {
	fake, server := newFakeKiosk(t)
	fake.on("GET /api/v1/gallery", http.StatusOK, `{"items":[{"id":"2","timestamp":"2024-06-10T10:00:00Z","device":"10.0.0.5","technique":"direct-read","description":"b"}],"count":1,"maxItems":50}`)
	fake.on("DELETE /api/v1/gallery", http.StatusOK, `{"success":true,"removed":4}`)
	fake.routes["GET /api/v1/gallery/2/download"] = func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Content-Disposition", `attachment; filename="ddc4000-2.png"`)
		_, _ = w.Write([]byte("\x89PNG"))
	}

	out, err := run(t, "gallery", "list", "--server", server.URL)
	if err != nil {
		t.Fatalf("gallery list error = %v", err)
	}
	if !strings.Contains(out, "1 / 50") {
		t.Fatalf("expected count footer, got:\n%s", out)
	}

	out, err = run(t, "gallery", "clear", "--server", server.URL)
	if err != nil || !strings.Contains(out, "Removed 4") {
		t.Fatalf("gallery clear: %v\n%s", err, out)
	}

	target := filepath.Join(t.TempDir(), "shot.png")
	if _, err := run(t, "gallery", "download", "2", "-o", target, "--server", server.URL); err != nil {
		t.Fatalf("download error = %v", err)
	}
	raw, err := os.ReadFile(target)
	if err != nil || string(raw) != "\x89PNG" {
		t.Fatalf("unexpected download %q, %v", raw, err)
	}

	if _, err := run(t, "gallery", "delete", "missing", "--server", server.URL); err == nil || !strings.Contains(err.Error(), "404") {
		t.Fatalf("expected 404 error, got %v", err)
	}
}

func TestQRCommand(t *testing.T) {
	out, err := run(t, "qr", "--ip", "192.168.10.21", "--autoload", "--server", "https://kiosk.local")
	if err != nil {
		t.Fatalf("qr error = %v", err)
	}
	if !strings.Contains(out, "https://kiosk.local/?autoload=true&ip=192.168.10.21") {
		t.Fatalf("expected deep link in output:\n%s", out)
	}

	target := filepath.Join(t.TempDir(), "qr.png")
	if _, err := run(t, "qr", "--png", target, "--size", "128"); err != nil {
		t.Fatalf("qr --png error = %v", err)
	}
	raw, err := os.ReadFile(target)
	if err != nil || !bytes.HasPrefix(raw, []byte("\x89PNG")) {
		t.Fatalf("expected PNG file, got %v", err)
	}
}

func TestFilenameFromDisposition(t *testing.T) {
	tests := map[string]string{
		`attachment; filename="a.png"`: "a.png",
		`attachment; filename=b.png`:   "b.png",
		`inline`:                       "",
	}
	for header, want := range tests {
		if got := filenameFromDisposition(header); got != want {
			t.Fatalf("filenameFromDisposition(%q) = %q, want %q", header, got, want)
		}
	}
}
