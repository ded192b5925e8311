package proxy

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	gatewaymetrics "github.com/dreschagin/ddc-kiosk/internal/gateway/metrics"
	"github.com/dreschagin/ddc-kiosk/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type staticAllowlist map[string]bool

func (a staticAllowlist) Allowed(_ context.Context, host string) bool { return a[host] }

func TestResolveTarget(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{raw: "/proxy-ddc/http/10.0.0.5:8080/ddcdialog.html?useOvl=1&type=WVGA", want: "http://10.0.0.5:8080/ddcdialog.html?useOvl=1&type=WVGA"},
		{raw: "/proxy-ddc/https/ddc.local", want: "https://ddc.local/"},
		{raw: "/proxy-ddc?url=" + url.QueryEscape("http://10.0.0.5/ddcdialog.html?type=QVGA&x=0"), want: "http://10.0.0.5/ddcdialog.html?type=QVGA&x=0"},
		{raw: "/proxy-ddc", wantErr: true},
		{raw: "/proxy-ddc/ftp/10.0.0.5/x", wantErr: true},
		{raw: "/proxy-ddc/http", wantErr: true},
		{raw: "/proxy-ddc?url=" + url.QueryEscape("javascript:alert(1)"), wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.raw, func(t *testing.T) {
			u, err := url.Parse(tc.raw)
			if err != nil {
				t.Fatalf("url.Parse() error = %v", err)
			}
			got, err := ResolveTarget(u)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %s", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveTarget() error = %v", err)
			}
			if got.String() != tc.want {
				t.Fatalf("ResolveTarget() = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestHandler_StripsFrameHeaders(t *testing.T) {
	var gotPath, gotCookie, gotAuth string
	device := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.RequestURI()
		gotCookie = r.Header.Get("Cookie")
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; frame-ancestors 'none'")
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html>panel</html>"))
	}))
	defer device.Close()

	host := strings.TrimPrefix(device.URL, "http://")
	h := NewHandler(staticAllowlist{host: true}, Config{StripCookies: []string{"kiosk_auth_token"}}, logger.New("error"), gatewaymetrics.New(prometheus.NewRegistry()))

	req := httptest.NewRequest(http.MethodGet, "/proxy-ddc/http/"+host+"/ddcdialog.html?type=WVGA", nil)
	req.Header.Set("Cookie", "kiosk_auth_token=secret; session=abc")
	req.Header.Set("Authorization", "Bearer secret")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK || rr.Body.String() != "<html>panel</html>" {
		t.Fatalf("unexpected response: %d %s", rr.Code, rr.Body.String())
	}
	if gotPath != "/ddcdialog.html?type=WVGA" {
		t.Fatalf("device saw path %q", gotPath)
	}
	if gotCookie != "session=abc" || gotAuth != "" {
		t.Fatalf("kiosk credentials leaked to device: cookie=%q auth=%q", gotCookie, gotAuth)
	}
	if rr.Header().Get("X-Frame-Options") != "" {
		t.Fatalf("X-Frame-Options must be stripped")
	}
	if csp := rr.Header().Get("Content-Security-Policy"); csp != "default-src 'self'" {
		t.Fatalf("unexpected CSP: %q", csp)
	}
	if rr.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("missing CORS header")
	}
}

func TestHandler_DeniedAndPreflight(t *testing.T) {
	m := gatewaymetrics.New(prometheus.NewRegistry())
	h := NewHandler(staticAllowlist{}, Config{}, logger.New("error"), m)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/proxy-ddc/http/10.9.9.9/ddcdialog.html", nil))
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for unknown host, got %d", rr.Code)
	}
	if testutil.ToFloat64(m.ProxyDenied) != 1 {
		t.Fatalf("denied request must be counted")
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodOptions, "/proxy-ddc/http/10.9.9.9/", nil))
	if rr.Code != http.StatusNoContent || rr.Header().Get("Access-Control-Allow-Methods") == "" {
		t.Fatalf("unexpected preflight response: %d %v", rr.Code, rr.Header())
	}
}

func TestHandler_OfflinePage(t *testing.T) {
	device := httptest.NewServer(http.NotFoundHandler())
	host := strings.TrimPrefix(device.URL, "http://")
	device.Close()

	h := NewHandler(staticAllowlist{host: true}, Config{}, logger.New("error"), nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/proxy-ddc/http/"+host+"/ddcdialog.html", nil))

	if rr.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "DDC4000 Device Offline") || !strings.Contains(rr.Body.String(), host) {
		t.Fatalf("unexpected offline page: %s", rr.Body.String())
	}
}

func TestRewriteLocation(t *testing.T) {
	upstream := &url.URL{Scheme: "http", Host: "10.0.0.5"}
	tests := []struct {
		loc  string
		want string
	}{
		{loc: "/ddcerror.html", want: "/proxy-ddc/http/10.0.0.5/ddcerror.html"},
		{loc: "http://10.0.0.5/ddcdialog.html?a=1", want: "/proxy-ddc/http/10.0.0.5/ddcdialog.html?a=1"},
		{loc: "http://other/x", want: "http://other/x"},
		{loc: "relative.html", want: "relative.html"},
	}
	for _, tc := range tests {
		if got := rewriteLocation(tc.loc, upstream); got != tc.want {
			t.Fatalf("rewriteLocation(%q) = %q, want %q", tc.loc, got, tc.want)
		}
	}
}

func TestServeScreenshot(t *testing.T) {
	device := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte("jpeg-bytes"))
	}))
	defer device.Close()
	host := strings.TrimPrefix(device.URL, "http://")

	h := NewHandler(staticAllowlist{host: true}, Config{}, logger.New("error"), nil)
	rr := httptest.NewRecorder()
	h.ServeScreenshot(rr, httptest.NewRequest(http.MethodGet, "/proxy-screenshot?url="+url.QueryEscape(device.URL+"/image.jpg"), nil))

	if rr.Code != http.StatusOK || rr.Body.String() != "jpeg-bytes" {
		t.Fatalf("unexpected response: %d %s", rr.Code, rr.Body.String())
	}
	if rr.Header().Get("Content-Type") != "image/jpeg" || rr.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("unexpected headers: %v", rr.Header())
	}
}
