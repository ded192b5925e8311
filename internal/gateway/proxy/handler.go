package proxy

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"

	"github.com/dreschagin/ddc-kiosk/internal/domain/service"
	gatewaymetrics "github.com/dreschagin/ddc-kiosk/internal/gateway/metrics"
	"github.com/dreschagin/ddc-kiosk/pkg/logger"
	"github.com/samber/lo"
)

var (
	ErrBadTarget  = errors.New("invalid proxy target")
	ErrNotAllowed = errors.New("proxy target is not a known device")
)

const maxScreenshotSize = 16 << 20

// Allowlist решает, можно ли проксировать запрос к host (host[:port])
type Allowlist interface {
	Allowed(ctx context.Context, host string) bool
}

type Config struct {
	Timeout time.Duration
	// StripCookies: cookie киоска, которые не должны уходить на устройство
	StripCookies []string
}

// Handler проксирует страницу устройства так, чтобы ее можно было встроить в iframe оболочки.
type Handler struct {
	allow     Allowlist
	config    Config
	transport http.RoundTripper
	logger    *logger.Logger
	metrics   *gatewaymetrics.Metrics
}

func NewHandler(allow Allowlist, cfg Config, log *logger.Logger, metrics *gatewaymetrics.Metrics) *Handler {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Handler{
		allow:  allow,
		config: cfg,
		transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           (&net.Dialer{Timeout: cfg.Timeout, KeepAlive: 30 * time.Second}).DialContext,
			MaxIdleConns:          32,
			MaxIdleConnsPerHost:   8,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   5 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
			ResponseHeaderTimeout: cfg.Timeout,
		},
		logger:  log,
		metrics: metrics,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeCORS(w.Header())
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodPost && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	target, err := ResolveTarget(r.URL)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !h.allowed(r.Context(), target.Host) {
		h.logger.Warn("Proxy target denied", "host", target.Host, "remote_addr", r.RemoteAddr)
		http.Error(w, ErrNotAllowed.Error(), http.StatusForbidden)
		return
	}

	upstream := &url.URL{Scheme: target.Scheme, Host: target.Host}
	proxy := httputil.NewSingleHostReverseProxy(upstream)
	proxy.Transport = h.transport

	originalDirector := proxy.Director
	proxy.Director = func(req *http.Request) {
		originalDirector(req)
		req.URL.Path = target.Path
		req.URL.RawPath = target.RawPath
		req.URL.RawQuery = target.RawQuery
		req.Host = upstream.Host
		req.Header.Del("Authorization")
		req.Header.Del("Origin")
		h.stripCookies(req)
	}

	proxy.ModifyResponse = func(resp *http.Response) error {
		rewriteFrameHeaders(resp.Header)
		if loc := resp.Header.Get("Location"); loc != "" {
			resp.Header.Set("Location", rewriteLocation(loc, upstream))
		}
		return nil
	}

	proxy.ErrorHandler = func(rw http.ResponseWriter, req *http.Request, err error) {
		h.upstreamError(target.Host)
		h.logger.Warn("Device proxy request failed",
			"error", err.Error(),
			"path", req.URL.Path,
			"upstream", upstream.String(),
		)
		writeOfflinePage(rw, target.Host)
	}

	proxy.ServeHTTP(w, r)
}

// ServeScreenshot отдает картинку с устройства с CORS заголовками (/proxy-screenshot?url=)
func (h *Handler) ServeScreenshot(w http.ResponseWriter, r *http.Request) {
	writeCORS(w.Header())
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	target, err := parseAbsolute(r.URL.Query().Get("url"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !h.allowed(r.Context(), target.Host) {
		http.Error(w, ErrNotAllowed.Error(), http.StatusForbidden)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		http.Error(w, "Proxy fetch failed", http.StatusInternalServerError)
		return
	}
	resp, err := h.transport.RoundTrip(req)
	if err != nil {
		h.upstreamError(target.Host)
		h.logger.Warn("Screenshot proxy fetch failed", "error", err.Error(), "host", target.Host)
		http.Error(w, "Proxy fetch failed", http.StatusInternalServerError)
		return
	}
	defer resp.Body.Close()

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(resp.StatusCode)
	_, _ = io.Copy(w, io.LimitReader(resp.Body, maxScreenshotSize))
}

func (h *Handler) allowed(ctx context.Context, host string) bool {
	if h.allow != nil && h.allow.Allowed(ctx, host) {
		return true
	}
	if h.metrics != nil {
		h.metrics.ProxyDenied.Inc()
	}
	return false
}

func (h *Handler) upstreamError(host string) {
	if h.metrics != nil {
		h.metrics.UpstreamErrors.WithLabelValues(host).Inc()
	}
}

func (h *Handler) stripCookies(req *http.Request) {
	if len(h.config.StripCookies) == 0 || req.Header.Get("Cookie") == "" {
		return
	}
	kept := make([]string, 0)
	for _, c := range req.Cookies() {
		if lo.Contains(h.config.StripCookies, c.Name) {
			continue
		}
		kept = append(kept, c.String())
	}
	req.Header.Del("Cookie")
	if len(kept) > 0 {
		req.Header.Set("Cookie", strings.Join(kept, "; "))
	}
}

// ResolveTarget разбирает обе формы адреса:
// /proxy-ddc?url=<absolute> и /proxy-ddc/{scheme}/{host}/{path...}?{query}
func ResolveTarget(u *url.URL) (*url.URL, error) {
	rest := strings.TrimPrefix(u.EscapedPath(), service.ProxyPathPrefix)
	if rest == "" || rest == "/" {
		return parseAbsolute(u.Query().Get("url"))
	}

	parts := strings.SplitN(strings.TrimPrefix(rest, "/"), "/", 3)
	if len(parts) < 2 {
		return nil, fmt.Errorf("%w: %s", ErrBadTarget, u.Path)
	}
	path := "/"
	if len(parts) == 3 {
		path += parts[2]
	}

	raw := parts[0] + "://" + parts[1] + path
	if u.RawQuery != "" {
		raw += "?" + u.RawQuery
	}
	return parseAbsolute(raw)
}

func parseAbsolute(raw string) (*url.URL, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("%w: url is required", ErrBadTarget)
	}
	target, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadTarget, err)
	}
	if target.Scheme != "http" && target.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrBadTarget, target.Scheme)
	}
	if target.Host == "" || target.User != nil {
		return nil, fmt.Errorf("%w: %s", ErrBadTarget, raw)
	}
	if target.Path == "" {
		target.Path = "/"
	}
	return target, nil
}

func writeCORS(h http.Header) {
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
}

// rewriteFrameHeaders убирает заголовки, запрещающие встраивание в iframe
func rewriteFrameHeaders(h http.Header) {
	h.Del("X-Frame-Options")
	for _, key := range []string{"Content-Security-Policy", "Content-Security-Policy-Report-Only"} {
		csp := h.Get(key)
		if csp == "" {
			continue
		}
		if cleaned := stripDirective(csp, "frame-ancestors"); cleaned != "" {
			h.Set(key, cleaned)
		} else {
			h.Del(key)
		}
	}
	writeCORS(h)
}

func stripDirective(csp, name string) string {
	kept := make([]string, 0)
	for _, directive := range strings.Split(csp, ";") {
		d := strings.TrimSpace(directive)
		if d == "" {
			continue
		}
		fields := strings.Fields(d)
		if strings.EqualFold(fields[0], name) {
			continue
		}
		kept = append(kept, d)
	}
	return strings.Join(kept, "; ")
}

// rewriteLocation держит редиректы устройства внутри proxy
func rewriteLocation(loc string, upstream *url.URL) string {
	u, err := url.Parse(loc)
	if err != nil {
		return loc
	}
	if !u.IsAbs() {
		if strings.HasPrefix(loc, "/") && !strings.HasPrefix(loc, "//") {
			return service.ProxyPathPrefix + "/" + upstream.Scheme + "/" + upstream.Host + loc
		}
		return loc
	}
	if !strings.EqualFold(u.Host, upstream.Host) {
		return loc
	}
	if proxied, err := service.ProxyPath(loc); err == nil {
		return proxied
	}
	return loc
}

var offlinePage = template.Must(template.New("offline").Parse(`<!DOCTYPE html>
<html>
<head>
  <title>DDC4000 - Offline</title>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <style>
    body { font-family: Arial, sans-serif; display: flex; justify-content: center; align-items: center; height: 100vh; margin: 0; background-color: #f0f0f0; text-align: center; }
    .offline-message { background: white; padding: 40px; border-radius: 8px; box-shadow: 0 2px 10px rgba(0,0,0,0.1); max-width: 400px; }
    h1 { color: #e74c3c; margin: 0 0 15px 0; }
    p { color: #7f8c8d; margin: 10px 0; }
    .retry-btn { background-color: #3498db; color: white; border: none; padding: 10px 20px; border-radius: 4px; cursor: pointer; margin-top: 20px; }
  </style>
</head>
<body>
  <div class="offline-message">
    <h1>DDC4000 Device Offline</h1>
    <p>Cannot connect to the DDC4000 device at {{.}}</p>
    <p>Check your network connection and device status.</p>
    <button class="retry-btn" onclick="window.location.reload()">Retry Connection</button>
  </div>
</body>
</html>
`))

func writeOfflinePage(w http.ResponseWriter, host string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusBadGateway)
	_ = offlinePage.Execute(w, host)
}
