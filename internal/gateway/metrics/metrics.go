package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles prometheus collectors exposed on /metrics.
type Metrics struct {
	RequestsTotal      *prometheus.CounterVec
	RequestDurationSec *prometheus.HistogramVec
	CaptureAttempts    *prometheus.CounterVec
	CaptureDurationSec *prometheus.HistogramVec
	UpstreamErrors     *prometheus.CounterVec
	AuthFailures       prometheus.Counter
	RateLimitDropped   prometheus.Counter
	ProxyDenied        prometheus.Counter
}

func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kiosk_requests_total",
			Help: "Total number of kiosk HTTP requests.",
		}, []string{"route", "method", "status"}),
		RequestDurationSec: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kiosk_request_duration_seconds",
			Help:    "Kiosk request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
		CaptureAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kiosk_capture_attempts_total",
			Help: "Capture technique attempts by outcome.",
		}, []string{"strategy", "result"}),
		CaptureDurationSec: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kiosk_capture_duration_seconds",
			Help:    "Capture technique duration in seconds.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30},
		}, []string{"strategy"}),
		UpstreamErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kiosk_proxy_upstream_errors_total",
			Help: "Total number of device proxy errors.",
		}, []string{"host"}),
		AuthFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kiosk_auth_failures_total",
			Help: "Total number of auth failures.",
		}),
		RateLimitDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kiosk_ratelimit_dropped_total",
			Help: "Total number of requests dropped by rate limiter.",
		}),
		ProxyDenied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kiosk_proxy_denied_total",
			Help: "Proxy requests to hosts outside the allowlist.",
		}),
	}

	registry.MustRegister(
		m.RequestsTotal,
		m.RequestDurationSec,
		m.CaptureAttempts,
		m.CaptureDurationSec,
		m.UpstreamErrors,
		m.AuthFailures,
		m.RateLimitDropped,
		m.ProxyDenied,
	)

	return m
}

// ObserveAttempt записывает результат одной техники захвата
func (m *Metrics) ObserveAttempt(strategy string, success bool, d time.Duration) {
	result := "failure"
	if success {
		result = "success"
	}
	m.CaptureAttempts.WithLabelValues(strategy, result).Inc()
	m.CaptureDurationSec.WithLabelValues(strategy).Observe(d.Seconds())
}

func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startedAt := time.Now()
		wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		status := strconv.Itoa(wrapped.statusCode)
		route := normalizeRoute(r.URL.Path)
		m.RequestsTotal.WithLabelValues(route, r.Method, status).Inc()
		m.RequestDurationSec.WithLabelValues(route, r.Method, status).Observe(time.Since(startedAt).Seconds())
	})
}

// normalizeRoute держит кардинальность label'а route ограниченной:
// id скриншотов, имена preset'ов и адреса устройств не попадают в метрики.
func normalizeRoute(path string) string {
	switch {
	case path == "/" || path == "/sw.js" || path == "/ws" || path == "/metrics" || path == "/healthz" || path == "/readyz":
		return path
	case strings.HasPrefix(path, "/static/"):
		return "/static/*"
	case path == "/proxy-ddc" || strings.HasPrefix(path, "/proxy-ddc/"):
		return "/proxy-ddc/*"
	case path == "/proxy-screenshot":
		return path
	case strings.HasPrefix(path, "/api/v1/gallery/"):
		if strings.HasSuffix(path, "/download") {
			return "/api/v1/gallery/{id}/download"
		}
		return "/api/v1/gallery/{id}"
	case strings.HasPrefix(path, "/api/v1/presets/"):
		if path == "/api/v1/presets/autoload" {
			return path
		}
		return "/api/v1/presets/{name}"
	case strings.HasPrefix(path, "/api/v1/viewport/sessions/"):
		return "/api/v1/viewport/sessions/*"
	case strings.HasPrefix(path, "/api/v1/settings/"):
		return "/api/v1/settings/{key}"
	case path == "/api/v1" || strings.HasPrefix(path, "/api/v1/"):
		if strings.Count(path, "/") <= 4 {
			return path
		}
		return "/api/v1/*"
	default:
		return "other"
	}
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rw *statusRecorder) WriteHeader(statusCode int) {
	rw.statusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

// Hijack passes websocket upgrades through wrapped ResponseWriter.
func (rw *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return hijacker.Hijack()
}

// Flush keeps streaming behavior for handlers that require it.
func (rw *statusRecorder) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// Push proxies HTTP/2 server push when available.
func (rw *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := rw.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
