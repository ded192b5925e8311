package http

import (
	"io/fs"
	"net/http"

	"github.com/dreschagin/ddc-kiosk/internal/gateway/httpx"
	gatewaymetrics "github.com/dreschagin/ddc-kiosk/internal/gateway/metrics"
	"github.com/dreschagin/ddc-kiosk/internal/gateway/proxy"
	"github.com/dreschagin/ddc-kiosk/internal/gateway/ratelimit"
	"github.com/dreschagin/ddc-kiosk/internal/interfaces/http/handler"
	"github.com/dreschagin/ddc-kiosk/internal/interfaces/http/middleware"
	"github.com/dreschagin/ddc-kiosk/pkg/config"
	"github.com/dreschagin/ddc-kiosk/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers: все HTTP handler'ы киоска
type Handlers struct {
	Shell       *handler.ShellHandler
	WebSocket   *handler.WebSocketHandler
	Auth        *handler.AuthAPIHandler
	Connection  *handler.ConnectionAPIHandler
	Presets     *handler.PresetAPIHandler
	Gallery     *handler.GalleryAPIHandler
	Capture     *handler.CaptureAPIHandler
	Viewport    *handler.ViewportAPIHandler
	Settings    *handler.SettingsAPIHandler
	QR          *handler.QRAPIHandler
	Diagnostics *handler.DiagnosticsAPIHandler
	Proxy       *proxy.Handler
}

// Router настраивает маршруты приложения
type Router struct {
	mux          *http.ServeMux
	handlers     Handlers
	security     config.SecurityConfig
	captureLimit *ratelimit.Limiter
	registry     *prometheus.Registry
	metrics      *gatewaymetrics.Metrics
	logger       *logger.Logger
}

// NewRouter создает новый router
func NewRouter(
	handlers Handlers,
	security config.SecurityConfig,
	captureLimit *ratelimit.Limiter,
	registry *prometheus.Registry,
	metrics *gatewaymetrics.Metrics,
	logger *logger.Logger,
) *Router {
	return &Router{
		mux:          http.NewServeMux(),
		handlers:     handlers,
		security:     security,
		captureLimit: captureLimit,
		registry:     registry,
		metrics:      metrics,
		logger:       logger,
	}
}

// StaticAssets: встроенные файлы оболочки без префикса static/
func StaticAssets() fs.FS {
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic("failed to initialize embedded static assets: " + err.Error())
	}
	return staticFS
}

// Setup настраивает все маршруты
func (rt *Router) Setup() http.Handler {
	h := rt.handlers

	rt.mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(StaticAssets())))
	rt.mux.HandleFunc("GET /sw.js", h.Shell.ServiceWorker)

	// Health endpoints are intentionally unauthenticated for probes.
	rt.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	rt.mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	if rt.registry != nil {
		rt.mux.Handle("GET /metrics", promhttp.HandlerFor(rt.registry, promhttp.HandlerOpts{}))
	}

	authCfg := middleware.AuthConfig{
		Enabled:     rt.security.AuthEnabled,
		BearerToken: rt.security.AuthToken,
	}
	if rt.metrics != nil {
		authCfg.OnFailure = rt.metrics.AuthFailures.Inc
	}
	auth := middleware.Auth(authCfg, rt.logger)
	protect := func(fn http.HandlerFunc) http.Handler { return auth(fn) }

	// Shell
	rt.mux.Handle("GET /{$}", protect(h.Shell.ShowShell))
	rt.mux.Handle("GET /ws", protect(h.WebSocket.HandleConnection))

	// Device proxy: iframe грузит устройство через kioskd
	rt.mux.Handle("/proxy-ddc", auth(h.Proxy))
	rt.mux.Handle("/proxy-ddc/", auth(h.Proxy))
	rt.mux.Handle("/proxy-screenshot", protect(h.Proxy.ServeScreenshot))

	// Auth
	rt.mux.HandleFunc("POST /api/v1/auth/login", h.Auth.Login)
	rt.mux.HandleFunc("POST /api/v1/auth/logout", h.Auth.Logout)
	rt.mux.HandleFunc("GET /api/v1/auth/status", h.Auth.Status)

	// Diagnostics
	rt.mux.HandleFunc("GET /api/v1/version", h.Diagnostics.Version)
	rt.mux.Handle("GET /api/v1/diagnostics", protect(h.Diagnostics.Diagnostics))

	// Viewport
	rt.mux.Handle("POST /api/v1/viewport/fit", protect(h.Viewport.Fit))
	rt.mux.Handle("POST /api/v1/viewport/sessions/{id}/{action}", protect(h.Viewport.Apply))
	rt.mux.Handle("GET /api/v1/viewport/sessions/{id}", protect(h.Viewport.Get))
	rt.mux.Handle("POST /api/v1/viewport/inspector", protect(h.Viewport.Inspector))

	// Connection
	rt.mux.Handle("POST /api/v1/connection/url", protect(h.Connection.BuildURL))
	rt.mux.Handle("POST /api/v1/connection/connect", protect(h.Connection.Connect))
	rt.mux.Handle("GET /api/v1/connection/status", protect(h.Connection.Status))

	// Presets
	rt.mux.Handle("GET /api/v1/presets", protect(h.Presets.List))
	rt.mux.Handle("POST /api/v1/presets", protect(h.Presets.Save))
	rt.mux.Handle("GET /api/v1/presets/autoload", protect(h.Presets.GetAutoload))
	rt.mux.Handle("PUT /api/v1/presets/autoload", protect(h.Presets.SetAutoload))
	rt.mux.Handle("DELETE /api/v1/presets/{name}", protect(h.Presets.Delete))

	rt.mux.Handle("GET /api/v1/qr", protect(h.QR.QR))

	// Capture + gallery
	var capture http.Handler = http.HandlerFunc(h.Capture.Capture)
	if rt.captureLimit != nil {
		capture = rt.captureLimit.Middleware(rt.metrics, capture)
	}
	rt.mux.Handle("POST /api/v1/capture", auth(capture))

	rt.mux.Handle("GET /api/v1/gallery", protect(h.Gallery.List))
	rt.mux.Handle("DELETE /api/v1/gallery", protect(h.Gallery.Clear))
	rt.mux.Handle("GET /api/v1/gallery/{id}", protect(h.Gallery.Get))
	rt.mux.Handle("DELETE /api/v1/gallery/{id}", protect(h.Gallery.Delete))
	rt.mux.Handle("GET /api/v1/gallery/{id}/download", protect(h.Gallery.Download))

	// Settings
	rt.mux.Handle("GET /api/v1/settings/{key}", protect(h.Settings.Get))
	rt.mux.Handle("PUT /api/v1/settings/{key}", protect(h.Settings.Put))

	// Применяем middleware (последний: внешний)
	var handler http.Handler = rt.mux
	handler = middleware.Compression(handler)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(handler)
	}
	handler = middleware.Logger(rt.logger)(handler)
	handler = httpx.WithRequestID(handler)
	handler = middleware.Recovery(rt.logger)(handler)

	return handler
}
