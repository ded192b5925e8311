package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	// Application
	"github.com/dreschagin/ddc-kiosk/internal/application/port"
	"github.com/dreschagin/ddc-kiosk/internal/application/usecase"

	// Domain
	"github.com/dreschagin/ddc-kiosk/internal/domain/service"

	// Gateway
	gatewaymetrics "github.com/dreschagin/ddc-kiosk/internal/gateway/metrics"
	"github.com/dreschagin/ddc-kiosk/internal/gateway/proxy"
	"github.com/dreschagin/ddc-kiosk/internal/gateway/ratelimit"

	// Infrastructure
	"github.com/dreschagin/ddc-kiosk/internal/infrastructure/capture"
	"github.com/dreschagin/ddc-kiosk/internal/infrastructure/collector"
	"github.com/dreschagin/ddc-kiosk/internal/infrastructure/device"
	natsInfra "github.com/dreschagin/ddc-kiosk/internal/infrastructure/messaging/nats"
	wsInfra "github.com/dreschagin/ddc-kiosk/internal/infrastructure/notification/websocket"
	"github.com/dreschagin/ddc-kiosk/internal/infrastructure/observability/cloudwatch"
	"github.com/dreschagin/ddc-kiosk/internal/infrastructure/persistence/seed"

	// Interfaces
	httpInterface "github.com/dreschagin/ddc-kiosk/internal/interfaces/http"
	"github.com/dreschagin/ddc-kiosk/internal/interfaces/http/handler"
	"github.com/dreschagin/ddc-kiosk/internal/interfaces/http/middleware"

	// Shared
	"github.com/dreschagin/ddc-kiosk/pkg/config"
	"github.com/dreschagin/ddc-kiosk/pkg/logger"
)

func main() {
	// 1. Загружаем конфигурацию
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Инициализируем logger
	log := logger.New(cfg.Server.LogLevel)
	log.Info("Starting DDC4000 kiosk", "version", usecase.ShellVersion, "kiosk_id", cfg.Server.KioskID)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var logsPublisher *cloudwatch.LogsPublisher
	if cfg.CloudWatch.LogsEnabled {
		logsPublisher, err = cloudwatch.NewLogsPublisher(ctx, cloudwatch.LogsPublisherConfig{
			LogGroupName:    cfg.CloudWatch.LogGroupName,
			LogStreamName:   cfg.CloudWatch.LogStreamName,
			Region:          cfg.CloudWatch.Region,
			Endpoint:        cfg.CloudWatch.Endpoint,
			AccessKeyID:     cfg.CloudWatch.AccessKeyID,
			SecretAccessKey: cfg.CloudWatch.SecretAccessKey,
			BufferSize:      cfg.CloudWatch.LogsBufferSize,
			FlushInterval:   cfg.CloudWatch.LogsFlushInterval,
			AutoCreate:      true,
		})
		if err != nil {
			log.Warn("CloudWatch logs disabled", "error", err.Error())
		} else {
			log.SetLogPublisher(logsPublisher)
			log.Info("CloudWatch logs enabled", "group", cfg.CloudWatch.LogGroupName)
		}
	}

	// Prometheus
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := gatewaymetrics.New(registry)

	// 3. Хранилища (драйвер выбирается конфигурацией)
	stores, err := openStores(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to open storage", err)
		os.Exit(1)
	}
	defer stores.Close()

	// 4. Dependency Injection - Infrastructure Layer

	hub := wsInfra.NewHub(log)

	var events port.EventPublisher
	if cfg.NATS.Enabled {
		publisher, err := natsInfra.NewNATSPublisher(cfg.NATS.URL, cfg.Server.KioskID, log)
		if err != nil {
			log.Warn("NATS events disabled", "error", err.Error())
		} else {
			events = publisher
			defer publisher.Close()
		}
	}

	var metricsPublisher *cloudwatch.MetricsPublisher
	var cloudMetrics port.MetricsPublisher
	if cfg.CloudWatch.MetricsEnabled {
		dimensions := map[string]string{"KioskId": cfg.Server.KioskID}
		for k, v := range cfg.CloudWatch.MetricsDimensions {
			dimensions[k] = v
		}
		metricsPublisher, err = cloudwatch.NewMetricsPublisher(ctx, cloudwatch.MetricsPublisherConfig{
			Namespace:         cfg.CloudWatch.MetricsNamespace,
			Region:            cfg.CloudWatch.Region,
			Endpoint:          cfg.CloudWatch.Endpoint,
			AccessKeyID:       cfg.CloudWatch.AccessKeyID,
			SecretAccessKey:   cfg.CloudWatch.SecretAccessKey,
			DefaultDimensions: dimensions,
			BufferSize:        cfg.CloudWatch.MetricsBufferSize,
			FlushInterval:     cfg.CloudWatch.MetricsFlushInterval,
			StorageResolution: 60,
		})
		if err != nil {
			log.Warn("CloudWatch metrics disabled", "error", err.Error())
		} else {
			cloudMetrics = metricsPublisher
		}
	}

	prober := device.NewProber(&http.Client{Timeout: cfg.Device.ProbeTimeout + 2*time.Second}, device.ProberConfig{
		ICMP:        cfg.Device.ProbeICMP,
		ICMPTimeout: cfg.Device.ProbeTimeout,
	}, log)

	browser := capture.NewBrowser(cfg.Capture.ChromePath)
	defer browser.Close()

	strategies := captureStrategies(cfg.Capture, browser)
	placeholder := capture.NewPlaceholderRenderer(cfg.Capture.PlaceholderWidth, cfg.Capture.PlaceholderHeight)

	// 5. Dependency Injection - Domain Layer

	urls, err := service.NewURLBuilder(cfg.Device.URLTemplate)
	if err != nil {
		log.Error("Invalid device URL template", err)
		os.Exit(1)
	}

	// 6. Dependency Injection - Application Layer (Use Cases)

	settingsUC := usecase.NewSettingsUseCase(stores.settings, log)
	presetsUC := usecase.NewManagePresetsUseCase(stores.presets, stores.settings, log)

	seeded, err := seed.LoadPresets(cfg.Presets.SeedFile)
	if err != nil {
		log.Warn("Ignoring presets seed file", "path", cfg.Presets.SeedFile, "error", err.Error())
	}
	if n, err := presetsUC.Seed(ctx, seeded.Items); err != nil {
		log.Error("Failed to seed presets", err)
	} else if n > 0 && seeded.Autoload != "" {
		if err := presetsUC.SetAutoload(ctx, seeded.Autoload); err != nil {
			log.Warn("Seed autoload preset not applied", "name", seeded.Autoload, "error", err.Error())
		}
	}

	known := usecase.NewKnownDevices(cfg.Proxy.AllowedHosts, presetsUC.Hosts, settingsUC.LastConnectionHosts)

	connectUC := usecase.NewConnectDeviceUseCase(
		urls,
		prober,
		settingsUC,
		known,
		hub,
		events,
		usecase.ConnectDeviceConfig{
			LoadTimeout: cfg.Device.LoadTimeout,
			StatusTTL:   cfg.Device.StatusTTL,
		},
		log,
	)

	galleryUC := usecase.NewManageGalleryUseCase(stores.gallery, stores.storage, hub, events, log)

	chain := usecase.NewCaptureChain(strategies, placeholder, metrics, log)
	log.Info("Capture chain ready", "strategies", chain.Strategies())

	captureUC := usecase.NewCaptureScreenshotUseCase(
		chain,
		urls,
		known,
		stores.gallery,
		stores.storage,
		hub,
		events,
		cloudMetrics,
		usecase.CaptureScreenshotConfig{
			MaxItems:      cfg.Gallery.MaxItems,
			KeyPrefix:     cfg.S3.KeyPrefix,
			KioskID:       cfg.Server.KioskID,
			PublicBaseURL: cfg.Server.PublicBaseURL,
		},
		log,
	)

	viewportUC := usecase.NewViewportSessionsUseCase(cfg.Viewport.SessionTTL, cfg.Viewport.ResizeDebounce, hub, log)

	diagnosticsUC := usecase.NewDiagnosticsUseCase(
		cfg.Server.KioskID,
		collector.NewHostStatsCollector("/"),
		hub,
		stores.gallery,
		known,
		chain,
		log,
	)

	// 7. Dependency Injection - Interfaces Layer (HTTP Handlers)

	authConfig := middleware.AuthConfig{
		Enabled:     cfg.Security.AuthEnabled,
		BearerToken: cfg.Security.AuthToken,
		CookieTTL:   cfg.Security.AuthCookieTTL,
		OnFailure:   metrics.AuthFailures.Inc,
	}

	handlers := httpInterface.Handlers{
		Shell:       handler.NewShellHandler(presetsUC, settingsUC, httpInterface.StaticAssets(), log),
		WebSocket:   handler.NewWebSocketHandler(hub, cfg.Security.AllowedOrigins, authConfig, log),
		Auth:        handler.NewAuthAPIHandler(authConfig, log),
		Connection:  handler.NewConnectionAPIHandler(connectUC, log),
		Presets:     handler.NewPresetAPIHandler(presetsUC, log),
		Gallery:     handler.NewGalleryAPIHandler(galleryUC, cfg.Gallery.MaxItems, log),
		Capture:     handler.NewCaptureAPIHandler(captureUC, settingsUC, log),
		Viewport:    handler.NewViewportAPIHandler(viewportUC, log),
		Settings:    handler.NewSettingsAPIHandler(settingsUC, log),
		QR:          handler.NewQRAPIHandler(cfg.Server.PublicBaseURL, log),
		Diagnostics: handler.NewDiagnosticsAPIHandler(diagnosticsUC),
		Proxy: proxy.NewHandler(known, proxy.Config{
			Timeout:      cfg.Proxy.Timeout,
			StripCookies: []string{middleware.AuthCookieName},
		}, log, metrics),
	}

	// Router
	router := httpInterface.NewRouter(
		handlers,
		cfg.Security,
		ratelimit.PerMinute(cfg.Capture.RateLimitPerMinute),
		registry,
		metrics,
		log,
	)

	// 8. Запускаем фоновые процессы

	go hub.Run(ctx)
	log.Info("WebSocket hub started")

	// 9. Настраиваем HTTP сервер

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Канал для получения сигналов ОС
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info("HTTP server starting", "port", cfg.Server.Port)
		log.Info("Kiosk shell available at http://localhost:" + cfg.Server.Port)

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server failed", err)
			os.Exit(1)
		}
	}()

	// 10. Ожидаем сигнал для graceful shutdown

	<-sigChan
	log.Info("Shutdown signal received, starting graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", err)
	}

	// Останавливаем hub и фоновые сессии
	cancel()

	if metricsPublisher != nil {
		if err := metricsPublisher.Close(shutdownCtx); err != nil {
			log.Error("Failed to flush CloudWatch metrics", err)
		}
	}

	log.Info("Server stopped gracefully")

	if logsPublisher != nil {
		_ = logsPublisher.Close(shutdownCtx)
	}
}
