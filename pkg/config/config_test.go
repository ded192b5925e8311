package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Device.LoadTimeout != 15*time.Second {
		t.Fatalf("LoadTimeout = %v", cfg.Device.LoadTimeout)
	}
	if cfg.Capture.ScreenShareTimeout != 30*time.Second {
		t.Fatalf("ScreenShareTimeout = %v", cfg.Capture.ScreenShareTimeout)
	}
	if cfg.Gallery.MaxItems != 50 {
		t.Fatalf("MaxItems = %d", cfg.Gallery.MaxItems)
	}
	if len(cfg.Capture.ImagePaths) != 1 || cfg.Capture.ImagePaths[0] != "/image.jpg" {
		t.Fatalf("ImagePaths = %v", cfg.Capture.ImagePaths)
	}
	if cfg.Capture.PlaceholderWidth != 800 || cfg.Capture.PlaceholderHeight != 600 {
		t.Fatalf("placeholder size = %dx%d", cfg.Capture.PlaceholderWidth, cfg.Capture.PlaceholderHeight)
	}
}

func TestLoadOverridesAndValidation(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
		check   func(t *testing.T, cfg *Config)
	}{
		{
			name: "overrides",
			env: map[string]string{
				"GALLERY_MAX_ITEMS":             "10",
				"PROXY_ALLOWED_HOSTS":           " 10.0.0.1, ddc.local ,",
				"CLOUDWATCH_METRICS_DIMENSIONS": "Site=boiler,Env=prod,broken",
				"PUBLIC_BASE_URL":               "https://kiosk.example/",
			},
			check: func(t *testing.T, cfg *Config) {
				if cfg.Gallery.MaxItems != 10 {
					t.Fatalf("MaxItems = %d", cfg.Gallery.MaxItems)
				}
				if strings.Join(cfg.Proxy.AllowedHosts, "|") != "10.0.0.1|ddc.local" {
					t.Fatalf("AllowedHosts = %v", cfg.Proxy.AllowedHosts)
				}
				if len(cfg.CloudWatch.MetricsDimensions) != 2 || cfg.CloudWatch.MetricsDimensions["Site"] != "boiler" {
					t.Fatalf("MetricsDimensions = %v", cfg.CloudWatch.MetricsDimensions)
				}
				if cfg.Server.PublicBaseURL != "https://kiosk.example" {
					t.Fatalf("PublicBaseURL = %s", cfg.Server.PublicBaseURL)
				}
			},
		},
		{
			name:    "bad duration",
			env:     map[string]string{"DEVICE_LOAD_TIMEOUT": "soon"},
			wantErr: "invalid DEVICE_LOAD_TIMEOUT",
		},
		{
			name:    "bad driver",
			env:     map[string]string{"GALLERY_DRIVER": "mongo"},
			wantErr: "invalid GALLERY_DRIVER",
		},
		{
			name:    "auth without token",
			env:     map[string]string{"AUTH_ENABLED": "true"},
			wantErr: "AUTH_BEARER_TOKEN is required",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			cfg, err := Load()
			if tc.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			tc.check(t, cfg)
		})
	}
}
