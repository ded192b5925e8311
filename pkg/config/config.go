package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	Device     DeviceConfig
	Capture    CaptureConfig
	Gallery    GalleryConfig
	Presets    PresetsConfig
	Settings   SettingsConfig
	Viewport   ViewportConfig
	SQLite     SQLiteConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	NATS       NATSConfig
	S3         S3Config
	Dynamo     DynamoConfig
	CloudWatch CloudWatchConfig
	Proxy      ProxyConfig
	Security   SecurityConfig
}

type ServerConfig struct {
	Port            string
	LogLevel        string
	PublicBaseURL   string
	KioskID         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type DeviceConfig struct {
	URLTemplate  string
	LoadTimeout  time.Duration
	ProbeICMP    bool
	ProbeTimeout time.Duration
	StatusTTL    time.Duration
}

type CaptureConfig struct {
	ChromePath         string
	RenderTimeout      time.Duration
	ScreenShareEnabled bool
	ScreenShareTimeout time.Duration
	ImagePaths         []string
	ImageTimeout       time.Duration
	PlaceholderWidth   int
	PlaceholderHeight  int
	RateLimitPerMinute int
	DisabledStrategies []string
}

type GalleryConfig struct {
	Driver   string
	MaxItems int
}

type PresetsConfig struct {
	Driver   string
	SeedFile string
}

type SettingsConfig struct {
	Driver string
}

type ViewportConfig struct {
	SessionTTL     time.Duration
	ResizeDebounce time.Duration
}

type SQLiteConfig struct {
	Path string
}

type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Database        string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type RedisConfig struct {
	Host         string
	Port         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type NATSConfig struct {
	Enabled bool
	URL     string
}

type S3Config struct {
	Enabled         bool
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
	KeyPrefix       string
	URLMode         string
	PresignedTTL    time.Duration
}

type DynamoConfig struct {
	TableName       string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	StrongReads     bool
}

type CloudWatchConfig struct {
	MetricsEnabled       bool
	LogsEnabled          bool
	Region               string
	Endpoint             string
	AccessKeyID          string
	SecretAccessKey      string
	MetricsNamespace     string
	MetricsDimensions    map[string]string
	MetricsBufferSize    int
	MetricsFlushInterval time.Duration
	LogGroupName         string
	LogStreamName        string
	LogsBufferSize       int
	LogsFlushInterval    time.Duration
}

type ProxyConfig struct {
	AllowedHosts []string
	Timeout      time.Duration
}

type SecurityConfig struct {
	AllowedOrigins []string
	AuthEnabled    bool
	AuthToken      string
	AuthCookieTTL  time.Duration
}

func Load() (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку если файла нет)
	_ = godotenv.Load()

	var errs []error
	duration := func(key, def string) time.Duration {
		d, err := time.ParseDuration(getEnv(key, def))
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
		}
		return d
	}
	integer := func(key string, def int) int {
		raw := os.Getenv(key)
		if raw == "" {
			return def
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
		}
		return v
	}

	hostname, _ := os.Hostname()

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			LogLevel:        strings.ToLower(getEnv("LOG_LEVEL", "info")),
			PublicBaseURL:   strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
			KioskID:         getEnv("KIOSK_ID", fallback(hostname, "kiosk")),
			ReadTimeout:     duration("SERVER_READ_TIMEOUT", "10s"),
			WriteTimeout:    duration("SERVER_WRITE_TIMEOUT", "120s"),
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Device: DeviceConfig{
			URLTemplate:  getEnv("DEVICE_URL_TEMPLATE", ""),
			LoadTimeout:  duration("DEVICE_LOAD_TIMEOUT", "15s"),
			ProbeICMP:    getEnvBool("DEVICE_PROBE_ICMP", true),
			ProbeTimeout: duration("DEVICE_PROBE_ICMP_TIMEOUT", "1s"),
			StatusTTL:    duration("DEVICE_STATUS_TTL", "5m"),
		},
		Capture: CaptureConfig{
			ChromePath:         getEnv("CAPTURE_CHROME_PATH", ""),
			RenderTimeout:      duration("CAPTURE_RENDER_TIMEOUT", "20s"),
			ScreenShareEnabled: getEnvBool("CAPTURE_SCREEN_SHARE_ENABLED", false),
			ScreenShareTimeout: duration("CAPTURE_SCREEN_SHARE_TIMEOUT", "30s"),
			ImagePaths:         splitCSV(getEnv("CAPTURE_IMAGE_PATHS", "/image.jpg")),
			ImageTimeout:       duration("CAPTURE_IMAGE_TIMEOUT", "5s"),
			PlaceholderWidth:   integer("CAPTURE_PLACEHOLDER_WIDTH", 800),
			PlaceholderHeight:  integer("CAPTURE_PLACEHOLDER_HEIGHT", 600),
			RateLimitPerMinute: integer("CAPTURE_RATE_LIMIT_PER_MINUTE", 30),
			DisabledStrategies: splitCSV(getEnv("CAPTURE_DISABLED_STRATEGIES", "")),
		},
		Gallery: GalleryConfig{
			Driver:   strings.ToLower(getEnv("GALLERY_DRIVER", "sqlite")),
			MaxItems: integer("GALLERY_MAX_ITEMS", 50),
		},
		Presets: PresetsConfig{
			Driver:   strings.ToLower(getEnv("PRESETS_DRIVER", "sqlite")),
			SeedFile: getEnv("PRESETS_SEED_FILE", "configs/presets.yaml"),
		},
		Settings: SettingsConfig{
			Driver: strings.ToLower(getEnv("SETTINGS_DRIVER", "memory")),
		},
		Viewport: ViewportConfig{
			SessionTTL:     duration("VIEWPORT_SESSION_TTL", "12h"),
			ResizeDebounce: duration("VIEWPORT_RESIZE_DEBOUNCE", "250ms"),
		},
		SQLite: SQLiteConfig{
			Path: getEnv("SQLITE_PATH", "data/kiosk.db"),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			Database:        getEnv("DB_NAME", "kiosk"),
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
			ConnMaxIdleTime: 10 * time.Minute,
		},
		Redis: RedisConfig{
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnv("REDIS_PORT", "6379"),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           integer("REDIS_DB", 0),
			PoolSize:     integer("REDIS_POOL_SIZE", 10),
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		NATS: NATSConfig{
			Enabled: getEnvBool("NATS_ENABLED", false),
			URL:     getEnv("NATS_URL", "nats://localhost:4222"),
		},
		S3: S3Config{
			Enabled:         getEnvBool("S3_ENABLED", false),
			Bucket:          getEnv("S3_BUCKET", ""),
			Region:          getEnv("S3_REGION", "ru-central1"),
			Endpoint:        getEnv("S3_ENDPOINT", "https://storage.yandexcloud.net"),
			AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
			UsePathStyle:    getEnvBool("S3_USE_PATH_STYLE", true),
			KeyPrefix:       getEnv("S3_KEY_PREFIX", "kiosk-screenshots"),
			URLMode:         getEnv("S3_URL_MODE", "presigned"),
			PresignedTTL:    duration("S3_PRESIGNED_TTL", "5m"),
		},
		Dynamo: DynamoConfig{
			TableName:       getEnv("DYNAMO_TABLE_GALLERY", "kiosk_gallery"),
			Region:          getEnv("DYNAMO_REGION", getEnv("S3_REGION", "ru-central1")),
			Endpoint:        getEnv("DYNAMO_ENDPOINT", ""),
			AccessKeyID:     getEnv("DYNAMO_ACCESS_KEY_ID", getEnv("S3_ACCESS_KEY_ID", "")),
			SecretAccessKey: getEnv("DYNAMO_SECRET_ACCESS_KEY", getEnv("S3_SECRET_ACCESS_KEY", "")),
			StrongReads:     getEnvBool("DYNAMO_STRONG_READS", true),
		},
		CloudWatch: CloudWatchConfig{
			MetricsEnabled:       getEnvBool("CLOUDWATCH_METRICS_ENABLED", false),
			LogsEnabled:          getEnvBool("CLOUDWATCH_LOGS_ENABLED", false),
			Region:               getEnv("CLOUDWATCH_REGION", "us-east-1"),
			Endpoint:             getEnv("CLOUDWATCH_ENDPOINT", ""),
			AccessKeyID:          getEnv("CLOUDWATCH_ACCESS_KEY_ID", ""),
			SecretAccessKey:      getEnv("CLOUDWATCH_SECRET_ACCESS_KEY", ""),
			MetricsNamespace:     getEnv("CLOUDWATCH_METRICS_NAMESPACE", "DDCKiosk"),
			MetricsDimensions:    parseKeyValues(getEnv("CLOUDWATCH_METRICS_DIMENSIONS", "")),
			MetricsBufferSize:    integer("CLOUDWATCH_METRICS_BUFFER_SIZE", 20),
			MetricsFlushInterval: duration("CLOUDWATCH_METRICS_FLUSH_INTERVAL", "30s"),
			LogGroupName:         getEnv("CLOUDWATCH_LOG_GROUP", "/ddc-kiosk/app"),
			LogStreamName:        getEnv("CLOUDWATCH_LOG_STREAM", fallback(hostname, "kiosk")),
			LogsBufferSize:       integer("CLOUDWATCH_LOGS_BUFFER_SIZE", 100),
			LogsFlushInterval:    duration("CLOUDWATCH_LOGS_FLUSH_INTERVAL", "5s"),
		},
		Proxy: ProxyConfig{
			AllowedHosts: splitCSV(getEnv("PROXY_ALLOWED_HOSTS", "")),
			Timeout:      duration("PROXY_TIMEOUT", "15s"),
		},
		Security: SecurityConfig{
			AllowedOrigins: splitCSV(getEnv("ALLOWED_ORIGINS", "http://localhost:8080,http://127.0.0.1:8080")),
			AuthEnabled:    getEnvBool("AUTH_ENABLED", false),
			AuthToken:      getEnv("AUTH_BEARER_TOKEN", ""),
			AuthCookieTTL:  duration("AUTH_COOKIE_TTL", "12h"),
		},
	}

	if len(errs) > 0 {
		return nil, errs[0]
	}

	if cfg.Security.AuthEnabled && cfg.Security.AuthToken == "" {
		return nil, fmt.Errorf("AUTH_BEARER_TOKEN is required when AUTH_ENABLED=true")
	}
	if cfg.Gallery.MaxItems <= 0 {
		return nil, fmt.Errorf("invalid GALLERY_MAX_ITEMS: must be positive")
	}
	for name, driver := range map[string]string{
		"GALLERY_DRIVER":  cfg.Gallery.Driver,
		"PRESETS_DRIVER":  cfg.Presets.Driver,
		"SETTINGS_DRIVER": cfg.Settings.Driver,
	} {
		if !validDriver(name, driver) {
			return nil, fmt.Errorf("invalid %s: %q", name, driver)
		}
	}

	return cfg, nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.User, c.Password, c.Database)
}

func validDriver(name, driver string) bool {
	switch name {
	case "GALLERY_DRIVER":
		return driver == "memory" || driver == "sqlite" || driver == "postgres" || driver == "dynamodb"
	case "PRESETS_DRIVER":
		return driver == "memory" || driver == "sqlite" || driver == "postgres"
	case "SETTINGS_DRIVER":
		return driver == "memory" || driver == "redis"
	}
	return false
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return parsed
}

func splitCSV(raw string) []string {
	items := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

// parseKeyValues разбирает "Env=prod,Site=boiler" в map
func parseKeyValues(raw string) map[string]string {
	out := make(map[string]string)
	for _, item := range splitCSV(raw) {
		key, value, ok := strings.Cut(item, "=")
		if !ok || strings.TrimSpace(key) == "" {
			continue
		}
		out[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return out
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return value
}
