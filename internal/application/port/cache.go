package port

import (
	"context"
	"errors"
)

// ErrCacheMiss возвращается Get, если ключа нет
var ErrCacheMiss = errors.New("cache miss: key not found")

// Cache: key→JSON хранилище настроек киоска (redis или память)
type Cache interface {
	// Get читает значение и декодирует его в dest
	Get(ctx context.Context, key string, dest interface{}) error

	// Set сохраняет значение в JSON
	Set(ctx context.Context, key string, value interface{}) error

	// Delete удаляет ключ (отсутствующий ключ не ошибка)
	Delete(ctx context.Context, key string) error

	// DeletePattern удаляет ключи по glob-шаблону
	DeletePattern(ctx context.Context, pattern string) error

	// Close закрывает соединение
	Close() error
}

// Settings keys shared by the kiosk shell and the API.
const (
	SettingLastConnection  = "ddc_last_connection"
	SettingAutoloadPreset  = "ddc_autoload_preset"
	SettingConfigCollapsed = "ddcBrowserConfigCollapsed"
)
