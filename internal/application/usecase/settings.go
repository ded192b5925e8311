package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"github.com/dreschagin/ddc-kiosk/internal/application/port"
	"github.com/dreschagin/ddc-kiosk/internal/domain/entity"
	"github.com/dreschagin/ddc-kiosk/pkg/logger"
)

var (
	settingKeyRegex = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,64}$`)

	ErrInvalidSettingKey = errors.New("invalid setting key")
	ErrSettingNotFound   = errors.New("setting not found")
)

// SettingsUseCase: key→JSON настройки оболочки (последнее подключение, свернутая панель и т.п.)
type SettingsUseCase struct {
	store  port.Cache
	logger *logger.Logger
}

func NewSettingsUseCase(store port.Cache, log *logger.Logger) *SettingsUseCase {
	return &SettingsUseCase{store: store, logger: log}
}

// Get возвращает сырое JSON значение ключа
func (uc *SettingsUseCase) Get(ctx context.Context, key string) (json.RawMessage, error) {
	if !settingKeyRegex.MatchString(key) {
		return nil, ErrInvalidSettingKey
	}

	var raw json.RawMessage
	if err := uc.store.Get(ctx, key, &raw); err != nil {
		if errors.Is(err, port.ErrCacheMiss) {
			return nil, ErrSettingNotFound
		}
		return nil, fmt.Errorf("failed to read setting %s: %w", key, err)
	}
	return raw, nil
}

// Put сохраняет значение; value должен быть валидным JSON
func (uc *SettingsUseCase) Put(ctx context.Context, key string, value json.RawMessage) error {
	if !settingKeyRegex.MatchString(key) {
		return ErrInvalidSettingKey
	}
	if !json.Valid(value) {
		return fmt.Errorf("%w: value is not valid JSON", ErrInvalidSettingKey)
	}
	if err := uc.store.Set(ctx, key, value); err != nil {
		return fmt.Errorf("failed to write setting %s: %w", key, err)
	}
	uc.logger.Debug("Setting updated", "key", key)
	return nil
}

func (uc *SettingsUseCase) Delete(ctx context.Context, key string) error {
	if !settingKeyRegex.MatchString(key) {
		return ErrInvalidSettingKey
	}
	return uc.store.Delete(ctx, key)
}

// LastConnection возвращает последнее успешное подключение
func (uc *SettingsUseCase) LastConnection(ctx context.Context) (entity.ConnectionConfig, bool) {
	var conn entity.ConnectionConfig
	if err := uc.store.Get(ctx, port.SettingLastConnection, &conn); err != nil {
		return entity.ConnectionConfig{}, false
	}
	if conn.Validate() != nil {
		return entity.ConnectionConfig{}, false
	}
	return conn, true
}

// LastConnectionHosts: источник allowlist proxy, пустой без сохраненного подключения
func (uc *SettingsUseCase) LastConnectionHosts(ctx context.Context) []string {
	conn, ok := uc.LastConnection(ctx)
	if !ok {
		return nil
	}
	return []string{conn.Host}
}

func (uc *SettingsUseCase) SaveLastConnection(ctx context.Context, conn entity.ConnectionConfig) error {
	if err := uc.store.Set(ctx, port.SettingLastConnection, conn); err != nil {
		return fmt.Errorf("failed to save last connection: %w", err)
	}
	return nil
}
