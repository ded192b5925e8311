package repository

import (
	"context"

	"github.com/dreschagin/ddc-kiosk/internal/domain/entity"
)

// PresetRepository хранит именованные подключения (Port).
// Имя: уникальный ключ, порядок: порядок добавления.
type PresetRepository interface {
	// List возвращает presets в порядке добавления
	List(ctx context.Context) ([]entity.Preset, error)

	// Get возвращает preset или entity.ErrPresetNotFound
	Get(ctx context.Context, name string) (entity.Preset, error)

	// Upsert сохраняет preset. Существующее имя заменяется на месте, replaced=true.
	Upsert(ctx context.Context, preset entity.Preset) (replaced bool, err error)

	// Delete удаляет preset или возвращает entity.ErrPresetNotFound
	Delete(ctx context.Context, name string) error
}
