package memory

import (
	"context"
	"sync"

	"github.com/dreschagin/ddc-kiosk/internal/domain/entity"
)

// PresetRepository хранит presets в памяти в порядке добавления
type PresetRepository struct {
	mu    sync.RWMutex
	items []entity.Preset
}

func NewPresetRepository() *PresetRepository {
	return &PresetRepository{}
}

func (r *PresetRepository) List(_ context.Context) ([]entity.Preset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]entity.Preset(nil), r.items...), nil
}

func (r *PresetRepository) Get(_ context.Context, name string) (entity.Preset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.items {
		if p.Name == name {
			return p, nil
		}
	}
	return entity.Preset{}, entity.ErrPresetNotFound
}

func (r *PresetRepository) Upsert(_ context.Context, preset entity.Preset) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, p := range r.items {
		if p.Name == preset.Name {
			r.items[i] = preset
			return true, nil
		}
	}
	r.items = append(r.items, preset)
	return false, nil
}

func (r *PresetRepository) Delete(_ context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, p := range r.items {
		if p.Name == name {
			r.items = append(r.items[:i:i], r.items[i+1:]...)
			return nil
		}
	}
	return entity.ErrPresetNotFound
}
