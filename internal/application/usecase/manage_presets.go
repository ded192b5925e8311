package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dreschagin/ddc-kiosk/internal/application/port"
	"github.com/dreschagin/ddc-kiosk/internal/domain/entity"
	"github.com/dreschagin/ddc-kiosk/internal/domain/repository"
	"github.com/dreschagin/ddc-kiosk/pkg/logger"
	"github.com/samber/lo"
)

type SavePresetCommand struct {
	Name       string
	Connection entity.ConnectionConfig
	// Overwrite: пользователь подтвердил замену существующего preset'а
	Overwrite bool
}

type PresetList struct {
	Presets  []entity.Preset `json:"presets"`
	Autoload string          `json:"autoload,omitempty"`
}

// ManagePresetsUseCase: CRUD именованных подключений и выбор preset'а для автозагрузки
type ManagePresetsUseCase struct {
	presets repository.PresetRepository
	store   port.Cache
	logger  *logger.Logger
}

func NewManagePresetsUseCase(presets repository.PresetRepository, store port.Cache, log *logger.Logger) *ManagePresetsUseCase {
	return &ManagePresetsUseCase{presets: presets, store: store, logger: log}
}

func (uc *ManagePresetsUseCase) List(ctx context.Context) (*PresetList, error) {
	presets, err := uc.presets.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list presets: %w", err)
	}
	name, _ := uc.autoloadName(ctx)
	return &PresetList{Presets: presets, Autoload: name}, nil
}

// Save добавляет preset. Дубликат имени без Overwrite возвращает ErrPresetExists,
// с Overwrite запись заменяется на месте.
func (uc *ManagePresetsUseCase) Save(ctx context.Context, cmd SavePresetCommand) (entity.Preset, bool, error) {
	preset, err := entity.NewPreset(cmd.Name, cmd.Connection)
	if err != nil {
		return entity.Preset{}, false, err
	}

	if !cmd.Overwrite {
		if _, err := uc.presets.Get(ctx, preset.Name); err == nil {
			return entity.Preset{}, false, fmt.Errorf("%w: %q", entity.ErrPresetExists, preset.Name)
		} else if !errors.Is(err, entity.ErrPresetNotFound) {
			return entity.Preset{}, false, fmt.Errorf("failed to check preset: %w", err)
		}
	}

	replaced, err := uc.presets.Upsert(ctx, preset)
	if err != nil {
		return entity.Preset{}, false, fmt.Errorf("failed to save preset: %w", err)
	}

	uc.logger.Info("Preset saved", "name", preset.Name, "host", preset.Host, "replaced", replaced)
	return preset, replaced, nil
}

// Delete удаляет preset; если он был выбран для автозагрузки, выбор сбрасывается
func (uc *ManagePresetsUseCase) Delete(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if err := uc.presets.Delete(ctx, name); err != nil {
		return err
	}

	if current, ok := uc.autoloadName(ctx); ok && current == name {
		if err := uc.store.Delete(ctx, port.SettingAutoloadPreset); err != nil {
			uc.logger.Warn("Failed to clear autoload preset", "error", err.Error())
		}
	}

	uc.logger.Info("Preset deleted", "name", name)
	return nil
}

// SetAutoload выбирает preset для автозагрузки; пустое имя снимает выбор
func (uc *ManagePresetsUseCase) SetAutoload(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return uc.store.Delete(ctx, port.SettingAutoloadPreset)
	}
	if _, err := uc.presets.Get(ctx, name); err != nil {
		return err
	}
	if err := uc.store.Set(ctx, port.SettingAutoloadPreset, name); err != nil {
		return fmt.Errorf("failed to save autoload preset: %w", err)
	}
	return nil
}

// Autoload возвращает выбранный preset, если он еще существует
func (uc *ManagePresetsUseCase) Autoload(ctx context.Context) (entity.Preset, bool) {
	name, ok := uc.autoloadName(ctx)
	if !ok {
		return entity.Preset{}, false
	}
	preset, err := uc.presets.Get(ctx, name)
	if err != nil {
		return entity.Preset{}, false
	}
	return preset, true
}

// Seed заполняет пустое хранилище; непустое не трогает
func (uc *ManagePresetsUseCase) Seed(ctx context.Context, seed []entity.Preset) (int, error) {
	existing, err := uc.presets.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list presets: %w", err)
	}
	if len(existing) > 0 {
		return 0, nil
	}
	if len(seed) == 0 {
		seed = entity.DefaultPresets()
	}

	valid := lo.Filter(seed, func(p entity.Preset, _ int) bool {
		if err := p.Validate(); err != nil {
			uc.logger.Warn("Skipping invalid seed preset", "name", p.Name, "error", err.Error())
			return false
		}
		return true
	})
	valid = lo.UniqBy(valid, func(p entity.Preset) string { return p.Name })

	for _, p := range valid {
		if _, err := uc.presets.Upsert(ctx, p); err != nil {
			return 0, fmt.Errorf("failed to seed preset %s: %w", p.Name, err)
		}
	}
	uc.logger.Info("Presets seeded", "count", len(valid))
	return len(valid), nil
}

// Hosts возвращает адреса всех preset'ов (для allowlist proxy)
func (uc *ManagePresetsUseCase) Hosts(ctx context.Context) []string {
	presets, err := uc.presets.List(ctx)
	if err != nil {
		return nil
	}
	return lo.Uniq(lo.Map(presets, func(p entity.Preset, _ int) string { return p.Host }))
}

func (uc *ManagePresetsUseCase) autoloadName(ctx context.Context) (string, bool) {
	if uc.store == nil {
		return "", false
	}
	var name string
	if err := uc.store.Get(ctx, port.SettingAutoloadPreset, &name); err != nil || name == "" {
		return "", false
	}
	return name, true
}
