package sqlite

import (
	"context"
	"errors"
	"fmt"

	"github.com/dreschagin/ddc-kiosk/internal/domain/entity"
	"gorm.io/gorm"
)

// PresetRepository реализует repository.PresetRepository поверх gorm/sqlite
type PresetRepository struct {
	db *gorm.DB
}

func NewPresetRepository(db *gorm.DB) *PresetRepository {
	return &PresetRepository{db: db}
}

func (r *PresetRepository) List(ctx context.Context) ([]entity.Preset, error) {
	var records []PresetRecord
	if err := r.db.WithContext(ctx).Order("position ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list presets: %w", err)
	}
	presets := make([]entity.Preset, len(records))
	for i := range records {
		presets[i] = records[i].toEntity()
	}
	return presets, nil
}

func (r *PresetRepository) Get(ctx context.Context, name string) (entity.Preset, error) {
	var record PresetRecord
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return entity.Preset{}, entity.ErrPresetNotFound
	}
	if err != nil {
		return entity.Preset{}, fmt.Errorf("failed to get preset: %w", err)
	}
	return record.toEntity(), nil
}

// Upsert заменяет существующую запись на месте (Position сохраняется)
func (r *PresetRepository) Upsert(ctx context.Context, preset entity.Preset) (bool, error) {
	replaced := false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing PresetRecord
		err := tx.Where("name = ?", preset.Name).First(&existing).Error
		switch {
		case err == nil:
			replaced = true
			return tx.Model(&PresetRecord{}).Where("id = ?", existing.ID).Updates(map[string]interface{}{
				"scheme":     preset.Scheme.String(),
				"host":       preset.Host,
				"resolution": preset.Resolution.String(),
			}).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			var maxPosition int64
			if err := tx.Model(&PresetRecord{}).Select("COALESCE(MAX(position), 0)").Scan(&maxPosition).Error; err != nil {
				return err
			}
			return tx.Create(&PresetRecord{
				Name:       preset.Name,
				Position:   maxPosition + 1,
				Scheme:     preset.Scheme.String(),
				Host:       preset.Host,
				Resolution: preset.Resolution.String(),
			}).Error
		default:
			return err
		}
	})
	if err != nil {
		return false, fmt.Errorf("failed to save preset: %w", err)
	}
	return replaced, nil
}

func (r *PresetRepository) Delete(ctx context.Context, name string) error {
	res := r.db.WithContext(ctx).Delete(&PresetRecord{}, "name = ?", name)
	if res.Error != nil {
		return fmt.Errorf("failed to delete preset: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return entity.ErrPresetNotFound
	}
	return nil
}
