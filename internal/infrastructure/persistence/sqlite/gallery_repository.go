package sqlite

import (
	"context"
	"errors"
	"fmt"

	"github.com/dreschagin/ddc-kiosk/internal/domain/entity"
	"gorm.io/gorm"
)

// GalleryRepository реализует repository.GalleryRepository поверх gorm/sqlite
type GalleryRepository struct {
	db *gorm.DB
}

func NewGalleryRepository(db *gorm.DB) *GalleryRepository {
	return &GalleryRepository{db: db}
}

// Append вставляет снимок и удаляет самые старые сверх maxItems одной транзакцией
func (r *GalleryRepository) Append(ctx context.Context, shot *entity.Screenshot, maxItems int) ([]*entity.Screenshot, error) {
	var evicted []*entity.Screenshot

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxPosition int64
		if err := tx.Model(&ScreenshotRecord{}).Select("COALESCE(MAX(position), 0)").Scan(&maxPosition).Error; err != nil {
			return fmt.Errorf("failed to read gallery position: %w", err)
		}

		record, err := toScreenshotRecord(shot, maxPosition+1)
		if err != nil {
			return fmt.Errorf("failed to convert screenshot: %w", err)
		}
		if err := tx.Create(record).Error; err != nil {
			return fmt.Errorf("failed to insert screenshot: %w", err)
		}

		if maxItems <= 0 {
			return nil
		}

		var stale []ScreenshotRecord
		if err := tx.Order("position DESC").Offset(maxItems).Limit(-1).Find(&stale).Error; err != nil {
			return fmt.Errorf("failed to select evicted screenshots: %w", err)
		}
		if len(stale) == 0 {
			return nil
		}

		ids := make([]string, 0, len(stale))
		// самые старые первыми
		for i := len(stale) - 1; i >= 0; i-- {
			ids = append(ids, stale[i].ID)
			evicted = append(evicted, stale[i].toEntity())
		}
		if err := tx.Delete(&ScreenshotRecord{}, "id IN ?", ids).Error; err != nil {
			return fmt.Errorf("failed to evict screenshots: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return evicted, nil
}

func (r *GalleryRepository) List(ctx context.Context) ([]*entity.Screenshot, error) {
	var records []ScreenshotRecord
	if err := r.db.WithContext(ctx).Order("position DESC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list screenshots: %w", err)
	}
	shots := make([]*entity.Screenshot, len(records))
	for i := range records {
		shots[i] = records[i].toEntity()
	}
	return shots, nil
}

func (r *GalleryRepository) Get(ctx context.Context, id string) (*entity.Screenshot, error) {
	var record ScreenshotRecord
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, entity.ErrScreenshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get screenshot: %w", err)
	}
	return record.toEntity(), nil
}

func (r *GalleryRepository) Delete(ctx context.Context, id string) (*entity.Screenshot, error) {
	shot, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Delete(&ScreenshotRecord{}, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("failed to delete screenshot: %w", err)
	}
	return shot, nil
}

func (r *GalleryRepository) Clear(ctx context.Context) ([]*entity.Screenshot, error) {
	shots, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Where("1 = 1").Delete(&ScreenshotRecord{}).Error; err != nil {
		return nil, fmt.Errorf("failed to clear screenshots: %w", err)
	}
	return shots, nil
}

func (r *GalleryRepository) Count(ctx context.Context) (int, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&ScreenshotRecord{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count screenshots: %w", err)
	}
	return int(n), nil
}
