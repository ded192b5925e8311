package repository

import (
	"context"

	"github.com/dreschagin/ddc-kiosk/internal/domain/entity"
)

// GalleryRepository хранит коллекцию скриншотов (Port).
// Порядок выдачи: от новых к старым.
type GalleryRepository interface {
	// Append добавляет скриншот в начало и удаляет самые старые сверх maxItems.
	// Возвращает удаленные записи (для очистки внешнего хранилища изображений).
	Append(ctx context.Context, shot *entity.Screenshot, maxItems int) ([]*entity.Screenshot, error)

	// List возвращает все скриншоты, новые первыми
	List(ctx context.Context) ([]*entity.Screenshot, error)

	// Get возвращает скриншот или entity.ErrScreenshotNotFound
	Get(ctx context.Context, id string) (*entity.Screenshot, error)

	// Delete удаляет один скриншот
	Delete(ctx context.Context, id string) (*entity.Screenshot, error)

	// Clear удаляет все скриншоты и возвращает удаленные
	Clear(ctx context.Context) ([]*entity.Screenshot, error)

	// Count возвращает размер коллекции
	Count(ctx context.Context) (int, error)
}
