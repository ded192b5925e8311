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
)

// GalleryDownload: PNG и имя файла для Content-Disposition.
// Если изображение хранится только во внешнем хранилище, заполнен RedirectURL.
type GalleryDownload struct {
	Filename    string
	PNG         []byte
	RedirectURL string
}

// ManageGalleryUseCase: просмотр и очистка галереи скриншотов
type ManageGalleryUseCase struct {
	gallery  repository.GalleryRepository
	storage  port.ScreenshotStorage
	notifier port.NotificationService
	events   port.EventPublisher
	logger   *logger.Logger
}

func NewManageGalleryUseCase(
	gallery repository.GalleryRepository,
	storage port.ScreenshotStorage,
	notifier port.NotificationService,
	events port.EventPublisher,
	log *logger.Logger,
) *ManageGalleryUseCase {
	return &ManageGalleryUseCase{
		gallery:  gallery,
		storage:  storage,
		notifier: notifier,
		events:   events,
		logger:   log,
	}
}

func (uc *ManageGalleryUseCase) List(ctx context.Context) ([]*entity.Screenshot, error) {
	shots, err := uc.gallery.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list gallery: %w", err)
	}
	return shots, nil
}

func (uc *ManageGalleryUseCase) Get(ctx context.Context, id string) (*entity.Screenshot, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, entity.ErrScreenshotNotFound
	}
	return uc.gallery.Get(ctx, id)
}

func (uc *ManageGalleryUseCase) Download(ctx context.Context, id string) (*GalleryDownload, error) {
	shot, err := uc.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if shot.DataURL == "" && shot.ObjectKey != "" {
		return uc.archived(ctx, shot)
	}
	png, err := shot.PNG()
	if err != nil {
		return nil, fmt.Errorf("failed to decode screenshot %s: %w", shot.ID, err)
	}
	return &GalleryDownload{Filename: shot.Filename(), PNG: png}, nil
}

func (uc *ManageGalleryUseCase) archived(ctx context.Context, shot *entity.Screenshot) (*GalleryDownload, error) {
	url := shot.ObjectURL
	if uc.storage != nil {
		if fresh, err := uc.storage.GetObjectURL(ctx, shot.ObjectKey); err == nil {
			url = fresh
		}
	}
	if url == "" {
		return nil, fmt.Errorf("screenshot %s has no image data", shot.ID)
	}
	return &GalleryDownload{Filename: shot.Filename(), RedirectURL: url}, nil
}

func (uc *ManageGalleryUseCase) Delete(ctx context.Context, id string) error {
	removed, err := uc.gallery.Delete(ctx, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, entity.ErrScreenshotNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete screenshot: %w", err)
	}

	uc.removeObjects(ctx, []*entity.Screenshot{removed})
	uc.logger.Info("Screenshot deleted", "screenshot_id", removed.ID)
	uc.changed(ctx, "deleted", removed.ID)
	return nil
}

// Clear удаляет все скриншоты и возвращает их количество
func (uc *ManageGalleryUseCase) Clear(ctx context.Context) (int, error) {
	removed, err := uc.gallery.Clear(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to clear gallery: %w", err)
	}

	uc.removeObjects(ctx, removed)
	uc.logger.Info("Gallery cleared", "removed", len(removed))
	uc.changed(ctx, "cleared", "")
	return len(removed), nil
}

func (uc *ManageGalleryUseCase) removeObjects(ctx context.Context, shots []*entity.Screenshot) {
	if uc.storage == nil {
		return
	}
	for _, key := range objectKeys(shots) {
		if err := uc.storage.DeleteObject(ctx, key); err != nil {
			uc.logger.Warn("Failed to delete screenshot object", "key", key, "error", err.Error())
		}
	}
}

func (uc *ManageGalleryUseCase) changed(ctx context.Context, action, id string) {
	count, err := uc.gallery.Count(ctx)
	if err != nil {
		count = -1
	}
	payload := map[string]interface{}{"action": action, "id": id, "count": count}

	if uc.notifier != nil {
		uc.notifier.Broadcast(port.NotifyGallery, payload)
	}
	if uc.events != nil {
		if err := uc.events.PublishEvent(ctx, port.SubjectGalleryChanged, payload); err != nil {
			uc.logger.Warn("Failed to publish gallery event", "error", err.Error())
		}
	}
}
