package memory

import (
	"context"
	"sync"

	"github.com/dreschagin/ddc-kiosk/internal/domain/entity"
)

// GalleryRepository: галерея в памяти процесса (GALLERY_DRIVER=memory, тесты)
type GalleryRepository struct {
	mu    sync.RWMutex
	items []*entity.Screenshot // новые первыми
}

func NewGalleryRepository() *GalleryRepository {
	return &GalleryRepository{}
}

func (r *GalleryRepository) Append(_ context.Context, shot *entity.Screenshot, maxItems int) ([]*entity.Screenshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	items := make([]*entity.Screenshot, 0, len(r.items)+1)
	items = append(items, shot)
	items = append(items, r.items...)

	// evicted: самые старые первыми, как в sqlite и dynamodb
	var evicted []*entity.Screenshot
	if maxItems > 0 && len(items) > maxItems {
		for i := len(items) - 1; i >= maxItems; i-- {
			evicted = append(evicted, items[i])
		}
		items = items[:maxItems]
	}
	r.items = items
	return evicted, nil
}

func (r *GalleryRepository) List(_ context.Context) ([]*entity.Screenshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*entity.Screenshot(nil), r.items...), nil
}

func (r *GalleryRepository) Get(_ context.Context, id string) (*entity.Screenshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.items {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, entity.ErrScreenshotNotFound
}

func (r *GalleryRepository) Delete(_ context.Context, id string) (*entity.Screenshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, s := range r.items {
		if s.ID == id {
			r.items = append(r.items[:i:i], r.items[i+1:]...)
			return s, nil
		}
	}
	return nil, entity.ErrScreenshotNotFound
}

func (r *GalleryRepository) Clear(_ context.Context) ([]*entity.Screenshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := r.items
	r.items = nil
	return removed, nil
}

func (r *GalleryRepository) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items), nil
}
