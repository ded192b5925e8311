package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/dreschagin/ddc-kiosk/internal/domain/entity"
	"github.com/dreschagin/ddc-kiosk/internal/domain/valueobject"
)

func shot(i int) *entity.Screenshot {
	conn := entity.ConnectionConfig{Scheme: valueobject.HTTP, Host: "10.0.0.1", Resolution: valueobject.WVGA}
	return entity.NewScreenshot(fmt.Sprintf("%d", i), []byte{1}, time.Unix(int64(i), 0), conn, 1)
}

func TestGalleryRepository_CapIsFIFO(t *testing.T) {
	r := NewGalleryRepository()
	ctx := context.Background()

	var evictedTotal []*entity.Screenshot
	for i := 1; i <= 55; i++ {
		evicted, err := r.Append(ctx, shot(i), 50)
		if err != nil {
			t.Fatalf("Append() error = %v", err)
		}
		evictedTotal = append(evictedTotal, evicted...)
	}

	items, _ := r.List(ctx)
	if len(items) != 50 {
		t.Fatalf("expected 50 items, got %d", len(items))
	}
	if items[0].ID != "55" || items[49].ID != "6" {
		t.Fatalf("expected newest first 55..6, got %s..%s", items[0].ID, items[49].ID)
	}
	if len(evictedTotal) != 5 || evictedTotal[0].ID != "1" || evictedTotal[4].ID != "5" {
		t.Fatalf("expected oldest evicted first, got %d items", len(evictedTotal))
	}
}

func TestGalleryRepository_EvictsOldestFirstWhenCapShrinks(t *testing.T) {
	r := NewGalleryRepository()
	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		_, _ = r.Append(ctx, shot(i), 50)
	}

	evicted, err := r.Append(ctx, shot(6), 2)
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	var ids []string
	for _, s := range evicted {
		ids = append(ids, s.ID)
	}
	if strings.Join(ids, ",") != "1,2,3,4" {
		t.Fatalf("expected evicted oldest first 1,2,3,4, got %v", ids)
	}
}

func TestGalleryRepository_DeleteAndClear(t *testing.T) {
	r := NewGalleryRepository()
	ctx := context.Background()
	for i := 1; i <= 3; i++ {
		_, _ = r.Append(ctx, shot(i), 50)
	}

	if _, err := r.Delete(ctx, "2"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := r.Get(ctx, "2"); !errors.Is(err, entity.ErrScreenshotNotFound) {
		t.Fatalf("expected ErrScreenshotNotFound, got %v", err)
	}
	removed, _ := r.Clear(ctx)
	if len(removed) != 2 {
		t.Fatalf("expected 2 removed, got %d", len(removed))
	}
	if n, _ := r.Count(ctx); n != 0 {
		t.Fatalf("expected empty gallery, got %d", n)
	}
}

func TestPresetRepository_UpsertKeepsPosition(t *testing.T) {
	r := NewPresetRepository()
	ctx := context.Background()
	for _, p := range entity.DefaultPresets() {
		if _, err := r.Upsert(ctx, p); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
	}

	replaced, _ := r.Upsert(ctx, entity.Preset{Name: "Local Demo", Scheme: valueobject.HTTPS, Host: "127.0.0.2", Resolution: valueobject.QVGA})
	if !replaced {
		t.Fatalf("expected replace")
	}
	list, _ := r.List(ctx)
	if len(list) != 2 || list[0].Host != "127.0.0.2" {
		t.Fatalf("unexpected presets: %+v", list)
	}
	if err := r.Delete(ctx, "missing"); !errors.Is(err, entity.ErrPresetNotFound) {
		t.Fatalf("expected ErrPresetNotFound, got %v", err)
	}
}
