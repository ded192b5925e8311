package usecase

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dreschagin/ddc-kiosk/internal/application/port"
	"github.com/dreschagin/ddc-kiosk/internal/domain/entity"
	"github.com/dreschagin/ddc-kiosk/pkg/logger"
)

func seedGallery(t *testing.T, n int) *memoryGallery {
	t.Helper()
	g := &memoryGallery{}
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	for i := 0; i < n; i++ {
		shot := entity.NewScreenshot(
			"id-"+string(rune('a'+i)),
			testPNG(2, 2),
			base.Add(time.Duration(i)*time.Second),
			wvga("10.0.0.1"),
			1,
		)
		shot.ObjectKey = "k/" + shot.ID
		if _, err := g.Append(context.Background(), shot, 50); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}
	return g
}

func TestManageGalleryUseCase_Download(t *testing.T) {
	g := seedGallery(t, 1)
	uc := NewManageGalleryUseCase(g, nil, nil, nil, logger.New("error"))

	d, err := uc.Download(context.Background(), "id-a")
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if d.Filename != "ddc-screenshot-2026-01-02-03-04-05.png" {
		t.Fatalf("unexpected filename: %s", d.Filename)
	}
	if !bytes.Equal(d.PNG, testPNG(2, 2)) {
		t.Fatalf("downloaded bytes differ from captured PNG")
	}

	if _, err := uc.Download(context.Background(), "nope"); !errors.Is(err, entity.ErrScreenshotNotFound) {
		t.Fatalf("expected ErrScreenshotNotFound, got %v", err)
	}
}

func TestManageGalleryUseCase_DeleteAndClear(t *testing.T) {
	g := seedGallery(t, 3)
	storage := &mockScreenshotStorage{}
	notifier := &mockNotifier{}
	events := &mockEvents{}
	uc := NewManageGalleryUseCase(g, storage, notifier, events, logger.New("error"))
	ctx := context.Background()

	if err := uc.Delete(ctx, "id-b"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := uc.Delete(ctx, "id-b"); !errors.Is(err, entity.ErrScreenshotNotFound) {
		t.Fatalf("expected ErrScreenshotNotFound, got %v", err)
	}
	list, _ := uc.List(ctx)
	if len(list) != 2 || list[0].ID != "id-c" || list[1].ID != "id-a" {
		t.Fatalf("unexpected gallery after delete: %d items", len(list))
	}

	n, err := uc.Clear(ctx)
	if err != nil || n != 2 {
		t.Fatalf("Clear() = %d, %v", n, err)
	}
	if len(storage.deletes) != 3 {
		t.Fatalf("expected 3 object deletions, got %v", storage.deletes)
	}
	if notifier.count(port.NotifyGallery) != 2 || len(events.subjects) != 2 {
		t.Fatalf("expected a gallery event per change")
	}
}
