package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/dreschagin/ddc-kiosk/internal/application/port"
	"github.com/dreschagin/ddc-kiosk/internal/domain/entity"
	"github.com/dreschagin/ddc-kiosk/internal/domain/valueobject"
	"github.com/dreschagin/ddc-kiosk/pkg/logger"
)

func TestManagePresetsUseCase_SaveDuplicateRequiresOverwrite(t *testing.T) {
	repo := &memoryPresets{}
	uc := NewManagePresetsUseCase(repo, newMapCache(), logger.New("error"))
	ctx := context.Background()

	if _, replaced, err := uc.Save(ctx, SavePresetCommand{Name: "Boiler", Connection: wvga("10.0.0.1")}); err != nil || replaced {
		t.Fatalf("first save: replaced=%v err=%v", replaced, err)
	}
	if _, _, err := uc.Save(ctx, SavePresetCommand{Name: "Lobby", Connection: wvga("10.0.0.2")}); err != nil {
		t.Fatalf("second save: %v", err)
	}

	_, _, err := uc.Save(ctx, SavePresetCommand{Name: "Boiler", Connection: wvga("10.0.0.3")})
	if !errors.Is(err, entity.ErrPresetExists) {
		t.Fatalf("expected ErrPresetExists, got %v", err)
	}

	_, replaced, err := uc.Save(ctx, SavePresetCommand{Name: "Boiler", Connection: wvga("10.0.0.3"), Overwrite: true})
	if err != nil || !replaced {
		t.Fatalf("overwrite: replaced=%v err=%v", replaced, err)
	}

	list, _ := uc.List(ctx)
	if len(list.Presets) != 2 {
		t.Fatalf("collection size must not change on overwrite, got %d", len(list.Presets))
	}
	if list.Presets[0].Name != "Boiler" || list.Presets[0].Host != "10.0.0.3" {
		t.Fatalf("expected in-place replacement, got %+v", list.Presets[0])
	}
}

func TestManagePresetsUseCase_SaveValidation(t *testing.T) {
	uc := NewManagePresetsUseCase(&memoryPresets{}, newMapCache(), logger.New("error"))

	tests := []struct {
		name    string
		cmd     SavePresetCommand
		wantErr error
	}{
		{name: "empty name", cmd: SavePresetCommand{Name: "  ", Connection: wvga("10.0.0.1")}, wantErr: entity.ErrInvalidPresetName},
		{name: "empty host", cmd: SavePresetCommand{Name: "x", Connection: wvga("")}, wantErr: entity.ErrInvalidAddress},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := uc.Save(context.Background(), tc.cmd)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestManagePresetsUseCase_AutoloadClearedOnDelete(t *testing.T) {
	repo := &memoryPresets{}
	cache := newMapCache()
	uc := NewManagePresetsUseCase(repo, cache, logger.New("error"))
	ctx := context.Background()

	if _, _, err := uc.Save(ctx, SavePresetCommand{Name: "Boiler", Connection: wvga("10.0.0.1")}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := uc.SetAutoload(ctx, "missing"); !errors.Is(err, entity.ErrPresetNotFound) {
		t.Fatalf("expected ErrPresetNotFound, got %v", err)
	}
	if err := uc.SetAutoload(ctx, "Boiler"); err != nil {
		t.Fatalf("SetAutoload() error = %v", err)
	}
	if p, ok := uc.Autoload(ctx); !ok || p.Host != "10.0.0.1" {
		t.Fatalf("expected autoload preset, got %+v ok=%v", p, ok)
	}

	if err := uc.Delete(ctx, "Boiler"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, ok := uc.Autoload(ctx); ok {
		t.Fatalf("autoload must be cleared with the preset")
	}
	var name string
	if err := cache.Get(ctx, port.SettingAutoloadPreset, &name); !errors.Is(err, port.ErrCacheMiss) {
		t.Fatalf("expected autoload key removed, got %q err=%v", name, err)
	}
}

func TestManagePresetsUseCase_Seed(t *testing.T) {
	repo := &memoryPresets{}
	uc := NewManagePresetsUseCase(repo, newMapCache(), logger.New("error"))
	ctx := context.Background()

	n, err := uc.Seed(ctx, nil)
	if err != nil || n != 2 {
		t.Fatalf("Seed() = %d, %v", n, err)
	}
	if repo.items[0].Name != "Local Demo" || repo.items[1].Host != "192.168.10.21" {
		t.Fatalf("unexpected defaults: %+v", repo.items)
	}

	n, _ = uc.Seed(ctx, []entity.Preset{{Name: "Other", Scheme: valueobject.HTTP, Host: "1.2.3.4", Resolution: valueobject.WVGA}})
	if n != 0 || len(repo.items) != 2 {
		t.Fatalf("seed must not touch a non-empty store")
	}
}

func TestManagePresetsUseCase_SeedSkipsInvalid(t *testing.T) {
	repo := &memoryPresets{}
	uc := NewManagePresetsUseCase(repo, newMapCache(), logger.New("error"))

	n, err := uc.Seed(context.Background(), []entity.Preset{
		{Name: "ok", Scheme: valueobject.HTTPS, Host: "10.1.1.1", Resolution: valueobject.QVGA},
		{Name: "ok", Scheme: valueobject.HTTP, Host: "10.1.1.2", Resolution: valueobject.WVGA},
		{Name: "bad", Scheme: valueobject.HTTP, Host: "", Resolution: valueobject.WVGA},
	})
	if err != nil || n != 1 {
		t.Fatalf("Seed() = %d, %v", n, err)
	}
	if got := uc.Hosts(context.Background()); len(got) != 1 || got[0] != "10.1.1.1" {
		t.Fatalf("unexpected hosts: %v", got)
	}
}

func TestSettingsUseCase(t *testing.T) {
	uc := NewSettingsUseCase(newMapCache(), logger.New("error"))
	ctx := context.Background()

	if _, err := uc.Get(ctx, "bad key!"); !errors.Is(err, ErrInvalidSettingKey) {
		t.Fatalf("expected ErrInvalidSettingKey, got %v", err)
	}
	if _, err := uc.Get(ctx, port.SettingConfigCollapsed); !errors.Is(err, ErrSettingNotFound) {
		t.Fatalf("expected ErrSettingNotFound, got %v", err)
	}
	if err := uc.Put(ctx, port.SettingConfigCollapsed, json.RawMessage(`{not json`)); err == nil {
		t.Fatalf("expected invalid JSON error")
	}
	if err := uc.Put(ctx, port.SettingConfigCollapsed, json.RawMessage(`true`)); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	raw, err := uc.Get(ctx, port.SettingConfigCollapsed)
	if err != nil || string(raw) != "true" {
		t.Fatalf("Get() = %s, %v", raw, err)
	}

	if _, ok := uc.LastConnection(ctx); ok {
		t.Fatalf("expected no last connection")
	}
	if err := uc.SaveLastConnection(ctx, wvga("10.0.0.7")); err != nil {
		t.Fatalf("SaveLastConnection() error = %v", err)
	}
	conn, ok := uc.LastConnection(ctx)
	if !ok || conn.Host != "10.0.0.7" || conn.Resolution != valueobject.WVGA {
		t.Fatalf("unexpected last connection: %+v", conn)
	}
}
