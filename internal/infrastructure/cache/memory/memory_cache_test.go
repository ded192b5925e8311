package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/dreschagin/ddc-kiosk/internal/application/port"
)

func TestCache(t *testing.T) {
	c := New()
	ctx := context.Background()

	var v string
	if err := c.Get(ctx, "missing", &v); !errors.Is(err, port.ErrCacheMiss) {
		t.Fatalf("expected ErrCacheMiss, got %v", err)
	}

	if err := c.Set(ctx, "ddc_last_connection", map[string]string{"ip": "10.0.0.1"}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	var got map[string]string
	if err := c.Get(ctx, "ddc_last_connection", &got); err != nil || got["ip"] != "10.0.0.1" {
		t.Fatalf("Get() = %v, %v", got, err)
	}

	_ = c.Set(ctx, "ddc_a", 1)
	_ = c.Set(ctx, "other", 2)
	if err := c.DeletePattern(ctx, "ddc_*"); err != nil {
		t.Fatalf("DeletePattern() error = %v", err)
	}
	var n int
	if err := c.Get(ctx, "other", &n); err != nil || n != 2 {
		t.Fatalf("pattern must keep unrelated keys, got %d %v", n, err)
	}
	if err := c.Get(ctx, "ddc_a", &n); !errors.Is(err, port.ErrCacheMiss) {
		t.Fatalf("expected ddc_a removed, got %v", err)
	}
}
