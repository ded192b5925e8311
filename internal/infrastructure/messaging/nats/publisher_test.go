package nats

import (
	"testing"
	"time"

	"github.com/bytedance/sonic"
)

func TestEncode(t *testing.T) {
	at := time.Date(2026, 5, 6, 7, 8, 9, 0, time.FixedZone("MSK", 3*3600))
	data, err := Encode("lobby", "kiosk.gallery.changed", map[string]interface{}{"action": "cleared", "count": 0}, at)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	var got struct {
		KioskID    string                 `json:"kioskId"`
		Subject    string                 `json:"subject"`
		OccurredAt time.Time              `json:"occurredAt"`
		Data       map[string]interface{} `json:"data"`
	}
	if err := sonic.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.KioskID != "lobby" || got.Subject != "kiosk.gallery.changed" {
		t.Fatalf("unexpected envelope: %+v", got)
	}
	if !got.OccurredAt.Equal(at) || got.OccurredAt.Location() != time.UTC {
		t.Fatalf("expected UTC timestamp, got %v", got.OccurredAt)
	}
	if got.Data["action"] != "cleared" {
		t.Fatalf("unexpected data: %v", got.Data)
	}
}
