package view

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/dreschagin/ddc-kiosk/internal/domain/entity"
	"github.com/dreschagin/ddc-kiosk/internal/domain/valueobject"
)

func TestShell_RendersFrameAndPrefill(t *testing.T) {
	var buf bytes.Buffer
	err := Shell(ShellProps{
		Version:        "ddc4000-browser-v1.1.0",
		Scheme:         "https",
		Host:           "10.0.0.5",
		Resolution:     "QVGA",
		Autoload:       true,
		AutoloadPreset: "Boiler",
		Presets: []entity.Preset{
			{Name: "Boiler", Scheme: valueobject.HTTP, Host: "10.0.0.5", Resolution: valueobject.QVGA},
			{Name: `<script>x</script>`, Scheme: valueobject.HTTP, Host: "10.0.0.6", Resolution: valueobject.WVGA},
		},
	}).Render(context.Background(), &buf)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	html := buf.String()
	for _, want := range []string{
		`id="ddcFrame"`,
		`value="10.0.0.5"`,
		`<option value="https" selected>`,
		`<option value="QVGA" selected>`,
		`Boiler ★`,
		`&#34;autoload&#34;:true`,
	} {
		if !strings.Contains(html, want) {
			t.Fatalf("rendered shell missing %q", want)
		}
	}
	if strings.Contains(html, "<script>x</script>") {
		t.Fatalf("preset name must be escaped")
	}
}

func TestShell_CollapsedPanel(t *testing.T) {
	var buf bytes.Buffer
	if err := Shell(ShellProps{ConfigCollapsed: true}).Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !strings.Contains(buf.String(), `class="config-panel collapsed"`) {
		t.Fatalf("expected collapsed config panel")
	}
	if !strings.Contains(buf.String(), `&#34;presets&#34;:[]`) {
		t.Fatalf("presets must render as an empty list")
	}
}
