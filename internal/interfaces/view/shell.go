package view

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"
	"github.com/bytedance/sonic"
	"github.com/dreschagin/ddc-kiosk/internal/domain/entity"
)

// ShellProps: начальное состояние страницы оболочки
type ShellProps struct {
	Version         string
	Scheme          string
	Host            string
	Resolution      string
	Autoload        bool
	AutoloadPreset  string
	ConfigCollapsed bool
	Presets         []entity.Preset
}

type shellBootstrap struct {
	Version         string          `json:"version"`
	Protocol        string          `json:"protocol"`
	IP              string          `json:"ip"`
	Resolution      string          `json:"resolution"`
	Autoload        bool            `json:"autoload"`
	AutoloadPreset  string          `json:"autoloadPreset,omitempty"`
	ConfigCollapsed bool            `json:"configCollapsed"`
	Presets         []entity.Preset `json:"presets"`
}

var resolutions = []struct {
	value string
	label string
}{
	{value: "WVGA", label: "WVGA (800×480)"},
	{value: "QVGA", label: "QVGA (320×240)"},
}

// Shell рендерит страницу киоска: панель подключения, toolbar и iframe #ddcFrame.
// Состояние передается в app.js через data-bootstrap.
func Shell(p ShellProps) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		presets := p.Presets
		if presets == nil {
			presets = []entity.Preset{}
		}
		bootstrap, err := sonic.Marshal(shellBootstrap{
			Version:         p.Version,
			Protocol:        p.Scheme,
			IP:              p.Host,
			Resolution:      p.Resolution,
			Autoload:        p.Autoload,
			AutoloadPreset:  p.AutoloadPreset,
			ConfigCollapsed: p.ConfigCollapsed,
			Presets:         presets,
		})
		if err != nil {
			return fmt.Errorf("failed to encode shell bootstrap: %w", err)
		}

		var b strings.Builder
		b.WriteString(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0, user-scalable=no">
  <meta name="theme-color" content="#1f2d3d">
  <title>DDC4000 Browser</title>
  <link rel="manifest" href="/static/manifest.json">
  <link rel="stylesheet" href="/static/css/style.css">
</head>
`)
		b.WriteString(`<body data-bootstrap="` + templ.EscapeString(string(bootstrap)) + `">`)

		panelClass := "config-panel"
		if p.ConfigCollapsed {
			panelClass += " collapsed"
		}
		b.WriteString(`
  <header class="` + panelClass + `" id="configPanel">
    <div class="config-title">
      <h1>DDC4000 Browser</h1>
      <button type="button" id="toggleConfig" class="icon-btn" title="Collapse">▾</button>
    </div>
    <form id="connectForm" class="config-body" autocomplete="off">
      <label>Protocol
        <select id="protocol" name="protocol">`)
		for _, scheme := range []string{"http", "https"} {
			b.WriteString(option(scheme, scheme, scheme == p.Scheme))
		}
		b.WriteString(`</select>
      </label>
      <label>Address
        <input id="ip" name="ip" type="text" placeholder="192.168.10.21" value="` + templ.EscapeString(p.Host) + `" required>
      </label>
      <label>Resolution
        <select id="resolution" name="resolution">`)
		for _, r := range resolutions {
			b.WriteString(option(r.value, r.label, r.value == p.Resolution))
		}
		b.WriteString(`</select>
      </label>
      <button type="submit" id="connectBtn" class="primary">Connect</button>
      <div class="presets">
        <select id="presetSelect">
          <option value="">Presets…</option>`)
		for _, preset := range presets {
			label := preset.Name
			if preset.Name == p.AutoloadPreset {
				label += " ★"
			}
			b.WriteString(option(preset.Name, label, false))
		}
		b.WriteString(`</select>
        <button type="button" id="savePreset">Save</button>
        <button type="button" id="deletePreset">Delete</button>
        <label class="inline"><input type="checkbox" id="autoloadPreset"> Autoload</label>
      </div>
    </form>
  </header>

  <nav class="toolbar">
    <button type="button" data-action="zoom-out" title="Zoom out">−</button>
    <span id="zoomLevel">100%</span>
    <button type="button" data-action="zoom-in" title="Zoom in">+</button>
    <button type="button" data-action="reset">1:1</button>
    <button type="button" data-action="auto-fit">Fit</button>
    <button type="button" data-action="fullscreen">Fullscreen</button>
    <button type="button" id="captureBtn">Screenshot</button>
    <button type="button" id="galleryBtn">Gallery <span id="galleryCount">0</span></button>
    <span id="status" class="status idle">Not connected</span>
  </nav>

  <main id="viewport" class="viewport">
    <div id="frameWrapper" class="frame-wrapper">
      <iframe id="ddcFrame" title="DDC4000" src="about:blank" sandbox="allow-scripts allow-same-origin allow-forms"></iframe>
    </div>
  </main>

  <dialog id="galleryDialog" class="gallery">
    <header>
      <h2>Screenshots</h2>
      <button type="button" id="clearGallery">Clear all</button>
      <button type="button" id="closeGallery">Close</button>
    </header>
    <div id="galleryItems" class="gallery-items"></div>
  </dialog>

  <dialog id="inspectorDialog" class="inspector">
    <header>
      <button type="button" data-inspector="zoom-out">-</button>
      <span id="inspectorZoom">100%</span>
      <button type="button" data-inspector="zoom-in">+</button>
      <button type="button" data-inspector="reset">Reset</button>
      <button type="button" id="closeInspector">Close</button>
    </header>
    <div class="inspector-frame"><img id="inspectorImage" alt=""></div>
  </dialog>

  <script src="/static/js/app.js" defer></script>
</body>
</html>
`)
		_, err = io.WriteString(w, b.String())
		return err
	})
}

func option(value, label string, selected bool) string {
	attr := ""
	if selected {
		attr = " selected"
	}
	return `<option value="` + templ.EscapeString(value) + `"` + attr + `>` + templ.EscapeString(label) + `</option>`
}
