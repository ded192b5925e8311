package http

import "embed"

// staticFiles: ассеты оболочки киоска: app.js, style.css, sw.js и manifest.json
//
//go:embed static
var staticFiles embed.FS
