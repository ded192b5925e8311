package handler

import (
	"io/fs"
	"net/http"
	"strconv"
	"strings"

	"github.com/dreschagin/ddc-kiosk/internal/application/port"
	"github.com/dreschagin/ddc-kiosk/internal/application/usecase"
	"github.com/dreschagin/ddc-kiosk/internal/domain/entity"
	"github.com/dreschagin/ddc-kiosk/internal/interfaces/view"
	"github.com/dreschagin/ddc-kiosk/pkg/logger"
)

// ShellHandler отдает страницу оболочки киоска и service worker
type ShellHandler struct {
	presetsUC  *usecase.ManagePresetsUseCase
	settingsUC *usecase.SettingsUseCase
	assets     fs.FS
	logger     *logger.Logger
}

func NewShellHandler(
	presetsUC *usecase.ManagePresetsUseCase,
	settingsUC *usecase.SettingsUseCase,
	assets fs.FS,
	log *logger.Logger,
) *ShellHandler {
	return &ShellHandler{
		presetsUC:  presetsUC,
		settingsUC: settingsUC,
		assets:     assets,
		logger:     log,
	}
}

// ShowShell GET /?ip=&autoload=true
func (h *ShellHandler) ShowShell(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	ctx := r.Context()
	props := view.ShellProps{
		Version:    usecase.ShellVersion,
		Scheme:     "http",
		Resolution: "WVGA",
	}

	// приоритет: ?ip= → последнее подключение
	if last, ok := h.settingsUC.LastConnection(ctx); ok {
		props.Scheme = last.Scheme.String()
		props.Host = last.Host
		props.Resolution = last.Resolution.String()
	}
	query := r.URL.Query()
	if ip := strings.TrimSpace(query.Get("ip")); ip != "" && entity.ValidateHost(ip) == nil {
		props.Host = ip
		props.Autoload, _ = strconv.ParseBool(query.Get("autoload"))
	}

	if list, err := h.presetsUC.List(ctx); err == nil {
		props.Presets = list.Presets
		props.AutoloadPreset = list.Autoload
	} else {
		h.logger.Warn("Failed to list presets for shell", "error", err.Error())
	}
	if raw, err := h.settingsUC.Get(ctx, port.SettingConfigCollapsed); err == nil {
		props.ConfigCollapsed = strings.TrimSpace(string(raw)) == "true"
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := view.Shell(props).Render(ctx, w); err != nil {
		h.logger.Error("Failed to render shell", err)
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
	}
}

// ServiceWorker GET /sw.js; scope: весь origin
func (h *ShellHandler) ServiceWorker(w http.ResponseWriter, r *http.Request) {
	body, err := fs.ReadFile(h.assets, "sw.js")
	if err != nil {
		h.logger.Error("Service worker asset missing", err)
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Header().Set("Service-Worker-Allowed", "/")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(body)
}
