package handler

import (
	"net/http"
	"strings"

	"github.com/dreschagin/ddc-kiosk/internal/application/usecase"
	"github.com/dreschagin/ddc-kiosk/internal/interfaces/http/middleware"
	"github.com/dreschagin/ddc-kiosk/pkg/logger"
)

type PresetAPIHandler struct {
	presetsUC *usecase.ManagePresetsUseCase
	logger    *logger.Logger
}

type savePresetRequest struct {
	Name string `json:"name"`
	connectionRequest
	Overwrite bool `json:"overwrite"`
}

type autoloadRequest struct {
	Name string `json:"name"`
}

func NewPresetAPIHandler(presetsUC *usecase.ManagePresetsUseCase, log *logger.Logger) *PresetAPIHandler {
	return &PresetAPIHandler{presetsUC: presetsUC, logger: log}
}

// List GET /api/v1/presets
func (h *PresetAPIHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.presetsUC.List(r.Context())
	if err != nil {
		writeDomainError(w, err, h.logger, "Failed to list presets")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, list)
}

// Save POST /api/v1/presets. Дубликат без overwrite=true: 409.
func (h *PresetAPIHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req savePresetRequest
	if err := decodeJSON(r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	conn, err := req.config()
	if err != nil {
		writeDomainError(w, err, h.logger, "Failed to save preset")
		return
	}

	preset, replaced, err := h.presetsUC.Save(r.Context(), usecase.SavePresetCommand{
		Name:       req.Name,
		Connection: conn,
		Overwrite:  req.Overwrite,
	})
	if err != nil {
		writeDomainError(w, err, h.logger, "Failed to save preset")
		return
	}

	status := http.StatusCreated
	if replaced {
		status = http.StatusOK
	}
	middleware.WriteJSON(w, status, map[string]interface{}{
		"preset":   preset,
		"replaced": replaced,
	})
}

// Delete DELETE /api/v1/presets/{name}
func (h *PresetAPIHandler) Delete(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.PathValue("name"))
	if err := h.presetsUC.Delete(r.Context(), name); err != nil {
		writeDomainError(w, err, h.logger, "Failed to delete preset")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{"success": true, "name": name})
}

// GetAutoload GET /api/v1/presets/autoload
func (h *PresetAPIHandler) GetAutoload(w http.ResponseWriter, r *http.Request) {
	preset, ok := h.presetsUC.Autoload(r.Context())
	if !ok {
		middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{"preset": nil})
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{"preset": preset})
}

// SetAutoload PUT /api/v1/presets/autoload; пустое имя снимает выбор
func (h *PresetAPIHandler) SetAutoload(w http.ResponseWriter, r *http.Request) {
	var req autoloadRequest
	if err := decodeJSON(r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.presetsUC.SetAutoload(r.Context(), req.Name); err != nil {
		writeDomainError(w, err, h.logger, "Failed to set autoload preset")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{"success": true, "name": strings.TrimSpace(req.Name)})
}
