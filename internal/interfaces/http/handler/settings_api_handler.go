package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/dreschagin/ddc-kiosk/internal/application/usecase"
	"github.com/dreschagin/ddc-kiosk/internal/interfaces/http/middleware"
	"github.com/dreschagin/ddc-kiosk/pkg/logger"
)

// SettingsAPIHandler: key→JSON настройки оболочки
type SettingsAPIHandler struct {
	settingsUC *usecase.SettingsUseCase
	logger     *logger.Logger
}

func NewSettingsAPIHandler(settingsUC *usecase.SettingsUseCase, log *logger.Logger) *SettingsAPIHandler {
	return &SettingsAPIHandler{settingsUC: settingsUC, logger: log}
}

// Get GET /api/v1/settings/{key}
func (h *SettingsAPIHandler) Get(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	value, err := h.settingsUC.Get(r.Context(), key)
	if err != nil {
		writeDomainError(w, err, h.logger, "Failed to read setting")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{"key": key, "value": value})
}

// Put PUT /api/v1/settings/{key}; тело: произвольный JSON
func (h *SettingsAPIHandler) Put(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	key := r.PathValue("key")
	if err := h.settingsUC.Put(r.Context(), key, json.RawMessage(body)); err != nil {
		writeDomainError(w, err, h.logger, "Failed to write setting")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{"key": key, "value": json.RawMessage(body)})
}
