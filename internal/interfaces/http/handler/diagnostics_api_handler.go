package handler

import (
	"net/http"

	"github.com/dreschagin/ddc-kiosk/internal/application/usecase"
	"github.com/dreschagin/ddc-kiosk/internal/interfaces/http/middleware"
)

type DiagnosticsAPIHandler struct {
	diagnosticsUC *usecase.DiagnosticsUseCase
}

func NewDiagnosticsAPIHandler(diagnosticsUC *usecase.DiagnosticsUseCase) *DiagnosticsAPIHandler {
	return &DiagnosticsAPIHandler{diagnosticsUC: diagnosticsUC}
}

// Diagnostics GET /api/v1/diagnostics
func (h *DiagnosticsAPIHandler) Diagnostics(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, h.diagnosticsUC.Execute(r.Context()))
}

// Version GET /api/v1/version: имя кеша service worker'а
func (h *DiagnosticsAPIHandler) Version(w http.ResponseWriter, _ *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"version": usecase.ShellVersion})
}
