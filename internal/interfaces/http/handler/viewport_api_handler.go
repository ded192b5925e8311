package handler

import (
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/dreschagin/ddc-kiosk/internal/application/usecase"
	"github.com/dreschagin/ddc-kiosk/internal/domain/service"
	"github.com/dreschagin/ddc-kiosk/internal/domain/valueobject"
	"github.com/dreschagin/ddc-kiosk/internal/interfaces/http/middleware"
	"github.com/dreschagin/ddc-kiosk/pkg/logger"
)

// ViewportAPIHandler: расчет масштаба окна просмотра (stateless и по сессиям)
type ViewportAPIHandler struct {
	sessionsUC *usecase.ViewportSessionsUseCase
	logger     *logger.Logger
}

type viewportRequest struct {
	Resolution      string          `json:"resolution"`
	ContainerWidth  float64         `json:"containerWidth"`
	ContainerHeight float64         `json:"containerHeight"`
	ViewportWidth   float64         `json:"viewportWidth"`
	ViewportHeight  float64         `json:"viewportHeight"`
	Zoom            float64         `json:"zoom"`
	Fullscreen      bool            `json:"fullscreen"`
	Touches         []service.Point `json:"touches"`
	// AtMs: время касания в unix ms (для double tap); 0: время сервера
	AtMs int64 `json:"atMs"`
}

func NewViewportAPIHandler(sessionsUC *usecase.ViewportSessionsUseCase, log *logger.Logger) *ViewportAPIHandler {
	return &ViewportAPIHandler{sessionsUC: sessionsUC, logger: log}
}

// Fit POST /api/v1/viewport/fit
func (h *ViewportAPIHandler) Fit(w http.ResponseWriter, r *http.Request) {
	var req viewportRequest
	if err := decodeJSON(r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	rc := valueobject.WVGA
	if req.Resolution != "" {
		parsed, err := valueobject.ParseResolutionClass(req.Resolution)
		if err != nil {
			writeDomainError(w, err, h.logger, "Failed to fit viewport")
			return
		}
		rc = parsed
	}

	middleware.WriteJSON(w, http.StatusOK, usecase.Fit(rc, req.ContainerWidth, req.ContainerHeight, req.ViewportWidth, req.ViewportHeight))
}

// Apply POST /api/v1/viewport/sessions/{id}/{action}
func (h *ViewportAPIHandler) Apply(w http.ResponseWriter, r *http.Request) {
	var req viewportRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	at := time.Now()
	if req.AtMs > 0 {
		at = time.UnixMilli(req.AtMs)
	}

	snap, err := h.sessionsUC.Apply(usecase.ViewportActionCommand{
		SessionID:       r.PathValue("id"),
		Action:          r.PathValue("action"),
		ContainerWidth:  req.ContainerWidth,
		ContainerHeight: req.ContainerHeight,
		ViewportWidth:   req.ViewportWidth,
		ViewportHeight:  req.ViewportHeight,
		Zoom:            req.Zoom,
		Resolution:      req.Resolution,
		Fullscreen:      req.Fullscreen,
		Touches:         req.Touches,
		At:              at,
	})
	if err != nil {
		writeDomainError(w, err, h.logger, "Failed to apply viewport action")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, snap)
}

// Get GET /api/v1/viewport/sessions/{id}
func (h *ViewportAPIHandler) Get(w http.ResponseWriter, r *http.Request) {
	snap, err := h.sessionsUC.Get(r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err, h.logger, "Failed to load viewport session")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, snap)
}

type inspectorRequest struct {
	Zoom   float64 `json:"zoom"`
	Action string  `json:"action"`
}

// Inspector POST /api/v1/viewport/inspector: шаг масштаба просмотрщика скриншотов
func (h *ViewportAPIHandler) Inspector(w http.ResponseWriter, r *http.Request) {
	var req inspectorRequest
	if err := decodeJSON(r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	zoom, err := usecase.InspectorStep(req.Zoom, req.Action)
	if err != nil {
		writeDomainError(w, err, h.logger, "Failed to zoom inspector")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"zoom":    zoom,
		"percent": int(math.Round(zoom * 100)),
	})
}
