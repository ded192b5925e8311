package handler

import (
	"net/http"
	"strings"

	"github.com/dreschagin/ddc-kiosk/internal/application/usecase"
	"github.com/dreschagin/ddc-kiosk/internal/interfaces/http/middleware"
	"github.com/dreschagin/ddc-kiosk/pkg/logger"
)

// ConnectionAPIHandler: построение адреса устройства и загрузка с проверкой
type ConnectionAPIHandler struct {
	connectUC *usecase.ConnectDeviceUseCase
	logger    *logger.Logger
}

type connectRequest struct {
	connectionRequest
	SkipProbe bool `json:"skipProbe"`
}

func NewConnectionAPIHandler(connectUC *usecase.ConnectDeviceUseCase, log *logger.Logger) *ConnectionAPIHandler {
	return &ConnectionAPIHandler{connectUC: connectUC, logger: log}
}

// BuildURL POST /api/v1/connection/url
func (h *ConnectionAPIHandler) BuildURL(w http.ResponseWriter, r *http.Request) {
	var req connectionRequest
	if err := decodeJSON(r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	conn, err := req.config()
	if err != nil {
		writeDomainError(w, err, h.logger, "Failed to build device url")
		return
	}

	u, err := h.connectUC.BuildURL(conn, shellScheme(r))
	if err != nil {
		writeDomainError(w, err, h.logger, "Failed to build device url")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, u)
}

// Connect POST /api/v1/connection/connect
func (h *ConnectionAPIHandler) Connect(w http.ResponseWriter, r *http.Request) {
	var req connectRequest
	if err := decodeJSON(r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	conn, err := req.config()
	if err != nil {
		writeDomainError(w, err, h.logger, "Failed to connect")
		return
	}

	status, err := h.connectUC.Execute(r.Context(), usecase.ConnectDeviceCommand{
		Connection:  conn,
		ShellScheme: shellScheme(r),
		SkipProbe:   req.SkipProbe,
	})
	if err != nil {
		writeDomainError(w, err, h.logger, "Failed to connect")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, status)
}

// Status GET /api/v1/connection/status?host=
func (h *ConnectionAPIHandler) Status(w http.ResponseWriter, r *http.Request) {
	host := strings.TrimSpace(r.URL.Query().Get("host"))
	if host == "" {
		middleware.WriteError(w, http.StatusBadRequest, "host is required")
		return
	}
	status, ok := h.connectUC.Status(host)
	if !ok {
		middleware.WriteError(w, http.StatusNotFound, "no connection attempts for "+host)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, status)
}
