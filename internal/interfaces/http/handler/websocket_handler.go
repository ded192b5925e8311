package handler

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/dreschagin/ddc-kiosk/internal/application/usecase"
	wsInfra "github.com/dreschagin/ddc-kiosk/internal/infrastructure/notification/websocket"
	"github.com/dreschagin/ddc-kiosk/internal/interfaces/http/middleware"
	"github.com/dreschagin/ddc-kiosk/pkg/logger"
	"github.com/gorilla/websocket"
)

// WebSocketHandler подписывает оболочки киоска на события (/ws?session=<id>)
type WebSocketHandler struct {
	hub            *wsInfra.Hub
	logger         *logger.Logger
	allowedOrigins map[string]struct{}
	authConfig     middleware.AuthConfig
	upgrader       websocket.Upgrader
}

// NewWebSocketHandler создает новый handler
func NewWebSocketHandler(
	hub *wsInfra.Hub,
	allowedOrigins []string,
	authConfig middleware.AuthConfig,
	logger *logger.Logger,
) *WebSocketHandler {
	originMap := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		originMap[trimmed] = struct{}{}
	}

	handler := &WebSocketHandler{
		hub:            hub,
		logger:         logger,
		allowedOrigins: originMap,
		authConfig:     authConfig,
	}

	handler.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     handler.checkOrigin,
	}

	return handler
}

// checkOrigin пропускает оболочку, открытую с того же host, и origins из ALLOWED_ORIGINS
func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		return false
	}

	parsed, err := url.Parse(origin)
	if err != nil || parsed.Host == "" {
		return false
	}
	if strings.EqualFold(parsed.Host, r.Host) {
		return true
	}

	normalized := parsed.Scheme + "://" + parsed.Host
	if _, ok := h.allowedOrigins[normalized]; ok {
		return true
	}
	_, ok := h.allowedOrigins["*"]
	return ok
}

// HandleConnection подключает оболочку. session привязывает клиента к его viewport
// session: snapshots зума чужих вкладок ему не приходят.
func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	if err := middleware.ValidateRequestAuth(r, h.authConfig); err != nil {
		h.logger.Warn("WebSocket unauthorized",
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	session := strings.TrimSpace(r.URL.Query().Get("session"))
	if session != "" && !usecase.ValidSessionID(session) {
		middleware.WriteError(w, http.StatusBadRequest, usecase.ErrInvalidSessionID.Error())
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", "error", err.Error(), "remote_addr", r.RemoteAddr)
		return
	}

	client := wsInfra.NewClient(h.hub, conn, session, h.logger)
	h.hub.Register(client)
	h.logger.Debug("Shell connected", "session", client.Session(), "remote_addr", r.RemoteAddr)

	go client.WritePump()
	go client.ReadPump()
}
