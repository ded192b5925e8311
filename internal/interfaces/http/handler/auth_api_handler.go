package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/dreschagin/ddc-kiosk/internal/interfaces/http/middleware"
	"github.com/dreschagin/ddc-kiosk/pkg/logger"
)

// AuthAPIHandler выдает cookie киоска для браузера оболочки
type AuthAPIHandler struct {
	authConfig middleware.AuthConfig
	logger     *logger.Logger
}

type authLoginRequest struct {
	Token string `json:"token"`
}

type authStatusResponse struct {
	AuthEnabled   bool       `json:"authEnabled"`
	Authenticated bool       `json:"authenticated"`
	CookiePresent bool       `json:"cookiePresent"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty"`
}

func NewAuthAPIHandler(authConfig middleware.AuthConfig, log *logger.Logger) *AuthAPIHandler {
	return &AuthAPIHandler{
		authConfig: authConfig,
		logger:     log,
	}
}

// Login POST /api/v1/auth/login {"token": "..."}
func (h *AuthAPIHandler) Login(w http.ResponseWriter, r *http.Request) {
	if !h.authConfig.Enabled {
		middleware.WriteJSON(w, http.StatusOK, authStatusResponse{Authenticated: true})
		return
	}

	var req authLoginRequest
	if err := decodeJSON(r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	token := strings.TrimSpace(req.Token)
	if !middleware.TokenMatches(h.authConfig, token) {
		h.logger.Warn("Auth login failed", "remote_addr", r.RemoteAddr)
		if h.authConfig.OnFailure != nil {
			h.authConfig.OnFailure()
		}
		middleware.WriteError(w, http.StatusUnauthorized, "Invalid token")
		return
	}

	maxAge := h.authConfig.CookieMaxAge()
	middleware.WriteAuthCookie(w, token, middleware.IsSecureRequest(r), maxAge)

	expires := time.Now().UTC().Add(time.Duration(maxAge) * time.Second)
	h.logger.Info("Shell logged in", "remote_addr", r.RemoteAddr, "expires_at", expires.Format(time.RFC3339))
	middleware.WriteJSON(w, http.StatusOK, authStatusResponse{
		AuthEnabled:   true,
		Authenticated: true,
		CookiePresent: true,
		ExpiresAt:     &expires,
	})
}

// Logout POST /api/v1/auth/logout
func (h *AuthAPIHandler) Logout(w http.ResponseWriter, r *http.Request) {
	middleware.ClearAuthCookie(w, middleware.IsSecureRequest(r))
	middleware.WriteJSON(w, http.StatusOK, authStatusResponse{AuthEnabled: h.authConfig.Enabled})
}

// Status GET /api/v1/auth/status
func (h *AuthAPIHandler) Status(w http.ResponseWriter, r *http.Request) {
	err := middleware.ValidateRequestAuth(r, h.authConfig)
	middleware.WriteJSON(w, http.StatusOK, authStatusResponse{
		AuthEnabled:   h.authConfig.Enabled,
		Authenticated: err == nil,
		CookiePresent: hasAuthCookie(r),
	})
}

func hasAuthCookie(r *http.Request) bool {
	c, err := r.Cookie(middleware.AuthCookieName)
	if err != nil {
		return false
	}
	return strings.TrimSpace(c.Value) != ""
}
