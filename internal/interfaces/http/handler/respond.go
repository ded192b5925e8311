package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/dreschagin/ddc-kiosk/internal/application/usecase"
	"github.com/dreschagin/ddc-kiosk/internal/domain/entity"
	"github.com/dreschagin/ddc-kiosk/internal/domain/valueobject"
	"github.com/dreschagin/ddc-kiosk/internal/interfaces/http/middleware"
	"github.com/dreschagin/ddc-kiosk/pkg/logger"
)

const maxRequestBody = 1 << 20

var errEmptyBody = errors.New("request body is required")

// decodeJSON читает тело запроса (не больше 1 MiB)
func decodeJSON(r *http.Request, dest interface{}) error {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody+1))
	if err != nil {
		return fmt.Errorf("failed to read body: %w", err)
	}
	if len(body) > maxRequestBody {
		return fmt.Errorf("request body too large")
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return errEmptyBody
	}
	return sonic.Unmarshal(body, dest)
}

// writeDomainError сопоставляет ошибки домена с HTTP статусами.
// Неизвестные ошибки логируются, клиент получает общий текст.
func writeDomainError(w http.ResponseWriter, err error, log *logger.Logger, msg string) {
	switch {
	case errors.Is(err, entity.ErrInvalidAddress),
		errors.Is(err, entity.ErrInvalidPresetName),
		errors.Is(err, valueobject.ErrInvalidResolution),
		errors.Is(err, valueobject.ErrInvalidScheme),
		errors.Is(err, usecase.ErrInvalidSettingKey),
		errors.Is(err, usecase.ErrInvalidSessionID),
		errors.Is(err, usecase.ErrUnknownAction):
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, entity.ErrPresetNotFound),
		errors.Is(err, entity.ErrScreenshotNotFound),
		errors.Is(err, usecase.ErrSettingNotFound):
		middleware.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, entity.ErrPresetExists):
		middleware.WriteError(w, http.StatusConflict, err.Error())
	default:
		log.Error(msg, err)
		middleware.WriteError(w, http.StatusInternalServerError, msg)
	}
}

// connectionRequest: поля формы подключения, как их отправляет оболочка
type connectionRequest struct {
	IP         string `json:"ip"`
	Protocol   string `json:"protocol"`
	Resolution string `json:"resolution"`
}

func (c connectionRequest) config() (entity.ConnectionConfig, error) {
	return entity.NewConnectionConfig(c.Protocol, c.IP, c.Resolution)
}

// shellScheme: схема, по которой открыта оболочка (с учетом TLS-терминации на reverse proxy)
func shellScheme(r *http.Request) string {
	if proto := strings.TrimSpace(r.Header.Get("X-Forwarded-Proto")); proto != "" {
		return strings.ToLower(strings.Split(proto, ",")[0])
	}
	if r.TLS != nil {
		return "https"
	}
	return "http"
}
