package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dreschagin/ddc-kiosk/internal/application/dto"
	"github.com/dreschagin/ddc-kiosk/internal/application/usecase"
	"github.com/dreschagin/ddc-kiosk/internal/domain/entity"
	"github.com/dreschagin/ddc-kiosk/internal/domain/valueobject"
	"github.com/dreschagin/ddc-kiosk/internal/interfaces/http/middleware"
	"github.com/dreschagin/ddc-kiosk/pkg/logger"
)

// CaptureAPIHandler: POST /api/v1/capture
type CaptureAPIHandler struct {
	captureUC  *usecase.CaptureScreenshotUseCase
	settingsUC *usecase.SettingsUseCase
	logger     *logger.Logger
}

type captureRequest struct {
	connectionRequest
	Zoom   float64 `json:"zoom"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
}

type captureResponse struct {
	Screenshot *dto.ScreenshotDTO        `json:"screenshot"`
	Fallback   bool                      `json:"fallback"`
	Failures   []usecase.StrategyFailure `json:"failures"`
	Evicted    int                       `json:"evicted"`
}

func NewCaptureAPIHandler(captureUC *usecase.CaptureScreenshotUseCase, settingsUC *usecase.SettingsUseCase, log *logger.Logger) *CaptureAPIHandler {
	return &CaptureAPIHandler{captureUC: captureUC, settingsUC: settingsUC, logger: log}
}

func (h *CaptureAPIHandler) Capture(w http.ResponseWriter, r *http.Request) {
	var req captureRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.captureUC.Execute(r.Context(), usecase.CaptureScreenshotCommand{
		Connection: h.connection(r, req),
		Zoom:       req.Zoom,
		Width:      req.Width,
		Height:     req.Height,
	})
	if err != nil {
		h.logger.Error("Failed to capture screenshot", err)
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to store screenshot")
		return
	}

	failures := result.Failures
	if failures == nil {
		failures = []usecase.StrategyFailure{}
	}
	middleware.WriteJSON(w, http.StatusCreated, captureResponse{
		Screenshot: dto.FromScreenshot(result.Screenshot, true),
		Fallback:   result.Fallback,
		Failures:   failures,
		Evicted:    result.Evicted,
	})
}

// connection собирает цель захвата без строгой проверки: для недействительного
// адреса цепочка все равно вернет placeholder. Без ip берется последнее подключение.
func (h *CaptureAPIHandler) connection(r *http.Request, req captureRequest) entity.ConnectionConfig {
	if strings.TrimSpace(req.IP) == "" && h.settingsUC != nil {
		if last, ok := h.settingsUC.LastConnection(r.Context()); ok {
			return last
		}
	}

	scheme, err := valueobject.ParseTransportScheme(req.Protocol)
	if err != nil {
		scheme = valueobject.HTTP
	}
	resolution := valueobject.WVGA
	if rc, err := valueobject.ParseResolutionClass(req.Resolution); err == nil {
		resolution = rc
	}
	return entity.ConnectionConfig{
		Scheme:     scheme,
		Host:       strings.TrimSpace(req.IP),
		Resolution: resolution,
	}
}
