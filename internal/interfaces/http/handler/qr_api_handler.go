package handler

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/dreschagin/ddc-kiosk/internal/domain/entity"
	"github.com/dreschagin/ddc-kiosk/internal/interfaces/http/middleware"
	"github.com/dreschagin/ddc-kiosk/pkg/logger"
	qrcode "github.com/skip2/go-qrcode"
)

const (
	defaultQRSize = 256
	maxQRSize     = 1024
)

// QRAPIHandler отдает QR-код ссылки на оболочку (для телефона рядом с панелью)
type QRAPIHandler struct {
	publicBaseURL string
	logger        *logger.Logger
}

func NewQRAPIHandler(publicBaseURL string, log *logger.Logger) *QRAPIHandler {
	return &QRAPIHandler{publicBaseURL: strings.TrimRight(publicBaseURL, "/"), logger: log}
}

// ShellLink строит ссылку "<base>/?ip=<host>&autoload=true"
func ShellLink(base, host string, autoload bool) string {
	q := url.Values{}
	if host != "" {
		q.Set("ip", host)
	}
	if autoload {
		q.Set("autoload", "true")
	}
	link := strings.TrimRight(base, "/") + "/"
	if encoded := q.Encode(); encoded != "" {
		link += "?" + encoded
	}
	return link
}

// QR GET /api/v1/qr?ip=&autoload=&size=
func (h *QRAPIHandler) QR(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	host := strings.TrimSpace(query.Get("ip"))
	if host != "" {
		if err := entity.ValidateHost(host); err != nil {
			writeDomainError(w, err, h.logger, "Failed to build QR code")
			return
		}
	}

	size := defaultQRSize
	if raw := query.Get("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 64 || n > maxQRSize {
			middleware.WriteError(w, http.StatusBadRequest, "size must be 64-1024")
			return
		}
		size = n
	}

	base := h.publicBaseURL
	if base == "" {
		base = shellScheme(r) + "://" + r.Host
	}
	autoload, _ := strconv.ParseBool(query.Get("autoload"))
	link := ShellLink(base, host, autoload)

	png, err := qrcode.Encode(link, qrcode.Medium, size)
	if err != nil {
		h.logger.Error("Failed to encode QR code", err, "link", link)
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to build QR code")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("X-Shell-Link", link)
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}
