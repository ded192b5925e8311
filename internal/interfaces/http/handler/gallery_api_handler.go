package handler

import (
	"net/http"
	"strconv"

	"github.com/dreschagin/ddc-kiosk/internal/application/dto"
	"github.com/dreschagin/ddc-kiosk/internal/application/usecase"
	"github.com/dreschagin/ddc-kiosk/internal/interfaces/http/middleware"
	"github.com/dreschagin/ddc-kiosk/pkg/logger"
)

// GalleryAPIHandler: просмотр, скачивание и удаление скриншотов
type GalleryAPIHandler struct {
	galleryUC *usecase.ManageGalleryUseCase
	maxItems  int
	logger    *logger.Logger
}

func NewGalleryAPIHandler(galleryUC *usecase.ManageGalleryUseCase, maxItems int, log *logger.Logger) *GalleryAPIHandler {
	return &GalleryAPIHandler{galleryUC: galleryUC, maxItems: maxItems, logger: log}
}

// List GET /api/v1/gallery: новые первыми, без данных изображения
func (h *GalleryAPIHandler) List(w http.ResponseWriter, r *http.Request) {
	shots, err := h.galleryUC.List(r.Context())
	if err != nil {
		writeDomainError(w, err, h.logger, "Failed to list gallery")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, dto.GalleryDTO{
		Items:    dto.ToScreenshotDTOs(shots),
		Count:    len(shots),
		MaxItems: h.maxItems,
	})
}

// Get GET /api/v1/gallery/{id}: вместе с dataUrl
func (h *GalleryAPIHandler) Get(w http.ResponseWriter, r *http.Request) {
	shot, err := h.galleryUC.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err, h.logger, "Failed to load screenshot")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, dto.FromScreenshot(shot, true))
}

// Download GET /api/v1/gallery/{id}/download
func (h *GalleryAPIHandler) Download(w http.ResponseWriter, r *http.Request) {
	d, err := h.galleryUC.Download(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err, h.logger, "Failed to download screenshot")
		return
	}

	if d.RedirectURL != "" {
		http.Redirect(w, r, d.RedirectURL, http.StatusFound)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", `attachment; filename="`+d.Filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(d.PNG)))
	w.Header().Set("Cache-Control", "private, max-age=31536000, immutable")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(d.PNG)
}

// Delete DELETE /api/v1/gallery/{id}
func (h *GalleryAPIHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.galleryUC.Delete(r.Context(), id); err != nil {
		writeDomainError(w, err, h.logger, "Failed to delete screenshot")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{"success": true, "id": id})
}

// Clear DELETE /api/v1/gallery
func (h *GalleryAPIHandler) Clear(w http.ResponseWriter, r *http.Request) {
	removed, err := h.galleryUC.Clear(r.Context())
	if err != nil {
		writeDomainError(w, err, h.logger, "Failed to clear gallery")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{"success": true, "removed": removed})
}
