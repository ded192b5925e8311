package dto

import (
	"time"

	"github.com/dreschagin/ddc-kiosk/internal/domain/entity"
)

// ScreenshotDTO представляет скриншот галереи для передачи между слоями
type ScreenshotDTO struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Device      string    `json:"device"`
	Protocol    string    `json:"protocol"`
	Resolution  string    `json:"resolution"`
	Zoom        float64   `json:"zoom"`
	Technique   string    `json:"technique"`
	Description string    `json:"description"`
	Filename    string    `json:"filename"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	Notes       []string  `json:"notes,omitempty"`
	ObjectURL   string    `json:"objectUrl,omitempty"`
	// DataURL заполняется только для одиночного запроса: список был бы слишком тяжелым
	DataURL     string `json:"dataUrl,omitempty"`
	DownloadURL string `json:"downloadUrl"`
}

// FromScreenshot конвертирует Entity в DTO
func FromScreenshot(s *entity.Screenshot, withData bool) *ScreenshotDTO {
	d := &ScreenshotDTO{
		ID:          s.ID,
		Timestamp:   s.CapturedAt,
		Device:      s.Host,
		Protocol:    s.Scheme.String(),
		Resolution:  s.Resolution.String(),
		Zoom:        s.Zoom,
		Technique:   s.Technique,
		Description: s.SourceDescription(),
		Filename:    s.Filename(),
		Width:       s.Width,
		Height:      s.Height,
		Notes:       s.Notes,
		ObjectURL:   s.ObjectURL,
		DownloadURL: "/api/v1/gallery/" + s.ID + "/download",
	}
	if withData {
		d.DataURL = s.DataURL
	}
	return d
}

// ToScreenshotDTOs конвертирует слайс Entity в слайс DTO (без DataURL)
func ToScreenshotDTOs(shots []*entity.Screenshot) []*ScreenshotDTO {
	dtos := make([]*ScreenshotDTO, len(shots))
	for i, s := range shots {
		dtos[i] = FromScreenshot(s, false)
	}
	return dtos
}

// GalleryDTO: ответ на список галереи
type GalleryDTO struct {
	Items    []*ScreenshotDTO `json:"items"`
	Count    int              `json:"count"`
	MaxItems int              `json:"maxItems"`
}
