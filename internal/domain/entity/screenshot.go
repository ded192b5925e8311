package entity

import (
	"encoding/base64"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dreschagin/ddc-kiosk/internal/domain/valueobject"
)

const pngDataURLPrefix = "data:image/png;base64,"

// Screenshot: снимок встроенного интерфейса. Создается цепочкой захвата,
// принадлежит галерее и не изменяется после создания.
type Screenshot struct {
	ID         string                      `json:"id"`
	DataURL    string                      `json:"dataUrl"`
	CapturedAt time.Time                   `json:"timestamp"`
	Host       string                      `json:"device"`
	Scheme     valueobject.TransportScheme `json:"protocol"`
	Resolution valueobject.ResolutionClass `json:"resolution"`
	Zoom       float64                     `json:"zoom"`
	Technique  string                      `json:"technique"`
	Notes      []string                    `json:"notes,omitempty"`
	Width      int                         `json:"width"`
	Height     int                         `json:"height"`
	ObjectKey  string                      `json:"objectKey,omitempty"`
	ObjectURL  string                      `json:"objectUrl,omitempty"`
}

// NewScreenshot собирает запись галереи из PNG байтов
func NewScreenshot(id string, png []byte, capturedAt time.Time, conn ConnectionConfig, zoom float64) *Screenshot {
	return &Screenshot{
		ID:         id,
		DataURL:    EncodePNGDataURL(png),
		CapturedAt: capturedAt.UTC(),
		Host:       conn.Host,
		Scheme:     conn.Scheme,
		Resolution: conn.Resolution,
		Zoom:       zoom,
	}
}

// SourceDescription возвращает "адрес · класс · zoom%"
func (s *Screenshot) SourceDescription() string {
	return fmt.Sprintf("%s · %s · %d%%", s.Host, s.Resolution, int(math.Round(s.Zoom*100)))
}

// Filename возвращает имя файла для скачивания
func (s *Screenshot) Filename() string {
	return "ddc-screenshot-" + s.CapturedAt.Format("2006-01-02-15-04-05") + ".png"
}

// PNG декодирует DataURL обратно в байты
func (s *Screenshot) PNG() ([]byte, error) {
	return DecodePNGDataURL(s.DataURL)
}

func EncodePNGDataURL(png []byte) string {
	return pngDataURLPrefix + base64.StdEncoding.EncodeToString(png)
}

func DecodePNGDataURL(dataURL string) ([]byte, error) {
	if !strings.HasPrefix(dataURL, pngDataURLPrefix) {
		return nil, fmt.Errorf("unsupported data url")
	}
	return base64.StdEncoding.DecodeString(strings.TrimPrefix(dataURL, pngDataURLPrefix))
}
