package sqlite

import (
	"encoding/json"
	"time"

	"github.com/dreschagin/ddc-kiosk/internal/domain/entity"
	"github.com/dreschagin/ddc-kiosk/internal/domain/valueobject"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ScreenshotRecord: строка галереи. Position растет с каждой вставкой и задает порядок.
type ScreenshotRecord struct {
	ID         string `gorm:"primaryKey"`
	Position   int64  `gorm:"uniqueIndex"`
	DataURL    string `gorm:"type:text"`
	CapturedAt time.Time
	Host       string `gorm:"index"`
	Scheme     string
	Resolution string
	Zoom       float64
	Technique  string
	Notes      string `gorm:"type:text"` // JSON array
	Width      int
	Height     int
	ObjectKey  string
	ObjectURL  string
}

func (ScreenshotRecord) TableName() string { return "screenshots" }

// PresetRecord: сохраненное подключение. Name уникален, Position: порядок добавления.
type PresetRecord struct {
	ID         string `gorm:"primaryKey"`
	Name       string `gorm:"uniqueIndex;not null"`
	Position   int64  `gorm:"index"`
	Scheme     string
	Host       string
	Resolution string
	CreatedAt  int64 `gorm:"autoCreateTime"`
	UpdatedAt  int64 `gorm:"autoUpdateTime"`
}

func (PresetRecord) TableName() string { return "presets" }

// BeforeCreate hook to generate UUID
func (p *PresetRecord) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}

func toScreenshotRecord(s *entity.Screenshot, position int64) (*ScreenshotRecord, error) {
	notes := "[]"
	if len(s.Notes) > 0 {
		raw, err := json.Marshal(s.Notes)
		if err != nil {
			return nil, err
		}
		notes = string(raw)
	}
	return &ScreenshotRecord{
		ID:         s.ID,
		Position:   position,
		DataURL:    s.DataURL,
		CapturedAt: s.CapturedAt.UTC(),
		Host:       s.Host,
		Scheme:     s.Scheme.String(),
		Resolution: s.Resolution.String(),
		Zoom:       s.Zoom,
		Technique:  s.Technique,
		Notes:      notes,
		Width:      s.Width,
		Height:     s.Height,
		ObjectKey:  s.ObjectKey,
		ObjectURL:  s.ObjectURL,
	}, nil
}

func (r *ScreenshotRecord) toEntity() *entity.Screenshot {
	var notes []string
	if r.Notes != "" {
		_ = json.Unmarshal([]byte(r.Notes), &notes)
	}
	return &entity.Screenshot{
		ID:         r.ID,
		DataURL:    r.DataURL,
		CapturedAt: r.CapturedAt.UTC(),
		Host:       r.Host,
		Scheme:     valueobject.TransportScheme(r.Scheme),
		Resolution: valueobject.ResolutionClass(r.Resolution),
		Zoom:       r.Zoom,
		Technique:  r.Technique,
		Notes:      notes,
		Width:      r.Width,
		Height:     r.Height,
		ObjectKey:  r.ObjectKey,
		ObjectURL:  r.ObjectURL,
	}
}

func (r *PresetRecord) toEntity() entity.Preset {
	return entity.Preset{
		Name:       r.Name,
		Scheme:     valueobject.TransportScheme(r.Scheme),
		Host:       r.Host,
		Resolution: valueobject.ResolutionClass(r.Resolution),
	}
}
