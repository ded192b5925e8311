package postgres

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/dreschagin/ddc-kiosk/internal/domain/entity"
	"github.com/dreschagin/ddc-kiosk/internal/domain/valueobject"
)

// ScreenshotDBModel представляет скриншот в БД
type ScreenshotDBModel struct {
	ID         string
	DataURL    string
	CapturedAt time.Time
	Host       string
	Scheme     string
	Resolution string
	Zoom       float64
	Technique  string
	Notes      []byte // JSON
	Width      int
	Height     int
	ObjectKey  sql.NullString
	ObjectURL  sql.NullString
}

// ToDBModel конвертирует Domain Entity в DB Model
func ToDBModel(s *entity.Screenshot) (*ScreenshotDBModel, error) {
	list := s.Notes
	if list == nil {
		list = []string{}
	}
	notes, err := json.Marshal(list)
	if err != nil {
		return nil, err
	}

	return &ScreenshotDBModel{
		ID:         s.ID,
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
		ObjectKey:  sql.NullString{String: s.ObjectKey, Valid: s.ObjectKey != ""},
		ObjectURL:  sql.NullString{String: s.ObjectURL, Valid: s.ObjectURL != ""},
	}, nil
}

// ToEntity конвертирует DB Model в Domain Entity
func ToEntity(model *ScreenshotDBModel) *entity.Screenshot {
	var notes []string
	if len(model.Notes) > 0 {
		_ = json.Unmarshal(model.Notes, &notes)
	}

	return &entity.Screenshot{
		ID:         model.ID,
		DataURL:    model.DataURL,
		CapturedAt: model.CapturedAt.UTC(),
		Host:       model.Host,
		Scheme:     valueobject.TransportScheme(model.Scheme),
		Resolution: valueobject.ResolutionClass(model.Resolution),
		Zoom:       model.Zoom,
		Technique:  model.Technique,
		Notes:      notes,
		Width:      model.Width,
		Height:     model.Height,
		ObjectKey:  model.ObjectKey.String,
		ObjectURL:  model.ObjectURL.String,
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

const screenshotColumns = `id, data_url, captured_at, host, scheme, resolution, zoom, technique, notes, width, height, object_key, object_url`

// ScanScreenshotRow сканирует строку в DB Model
func ScanScreenshotRow(row rowScanner) (*ScreenshotDBModel, error) {
	var m ScreenshotDBModel
	err := row.Scan(
		&m.ID,
		&m.DataURL,
		&m.CapturedAt,
		&m.Host,
		&m.Scheme,
		&m.Resolution,
		&m.Zoom,
		&m.Technique,
		&m.Notes,
		&m.Width,
		&m.Height,
		&m.ObjectKey,
		&m.ObjectURL,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func scanScreenshots(rows *sql.Rows) ([]*entity.Screenshot, error) {
	defer rows.Close()

	shots := make([]*entity.Screenshot, 0)
	for rows.Next() {
		model, err := ScanScreenshotRow(rows)
		if err != nil {
			return nil, err
		}
		shots = append(shots, ToEntity(model))
	}
	return shots, rows.Err()
}
