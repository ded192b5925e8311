package entity

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dreschagin/ddc-kiosk/internal/domain/valueobject"
)

const maxPresetNameLength = 64

// Preset: именованный сохраненный ConnectionConfig. Name уникален в коллекции.
type Preset struct {
	Name       string                      `json:"name" yaml:"name"`
	Scheme     valueobject.TransportScheme `json:"protocol" yaml:"protocol"`
	Host       string                      `json:"ip" yaml:"ip"`
	Resolution valueobject.ResolutionClass `json:"resolution" yaml:"resolution"`
}

// NewPreset создает preset из параметров подключения
func NewPreset(name string, conn ConnectionConfig) (Preset, error) {
	p := Preset{
		Name:       strings.TrimSpace(name),
		Scheme:     conn.Scheme,
		Host:       conn.Host,
		Resolution: conn.Resolution,
	}
	if err := p.Validate(); err != nil {
		return Preset{}, err
	}
	return p, nil
}

func (p Preset) Validate() error {
	name := strings.TrimSpace(p.Name)
	if name == "" || utf8.RuneCountInString(name) > maxPresetNameLength {
		return fmt.Errorf("%w: name must be 1-%d characters", ErrInvalidPresetName, maxPresetNameLength)
	}
	return p.Connection().Validate()
}

// Connection возвращает параметры подключения preset'а
func (p Preset) Connection() ConnectionConfig {
	return ConnectionConfig{Scheme: p.Scheme, Host: p.Host, Resolution: p.Resolution}
}

// DefaultPresets: набор, которым заполняется пустое хранилище
func DefaultPresets() []Preset {
	return []Preset{
		{Name: "Local Demo", Scheme: valueobject.HTTP, Host: "127.0.0.1", Resolution: valueobject.WVGA},
		{Name: "Default DDC", Scheme: valueobject.HTTP, Host: "192.168.10.21", Resolution: valueobject.WVGA},
	}
}
