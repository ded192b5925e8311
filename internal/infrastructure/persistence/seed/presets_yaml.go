package seed

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/dreschagin/ddc-kiosk/internal/domain/entity"
	"github.com/dreschagin/ddc-kiosk/internal/domain/valueobject"
	"gopkg.in/yaml.v3"
)

type presetsFile struct {
	Autoload string          `yaml:"autoload"`
	Presets  []entity.Preset `yaml:"presets"`
}

// Presets: содержимое файла начального заполнения
type Presets struct {
	Autoload string
	Items    []entity.Preset
}

// LoadPresets читает YAML со списком presets.
// Отсутствующий файл не ошибка: возвращается пустой набор, и используются встроенные presets.
func LoadPresets(path string) (Presets, error) {
	if strings.TrimSpace(path) == "" {
		return Presets{}, nil
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Presets{}, nil
	}
	if err != nil {
		return Presets{}, fmt.Errorf("failed to read presets file: %w", err)
	}
	return ParsePresets(raw)
}

func ParsePresets(raw []byte) (Presets, error) {
	var file presetsFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return Presets{}, fmt.Errorf("invalid presets file: %w", err)
	}

	out := Presets{Autoload: strings.TrimSpace(file.Autoload)}
	for i, p := range file.Presets {
		p.Name = strings.TrimSpace(p.Name)
		p.Host = strings.TrimSpace(p.Host)
		p.Scheme = valueobject.TransportScheme(strings.ToLower(strings.TrimSpace(string(p.Scheme))))
		if p.Scheme == "" {
			p.Scheme = valueobject.HTTP
		}
		p.Resolution = valueobject.ResolutionClass(strings.ToUpper(strings.TrimSpace(string(p.Resolution))))
		if p.Resolution == "" {
			p.Resolution = valueobject.WVGA
		}
		if err := p.Validate(); err != nil {
			return Presets{}, fmt.Errorf("preset #%d (%s): %w", i+1, p.Name, err)
		}
		out.Items = append(out.Items, p)
	}
	return out, nil
}
