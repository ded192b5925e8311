package valueobject

import (
	"errors"
	"strings"
)

// ResolutionClass представляет класс разрешения интерфейса DDC4000 (Value Object)
type ResolutionClass string

const (
	WVGA ResolutionClass = "WVGA"
	QVGA ResolutionClass = "QVGA"
)

// ErrInvalidResolution возвращается для неизвестного класса разрешения
var ErrInvalidResolution = errors.New("invalid resolution class")

// qvgaSidebarWidth: ширина боковой панели, которую QVGA-интерфейс рисует всегда
// и которую нельзя отключить параметрами устройства.
const qvgaSidebarWidth = 85

// ParseResolutionClass нормализует строку ("wvga", " QVGA ") в ResolutionClass
func ParseResolutionClass(raw string) (ResolutionClass, error) {
	rc := ResolutionClass(strings.ToUpper(strings.TrimSpace(raw)))
	if err := rc.Validate(); err != nil {
		return "", err
	}
	return rc, nil
}

// Validate проверяет валидность класса разрешения
func (rc ResolutionClass) Validate() error {
	switch rc {
	case WVGA, QVGA:
		return nil
	default:
		return ErrInvalidResolution
	}
}

// String возвращает строковое представление
func (rc ResolutionClass) String() string {
	return string(rc)
}

// NominalSize возвращает номинальный размер, в котором рисует интерфейс устройства
func (rc ResolutionClass) NominalSize() (width, height int) {
	if rc == QVGA {
		return 320, 240
	}
	return 800, 480
}

// FrameSize возвращает размер iframe в desktop-раскладке.
// QVGA рендерится устройством в кадре 720×480 (fit=1), включая боковую панель.
func (rc ResolutionClass) FrameSize() (width, height int) {
	if rc == QVGA {
		return 720, 480
	}
	return 800, 480
}

// AutoFitPadding возвращает отступ, вычитаемый из контейнера перед auto-fit
func (rc ResolutionClass) AutoFitPadding() int {
	if rc == QVGA {
		return 20
	}
	return 40
}

// CropOffset возвращает горизонтальный сдвиг при zoom=1.0 (0 для классов без боковой панели)
func (rc ResolutionClass) CropOffset() int {
	if rc == QVGA {
		return qvgaSidebarWidth
	}
	return 0
}

// AspectRatio возвращает отношение высоты к ширине номинального размера
func (rc ResolutionClass) AspectRatio() float64 {
	w, h := rc.NominalSize()
	return float64(h) / float64(w)
}

// AllResolutionClasses возвращает список всех поддерживаемых классов
func AllResolutionClasses() []ResolutionClass {
	return []ResolutionClass{WVGA, QVGA}
}
