package entity

import (
	"fmt"
	"net"
	"regexp"
	"strings"

	"github.com/dreschagin/ddc-kiosk/internal/domain/valueobject"
)

var hostnameRegex = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9.-]{0,251}[a-zA-Z0-9])?$`)

// ConnectionConfig описывает параметры подключения к устройству.
// Живет в рамках сессии, может быть заполнен из Preset или URL параметров.
type ConnectionConfig struct {
	Scheme     valueobject.TransportScheme `json:"protocol"`
	Host       string                      `json:"ip"`
	Resolution valueobject.ResolutionClass `json:"resolution"`
}

// NewConnectionConfig нормализует и валидирует сырые значения формы
func NewConnectionConfig(scheme, host, resolution string) (ConnectionConfig, error) {
	ts, err := valueobject.ParseTransportScheme(scheme)
	if err != nil {
		return ConnectionConfig{}, err
	}

	rc := valueobject.WVGA
	if strings.TrimSpace(resolution) != "" {
		rc, err = valueobject.ParseResolutionClass(resolution)
		if err != nil {
			return ConnectionConfig{}, err
		}
	}

	cfg := ConnectionConfig{
		Scheme:     ts,
		Host:       strings.TrimSpace(host),
		Resolution: rc,
	}
	if err := cfg.Validate(); err != nil {
		return ConnectionConfig{}, err
	}
	return cfg, nil
}

// Validate проверяет адрес устройства, схему и класс разрешения
func (c ConnectionConfig) Validate() error {
	if err := c.Scheme.Validate(); err != nil {
		return err
	}
	if err := c.Resolution.Validate(); err != nil {
		return err
	}
	return ValidateHost(c.Host)
}

// Address возвращает "scheme://host"
func (c ConnectionConfig) Address() string {
	return fmt.Sprintf("%s://%s", c.Scheme, c.Host)
}

// HostOnly возвращает адрес без порта (для ICMP проверки)
func (c ConnectionConfig) HostOnly() string {
	if h, _, err := net.SplitHostPort(c.Host); err == nil {
		return strings.Trim(h, "[]")
	}
	return strings.Trim(c.Host, "[]")
}

// ValidateHost принимает IP, hostname и host:port; отклоняет пустые значения, схемы и пути
func ValidateHost(raw string) error {
	host := strings.TrimSpace(raw)
	if host == "" {
		return fmt.Errorf("%w: please enter an IP address", ErrInvalidAddress)
	}
	if strings.ContainsAny(host, "/?#@ \t") {
		return fmt.Errorf("%w: %q", ErrInvalidAddress, host)
	}

	name := host
	if h, port, err := net.SplitHostPort(host); err == nil {
		if port == "" || !isDigits(port) {
			return fmt.Errorf("%w: bad port in %q", ErrInvalidAddress, host)
		}
		name = h
	}

	name = strings.Trim(name, "[]")
	if net.ParseIP(name) != nil {
		return nil
	}
	if !hostnameRegex.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidAddress, host)
	}
	return nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
