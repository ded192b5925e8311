package valueobject

import (
	"errors"
	"strings"
)

// TransportScheme: протокол подключения к устройству
type TransportScheme string

const (
	HTTP  TransportScheme = "http"
	HTTPS TransportScheme = "https"
)

var ErrInvalidScheme = errors.New("invalid transport scheme")

// ParseTransportScheme принимает "http"/"https" в любом регистре, пустая строка означает http
func ParseTransportScheme(raw string) (TransportScheme, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if normalized == "" {
		return HTTP, nil
	}
	ts := TransportScheme(normalized)
	if err := ts.Validate(); err != nil {
		return "", err
	}
	return ts, nil
}

func (ts TransportScheme) Validate() error {
	switch ts {
	case HTTP, HTTPS:
		return nil
	default:
		return ErrInvalidScheme
	}
}

func (ts TransportScheme) String() string {
	return string(ts)
}
