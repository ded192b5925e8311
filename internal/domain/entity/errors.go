package entity

import "errors"

// Ошибки доменного слоя. Handlers сопоставляют их с HTTP статусами через errors.Is.
var (
	ErrInvalidAddress     = errors.New("invalid device address")
	ErrInvalidPresetName  = errors.New("invalid preset name")
	ErrPresetExists       = errors.New("preset already exists")
	ErrPresetNotFound     = errors.New("preset not found")
	ErrScreenshotNotFound = errors.New("screenshot not found")
)
