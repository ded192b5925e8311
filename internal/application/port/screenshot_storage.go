package port

import "context"

// ScreenshotStorage: внешнее хранилище PNG файлов скриншотов (S3).
type ScreenshotStorage interface {
	// PutObject загружает объект и возвращает URL для чтения.
	PutObject(ctx context.Context, key, contentType string, body []byte) (string, error)

	// GetObjectURL возвращает URL для чтения существующего объекта.
	GetObjectURL(ctx context.Context, key string) (string, error)

	// DeleteObject удаляет объект; отсутствующий объект не ошибка.
	DeleteObject(ctx context.Context, key string) error
}
