package port

import (
	"context"
	"time"
)

// LogLevel is the severity of a shipped log entry.
type LogLevel string

const (
	LogLevelDebug LogLevel = "DEBUG"
	LogLevelInfo  LogLevel = "INFO"
	LogLevelWarn  LogLevel = "WARN"
	LogLevelError LogLevel = "ERROR"
)

// LogEntry is one log line mirrored to an external log system.
type LogEntry struct {
	Timestamp time.Time
	Level     LogLevel
	Message   string
	Fields    map[string]interface{}
}

// LogPublisher ships kiosk logs to an external sink (CloudWatch Logs).
type LogPublisher interface {
	// Publish buffers a single entry.
	Publish(ctx context.Context, entry LogEntry) error

	// PublishBatch buffers several entries at once.
	PublishBatch(ctx context.Context, entries []LogEntry) error

	// Flush sends everything buffered; called on shutdown.
	Flush(ctx context.Context) error
}
