package logger

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dreschagin/ddc-kiosk/internal/application/port"
)

type Logger struct {
	logger    *log.Logger
	level     Level
	mu        sync.RWMutex
	publisher port.LogPublisher
	component string
}

type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

func New(level string) *Logger {
	return NewWithWriter(level, os.Stdout)
}

// NewWithWriter пишет в произвольный writer (используется в тестах)
func NewWithWriter(level string, w io.Writer) *Logger {
	return &Logger{
		logger: log.New(w, "", 0),
		level:  parseLevel(level),
	}
}

func parseLevel(level string) Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return DEBUG
	case "info":
		return INFO
	case "warn":
		return WARN
	case "error":
		return ERROR
	default:
		return INFO
	}
}

// SetLogPublisher дублирует записи во внешний sink (CloudWatch Logs)
func (l *Logger) SetLogPublisher(publisher port.LogPublisher) {
	l.mu.Lock()
	l.publisher = publisher
	l.mu.Unlock()
}

// Named возвращает logger с полем component
func (l *Logger) Named(component string) *Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return &Logger{
		logger:    l.logger,
		level:     l.level,
		publisher: l.publisher,
		component: component,
	}
}

func (l *Logger) Debug(msg string, args ...interface{}) {
	if l.level <= DEBUG {
		l.log(port.LogLevelDebug, msg, args...)
	}
}

func (l *Logger) Info(msg string, args ...interface{}) {
	if l.level <= INFO {
		l.log(port.LogLevelInfo, msg, args...)
	}
}

func (l *Logger) Warn(msg string, args ...interface{}) {
	if l.level <= WARN {
		l.log(port.LogLevelWarn, msg, args...)
	}
}

func (l *Logger) Error(msg string, err error, args ...interface{}) {
	if l.level <= ERROR {
		if err != nil {
			args = append(args, "error", err.Error())
		}
		l.log(port.LogLevelError, msg, args...)
	}
}

func (l *Logger) log(level port.LogLevel, msg string, args ...interface{}) {
	now := time.Now()
	if l.component != "" {
		args = append([]interface{}{"component", l.component}, args...)
	}

	message := fmt.Sprintf("[%s] [%s] %s", now.Format("2006-01-02 15:04:05"), level, msg)

	fields := make(map[string]interface{}, len(args)/2)
	if len(args) > 0 {
		message += " |"
		for i := 0; i+1 < len(args); i += 2 {
			message += fmt.Sprintf(" %v=%v", args[i], args[i+1])
			fields[fmt.Sprint(args[i])] = args[i+1]
		}
	}

	l.logger.Println(message)

	l.mu.RLock()
	publisher := l.publisher
	l.mu.RUnlock()
	if publisher != nil {
		// Publisher буферизует запись, ошибка не должна ломать логирование
		_ = publisher.Publish(context.Background(), port.LogEntry{
			Timestamp: now,
			Level:     level,
			Message:   msg,
			Fields:    fields,
		})
	}
}
