package memory

import (
	"context"
	"fmt"
	"path"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/dreschagin/ddc-kiosk/internal/application/port"
)

// Cache: настройки в памяти процесса (SETTINGS_DRIVER=memory).
// Значения хранятся в JSON, чтобы поведение совпадало с Redis.
type Cache struct {
	mu     sync.RWMutex
	values map[string][]byte
}

func New() *Cache {
	return &Cache{values: make(map[string][]byte)}
}

func (c *Cache) Get(_ context.Context, key string, dest interface{}) error {
	c.mu.RLock()
	raw, ok := c.values[key]
	c.mu.RUnlock()
	if !ok {
		return port.ErrCacheMiss
	}
	if err := sonic.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("failed to unmarshal cached value: %w", err)
	}
	return nil
}

func (c *Cache) Set(_ context.Context, key string, value interface{}) error {
	data, err := sonic.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	c.mu.Lock()
	c.values[key] = data
	c.mu.Unlock()
	return nil
}

func (c *Cache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.values, key)
	c.mu.Unlock()
	return nil
}

func (c *Cache) DeletePattern(_ context.Context, pattern string) error {
	if _, err := path.Match(pattern, ""); err != nil {
		return fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.values {
		if ok, _ := path.Match(pattern, key); ok {
			delete(c.values, key)
		}
	}
	return nil
}

func (c *Cache) Close() error {
	return nil
}
