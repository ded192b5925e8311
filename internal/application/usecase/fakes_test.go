package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"sync"
	"time"

	"github.com/dreschagin/ddc-kiosk/internal/application/port"
	"github.com/dreschagin/ddc-kiosk/internal/domain/entity"
)

func testPNG(w, h int) []byte {
	var buf bytes.Buffer
	_ = png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h)))
	return buf.Bytes()
}

type fakeStrategy struct {
	name  string
	err   error
	image *port.CapturedImage
	panic bool
	calls int
}

func (s *fakeStrategy) Name() string { return s.name }

func (s *fakeStrategy) Attempt(_ context.Context, _ port.CaptureTarget) (*port.CapturedImage, error) {
	s.calls++
	if s.panic {
		panic("boom")
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.image, nil
}

type fakePlaceholder struct {
	failures []string
	target   port.CaptureTarget
}

func (p *fakePlaceholder) Render(target port.CaptureTarget, failures []string) *port.CapturedImage {
	p.failures = failures
	p.target = target
	return &port.CapturedImage{PNG: testPNG(4, 3), Width: 4, Height: 3, Notes: []string{PlaceholderMarker}}
}

type fakeObserver struct {
	attempts map[string][]bool
}

func (o *fakeObserver) ObserveAttempt(strategy string, success bool, _ time.Duration) {
	if o.attempts == nil {
		o.attempts = make(map[string][]bool)
	}
	o.attempts[strategy] = append(o.attempts[strategy], success)
}

type memoryGallery struct {
	mu        sync.Mutex
	items     []*entity.Screenshot
	appendErr error
}

func (g *memoryGallery) Append(_ context.Context, shot *entity.Screenshot, maxItems int) ([]*entity.Screenshot, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.appendErr != nil {
		return nil, g.appendErr
	}
	g.items = append([]*entity.Screenshot{shot}, g.items...)
	var evicted []*entity.Screenshot
	if maxItems > 0 && len(g.items) > maxItems {
		evicted = g.items[maxItems:]
		g.items = g.items[:maxItems]
	}
	return evicted, nil
}

func (g *memoryGallery) List(_ context.Context) ([]*entity.Screenshot, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]*entity.Screenshot{}, g.items...), nil
}

func (g *memoryGallery) Get(_ context.Context, id string) (*entity.Screenshot, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, s := range g.items {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, entity.ErrScreenshotNotFound
}

func (g *memoryGallery) Delete(_ context.Context, id string) (*entity.Screenshot, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i, s := range g.items {
		if s.ID == id {
			g.items = append(g.items[:i], g.items[i+1:]...)
			return s, nil
		}
	}
	return nil, entity.ErrScreenshotNotFound
}

func (g *memoryGallery) Clear(_ context.Context) ([]*entity.Screenshot, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	removed := g.items
	g.items = nil
	return removed, nil
}

func (g *memoryGallery) Count(_ context.Context) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.items), nil
}

type mockScreenshotStorage struct {
	puts    []string
	deletes []string
	putErr  error
}

func (m *mockScreenshotStorage) PutObject(_ context.Context, key, _ string, _ []byte) (string, error) {
	m.puts = append(m.puts, key)
	if m.putErr != nil {
		return "", m.putErr
	}
	return "https://example.com/" + key, nil
}

func (m *mockScreenshotStorage) GetObjectURL(_ context.Context, key string) (string, error) {
	return "https://example.com/" + key, nil
}

func (m *mockScreenshotStorage) DeleteObject(_ context.Context, key string) error {
	m.deletes = append(m.deletes, key)
	return nil
}

type broadcast struct {
	eventType string
	session   string
	payload   interface{}
}

type mockNotifier struct {
	mu     sync.Mutex
	events []broadcast
}

func (n *mockNotifier) Broadcast(eventType string, payload interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, broadcast{eventType: eventType, payload: payload})
}

func (n *mockNotifier) SendToSession(sessionID, eventType string, payload interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, broadcast{eventType: eventType, session: sessionID, payload: payload})
}

func (n *mockNotifier) ClientCount() int { return 2 }

// sessions возвращает адресатов событий eventType ("" для broadcast)
func (n *mockNotifier) sessions(eventType string) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, e := range n.events {
		if e.eventType == eventType {
			out = append(out, e.session)
		}
	}
	return out
}

func (n *mockNotifier) count(eventType string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, e := range n.events {
		if e.eventType == eventType {
			c++
		}
	}
	return c
}

type mockEvents struct {
	subjects []string
}

func (e *mockEvents) PublishEvent(_ context.Context, subject string, _ interface{}) error {
	e.subjects = append(e.subjects, subject)
	return nil
}

func (e *mockEvents) Close() error { return nil }

type mockMetrics struct {
	points []port.MetricPoint
}

func (m *mockMetrics) PublishBatch(_ context.Context, points []port.MetricPoint) error {
	m.points = append(m.points, points...)
	return nil
}

func (m *mockMetrics) Flush(_ context.Context) error { return nil }

// mapCache: port.Cache поверх map с JSON сериализацией
type mapCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMapCache() *mapCache {
	return &mapCache{data: make(map[string][]byte)}
}

func (c *mapCache) Get(_ context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.data[key]
	if !ok {
		return port.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *mapCache) Set(_ context.Context, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = raw
	return nil
}

func (c *mapCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *mapCache) DeletePattern(_ context.Context, _ string) error { return nil }

func (c *mapCache) Close() error { return nil }

type memoryPresets struct {
	items []entity.Preset
}

func (r *memoryPresets) List(_ context.Context) ([]entity.Preset, error) {
	return append([]entity.Preset{}, r.items...), nil
}

func (r *memoryPresets) Get(_ context.Context, name string) (entity.Preset, error) {
	for _, p := range r.items {
		if p.Name == name {
			return p, nil
		}
	}
	return entity.Preset{}, entity.ErrPresetNotFound
}

func (r *memoryPresets) Upsert(_ context.Context, preset entity.Preset) (bool, error) {
	for i, p := range r.items {
		if p.Name == preset.Name {
			r.items[i] = preset
			return true, nil
		}
	}
	r.items = append(r.items, preset)
	return false, nil
}

func (r *memoryPresets) Delete(_ context.Context, name string) error {
	for i, p := range r.items {
		if p.Name == name {
			r.items = append(r.items[:i], r.items[i+1:]...)
			return nil
		}
	}
	return entity.ErrPresetNotFound
}

type fakeProber struct {
	result port.ProbeResult
	err    error
	block  bool
	hosts  []string
}

func (p *fakeProber) Probe(ctx context.Context, host, _ string) (port.ProbeResult, error) {
	p.hosts = append(p.hosts, host)
	if p.block {
		<-ctx.Done()
		return port.ProbeResult{}, ctx.Err()
	}
	return p.result, p.err
}

var errDeviceDown = errors.New("connection refused")
