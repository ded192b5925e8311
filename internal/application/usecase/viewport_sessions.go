package usecase

import (
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	ttlworker "github.com/FloatTech/ttl"
	"github.com/dreschagin/ddc-kiosk/internal/application/port"
	"github.com/dreschagin/ddc-kiosk/internal/domain/service"
	"github.com/dreschagin/ddc-kiosk/internal/domain/valueobject"
	"github.com/dreschagin/ddc-kiosk/pkg/logger"
)

// Viewport session actions.
const (
	ActionResize     = "resize"
	ActionZoomIn     = "zoom-in"
	ActionZoomOut    = "zoom-out"
	ActionReset      = "reset"
	ActionAutoFit    = "auto-fit"
	ActionZoom       = "zoom"
	ActionResolution = "resolution"
	ActionFullscreen = "fullscreen"
	ActionPinchStart = "pinch-start"
	ActionPinchMove  = "pinch-move"
	ActionPinchEnd   = "pinch-end"
	ActionTap        = "tap"
)

var (
	sessionIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

	ErrInvalidSessionID = errors.New("invalid viewport session id")
	ErrUnknownAction    = errors.New("unknown viewport action")
)

// ViewportActionCommand: одно действие пользователя над окном просмотра
type ViewportActionCommand struct {
	SessionID string
	Action    string

	ContainerWidth  float64
	ContainerHeight float64
	ViewportWidth   float64
	ViewportHeight  float64

	Zoom       float64
	Resolution string
	Fullscreen bool
	Touches    []service.Point
	At         time.Time
}

// ViewportSnapshot: состояние сессии и вычисленная геометрия
type ViewportSnapshot struct {
	SessionID string                `json:"sessionId"`
	State     service.ViewportState `json:"state"`
	Transform service.Transform     `json:"transform"`
	CSS       string                `json:"css"`
	AutoFit   bool                  `json:"autoFit"`
	// Applied: false, если действие было проигнорировано (например, auto-fit без размеров)
	Applied bool `json:"applied"`
}

type viewportSession struct {
	mu      sync.Mutex
	state   service.ViewportState
	autoFit bool
	pinch   service.PinchTracker
	taps    service.DoubleTapDetector
}

// ViewportSessionsUseCase хранит ViewportState каждой оболочки, чтобы CLI и браузер
// видели один и тот же zoom.
type ViewportSessionsUseCase struct {
	sessions *ttlworker.Cache[string, *viewportSession]
	create   sync.Mutex
	debounce *ResizeDebouncer
	notifier port.NotificationService
	logger   *logger.Logger
}

func NewViewportSessionsUseCase(ttl, debounce time.Duration, notifier port.NotificationService, log *logger.Logger) *ViewportSessionsUseCase {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &ViewportSessionsUseCase{
		sessions: ttlworker.NewCache[string, *viewportSession](ttl),
		debounce: NewResizeDebouncer(debounce),
		notifier: notifier,
		logger:   log,
	}
}

// Fit: auto-fit без сессии (для CLI и первой отрисовки)
func Fit(rc valueobject.ResolutionClass, containerWidth, containerHeight, viewportWidth, viewportHeight float64) ViewportSnapshot {
	state := service.NewViewportState(rc).Resize(containerWidth, containerHeight, viewportWidth, viewportHeight)
	fitted, ok := state.AutoFit()
	return snapshot("", fitted, ok, ok)
}

// InspectorStep: масштаб просмотрщика изображений галереи (zoom-in, zoom-out, reset)
func InspectorStep(zoom float64, action string) (float64, error) {
	if zoom <= 0 {
		zoom = service.DefaultZoom
	}
	switch action {
	case ActionZoomIn:
		return service.InspectorZoomIn(zoom), nil
	case ActionZoomOut:
		return service.InspectorZoomOut(zoom), nil
	case ActionReset:
		return service.DefaultZoom, nil
	default:
		return zoom, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
}

// ValidSessionID проверяет формат viewport session id (его же принимает /ws?session=)
func ValidSessionID(id string) bool {
	return sessionIDRegex.MatchString(id)
}

func (uc *ViewportSessionsUseCase) Get(sessionID string) (ViewportSnapshot, error) {
	if !sessionIDRegex.MatchString(sessionID) {
		return ViewportSnapshot{}, ErrInvalidSessionID
	}
	s := uc.session(sessionID)
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshot(sessionID, s.state, s.autoFit, true), nil
}

func (uc *ViewportSessionsUseCase) Apply(cmd ViewportActionCommand) (ViewportSnapshot, error) {
	if !sessionIDRegex.MatchString(cmd.SessionID) {
		return ViewportSnapshot{}, ErrInvalidSessionID
	}

	s := uc.session(cmd.SessionID)
	s.mu.Lock()
	applied, err := uc.apply(cmd, s)
	snap := snapshot(cmd.SessionID, s.state, s.autoFit, applied)
	s.mu.Unlock()

	if err != nil {
		return ViewportSnapshot{}, err
	}
	if applied {
		uc.broadcast(snap)
	}
	return snap, nil
}

func (uc *ViewportSessionsUseCase) apply(cmd ViewportActionCommand, s *viewportSession) (bool, error) {
	switch cmd.Action {
	case ActionResize:
		s.state = s.state.Resize(cmd.ContainerWidth, cmd.ContainerHeight, cmd.ViewportWidth, cmd.ViewportHeight)
		if s.autoFit {
			uc.scheduleAutoFit(cmd.SessionID, s)
		}
		return true, nil

	case ActionZoomIn:
		s.state, s.autoFit = s.state.ZoomIn(), false
	case ActionZoomOut:
		s.state, s.autoFit = s.state.ZoomOut(), false
	case ActionReset:
		s.state, s.autoFit = s.state.ResetZoom(), false
	case ActionZoom:
		s.state, s.autoFit = s.state.WithZoom(cmd.Zoom), false

	case ActionAutoFit:
		return s.fit(), nil

	case ActionResolution:
		rc, err := valueobject.ParseResolutionClass(cmd.Resolution)
		if err != nil {
			return false, err
		}
		s.state = s.state.SetResolution(rc)
		if s.autoFit {
			s.fit()
		}

	case ActionFullscreen:
		s.state = s.state.SetFullscreen(cmd.Fullscreen)
		if cmd.Fullscreen {
			s.autoFit = true
		}

	case ActionPinchStart:
		if len(cmd.Touches) != 2 {
			return false, nil
		}
		return s.pinch.Start(cmd.Touches[0], cmd.Touches[1], s.state.Zoom), nil
	case ActionPinchMove:
		if len(cmd.Touches) != 2 {
			return false, nil
		}
		zoom, ok := s.pinch.Move(cmd.Touches[0], cmd.Touches[1])
		if !ok {
			return false, nil
		}
		s.state, s.autoFit = s.state.WithZoom(zoom), false
	case ActionPinchEnd:
		s.pinch.End()

	case ActionTap:
		at := cmd.At
		if at.IsZero() {
			at = time.Now()
		}
		if !s.taps.Tap(at) {
			return false, nil
		}
		return s.fit(), nil

	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownAction, cmd.Action)
	}
	return true, nil
}

// scheduleAutoFit пересчитывает auto-fit после паузы в серии resize событий
func (uc *ViewportSessionsUseCase) scheduleAutoFit(sessionID string, s *viewportSession) {
	if uc.debounce.Immediate() {
		s.fit()
		return
	}
	uc.debounce.Trigger(sessionID, func() {
		s.mu.Lock()
		if !s.autoFit {
			s.mu.Unlock()
			return
		}
		ok := s.fit()
		snap := snapshot(sessionID, s.state, s.autoFit, ok)
		s.mu.Unlock()
		if ok {
			uc.broadcast(snap)
		}
	})
}

func (uc *ViewportSessionsUseCase) session(id string) *viewportSession {
	uc.create.Lock()
	defer uc.create.Unlock()

	s := uc.sessions.Get(id)
	if s == nil {
		s = &viewportSession{state: service.NewViewportState(valueobject.WVGA)}
		uc.logger.Debug("Viewport session created", "session_id", id)
	}
	// Set продлевает TTL активной сессии
	uc.sessions.Set(id, s)
	return s
}

func (uc *ViewportSessionsUseCase) broadcast(snap ViewportSnapshot) {
	if uc.notifier != nil {
		uc.notifier.SendToSession(snap.SessionID, port.NotifyViewport, snap)
	}
}

// fit включает режим auto-fit; при невалидном контейнере состояние не меняется
func (s *viewportSession) fit() bool {
	next, ok := s.state.AutoFit()
	if !ok {
		return false
	}
	s.state, s.autoFit = next, true
	return true
}

func snapshot(id string, state service.ViewportState, autoFit, applied bool) ViewportSnapshot {
	t := state.Transform()
	return ViewportSnapshot{
		SessionID: id,
		State:     state,
		Transform: t,
		CSS:       t.CSS(),
		AutoFit:   autoFit,
		Applied:   applied,
	}
}

// ResizeDebouncer склеивает серию вызовов по ключу в один, после паузы delay
type ResizeDebouncer struct {
	delay  time.Duration
	mu     sync.Mutex
	timers map[string]*time.Timer
}

func NewResizeDebouncer(delay time.Duration) *ResizeDebouncer {
	return &ResizeDebouncer{delay: delay, timers: make(map[string]*time.Timer)}
}

// Immediate: задержка не задана, вызовы выполняются синхронно
func (d *ResizeDebouncer) Immediate() bool {
	return d.delay <= 0
}

func (d *ResizeDebouncer) Trigger(key string, fn func()) {
	if d.Immediate() {
		fn()
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if t, ok := d.timers[key]; ok {
		t.Stop()
	}
	var timer *time.Timer
	timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		if d.timers[key] == timer {
			delete(d.timers, key)
		}
		d.mu.Unlock()
		fn()
	})
	d.timers[key] = timer
}

// Stop отменяет все отложенные вызовы
func (d *ResizeDebouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for key, t := range d.timers {
		t.Stop()
		delete(d.timers, key)
	}
}
