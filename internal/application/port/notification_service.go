package port

// Event types pushed to connected kiosk shells.
const (
	NotifyConnection = "connection"
	NotifyScreenshot = "screenshot"
	NotifyGallery    = "gallery"
	NotifyViewport   = "viewport"
)

// NotificationService рассылает события подключенным оболочкам (реализация: WebSocket Hub)
type NotificationService interface {
	// Broadcast отправляет событие всем клиентам
	Broadcast(eventType string, payload interface{})

	// SendToSession отправляет событие только оболочкам с этим viewport session id
	SendToSession(sessionID, eventType string, payload interface{})

	// ClientCount возвращает количество подключенных клиентов
	ClientCount() int
}
