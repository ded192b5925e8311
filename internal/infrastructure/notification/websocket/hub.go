package websocket

import (
	"context"
	"sync"

	"github.com/dreschagin/ddc-kiosk/pkg/logger"
)

// Hub управляет WebSocket клиентами и рассылает события оболочкам киоска.
// Реализует интерфейс port.NotificationService
type Hub struct {
	// Зарегистрированные клиенты
	clients map[*Client]bool

	// Канал для broadcast сообщений
	broadcast chan Message

	// Канал для регистрации клиентов
	register chan *Client

	// Канал для удаления клиентов
	unregister chan *Client

	// Mutex для защиты clients map
	mu sync.RWMutex

	logger *logger.Logger
}

// NewHub создает новый WebSocket hub
func NewHub(logger *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger,
	}
}

// Run запускает hub (должен быть запущен в отдельной goroutine).
// При отмене ctx все клиенты отключаются.
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("WebSocket hub started")

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			h.logger.Info("WebSocket hub stopped")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("Client registered", "total_clients", total)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("Client unregistered", "total_clients", total)

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if !client.subscribed(message.session) {
					continue
				}
				select {
				case client.send <- message:
				default:
					// Канал клиента заполнен, закрываем соединение
					close(client.send)
					delete(h.clients, client)
					h.logger.Warn("Client channel full, disconnected")
				}
			}
			h.mu.Unlock()
		}
	}
}

// Register регистрирует нового клиента
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister удаляет клиента
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Broadcast отправляет событие всем клиентам (реализация port.NotificationService)
func (h *Hub) Broadcast(eventType string, payload interface{}) {
	select {
	case h.broadcast <- Message{Type: eventType, Data: payload}:
	default:
		h.logger.Warn("Broadcast channel full, dropping event", "type", eventType)
	}
}

// SendToSession отправляет событие только оболочкам, подписанным на sessionID
// (viewport snapshot одной вкладки не должен двигать зум в соседней)
func (h *Hub) SendToSession(sessionID, eventType string, payload interface{}) {
	if sessionID == "" {
		return
	}
	select {
	case h.broadcast <- Message{Type: eventType, Data: payload, session: sessionID}:
	default:
		h.logger.Warn("Broadcast channel full, dropping event", "type", eventType, "session", sessionID)
	}
}

// ClientCount возвращает количество подключенных клиентов (реализация port.NotificationService)
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Message представляет сообщение для отправки клиенту
type Message struct {
	Type string      `json:"type"` // connection, screenshot, gallery, viewport
	Data interface{} `json:"data"`

	// адресат; пусто = всем клиентам
	session string
}
