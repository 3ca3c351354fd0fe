package api

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/numa1979/edge-room-monitor/internal/models"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Hub fans newly appended alerts out to every connected dashboard
// websocket client. Grounded on the register/unregister/broadcast
// channel pattern used for live feature-extractor updates elsewhere in
// the corpus, simplified to one broadcast-only topic.
type Hub struct {
	clients    map[*wsClient]bool
	register   chan *wsClient
	unregister chan *wsClient
	broadcast  chan []byte
	mu         sync.RWMutex
	logger     *zap.Logger
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*wsClient]bool),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		broadcast:  make(chan []byte),
		logger:     logger,
	}
}

// Run owns the client map; call it in its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.RLock()
			for c := range h.clients {
				select {
				case c.send <- message:
				default:
					delete(h.clients, c)
					close(c.send)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// alertWireMessage is the payload pushed to connected dashboards.
type alertWireMessage struct {
	SlotID       int    `json:"slot_id"`
	Kind         string `json:"kind"`
	Message      string `json:"message"`
	TimestampMS  int64  `json:"timestamp_ms"`
	Acknowledged bool   `json:"acknowledged"`
}

// Notify implements engine.AlertSink: every newly appended alert is
// broadcast to all connected clients, best-effort.
func (h *Hub) Notify(alert models.Alert) {
	msg := alertWireMessage{
		SlotID:       alert.SlotID,
		Kind:         alert.Kind.String(),
		Message:      alert.Message,
		TimestampMS:  alert.Timestamp.UnixMilli(),
		Acknowledged: alert.Acknowledged,
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Warn("failed to marshal alert for websocket broadcast", zap.Error(err))
		return
	}

	select {
	case h.broadcast <- payload:
	default:
		h.logger.Warn("websocket broadcast channel full, dropping alert")
	}
}

// HandleWebSocket upgrades the connection and registers a client.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &wsClient{conn: conn, send: make(chan []byte, 64)}
	h.register <- client

	go client.writePump()
	go client.readPump(h)
}

func (c *wsClient) readPump(h *Hub) {
	defer func() {
		h.unregister <- c
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *wsClient) writePump() {
	defer c.conn.Close()
	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
