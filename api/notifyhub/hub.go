package notifyhub

import (
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"github.com/moyoez/corpus-uploader/tool"
	"github.com/moyoez/corpus-uploader/types"
)

const writeWait = 5 * time.Second

// client serializes writes; gorilla connections allow one concurrent writer.
type client struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

// Hub holds WebSocket connections and broadcasts notifications to all clients.
// Implements types.NotifyHub.
type Hub struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]*client
}

// New creates a new notify hub.
func New() *Hub {
	return &Hub{
		clients: make(map[*websocket.Conn]*client),
	}
}

// Register adds a WebSocket connection to the hub.
func (h *Hub) Register(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = &client{conn: conn}
}

// Unregister removes a WebSocket connection from the hub.
func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, conn)
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends the notification as JSON to all registered connections.
func (h *Hub) Broadcast(notification *types.Notification) {
	if notification == nil {
		return
	}
	payload, err := sonic.Marshal(notification)
	if err != nil {
		tool.DefaultLogger.Errorf("[NotifyWS] Failed to encode %s: %v", notification.Type, err)
		return
	}

	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.mu.Lock()
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			tool.DefaultLogger.Debugf("[NotifyWS] Dropping client %s: %v", c.conn.RemoteAddr(), err)
			c.mu.Unlock()
			h.Unregister(c.conn)
			continue
		}
		c.mu.Unlock()
	}
}
