// internal/socket/hub.go
package socket

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"wte-api-server/internal/models"
)

const (
	writeWait = 10 * time.Second
	// sendBuffer is how many events may queue for one dashboard before it is
	// considered too slow and dropped.
	sendBuffer = 16
)

// Message is the JSON frame pushed to dashboards.
type Message struct {
	Event  string              `json:"event"`
	Report *models.WasteReport `json:"report"`
}

// client is one dashboard connection. Only its writePump writes data frames
// to conn.
type client struct {
	userID int64
	conn   *websocket.Conn
	send   chan []byte
}

// Hub tracks the admin dashboards connected over WebSocket and broadcasts
// report events to all of them.
type Hub struct {
	clients map[*websocket.Conn]*client
	mu      sync.Mutex
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*websocket.Conn]*client),
	}
}

// Register adds a connection opened by userID and starts its writer.
func (h *Hub) Register(userID int64, conn *websocket.Conn) {
	c := &client{userID: userID, conn: conn, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	h.clients[conn] = c
	count := len(h.clients)
	h.mu.Unlock()

	go h.writePump(c)
	log.Printf("WebSocket client registered: admin %d (%d connected)", userID, count)
}

// Unregister removes a connection. Its writer sends a close frame and exits.
func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[conn]; ok {
		h.remove(c)
		log.Printf("WebSocket client unregistered: admin %d", c.userID)
	}
}

// remove must be called with mu held.
func (h *Hub) remove(c *client) {
	delete(h.clients, c.conn)
	close(c.send)
}

// Count returns the number of connected dashboards.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Publish queues a report event for every dashboard without waiting on the
// network. A dashboard whose queue is full is dropped.
func (h *Hub) Publish(event string, report *models.WasteReport) {
	payload, err := json.Marshal(Message{Event: event, Report: report})
	if err != nil {
		log.Printf("WebSocket: failed to encode %s event: %v", event, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.clients {
		select {
		case c.send <- payload:
		default:
			log.Printf("WebSocket: dropping slow admin %d", c.userID)
			h.remove(c)
		}
	}
}

// writePump drains c.send onto the connection. It is the only goroutine
// writing data frames to c.conn.
func (h *Hub) writePump(c *client) {
	defer c.conn.Close()

	for payload := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Printf("WebSocket: dropping admin %d: %v", c.userID, err)
			h.Unregister(c.conn)
			return
		}
	}

	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
