// Package livereload tells development browsers to reload after an asset
// rebuild.
package livereload

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"page-server/internal/logging"
	"page-server/internal/metrics"
)

// Path is where the hub is mounted.
const Path = "/__livereload"

const writeTimeout = 5 * time.Second

// Message is sent to every connected browser.
type Message struct {
	Type    string `json:"type"`
	Version string `json:"version,omitempty"`
}

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub tracks websocket clients and broadcasts reload messages.
type Hub struct {
	mu       sync.Mutex
	clients  map[*client]struct{}
	closed   bool
	upgrader websocket.Upgrader
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Development only: pages may be opened through any host alias.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the request and holds the connection until the browser
// goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Debug("Live reload upgrade failed: %v", err)
		return
	}
	c := &client{conn: conn}
	if !h.add(c) {
		_ = conn.Close()
		return
	}
	defer h.remove(c)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Reload asks every browser to reload for the given manifest version.
func (h *Hub) Reload(version string) {
	h.broadcast(Message{Type: "reload", Version: version})
}

// ClientCount returns the number of connected browsers.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every browser and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := h.snapshotLocked()
	h.clients = make(map[*client]struct{})
	h.closed = true
	metrics.LiveReloadClients.Set(0)
	h.mu.Unlock()

	for _, c := range clients {
		c.mu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		c.mu.Unlock()
		_ = c.conn.Close()
	}
}

func (h *Hub) broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		logging.Error("Failed to encode live reload message: %v", err)
		return
	}

	h.mu.Lock()
	clients := h.snapshotLocked()
	h.mu.Unlock()

	logging.Debug("Sending %s to %d live reload clients", msg.Type, len(clients))
	for _, c := range clients {
		if err := c.send(data); err != nil {
			logging.Debug("Dropping live reload client: %v", err)
			h.remove(c)
		}
	}
}

func (h *Hub) add(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	metrics.LiveReloadClients.Set(float64(len(h.clients)))
	return true
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	metrics.LiveReloadClients.Set(float64(len(h.clients)))
	h.mu.Unlock()
	if ok {
		_ = c.conn.Close()
	}
}

func (h *Hub) snapshotLocked() []*client {
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	return clients
}
