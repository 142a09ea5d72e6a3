// Package realtime pushes item change events to storefront pages over
// websockets.
package realtime

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"menu-service/internal/data/dto"
	"menu-service/internal/sl"
)

const (
	writeWait    = 5 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = 25 * time.Second
)

type client struct {
	conn *websocket.Conn
	// gorilla connections allow one concurrent writer.
	mu sync.Mutex
}

func (c *client) write(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(messageType, data)
}

type Hub struct {
	log      *slog.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*client]struct{}
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		log: log,
		upgrader: websocket.Upgrader{
			// the menu is public; any page may subscribe
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

// ServeHTTP upgrades the request and keeps the subscriber until it goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "realtime.Hub.ServeHTTP"

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("websocket upgrade failed", slog.String("op", op), sl.Err(err))
		return
	}

	// replaces any deadline left on the hijacked connection by the server
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	c := &client{conn: conn}
	h.register(c)
	defer h.unregister(c)

	done := make(chan struct{})
	defer close(done)

	go func() {
		t := time.NewTicker(pingInterval)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-t.C:
				if err := c.write(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	// subscribers never send anything useful; reading only detects close
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// ItemsChanged tells every subscriber that item id was added, edited or
// deleted. Subscribers that cannot be written to are dropped.
func (h *Hub) ItemsChanged(action string, id int64) {
	msg, err := json.Marshal(dto.ItemEvent{Event: "items.changed", Action: action, ID: id})
	if err != nil {
		h.log.Error("failed to encode item event", sl.Err(err))
		return
	}

	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if err := c.write(websocket.TextMessage, msg); err != nil {
			h.unregister(c)
		}
	}
}

// Subscribers returns the number of connected clients.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()

	for c := range clients {
		_ = c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
		_ = c.conn.Close()
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()

	if ok {
		_ = c.conn.Close()
	}
}
