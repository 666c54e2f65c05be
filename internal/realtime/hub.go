// Package realtime pushes dashboard state snapshots to websocket clients.
package realtime

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

type Event struct {
	Type    string    `json:"type"`
	Session string    `json:"session,omitempty"`
	State   any       `json:"state,omitempty"`
	At      time.Time `json:"at"`
}

type Hub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[string]map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(_ *http.Request) bool {
				// Auth middleware runs before the upgrade.
				return true
			},
		},
		clients: map[string]map[*client]struct{}{},
	}
}

// Serve upgrades the request and subscribes the connection to one session's
// state stream. It blocks until the client disconnects.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, sessionID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	c := &client{conn: conn, send: make(chan []byte, 16)}
	h.addClient(sessionID, c)

	go h.writePump(c)
	h.readPump(sessionID, c)
}

func (h *Hub) BroadcastState(sessionID string, state any) {
	ev := Event{Type: "state", Session: sessionID, State: state, At: time.Now().UTC()}
	b, err := json.Marshal(ev)
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients[sessionID] {
		select {
		case c.send <- b:
		default:
			// Slow client; drop it.
			delete(h.clients[sessionID], c)
			close(c.send)
			_ = c.conn.Close()
		}
	}
}

// CloseSession disconnects every client subscribed to the session.
func (h *Hub) CloseSession(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients[sessionID] {
		close(c.send)
		_ = c.conn.Close()
	}
	delete(h.clients, sessionID)
}

func (h *Hub) addClient(sessionID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[sessionID] == nil {
		h.clients[sessionID] = map[*client]struct{}{}
	}
	h.clients[sessionID][c] = struct{}{}
}

func (h *Hub) removeClient(sessionID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[sessionID][c]; ok {
		delete(h.clients[sessionID], c)
		close(c.send)
		_ = c.conn.Close()
	}
	if len(h.clients[sessionID]) == 0 {
		delete(h.clients, sessionID)
	}
}

func (h *Hub) readPump(sessionID string, c *client) {
	defer h.removeClient(sessionID, c)
	c.conn.SetReadLimit(1024)
	_ = c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(25 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
