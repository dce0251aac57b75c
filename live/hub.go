// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package live

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait = 5 * time.Second

	// Pending updates per subscriber before it is treated as stalled
	sendBuffer = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// client is one websocket subscriber. Only writePump writes to conn.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

func (c *client) writePump() {
	defer c.conn.Close()
	for message := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	// send was closed by the hub
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// Hub tracks websocket subscribers per question and pushes tallies to them
type Hub struct {
	mu      sync.Mutex
	clients map[string]map[*client]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[string]map[*client]struct{})}
}

func (h *Hub) register(questionID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[questionID] == nil {
		h.clients[questionID] = make(map[*client]struct{})
	}
	h.clients[questionID][c] = struct{}{}
}

func (h *Hub) unregister(questionID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.remove(questionID, c)
}

// remove must be called with h.mu held
func (h *Hub) remove(questionID string, c *client) {
	conns, ok := h.clients[questionID]
	if !ok {
		return
	}
	if _, ok := conns[c]; ok {
		delete(conns, c)
		close(c.send)
	}
	if len(conns) == 0 {
		delete(h.clients, questionID)
	}
}

// Subscribers returns the number of open connections for a question
func (h *Hub) Subscribers(questionID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients[questionID])
}

// Broadcast queues v as JSON for every subscriber of the question and
// returns without waiting for the writes. A subscriber whose queue is
// full is dropped.
func (h *Hub) Broadcast(questionID string, v any) {
	message, err := json.Marshal(v)
	if err != nil {
		slog.Error("failed to encode live update", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients[questionID] {
		select {
		case c.send <- message:
		default:
			slog.Warn("dropping stalled live subscriber", "question_id", questionID)
			h.remove(questionID, c)
		}
	}
}

// Serve upgrades the request and keeps the connection subscribed to
// questionID until the client goes away. initial, when non-nil, is sent first.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, questionID string, initial any) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	if initial != nil {
		message, err := json.Marshal(initial)
		if err != nil {
			slog.Error("failed to encode live update", "error", err)
			conn.Close()
			return
		}
		c.send <- message
	}

	h.register(questionID, c)
	defer h.unregister(questionID, c)
	go c.writePump()

	// Keep the connection alive until the client closes it or writePump
	// gives up on it
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
