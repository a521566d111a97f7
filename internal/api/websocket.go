package api

import (
	"context"
	"encoding/json"
	"sync"

	"nhooyr.io/websocket"

	"github.com/novaforge/reelcore/internal/metrics"
)

// ──────────────────── WebSocket Hub ────────────────────

// Hub fans reactive state changes (notifications, media updates, timeline
// updates) out to every connected UI tab, the same broadcast shape as the
// teacher's WSHub but without its per-task replay cache: this core has no
// long-running background jobs a newly connected tab needs to catch up
// on, only current state it re-fetches over REST right after connecting.
type Hub struct {
	mu      sync.RWMutex
	clients map[*pushClient]struct{}
}

type pushClient struct {
	conn *websocket.Conn
	send chan []byte
}

// pushMessage is the envelope every broadcast is wrapped in.
type pushMessage struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*pushClient]struct{})}
}

// Broadcast fans a message out to every connected client, dropping it for
// any client whose send buffer is already full rather than blocking the
// module that triggered the update.
func (h *Hub) Broadcast(event string, data interface{}) {
	msg, err := json.Marshal(pushMessage{Event: event, Data: data})
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
		}
	}
}

func (h *Hub) addClient(conn *websocket.Conn) *pushClient {
	c := &pushClient{conn: conn, send: make(chan []byte, 32)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	metrics.WebSocketClients.Set(float64(h.ClientCount()))
	return c
}

func (h *Hub) removeClient(c *pushClient) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	c.conn.Close(websocket.StatusNormalClosure, "")
	metrics.WebSocketClients.Set(float64(h.ClientCount()))
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (c *pushClient) writeLoop(ctx context.Context) {
	for msg := range c.send {
		if err := c.conn.Write(ctx, websocket.MessageText, msg); err != nil {
			return
		}
	}
}
