package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"everdex/internal/event"
	"everdex/internal/infra"
)

const (
	pingInterval = 30 * time.Second
	writeTimeout = 10 * time.Second
	readTimeout  = 90 * time.Second
)

// Hub fans journaled engine events out to websocket subscribers. The feed
// is read-only; incoming frames are discarded.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*client]struct{}
	upgrader websocket.Upgrader
}

type client struct {
	conn    *websocket.Conn
	writeMu sync.Mutex // serializes data and ping writes
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// The feed carries no credentials and is origin-agnostic.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the connection and registers the subscriber.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("Websocket upgrade failed", slog.Any("error", err))
		return
	}

	c := &client{conn: conn}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	infra.GlobalMetrics.IncrementSubscribers()
	slog.Info("Feed subscriber connected", slog.String("remote", conn.RemoteAddr().String()))

	go h.pingLoop(c)
	go h.readLoop(c)
}

// Broadcast sends one event to every subscriber. Marshals once; a failed
// write drops that subscriber only.
func (h *Hub) Broadcast(ev event.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		slog.Error("Failed to marshal event", slog.Any("error", err))
		return
	}

	env := event.AcquireEnvelope()
	env.Type = ev.GetType()
	env.Seq = ev.GetSeq()
	env.Payload = payload
	frame, err := json.Marshal(env)
	event.ReleaseEnvelope(env)
	if err != nil {
		slog.Error("Failed to marshal envelope", slog.Any("error", err))
		return
	}

	h.mu.RLock()
	subscribers := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		subscribers = append(subscribers, c)
	}
	h.mu.RUnlock()

	for _, c := range subscribers {
		if err := c.write(websocket.TextMessage, frame); err != nil {
			h.drop(c)
		}
	}
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.conn.Close()
		infra.GlobalMetrics.DecrementSubscribers()
	}
	h.clients = make(map[*client]struct{})
}

func (c *client) write(messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(messageType, data)
}

func (h *Hub) pingLoop(c *client) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for range ticker.C {
		if !h.has(c) {
			return
		}
		if err := c.write(websocket.PingMessage, nil); err != nil {
			h.drop(c)
			return
		}
	}
}

func (h *Hub) readLoop(c *client) {
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(readTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			h.drop(c)
			return
		}
	}
}

func (h *Hub) has(c *client) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[c]
	return ok
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	h.mu.Unlock()

	c.conn.Close()
	infra.GlobalMetrics.DecrementSubscribers()
	slog.Info("Feed subscriber disconnected")
}
