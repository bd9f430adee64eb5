// Package ws fans period snapshots and settled results out to WebSocket
// clients. The hub bridges the coordination bus: one subscription per message
// class, shared by every connected client.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 64
)

// RawSubscriber provides raw bus payloads for a channel pattern. The Redis
// coordination bus satisfies it.
type RawSubscriber interface {
	SubscribeRaw(ctx context.Context, channel string) (<-chan []byte, error)
}

// envelope is the frame sent to clients: the message class plus the bus
// payload verbatim.
type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Hub owns the set of connected clients and fans bus messages out to them.
// Slow clients are disconnected rather than allowed to stall the broadcast.
type Hub struct {
	bus    RawSubscriber
	logger *slog.Logger

	clients    map[*client]bool
	register   chan *client
	unregister chan *client
	broadcast  chan []byte

	// done is closed when Run exits, releasing any client goroutine still
	// trying to register or unregister against a stopped hub.
	done chan struct{}

	upgrader websocket.Upgrader
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates a Hub reading from the given bus.
func NewHub(bus RawSubscriber, logger *slog.Logger) *Hub {
	return &Hub{
		bus:        bus,
		logger:     logger.With(slog.String("component", "ws_hub")),
		clients:    make(map[*client]bool),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, 256),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Browser origin checks are handled by the CORS layer in front.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Run subscribes to the period and result channels and pumps messages to
// clients until ctx is cancelled. It must be called at most once.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)

	periods, err := h.bus.SubscribeRaw(ctx, "ch:period:*")
	if err != nil {
		return err
	}
	results, err := h.bus.SubscribeRaw(ctx, "ch:result:*")
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			return ctx.Err()

		case c := <-h.register:
			h.clients[c] = true
			h.logger.Debug("client connected", slog.Int("clients", len(h.clients)))

		case c := <-h.unregister:
			if h.clients[c] {
				delete(h.clients, c)
				close(c.send)
				h.logger.Debug("client disconnected", slog.Int("clients", len(h.clients)))
			}

		case payload, ok := <-periods:
			if !ok {
				return nil
			}
			h.fanOut("period", payload)

		case payload, ok := <-results:
			if !ok {
				return nil
			}
			h.fanOut("result", payload)

		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

func (h *Hub) fanOut(msgType string, payload []byte) {
	frame, err := json.Marshal(envelope{Type: msgType, Data: payload})
	if err != nil {
		h.logger.Error("marshal frame", slog.String("error", err.Error()))
		return
	}
	h.deliver(frame)
}

func (h *Hub) deliver(frame []byte) {
	for c := range h.clients {
		select {
		case c.send <- frame:
		default:
			// Client cannot keep up; drop it.
			delete(h.clients, c)
			close(c.send)
		}
	}
}

// Serve handles GET /ws: upgrades the connection and attaches it to the hub.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("upgrade failed", slog.String("error", err.Error()))
		return
	}

	c := &client{hub: h, conn: conn, send: make(chan []byte, sendBuffer)}
	if !h.attach(c) {
		_ = conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

// attach registers the client, reporting false when the hub has stopped.
func (h *Hub) attach(c *client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) detach(c *client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// readPump discards inbound frames; the stream is one-way. It exists to
// service pongs and to notice closed connections promptly.
func (c *client) readPump() {
	defer func() {
		c.hub.detach(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
