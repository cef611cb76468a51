package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/roms-labs/ingest-svc/internal/service/models/event"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// Hub fans order update events out to connected dashboard clients. Delivery
// is fire-and-forget: a slow or dead client is dropped, never waited on.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}

	register   chan *client
	unregister chan *client
	broadcast  chan []byte
	done       chan struct{}
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*client]struct{}),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, 64),
		done:       make(chan struct{}),
	}
}

// Run owns the client set until the context is cancelled. Run it in its own
// goroutine.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case c := <-h.register:
			h.addClient(c)

		case c := <-h.unregister:
			h.removeClient(c)

		case data := <-h.broadcast:
			h.fanOut(data)

		case <-ctx.Done():
			h.closeAll()
			close(h.done)
			slog.Info("WebSocket hub stopped")

			return
		}
	}
}

// Notify queues an order update for broadcast. It never blocks: when the
// broadcast buffer is full the update is dropped.
func (h *Hub) Notify(update event.OrderUpdate) {
	data, err := json.Marshal(update)
	if err != nil {
		slog.Error("Failed to marshal order update", "error", err)

		return
	}

	select {
	case h.broadcast <- data:
	default:
		slog.Debug("Broadcast buffer full, update dropped", "order_number", update.OrderNumber)
	}
}

// Handler upgrades the request and attaches the connection to the hub.
func (h *Hub) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Error("Failed to upgrade websocket connection", "error", err)

			return
		}

		c := newClient(h, conn)

		select {
		case h.register <- c:
		case <-h.done:
			_ = conn.Close()

			return
		}

		go c.writePump()
		go c.readPump()
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}

func (h *Hub) addClient(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[c] = struct{}{}

	slog.Debug("Dashboard client connected", "clients", len(h.clients))
}

func (h *Hub) removeClient(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return
	}

	delete(h.clients, c)
	close(c.send)

	slog.Debug("Dashboard client disconnected", "clients", len(h.clients))
}

func (h *Hub) fanOut(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			delete(h.clients, c)
			close(c.send)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}
