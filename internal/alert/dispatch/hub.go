package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/driftline/sentry/pkg/models"
)

const (
	writeWait      = 10 * time.Second
	sendBufferSize = 256
)

// wsClient is one connected chat-front-end subscriber.
type wsClient struct {
	id   string
	conn *websocket.Conn
	send chan models.MarketAlert
}

// Hub fans MarketAlerts out to connected WebSocket subscribers. It is the
// transport a chat front-end would subscribe through; it carries no
// knowledge of dedupe or channel routing beyond what each alert already
// specifies.
type Hub struct {
	mu      sync.RWMutex
	clients map[*wsClient]bool

	broadcast  chan models.MarketAlert
	register   chan *wsClient
	unregister chan *wsClient

	log zerolog.Logger
}

// NewHub builds a Hub; call Run in a goroutine to start its loop.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*wsClient]bool),
		broadcast:  make(chan models.MarketAlert, 1000),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		log:        log.With().Str("subsystem", "dispatch.websocket").Logger(),
	}
}

// Run drives the hub's event loop until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	h.log.Info().Msg("websocket hub started")
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
			h.log.Debug().Str("client_id", c.id).Int("total", len(h.clients)).Msg("client connected")
		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
		case alert := <-h.broadcast:
			h.fanOut(alert)
		}
	}
}

// Dispatch satisfies the alert.Dispatcher interface by enqueueing alert for
// broadcast. It never blocks: a full broadcast buffer drops the alert and
// logs a warning, since the websocket transport is a live-view convenience,
// not the durable record (that's internal/history).
func (h *Hub) Dispatch(_ context.Context, alert models.MarketAlert) error {
	select {
	case h.broadcast <- alert:
	default:
		h.log.Warn().Str("alert_id", alert.AlertID).Msg("broadcast buffer full, dropping alert")
	}
	return nil
}

func (h *Hub) fanOut(alert models.MarketAlert) {
	h.mu.RLock()
	clients := make([]*wsClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		select {
		case c.send <- alert:
		default:
			h.log.Warn().Str("client_id", c.id).Msg("client send buffer full, disconnecting")
			go func(c *wsClient) { h.unregister <- c }(c)
		}
	}
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.log.Info().Int("clients", len(h.clients)).Msg("shutting down websocket hub")
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
}

// registerConn adds a new client to the hub, starting its write pump.
func (h *Hub) registerConn(conn *websocket.Conn) {
	c := &wsClient{id: conn.RemoteAddr().String(), conn: conn, send: make(chan models.MarketAlert, sendBufferSize)}
	h.register <- c
	go h.writePump(c)
}

func (h *Hub) writePump(c *wsClient) {
	defer c.conn.Close()
	for alert := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(alert); err != nil {
			h.log.Debug().Str("client_id", c.id).Err(err).Msg("write failed, dropping client")
			return
		}
	}
}
