package dispatch

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// WebSocketDispatcher is a Hub plus the HTTP upgrade handler that feeds it
// new subscribers. It satisfies alert.Dispatcher via the embedded Hub.
type WebSocketDispatcher struct {
	*Hub
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

// NewWebSocketDispatcher builds a dispatcher with its own Hub. Call Run(ctx)
// on the returned value (it embeds Hub) before registering ServeHTTP with a
// router.
func NewWebSocketDispatcher(log zerolog.Logger) *WebSocketDispatcher {
	return &WebSocketDispatcher{
		Hub: NewHub(log),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: log.With().Str("subsystem", "dispatch.websocket").Logger(),
	}
}

// ServeHTTP upgrades the request to a WebSocket connection and registers it
// with the hub. Subscribers are pure listeners: the hub only writes to them
// and never reads from the connection.
func (d *WebSocketDispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := d.upgrader.Upgrade(w, r, nil)
	if err != nil {
		d.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	d.Hub.registerConn(conn)
}
