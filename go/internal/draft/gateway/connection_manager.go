package gateway

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// ConnectionConfig holds WebSocket transport settings.
type ConnectionConfig struct {
	WriteTimeout   time.Duration
	ReadTimeout    time.Duration
	PingInterval   time.Duration
	MaxMessageSize int64
	CheckOrigin    func(r *http.Request) bool
}

// DefaultConnectionConfig returns defaults suitable for browser clients
// behind the league's own origin.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:   10 * time.Second,
		ReadTimeout:    60 * time.Second,
		PingInterval:   HeartbeatInterval,
		MaxMessageSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// The SSE endpoint is the primary transport; WS mirrors it
			// for clients that already speak it. Origin checks belong
			// to the fronting proxy.
			return true
		},
	}
}

// HandleWebSocket mirrors the SSE stream over a WebSocket connection.
// Replay semantics are identical; last_event_id comes from the query.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	divisionIDStr := r.URL.Query().Get("division_id")
	if divisionIDStr == "" {
		http.Error(w, "division_id is required", http.StatusBadRequest)
		return
	}
	divisionID, err := uuid.Parse(divisionIDStr)
	if err != nil {
		http.Error(w, "invalid division_id format", http.StatusBadRequest)
		return
	}
	userID := r.URL.Query().Get("user_id")

	var lastEventID int64
	if raw := r.URL.Query().Get("last_event_id"); raw != "" {
		// Malformed values fall back to a fresh subscription.
		lastEventID = parseQueryInt64(raw)
	}

	sub, err := h.broker.Subscribe(r.Context(), divisionID, userID, lastEventID)
	if err != nil {
		log.Error().Err(err).Str("division_id", divisionID.String()).Msg("failed to open subscription")
		http.Error(w, "failed to open stream", http.StatusInternalServerError)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		sub.Close()
		log.Error().Err(err).Msg("failed to upgrade WebSocket connection")
		return
	}

	log.Info().
		Str("connection_id", sub.ID).
		Str("user_id", userID).
		Str("division_id", divisionID.String()).
		Msg("WebSocket connection established")

	go h.writePump(conn, sub)
	go h.readPump(conn, sub)
}

// writePump sends subscription events and protocol pings until the
// subscription or the connection dies.
func (h *Handler) writePump(conn *websocket.Conn, sub *Subscription) {
	ping := time.NewTicker(h.config.PingInterval)
	defer func() {
		ping.Stop()
		conn.Close()
		sub.Close()
	}()

	for {
		select {
		case event, open := <-sub.Events():
			conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if !open {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				log.Error().Err(err).Str("connection_id", sub.ID).Msg("failed to write event to WebSocket")
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains client frames to keep pong handling alive; the
// gateway accepts no client commands over this transport.
func (h *Handler) readPump(conn *websocket.Conn, sub *Subscription) {
	defer func() {
		sub.Close()
		conn.Close()
	}()

	conn.SetReadLimit(h.config.MaxMessageSize)
	conn.SetReadDeadline(time.Now().Add(h.config.ReadTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(h.config.ReadTimeout))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("connection_id", sub.ID).Msg("unexpected WebSocket close error")
			}
			return
		}
	}
}
