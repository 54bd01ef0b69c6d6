package gateway

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
)

// Handler exposes the broker over SSE and WebSocket.
type Handler struct {
	broker   *Broker
	clock    clockwork.Clock
	config   ConnectionConfig
	upgrader websocket.Upgrader
}

// NewHandler creates the streaming transport handler.
func NewHandler(broker *Broker, clock clockwork.Clock, config ConnectionConfig) *Handler {
	return &Handler{
		broker: broker,
		clock:  clock,
		config: config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     config.CheckOrigin,
		},
	}
}

// RegisterRoutes mounts the streaming endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/api/divisions/{divisionID}/events", h.HandleSSE)
	r.Get("/ws/draft", h.HandleWebSocket)
	r.Get("/ws/stats", h.HandleStats)
}

// HandleStats reports subscriber counts, mostly for debugging.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats := h.broker.Stats()
	total := 0
	for _, n := range stats {
		total += n
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"total_connections":    total,
		"division_connections": stats,
	})
}

func parseQueryInt64(raw string) int64 {
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return v
}
