package gateway

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/mcdev12/draftroom/go/internal/draft/events"
	"github.com/rs/zerolog/log"
)

// HandleSSE serves the streaming subscription endpoint: a long-lived
// text/event-stream of draft events, each frame tagged with its
// sequence id so clients can resume with Last-Event-ID.
func (h *Handler) HandleSSE(w http.ResponseWriter, r *http.Request) {
	divisionID, err := uuid.Parse(chi.URLParam(r, "divisionID"))
	if err != nil {
		http.Error(w, "invalid division id", http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	userID := r.URL.Query().Get("userId")
	lastEventID := parseLastEventID(r)

	sub, err := h.broker.Subscribe(r.Context(), divisionID, userID, lastEventID)
	if err != nil {
		log.Error().Err(err).Str("division_id", divisionID.String()).Msg("failed to open subscription")
		http.Error(w, "failed to open stream", http.StatusInternalServerError)
		return
	}
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	heartbeat := h.clock.NewTicker(HeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, open := <-sub.Events():
			if !open {
				return
			}
			if err := writeSSE(w, flusher, event); err != nil {
				return
			}
		case <-heartbeat.Chan():
			if err := writeSSE(w, flusher, h.broker.Heartbeat(divisionID)); err != nil {
				return
			}
		}
	}
}

func writeSSE(w http.ResponseWriter, flusher http.Flusher, event events.Event) error {
	data := event.Data
	if data == nil {
		data = []byte("{}")
	}
	if _, err := fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", event.SequenceID, event.Type, data); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}

// parseLastEventID prefers the EventSource reconnect header, falling
// back to the lastEventId query parameter for first connects.
func parseLastEventID(r *http.Request) int64 {
	raw := r.Header.Get("Last-Event-ID")
	if raw == "" {
		raw = r.URL.Query().Get("lastEventId")
	}
	if raw == "" {
		return 0
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return id
}
