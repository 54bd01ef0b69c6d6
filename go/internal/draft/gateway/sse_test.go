package gateway

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/draftroom/go/internal/draft/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sseFrame struct {
	id    string
	event string
	data  string
}

// readFrames reads n SSE frames off the stream or fails on timeout.
func readFrames(t *testing.T, scanner *bufio.Scanner, n int) []sseFrame {
	t.Helper()
	var frames []sseFrame
	frame := sseFrame{}
	for len(frames) < n && scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			frames = append(frames, frame)
			frame = sseFrame{}
		case strings.HasPrefix(line, "id: "):
			frame.id = strings.TrimPrefix(line, "id: ")
		case strings.HasPrefix(line, "event: "):
			frame.event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			frame.data = strings.TrimPrefix(line, "data: ")
		}
	}
	require.Len(t, frames, n)
	return frames
}

func TestHandleSSEStreamsEvents(t *testing.T) {
	broker := NewBroker(&stubSnapshots{}, clockwork.NewFakeClock())
	handler := NewHandler(broker, clockwork.NewFakeClock(), DefaultConnectionConfig())

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	srv := httptest.NewServer(r)
	defer srv.Close()

	divisionID := uuid.New()
	broker.Publish(events.TypePickMade, divisionID, []byte(`{"pick_number":1}`))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		srv.URL+"/api/divisions/"+divisionID.String()+"/events?userId=u1&lastEventId=0", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	scanner := bufio.NewScanner(resp.Body)

	// Handshake: connection event then state snapshot.
	frames := readFrames(t, scanner, 2)
	assert.Equal(t, string(events.TypeConnection), frames[0].event)
	assert.Equal(t, string(events.TypeTurnChange), frames[1].event)

	// A live publish arrives as the next frame with its sequence id.
	live := broker.Publish(events.TypePickMade, divisionID, []byte(`{"pick_number":2}`))
	frames = readFrames(t, scanner, 1)
	assert.Equal(t, string(events.TypePickMade), frames[0].event)
	assert.Equal(t, "2", frames[0].id)
	assert.JSONEq(t, `{"pick_number":2}`, frames[0].data)
	assert.Equal(t, int64(2), live.SequenceID)
}

func TestHandleSSEResume(t *testing.T) {
	broker := NewBroker(&stubSnapshots{}, clockwork.NewFakeClock())
	handler := NewHandler(broker, clockwork.NewFakeClock(), DefaultConnectionConfig())

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	srv := httptest.NewServer(r)
	defer srv.Close()

	divisionID := uuid.New()
	for i := 0; i < 3; i++ {
		broker.Publish(events.TypePickMade, divisionID, []byte(`{}`))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		srv.URL+"/api/divisions/"+divisionID.String()+"/events", nil)
	require.NoError(t, err)
	req.Header.Set("Last-Event-ID", "1")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	frames := readFrames(t, bufio.NewScanner(resp.Body), 4)
	// Two replayed events, then the handshake pair.
	assert.Equal(t, "2", frames[0].id)
	assert.Equal(t, "3", frames[1].id)
	assert.Equal(t, string(events.TypeConnection), frames[2].event)
	assert.Equal(t, "3", frames[2].id)
}

func TestHandleSSERejectsBadDivision(t *testing.T) {
	broker := NewBroker(&stubSnapshots{}, clockwork.NewFakeClock())
	handler := NewHandler(broker, clockwork.NewFakeClock(), DefaultConnectionConfig())

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	srv := httptest.NewServer(r)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/divisions/nope/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
