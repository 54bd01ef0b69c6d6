package draftclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/draftroom/go/internal/draft/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sseHandler streams the given frames and then holds the connection
// open until the request context ends.
func sseHandler(t *testing.T, lastEventID *atomic.Value, frames ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if lastEventID != nil {
			lastEventID.Store(r.Header.Get("Last-Event-ID"))
		}
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, f := range frames {
			fmt.Fprint(w, f)
			flusher.Flush()
		}
		<-r.Context().Done()
	}
}

func frame(id int, event, data string) string {
	return fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", id, event, data)
}

func TestClientDispatchesEvents(t *testing.T) {
	srv := httptest.NewServer(sseHandler(t, nil,
		frame(3, "connection", `{"connectionId":"c1"}`),
		frame(3, "turn-change", `{"current_pick_number":4}`),
		frame(4, "pick-made", `{"pick_number":4}`),
		frame(4, "heartbeat", `{}`),
	))
	defer srv.Close()

	var got []events.Type
	received := make(chan struct{}, 8)
	refreshes := int32(0)

	c := New(Config{
		BaseURL:    srv.URL,
		DivisionID: "div-1",
		OnRefresh:  func() { atomic.AddInt32(&refreshes, 1) },
		OnEvent: func(ev events.Event) {
			got = append(got, ev.Type)
			received <- struct{}{}
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = c.Run(ctx)
	}()

	// turn-change and pick-made reach OnEvent; the synthetic frames are
	// swallowed.
	<-received
	<-received
	select {
	case <-received:
		t.Fatal("synthetic event leaked to OnEvent")
	case <-time.After(100 * time.Millisecond):
	}

	assert.Equal(t, []events.Type{events.TypeTurnChange, events.TypePickMade}, got)
	assert.Equal(t, int64(4), c.LastEventID())
	assert.Equal(t, StateConnected, c.State())
	// Burst of two refresh-worthy events inside the throttle window
	// collapses to one callback.
	assert.Equal(t, int32(1), atomic.LoadInt32(&refreshes))

	cancel()
	<-done
	assert.Equal(t, StateDisconnected, c.State())
}

func TestClientResumesWithLastEventID(t *testing.T) {
	var lastSeen atomic.Value
	connects := make(chan struct{}, 4)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lastSeen.Store(r.Header.Get("Last-Event-ID"))
		connects <- struct{}{}
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		fmt.Fprint(w, frame(7, "turn-change", `{}`))
		flusher.Flush()
		// Drop the connection to force a reconnect.
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, DivisionID: "div-1"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = c.Run(ctx) }()

	<-connects
	first, _ := lastSeen.Load().(string)
	assert.Equal(t, "", first)

	// Nudge past the backoff instead of waiting it out.
	require.Eventually(t, func() bool {
		c.Wake()
		select {
		case <-connects:
			return true
		default:
			return false
		}
	}, 5*time.Second, 50*time.Millisecond)

	second, _ := lastSeen.Load().(string)
	assert.Equal(t, "7", second)
}

// flakyTransport refuses connections until told to accept one, and
// counts every attempt.
type flakyTransport struct {
	mu       sync.Mutex
	attempts int
	succeed  bool
}

func (f *flakyTransport) RoundTrip(*http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	if f.succeed {
		f.succeed = false
		// An accepted stream that ends immediately: enough for the
		// client to count the connection as established.
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader("")),
		}, nil
	}
	return nil, errors.New("connection refused")
}

func (f *flakyTransport) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts
}

func (f *flakyTransport) succeedOnce() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.succeed = true
}

func TestBackoffScheduleDoublesToCapAndResets(t *testing.T) {
	clock := clockwork.NewFakeClock()
	tr := &flakyTransport{}
	c := New(Config{
		BaseURL:    "http://draft.test",
		DivisionID: "div-1",
		HTTPClient: &http.Client{Transport: tr},
		Clock:      clock,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = c.Run(ctx) }()

	// The first attempt happens immediately, before any backoff wait.
	require.Eventually(t, func() bool { return tr.count() == 1 },
		5*time.Second, 10*time.Millisecond)

	waits := []time.Duration{
		time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second,
		16 * time.Second, 30 * time.Second, 30 * time.Second,
	}
	for i, wait := range waits {
		clock.BlockUntil(1)

		// Just short of the scheduled wait nothing may fire.
		clock.Advance(wait - time.Millisecond)
		assert.Equal(t, i+1, tr.count(), "retry fired before %v elapsed", wait)

		clock.Advance(time.Millisecond)
		want := i + 2
		require.Eventually(t, func() bool { return tr.count() == want },
			5*time.Second, 10*time.Millisecond, "no retry after %v", wait)
	}

	// One accepted connection resets the schedule back to one second.
	tr.succeedOnce()
	clock.BlockUntil(1)
	clock.Advance(30 * time.Second)
	require.Eventually(t, func() bool { return tr.count() == len(waits)+2 },
		5*time.Second, 10*time.Millisecond)

	clock.BlockUntil(1)
	clock.Advance(time.Second)
	require.Eventually(t, func() bool { return tr.count() == len(waits)+3 },
		5*time.Second, 10*time.Millisecond)
}

func TestWakeThrottledAndIgnoredWhileConnected(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := New(Config{BaseURL: "http://localhost:0", Clock: clock})

	c.Wake()
	select {
	case <-c.wakeCh:
	default:
		t.Fatal("first wake should signal")
	}

	// Inside the throttle window nothing is queued.
	c.Wake()
	select {
	case <-c.wakeCh:
		t.Fatal("throttled wake should not signal")
	default:
	}

	clock.Advance(wakeThrottle)
	c.Wake()
	select {
	case <-c.wakeCh:
	default:
		t.Fatal("wake after throttle window should signal")
	}

	// A connected client ignores wakes entirely.
	clock.Advance(wakeThrottle)
	c.setState(StateConnected)
	c.Wake()
	select {
	case <-c.wakeCh:
		t.Fatal("connected client should ignore wake")
	default:
	}
}

func TestRefreshThrottle(t *testing.T) {
	clock := clockwork.NewFakeClock()
	refreshes := 0
	c := New(Config{
		BaseURL:   "http://localhost:0",
		Clock:     clock,
		OnRefresh: func() { refreshes++ },
	})

	c.dispatch("pick-made", 1, `{}`)
	c.dispatch("turn-change", 2, `{}`)
	assert.Equal(t, 1, refreshes)

	clock.Advance(refreshThrottle)
	c.dispatch("pick-made", 3, `{}`)
	assert.Equal(t, 2, refreshes)

	// Synthetic frames never count as refresh-worthy.
	clock.Advance(refreshThrottle)
	c.dispatch("heartbeat", 3, `{}`)
	c.dispatch("connection", 3, `{}`)
	assert.Equal(t, 2, refreshes)

	assert.Equal(t, int64(3), c.LastEventID())
}

func TestStateChangeCallback(t *testing.T) {
	var states []ConnState
	c := New(Config{OnStateChange: func(s ConnState) { states = append(states, s) }})

	c.setState(StateConnecting)
	c.setState(StateConnected)
	c.setState(StateConnected) // no transition, no callback
	c.setState(StateDisconnected)

	assert.Equal(t, []ConnState{StateConnecting, StateConnected, StateDisconnected}, states)
}
