// Package draftclient is the draft board's consumer of the realtime
// event stream. It maintains one SSE subscription per division,
// reconnects with exponential backoff, and coalesces event bursts into
// throttled refresh callbacks so a fast drafter cannot stampede the
// backend with state reads.
package draftclient

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/draftroom/go/internal/draft/events"
	"github.com/rs/zerolog/log"
)

// ConnState is the client's connection lifecycle state.
type ConnState string

const (
	StateDisconnected ConnState = "disconnected"
	StateConnecting   ConnState = "connecting"
	StateConnected    ConnState = "connected"
)

const (
	initialBackoff  = time.Second
	maxBackoff      = 30 * time.Second
	wakeThrottle    = 5 * time.Second
	refreshThrottle = time.Second
)

// Config configures a stream client.
type Config struct {
	// BaseURL is the gateway's root, e.g. http://localhost:8080.
	BaseURL    string
	DivisionID string
	UserID     string

	// OnRefresh fires, throttled to once per refreshThrottle, when an
	// event arrives that changes visible draft state.
	OnRefresh func()
	// OnEvent receives every non-synthetic event. Optional.
	OnEvent func(events.Event)
	// OnStateChange observes connection lifecycle transitions. Optional.
	OnStateChange func(ConnState)

	HTTPClient *http.Client
	Clock      clockwork.Clock
}

// Client subscribes to one division's event stream.
type Client struct {
	cfg   Config
	httpc *http.Client
	clock clockwork.Clock

	mu          sync.Mutex
	state       ConnState
	lastEventID int64
	lastWake    time.Time
	lastRefresh time.Time

	wakeCh chan struct{}
}

// New creates a stream client. Run must be called to start it.
func New(cfg Config) *Client {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return &Client{
		cfg:    cfg,
		httpc:  cfg.HTTPClient,
		clock:  cfg.Clock,
		state:  StateDisconnected,
		wakeCh: make(chan struct{}, 1),
	}
}

// State returns the current connection state.
func (c *Client) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastEventID returns the sequence id of the last event received.
func (c *Client) LastEventID() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastEventID
}

// Wake prods a disconnected client to retry immediately instead of
// waiting out its backoff. Tab-refocus and network-change signals call
// this, so it is throttled; a connected client ignores it entirely.
func (c *Client) Wake() {
	c.mu.Lock()
	if c.state == StateConnected {
		c.mu.Unlock()
		return
	}
	now := c.clock.Now()
	if now.Sub(c.lastWake) < wakeThrottle {
		c.mu.Unlock()
		return
	}
	c.lastWake = now
	c.mu.Unlock()

	select {
	case c.wakeCh <- struct{}{}:
	default:
	}
}

// Run connects and reconnects until ctx is cancelled. Each successful
// connection resets the backoff; each failure doubles it up to the cap.
func (c *Client) Run(ctx context.Context) error {
	backoff := initialBackoff
	for {
		c.setState(StateConnecting)
		connected, err := c.stream(ctx)
		c.setState(StateDisconnected)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if connected {
			backoff = initialBackoff
		}
		if err != nil {
			log.Warn().Err(err).
				Str("division_id", c.cfg.DivisionID).
				Dur("backoff", backoff).
				Msg("event stream disconnected")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.clock.After(backoff):
		case <-c.wakeCh:
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// stream opens one SSE connection and consumes it until it breaks. The
// bool reports whether a connection was established at all.
func (c *Client) stream(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.streamURL(), nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Accept", "text/event-stream")
	if id := c.LastEventID(); id > 0 {
		req.Header.Set("Last-Event-ID", strconv.FormatInt(id, 10))
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	c.setState(StateConnected)
	log.Info().
		Str("division_id", c.cfg.DivisionID).
		Int64("last_event_id", c.LastEventID()).
		Msg("event stream connected")

	return true, c.consume(resp)
}

// consume parses SSE frames off the response body and dispatches them.
func (c *Client) consume(resp *http.Response) error {
	var (
		scanner   = bufio.NewScanner(resp.Body)
		eventType string
		eventID   int64
		data      strings.Builder
	)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			if eventType != "" {
				c.dispatch(eventType, eventID, data.String())
			}
			eventType, eventID = "", 0
			data.Reset()
			continue
		}
		switch {
		case strings.HasPrefix(line, "id: "):
			eventID, _ = strconv.ParseInt(line[len("id: "):], 10, 64)
		case strings.HasPrefix(line, "event: "):
			eventType = line[len("event: "):]
		case strings.HasPrefix(line, "data: "):
			data.WriteString(line[len("data: "):])
		}
	}
	return scanner.Err()
}

func (c *Client) dispatch(eventType string, eventID int64, data string) {
	if eventID > 0 {
		c.mu.Lock()
		if eventID > c.lastEventID {
			c.lastEventID = eventID
		}
		c.mu.Unlock()
	}

	switch events.Type(eventType) {
	case events.TypeHeartbeat, events.TypeConnection:
		// Keepalive and handshake frames carry no board state.
		return
	}

	if c.cfg.OnEvent != nil {
		ev := events.Event{SequenceID: eventID, Type: events.Type(eventType)}
		ev.Data = json.RawMessage(data)
		c.cfg.OnEvent(ev)
	}

	switch events.Type(eventType) {
	case events.TypePickMade, events.TypeTurnChange, events.TypeDraftStarted, events.TypeDraftEnded:
		c.maybeRefresh()
	}
}

// maybeRefresh invokes OnRefresh unless one already fired inside the
// throttle window. Bursts of picks collapse into a single read.
func (c *Client) maybeRefresh() {
	if c.cfg.OnRefresh == nil {
		return
	}
	now := c.clock.Now()
	c.mu.Lock()
	if now.Sub(c.lastRefresh) < refreshThrottle {
		c.mu.Unlock()
		return
	}
	c.lastRefresh = now
	c.mu.Unlock()
	c.cfg.OnRefresh()
}

func (c *Client) setState(s ConnState) {
	c.mu.Lock()
	changed := c.state != s
	c.state = s
	c.mu.Unlock()
	if changed && c.cfg.OnStateChange != nil {
		c.cfg.OnStateChange(s)
	}
}

func (c *Client) streamURL() string {
	q := url.Values{}
	if c.cfg.UserID != "" {
		q.Set("userId", c.cfg.UserID)
	}
	u := fmt.Sprintf("%s/api/divisions/%s/events", strings.TrimRight(c.cfg.BaseURL, "/"), c.cfg.DivisionID)
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}
