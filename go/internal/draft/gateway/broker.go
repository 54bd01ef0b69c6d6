// Package gateway is the realtime broadcast channel: an in-process
// broker with a bounded replay buffer per division, fanned out to
// subscribers over SSE and WebSocket transports.
package gateway

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/draftroom/go/internal/draft/events"
	"github.com/rs/zerolog/log"
)

const (
	// RingCapacity bounds the per-division replay buffer. A client that
	// misses more than this many events must reload full state from the
	// record store instead.
	RingCapacity = 50

	// HeartbeatInterval paces keep-alive events on open streams.
	HeartbeatInterval = 30 * time.Second

	// subscriberBuffer must hold a full replay plus the synthetic
	// connection and snapshot events without blocking the broker.
	subscriberBuffer = 128
)

// SnapshotProvider supplies the current-state snapshot sent to fresh
// subscribers, so a client need not separately query state on connect.
type SnapshotProvider interface {
	Snapshot(ctx context.Context, divisionID uuid.UUID) (*events.TurnChangePayload, error)
}

// Broker owns the replay buffers and subscriber registry for one server
// process. Construct it at startup and pass it by handle; there is no
// package-level instance. The buffers do not survive a restart and are
// not shared across instances, which is a documented deployment
// constraint of the replay path.
type Broker struct {
	snapshots SnapshotProvider
	clock     clockwork.Clock

	mu      sync.RWMutex
	seq     int64 // process-wide monotonic, crosses divisions
	buffers map[uuid.UUID][]events.Event
	subs    map[uuid.UUID]map[*Subscription]bool
}

// Subscription is one client's live event feed.
type Subscription struct {
	ID         string
	UserID     string
	DivisionID uuid.UUID

	ch     chan events.Event
	broker *Broker
	once   sync.Once
}

// Events is the stream of replayed and live events for this subscriber.
// The channel closes when the subscription is closed or the subscriber
// is evicted for not keeping up.
func (s *Subscription) Events() <-chan events.Event {
	return s.ch
}

// Close unregisters the subscription and releases its channel.
func (s *Subscription) Close() {
	s.broker.unsubscribe(s)
}

// NewBroker creates a broker using the given snapshot source and clock.
func NewBroker(snapshots SnapshotProvider, clock clockwork.Clock) *Broker {
	return &Broker{
		snapshots: snapshots,
		clock:     clock,
		buffers:   make(map[uuid.UUID][]events.Event),
		subs:      make(map[uuid.UUID]map[*Subscription]bool),
	}
}

// Broadcast implements the state machine's fire-and-forget trigger.
func (b *Broker) Broadcast(ctx context.Context, eventType events.Type, divisionID uuid.UUID, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("event_type", string(eventType)).Msg("failed to marshal event payload")
		return
	}
	b.Publish(eventType, divisionID, data)
}

// Publish assigns the next sequence id, stores the event in the
// division's ring buffer, and delivers it to every open subscription
// for that division. Subscribers that cannot keep up are evicted.
func (b *Broker) Publish(eventType events.Type, divisionID uuid.UUID, data json.RawMessage) events.Event {
	b.mu.Lock()

	b.seq++
	event := events.Event{
		SequenceID: b.seq,
		DivisionID: divisionID,
		Type:       eventType,
		Timestamp:  b.clock.Now(),
		Data:       data,
	}

	buf := append(b.buffers[divisionID], event)
	if len(buf) > RingCapacity {
		buf = buf[len(buf)-RingCapacity:]
	}
	b.buffers[divisionID] = buf

	var slow []*Subscription
	for sub := range b.subs[divisionID] {
		select {
		case sub.ch <- event:
		default:
			slow = append(slow, sub)
		}
	}
	b.mu.Unlock()

	for _, sub := range slow {
		log.Warn().
			Str("connection_id", sub.ID).
			Str("division_id", divisionID.String()).
			Msg("subscriber send buffer full, dropping subscriber")
		b.unsubscribe(sub)
	}

	log.Debug().
		Str("event_type", string(eventType)).
		Str("division_id", divisionID.String()).
		Int64("sequence_id", event.SequenceID).
		Msg("event published")
	return event
}

// Subscribe attaches a client to a division's feed. When lastEventID is
// positive, all buffered events with a greater sequence id are replayed
// first in ascending order, followed by a synthetic connection event and
// a turn-change state snapshot, then live events.
func (b *Broker) Subscribe(ctx context.Context, divisionID uuid.UUID, userID string, lastEventID int64) (*Subscription, error) {
	// Fetch the snapshot before taking the lock; it hits the record
	// store. A pick landing in between is delivered as a live event
	// anyway.
	var snapshotData json.RawMessage
	if b.snapshots != nil {
		snap, err := b.snapshots.Snapshot(ctx, divisionID)
		if err != nil {
			return nil, err
		}
		snapshotData, err = json.Marshal(snap)
		if err != nil {
			return nil, err
		}
	}

	sub := &Subscription{
		ID:         uuid.New().String(),
		UserID:     userID,
		DivisionID: divisionID,
		ch:         make(chan events.Event, subscriberBuffer),
		broker:     b,
	}

	connData, err := json.Marshal(events.ConnectionPayload{
		ConnectionID: sub.ID,
		UserID:       userID,
		ConnectedAt:  b.clock.Now(),
	})
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	if lastEventID > 0 {
		for _, event := range b.buffers[divisionID] {
			if event.SequenceID > lastEventID {
				sub.ch <- event
			}
		}
	}
	// Synthetic events carry the current sequence id so a client that
	// resumes from it replays nothing it has already seen.
	sub.ch <- events.Event{
		SequenceID: b.seq,
		DivisionID: divisionID,
		Type:       events.TypeConnection,
		Timestamp:  b.clock.Now(),
		Data:       connData,
	}
	if snapshotData != nil {
		sub.ch <- events.Event{
			SequenceID: b.seq,
			DivisionID: divisionID,
			Type:       events.TypeTurnChange,
			Timestamp:  b.clock.Now(),
			Data:       snapshotData,
		}
	}
	if b.subs[divisionID] == nil {
		b.subs[divisionID] = make(map[*Subscription]bool)
	}
	b.subs[divisionID][sub] = true
	b.mu.Unlock()

	log.Info().
		Str("connection_id", sub.ID).
		Str("user_id", userID).
		Str("division_id", divisionID.String()).
		Int64("last_event_id", lastEventID).
		Msg("subscriber connected")
	return sub, nil
}

// Heartbeat builds a keep-alive event tagged with the latest sequence id.
func (b *Broker) Heartbeat(divisionID uuid.UUID) events.Event {
	b.mu.RLock()
	seq := b.seq
	b.mu.RUnlock()
	return events.Event{
		SequenceID: seq,
		DivisionID: divisionID,
		Type:       events.TypeHeartbeat,
		Timestamp:  b.clock.Now(),
	}
}

// Stats reports subscriber counts per division.
func (b *Broker) Stats() map[string]int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	stats := make(map[string]int, len(b.subs))
	for divisionID, subs := range b.subs {
		stats[divisionID.String()] = len(subs)
	}
	return stats
}

func (b *Broker) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	if subs, ok := b.subs[sub.DivisionID]; ok {
		if subs[sub] {
			delete(subs, sub)
			if len(subs) == 0 {
				delete(b.subs, sub.DivisionID)
			}
		}
	}
	b.mu.Unlock()

	sub.once.Do(func() {
		close(sub.ch)
		log.Info().
			Str("connection_id", sub.ID).
			Str("division_id", sub.DivisionID.String()).
			Msg("subscriber disconnected")
	})
}
