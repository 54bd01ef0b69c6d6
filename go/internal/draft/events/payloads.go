// Package events holds the draft event envelope and payload types shared
// between the state machine, the relay, and the gateway.
package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Type identifies a draft event.
type Type string

const (
	TypePickMade     Type = "pick-made"
	TypeTurnChange   Type = "turn-change"
	TypeDraftStarted Type = "draft-started"
	TypeDraftEnded   Type = "draft-ended"
	// TypeConnection is synthesized per subscriber on connect.
	TypeConnection Type = "connection"
	// TypeHeartbeat keeps long-lived streams alive.
	TypeHeartbeat Type = "heartbeat"
)

// Event is the transient notification fanned out to subscribers. It is a
// projection of record-store state, never the source of truth.
// SequenceID is process-wide monotonic, assigned when the broker accepts
// the event.
type Event struct {
	SequenceID int64           `json:"sequence_id"`
	DivisionID uuid.UUID       `json:"division_id"`
	Type       Type            `json:"type"`
	Timestamp  time.Time       `json:"timestamp"`
	Data       json.RawMessage `json:"data,omitempty"`
}

// PickMadePayload is the payload for a pick-made event.
type PickMadePayload struct {
	PickNumber      int       `json:"pick_number"`
	ParticipantID   string    `json:"participant_id"`
	ParticipantName string    `json:"participant_name,omitempty"`
	PlayerID        string    `json:"player_id"`
	PlayerName      string    `json:"player_name,omitempty"`
	MadeAt          time.Time `json:"made_at"`
}

// TurnChangePayload carries the turn pointer after any state-affecting
// action. The same shape serves as the snapshot sent to fresh
// subscribers, so a client need not separately query state on connect.
type TurnChangePayload struct {
	DivisionID           string `json:"division_id"`
	IsActive             bool   `json:"is_active"`
	CurrentPickNumber    int    `json:"current_pick_number"`
	CurrentParticipantID string `json:"current_participant_id,omitempty"`
	PicksCount           int    `json:"picks_count"`
	TotalPicks           int    `json:"total_picks"`
}

// DraftStartedPayload is the payload for a draft-started event.
type DraftStartedPayload struct {
	DivisionID string    `json:"division_id"`
	StartedAt  time.Time `json:"started_at"`
	TotalPicks int       `json:"total_picks"`
}

// DraftEndedPayload is the payload for a draft-ended event.
type DraftEndedPayload struct {
	DivisionID string    `json:"division_id"`
	EndedAt    time.Time `json:"ended_at"`
	PicksCount int       `json:"picks_count"`
	Completed  bool      `json:"completed"` // false when stopped by an admin
}

// ConnectionPayload greets a subscriber once replay has finished.
type ConnectionPayload struct {
	ConnectionID string    `json:"connection_id"`
	UserID       string    `json:"user_id,omitempty"`
	ConnectedAt  time.Time `json:"connected_at"`
}

// Envelope is the wire format published to the broadcast transport
// (NATS subject draft.events.<divisionID>).
type Envelope struct {
	EventID    string          `json:"eventId"`
	EventType  Type            `json:"eventType"`
	DivisionID string          `json:"divisionId"`
	Timestamp  time.Time       `json:"timestamp"`
	Payload    json.RawMessage `json:"payload"`
}
