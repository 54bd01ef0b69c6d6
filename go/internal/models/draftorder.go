package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderMode selects how the draft order expands into a pick sequence.
type OrderMode string

const (
	// OrderModeSnake reverses direction every round.
	OrderModeSnake OrderMode = "SNAKE"
	// OrderModeLinear repeats the order every round.
	OrderModeLinear OrderMode = "LINEAR"
)

// DraftOrderEntry assigns one participant a position in a division's
// draft order. Positions form a contiguous permutation of 1..N.
type DraftOrderEntry struct {
	Position      int       `json:"position"`
	ParticipantID uuid.UUID `json:"participant_id"`
	GeneratedAt   time.Time `json:"generated_at"`
}

// DraftOrder is a division's complete ranked order, generated once per
// draft cycle and cleared only on explicit request.
type DraftOrder struct {
	DivisionID uuid.UUID         `json:"division_id"`
	Entries    []DraftOrderEntry `json:"entries"`
}
