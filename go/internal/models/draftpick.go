package models

import (
	"time"

	"github.com/google/uuid"
)

// DraftPick records one player assignment at one pick number. Picks are
// append-only and immutable once written; PickNumber is unique within a
// division's draft cycle.
type DraftPick struct {
	DivisionID    uuid.UUID `json:"division_id"`
	PickNumber    int       `json:"pick_number"`
	ParticipantID uuid.UUID `json:"participant_id"`
	PlayerID      uuid.UUID `json:"player_id"`
	Timestamp     time.Time `json:"timestamp"`
}
