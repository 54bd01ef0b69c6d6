package models

import (
	"time"

	"github.com/google/uuid"
)

// DraftState is the singleton turn pointer for a division's draft cycle.
// IsActive=true implies CompletedAt is nil. CurrentPickNumber only
// increases while the draft is active.
type DraftState struct {
	DivisionID           uuid.UUID  `json:"division_id"`
	IsActive             bool       `json:"is_active"`
	CurrentPickNumber    int        `json:"current_pick_number"`
	CurrentParticipantID uuid.UUID  `json:"current_participant_id"`
	PicksPerParticipant  int        `json:"picks_per_participant"`
	OrderMode            OrderMode  `json:"order_mode"`
	StartedAt            *time.Time `json:"started_at,omitempty"`
	CompletedAt          *time.Time `json:"completed_at,omitempty"`
	LastUpdate           time.Time  `json:"last_update"`
}
