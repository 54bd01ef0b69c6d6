// Package sidechannel is the low-latency mirror of the record store's
// current draft state (the original system used a realtime database for
// this). It is a pure projection: reads from it serve dashboards, but
// the record store always wins on disagreement, and the reconciliation
// service is what repairs it.
package sidechannel

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no projection exists for a division.
var ErrNotFound = errors.New("projection not found")

// Projection is the per-division current-state snapshot kept in the
// side-channel.
type Projection struct {
	DivisionID           string    `json:"division_id"`
	IsActive             bool      `json:"is_active"`
	CurrentPickNumber    int       `json:"current_pick_number"`
	CurrentParticipantID string    `json:"current_participant_id"`
	PicksCount           int       `json:"picks_count"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// Store reads and writes projections.
type Store interface {
	ReadProjection(ctx context.Context, divisionID uuid.UUID) (*Projection, error)
	WriteProjection(ctx context.Context, divisionID uuid.UUID, p Projection) error
}
