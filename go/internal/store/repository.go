// Package store is the durable draft record store: draft orders, the
// per-division turn state, and the per-cycle pick log. The original
// system kept these rows in a spreadsheet; here the store is a
// row-oriented interface with Postgres and in-memory implementations.
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/mcdev12/draftroom/go/internal/models"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicatePick is returned when a pick number is already taken
	// within a division's draft cycle.
	ErrDuplicatePick = errors.New("duplicate pick number")
)

// Repository is the draft record store consumed by the state machine.
// It is the single source of truth; the realtime side-channel is only a
// projection of it.
type Repository interface {
	ReadDivisions(ctx context.Context) ([]models.Division, error)
	ReadParticipants(ctx context.Context, divisionID uuid.UUID) ([]models.Participant, error)
	ReadPlayers(ctx context.Context) ([]models.Player, error)

	ReadDraftOrder(ctx context.Context, divisionID uuid.UUID) ([]models.DraftOrderEntry, error)
	WriteDraftOrder(ctx context.Context, divisionID uuid.UUID, order []models.DraftOrderEntry) error
	ClearDraftOrder(ctx context.Context, divisionID uuid.UUID) error

	// ReadDraftState returns ErrNotFound when no draft cycle exists yet
	// for the division.
	ReadDraftState(ctx context.Context, divisionID uuid.UUID) (*models.DraftState, error)
	WriteDraftState(ctx context.Context, state models.DraftState) error
	// ReadActiveDivision returns the division whose draft is currently
	// active, or ErrNotFound. At most one division is active at a time.
	ReadActiveDivision(ctx context.Context) (uuid.UUID, error)

	ReadDraftPicks(ctx context.Context, divisionID uuid.UUID) ([]models.DraftPick, error)
	AppendDraftPick(ctx context.Context, pick models.DraftPick) error
	// ClearDraftPicks removes the division's pick log. Called when a new
	// draft cycle starts, so pick numbers and player availability are
	// scoped to the current cycle.
	ClearDraftPicks(ctx context.Context, divisionID uuid.UUID) error
	// CommitPick appends the pick and writes the advanced turn state as
	// one atomic step.
	CommitPick(ctx context.Context, pick models.DraftPick, state models.DraftState) error
}
