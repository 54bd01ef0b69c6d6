package draft

import (
	"errors"

	"github.com/google/uuid"
	"github.com/mcdev12/draftroom/go/internal/models"
)

// Validation failures surfaced to the caller as user-facing messages.
var (
	ErrNoActiveDraft      = errors.New("no active draft")
	ErrNotYourTurn        = errors.New("not your turn")
	ErrPlayerUnavailable  = errors.New("player unavailable")
	ErrOrderNotGenerated  = errors.New("order must be generated first")
	ErrDraftActive        = errors.New("draft is active")
	ErrAnotherDraftActive = errors.New("another division's draft is active")
	ErrStalePick          = errors.New("pick number does not match current turn")
	ErrNoParticipants     = errors.New("division has no participants")
)

// IsValidationErr reports whether err belongs to the validation taxonomy
// (rejected input, no retry) as opposed to a backend failure.
func IsValidationErr(err error) bool {
	for _, v := range []error{
		ErrNoActiveDraft, ErrNotYourTurn, ErrPlayerUnavailable,
		ErrOrderNotGenerated, ErrDraftActive, ErrAnotherDraftActive,
		ErrStalePick, ErrNoParticipants,
	} {
		if errors.Is(err, v) {
			return true
		}
	}
	return false
}

// StartDraftRequest begins a division's draft cycle.
type StartDraftRequest struct {
	DivisionID          uuid.UUID
	PicksPerParticipant int              // rounds; defaults to 1
	OrderMode           models.OrderMode // defaults to snake
}

// SubmitPickRequest is one participant's pick attempt.
type SubmitPickRequest struct {
	DivisionID    uuid.UUID
	PickNumber    int
	ParticipantID uuid.UUID
	PlayerID      uuid.UUID
}

// ActionResult is the admin action surface's uniform response.
type ActionResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// DivisionState is the full record-store view of one division's draft,
// served to clients doing a throttled refresh.
type DivisionState struct {
	State *models.DraftState       `json:"state,omitempty"`
	Order []models.DraftOrderEntry `json:"order,omitempty"`
	Picks []models.DraftPick       `json:"picks"`
}
