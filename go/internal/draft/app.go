// Package draft implements the turn/pick state machine over the draft
// record store: order generation, start/stop transitions, pick
// validation, and turn advancement.
package draft

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/draftroom/go/internal/draft/engine"
	"github.com/mcdev12/draftroom/go/internal/draft/events"
	"github.com/mcdev12/draftroom/go/internal/models"
	"github.com/mcdev12/draftroom/go/internal/store"
	"github.com/rs/zerolog/log"
)

// Broadcaster delivers draft events toward the realtime channel.
// Fire-and-forget: failures are the implementation's problem, a pick
// never fails because a notification did.
type Broadcaster interface {
	Broadcast(ctx context.Context, eventType events.Type, divisionID uuid.UUID, payload any)
}

// App handles draft business logic. One instance is constructed at
// startup and handed to the transport layer; it owns no global state.
type App struct {
	repo      store.Repository
	broadcast Broadcaster
	clock     clockwork.Clock

	// Serializes the read-validate-write sequence per division. The
	// record store's unique pick constraint backs this up.
	mu    sync.Mutex
	divMu map[uuid.UUID]*sync.Mutex
}

// NewApp creates a new draft App. broadcast may be nil and wired later
// with SetBroadcaster, since the gateway needs the App for snapshots.
func NewApp(repo store.Repository, broadcast Broadcaster, clock clockwork.Clock) *App {
	if broadcast == nil {
		broadcast = noopBroadcaster{}
	}
	return &App{
		repo:      repo,
		broadcast: broadcast,
		clock:     clock,
		divMu:     make(map[uuid.UUID]*sync.Mutex),
	}
}

// SetBroadcaster replaces the event sink. Call before serving traffic.
func (a *App) SetBroadcaster(b Broadcaster) {
	a.broadcast = b
}

type noopBroadcaster struct{}

func (noopBroadcaster) Broadcast(context.Context, events.Type, uuid.UUID, any) {}

func (a *App) divisionLock(divisionID uuid.UUID) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()
	mu, ok := a.divMu[divisionID]
	if !ok {
		mu = &sync.Mutex{}
		a.divMu[divisionID] = mu
	}
	return mu
}

// GenerateOrder shuffles the division's participants into a fresh draft
// order. Rejected while the division's draft is active.
func (a *App) GenerateOrder(ctx context.Context, divisionID uuid.UUID) ([]models.DraftOrderEntry, error) {
	if err := a.ensureNotActive(ctx, divisionID); err != nil {
		return nil, err
	}

	participants, err := a.repo.ReadParticipants(ctx, divisionID)
	if err != nil {
		return nil, fmt.Errorf("read participants: %w", err)
	}
	if len(participants) == 0 {
		return nil, ErrNoParticipants
	}

	shuffled := append([]models.Participant(nil), participants...)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	now := a.clock.Now()
	order := make([]models.DraftOrderEntry, len(shuffled))
	for i, p := range shuffled {
		order[i] = models.DraftOrderEntry{
			Position:      i + 1,
			ParticipantID: p.ID,
			GeneratedAt:   now,
		}
	}

	if err := a.repo.WriteDraftOrder(ctx, divisionID, order); err != nil {
		return nil, fmt.Errorf("write draft order: %w", err)
	}

	log.Info().
		Str("division_id", divisionID.String()).
		Int("participants", len(order)).
		Msg("draft order generated")
	return order, nil
}

// ClearOrder removes the division's draft order. Only permitted while
// the draft is not active.
func (a *App) ClearOrder(ctx context.Context, divisionID uuid.UUID) error {
	if err := a.ensureNotActive(ctx, divisionID); err != nil {
		return err
	}
	if err := a.repo.ClearDraftOrder(ctx, divisionID); err != nil {
		return fmt.Errorf("clear draft order: %w", err)
	}
	log.Info().Str("division_id", divisionID.String()).Msg("draft order cleared")
	return nil
}

// StartDraft transitions NotStarted -> Active. Requires a generated
// order and no other active division.
func (a *App) StartDraft(ctx context.Context, req StartDraftRequest) (*models.DraftState, error) {
	mu := a.divisionLock(req.DivisionID)
	mu.Lock()
	defer mu.Unlock()

	order, err := a.repo.ReadDraftOrder(ctx, req.DivisionID)
	if err != nil {
		return nil, fmt.Errorf("read draft order: %w", err)
	}
	if len(order) == 0 {
		return nil, ErrOrderNotGenerated
	}

	if active, err := a.repo.ReadActiveDivision(ctx); err == nil {
		if active == req.DivisionID {
			return nil, ErrDraftActive
		}
		return nil, ErrAnotherDraftActive
	} else if err != store.ErrNotFound {
		return nil, fmt.Errorf("read active division: %w", err)
	}

	if req.PicksPerParticipant <= 0 {
		req.PicksPerParticipant = 1
	}
	if req.OrderMode == "" {
		req.OrderMode = models.OrderModeSnake
	}

	seq, err := engine.BuildSequence(order, req.PicksPerParticipant, req.OrderMode)
	if err != nil {
		return nil, fmt.Errorf("build draft sequence: %w", err)
	}

	// A fresh cycle starts with an empty pick log; rows from a prior
	// cycle would block its pick numbers and hold its players drafted.
	if err := a.repo.ClearDraftPicks(ctx, req.DivisionID); err != nil {
		return nil, fmt.Errorf("clear previous cycle picks: %w", err)
	}

	now := a.clock.Now()
	state := models.DraftState{
		DivisionID:           req.DivisionID,
		IsActive:             true,
		CurrentPickNumber:    1,
		CurrentParticipantID: seq[0].ParticipantID,
		PicksPerParticipant:  req.PicksPerParticipant,
		OrderMode:            req.OrderMode,
		StartedAt:            &now,
		CompletedAt:          nil,
		LastUpdate:           now,
	}
	if err := a.repo.WriteDraftState(ctx, state); err != nil {
		return nil, fmt.Errorf("write draft state: %w", err)
	}

	log.Info().
		Str("division_id", req.DivisionID.String()).
		Int("total_picks", len(seq)).
		Msg("draft started")

	a.broadcast.Broadcast(ctx, events.TypeDraftStarted, req.DivisionID, events.DraftStartedPayload{
		DivisionID: req.DivisionID.String(),
		StartedAt:  now,
		TotalPicks: len(seq),
	})
	a.broadcastTurnChange(ctx, state, 0, len(seq))

	return &state, nil
}

// StopDraft transitions Active -> Completed on admin request.
func (a *App) StopDraft(ctx context.Context, divisionID uuid.UUID) (*models.DraftState, error) {
	mu := a.divisionLock(divisionID)
	mu.Lock()
	defer mu.Unlock()

	state, err := a.repo.ReadDraftState(ctx, divisionID)
	if err == store.ErrNotFound {
		return nil, ErrNoActiveDraft
	}
	if err != nil {
		return nil, fmt.Errorf("read draft state: %w", err)
	}
	if !state.IsActive {
		return nil, ErrNoActiveDraft
	}

	picks, err := a.repo.ReadDraftPicks(ctx, divisionID)
	if err != nil {
		return nil, fmt.Errorf("read draft picks: %w", err)
	}

	now := a.clock.Now()
	state.IsActive = false
	state.CompletedAt = &now
	state.LastUpdate = now
	if err := a.repo.WriteDraftState(ctx, *state); err != nil {
		return nil, fmt.Errorf("write draft state: %w", err)
	}

	log.Info().
		Str("division_id", divisionID.String()).
		Int("picks_made", len(picks)).
		Msg("draft stopped")

	a.broadcast.Broadcast(ctx, events.TypeDraftEnded, divisionID, events.DraftEndedPayload{
		DivisionID: divisionID.String(),
		EndedAt:    now,
		PicksCount: len(picks),
		Completed:  false,
	})
	return state, nil
}

// SubmitPick validates and commits one pick, advancing the turn pointer.
// The whole read-validate-write sequence holds the division lock, so two
// near-simultaneous submissions for the same turn cannot both commit.
func (a *App) SubmitPick(ctx context.Context, req SubmitPickRequest) (*models.DraftPick, error) {
	mu := a.divisionLock(req.DivisionID)
	mu.Lock()
	defer mu.Unlock()

	state, err := a.repo.ReadDraftState(ctx, req.DivisionID)
	if err == store.ErrNotFound {
		return nil, ErrNoActiveDraft
	}
	if err != nil {
		return nil, fmt.Errorf("read draft state: %w", err)
	}
	if !state.IsActive {
		return nil, ErrNoActiveDraft
	}
	if req.ParticipantID != state.CurrentParticipantID {
		return nil, ErrNotYourTurn
	}
	if req.PickNumber != state.CurrentPickNumber {
		return nil, ErrStalePick
	}

	picks, err := a.repo.ReadDraftPicks(ctx, req.DivisionID)
	if err != nil {
		return nil, fmt.Errorf("read draft picks: %w", err)
	}
	for _, p := range picks {
		if p.PlayerID == req.PlayerID {
			return nil, ErrPlayerUnavailable
		}
	}

	order, err := a.repo.ReadDraftOrder(ctx, req.DivisionID)
	if err != nil {
		return nil, fmt.Errorf("read draft order: %w", err)
	}
	seq, err := engine.BuildSequence(order, state.PicksPerParticipant, state.OrderMode)
	if err != nil {
		return nil, fmt.Errorf("build draft sequence: %w", err)
	}

	now := a.clock.Now()
	pick := models.DraftPick{
		DivisionID:    req.DivisionID,
		PickNumber:    req.PickNumber,
		ParticipantID: req.ParticipantID,
		PlayerID:      req.PlayerID,
		Timestamp:     now,
	}

	next := state.CurrentPickNumber + 1
	newState := *state
	newState.LastUpdate = now
	if slot, ok := engine.SlotAt(seq, next); ok {
		newState.CurrentPickNumber = next
		newState.CurrentParticipantID = slot.ParticipantID
	} else {
		// That was the final pick in the sequence.
		newState.IsActive = false
		newState.CompletedAt = &now
	}

	if err := a.repo.CommitPick(ctx, pick, newState); err != nil {
		if err == store.ErrDuplicatePick {
			return nil, ErrStalePick
		}
		return nil, fmt.Errorf("commit pick: %w", err)
	}

	log.Info().
		Str("division_id", req.DivisionID.String()).
		Int("pick_number", pick.PickNumber).
		Str("participant_id", pick.ParticipantID.String()).
		Str("player_id", pick.PlayerID.String()).
		Msg("pick made")

	a.broadcast.Broadcast(ctx, events.TypePickMade, req.DivisionID, a.pickMadePayload(ctx, pick))
	a.broadcastTurnChange(ctx, newState, len(picks)+1, len(seq))
	if !newState.IsActive {
		log.Info().Str("division_id", req.DivisionID.String()).Msg("draft completed")
		a.broadcast.Broadcast(ctx, events.TypeDraftEnded, req.DivisionID, events.DraftEndedPayload{
			DivisionID: req.DivisionID.String(),
			EndedAt:    now,
			PicksCount: len(picks) + 1,
			Completed:  true,
		})
	}

	return &pick, nil
}

// GetDivisionState reads the full record-store view for one division.
func (a *App) GetDivisionState(ctx context.Context, divisionID uuid.UUID) (*DivisionState, error) {
	picks, err := a.repo.ReadDraftPicks(ctx, divisionID)
	if err != nil {
		return nil, fmt.Errorf("read draft picks: %w", err)
	}
	if picks == nil {
		picks = []models.DraftPick{}
	}
	order, err := a.repo.ReadDraftOrder(ctx, divisionID)
	if err != nil {
		return nil, fmt.Errorf("read draft order: %w", err)
	}
	ds := &DivisionState{Order: order, Picks: picks}

	state, err := a.repo.ReadDraftState(ctx, divisionID)
	if err != nil && err != store.ErrNotFound {
		return nil, fmt.Errorf("read draft state: %w", err)
	}
	ds.State = state
	return ds, nil
}

// Snapshot derives the turn-change-shaped current state used as the
// stream snapshot for fresh subscribers.
func (a *App) Snapshot(ctx context.Context, divisionID uuid.UUID) (*events.TurnChangePayload, error) {
	state, err := a.repo.ReadDraftState(ctx, divisionID)
	if err == store.ErrNotFound {
		return &events.TurnChangePayload{DivisionID: divisionID.String()}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read draft state: %w", err)
	}

	picks, err := a.repo.ReadDraftPicks(ctx, divisionID)
	if err != nil {
		return nil, fmt.Errorf("read draft picks: %w", err)
	}
	order, err := a.repo.ReadDraftOrder(ctx, divisionID)
	if err != nil {
		return nil, fmt.Errorf("read draft order: %w", err)
	}

	return &events.TurnChangePayload{
		DivisionID:           divisionID.String(),
		IsActive:             state.IsActive,
		CurrentPickNumber:    state.CurrentPickNumber,
		CurrentParticipantID: state.CurrentParticipantID.String(),
		PicksCount:           len(picks),
		TotalPicks:           len(order) * state.PicksPerParticipant,
	}, nil
}

func (a *App) ensureNotActive(ctx context.Context, divisionID uuid.UUID) error {
	state, err := a.repo.ReadDraftState(ctx, divisionID)
	if err == store.ErrNotFound {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read draft state: %w", err)
	}
	if state.IsActive {
		return ErrDraftActive
	}
	return nil
}

func (a *App) broadcastTurnChange(ctx context.Context, state models.DraftState, picksCount, totalPicks int) {
	a.broadcast.Broadcast(ctx, events.TypeTurnChange, state.DivisionID, events.TurnChangePayload{
		DivisionID:           state.DivisionID.String(),
		IsActive:             state.IsActive,
		CurrentPickNumber:    state.CurrentPickNumber,
		CurrentParticipantID: state.CurrentParticipantID.String(),
		PicksCount:           picksCount,
		TotalPicks:           totalPicks,
	})
}

// pickMadePayload enriches the pick with display names when the lookups
// succeed; the ids alone are enough for clients.
func (a *App) pickMadePayload(ctx context.Context, pick models.DraftPick) events.PickMadePayload {
	payload := events.PickMadePayload{
		PickNumber:    pick.PickNumber,
		ParticipantID: pick.ParticipantID.String(),
		PlayerID:      pick.PlayerID.String(),
		MadeAt:        pick.Timestamp,
	}
	if participants, err := a.repo.ReadParticipants(ctx, pick.DivisionID); err == nil {
		for _, p := range participants {
			if p.ID == pick.ParticipantID {
				payload.ParticipantName = p.Name
				break
			}
		}
	}
	if players, err := a.repo.ReadPlayers(ctx); err == nil {
		for _, p := range players {
			if p.ID == pick.PlayerID {
				payload.PlayerName = p.Name
				break
			}
		}
	}
	return payload
}
