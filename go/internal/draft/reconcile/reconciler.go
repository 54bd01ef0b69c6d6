// Package reconcile repairs the realtime side-channel from the draft
// record store. The two have no change-detection link (manual record
// edits happen), so this is an explicit admin-triggered repair path,
// not an automatic one.
package reconcile

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/draftroom/go/internal/draft/events"
	"github.com/mcdev12/draftroom/go/internal/models"
	"github.com/mcdev12/draftroom/go/internal/sidechannel"
	"github.com/mcdev12/draftroom/go/internal/store"
	"github.com/rs/zerolog/log"
)

// eventDedupeWindow suppresses a repeated sync notification for the
// same derived state.
const eventDedupeWindow = time.Second

// Broadcaster matches the state machine's fire-and-forget trigger.
type Broadcaster interface {
	Broadcast(ctx context.Context, eventType events.Type, divisionID uuid.UUID, payload any)
}

// Summary reports what a sync found.
type Summary struct {
	PicksCount  int `json:"picksCount"`
	CurrentPick int `json:"currentPick"`
}

// Reconciler derives the current-state projection from the record
// store and writes it to the side-channel, skipping writes whose
// content already matches the last one it performed.
type Reconciler struct {
	repo      store.Repository
	side      sidechannel.Store
	broadcast Broadcaster
	clock     clockwork.Clock

	mu        sync.Mutex
	lastHash  map[uuid.UUID]string
	lastEvent map[uuid.UUID]eventStamp
}

type eventStamp struct {
	hash string
	at   time.Time
}

// NewReconciler creates a reconciliation service. broadcast may be nil
// when no realtime channel should learn about repairs.
func NewReconciler(repo store.Repository, side sidechannel.Store, broadcast Broadcaster, clock clockwork.Clock) *Reconciler {
	return &Reconciler{
		repo:      repo,
		side:      side,
		broadcast: broadcast,
		clock:     clock,
		lastHash:  make(map[uuid.UUID]string),
		lastEvent: make(map[uuid.UUID]eventStamp),
	}
}

// SyncDivision recomputes the division's projection from the record
// store and idempotently writes it to the side-channel. Calling it
// again with no intervening record-store change performs no second
// write.
func (r *Reconciler) SyncDivision(ctx context.Context, divisionID uuid.UUID) (Summary, error) {
	state, err := r.repo.ReadDraftState(ctx, divisionID)
	if err != nil && err != store.ErrNotFound {
		return Summary{}, fmt.Errorf("read draft state: %w", err)
	}

	picks, err := r.repo.ReadDraftPicks(ctx, divisionID)
	if err != nil {
		return Summary{}, fmt.Errorf("read draft picks: %w", err)
	}

	projection := deriveProjection(divisionID, state, len(picks))
	summary := Summary{PicksCount: len(picks), CurrentPick: projection.CurrentPickNumber}
	hash := contentHash(projection)

	r.mu.Lock()
	unchanged := r.lastHash[divisionID] == hash
	r.mu.Unlock()
	if unchanged {
		log.Debug().
			Str("division_id", divisionID.String()).
			Msg("sync skipped, projection unchanged")
		return summary, nil
	}

	projection.UpdatedAt = r.clock.Now()
	if err := r.side.WriteProjection(ctx, divisionID, projection); err != nil {
		return Summary{}, fmt.Errorf("write projection: %w", err)
	}

	r.mu.Lock()
	r.lastHash[divisionID] = hash
	r.mu.Unlock()

	log.Info().
		Str("division_id", divisionID.String()).
		Int("picks_count", summary.PicksCount).
		Int("current_pick", summary.CurrentPick).
		Msg("side-channel synced from record store")

	r.notify(ctx, divisionID, projection, hash)
	return summary, nil
}

// notify emits a turn-change so connected clients refresh after a
// repair, suppressing duplicates inside the dedupe window.
func (r *Reconciler) notify(ctx context.Context, divisionID uuid.UUID, p sidechannel.Projection, hash string) {
	if r.broadcast == nil {
		return
	}

	now := r.clock.Now()
	r.mu.Lock()
	stamp, seen := r.lastEvent[divisionID]
	if seen && stamp.hash == hash && now.Sub(stamp.at) < eventDedupeWindow {
		r.mu.Unlock()
		return
	}
	r.lastEvent[divisionID] = eventStamp{hash: hash, at: now}
	r.mu.Unlock()

	r.broadcast.Broadcast(ctx, events.TypeTurnChange, divisionID, events.TurnChangePayload{
		DivisionID:           divisionID.String(),
		IsActive:             p.IsActive,
		CurrentPickNumber:    p.CurrentPickNumber,
		CurrentParticipantID: p.CurrentParticipantID,
		PicksCount:           p.PicksCount,
	})
}

func deriveProjection(divisionID uuid.UUID, state *models.DraftState, picksCount int) sidechannel.Projection {
	p := sidechannel.Projection{
		DivisionID: divisionID.String(),
		PicksCount: picksCount,
	}
	if state != nil {
		p.IsActive = state.IsActive
		p.CurrentPickNumber = state.CurrentPickNumber
		p.CurrentParticipantID = state.CurrentParticipantID.String()
	}
	return p
}

// contentHash covers the derived fields only; UpdatedAt is excluded so
// an unchanged projection hashes identically.
func contentHash(p sidechannel.Projection) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%t|%d|%s|%d",
		p.DivisionID, p.IsActive, p.CurrentPickNumber, p.CurrentParticipantID, p.PicksCount)))
	return hex.EncodeToString(sum[:])
}
