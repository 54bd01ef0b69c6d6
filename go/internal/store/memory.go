package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/mcdev12/draftroom/go/internal/models"
)

// Memory is an in-memory Repository used by tests and local runs
// without Postgres.
type Memory struct {
	mu           sync.RWMutex
	divisions    []models.Division
	participants map[uuid.UUID][]models.Participant
	players      []models.Player
	orders       map[uuid.UUID][]models.DraftOrderEntry
	states       map[uuid.UUID]models.DraftState
	picks        map[uuid.UUID][]models.DraftPick
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		participants: make(map[uuid.UUID][]models.Participant),
		orders:       make(map[uuid.UUID][]models.DraftOrderEntry),
		states:       make(map[uuid.UUID]models.DraftState),
		picks:        make(map[uuid.UUID][]models.DraftPick),
	}
}

var _ Repository = (*Memory)(nil)

// SeedDivision registers a division with its participants.
func (m *Memory) SeedDivision(div models.Division, participants []models.Participant) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.divisions = append(m.divisions, div)
	m.participants[div.ID] = append([]models.Participant(nil), participants...)
}

// SeedPlayers registers draftable players.
func (m *Memory) SeedPlayers(players []models.Player) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.players = append(m.players, players...)
}

func (m *Memory) ReadDivisions(ctx context.Context) ([]models.Division, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.Division(nil), m.divisions...), nil
}

func (m *Memory) ReadParticipants(ctx context.Context, divisionID uuid.UUID) ([]models.Participant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.Participant(nil), m.participants[divisionID]...), nil
}

func (m *Memory) ReadPlayers(ctx context.Context) ([]models.Player, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.Player(nil), m.players...), nil
}

func (m *Memory) ReadDraftOrder(ctx context.Context, divisionID uuid.UUID) ([]models.DraftOrderEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.DraftOrderEntry(nil), m.orders[divisionID]...), nil
}

func (m *Memory) WriteDraftOrder(ctx context.Context, divisionID uuid.UUID, order []models.DraftOrderEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[divisionID] = append([]models.DraftOrderEntry(nil), order...)
	return nil
}

func (m *Memory) ClearDraftOrder(ctx context.Context, divisionID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.orders, divisionID)
	return nil
}

func (m *Memory) ReadDraftState(ctx context.Context, divisionID uuid.UUID) (*models.DraftState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.states[divisionID]
	if !ok {
		return nil, ErrNotFound
	}
	return &state, nil
}

func (m *Memory) WriteDraftState(ctx context.Context, state models.DraftState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[state.DivisionID] = state
	return nil
}

func (m *Memory) ReadActiveDivision(ctx context.Context) (uuid.UUID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for id, state := range m.states {
		if state.IsActive {
			return id, nil
		}
	}
	return uuid.Nil, ErrNotFound
}

func (m *Memory) ReadDraftPicks(ctx context.Context, divisionID uuid.UUID) ([]models.DraftPick, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	picks := append([]models.DraftPick(nil), m.picks[divisionID]...)
	sort.Slice(picks, func(i, j int) bool { return picks[i].PickNumber < picks[j].PickNumber })
	return picks, nil
}

func (m *Memory) AppendDraftPick(ctx context.Context, pick models.DraftPick) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendLocked(pick)
}

func (m *Memory) ClearDraftPicks(ctx context.Context, divisionID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.picks, divisionID)
	return nil
}

func (m *Memory) CommitPick(ctx context.Context, pick models.DraftPick, state models.DraftState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.appendLocked(pick); err != nil {
		return err
	}
	m.states[state.DivisionID] = state
	return nil
}

func (m *Memory) appendLocked(pick models.DraftPick) error {
	for _, p := range m.picks[pick.DivisionID] {
		if p.PickNumber == pick.PickNumber {
			return ErrDuplicatePick
		}
	}
	m.picks[pick.DivisionID] = append(m.picks[pick.DivisionID], pick)
	return nil
}
