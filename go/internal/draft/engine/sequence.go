// Package engine expands a division's draft order into the full pick
// sequence and answers whose turn a given pick number is.
package engine

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/mcdev12/draftroom/go/internal/models"
)

// Slot maps one overall pick number to the participant on the clock.
type Slot struct {
	PickNumber    int
	Round         int
	ParticipantID uuid.UUID
}

// BuildSequence expands order x rounds into a flat list of slots.
// Snake mode reverses direction on even rounds; linear mode repeats the
// order every round. The order must be a contiguous 1..N permutation.
func BuildSequence(order []models.DraftOrderEntry, rounds int, mode models.OrderMode) ([]Slot, error) {
	if len(order) == 0 {
		return nil, fmt.Errorf("draft order is empty")
	}
	if rounds <= 0 {
		return nil, fmt.Errorf("rounds must be positive, got %d", rounds)
	}
	if err := ValidateOrder(order); err != nil {
		return nil, err
	}

	sorted := make([]models.DraftOrderEntry, len(order))
	copy(sorted, order)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Position < sorted[j].Position })

	n := len(sorted)
	seq := make([]Slot, 0, n*rounds)
	for round := 1; round <= rounds; round++ {
		for i := 0; i < n; i++ {
			idx := i
			if mode == models.OrderModeSnake && round%2 == 0 {
				idx = n - 1 - i
			}
			seq = append(seq, Slot{
				PickNumber:    len(seq) + 1,
				Round:         round,
				ParticipantID: sorted[idx].ParticipantID,
			})
		}
	}
	return seq, nil
}

// SlotAt returns the slot for a 1-based overall pick number.
func SlotAt(seq []Slot, pickNumber int) (Slot, bool) {
	if pickNumber < 1 || pickNumber > len(seq) {
		return Slot{}, false
	}
	return seq[pickNumber-1], true
}

// ValidateOrder checks that positions are a contiguous permutation of
// 1..N with no duplicate participants.
func ValidateOrder(order []models.DraftOrderEntry) error {
	seenPos := make(map[int]bool, len(order))
	seenPart := make(map[uuid.UUID]bool, len(order))
	for _, e := range order {
		if e.Position < 1 || e.Position > len(order) {
			return fmt.Errorf("position %d out of range 1..%d", e.Position, len(order))
		}
		if seenPos[e.Position] {
			return fmt.Errorf("duplicate position %d", e.Position)
		}
		if seenPart[e.ParticipantID] {
			return fmt.Errorf("participant %s appears twice", e.ParticipantID)
		}
		seenPos[e.Position] = true
		seenPart[e.ParticipantID] = true
	}
	return nil
}
