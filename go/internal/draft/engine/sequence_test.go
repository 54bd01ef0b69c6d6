package engine

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/draftroom/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeOrder(n int) []models.DraftOrderEntry {
	now := time.Now()
	order := make([]models.DraftOrderEntry, n)
	for i := range order {
		order[i] = models.DraftOrderEntry{
			Position:      i + 1,
			ParticipantID: uuid.New(),
			GeneratedAt:   now,
		}
	}
	return order
}

func participantIDs(seq []Slot) []uuid.UUID {
	ids := make([]uuid.UUID, len(seq))
	for i, s := range seq {
		ids[i] = s.ParticipantID
	}
	return ids
}

func TestBuildSequenceSnake(t *testing.T) {
	order := makeOrder(4)
	a, b, c, d := order[0].ParticipantID, order[1].ParticipantID, order[2].ParticipantID, order[3].ParticipantID

	seq, err := BuildSequence(order, 2, models.OrderModeSnake)
	require.NoError(t, err)
	require.Len(t, seq, 8)

	assert.Equal(t, []uuid.UUID{a, b, c, d, d, c, b, a}, participantIDs(seq))
	// The same participant holds the last pick of round 1 and the first
	// of round 2.
	assert.Equal(t, seq[3].ParticipantID, seq[4].ParticipantID)

	for i, s := range seq {
		assert.Equal(t, i+1, s.PickNumber)
	}
	assert.Equal(t, 1, seq[3].Round)
	assert.Equal(t, 2, seq[4].Round)
}

func TestBuildSequenceLinear(t *testing.T) {
	order := makeOrder(3)
	a, b, c := order[0].ParticipantID, order[1].ParticipantID, order[2].ParticipantID

	seq, err := BuildSequence(order, 2, models.OrderModeLinear)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{a, b, c, a, b, c}, participantIDs(seq))
}

func TestBuildSequenceIgnoresInputSliceOrder(t *testing.T) {
	order := makeOrder(3)
	shuffled := []models.DraftOrderEntry{order[2], order[0], order[1]}

	seq, err := BuildSequence(shuffled, 1, models.OrderModeSnake)
	require.NoError(t, err)
	assert.Equal(t, order[0].ParticipantID, seq[0].ParticipantID)
	assert.Equal(t, order[2].ParticipantID, seq[2].ParticipantID)
}

func TestBuildSequenceRejectsBadInput(t *testing.T) {
	_, err := BuildSequence(nil, 1, models.OrderModeSnake)
	assert.Error(t, err)

	_, err = BuildSequence(makeOrder(2), 0, models.OrderModeSnake)
	assert.Error(t, err)

	gap := makeOrder(3)
	gap[1].Position = 5
	_, err = BuildSequence(gap, 1, models.OrderModeSnake)
	assert.Error(t, err)

	dup := makeOrder(3)
	dup[2].ParticipantID = dup[0].ParticipantID
	dup[2].Position = dup[0].Position
	_, err = BuildSequence(dup, 1, models.OrderModeSnake)
	assert.Error(t, err)
}

func TestSlotAt(t *testing.T) {
	seq, err := BuildSequence(makeOrder(2), 2, models.OrderModeSnake)
	require.NoError(t, err)

	slot, ok := SlotAt(seq, 1)
	require.True(t, ok)
	assert.Equal(t, 1, slot.PickNumber)

	_, ok = SlotAt(seq, 0)
	assert.False(t, ok)
	_, ok = SlotAt(seq, 5)
	assert.False(t, ok)
}
