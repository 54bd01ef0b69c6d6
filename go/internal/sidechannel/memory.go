package sidechannel

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Memory is an in-memory Store for tests and Redis-less runs. It counts
// writes so tests can assert that redundant syncs were suppressed.
type Memory struct {
	mu          sync.Mutex
	projections map[uuid.UUID]Projection
	writes      int
}

// NewMemory returns an empty in-memory side-channel store.
func NewMemory() *Memory {
	return &Memory{projections: make(map[uuid.UUID]Projection)}
}

var _ Store = (*Memory)(nil)

func (m *Memory) ReadProjection(ctx context.Context, divisionID uuid.UUID) (*Projection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projections[divisionID]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (m *Memory) WriteProjection(ctx context.Context, divisionID uuid.UUID, p Projection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.projections[divisionID] = p
	m.writes++
	return nil
}

// Writes reports how many projection writes have been performed.
func (m *Memory) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}
