package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemStore keeps schedule versions in memory. It backs tests and the
// database-less dev mode.
type MemStore struct {
	mu       sync.RWMutex
	versions []*Schedule
}

func NewMemStore() *MemStore { return &MemStore{} }

func (m *MemStore) Commit(_ context.Context, s *Schedule) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s.Version = len(m.versions) + 1
	if s.GeneratedAt.IsZero() {
		s.GeneratedAt = time.Now().UTC()
	}
	for _, sg := range s.Surgeries {
		if sg.ID == uuid.Nil {
			sg.ID = uuid.New()
		}
	}
	m.versions = append(m.versions, s)
	return s.Version, nil
}

func (m *MemStore) LoadLatest(_ context.Context) (*Schedule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.versions) == 0 {
		return nil, ErrNoSchedule
	}
	return m.versions[len(m.versions)-1], nil
}

func (m *MemStore) LoadVersion(_ context.Context, version int) (*Schedule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if version < 1 || version > len(m.versions) {
		return nil, fmt.Errorf("schedule version %d not found", version)
	}
	return m.versions[version-1], nil
}

func (m *MemStore) UpdateSurgeryStatus(_ context.Context, surgeryID uuid.UUID, status string) error {
	if !IsValidSurgeryStatus(status) {
		return fmt.Errorf("invalid surgery status: %s", status)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.versions) - 1; i >= 0; i-- {
		for _, sg := range m.versions[i].Surgeries {
			if sg.ID == surgeryID {
				sg.Status = status
				return nil
			}
		}
	}
	return fmt.Errorf("surgery %s not found", surgeryID)
}
