package codered

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemSessionRepo backs tests and the database-less dev mode.
type MemSessionRepo struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

func NewMemSessionRepo() *MemSessionRepo {
	return &MemSessionRepo{sessions: make(map[uuid.UUID]*Session)}
}

func (m *MemSessionRepo) Create(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	m.sessions[s.ID] = s
	return nil
}

func (m *MemSessionRepo) Update(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.ID]; !ok {
		return fmt.Errorf("session %s not found", s.ID)
	}
	m.sessions[s.ID] = s
	return nil
}

func (m *MemSessionRepo) GetByID(_ context.Context, id uuid.UUID) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s not found", id)
	}
	return s, nil
}

func (m *MemSessionRepo) Open(_ context.Context) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.sessions {
		if s.State == StateActive || s.State == StateResolving {
			return s, nil
		}
	}
	return nil, nil
}

func (m *MemSessionRepo) List(_ context.Context, limit, offset int) ([]*Session, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var all []*Session
	for _, s := range m.sessions {
		all = append(all, s)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].DeclaredAt.After(all[j].DeclaredAt) })
	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

// MemAuditRepo is the in-memory append-only audit log.
type MemAuditRepo struct {
	mu      sync.RWMutex
	entries []*AuditEntry
}

func NewMemAuditRepo() *MemAuditRepo { return &MemAuditRepo{} }

func (m *MemAuditRepo) Append(_ context.Context, e *AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	m.entries = append(m.entries, e)
	return nil
}

func (m *MemAuditRepo) ListBySession(_ context.Context, sessionID uuid.UUID) ([]*AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*AuditEntry
	for _, e := range m.entries {
		if e.SessionID == sessionID {
			out = append(out, e)
		}
	}
	return out, nil
}
