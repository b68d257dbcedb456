package codered

import (
	"context"

	"github.com/google/uuid"
)

type SessionRepository interface {
	Create(ctx context.Context, s *Session) error
	Update(ctx context.Context, s *Session) error
	GetByID(ctx context.Context, id uuid.UUID) (*Session, error)
	// Open returns the session in the active or resolving state, or nil
	// when the instance is idle.
	Open(ctx context.Context) (*Session, error)
	List(ctx context.Context, limit, offset int) ([]*Session, int, error)
}

type AuditRepository interface {
	Append(ctx context.Context, e *AuditEntry) error
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*AuditEntry, error)
}
