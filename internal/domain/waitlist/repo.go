package waitlist

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, e *Entry) error
	GetByID(ctx context.Context, id uuid.UUID) (*Entry, error)
	Update(ctx context.Context, e *Entry) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Entry, int, error)
	ListByStatus(ctx context.Context, status string, limit, offset int) ([]*Entry, int, error)
	// ListPending returns every entry eligible for the next solve
	// (waiting or postponed), unpaginated.
	ListPending(ctx context.Context) ([]*Entry, error)
}
