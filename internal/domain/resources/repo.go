package resources

import (
	"context"

	"github.com/google/uuid"
)

type RoomRepository interface {
	Create(ctx context.Context, r *Room) error
	GetByID(ctx context.Context, id uuid.UUID) (*Room, error)
	Update(ctx context.Context, r *Room) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Room, int, error)
	ListActive(ctx context.Context) ([]*Room, error)
}

type SurgeonRepository interface {
	Create(ctx context.Context, s *Surgeon) error
	GetByID(ctx context.Context, id uuid.UUID) (*Surgeon, error)
	Update(ctx context.Context, s *Surgeon) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Surgeon, int, error)
	ListActive(ctx context.Context) ([]*Surgeon, error)
}

type EquipmentRepository interface {
	Create(ctx context.Context, e *Equipment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Equipment, error)
	Update(ctx context.Context, e *Equipment) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Equipment, int, error)
}
