package schedule

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNoSchedule is returned when no schedule version has ever been committed.
var ErrNoSchedule = errors.New("no schedule committed")

// Store persists schedule versions. Commit assigns the next version number
// and returns it. Committed placements are immutable; only the operational
// status of a surgery (in-progress, completed, ...) may advance afterwards.
type Store interface {
	Commit(ctx context.Context, s *Schedule) (int, error)
	LoadLatest(ctx context.Context) (*Schedule, error)
	LoadVersion(ctx context.Context, version int) (*Schedule, error)
	UpdateSurgeryStatus(ctx context.Context, surgeryID uuid.UUID, status string) error
}
