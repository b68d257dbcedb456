package waitlist

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Service struct {
	entries Repository
}

func NewService(entries Repository) *Service {
	return &Service{entries: entries}
}

var validStatuses = map[string]bool{
	StatusWaiting: true, StatusScheduled: true, StatusPostponed: true,
	StatusCompleted: true, StatusCancelled: true,
}

func (s *Service) CreateEntry(ctx context.Context, e *Entry) error {
	if e.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if e.ASAScore < 1 || e.ASAScore > 5 {
		return fmt.Errorf("asa_score must be in [1,5], got %d", e.ASAScore)
	}
	if e.SurgeryType == "" {
		return fmt.Errorf("surgery_type is required")
	}
	if e.Specialization == "" {
		return fmt.Errorf("specialization is required")
	}
	if e.PredictedMinutes != nil && *e.PredictedMinutes <= 0 {
		return fmt.Errorf("predicted_minutes must be positive, got %d", *e.PredictedMinutes)
	}
	if e.Status == "" {
		e.Status = StatusWaiting
	}
	if !validStatuses[e.Status] {
		return fmt.Errorf("invalid status: %s", e.Status)
	}
	if e.AddedAt.IsZero() {
		e.AddedAt = time.Now().UTC()
	}
	return s.entries.Create(ctx, e)
}

func (s *Service) GetEntry(ctx context.Context, id uuid.UUID) (*Entry, error) {
	return s.entries.GetByID(ctx, id)
}

func (s *Service) UpdateEntry(ctx context.Context, e *Entry) error {
	if e.ASAScore < 1 || e.ASAScore > 5 {
		return fmt.Errorf("asa_score must be in [1,5], got %d", e.ASAScore)
	}
	if e.Status != "" && !validStatuses[e.Status] {
		return fmt.Errorf("invalid status: %s", e.Status)
	}
	if e.PredictedMinutes != nil && *e.PredictedMinutes <= 0 {
		return fmt.Errorf("predicted_minutes must be positive, got %d", *e.PredictedMinutes)
	}
	return s.entries.Update(ctx, e)
}

func (s *Service) DeleteEntry(ctx context.Context, id uuid.UUID) error {
	return s.entries.Delete(ctx, id)
}

func (s *Service) ListEntries(ctx context.Context, limit, offset int) ([]*Entry, int, error) {
	return s.entries.List(ctx, limit, offset)
}

func (s *Service) ListByStatus(ctx context.Context, status string, limit, offset int) ([]*Entry, int, error) {
	if !validStatuses[status] {
		return nil, 0, fmt.Errorf("invalid status: %s", status)
	}
	return s.entries.ListByStatus(ctx, status, limit, offset)
}

// Ranked returns the pending waitlist in deterministic priority order.
func (s *Service) Ranked(ctx context.Context, now time.Time) ([]*Entry, error) {
	pending, err := s.entries.ListPending(ctx)
	if err != nil {
		return nil, err
	}
	return Rank(pending, now), nil
}

// MarkScheduled flips a set of entries to scheduled and clears any boost.
func (s *Service) MarkScheduled(ctx context.Context, ids []uuid.UUID) error {
	for _, id := range ids {
		e, err := s.entries.GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("entry %s: %w", id, err)
		}
		e.Status = StatusScheduled
		e.PriorityBoost = 0
		if err := s.entries.Update(ctx, e); err != nil {
			return fmt.Errorf("entry %s: %w", id, err)
		}
	}
	return nil
}

// MarkPostponed flips a set of entries to postponed.
func (s *Service) MarkPostponed(ctx context.Context, ids []uuid.UUID) error {
	for _, id := range ids {
		e, err := s.entries.GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("entry %s: %w", id, err)
		}
		e.Status = StatusPostponed
		if err := s.entries.Update(ctx, e); err != nil {
			return fmt.Errorf("entry %s: %w", id, err)
		}
	}
	return nil
}

// ApplyBoost raises the effective priority of postponed entries ahead of a
// resolution re-solve.
func (s *Service) ApplyBoost(ctx context.Context, ids []uuid.UUID, bonus int) error {
	if bonus < 0 {
		return fmt.Errorf("bonus must not be negative, got %d", bonus)
	}
	for _, id := range ids {
		e, err := s.entries.GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("entry %s: %w", id, err)
		}
		e.PriorityBoost = bonus
		if err := s.entries.Update(ctx, e); err != nil {
			return fmt.Errorf("entry %s: %w", id, err)
		}
	}
	return nil
}
