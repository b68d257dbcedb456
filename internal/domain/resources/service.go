package resources

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type Service struct {
	rooms     RoomRepository
	surgeons  SurgeonRepository
	equipment EquipmentRepository

	defaultOpenHour  int
	defaultCloseHour int
}

// NewService wires the resource repositories. openHour and closeHour are the
// default daily operating window applied to rooms and surgeons created
// without one.
func NewService(rooms RoomRepository, surgeons SurgeonRepository, equipment EquipmentRepository, openHour, closeHour int) *Service {
	return &Service{
		rooms:            rooms,
		surgeons:         surgeons,
		equipment:        equipment,
		defaultOpenHour:  openHour,
		defaultCloseHour: closeHour,
	}
}

// -- Room --

var validRoomKinds = map[string]bool{
	RoomStandard: true, RoomGreenCorridor: true,
}

func (s *Service) CreateRoom(ctx context.Context, r *Room) error {
	if r.Name == "" {
		return fmt.Errorf("name is required")
	}
	if r.Kind == "" {
		r.Kind = RoomStandard
	}
	if !validRoomKinds[r.Kind] {
		return fmt.Errorf("invalid room kind: %s", r.Kind)
	}
	if r.OpenHour == 0 && r.CloseHour == 0 {
		r.OpenHour, r.CloseHour = s.defaultOpenHour, s.defaultCloseHour
	}
	if r.CloseHour <= r.OpenHour {
		return fmt.Errorf("room window is empty: open=%d close=%d", r.OpenHour, r.CloseHour)
	}
	r.IsActive = true
	return s.rooms.Create(ctx, r)
}

func (s *Service) GetRoom(ctx context.Context, id uuid.UUID) (*Room, error) {
	return s.rooms.GetByID(ctx, id)
}

func (s *Service) UpdateRoom(ctx context.Context, r *Room) error {
	if r.Kind != "" && !validRoomKinds[r.Kind] {
		return fmt.Errorf("invalid room kind: %s", r.Kind)
	}
	if r.CloseHour <= r.OpenHour {
		return fmt.Errorf("room window is empty: open=%d close=%d", r.OpenHour, r.CloseHour)
	}
	return s.rooms.Update(ctx, r)
}

func (s *Service) DeleteRoom(ctx context.Context, id uuid.UUID) error {
	return s.rooms.Delete(ctx, id)
}

func (s *Service) ListRooms(ctx context.Context, limit, offset int) ([]*Room, int, error) {
	return s.rooms.List(ctx, limit, offset)
}

func (s *Service) ListActiveRooms(ctx context.Context) ([]*Room, error) {
	return s.rooms.ListActive(ctx)
}

// -- Surgeon --

func (s *Service) CreateSurgeon(ctx context.Context, sg *Surgeon) error {
	if sg.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(sg.Specializations) == 0 {
		return fmt.Errorf("at least one specialization is required")
	}
	if sg.StartHour == 0 && sg.EndHour == 0 {
		sg.StartHour, sg.EndHour = s.defaultOpenHour, s.defaultCloseHour
	}
	if sg.EndHour <= sg.StartHour {
		return fmt.Errorf("availability window is empty: start=%d end=%d", sg.StartHour, sg.EndHour)
	}
	sg.IsActive = true
	return s.surgeons.Create(ctx, sg)
}

func (s *Service) GetSurgeon(ctx context.Context, id uuid.UUID) (*Surgeon, error) {
	return s.surgeons.GetByID(ctx, id)
}

func (s *Service) UpdateSurgeon(ctx context.Context, sg *Surgeon) error {
	if sg.EndHour <= sg.StartHour {
		return fmt.Errorf("availability window is empty: start=%d end=%d", sg.StartHour, sg.EndHour)
	}
	return s.surgeons.Update(ctx, sg)
}

func (s *Service) DeleteSurgeon(ctx context.Context, id uuid.UUID) error {
	return s.surgeons.Delete(ctx, id)
}

func (s *Service) ListSurgeons(ctx context.Context, limit, offset int) ([]*Surgeon, int, error) {
	return s.surgeons.List(ctx, limit, offset)
}

func (s *Service) ListActiveSurgeons(ctx context.Context) ([]*Surgeon, error) {
	return s.surgeons.ListActive(ctx)
}

// -- Equipment --

func (s *Service) CreateEquipment(ctx context.Context, e *Equipment) error {
	if e.Kind == "" {
		return fmt.Errorf("kind is required")
	}
	if e.Count < 0 {
		return fmt.Errorf("count must not be negative, got %d", e.Count)
	}
	return s.equipment.Create(ctx, e)
}

func (s *Service) GetEquipment(ctx context.Context, id uuid.UUID) (*Equipment, error) {
	return s.equipment.GetByID(ctx, id)
}

func (s *Service) UpdateEquipment(ctx context.Context, e *Equipment) error {
	if e.Count < 0 {
		return fmt.Errorf("count must not be negative, got %d", e.Count)
	}
	return s.equipment.Update(ctx, e)
}

func (s *Service) DeleteEquipment(ctx context.Context, id uuid.UUID) error {
	return s.equipment.Delete(ctx, id)
}

func (s *Service) ListEquipment(ctx context.Context, limit, offset int) ([]*Equipment, int, error) {
	return s.equipment.List(ctx, limit, offset)
}
