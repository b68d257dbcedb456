package resources

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
)

type mockRoomRepo struct {
	rooms map[uuid.UUID]*Room
}

func newMockRoomRepo() *mockRoomRepo {
	return &mockRoomRepo{rooms: make(map[uuid.UUID]*Room)}
}

func (m *mockRoomRepo) Create(_ context.Context, r *Room) error {
	r.ID = uuid.New()
	m.rooms[r.ID] = r
	return nil
}

func (m *mockRoomRepo) GetByID(_ context.Context, id uuid.UUID) (*Room, error) {
	r, ok := m.rooms[id]
	if !ok {
		return nil, fmt.Errorf("room not found")
	}
	return r, nil
}

func (m *mockRoomRepo) Update(_ context.Context, r *Room) error {
	if _, ok := m.rooms[r.ID]; !ok {
		return fmt.Errorf("room not found")
	}
	m.rooms[r.ID] = r
	return nil
}

func (m *mockRoomRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.rooms, id)
	return nil
}

func (m *mockRoomRepo) List(_ context.Context, limit, offset int) ([]*Room, int, error) {
	var items []*Room
	for _, r := range m.rooms {
		items = append(items, r)
	}
	return items, len(items), nil
}

func (m *mockRoomRepo) ListActive(_ context.Context) ([]*Room, error) {
	var items []*Room
	for _, r := range m.rooms {
		if r.IsActive {
			items = append(items, r)
		}
	}
	return items, nil
}

type mockSurgeonRepo struct {
	surgeons map[uuid.UUID]*Surgeon
}

func newMockSurgeonRepo() *mockSurgeonRepo {
	return &mockSurgeonRepo{surgeons: make(map[uuid.UUID]*Surgeon)}
}

func (m *mockSurgeonRepo) Create(_ context.Context, s *Surgeon) error {
	s.ID = uuid.New()
	m.surgeons[s.ID] = s
	return nil
}

func (m *mockSurgeonRepo) GetByID(_ context.Context, id uuid.UUID) (*Surgeon, error) {
	s, ok := m.surgeons[id]
	if !ok {
		return nil, fmt.Errorf("surgeon not found")
	}
	return s, nil
}

func (m *mockSurgeonRepo) Update(_ context.Context, s *Surgeon) error {
	if _, ok := m.surgeons[s.ID]; !ok {
		return fmt.Errorf("surgeon not found")
	}
	m.surgeons[s.ID] = s
	return nil
}

func (m *mockSurgeonRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.surgeons, id)
	return nil
}

func (m *mockSurgeonRepo) List(_ context.Context, limit, offset int) ([]*Surgeon, int, error) {
	var items []*Surgeon
	for _, s := range m.surgeons {
		items = append(items, s)
	}
	return items, len(items), nil
}

func (m *mockSurgeonRepo) ListActive(_ context.Context) ([]*Surgeon, error) {
	var items []*Surgeon
	for _, s := range m.surgeons {
		if s.IsActive {
			items = append(items, s)
		}
	}
	return items, nil
}

type mockEquipmentRepo struct {
	equipment map[uuid.UUID]*Equipment
}

func newMockEquipmentRepo() *mockEquipmentRepo {
	return &mockEquipmentRepo{equipment: make(map[uuid.UUID]*Equipment)}
}

func (m *mockEquipmentRepo) Create(_ context.Context, e *Equipment) error {
	e.ID = uuid.New()
	m.equipment[e.ID] = e
	return nil
}

func (m *mockEquipmentRepo) GetByID(_ context.Context, id uuid.UUID) (*Equipment, error) {
	e, ok := m.equipment[id]
	if !ok {
		return nil, fmt.Errorf("equipment not found")
	}
	return e, nil
}

func (m *mockEquipmentRepo) Update(_ context.Context, e *Equipment) error {
	if _, ok := m.equipment[e.ID]; !ok {
		return fmt.Errorf("equipment not found")
	}
	m.equipment[e.ID] = e
	return nil
}

func (m *mockEquipmentRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.equipment, id)
	return nil
}

func (m *mockEquipmentRepo) List(_ context.Context, limit, offset int) ([]*Equipment, int, error) {
	var items []*Equipment
	for _, e := range m.equipment {
		items = append(items, e)
	}
	return items, len(items), nil
}

func newTestService() *Service {
	return NewService(newMockRoomRepo(), newMockSurgeonRepo(), newMockEquipmentRepo(), 8, 20)
}

func TestCreateRoom_Defaults(t *testing.T) {
	svc := newTestService()
	r := &Room{Name: "OR-1"}
	if err := svc.CreateRoom(context.Background(), r); err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if r.Kind != RoomStandard {
		t.Errorf("expected default kind standard, got %s", r.Kind)
	}
	if r.OpenHour != 8 || r.CloseHour != 20 {
		t.Errorf("expected default window 8-20, got %d-%d", r.OpenHour, r.CloseHour)
	}
	if !r.IsActive {
		t.Error("new rooms must be active")
	}
}

func TestCreateRoom_Validation(t *testing.T) {
	svc := newTestService()

	if err := svc.CreateRoom(context.Background(), &Room{}); err == nil {
		t.Error("expected error for missing name")
	}
	if err := svc.CreateRoom(context.Background(), &Room{Name: "OR-1", Kind: "hybrid"}); err == nil {
		t.Error("expected error for unknown room kind")
	}
	if err := svc.CreateRoom(context.Background(), &Room{Name: "OR-1", OpenHour: 14, CloseHour: 9}); err == nil {
		t.Error("expected error for inverted window")
	}
}

func TestCreateRoom_CorridorKind(t *testing.T) {
	svc := newTestService()
	r := &Room{Name: "GC-1", Kind: RoomGreenCorridor}
	if err := svc.CreateRoom(context.Background(), r); err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if !r.IsCorridor() {
		t.Error("expected green-corridor room")
	}
}

func TestCreateSurgeon_Validation(t *testing.T) {
	svc := newTestService()

	if err := svc.CreateSurgeon(context.Background(), &Surgeon{Name: "Dr. Adams"}); err == nil {
		t.Error("expected error for missing specializations")
	}

	sg := &Surgeon{Name: "Dr. Adams", Specializations: []string{"general"}}
	if err := svc.CreateSurgeon(context.Background(), sg); err != nil {
		t.Fatalf("CreateSurgeon: %v", err)
	}
	if sg.StartHour != 8 || sg.EndHour != 20 {
		t.Errorf("expected default availability 8-20, got %d-%d", sg.StartHour, sg.EndHour)
	}
	if !sg.HasSpecialization("general") {
		t.Error("HasSpecialization should match a listed specialty")
	}
	if sg.HasSpecialization("cardiac") {
		t.Error("HasSpecialization must not match an unlisted specialty")
	}
}

func TestCreateEquipment_Validation(t *testing.T) {
	svc := newTestService()

	if err := svc.CreateEquipment(context.Background(), &Equipment{}); err == nil {
		t.Error("expected error for missing kind")
	}
	if err := svc.CreateEquipment(context.Background(), &Equipment{Kind: "c-arm", Count: -1}); err == nil {
		t.Error("expected error for negative count")
	}
	if err := svc.CreateEquipment(context.Background(), &Equipment{Kind: "c-arm", Count: 2}); err != nil {
		t.Errorf("CreateEquipment: %v", err)
	}
}
