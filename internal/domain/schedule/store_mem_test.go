package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestMemStore_EmptyLoadLatest(t *testing.T) {
	st := NewMemStore()
	if _, err := st.LoadLatest(context.Background()); !errors.Is(err, ErrNoSchedule) {
		t.Errorf("expected ErrNoSchedule, got %v", err)
	}
}

func TestMemStore_VersionsAreMonotonic(t *testing.T) {
	st := NewMemStore()
	ctx := context.Background()

	v1, err := st.Commit(ctx, &Schedule{Status: StatusOptimal})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	v2, err := st.Commit(ctx, &Schedule{Status: StatusFeasible})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if v1 != 1 || v2 != 2 {
		t.Errorf("expected versions 1 and 2, got %d and %d", v1, v2)
	}

	latest, err := st.LoadLatest(ctx)
	if err != nil {
		t.Fatalf("load latest: %v", err)
	}
	if latest.Version != 2 || latest.Status != StatusFeasible {
		t.Errorf("latest should be version 2, got v%d %s", latest.Version, latest.Status)
	}

	old, err := st.LoadVersion(ctx, 1)
	if err != nil {
		t.Fatalf("load version 1: %v", err)
	}
	if old.Status != StatusOptimal {
		t.Errorf("version 1 should remain readable, got %s", old.Status)
	}
}

func TestMemStore_CommitAssignsSurgeryIDs(t *testing.T) {
	st := NewMemStore()
	s := &Schedule{
		Status: StatusOptimal,
		Surgeries: []*ScheduledSurgery{
			{EntryID: uuid.New(), PatientID: "P1", StartAt: time.Now(), Status: SurgeryScheduled},
		},
	}
	if _, err := st.Commit(context.Background(), s); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if s.Surgeries[0].ID == uuid.Nil {
		t.Error("commit must assign surgery ids")
	}
	if s.GeneratedAt.IsZero() {
		t.Error("commit must stamp generated_at")
	}
}

func TestMemStore_UpdateSurgeryStatus(t *testing.T) {
	st := NewMemStore()
	ctx := context.Background()
	s := &Schedule{
		Status: StatusOptimal,
		Surgeries: []*ScheduledSurgery{
			{EntryID: uuid.New(), PatientID: "P1", Status: SurgeryScheduled},
		},
	}
	if _, err := st.Commit(ctx, s); err != nil {
		t.Fatalf("commit: %v", err)
	}

	id := s.Surgeries[0].ID
	if err := st.UpdateSurgeryStatus(ctx, id, SurgeryInProgress); err != nil {
		t.Fatalf("update status: %v", err)
	}
	latest, _ := st.LoadLatest(ctx)
	if latest.Surgeries[0].Status != SurgeryInProgress {
		t.Errorf("expected in-progress, got %s", latest.Surgeries[0].Status)
	}

	if err := st.UpdateSurgeryStatus(ctx, id, "vanished"); err == nil {
		t.Error("expected error for invalid status")
	}
	if err := st.UpdateSurgeryStatus(ctx, uuid.New(), SurgeryCompleted); err == nil {
		t.Error("expected error for unknown surgery")
	}
}

func TestSchedule_Lookups(t *testing.T) {
	room := uuid.New()
	entry := uuid.New()
	s := &Schedule{
		Surgeries: []*ScheduledSurgery{
			{ID: uuid.New(), EntryID: entry, RoomID: room, Status: SurgeryScheduled},
			{ID: uuid.New(), EntryID: uuid.New(), RoomID: room, Status: SurgeryPostponed},
			{ID: uuid.New(), EntryID: uuid.New(), RoomID: uuid.New(), Status: SurgeryScheduled},
		},
	}

	if got := s.SurgeryForEntry(entry); got == nil || got.EntryID != entry {
		t.Error("SurgeryForEntry should find the placement")
	}
	if got := s.SurgeryForEntry(uuid.New()); got != nil {
		t.Error("SurgeryForEntry must return nil for unknown entries")
	}
	if got := s.ActiveInRoom(room); len(got) != 1 {
		t.Errorf("postponed surgeries must not count as occupying the room, got %d", len(got))
	}
}

func TestBlockedUntil_IncludesBuffer(t *testing.T) {
	end := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	sg := &ScheduledSurgery{EndAt: end, BufferMinutes: 30}
	if got := sg.BlockedUntil(); !got.Equal(end.Add(30 * time.Minute)) {
		t.Errorf("expected room blocked until %v, got %v", end.Add(30*time.Minute), got)
	}
}
