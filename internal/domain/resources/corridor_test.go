package resources

import (
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func testLogger() zerolog.Logger {
	return zerolog.New(os.Stderr).Level(zerolog.Disabled)
}

func TestCorridor_StartsReserved(t *testing.T) {
	m := NewCorridorManager(24*time.Hour, 15, nil, testLogger())
	id := uuid.New()
	m.Track(id)

	if st := m.State(id); st != CorridorReserved {
		t.Errorf("expected reserved, got %s", st)
	}
}

func TestCorridor_NoReleaseInsideQuietWindow(t *testing.T) {
	m := NewCorridorManager(24*time.Hour, 15, nil, testLogger())
	m.Track(uuid.New())
	m.NoteEmergencyActivity(time.Now())

	released := m.SweepReleases(time.Now().Add(12 * time.Hour))
	if len(released) != 0 {
		t.Errorf("expected no release inside the quiet window, got %d", len(released))
	}
}

func TestCorridor_ReleaseAfterQuietWindow(t *testing.T) {
	m := NewCorridorManager(24*time.Hour, 15, nil, testLogger())
	id := uuid.New()
	m.Track(id)
	now := time.Now()
	m.NoteEmergencyActivity(now)

	released := m.SweepReleases(now.Add(25 * time.Hour))
	if len(released) != 1 || released[0] != id {
		t.Fatalf("expected room released after quiet window, got %v", released)
	}
	if st := m.State(id); st != CorridorReleased {
		t.Errorf("expected temporarily-released, got %s", st)
	}
}

func TestCorridor_SeizeRevertsImmediately(t *testing.T) {
	m := NewCorridorManager(24*time.Hour, 15, nil, testLogger())
	id := uuid.New()
	m.Track(id)
	now := time.Now()
	m.NoteEmergencyActivity(now)
	m.SweepReleases(now.Add(25 * time.Hour))

	preempted := m.SeizeAll(now.Add(26 * time.Hour))
	if len(preempted) != 1 || preempted[0] != id {
		t.Fatalf("expected the released room to be reported as preempted, got %v", preempted)
	}
	if st := m.State(id); st != CorridorReserved {
		t.Errorf("expected reserved after seizure, got %s", st)
	}

	// Seizure restarts the quiet window.
	if rel := m.SweepReleases(now.Add(27 * time.Hour)); len(rel) != 0 {
		t.Error("quiet window must restart after a seizure")
	}
}

func TestCorridor_SeizeIsIdempotent(t *testing.T) {
	m := NewCorridorManager(24*time.Hour, 15, nil, testLogger())
	m.Track(uuid.New())

	first := m.SeizeAll(time.Now())
	second := m.SeizeAll(time.Now())
	if len(first) != 0 || len(second) != 0 {
		t.Error("seizing reserved rooms must not report preemptions")
	}
}

func TestCorridor_FloorAlert(t *testing.T) {
	var gotFree, gotTotal int
	fired := 0
	alert := func(free, total int) {
		fired++
		gotFree, gotTotal = free, total
	}
	m := NewCorridorManager(24*time.Hour, 15, alert, testLogger())

	// 1 free corridor room out of 10 total = 10% < 15% floor.
	m.CheckFloor(1, 10)
	if fired != 1 {
		t.Fatal("expected alert below the floor")
	}
	if gotFree != 1 || gotTotal != 10 {
		t.Errorf("alert carried wrong numbers: %d/%d", gotFree, gotTotal)
	}

	// 2 of 10 = 20% >= 15%: no alert.
	m.CheckFloor(2, 10)
	if fired != 1 {
		t.Error("no alert expected at or above the floor")
	}
}
