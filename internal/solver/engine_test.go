package solver

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/orsched/orsched/internal/domain/schedule"
	"github.com/orsched/orsched/internal/platform/estimator"
)

var testOpts = Options{HorizonDays: 2, BufferMinutes: 30, UrgentWaitDays: 7}

func stdRoom() *Room {
	return &Room{ID: uuid.New(), OpenMinute: 8 * 60, CloseMin: 20 * 60}
}

func stdSurgeon(specs ...string) *Surgeon {
	if len(specs) == 0 {
		specs = []string{"general"}
	}
	return &Surgeon{ID: uuid.New(), Specializations: specs, StartMinute: 8 * 60, EndMinute: 20 * 60}
}

func mustBuild(t *testing.T, cases []*Case, rooms []*Room, surgeons []*Surgeon, est estimator.Estimator) *Instance {
	t.Helper()
	inst, err := Build(context.Background(), cases, rooms, surgeons, est, testOpts)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return inst
}

// checkDisjoint verifies the committed non-overlap invariants: no two
// placements share a room without the buffer between them, and no surgeon is
// double-booked.
func checkDisjoint(t *testing.T, res *Result, buffer int) {
	t.Helper()
	type key struct {
		day int
		id  uuid.UUID
	}
	byRoom := map[key][]Placement{}
	bySurgeon := map[key][]Placement{}
	for _, p := range res.Placements {
		byRoom[key{p.Day, p.RoomID}] = append(byRoom[key{p.Day, p.RoomID}], p)
		bySurgeon[key{p.Day, p.SurgeonID}] = append(bySurgeon[key{p.Day, p.SurgeonID}], p)
	}
	for _, ps := range byRoom {
		sort.Slice(ps, func(i, j int) bool { return ps[i].StartMinute < ps[j].StartMinute })
		for i := 1; i < len(ps); i++ {
			if ps[i].StartMinute < ps[i-1].EndMinute+buffer {
				t.Errorf("room overlap: [%d,%d] then [%d,%d] with buffer %d",
					ps[i-1].StartMinute, ps[i-1].EndMinute, ps[i].StartMinute, ps[i].EndMinute, buffer)
			}
		}
	}
	for _, ps := range bySurgeon {
		sort.Slice(ps, func(i, j int) bool { return ps[i].StartMinute < ps[j].StartMinute })
		for i := 1; i < len(ps); i++ {
			if ps[i].StartMinute < ps[i-1].EndMinute {
				t.Errorf("surgeon overlap: [%d,%d] then [%d,%d]",
					ps[i-1].StartMinute, ps[i-1].EndMinute, ps[i].StartMinute, ps[i].EndMinute)
			}
		}
	}
}

func TestSolve_PriorityOrderIndependentOfArrival(t *testing.T) {
	p1 := &Case{EntryID: uuid.New(), PatientID: "P1", Specialization: "general", Minutes: 60, ASA: 5, WaitDays: 8}
	p2 := &Case{EntryID: uuid.New(), PatientID: "P2", Specialization: "general", Minutes: 60, ASA: 2, WaitDays: 1}

	for _, order := range [][]*Case{{p1, p2}, {p2, p1}} {
		cs := []*Case{
			{EntryID: order[0].EntryID, PatientID: order[0].PatientID, Specialization: "general", Minutes: 60, ASA: order[0].ASA, WaitDays: order[0].WaitDays},
			{EntryID: order[1].EntryID, PatientID: order[1].PatientID, Specialization: "general", Minutes: 60, ASA: order[1].ASA, WaitDays: order[1].WaitDays},
		}
		inst := mustBuild(t, cs, []*Room{stdRoom()}, []*Surgeon{stdSurgeon()}, nil)
		res := Solve(context.Background(), inst, time.Second)

		if res.Status != schedule.StatusOptimal {
			t.Fatalf("expected optimal, got %s", res.Status)
		}
		if len(res.Placements) != 2 {
			t.Fatalf("expected both patients scheduled, got %d", len(res.Placements))
		}
		var start1, start2 int
		for _, p := range res.Placements {
			switch p.Case.PatientID {
			case "P1":
				start1 = p.StartMinute
			case "P2":
				start2 = p.StartMinute
			}
		}
		if start1 >= start2 {
			t.Errorf("ASA 5 / 8d patient must precede ASA 2 / 1d patient: got %d vs %d", start1, start2)
		}
		checkDisjoint(t, res, testOpts.BufferMinutes)
	}
}

func TestSolve_RoomBufferEnforced(t *testing.T) {
	var cs []*Case
	for i := 0; i < 4; i++ {
		cs = append(cs, &Case{EntryID: uuid.New(), PatientID: "P", Specialization: "general", Minutes: 90, ASA: 3, WaitDays: i})
	}
	inst := mustBuild(t, cs, []*Room{stdRoom()}, []*Surgeon{stdSurgeon(), stdSurgeon()}, nil)
	res := Solve(context.Background(), inst, time.Second)

	if len(res.Placements) != 4 {
		t.Fatalf("expected all four cases placed, got %d", len(res.Placements))
	}
	checkDisjoint(t, res, testOpts.BufferMinutes)
}

func TestSolve_CapacityShortDropsLowestPriority(t *testing.T) {
	high := &Case{EntryID: uuid.New(), PatientID: "HIGH", Specialization: "general", Minutes: 400, ASA: 4, WaitDays: 2}
	low := &Case{EntryID: uuid.New(), PatientID: "LOW", Specialization: "general", Minutes: 400, ASA: 1, WaitDays: 2}
	// One room, one day: 400 + 30 + 400 exceeds the 720-minute window.
	inst, err := Build(context.Background(), []*Case{low, high}, []*Room{stdRoom()}, []*Surgeon{stdSurgeon()}, nil,
		Options{HorizonDays: 1, BufferMinutes: 30, UrgentWaitDays: 7})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	res := Solve(context.Background(), inst, time.Second)

	if res.Status != schedule.StatusOptimal {
		t.Fatalf("expected optimal, got %s", res.Status)
	}
	if len(res.Placements) != 1 || res.Placements[0].Case.PatientID != "HIGH" {
		t.Fatalf("expected only the ASA 4 case placed, got %+v", res.Placements)
	}
	if len(res.Unscheduled) != 1 || res.Unscheduled[0].PatientID != "LOW" {
		t.Errorf("expected the ASA 1 case left unscheduled")
	}
}

func TestSolve_UrgentPatientWithoutSlotIsInfeasible(t *testing.T) {
	// 800 minutes never fits a 720-minute room day.
	c := &Case{EntryID: uuid.New(), PatientID: "P1", Specialization: "general", Minutes: 800, ASA: 5, WaitDays: 8}
	inst := mustBuild(t, []*Case{c}, []*Room{stdRoom()}, []*Surgeon{stdSurgeon()}, nil)
	res := Solve(context.Background(), inst, time.Second)

	if res.Status != schedule.StatusInfeasible {
		t.Fatalf("expected infeasible, got %s", res.Status)
	}
	found := false
	for _, v := range res.Violations {
		if v.Kind == schedule.ViolationTimeWindow && v.PatientID == "P1" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a time-window violation naming P1, got %+v", res.Violations)
	}
}

func TestSolve_UrgentPatientWithMissingPredictionIsInfeasible(t *testing.T) {
	// The urgent hard bound applies no matter why the case was left out:
	// excluded at build for missing data counts the same as unplaced in
	// search.
	est := estimator.NewTableEstimator(nil)
	c := &Case{EntryID: uuid.New(), PatientID: "P1", SurgeryType: "teleportation", Specialization: "general", ASA: 5, WaitDays: 8}
	inst := mustBuild(t, []*Case{c}, []*Room{stdRoom()}, []*Surgeon{stdSurgeon()}, est)
	res := Solve(context.Background(), inst, time.Second)

	if res.Status != schedule.StatusInfeasible {
		t.Fatalf("expected infeasible, got %s", res.Status)
	}
	kinds := map[string]bool{}
	for _, v := range res.Violations {
		if v.PatientID == "P1" {
			kinds[v.Kind] = true
		}
	}
	if !kinds[schedule.ViolationMissingPrediction] || !kinds[schedule.ViolationTimeWindow] {
		t.Errorf("expected missing-prediction and time-window violations for P1, got %+v", res.Violations)
	}
}

func TestBuild_CorridorRoomsExcludedUnlessReleased(t *testing.T) {
	corridor := &Room{ID: uuid.New(), OpenMinute: 8 * 60, CloseMin: 20 * 60, Corridor: true}
	inst := mustBuild(t, nil, []*Room{corridor}, []*Surgeon{stdSurgeon()}, nil)
	if len(inst.Rooms) != 0 {
		t.Error("reserved corridor rooms must not enter the instance")
	}

	corridor.Released = true
	inst = mustBuild(t, nil, []*Room{corridor}, []*Surgeon{stdSurgeon()}, nil)
	if len(inst.Rooms) != 1 {
		t.Error("released corridor rooms must be usable")
	}
}

func TestBuild_EstimatorFillsMissingDurations(t *testing.T) {
	est := estimator.NewTableEstimator(nil)
	known := &Case{EntryID: uuid.New(), PatientID: "P1", SurgeryType: "appendectomy", Specialization: "general", ASA: 2, WaitDays: 1}
	unknown := &Case{EntryID: uuid.New(), PatientID: "P2", SurgeryType: "teleportation", Specialization: "general", ASA: 2, WaitDays: 1}

	inst := mustBuild(t, []*Case{known, unknown}, []*Room{stdRoom()}, []*Surgeon{stdSurgeon()}, est)

	if len(inst.Cases) != 1 || inst.Cases[0].PatientID != "P1" {
		t.Fatalf("expected only the estimable case kept, got %d cases", len(inst.Cases))
	}
	if known.Minutes != 60 {
		t.Errorf("expected 60 estimated minutes for an ASA 2 appendectomy, got %d", known.Minutes)
	}
	if len(inst.Violations) != 1 || inst.Violations[0].Kind != schedule.ViolationMissingPrediction {
		t.Errorf("expected a missing-prediction violation, got %+v", inst.Violations)
	}
}

func TestBuild_NoEligibleResourceRecordsViolation(t *testing.T) {
	needsRobot := &Case{EntryID: uuid.New(), PatientID: "P1", Specialization: "general",
		RequiredEquipment: []string{"surgical-robot"}, Minutes: 60, ASA: 2, WaitDays: 1}
	wrongSpec := &Case{EntryID: uuid.New(), PatientID: "P2", Specialization: "cardiac", Minutes: 60, ASA: 2, WaitDays: 1}

	inst := mustBuild(t, []*Case{needsRobot, wrongSpec}, []*Room{stdRoom()}, []*Surgeon{stdSurgeon("general")}, nil)

	if len(inst.Cases) != 0 {
		t.Fatalf("expected both cases excluded, got %d kept", len(inst.Cases))
	}
	kinds := map[string]bool{}
	for _, v := range inst.Violations {
		kinds[v.Kind] = true
	}
	if !kinds[schedule.ViolationNoEligibleRoom] || !kinds[schedule.ViolationNoEligibleSurgeon] {
		t.Errorf("expected room and surgeon eligibility violations, got %+v", inst.Violations)
	}
}

func TestSolve_EquipmentRouting(t *testing.T) {
	plain := stdRoom()
	equipped := &Room{ID: uuid.New(), Equipment: []string{"c-arm"}, OpenMinute: 8 * 60, CloseMin: 20 * 60}
	c := &Case{EntryID: uuid.New(), PatientID: "P1", Specialization: "general",
		RequiredEquipment: []string{"c-arm"}, Minutes: 60, ASA: 3, WaitDays: 1}

	inst := mustBuild(t, []*Case{c}, []*Room{plain, equipped}, []*Surgeon{stdSurgeon()}, nil)
	res := Solve(context.Background(), inst, time.Second)

	if len(res.Placements) != 1 || res.Placements[0].RoomID != equipped.ID {
		t.Errorf("case requiring a c-arm must land in the equipped room")
	}
}

func TestSolve_Idempotent(t *testing.T) {
	build := func() *Instance {
		var cs []*Case
		ids := make([]uuid.UUID, 5)
		for i := range ids {
			ids[i] = uuid.UUID{byte(i + 1)}
		}
		for i, id := range ids {
			cs = append(cs, &Case{EntryID: id, PatientID: "P", Specialization: "general",
				Minutes: 60 + 30*i, ASA: 1 + i%5, WaitDays: i})
		}
		return mustBuild(t, cs, []*Room{{ID: uuid.UUID{0xA}, OpenMinute: 480, CloseMin: 1200}},
			[]*Surgeon{{ID: uuid.UUID{0xB}, Specializations: []string{"general"}, StartMinute: 480, EndMinute: 1200}}, nil)
	}

	first := Solve(context.Background(), build(), time.Second)
	second := Solve(context.Background(), build(), time.Second)

	if second.Objective < first.Objective {
		t.Errorf("re-solving the same input must never regress: %d then %d", first.Objective, second.Objective)
	}
	if len(first.Placements) != len(second.Placements) {
		t.Fatalf("placement counts differ: %d vs %d", len(first.Placements), len(second.Placements))
	}
	for i := range first.Placements {
		a, b := first.Placements[i], second.Placements[i]
		if a.Case.EntryID != b.Case.EntryID || a.Day != b.Day || a.StartMinute != b.StartMinute || a.RoomID != b.RoomID {
			t.Errorf("placement %d differs between identical runs", i)
		}
	}
}

func TestSolve_CancellationReturnsBestSoFar(t *testing.T) {
	var cs []*Case
	for i := 0; i < 10; i++ {
		cs = append(cs, &Case{EntryID: uuid.New(), PatientID: "P", Specialization: "general",
			Minutes: 60, ASA: 1 + i%5, WaitDays: i})
	}
	inst := mustBuild(t, cs, []*Room{stdRoom(), stdRoom()}, []*Surgeon{stdSurgeon(), stdSurgeon()}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := Solve(ctx, inst, time.Minute)

	if res == nil {
		t.Fatal("cancelled solve must still return a result")
	}
	if res.Proven {
		t.Error("a cancelled search cannot claim a proven optimum")
	}
	checkDisjoint(t, res, testOpts.BufferMinutes)
}
