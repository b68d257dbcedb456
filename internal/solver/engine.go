package solver

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/orsched/orsched/internal/domain/schedule"
)

// Objective weights, lexicographic: scheduled high-risk cases dominate the
// wait penalty, which dominates utilization.
const (
	weightHighRisk = 1000
	weightWait     = 10
	highRiskASA    = 4
)

const minutesPerDay = 24 * 60

// checkEvery bounds how often the search polls the deadline.
const checkEvery = 128

// Placement binds one case to a room, a surgeon and a start minute on a
// planning day. EndMinute excludes the turnover buffer.
type Placement struct {
	Case        *Case
	RoomID      uuid.UUID
	SurgeonID   uuid.UUID
	Day         int
	StartMinute int
	EndMinute   int
}

// Result is the solve outcome. Placements always hold the best assignment
// found, even when the status is infeasible or the budget ran out.
type Result struct {
	Status      string
	Objective   int64
	Proven      bool
	Nodes       int64
	Placements  []Placement
	Unscheduled []*Case
	Violations  []schedule.Violation
}

type candidate struct {
	day, room, surgeon int
	start, end         int
}

type search struct {
	inst     *Instance
	deadline time.Time
	ctx      context.Context

	roomFree [][]int // day -> room index -> next free minute
	surgFree [][]int
	assigned []candidate // per case index; day == -1 means skipped

	high       int   // scheduled ASA>=4 count
	penalty    int64 // sum of waitDays*ASA over skipped cases
	minutes    int   // scheduled surgical minutes
	completion int64 // sum of absolute end minutes, tie-break

	suffixHigh []int

	nodes   int64
	stopped bool

	bestObjective  int64
	bestCompletion int64
	bestAssigned   []candidate
	haveBest       bool
}

// Solve runs a depth-first branch-and-bound over the instance within the
// time budget. It honors the anytime contract: cancellation or an expired
// budget stops the search and returns the best solution found so far.
func Solve(ctx context.Context, inst *Instance, budget time.Duration) *Result {
	s := &search{
		inst:     inst,
		ctx:      ctx,
		deadline: time.Now().Add(budget),
		assigned: make([]candidate, len(inst.Cases)),
	}
	if d, ok := ctx.Deadline(); ok && d.Before(s.deadline) {
		s.deadline = d
	}

	s.roomFree = make([][]int, inst.Days)
	s.surgFree = make([][]int, inst.Days)
	for d := 0; d < inst.Days; d++ {
		s.roomFree[d] = make([]int, len(inst.Rooms))
		s.surgFree[d] = make([]int, len(inst.Surgeons))
		for ri, r := range inst.Rooms {
			s.roomFree[d][ri] = r.OpenMinute
		}
		for si, sg := range inst.Surgeons {
			s.surgFree[d][si] = sg.StartMinute
		}
	}

	s.suffixHigh = make([]int, len(inst.Cases)+1)
	for i := len(inst.Cases) - 1; i >= 0; i-- {
		s.suffixHigh[i] = s.suffixHigh[i+1]
		if inst.Cases[i].ASA >= highRiskASA {
			s.suffixHigh[i]++
		}
	}

	s.dfs(0)

	return s.result()
}

func (s *search) expired() bool {
	s.nodes++
	if s.stopped {
		return true
	}
	if s.nodes%checkEvery == 0 {
		if s.ctx.Err() != nil || time.Now().After(s.deadline) {
			s.stopped = true
		}
	}
	return s.stopped
}

func (s *search) dfs(i int) {
	if s.expired() {
		return
	}
	if i == len(s.inst.Cases) {
		s.recordLeaf()
		return
	}
	if !s.promising(i) {
		return
	}

	c := s.inst.Cases[i]
	for _, cand := range s.candidates(i) {
		undoRoom := s.roomFree[cand.day][cand.room]
		undoSurg := s.surgFree[cand.day][cand.surgeon]
		s.roomFree[cand.day][cand.room] = cand.end + s.inst.Buffer
		s.surgFree[cand.day][cand.surgeon] = cand.end
		s.assigned[i] = cand
		if c.ASA >= highRiskASA {
			s.high++
		}
		s.minutes += c.Minutes
		s.completion += int64(cand.day*minutesPerDay + cand.end)

		s.dfs(i + 1)

		s.completion -= int64(cand.day*minutesPerDay + cand.end)
		s.minutes -= c.Minutes
		if c.ASA >= highRiskASA {
			s.high--
		}
		s.roomFree[cand.day][cand.room] = undoRoom
		s.surgFree[cand.day][cand.surgeon] = undoSurg
		if s.stopped {
			return
		}
	}

	// Leave-unscheduled branch, tried last.
	s.assigned[i] = candidate{day: -1}
	skipPenalty := int64(c.WaitDays * c.ASA)
	s.penalty += skipPenalty
	s.dfs(i + 1)
	s.penalty -= skipPenalty
}

// promising is the optimistic bound: assume every remaining case gets
// scheduled and utilization hits 100%. Prune when even that cannot beat the
// incumbent.
func (s *search) promising(i int) bool {
	if !s.haveBest {
		return true
	}
	ub := int64(weightHighRisk)*int64(s.high+s.suffixHigh[i]) - int64(weightWait)*s.penalty + 100
	return ub >= s.bestObjective
}

func (s *search) objective() int64 {
	util := int64(0)
	if total := s.inst.RoomMinutes(); total > 0 {
		util = int64(s.minutes) * 100 / int64(total)
	}
	return int64(weightHighRisk)*int64(s.high) - int64(weightWait)*s.penalty + util
}

func (s *search) recordLeaf() {
	obj := s.objective()
	if s.haveBest && (obj < s.bestObjective || (obj == s.bestObjective && s.completion >= s.bestCompletion)) {
		return
	}
	s.haveBest = true
	s.bestObjective = obj
	s.bestCompletion = s.completion
	s.bestAssigned = append(s.bestAssigned[:0], s.assigned...)
}

// candidates enumerates feasible placements for case i in deterministic
// order: earliest day, then earliest start, then room and surgeon index.
func (s *search) candidates(i int) []candidate {
	c := s.inst.Cases[i]
	var out []candidate
	for d := 0; d < s.inst.Days; d++ {
		for _, ri := range s.inst.roomsFor[i] {
			r := s.inst.Rooms[ri]
			for _, si := range s.inst.surgeonsFor[i] {
				sg := s.inst.Surgeons[si]
				start := s.roomFree[d][ri]
				if f := s.surgFree[d][si]; f > start {
					start = f
				}
				end := start + c.Minutes
				if end > r.CloseMin || end > sg.EndMinute {
					continue
				}
				out = append(out, candidate{day: d, room: ri, surgeon: si, start: start, end: end})
			}
		}
	}
	sort.Slice(out, func(a, b int) bool {
		x, y := out[a], out[b]
		if x.day != y.day {
			return x.day < y.day
		}
		if x.start != y.start {
			return x.start < y.start
		}
		if x.room != y.room {
			return x.room < y.room
		}
		return x.surgeon < y.surgeon
	})
	return out
}

func (s *search) result() *Result {
	res := &Result{
		Proven:     !s.stopped,
		Nodes:      s.nodes,
		Violations: append([]schedule.Violation(nil), s.inst.Violations...),
	}
	if !s.haveBest {
		// The skip-everything leaf is always reachable, so an empty best
		// means the budget expired before a single leaf. Report the empty
		// schedule honestly.
		s.bestAssigned = make([]candidate, len(s.inst.Cases))
		for i := range s.bestAssigned {
			s.bestAssigned[i] = candidate{day: -1}
		}
	} else {
		res.Objective = s.bestObjective
	}

	mustMissed := false
	for i, cand := range s.bestAssigned {
		c := s.inst.Cases[i]
		if cand.day < 0 {
			res.Unscheduled = append(res.Unscheduled, c)
			if c.MustSchedule {
				mustMissed = true
				res.Violations = append(res.Violations, schedule.Violation{
					Kind:      schedule.ViolationTimeWindow,
					EntryID:   c.EntryID,
					PatientID: c.PatientID,
					Description: fmt.Sprintf("ASA %d patient waiting %d days could not be placed within the horizon",
						c.ASA, c.WaitDays),
					Remedy: "extend operating hours, add resources, or postpone named lower-priority cases",
				})
			}
			continue
		}
		res.Placements = append(res.Placements, Placement{
			Case:        c,
			RoomID:      s.inst.Rooms[cand.room].ID,
			SurgeonID:   s.inst.Surgeons[cand.surgeon].ID,
			Day:         cand.day,
			StartMinute: cand.start,
			EndMinute:   cand.end,
		})
	}

	// Excluded cases never reached the search but still count as unplaced,
	// and an excluded hard-bound patient makes the schedule infeasible too.
	for _, c := range s.inst.Excluded {
		res.Unscheduled = append(res.Unscheduled, c)
		if c.MustSchedule {
			mustMissed = true
			res.Violations = append(res.Violations, schedule.Violation{
				Kind:      schedule.ViolationTimeWindow,
				EntryID:   c.EntryID,
				PatientID: c.PatientID,
				Description: fmt.Sprintf("ASA %d patient waiting %d days has no feasible slot in the horizon",
					c.ASA, c.WaitDays),
				Remedy: "extend operating hours, add resources, or postpone named lower-priority cases",
			})
		}
	}

	switch {
	case mustMissed:
		res.Status = schedule.StatusInfeasible
	case res.Proven:
		res.Status = schedule.StatusOptimal
	default:
		res.Status = schedule.StatusFeasible
	}
	return res
}
