// Package solver turns a ranked waitlist and a resource pool into a
// constraint instance and searches it with a time-bounded branch-and-bound.
// The search is deterministic: the same input always yields the same
// schedule.
package solver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/orsched/orsched/internal/domain/schedule"
	"github.com/orsched/orsched/internal/platform/estimator"
)

// Case is one candidate surgery. ASA is the effective score, i.e. the
// clinical ASA plus any resolution bonus already applied by the caller.
type Case struct {
	EntryID           uuid.UUID
	PatientID         string
	SurgeryType       string
	Specialization    string
	RequiredEquipment []string
	Minutes           int // 0 means unknown: the builder consults the estimator
	ASA               int
	AgeYears          int
	WaitDays          int

	// MustSchedule marks the hard bound: a high-risk patient past the
	// urgent wait threshold. Leaving such a case unplaced makes the whole
	// schedule infeasible.
	MustSchedule bool
}

// Room is a usable operating room for the horizon. Corridor rooms enter the
// instance only while temporarily released.
type Room struct {
	ID         uuid.UUID
	Equipment  []string
	OpenMinute int // minutes from midnight
	CloseMin   int
	Corridor   bool
	Released   bool
}

func (r *Room) hasEquipment(kind string) bool {
	for _, have := range r.Equipment {
		if have == kind {
			return true
		}
	}
	return false
}

// Surgeon is an available surgeon with a daily working window.
type Surgeon struct {
	ID              uuid.UUID
	Specializations []string
	StartMinute     int
	EndMinute       int
}

func (s *Surgeon) covers(spec string) bool {
	for _, have := range s.Specializations {
		if have == spec {
			return true
		}
	}
	return false
}

// Options bound the constraint instance.
type Options struct {
	HorizonDays    int
	BufferMinutes  int
	UrgentWaitDays int // ASA 4-5 waiting beyond this is a hard bound
}

// Instance is the built constraint model: cases in branch order, eligible
// rooms and surgeons precomputed per case, and the violations recorded for
// cases excluded up front.
type Instance struct {
	Cases    []*Case
	Rooms    []*Room
	Surgeons []*Surgeon
	Days     int
	Buffer   int

	roomsFor    [][]int // case index -> eligible room indexes
	surgeonsFor [][]int

	Violations []schedule.Violation
	Excluded   []*Case
}

// Build constructs the instance. Cases with no duration ask the estimator;
// cases with missing prediction data or zero eligible resources across the
// whole horizon are excluded with a recorded violation, never failing the
// build. Corridor rooms that are not released are dropped from the room set.
func Build(ctx context.Context, cases []*Case, rooms []*Room, surgeons []*Surgeon, est estimator.Estimator, opts Options) (*Instance, error) {
	if opts.HorizonDays <= 0 {
		return nil, fmt.Errorf("horizon must be positive, got %d days", opts.HorizonDays)
	}

	inst := &Instance{
		Days:   opts.HorizonDays,
		Buffer: opts.BufferMinutes,
	}

	for _, r := range rooms {
		if r.Corridor && !r.Released {
			continue
		}
		if r.CloseMin <= r.OpenMinute {
			continue
		}
		inst.Rooms = append(inst.Rooms, r)
	}
	for _, s := range surgeons {
		if s.EndMinute > s.StartMinute {
			inst.Surgeons = append(inst.Surgeons, s)
		}
	}

	for _, c := range cases {
		// Marked before any exclusion: an urgent patient excluded for
		// missing data still makes the schedule infeasible.
		if c.ASA >= 4 && c.WaitDays > opts.UrgentWaitDays {
			c.MustSchedule = true
		}

		if c.Minutes <= 0 && est != nil {
			e, err := est.Estimate(ctx, estimator.Attributes{ASAScore: c.ASA, AgeYears: c.AgeYears}, c.SurgeryType)
			var missing *estimator.MissingDataError
			if errors.As(err, &missing) {
				inst.exclude(c, schedule.Violation{
					Kind:        schedule.ViolationMissingPrediction,
					EntryID:     c.EntryID,
					PatientID:   c.PatientID,
					Description: fmt.Sprintf("duration prediction unavailable: %v", err),
					Remedy:      "record the missing patient attributes and re-run the solve",
				})
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("estimate duration for %s: %w", c.PatientID, err)
			}
			c.Minutes = e.Minutes
		}
		if c.Minutes <= 0 {
			inst.exclude(c, schedule.Violation{
				Kind:        schedule.ViolationMissingPrediction,
				EntryID:     c.EntryID,
				PatientID:   c.PatientID,
				Description: "no predicted duration and no estimator available",
				Remedy:      "supply a predicted duration for the entry",
			})
			continue
		}

		inst.Cases = append(inst.Cases, c)
	}

	// Branch order: highest priority first.
	sort.SliceStable(inst.Cases, func(i, j int) bool {
		a, b := inst.Cases[i], inst.Cases[j]
		if a.ASA != b.ASA {
			return a.ASA > b.ASA
		}
		if a.WaitDays != b.WaitDays {
			return a.WaitDays > b.WaitDays
		}
		return bytes.Compare(a.EntryID[:], b.EntryID[:]) < 0
	})

	// Eligibility precompute. A case with no eligible room or surgeon
	// anywhere in the horizon is unschedulable up front.
	kept := inst.Cases[:0]
	for _, c := range inst.Cases {
		var rs, ss []int
		for ri, r := range inst.Rooms {
			if !roomEligible(r, c) {
				continue
			}
			rs = append(rs, ri)
		}
		for si, s := range inst.Surgeons {
			if !surgeonEligible(s, c) {
				continue
			}
			ss = append(ss, si)
		}
		switch {
		case len(rs) == 0:
			inst.exclude(c, schedule.Violation{
				Kind:        schedule.ViolationNoEligibleRoom,
				EntryID:     c.EntryID,
				PatientID:   c.PatientID,
				Description: fmt.Sprintf("no room fits a %d-minute %s with equipment %v", c.Minutes, c.SurgeryType, c.RequiredEquipment),
				Remedy:      "extend room hours or add a room with the required equipment",
			})
		case len(ss) == 0:
			inst.exclude(c, schedule.Violation{
				Kind:        schedule.ViolationNoEligibleSurgeon,
				EntryID:     c.EntryID,
				PatientID:   c.PatientID,
				Description: fmt.Sprintf("no available surgeon covers %s for a %d-minute case", c.Specialization, c.Minutes),
				Remedy:      "extend surgeon availability or add a surgeon with the specialization",
			})
		default:
			kept = append(kept, c)
			inst.roomsFor = append(inst.roomsFor, rs)
			inst.surgeonsFor = append(inst.surgeonsFor, ss)
		}
	}
	inst.Cases = kept

	return inst, nil
}

func (inst *Instance) exclude(c *Case, v schedule.Violation) {
	v.Kind = orDefault(v.Kind, schedule.ViolationUnschedulable)
	inst.Excluded = append(inst.Excluded, c)
	inst.Violations = append(inst.Violations, v)
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func roomEligible(r *Room, c *Case) bool {
	if r.CloseMin-r.OpenMinute < c.Minutes {
		return false
	}
	for _, kind := range c.RequiredEquipment {
		if !r.hasEquipment(kind) {
			return false
		}
	}
	return true
}

func surgeonEligible(s *Surgeon, c *Case) bool {
	if s.EndMinute-s.StartMinute < c.Minutes {
		return false
	}
	return c.Specialization == "" || s.covers(c.Specialization)
}

// RoomMinutes is the total schedulable room capacity over the horizon,
// used for the utilization term of the objective.
func (inst *Instance) RoomMinutes() int {
	total := 0
	for _, r := range inst.Rooms {
		total += (r.CloseMin - r.OpenMinute) * inst.Days
	}
	return total
}
