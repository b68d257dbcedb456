package schedule

import (
	"time"

	"github.com/google/uuid"
)

// Schedule statuses.
const (
	StatusOptimal    = "optimal"
	StatusFeasible   = "feasible"
	StatusInfeasible = "infeasible"
)

// Scheduled surgery statuses.
const (
	SurgeryScheduled  = "scheduled"
	SurgeryInProgress = "in-progress"
	SurgeryCompleted  = "completed"
	SurgeryCancelled  = "cancelled"
	SurgeryPostponed  = "postponed"
)

var validSurgeryStatuses = map[string]bool{
	SurgeryScheduled: true, SurgeryInProgress: true, SurgeryCompleted: true,
	SurgeryCancelled: true, SurgeryPostponed: true,
}

func IsValidSurgeryStatus(s string) bool { return validSurgeryStatuses[s] }

// ScheduledSurgery is one placed case: a waitlist entry bound to a room, a
// surgeon and a start time. EndAt excludes the turnover buffer; the room is
// occupied until EndAt plus BufferMinutes.
type ScheduledSurgery struct {
	ID            uuid.UUID `db:"id" json:"id"`
	EntryID       uuid.UUID `db:"entry_id" json:"entry_id"`
	PatientID     string    `db:"patient_id" json:"patient_id"`
	SurgeryType   string    `db:"surgery_type" json:"surgery_type"`
	RoomID        uuid.UUID `db:"room_id" json:"room_id"`
	SurgeonID     uuid.UUID `db:"surgeon_id" json:"surgeon_id"`
	StartAt       time.Time `db:"start_at" json:"start_at"`
	EndAt         time.Time `db:"end_at" json:"end_at"`
	BufferMinutes int       `db:"buffer_minutes" json:"buffer_minutes"`
	Status        string    `db:"status" json:"status"`
}

// BlockedUntil is the instant the room becomes free again.
func (s *ScheduledSurgery) BlockedUntil() time.Time {
	return s.EndAt.Add(time.Duration(s.BufferMinutes) * time.Minute)
}

// Schedule is one immutable, versioned planning artifact. A new solve or a
// Code Red postponement always commits a fresh version; versions are never
// edited in place.
type Schedule struct {
	Version     int                 `json:"version"`
	Status      string              `json:"status"`
	Objective   int64               `json:"objective"`
	GeneratedAt time.Time           `json:"generated_at"`
	Surgeries   []*ScheduledSurgery `json:"surgeries"`
	Violations  []Violation         `json:"violations,omitempty"`
}

// SurgeryForEntry returns the placement of a waitlist entry, or nil if the
// entry is not on this schedule.
func (s *Schedule) SurgeryForEntry(entryID uuid.UUID) *ScheduledSurgery {
	for _, sg := range s.Surgeries {
		if sg.EntryID == entryID {
			return sg
		}
	}
	return nil
}

// ActiveInRoom returns the surgeries in the given room that are not
// cancelled or postponed, i.e. the ones that actually occupy it.
func (s *Schedule) ActiveInRoom(roomID uuid.UUID) []*ScheduledSurgery {
	var out []*ScheduledSurgery
	for _, sg := range s.Surgeries {
		if sg.RoomID != roomID {
			continue
		}
		if sg.Status == SurgeryCancelled || sg.Status == SurgeryPostponed {
			continue
		}
		out = append(out, sg)
	}
	return out
}
