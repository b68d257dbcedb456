package codered

import (
	"time"

	"github.com/google/uuid"
)

// Session states. The hospital instance is Idle whenever no session is in
// the active or resolving state.
const (
	StateActive    = "active"
	StateResolving = "resolving"
	StateResolved  = "resolved"
)

// Details carries the emergency attributes supplied at declaration.
type Details struct {
	Description  string `json:"description"`
	PatientCount int    `json:"patient_count"`
	Source       string `json:"source,omitempty"`
}

// Report summarizes a resolved session.
type Report struct {
	SeizedRooms        int      `json:"seized_rooms"`
	PostponedSurgeries int      `json:"postponed_surgeries"`
	DurationMinutes    int      `json:"duration_minutes"`
	NewScheduleVersion int      `json:"new_schedule_version"`
	Bottlenecks        []string `json:"bottlenecks,omitempty"`
}

// Session maps to the code_red_session table. It is mutated only by the
// reallocator service; closing it triggers a new schedule version.
type Session struct {
	ID                  uuid.UUID   `db:"id" json:"id"`
	State               string      `db:"state" json:"state"`
	Details             Details     `json:"details"`
	SeizedRoomIDs       []uuid.UUID `db:"seized_room_ids" json:"seized_room_ids,omitempty"`
	PostponedSurgeryIDs []uuid.UUID `db:"postponed_surgery_ids" json:"postponed_surgery_ids,omitempty"`
	PostponedEntryIDs   []uuid.UUID `db:"postponed_entry_ids" json:"postponed_entry_ids,omitempty"`
	DeclaredAt          time.Time   `db:"declared_at" json:"declared_at"`
	ResolvedAt          *time.Time  `db:"resolved_at" json:"resolved_at,omitempty"`
	Report              *Report     `json:"report,omitempty"`
}

// AuditEntry is one append-only record of a session transition or
// postponement decision. Entries are never rewritten.
type AuditEntry struct {
	ID          uuid.UUID   `db:"id" json:"id"`
	SessionID   uuid.UUID   `db:"session_id" json:"session_id"`
	At          time.Time   `db:"at" json:"at"`
	Action      string      `db:"action" json:"action"`
	AffectedIDs []uuid.UUID `db:"affected_ids" json:"affected_ids,omitempty"`
	Note        string      `db:"note" json:"note,omitempty"`
}
