package waitlist

import (
	"time"

	"github.com/google/uuid"
)

// Entry statuses.
const (
	StatusWaiting   = "waiting"
	StatusScheduled = "scheduled"
	StatusPostponed = "postponed"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Entry maps to the waitlist_entry table. It is the scheduling view of a
// patient awaiting surgery: clinical risk, the surgery to perform, its
// resource requirements, and the externally supplied duration prediction.
type Entry struct {
	ID                uuid.UUID  `db:"id" json:"id"`
	PatientID         uuid.UUID  `db:"patient_id" json:"patient_id"`
	ASAScore          int        `db:"asa_score" json:"asa_score"`
	SurgeryType       string     `db:"surgery_type" json:"surgery_type"`
	Specialization    string     `db:"specialization" json:"specialization"`
	RequiredEquipment []string   `db:"required_equipment" json:"required_equipment,omitempty"`
	PredictedMinutes  *int       `db:"predicted_minutes" json:"predicted_minutes,omitempty"`
	PredictedLower    *int       `db:"predicted_lower" json:"predicted_lower,omitempty"`
	PredictedUpper    *int       `db:"predicted_upper" json:"predicted_upper,omitempty"`
	Confidence        *float64   `db:"confidence" json:"confidence,omitempty"`
	Postponable       bool       `db:"postponable" json:"postponable"`
	PriorityBoost     int        `db:"priority_boost" json:"priority_boost"`
	Status            string     `db:"status" json:"status"`
	AddedAt           time.Time  `db:"added_at" json:"added_at"`
	Note              *string    `db:"note" json:"note,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

// WaitDays returns whole days waited as of now.
func (e *Entry) WaitDays(now time.Time) int {
	if now.Before(e.AddedAt) {
		return 0
	}
	return int(now.Sub(e.AddedAt).Hours() / 24)
}

// EffectiveASA is the clinical risk class plus any active priority boost
// (applied to postponed cases on Code Red resolution).
func (e *Entry) EffectiveASA() int {
	return e.ASAScore + e.PriorityBoost
}
