package schedule

import "github.com/google/uuid"

// Violation kinds.
const (
	ViolationMissingPrediction = "missing-prediction-data"
	ViolationUnschedulable     = "unschedulable-patient"
	ViolationTimeWindow        = "time-window"
	ViolationNoEligibleRoom    = "no-eligible-room"
	ViolationNoEligibleSurgeon = "no-eligible-surgeon"
)

// Violation describes why a patient could not be placed, or which hard
// requirement the committed schedule fails to meet. Violations are
// explanatory output: a schedule with violations is still a valid artifact.
type Violation struct {
	Kind        string    `json:"kind"`
	EntryID     uuid.UUID `json:"entry_id,omitempty"`
	PatientID   string    `json:"patient_id,omitempty"`
	Description string    `json:"description"`
	Remedy      string    `json:"remedy,omitempty"`
}
