package resources

import (
	"time"

	"github.com/google/uuid"
)

// Room kinds.
const (
	RoomStandard      = "standard"
	RoomGreenCorridor = "green-corridor"
)

// Room maps to the or_room table. Open/close hours bound the room's daily
// operating window; equipment lists what is permanently installed.
type Room struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Kind      string    `db:"kind" json:"kind"`
	Equipment []string  `db:"equipment" json:"equipment,omitempty"`
	OpenHour  int       `db:"open_hour" json:"open_hour"`
	CloseHour int       `db:"close_hour" json:"close_hour"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	Note      *string   `db:"note" json:"note,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// IsCorridor reports whether the room belongs to the emergency reserve.
func (r *Room) IsCorridor() bool { return r.Kind == RoomGreenCorridor }

// Surgeon maps to the surgeon table. Availability is a daily hour window;
// specializations drive case eligibility.
type Surgeon struct {
	ID              uuid.UUID `db:"id" json:"id"`
	Name            string    `db:"name" json:"name"`
	Specializations []string  `db:"specializations" json:"specializations"`
	StartHour       int       `db:"start_hour" json:"start_hour"`
	EndHour         int       `db:"end_hour" json:"end_hour"`
	IsActive        bool      `db:"is_active" json:"is_active"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// HasSpecialization reports whether the surgeon covers the given specialty.
func (s *Surgeon) HasSpecialization(spec string) bool {
	for _, have := range s.Specializations {
		if have == spec {
			return true
		}
	}
	return false
}

// Equipment maps to the equipment table: a portable equipment pool entry.
type Equipment struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Kind      string    `db:"kind" json:"kind"`
	Count     int       `db:"count" json:"count"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
