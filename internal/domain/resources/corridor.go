package resources

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Corridor room states.
const (
	CorridorReserved = "reserved"
	CorridorReleased = "temporarily-released"
)

// AlertFunc receives capacity-floor alerts. Advisory only: scheduling is
// never blocked by it.
type AlertFunc func(freeCorridorRooms, totalRooms int)

// CorridorManager tracks the reservation state of every green-corridor room.
// A room may be handed to elective scheduling (temporarily released) only
// after a continuous quiet window with no active emergency demand; the
// instant an emergency needs capacity every room reverts to reserved.
type CorridorManager struct {
	mu            sync.Mutex
	states        map[uuid.UUID]string
	lastEmergency time.Time
	quietWindow   time.Duration
	floorPct      int
	alert         AlertFunc
	logger        zerolog.Logger
}

func NewCorridorManager(quietWindow time.Duration, floorPct int, alert AlertFunc, logger zerolog.Logger) *CorridorManager {
	return &CorridorManager{
		states:        make(map[uuid.UUID]string),
		lastEmergency: time.Now().UTC(),
		quietWindow:   quietWindow,
		floorPct:      floorPct,
		alert:         alert,
		logger:        logger,
	}
}

// Track registers a corridor room in the reserved state. Registering an
// already-tracked room keeps its current state.
func (m *CorridorManager) Track(roomID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.states[roomID]; !ok {
		m.states[roomID] = CorridorReserved
	}
}

// State returns the current state of a tracked room, defaulting to reserved
// for rooms the manager has not seen.
func (m *CorridorManager) State(roomID uuid.UUID) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if st, ok := m.states[roomID]; ok {
		return st
	}
	return CorridorReserved
}

// Released returns the ids of all temporarily released rooms.
func (m *CorridorManager) Released() []uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []uuid.UUID
	for id, st := range m.states {
		if st == CorridorReleased {
			ids = append(ids, id)
		}
	}
	return ids
}

// NoteEmergencyActivity records emergency demand, restarting the quiet
// window that gates future releases.
func (m *CorridorManager) NoteEmergencyActivity(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastEmergency = now
}

// SweepReleases transitions every reserved room to temporarily released if
// the quiet window has elapsed with no emergency activity. Returns the ids
// released by this sweep.
func (m *CorridorManager) SweepReleases(now time.Time) []uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()

	if now.Sub(m.lastEmergency) < m.quietWindow {
		return nil
	}

	var released []uuid.UUID
	for id, st := range m.states {
		if st == CorridorReserved {
			m.states[id] = CorridorReleased
			released = append(released, id)
		}
	}
	if len(released) > 0 {
		m.logger.Info().Int("rooms", len(released)).Msg("green-corridor rooms temporarily released")
	}
	return released
}

// SeizeAll forces every corridor room back to reserved, immediately and
// unconditionally. Returns the ids that were released at the time of the
// seizure: any elective surgery occupying those rooms must be re-queued as
// postponed by the caller.
func (m *CorridorManager) SeizeAll(now time.Time) []uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastEmergency = now
	var preempted []uuid.UUID
	for id, st := range m.states {
		if st == CorridorReleased {
			preempted = append(preempted, id)
		}
		m.states[id] = CorridorReserved
	}
	if len(preempted) > 0 {
		m.logger.Warn().Int("rooms", len(preempted)).Msg("released green-corridor rooms seized back")
	}
	return preempted
}

// CheckFloor raises the advisory capacity alert when free corridor capacity
// drops below the configured floor percentage of total rooms.
func (m *CorridorManager) CheckFloor(freeCorridorRooms, totalRooms int) {
	if totalRooms == 0 || m.alert == nil {
		return
	}
	if freeCorridorRooms*100 < m.floorPct*totalRooms {
		m.logger.Warn().
			Int("free_corridor_rooms", freeCorridorRooms).
			Int("total_rooms", totalRooms).
			Int("floor_pct", m.floorPct).
			Msg("green-corridor capacity below floor")
		m.alert(freeCorridorRooms, totalRooms)
	}
}
