package codered

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/orsched/orsched/internal/domain/resources"
	"github.com/orsched/orsched/internal/domain/schedule"
	"github.com/orsched/orsched/internal/domain/waitlist"
	"github.com/orsched/orsched/internal/platform/notification"
)

// ErrInvalidTransition is returned when resolve is called while no session
// is active. Declaring during an active session is idempotent, not an error.
var ErrInvalidTransition = errors.New("invalid code red transition")

// Replanner re-runs the schedule optimization after a resolution. The
// planner implements it; the indirection keeps this package free of a
// dependency on the solve coordinator.
type Replanner interface {
	// Resolve solves with the postponed cases re-inserted at elevated
	// priority and commits the result as a new schedule version.
	Resolve(ctx context.Context) (*schedule.Schedule, error)
	// CancelInFlight aborts any solve currently running so the emergency
	// path never waits behind an elective optimization.
	CancelInFlight()
}

// RoomLister is the slice of the resource service the reallocator needs.
type RoomLister interface {
	ListActiveRooms(ctx context.Context) ([]*resources.Room, error)
}

// Service is the Code Red state machine. Declare and Resolve are mutually
// exclusive: a single session at a time per hospital instance.
type Service struct {
	sessions SessionRepository
	audit    AuditRepository
	corridor *resources.CorridorManager
	rooms    RoomLister
	waitlist *waitlist.Service
	store    schedule.Store
	outbox   *notification.Outbox
	replan   Replanner

	resolutionBonus int
	logger          zerolog.Logger

	transition chan struct{} // capacity 1, held across declare/resolve
}

func NewService(
	sessions SessionRepository,
	audit AuditRepository,
	corridor *resources.CorridorManager,
	rooms RoomLister,
	wl *waitlist.Service,
	store schedule.Store,
	outbox *notification.Outbox,
	resolutionBonus int,
	logger zerolog.Logger,
) *Service {
	s := &Service{
		sessions:        sessions,
		audit:           audit,
		corridor:        corridor,
		rooms:           rooms,
		waitlist:        wl,
		store:           store,
		outbox:          outbox,
		resolutionBonus: resolutionBonus,
		logger:          logger,
		transition:      make(chan struct{}, 1),
	}
	s.transition <- struct{}{}
	return s
}

// SetReplanner wires the solve coordinator in after construction; the
// planner depends on this service for preemption, so the two are linked at
// startup.
func (s *Service) SetReplanner(r Replanner) { s.replan = r }

func (s *Service) lock()   { <-s.transition }
func (s *Service) unlock() { s.transition <- struct{}{} }

// Declare opens a Code Red session: it cancels any in-flight solve, seizes
// every green-corridor room, postpones the electives displaced by the
// seizure, and postpones further low-risk electives if seized capacity
// cannot cover the estimated patient count. Declaring while a session is
// already open returns that session unchanged.
func (s *Service) Declare(ctx context.Context, details Details) (*Session, error) {
	s.lock()
	defer s.unlock()

	if cur, err := s.sessions.Open(ctx); err != nil {
		return nil, err
	} else if cur != nil {
		s.logger.Info().Str("session_id", cur.ID.String()).Msg("code red already active, declare is a no-op")
		return cur, nil
	}

	now := time.Now().UTC()
	if s.replan != nil {
		s.replan.CancelInFlight()
	}

	s.corridor.NoteEmergencyActivity(now)
	preempted := s.corridor.SeizeAll(now)

	session := &Session{
		ID:         uuid.New(),
		State:      StateActive,
		Details:    details,
		DeclaredAt: now,
	}

	corridorRooms, err := s.corridorRoomIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list corridor rooms: %w", err)
	}
	session.SeizedRoomIDs = corridorRooms

	postponed, err := s.selectPostponements(ctx, preempted, len(corridorRooms), details.PatientCount, now)
	if err != nil {
		return nil, err
	}
	if len(postponed) > 0 {
		if err := s.applyPostponements(ctx, session, postponed, details.Description); err != nil {
			return nil, err
		}
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	s.append(ctx, session.ID, "declared", session.SeizedRoomIDs,
		fmt.Sprintf("%s (%d patients)", details.Description, details.PatientCount))
	if len(session.PostponedSurgeryIDs) > 0 {
		s.append(ctx, session.ID, "postponed", session.PostponedSurgeryIDs, "elective capacity freed for emergency")
	}

	s.logger.Warn().
		Str("session_id", session.ID.String()).
		Int("seized_rooms", len(session.SeizedRoomIDs)).
		Int("postponed", len(session.PostponedSurgeryIDs)).
		Msg("code red declared")
	return session, nil
}

// Resolve closes the active session: postponed cases get their resolution
// bonus, the replanner produces a new schedule version, and the session is
// stamped with a resolution report. Valid only while a session is active.
func (s *Service) Resolve(ctx context.Context) (*Session, error) {
	s.lock()
	cur, err := s.sessions.Open(ctx)
	if err != nil {
		s.unlock()
		return nil, err
	}
	if cur == nil || cur.State != StateActive {
		s.unlock()
		return nil, fmt.Errorf("%w: resolve requires an active session", ErrInvalidTransition)
	}

	cur.State = StateResolving
	if err := s.sessions.Update(ctx, cur); err != nil {
		s.unlock()
		return nil, err
	}
	s.append(ctx, cur.ID, "resolving", nil, "")

	// An elective solve may be running; the resolution re-solve takes
	// priority over it, same as a declaration does.
	if s.replan != nil {
		s.replan.CancelInFlight()
	}

	if len(cur.PostponedEntryIDs) > 0 {
		if err := s.waitlist.ApplyBoost(ctx, cur.PostponedEntryIDs, s.resolutionBonus); err != nil {
			s.unlock()
			return nil, fmt.Errorf("apply resolution bonus: %w", err)
		}
	}
	// The re-solve may take a while; release the transition lock so a new
	// emergency can still be declared (it will see the resolving session).
	s.unlock()

	var newVersion int
	if s.replan != nil {
		sched, err := s.replan.Resolve(ctx)
		if err != nil {
			s.lock()
			cur.State = StateActive
			if uerr := s.sessions.Update(ctx, cur); uerr != nil {
				s.logger.Error().Err(uerr).Str("session_id", cur.ID.String()).Msg("session revert to active failed")
			}
			s.append(ctx, cur.ID, "resolve-failed", nil, err.Error())
			s.unlock()
			return nil, fmt.Errorf("resolution re-solve: %w", err)
		}
		newVersion = sched.Version
	}

	s.lock()
	defer s.unlock()
	now := time.Now().UTC()
	cur.State = StateResolved
	cur.ResolvedAt = &now
	cur.Report = &Report{
		SeizedRooms:        len(cur.SeizedRoomIDs),
		PostponedSurgeries: len(cur.PostponedSurgeryIDs),
		DurationMinutes:    int(now.Sub(cur.DeclaredAt).Minutes()),
		NewScheduleVersion: newVersion,
	}
	if err := s.sessions.Update(ctx, cur); err != nil {
		return nil, err
	}
	s.append(ctx, cur.ID, "resolved", cur.PostponedEntryIDs,
		fmt.Sprintf("schedule version %d committed", newVersion))

	s.logger.Info().
		Str("session_id", cur.ID.String()).
		Int("new_version", newVersion).
		Msg("code red resolved")
	return cur, nil
}

// Active returns the open session, or nil when idle.
func (s *Service) Active(ctx context.Context) (*Session, error) {
	return s.sessions.Open(ctx)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Session, error) {
	return s.sessions.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Session, int, error) {
	return s.sessions.List(ctx, limit, offset)
}

func (s *Service) AuditLog(ctx context.Context, sessionID uuid.UUID) ([]*AuditEntry, error) {
	return s.audit.ListBySession(ctx, sessionID)
}

func (s *Service) corridorRoomIDs(ctx context.Context) ([]uuid.UUID, error) {
	rooms, err := s.rooms.ListActiveRooms(ctx)
	if err != nil {
		return nil, err
	}
	var ids []uuid.UUID
	for _, r := range rooms {
		if r.IsCorridor() {
			ids = append(ids, r.ID)
		}
	}
	return ids, nil
}

// selectPostponements returns the elective surgeries to defer: everything
// displaced from a preempted corridor room, plus, when seized capacity is
// short of the estimated patient count, the lowest-risk postponable cases
// not yet started, ranked ascending by (ASA, wait).
func (s *Service) selectPostponements(ctx context.Context, preemptedRooms []uuid.UUID, corridorCapacity, patientCount int, now time.Time) ([]*schedule.ScheduledSurgery, error) {
	latest, err := s.store.LoadLatest(ctx)
	if errors.Is(err, schedule.ErrNoSchedule) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load schedule: %w", err)
	}

	preempted := make(map[uuid.UUID]bool, len(preemptedRooms))
	for _, id := range preemptedRooms {
		preempted[id] = true
	}

	chosen := map[uuid.UUID]bool{}
	var out []*schedule.ScheduledSurgery
	for _, sg := range latest.Surgeries {
		if sg.Status == schedule.SurgeryScheduled && preempted[sg.RoomID] {
			chosen[sg.ID] = true
			out = append(out, sg)
		}
	}

	shortfall := patientCount - corridorCapacity
	if shortfall <= 0 {
		return out, nil
	}

	type candidate struct {
		surgery *schedule.ScheduledSurgery
		asa     int
		wait    int
	}
	var candidates []candidate
	for _, sg := range latest.Surgeries {
		if sg.Status != schedule.SurgeryScheduled || chosen[sg.ID] {
			continue
		}
		entry, err := s.waitlist.GetEntry(ctx, sg.EntryID)
		if err != nil || !entry.Postponable {
			continue
		}
		candidates = append(candidates, candidate{surgery: sg, asa: entry.ASAScore, wait: entry.WaitDays(now)})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].asa != candidates[j].asa {
			return candidates[i].asa < candidates[j].asa
		}
		return candidates[i].wait < candidates[j].wait
	})
	for _, c := range candidates {
		if shortfall <= 0 {
			break
		}
		out = append(out, c.surgery)
		shortfall--
	}
	return out, nil
}

// applyPostponements commits a new schedule version with the chosen
// surgeries flipped to postponed, requeues their waitlist entries, and
// emits a postponed notification intent per patient.
func (s *Service) applyPostponements(ctx context.Context, session *Session, postponed []*schedule.ScheduledSurgery, reason string) error {
	latest, err := s.store.LoadLatest(ctx)
	if err != nil {
		return fmt.Errorf("load schedule: %w", err)
	}

	flip := make(map[uuid.UUID]bool, len(postponed))
	for _, sg := range postponed {
		flip[sg.ID] = true
		session.PostponedSurgeryIDs = append(session.PostponedSurgeryIDs, sg.ID)
		session.PostponedEntryIDs = append(session.PostponedEntryIDs, sg.EntryID)
	}

	next := &schedule.Schedule{
		Status:     latest.Status,
		Objective:  latest.Objective,
		Violations: latest.Violations,
	}
	for _, sg := range latest.Surgeries {
		clone := *sg
		clone.ID = uuid.Nil // new row in the new version
		if flip[sg.ID] {
			clone.Status = schedule.SurgeryPostponed
		}
		next.Surgeries = append(next.Surgeries, &clone)
	}
	if _, err := s.store.Commit(ctx, next); err != nil {
		return fmt.Errorf("commit postponement schedule: %w", err)
	}

	if err := s.waitlist.MarkPostponed(ctx, session.PostponedEntryIDs); err != nil {
		return fmt.Errorf("requeue postponed entries: %w", err)
	}

	if s.outbox != nil {
		if reason == "" {
			reason = "a declared emergency"
		}
		for _, sg := range postponed {
			_, err := s.outbox.Emit(ctx, notification.KindPostponed, sg.PatientID, sg.ID.String(), map[string]string{
				"surgery_type": sg.SurgeryType,
				"reason":       reason,
			})
			if err != nil {
				// Delivery failures stay in the outbox for retry; they must
				// not abort the emergency path.
				s.logger.Error().Err(err).Str("patient_id", sg.PatientID).Msg("postponement intent dispatch failed")
			}
		}
	}
	return nil
}

func (s *Service) append(ctx context.Context, sessionID uuid.UUID, action string, affected []uuid.UUID, note string) {
	err := s.audit.Append(ctx, &AuditEntry{
		SessionID:   sessionID,
		At:          time.Now().UTC(),
		Action:      action,
		AffectedIDs: affected,
		Note:        note,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("action", action).Msg("audit append failed")
	}
}
