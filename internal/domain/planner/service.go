// Package planner coordinates a solve: it snapshots the ranked waitlist and
// the resource pool, builds the constraint instance, runs the engine within
// the configured budget, and commits the result as a new schedule version.
package planner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/orsched/orsched/internal/domain/resources"
	"github.com/orsched/orsched/internal/domain/schedule"
	"github.com/orsched/orsched/internal/domain/waitlist"
	"github.com/orsched/orsched/internal/platform/estimator"
	"github.com/orsched/orsched/internal/platform/notification"
	"github.com/orsched/orsched/internal/solver"
)

// ErrSolveInProgress rejects a second solve against the same schedule
// lineage while one is running. Reads of the committed schedule stay
// available throughout.
var ErrSolveInProgress = errors.New("solve in progress")

// ErrSolvePreempted reports an in-flight solve cancelled by a Code Red
// declaration; its partial result is discarded.
var ErrSolvePreempted = errors.New("solve preempted")

// Options carry the planning parameters, validated upstream by the config
// layer.
type Options struct {
	HorizonDays    int
	BufferMinutes  int
	UrgentWaitDays int
	SolveBudget    time.Duration
}

// Service is the solve coordinator. It also implements the reallocator's
// Replanner contract: Resolve is a plain re-solve and CancelInFlight aborts
// the running search.
type Service struct {
	waitlist  *waitlist.Service
	resources *resources.Service
	corridor  *resources.CorridorManager
	est       estimator.Estimator
	store     schedule.Store
	outbox    *notification.Outbox
	opts      Options
	logger    zerolog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	preempt bool
}

func NewService(
	wl *waitlist.Service,
	res *resources.Service,
	corridor *resources.CorridorManager,
	est estimator.Estimator,
	store schedule.Store,
	outbox *notification.Outbox,
	opts Options,
	logger zerolog.Logger,
) *Service {
	return &Service{
		waitlist:  wl,
		resources: res,
		corridor:  corridor,
		est:       est,
		store:     store,
		outbox:    outbox,
		opts:      opts,
		logger:    logger,
	}
}

// Solve runs one full optimization and commits the resulting schedule
// version. Only one solve may run at a time; a concurrent request is
// rejected with ErrSolveInProgress.
func (s *Service) Solve(ctx context.Context) (*schedule.Schedule, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, ErrSolveInProgress
	}
	solveCtx, cancel := context.WithCancel(ctx)
	s.running = true
	s.cancel = cancel
	s.preempt = false
	s.mu.Unlock()

	defer func() {
		cancel()
		s.mu.Lock()
		s.running = false
		s.cancel = nil
		s.mu.Unlock()
	}()

	now := time.Now().UTC()
	s.sweepCorridor(ctx, now)

	inst, err := s.buildInstance(solveCtx, now)
	if err != nil {
		return nil, err
	}

	res := solver.Solve(solveCtx, inst, s.opts.SolveBudget)
	s.mu.Lock()
	preempted := s.preempt
	s.mu.Unlock()
	if preempted {
		s.logger.Warn().Msg("solve preempted by code red, partial result discarded")
		return nil, ErrSolvePreempted
	}

	sched := s.toSchedule(res, now)
	prev, err := s.store.LoadLatest(ctx)
	if err != nil && !errors.Is(err, schedule.ErrNoSchedule) {
		return nil, fmt.Errorf("load previous schedule: %w", err)
	}

	if _, err := s.store.Commit(ctx, sched); err != nil {
		return nil, fmt.Errorf("commit schedule: %w", err)
	}

	var scheduledIDs []uuid.UUID
	for _, p := range res.Placements {
		scheduledIDs = append(scheduledIDs, p.Case.EntryID)
	}
	if err := s.waitlist.MarkScheduled(ctx, scheduledIDs); err != nil {
		return nil, fmt.Errorf("mark entries scheduled: %w", err)
	}

	s.emitIntents(ctx, sched, prev)

	s.logger.Info().
		Int("version", sched.Version).
		Str("status", sched.Status).
		Int64("objective", sched.Objective).
		Int("scheduled", len(sched.Surgeries)).
		Int("violations", len(sched.Violations)).
		Int64("nodes", res.Nodes).
		Msg("schedule committed")
	return sched, nil
}

// Resolve satisfies the reallocator's Replanner contract: a resolution is a
// plain re-solve, the elevated priorities having been applied to the
// postponed entries beforehand.
func (s *Service) Resolve(ctx context.Context) (*schedule.Schedule, error) {
	return s.Solve(ctx)
}

// CancelInFlight aborts the running solve, if any. The cancelled solve
// returns ErrSolvePreempted and commits nothing.
func (s *Service) CancelInFlight() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running && s.cancel != nil {
		s.preempt = true
		s.cancel()
	}
}

// Latest returns the last committed schedule.
func (s *Service) Latest(ctx context.Context) (*schedule.Schedule, error) {
	return s.store.LoadLatest(ctx)
}

// Version returns one committed schedule version.
func (s *Service) Version(ctx context.Context, v int) (*schedule.Schedule, error) {
	return s.store.LoadVersion(ctx, v)
}

// Violations returns the violation report of the latest committed schedule.
func (s *Service) Violations(ctx context.Context) ([]schedule.Violation, error) {
	latest, err := s.store.LoadLatest(ctx)
	if err != nil {
		return nil, err
	}
	return latest.Violations, nil
}

// MarkSurgeryStatus advances the operational status of a committed surgery.
func (s *Service) MarkSurgeryStatus(ctx context.Context, surgeryID uuid.UUID, status string) error {
	return s.store.UpdateSurgeryStatus(ctx, surgeryID, status)
}

// sweepCorridor releases corridor rooms past the quiet window and raises
// the advisory floor alert.
func (s *Service) sweepCorridor(ctx context.Context, now time.Time) {
	s.corridor.SweepReleases(now)

	rooms, err := s.resources.ListActiveRooms(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("corridor sweep: list rooms")
		return
	}
	free := 0
	for _, r := range rooms {
		if r.IsCorridor() && s.corridor.State(r.ID) == resources.CorridorReserved {
			free++
		}
	}
	s.corridor.CheckFloor(free, len(rooms))
}

func (s *Service) buildInstance(ctx context.Context, now time.Time) (*solver.Instance, error) {
	entries, err := s.waitlist.Ranked(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("rank waitlist: %w", err)
	}
	rooms, err := s.resources.ListActiveRooms(ctx)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	surgeons, err := s.resources.ListActiveSurgeons(ctx)
	if err != nil {
		return nil, fmt.Errorf("list surgeons: %w", err)
	}

	var cases []*solver.Case
	for _, e := range entries {
		c := &solver.Case{
			EntryID:           e.ID,
			PatientID:         e.PatientID.String(),
			SurgeryType:       e.SurgeryType,
			Specialization:    e.Specialization,
			RequiredEquipment: e.RequiredEquipment,
			ASA:               e.EffectiveASA(),
			WaitDays:          e.WaitDays(now),
		}
		if e.PredictedMinutes != nil {
			c.Minutes = *e.PredictedMinutes
		}
		cases = append(cases, c)
	}

	var solverRooms []*solver.Room
	for _, r := range rooms {
		solverRooms = append(solverRooms, &solver.Room{
			ID:         r.ID,
			Equipment:  r.Equipment,
			OpenMinute: r.OpenHour * 60,
			CloseMin:   r.CloseHour * 60,
			Corridor:   r.IsCorridor(),
			Released:   s.corridor.State(r.ID) == resources.CorridorReleased,
		})
	}
	var solverSurgeons []*solver.Surgeon
	for _, sg := range surgeons {
		solverSurgeons = append(solverSurgeons, &solver.Surgeon{
			ID:              sg.ID,
			Specializations: sg.Specializations,
			StartMinute:     sg.StartHour * 60,
			EndMinute:       sg.EndHour * 60,
		})
	}

	return solver.Build(ctx, cases, solverRooms, solverSurgeons, s.est, solver.Options{
		HorizonDays:    s.opts.HorizonDays,
		BufferMinutes:  s.opts.BufferMinutes,
		UrgentWaitDays: s.opts.UrgentWaitDays,
	})
}

// toSchedule converts solver placements into concrete timestamps. Planning
// day 0 is today.
func (s *Service) toSchedule(res *solver.Result, now time.Time) *schedule.Schedule {
	day0 := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	sched := &schedule.Schedule{
		Status:      res.Status,
		Objective:   res.Objective,
		GeneratedAt: now,
		Violations:  res.Violations,
	}
	for _, p := range res.Placements {
		day := day0.AddDate(0, 0, p.Day)
		sched.Surgeries = append(sched.Surgeries, &schedule.ScheduledSurgery{
			EntryID:       p.Case.EntryID,
			PatientID:     p.Case.PatientID,
			SurgeryType:   p.Case.SurgeryType,
			RoomID:        p.RoomID,
			SurgeonID:     p.SurgeonID,
			StartAt:       day.Add(time.Duration(p.StartMinute) * time.Minute),
			EndAt:         day.Add(time.Duration(p.EndMinute) * time.Minute),
			BufferMinutes: s.opts.BufferMinutes,
			Status:        schedule.SurgeryScheduled,
		})
	}
	return sched
}

// emitIntents notifies each placed patient: changed when their slot moved
// relative to the previous version, confirmed otherwise.
func (s *Service) emitIntents(ctx context.Context, sched *schedule.Schedule, prev *schedule.Schedule) {
	if s.outbox == nil {
		return
	}
	for _, sg := range sched.Surgeries {
		kind := notification.KindConfirmed
		if prev != nil {
			if old := prev.SurgeryForEntry(sg.EntryID); old != nil &&
				(!old.StartAt.Equal(sg.StartAt) || old.RoomID != sg.RoomID) {
				kind = notification.KindChanged
			}
		}
		_, err := s.outbox.Emit(ctx, kind, sg.PatientID, sg.ID.String(), map[string]string{
			"surgery_type": sg.SurgeryType,
			"date":         sg.StartAt.Format("2006-01-02"),
			"time":         sg.StartAt.Format("15:04"),
			"room":         sg.RoomID.String(),
		})
		if err != nil {
			s.logger.Error().Err(err).Str("patient_id", sg.PatientID).Msg("schedule intent dispatch failed")
		}
	}
}
