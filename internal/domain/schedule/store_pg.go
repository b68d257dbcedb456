package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore persists schedule versions in Postgres. Each Commit writes the
// header row plus one row per surgery and per violation inside a single
// transaction.
type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore { return &PGStore{pool: pool} }

const surgeryCols = `id, schedule_version, entry_id, patient_id, surgery_type, room_id, surgeon_id, start_at, end_at, buffer_minutes, status`

func scanSurgery(row pgx.Row) (*ScheduledSurgery, error) {
	var sg ScheduledSurgery
	var version int
	err := row.Scan(&sg.ID, &version, &sg.EntryID, &sg.PatientID, &sg.SurgeryType,
		&sg.RoomID, &sg.SurgeonID, &sg.StartAt, &sg.EndAt, &sg.BufferMinutes, &sg.Status)
	return &sg, err
}

func (s *PGStore) Commit(ctx context.Context, sched *Schedule) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin commit tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if sched.GeneratedAt.IsZero() {
		sched.GeneratedAt = time.Now().UTC()
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO schedule_version (status, objective, generated_at)
		VALUES ($1,$2,$3) RETURNING version`,
		sched.Status, sched.Objective, sched.GeneratedAt).Scan(&sched.Version)
	if err != nil {
		return 0, fmt.Errorf("insert schedule version: %w", err)
	}

	for _, sg := range sched.Surgeries {
		if sg.ID == uuid.Nil {
			sg.ID = uuid.New()
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO scheduled_surgery (`+surgeryCols+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
			sg.ID, sched.Version, sg.EntryID, sg.PatientID, sg.SurgeryType,
			sg.RoomID, sg.SurgeonID, sg.StartAt, sg.EndAt, sg.BufferMinutes, sg.Status)
		if err != nil {
			return 0, fmt.Errorf("insert scheduled surgery: %w", err)
		}
	}

	for _, v := range sched.Violations {
		var entryID *uuid.UUID
		if v.EntryID != uuid.Nil {
			entryID = &v.EntryID
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO schedule_violation (schedule_version, kind, entry_id, patient_id, description, remedy)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			sched.Version, v.Kind, entryID, v.PatientID, v.Description, v.Remedy)
		if err != nil {
			return 0, fmt.Errorf("insert schedule violation: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit schedule version: %w", err)
	}
	return sched.Version, nil
}

func (s *PGStore) LoadLatest(ctx context.Context) (*Schedule, error) {
	// MAX over an empty table yields NULL, not ErrNoRows.
	var version *int
	err := s.pool.QueryRow(ctx, `SELECT MAX(version) FROM schedule_version`).Scan(&version)
	if err != nil {
		return nil, err
	}
	if version == nil {
		return nil, ErrNoSchedule
	}
	return s.LoadVersion(ctx, *version)
}

func (s *PGStore) LoadVersion(ctx context.Context, version int) (*Schedule, error) {
	sched := &Schedule{Version: version}
	err := s.pool.QueryRow(ctx, `
		SELECT status, objective, generated_at FROM schedule_version WHERE version = $1`,
		version).Scan(&sched.Status, &sched.Objective, &sched.GeneratedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("schedule version %d not found", version)
		}
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+surgeryCols+` FROM scheduled_surgery
		WHERE schedule_version = $1 ORDER BY start_at, room_id`, version)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		sg, err := scanSurgery(rows)
		if err != nil {
			return nil, err
		}
		sched.Surgeries = append(sched.Surgeries, sg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	vrows, err := s.pool.Query(ctx, `
		SELECT kind, COALESCE(entry_id, '00000000-0000-0000-0000-000000000000'), patient_id, description, remedy
		FROM schedule_violation WHERE schedule_version = $1`, version)
	if err != nil {
		return nil, err
	}
	defer vrows.Close()
	for vrows.Next() {
		var v Violation
		if err := vrows.Scan(&v.Kind, &v.EntryID, &v.PatientID, &v.Description, &v.Remedy); err != nil {
			return nil, err
		}
		sched.Violations = append(sched.Violations, v)
	}
	return sched, vrows.Err()
}

func (s *PGStore) UpdateSurgeryStatus(ctx context.Context, surgeryID uuid.UUID, status string) error {
	if !IsValidSurgeryStatus(status) {
		return fmt.Errorf("invalid surgery status: %s", status)
	}
	tag, err := s.pool.Exec(ctx, `UPDATE scheduled_surgery SET status = $2 WHERE id = $1`, surgeryID, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("surgery %s not found", surgeryID)
	}
	return nil
}
