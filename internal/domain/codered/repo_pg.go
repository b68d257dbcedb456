package codered

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type sessionRepoPG struct{ pool *pgxpool.Pool }

func NewSessionRepoPG(pool *pgxpool.Pool) SessionRepository { return &sessionRepoPG{pool: pool} }

const sessionCols = `id, state, description, patient_count, source, seized_room_ids,
	postponed_surgery_ids, postponed_entry_ids, declared_at, resolved_at,
	report_postponed, report_duration_minutes, report_schedule_version`

func scanSession(row pgx.Row) (*Session, error) {
	var s Session
	var reportPostponed, reportDuration, reportVersion *int
	err := row.Scan(&s.ID, &s.State, &s.Details.Description, &s.Details.PatientCount, &s.Details.Source,
		&s.SeizedRoomIDs, &s.PostponedSurgeryIDs, &s.PostponedEntryIDs, &s.DeclaredAt, &s.ResolvedAt,
		&reportPostponed, &reportDuration, &reportVersion)
	if err != nil {
		return nil, err
	}
	if reportPostponed != nil {
		s.Report = &Report{
			SeizedRooms:        len(s.SeizedRoomIDs),
			PostponedSurgeries: *reportPostponed,
			DurationMinutes:    *reportDuration,
			NewScheduleVersion: *reportVersion,
		}
	}
	return &s, nil
}

func (r *sessionRepoPG) Create(ctx context.Context, s *Session) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO code_red_session
			(id, state, description, patient_count, source, seized_room_ids,
			 postponed_surgery_ids, postponed_entry_ids, declared_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		s.ID, s.State, s.Details.Description, s.Details.PatientCount, s.Details.Source,
		s.SeizedRoomIDs, s.PostponedSurgeryIDs, s.PostponedEntryIDs, s.DeclaredAt)
	return err
}

func (r *sessionRepoPG) Update(ctx context.Context, s *Session) error {
	var reportPostponed, reportDuration, reportVersion *int
	if s.Report != nil {
		reportPostponed = &s.Report.PostponedSurgeries
		reportDuration = &s.Report.DurationMinutes
		reportVersion = &s.Report.NewScheduleVersion
	}
	_, err := r.pool.Exec(ctx, `
		UPDATE code_red_session SET state=$2, seized_room_ids=$3, postponed_surgery_ids=$4,
			postponed_entry_ids=$5, resolved_at=$6,
			report_postponed=$7, report_duration_minutes=$8, report_schedule_version=$9
		WHERE id = $1`,
		s.ID, s.State, s.SeizedRoomIDs, s.PostponedSurgeryIDs, s.PostponedEntryIDs, s.ResolvedAt,
		reportPostponed, reportDuration, reportVersion)
	return err
}

func (r *sessionRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Session, error) {
	return scanSession(r.pool.QueryRow(ctx, `SELECT `+sessionCols+` FROM code_red_session WHERE id = $1`, id))
}

func (r *sessionRepoPG) Open(ctx context.Context) (*Session, error) {
	s, err := scanSession(r.pool.QueryRow(ctx, `
		SELECT `+sessionCols+` FROM code_red_session
		WHERE state IN ('active', 'resolving')
		ORDER BY declared_at DESC LIMIT 1`))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return s, err
}

func (r *sessionRepoPG) List(ctx context.Context, limit, offset int) ([]*Session, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM code_red_session`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+sessionCols+` FROM code_red_session
		ORDER BY declared_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, s)
	}
	return items, total, rows.Err()
}

type auditRepoPG struct{ pool *pgxpool.Pool }

func NewAuditRepoPG(pool *pgxpool.Pool) AuditRepository { return &auditRepoPG{pool: pool} }

func (r *auditRepoPG) Append(ctx context.Context, e *AuditEntry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO code_red_audit (id, session_id, at, action, affected_ids, note)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		e.ID, e.SessionID, e.At, e.Action, e.AffectedIDs, e.Note)
	return err
}

func (r *auditRepoPG) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*AuditEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, session_id, at, action, affected_ids, note
		FROM code_red_audit WHERE session_id = $1 ORDER BY at`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*AuditEntry
	for rows.Next() {
		var e AuditEntry
		if err := rows.Scan(&e.ID, &e.SessionID, &e.At, &e.Action, &e.AffectedIDs, &e.Note); err != nil {
			return nil, err
		}
		items = append(items, &e)
	}
	return items, rows.Err()
}
