package waitlist

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const entryCols = `id, patient_id, asa_score, surgery_type, specialization, required_equipment,
	predicted_minutes, predicted_lower, predicted_upper, confidence, postponable,
	priority_boost, status, added_at, note, created_at, updated_at`

func scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	err := row.Scan(&e.ID, &e.PatientID, &e.ASAScore, &e.SurgeryType, &e.Specialization,
		&e.RequiredEquipment, &e.PredictedMinutes, &e.PredictedLower, &e.PredictedUpper,
		&e.Confidence, &e.Postponable, &e.PriorityBoost, &e.Status, &e.AddedAt,
		&e.Note, &e.CreatedAt, &e.UpdatedAt)
	return &e, err
}

func (r *repoPG) Create(ctx context.Context, e *Entry) error {
	e.ID = uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO waitlist_entry (id, patient_id, asa_score, surgery_type, specialization,
			required_equipment, predicted_minutes, predicted_lower, predicted_upper,
			confidence, postponable, priority_boost, status, added_at, note)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		e.ID, e.PatientID, e.ASAScore, e.SurgeryType, e.Specialization, e.RequiredEquipment,
		e.PredictedMinutes, e.PredictedLower, e.PredictedUpper, e.Confidence,
		e.Postponable, e.PriorityBoost, e.Status, e.AddedAt, e.Note)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Entry, error) {
	return scanEntry(r.pool.QueryRow(ctx, `SELECT `+entryCols+` FROM waitlist_entry WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, e *Entry) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE waitlist_entry SET asa_score=$2, surgery_type=$3, specialization=$4,
			required_equipment=$5, predicted_minutes=$6, predicted_lower=$7,
			predicted_upper=$8, confidence=$9, postponable=$10, priority_boost=$11,
			status=$12, note=$13, updated_at=NOW()
		WHERE id = $1`,
		e.ID, e.ASAScore, e.SurgeryType, e.Specialization, e.RequiredEquipment,
		e.PredictedMinutes, e.PredictedLower, e.PredictedUpper, e.Confidence,
		e.Postponable, e.PriorityBoost, e.Status, e.Note)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM waitlist_entry WHERE id = $1`, id)
	return err
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Entry, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM waitlist_entry`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+entryCols+` FROM waitlist_entry ORDER BY added_at LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items, err := collect(rows)
	return items, total, err
}

func (r *repoPG) ListByStatus(ctx context.Context, status string, limit, offset int) ([]*Entry, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM waitlist_entry WHERE status = $1`, status).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+entryCols+` FROM waitlist_entry WHERE status = $1 ORDER BY added_at LIMIT $2 OFFSET $3`, status, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items, err := collect(rows)
	return items, total, err
}

func (r *repoPG) ListPending(ctx context.Context) ([]*Entry, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+entryCols+` FROM waitlist_entry WHERE status IN ($1,$2) ORDER BY added_at`, StatusWaiting, StatusPostponed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

func collect(rows pgx.Rows) ([]*Entry, error) {
	var items []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}
