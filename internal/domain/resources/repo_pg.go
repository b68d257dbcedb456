package resources

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// =========== Room Repository ===========

type roomRepoPG struct{ pool *pgxpool.Pool }

func NewRoomRepoPG(pool *pgxpool.Pool) RoomRepository { return &roomRepoPG{pool: pool} }

const roomCols = `id, name, kind, equipment, open_hour, close_hour, is_active, note, created_at, updated_at`

func scanRoom(row pgx.Row) (*Room, error) {
	var r Room
	err := row.Scan(&r.ID, &r.Name, &r.Kind, &r.Equipment, &r.OpenHour, &r.CloseHour,
		&r.IsActive, &r.Note, &r.CreatedAt, &r.UpdatedAt)
	return &r, err
}

func (r *roomRepoPG) Create(ctx context.Context, o *Room) error {
	o.ID = uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO or_room (id, name, kind, equipment, open_hour, close_hour, is_active, note)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		o.ID, o.Name, o.Kind, o.Equipment, o.OpenHour, o.CloseHour, o.IsActive, o.Note)
	return err
}

func (r *roomRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Room, error) {
	return scanRoom(r.pool.QueryRow(ctx, `SELECT `+roomCols+` FROM or_room WHERE id = $1`, id))
}

func (r *roomRepoPG) Update(ctx context.Context, o *Room) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE or_room SET name=$2, kind=$3, equipment=$4, open_hour=$5, close_hour=$6,
			is_active=$7, note=$8, updated_at=NOW()
		WHERE id = $1`,
		o.ID, o.Name, o.Kind, o.Equipment, o.OpenHour, o.CloseHour, o.IsActive, o.Note)
	return err
}

func (r *roomRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM or_room WHERE id = $1`, id)
	return err
}

func (r *roomRepoPG) List(ctx context.Context, limit, offset int) ([]*Room, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM or_room`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+roomCols+` FROM or_room ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Room
	for rows.Next() {
		o, err := scanRoom(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, o)
	}
	return items, total, rows.Err()
}

func (r *roomRepoPG) ListActive(ctx context.Context) ([]*Room, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+roomCols+` FROM or_room WHERE is_active ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Room
	for rows.Next() {
		o, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, o)
	}
	return items, rows.Err()
}

// =========== Surgeon Repository ===========

type surgeonRepoPG struct{ pool *pgxpool.Pool }

func NewSurgeonRepoPG(pool *pgxpool.Pool) SurgeonRepository { return &surgeonRepoPG{pool: pool} }

const surgeonCols = `id, name, specializations, start_hour, end_hour, is_active, created_at, updated_at`

func scanSurgeon(row pgx.Row) (*Surgeon, error) {
	var s Surgeon
	err := row.Scan(&s.ID, &s.Name, &s.Specializations, &s.StartHour, &s.EndHour,
		&s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	return &s, err
}

func (r *surgeonRepoPG) Create(ctx context.Context, s *Surgeon) error {
	s.ID = uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO surgeon (id, name, specializations, start_hour, end_hour, is_active)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		s.ID, s.Name, s.Specializations, s.StartHour, s.EndHour, s.IsActive)
	return err
}

func (r *surgeonRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Surgeon, error) {
	return scanSurgeon(r.pool.QueryRow(ctx, `SELECT `+surgeonCols+` FROM surgeon WHERE id = $1`, id))
}

func (r *surgeonRepoPG) Update(ctx context.Context, s *Surgeon) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE surgeon SET name=$2, specializations=$3, start_hour=$4, end_hour=$5,
			is_active=$6, updated_at=NOW()
		WHERE id = $1`,
		s.ID, s.Name, s.Specializations, s.StartHour, s.EndHour, s.IsActive)
	return err
}

func (r *surgeonRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM surgeon WHERE id = $1`, id)
	return err
}

func (r *surgeonRepoPG) List(ctx context.Context, limit, offset int) ([]*Surgeon, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM surgeon`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+surgeonCols+` FROM surgeon ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Surgeon
	for rows.Next() {
		s, err := scanSurgeon(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, s)
	}
	return items, total, rows.Err()
}

func (r *surgeonRepoPG) ListActive(ctx context.Context) ([]*Surgeon, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+surgeonCols+` FROM surgeon WHERE is_active ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Surgeon
	for rows.Next() {
		s, err := scanSurgeon(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

// =========== Equipment Repository ===========

type equipmentRepoPG struct{ pool *pgxpool.Pool }

func NewEquipmentRepoPG(pool *pgxpool.Pool) EquipmentRepository { return &equipmentRepoPG{pool: pool} }

const equipmentCols = `id, kind, count, created_at, updated_at`

func scanEquipment(row pgx.Row) (*Equipment, error) {
	var e Equipment
	err := row.Scan(&e.ID, &e.Kind, &e.Count, &e.CreatedAt, &e.UpdatedAt)
	return &e, err
}

func (r *equipmentRepoPG) Create(ctx context.Context, e *Equipment) error {
	e.ID = uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO equipment (id, kind, count) VALUES ($1,$2,$3)`,
		e.ID, e.Kind, e.Count)
	return err
}

func (r *equipmentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Equipment, error) {
	return scanEquipment(r.pool.QueryRow(ctx, `SELECT `+equipmentCols+` FROM equipment WHERE id = $1`, id))
}

func (r *equipmentRepoPG) Update(ctx context.Context, e *Equipment) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE equipment SET kind=$2, count=$3, updated_at=NOW() WHERE id = $1`,
		e.ID, e.Kind, e.Count)
	return err
}

func (r *equipmentRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM equipment WHERE id = $1`, id)
	return err
}

func (r *equipmentRepoPG) List(ctx context.Context, limit, offset int) ([]*Equipment, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM equipment`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+equipmentCols+` FROM equipment ORDER BY kind LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Equipment
	for rows.Next() {
		e, err := scanEquipment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, e)
	}
	return items, total, rows.Err()
}
