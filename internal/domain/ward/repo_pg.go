package ward

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/emr/emr/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const wardCols = `id, name, description, standard_rate, retainership_rate, nhia_rate, kschma_rate, created_at, updated_at`

const bedCols = `id, ward_id, number, occupied, created_at`

func (r *repoPG) CreateWard(ctx context.Context, w *Ward) error {
	w.ID = uuid.New()
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO ward (id, name, description, standard_rate, retainership_rate, nhia_rate, kschma_rate)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`,
		w.ID, w.Name, w.Description, w.Rates.Standard, w.Rates.Retainership, w.Rates.NHIA, w.Rates.KSCHMA,
	).Scan(&w.CreatedAt, &w.UpdatedAt)
	if db.IsUniqueViolation(err) {
		return ErrDuplicateWard
	}
	return err
}

func (r *repoPG) GetWard(ctx context.Context, id uuid.UUID) (*Ward, error) {
	w, err := scanWard(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+wardCols+` FROM ward WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	beds, err := r.beds(ctx, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	w.Beds = beds[id]
	return w, nil
}

func (r *repoPG) UpdateWard(ctx context.Context, w *Ward) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE ward SET name=$2, description=$3, standard_rate=$4, retainership_rate=$5,
			nhia_rate=$6, kschma_rate=$7, updated_at=NOW()
		WHERE id = $1`,
		w.ID, w.Name, w.Description, w.Rates.Standard, w.Rates.Retainership, w.Rates.NHIA, w.Rates.KSCHMA)
	if db.IsUniqueViolation(err) {
		return ErrDuplicateWard
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) DeleteWard(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		DELETE FROM ward WHERE id = $1
		AND NOT EXISTS (SELECT 1 FROM bed WHERE ward_id = $1 AND occupied)`, id)
	if db.IsForeignKeyViolation(err) {
		return ErrWardInUse
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetWard(ctx, id); err != nil {
			return err
		}
		return ErrWardOccupied
	}
	return nil
}

func (r *repoPG) ListWards(ctx context.Context) ([]*Ward, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `SELECT `+wardCols+` FROM ward ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var wards []*Ward
	var ids []uuid.UUID
	for rows.Next() {
		w, err := scanWard(rows)
		if err != nil {
			return nil, err
		}
		wards = append(wards, w)
		ids = append(ids, w.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	beds, err := r.beds(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, w := range wards {
		w.Beds = beds[w.ID]
	}
	return wards, nil
}

func (r *repoPG) beds(ctx context.Context, wardIDs []uuid.UUID) (map[uuid.UUID][]*Bed, error) {
	out := make(map[uuid.UUID][]*Bed, len(wardIDs))
	if len(wardIDs) == 0 {
		return out, nil
	}
	rows, err := db.Conn(ctx, r.pool).Query(ctx,
		`SELECT `+bedCols+` FROM bed WHERE ward_id = ANY($1) ORDER BY ward_id, length(number), number`, wardIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		b, err := scanBed(rows)
		if err != nil {
			return nil, err
		}
		out[b.WardID] = append(out[b.WardID], b)
	}
	return out, rows.Err()
}

func (r *repoPG) AddBed(ctx context.Context, b *Bed) error {
	b.ID = uuid.New()
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO bed (id, ward_id, number, occupied) VALUES ($1, $2, $3, FALSE)
		RETURNING created_at`, b.ID, b.WardID, b.Number,
	).Scan(&b.CreatedAt)
	if db.IsUniqueViolation(err) {
		return ErrDuplicateBed
	}
	if db.IsForeignKeyViolation(err) {
		return ErrNotFound
	}
	return err
}

func (r *repoPG) GetBed(ctx context.Context, id uuid.UUID) (*Bed, error) {
	b, err := scanBed(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+bedCols+` FROM bed WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrBedNotFound
	}
	return b, err
}

func (r *repoPG) RemoveBed(ctx context.Context, wardID, bedID uuid.UUID) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx,
		`DELETE FROM bed WHERE id = $1 AND ward_id = $2 AND NOT occupied`, bedID, wardID)
	if db.IsForeignKeyViolation(err) {
		return ErrBedInUse
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return r.bedConflict(ctx, wardID, bedID)
	}
	return nil
}

func (r *repoPG) Occupy(ctx context.Context, wardID, bedID uuid.UUID) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE bed SET occupied = TRUE WHERE id = $1 AND ward_id = $2 AND NOT occupied`, bedID, wardID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return r.bedConflict(ctx, wardID, bedID)
	}
	return nil
}

// bedConflict explains why a conditional bed update matched no row.
func (r *repoPG) bedConflict(ctx context.Context, wardID, bedID uuid.UUID) error {
	b, err := r.GetBed(ctx, bedID)
	if err != nil {
		return err
	}
	if b.WardID != wardID {
		return ErrBedNotInWard
	}
	if b.Occupied {
		return ErrBedOccupied.Withf("bed %s is occupied", b.Number)
	}
	return ErrBedNotFound
}

func (r *repoPG) Release(ctx context.Context, bedID uuid.UUID) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `UPDATE bed SET occupied = FALSE WHERE id = $1`, bedID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrBedNotFound
	}
	return nil
}

func (r *repoPG) Occupancy(ctx context.Context) ([]Occupancy, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT w.id, w.name, COUNT(b.id), COUNT(b.id) FILTER (WHERE b.occupied)
		FROM ward w LEFT JOIN bed b ON b.ward_id = w.id
		GROUP BY w.id, w.name
		ORDER BY w.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Occupancy
	for rows.Next() {
		var o Occupancy
		if err := rows.Scan(&o.WardID, &o.WardName, &o.TotalBeds, &o.Occupied); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func scanWard(row pgx.Row) (*Ward, error) {
	var w Ward
	err := row.Scan(&w.ID, &w.Name, &w.Description,
		&w.Rates.Standard, &w.Rates.Retainership, &w.Rates.NHIA, &w.Rates.KSCHMA,
		&w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func scanBed(row pgx.Row) (*Bed, error) {
	var b Bed
	if err := row.Scan(&b.ID, &b.WardID, &b.Number, &b.Occupied, &b.CreatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}
