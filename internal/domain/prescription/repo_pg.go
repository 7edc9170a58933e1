package prescription

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

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

const prescriptionCols = `id, encounter_id, patient_id, encounter_charge_id, status, notes,
	COALESCE(prescribed_by, ''), dispensed_by, dispensed_at, created_at`

func (r *repoPG) Create(ctx context.Context, p *Prescription) error {
	p.ID = uuid.New()
	q := db.Conn(ctx, r.pool)
	err := q.QueryRow(ctx, `
		INSERT INTO prescription (id, encounter_id, patient_id, encounter_charge_id, status, notes, prescribed_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`,
		p.ID, p.EncounterID, p.PatientID, p.EncounterChargeID, p.Status, p.Notes, p.PrescribedBy,
	).Scan(&p.CreatedAt)
	if err != nil {
		return err
	}

	for i, l := range p.Lines {
		l.ID = uuid.New()
		l.PrescriptionID = p.ID
		l.Position = i + 1
		if _, err := q.Exec(ctx, `
			INSERT INTO prescription_line (id, prescription_id, position, name, dosage, frequency,
				duration, quantity, unit_price)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			l.ID, l.PrescriptionID, l.Position, l.Name, l.Dosage, l.Frequency, l.Duration, l.Quantity, l.UnitPrice,
		); err != nil {
			return fmt.Errorf("insert line %d: %w", l.Position, err)
		}
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	return r.get(ctx, `SELECT `+prescriptionCols+` FROM prescription WHERE id = $1`, id)
}

func (r *repoPG) GetForUpdate(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	return r.get(ctx, `SELECT `+prescriptionCols+` FROM prescription WHERE id = $1 FOR UPDATE`, id)
}

func (r *repoPG) get(ctx context.Context, sql string, id uuid.UUID) (*Prescription, error) {
	p, err := scanPrescription(db.Conn(ctx, r.pool).QueryRow(ctx, sql, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if p.Lines, err = r.lines(ctx, p.ID); err != nil {
		return nil, err
	}
	p.Total = total(p.Lines)
	return p, nil
}

func (r *repoPG) lines(ctx context.Context, prescriptionID uuid.UUID) ([]*Line, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT id, prescription_id, position, name, dosage, frequency, duration, quantity, unit_price
		FROM prescription_line WHERE prescription_id = $1 ORDER BY position`, prescriptionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*Line{}
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ID, &l.PrescriptionID, &l.Position, &l.Name, &l.Dosage, &l.Frequency,
			&l.Duration, &l.Quantity, &l.UnitPrice); err != nil {
			return nil, err
		}
		out = append(out, &l)
	}
	return out, rows.Err()
}

func (r *repoPG) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Prescription, int, error) {
	var where []string
	var args []any
	if f.EncounterID != nil {
		args = append(args, *f.EncounterID)
		where = append(where, fmt.Sprintf("encounter_id = $%d", len(args)))
	}
	if f.PatientID != nil {
		args = append(args, *f.PatientID)
		where = append(where, fmt.Sprintf("patient_id = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	q := db.Conn(ctx, r.pool)
	var count int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM prescription`+cond, args...).Scan(&count); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := q.Query(ctx, fmt.Sprintf(`SELECT %s FROM prescription%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		prescriptionCols, cond, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	var out []*Prescription
	for rows.Next() {
		p, err := scanPrescription(rows)
		if err != nil {
			rows.Close()
			return nil, 0, err
		}
		out = append(out, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	for _, p := range out {
		if p.Lines, err = r.lines(ctx, p.ID); err != nil {
			return nil, 0, err
		}
		p.Total = total(p.Lines)
	}
	return out, count, nil
}

func (r *repoPG) MarkDispensed(ctx context.Context, id uuid.UUID, by string, at time.Time) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE prescription SET status = 'dispensed', dispensed_by = $2, dispensed_at = $3
		WHERE id = $1 AND status = 'pending'`, id, by, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyDispensed
	}
	return nil
}

func (r *repoPG) AddDispenseLines(ctx context.Context, lines []*DispenseLine) error {
	q := db.Conn(ctx, r.pool)
	for _, l := range lines {
		l.ID = uuid.New()
		if _, err := q.Exec(ctx, `
			INSERT INTO dispense_line (id, prescription_id, inventory_item_id, pharmacy_id, name,
				quantity, unit_price, unit_cost, dispensed_by, dispensed_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			l.ID, l.PrescriptionID, l.InventoryItemID, l.PharmacyID, l.Name,
			l.Quantity, l.UnitPrice, l.UnitCost, l.DispensedBy, l.DispensedAt,
		); err != nil {
			return err
		}
	}
	return nil
}

func (r *repoPG) ListDispenseLines(ctx context.Context, prescriptionID uuid.UUID) ([]*DispenseLine, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT id, prescription_id, inventory_item_id, pharmacy_id, name, quantity, unit_price,
			unit_cost, COALESCE(dispensed_by, ''), dispensed_at
		FROM dispense_line WHERE prescription_id = $1 ORDER BY dispensed_at, name`, prescriptionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*DispenseLine
	for rows.Next() {
		var l DispenseLine
		if err := rows.Scan(&l.ID, &l.PrescriptionID, &l.InventoryItemID, &l.PharmacyID, &l.Name,
			&l.Quantity, &l.UnitPrice, &l.UnitCost, &l.DispensedBy, &l.DispensedAt); err != nil {
			return nil, err
		}
		out = append(out, &l)
	}
	return out, rows.Err()
}

func scanPrescription(row pgx.Row) (*Prescription, error) {
	var p Prescription
	err := row.Scan(&p.ID, &p.EncounterID, &p.PatientID, &p.EncounterChargeID, &p.Status, &p.Notes,
		&p.PrescribedBy, &p.DispensedBy, &p.DispensedAt, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
