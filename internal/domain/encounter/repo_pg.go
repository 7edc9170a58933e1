package encounter

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

const encounterCols = `id, patient_id, type, status, to_char(encounter_date, 'YYYY-MM-DD'),
	ward_id, bed_id, clinic, chief_complaint, notes, COALESCE(created_by, ''),
	started_at, ended_at, created_at, updated_at`

const chargeLineCols = `id, encounter_id, charge_id, name, category, quantity, unit_price,
	paid, paid_at, COALESCE(paid_by, ''), COALESCE(created_by, ''), created_at`

func (r *repoPG) LockPatient(ctx context.Context, patientID uuid.UUID) error {
	return db.LockKey(ctx, "encounter:patient:"+patientID.String())
}

func (r *repoPG) Create(ctx context.Context, e *Encounter) error {
	e.ID = uuid.New()
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO encounter (id, patient_id, type, status, encounter_date, ward_id, bed_id,
			clinic, chief_complaint, notes, created_by, started_at)
		VALUES ($1, $2, $3, $4, $5::date, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at`,
		e.ID, e.PatientID, e.Type, e.Status, e.EncounterDate, e.WardID, e.BedID,
		e.Clinic, e.ChiefComplaint, e.Notes, e.CreatedBy, e.StartedAt,
	).Scan(&e.CreatedAt, &e.UpdatedAt)
	if db.IsUniqueViolation(err) {
		return ErrDuplicateToday
	}
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Encounter, error) {
	return r.getOne(ctx, `SELECT `+encounterCols+` FROM encounter WHERE id = $1`, id)
}

func (r *repoPG) GetForUpdate(ctx context.Context, id uuid.UUID) (*Encounter, error) {
	return r.getOne(ctx, `SELECT `+encounterCols+` FROM encounter WHERE id = $1 FOR UPDATE`, id)
}

func (r *repoPG) getOne(ctx context.Context, sql string, id uuid.UUID) (*Encounter, error) {
	e, err := scanEncounter(db.Conn(ctx, r.pool).QueryRow(ctx, sql, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return e, err
}

func (r *repoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status Status, endedAt *time.Time) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE encounter SET status = $2, ended_at = $3, updated_at = NOW() WHERE id = $1`,
		id, status, endedAt)
	if db.IsUniqueViolation(err) {
		// reopening a cancelled encounter on a day that already has another
		return ErrDuplicateToday
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) UpdateDetails(ctx context.Context, e *Encounter) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE encounter SET clinic = $2, chief_complaint = $3, notes = $4, updated_at = NOW()
		WHERE id = $1`, e.ID, e.Clinic, e.ChiefComplaint, e.Notes)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM encounter WHERE id = $1`, id)
	if db.IsForeignKeyViolation(err) {
		return ErrInUse
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Encounter, int, error) {
	var where []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.PatientID != nil {
		add("patient_id = $%d", *f.PatientID)
	}
	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.Type != "" {
		add("type = $%d", f.Type)
	}
	if f.From != "" {
		add("encounter_date >= $%d::date", f.From)
	}
	if f.To != "" {
		add("encounter_date <= $%d::date", f.To)
	}
	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	q := db.Conn(ctx, r.pool)
	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM encounter`+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := q.Query(ctx, fmt.Sprintf(`SELECT %s FROM encounter%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		encounterCols, cond, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*Encounter
	for rows.Next() {
		e, err := scanEncounter(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, e)
	}
	return out, total, rows.Err()
}

func (r *repoPG) ExistsOnDate(ctx context.Context, patientID uuid.UUID, date string) (bool, error) {
	var exists bool
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM encounter
			WHERE patient_id = $1 AND encounter_date = $2::date AND status <> 'cancelled')`,
		patientID, date).Scan(&exists)
	return exists, err
}

func (r *repoPG) OpenInpatient(ctx context.Context, patientID uuid.UUID) (*Encounter, error) {
	e, err := scanEncounter(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+encounterCols+` FROM encounter
		WHERE patient_id = $1 AND type = $2 AND status NOT IN ($3, $4, $5)
		ORDER BY created_at DESC LIMIT 1`,
		patientID, TypeInpatient, StatusDischarged, StatusCompleted, StatusCancelled))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return e, err
}

// -- Charges --

func (r *repoPG) AddCharge(ctx context.Context, c *EncounterCharge) error {
	c.ID = uuid.New()
	return db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO encounter_charge (id, encounter_id, charge_id, name, category, quantity,
			unit_price, paid, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE, $8)
		RETURNING created_at`,
		c.ID, c.EncounterID, c.ChargeID, c.Name, c.Category, c.Quantity, c.UnitPrice, c.CreatedBy,
	).Scan(&c.CreatedAt)
}

func (r *repoPG) GetCharge(ctx context.Context, encounterID, id uuid.UUID) (*EncounterCharge, error) {
	c, err := scanChargeLine(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+chargeLineCols+` FROM encounter_charge WHERE id = $1 AND encounter_id = $2`, id, encounterID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrChargeNotFound
	}
	return c, err
}

func (r *repoPG) RemoveCharge(ctx context.Context, encounterID, id uuid.UUID) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx,
		`DELETE FROM encounter_charge WHERE id = $1 AND encounter_id = $2 AND NOT paid`, id, encounterID)
	if db.IsForeignKeyViolation(err) {
		return ErrChargeLinked
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetCharge(ctx, encounterID, id); err != nil {
			return err
		}
		return ErrChargePaid
	}
	return nil
}

func (r *repoPG) ListCharges(ctx context.Context, encounterID uuid.UUID) ([]*EncounterCharge, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx,
		`SELECT `+chargeLineCols+` FROM encounter_charge WHERE encounter_id = $1 ORDER BY created_at, name`, encounterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*EncounterCharge
	for rows.Next() {
		c, err := scanChargeLine(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *repoPG) MarkPaid(ctx context.Context, encounterID uuid.UUID, by string, at time.Time) (int, error) {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE encounter_charge SET paid = TRUE, paid_at = $2, paid_by = $3
		WHERE encounter_id = $1 AND NOT paid`, encounterID, at, by)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// -- Diagnoses --

func (r *repoPG) AddDiagnosis(ctx context.Context, d *Diagnosis) error {
	d.ID = uuid.New()
	return db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO encounter_diagnosis (id, encounter_id, code, description, is_primary, recorded_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`,
		d.ID, d.EncounterID, d.Code, d.Description, d.IsPrimary, d.RecordedBy,
	).Scan(&d.CreatedAt)
}

func (r *repoPG) ListDiagnoses(ctx context.Context, encounterID uuid.UUID) ([]*Diagnosis, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT id, encounter_id, code, description, is_primary, COALESCE(recorded_by, ''), created_at
		FROM encounter_diagnosis WHERE encounter_id = $1 ORDER BY is_primary DESC, created_at`, encounterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Diagnosis
	for rows.Next() {
		var d Diagnosis
		if err := rows.Scan(&d.ID, &d.EncounterID, &d.Code, &d.Description, &d.IsPrimary, &d.RecordedBy, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}

// -- Status history --

func (r *repoPG) AddStatusChange(ctx context.Context, sc *StatusChange) error {
	sc.ID = uuid.New()
	return db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO encounter_status_history (id, encounter_id, from_status, to_status, changed_by, off_table)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING changed_at`,
		sc.ID, sc.EncounterID, sc.From, sc.To, sc.ChangedBy, sc.OffTable,
	).Scan(&sc.ChangedAt)
}

func (r *repoPG) ListStatusHistory(ctx context.Context, encounterID uuid.UUID) ([]*StatusChange, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT id, encounter_id, from_status, to_status, COALESCE(changed_by, ''), off_table, changed_at
		FROM encounter_status_history WHERE encounter_id = $1 ORDER BY changed_at`, encounterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*StatusChange
	for rows.Next() {
		var sc StatusChange
		if err := rows.Scan(&sc.ID, &sc.EncounterID, &sc.From, &sc.To, &sc.ChangedBy, &sc.OffTable, &sc.ChangedAt); err != nil {
			return nil, err
		}
		out = append(out, &sc)
	}
	return out, rows.Err()
}

func scanEncounter(row pgx.Row) (*Encounter, error) {
	var e Encounter
	err := row.Scan(&e.ID, &e.PatientID, &e.Type, &e.Status, &e.EncounterDate,
		&e.WardID, &e.BedID, &e.Clinic, &e.ChiefComplaint, &e.Notes, &e.CreatedBy,
		&e.StartedAt, &e.EndedAt, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func scanChargeLine(row pgx.Row) (*EncounterCharge, error) {
	var c EncounterCharge
	err := row.Scan(&c.ID, &c.EncounterID, &c.ChargeID, &c.Name, &c.Category, &c.Quantity,
		&c.UnitPrice, &c.Paid, &c.PaidAt, &c.PaidBy, &c.CreatedBy, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
