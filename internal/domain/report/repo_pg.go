package report

import (
	"context"

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

// Every record query returns the columns scanned by scanRecord and takes
// $1 from, $2 to (nullable dates) and $3 charge category (nullable).
const recordCols = `e.id, e.patient_id, p.first_name || ' ' || p.last_name`

// Diagnoses carry the paid revenue of their encounter.
const diagnosisSQL = `
	SELECT ` + recordCols + `, to_char(e.encounter_date, 'YYYY-MM-DD'),
		e.type, d.description, 1,
		COALESCE((SELECT SUM(c.unit_price * c.quantity) FROM encounter_charge c
			WHERE c.encounter_id = e.id AND c.paid), 0)
	FROM encounter_diagnosis d
	JOIN encounter e ON e.id = d.encounter_id
	JOIN patient p ON p.id = e.patient_id
	WHERE e.status <> 'cancelled'
		AND ($1::date IS NULL OR e.encounter_date >= $1::date)
		AND ($2::date IS NULL OR e.encounter_date <= $2::date)
		AND $3::text IS NULL
	ORDER BY e.encounter_date, d.created_at`

const medicationSQL = `
	SELECT ` + recordCols + `, to_char(e.encounter_date, 'YYYY-MM-DD'),
		'drug', l.name, l.quantity, l.unit_price * l.quantity
	FROM prescription_line l
	JOIN prescription rx ON rx.id = l.prescription_id
	JOIN encounter e ON e.id = rx.encounter_id
	JOIN patient p ON p.id = e.patient_id
	WHERE e.status <> 'cancelled'
		AND ($1::date IS NULL OR e.encounter_date >= $1::date)
		AND ($2::date IS NULL OR e.encounter_date <= $2::date)
		AND $3::text IS NULL
	ORDER BY e.encounter_date, rx.created_at`

const chargeSQL = `
	SELECT ` + recordCols + `, to_char(e.encounter_date, 'YYYY-MM-DD'),
		c.category, c.name, c.quantity, c.unit_price * c.quantity
	FROM encounter_charge c
	JOIN encounter e ON e.id = c.encounter_id
	JOIN patient p ON p.id = e.patient_id
	WHERE e.status <> 'cancelled'
		AND ($1::date IS NULL OR e.encounter_date >= $1::date)
		AND ($2::date IS NULL OR e.encounter_date <= $2::date)
		AND ($3::text IS NULL OR c.category = $3)
	ORDER BY e.encounter_date, c.created_at`

// source is the query behind a clinical dimension and the charge category
// it is restricted to, if any.
type source struct {
	sql      string
	category string
}

var sources = map[Dimension]source{
	DimDiagnosis:  {sql: diagnosisSQL},
	DimMedication: {sql: medicationSQL},
	DimLab:        {sql: chargeSQL, category: "lab"},
	DimRadiology:  {sql: chargeSQL, category: "radiology"},
	DimDepartment: {sql: chargeSQL},
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func scanRecord(row pgx.Row) (Record, error) {
	var r Record
	err := row.Scan(&r.EncounterID, &r.PatientID, &r.PatientName, &r.Date,
		&r.Department, &r.Name, &r.Quantity, &r.Amount)
	return r, err
}

func (r *repoPG) records(ctx context.Context, sql string, args ...any) ([]Record, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *repoPG) ClinicalRecords(ctx context.Context, d Dimension, q Query) ([]Record, error) {
	src, ok := sources[d]
	if !ok {
		return nil, ErrInvalidDimension.Withf("unknown dimension %q", d)
	}
	return r.records(ctx, src.sql, nullable(q.From), nullable(q.To), nullable(src.category))
}

// PaidCharges dates each line by when it was paid, in the hospital timezone.
func (r *repoPG) PaidCharges(ctx context.Context, q Query) ([]Record, error) {
	return r.records(ctx, `
		SELECT `+recordCols+`, to_char(c.paid_at AT TIME ZONE $4, 'YYYY-MM-DD'),
			c.category, c.name, c.quantity, c.unit_price * c.quantity
		FROM encounter_charge c
		JOIN encounter e ON e.id = c.encounter_id
		JOIN patient p ON p.id = e.patient_id
		WHERE c.paid AND c.category = $3
			AND ($1::date IS NULL OR (c.paid_at AT TIME ZONE $4)::date >= $1::date)
			AND ($2::date IS NULL OR (c.paid_at AT TIME ZONE $4)::date <= $2::date)
		ORDER BY c.paid_at`,
		nullable(q.From), nullable(q.To), q.Category, q.Timezone)
}

func (r *repoPG) Counts(ctx context.Context, day, timezone string) (*Counts, error) {
	conn := db.Conn(ctx, r.pool)
	c := &Counts{ByStatus: make(map[string]int)}

	err := conn.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM patient WHERE deleted_at IS NULL),
			(SELECT COALESCE(SUM(unit_price * quantity), 0) FROM encounter_charge
				WHERE paid AND (paid_at AT TIME ZONE $2)::date = $1::date)`,
		day, timezone,
	).Scan(&c.Patients, &c.RevenueToday)
	if err != nil {
		return nil, err
	}

	rows, err := conn.Query(ctx,
		`SELECT status, COUNT(*) FROM encounter WHERE encounter_date = $1::date GROUP BY status`, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		c.ByStatus[status] = n
		if status != "cancelled" {
			c.EncountersToday += n
		}
	}
	return c, rows.Err()
}
