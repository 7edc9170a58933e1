package patient

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/emr/emr/internal/platform/db"
)

// -- Patient Repository --

type patientRepoPG struct {
	pool *pgxpool.Pool
}

func NewPatientRepo(pool *pgxpool.Pool) PatientRepository {
	return &patientRepoPG{pool: pool}
}

const patientCols = `id, mrn, first_name, last_name, other_names, age,
	to_char(date_of_birth, 'YYYY-MM-DD'), gender, phone, email, address,
	next_of_kin_name, next_of_kin_phone, provider_tier, hmo_id, insurance_number,
	created_at, updated_at`

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	q := db.Conn(ctx, r.pool)

	var seq int64
	if err := q.QueryRow(ctx, `SELECT nextval('patient_mrn_seq')`).Scan(&seq); err != nil {
		return fmt.Errorf("next mrn: %w", err)
	}
	p.ID = uuid.New()
	p.MRN = FormatMRN(seq)

	return q.QueryRow(ctx, `
		INSERT INTO patient (id, mrn, first_name, last_name, other_names, age, date_of_birth,
			gender, phone, email, address, next_of_kin_name, next_of_kin_phone,
			provider_tier, hmo_id, insurance_number)
		VALUES ($1, $2, $3, $4, $5, $6, $7::date, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING created_at, updated_at`,
		p.ID, p.MRN, p.FirstName, p.LastName, p.OtherNames, p.Age, p.DateOfBirth,
		p.Gender, p.Phone, p.Email, p.Address, p.NextOfKinName, p.NextOfKinPhone,
		p.ProviderTier, p.HMOID, p.InsuranceNumber,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (r *patientRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return r.getOne(ctx, `SELECT `+patientCols+` FROM patient WHERE id = $1 AND deleted_at IS NULL`, id)
}

func (r *patientRepoPG) GetByMRN(ctx context.Context, mrn string) (*Patient, error) {
	return r.getOne(ctx, `SELECT `+patientCols+` FROM patient WHERE mrn = $1 AND deleted_at IS NULL`, mrn)
}

func (r *patientRepoPG) getOne(ctx context.Context, sql string, arg any) (*Patient, error) {
	p, err := scanPatient(db.Conn(ctx, r.pool).QueryRow(ctx, sql, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

func (r *patientRepoPG) Update(ctx context.Context, p *Patient) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE patient SET first_name=$2, last_name=$3, other_names=$4, age=$5,
			date_of_birth=$6::date, gender=$7, phone=$8, email=$9, address=$10,
			next_of_kin_name=$11, next_of_kin_phone=$12, provider_tier=$13, hmo_id=$14,
			insurance_number=$15, updated_at=NOW()
		WHERE id = $1 AND deleted_at IS NULL`,
		p.ID, p.FirstName, p.LastName, p.OtherNames, p.Age, p.DateOfBirth, p.Gender,
		p.Phone, p.Email, p.Address, p.NextOfKinName, p.NextOfKinPhone,
		p.ProviderTier, p.HMOID, p.InsuranceNumber,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *patientRepoPG) SoftDelete(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE patient SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *patientRepoPG) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Patient, int, error) {
	where := []string{"deleted_at IS NULL"}
	var args []any
	if q := strings.TrimSpace(f.Query); q != "" {
		args = append(args, "%"+q+"%")
		n := len(args)
		where = append(where, fmt.Sprintf(
			"(first_name ILIKE $%d OR last_name ILIKE $%d OR other_names ILIKE $%d OR mrn ILIKE $%d OR phone ILIKE $%d)",
			n, n, n, n, n))
	}
	if f.ProviderTier != "" {
		args = append(args, f.ProviderTier)
		where = append(where, fmt.Sprintf("provider_tier = $%d", len(args)))
	}
	if f.HMOID != nil {
		args = append(args, *f.HMOID)
		where = append(where, fmt.Sprintf("hmo_id = $%d", len(args)))
	}
	cond := strings.Join(where, " AND ")

	q := db.Conn(ctx, r.pool)
	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM patient WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := q.Query(ctx, fmt.Sprintf(`SELECT %s FROM patient WHERE %s
		ORDER BY last_name, first_name LIMIT $%d OFFSET $%d`, patientCols, cond, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var patients []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		patients = append(patients, p)
	}
	return patients, total, rows.Err()
}

func (r *patientRepoPG) Recent(ctx context.Context, n int) ([]*Patient, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `SELECT `+patientCols+` FROM patient
		WHERE deleted_at IS NULL ORDER BY created_at DESC LIMIT $1`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var patients []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		patients = append(patients, p)
	}
	return patients, rows.Err()
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(
		&p.ID, &p.MRN, &p.FirstName, &p.LastName, &p.OtherNames, &p.Age,
		&p.DateOfBirth, &p.Gender, &p.Phone, &p.Email, &p.Address,
		&p.NextOfKinName, &p.NextOfKinPhone, &p.ProviderTier, &p.HMOID, &p.InsuranceNumber,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// -- HMO Repository --

type hmoRepoPG struct {
	pool *pgxpool.Pool
}

func NewHMORepo(pool *pgxpool.Pool) HMORepository {
	return &hmoRepoPG{pool: pool}
}

const hmoCols = `id, name, tier, contact_phone, contact_email, active, created_at, updated_at`

func (r *hmoRepoPG) Create(ctx context.Context, h *HMO) error {
	h.ID = uuid.New()
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO hmo (id, name, tier, contact_phone, contact_email, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		h.ID, h.Name, h.Tier, h.ContactPhone, h.ContactEmail, h.Active,
	).Scan(&h.CreatedAt, &h.UpdatedAt)
	if db.IsUniqueViolation(err) {
		return ErrHMOExists
	}
	return err
}

func (r *hmoRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*HMO, error) {
	h, err := scanHMO(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+hmoCols+` FROM hmo WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrHMONotFound
	}
	return h, err
}

func (r *hmoRepoPG) Update(ctx context.Context, h *HMO) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE hmo SET name=$2, tier=$3, contact_phone=$4, contact_email=$5, active=$6, updated_at=NOW()
		WHERE id = $1`,
		h.ID, h.Name, h.Tier, h.ContactPhone, h.ContactEmail, h.Active)
	if db.IsUniqueViolation(err) {
		return ErrHMOExists
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrHMONotFound
	}
	return nil
}

func (r *hmoRepoPG) Deactivate(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `UPDATE hmo SET active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrHMONotFound
	}
	return nil
}

func (r *hmoRepoPG) List(ctx context.Context, activeOnly bool) ([]*HMO, error) {
	sql := `SELECT ` + hmoCols + ` FROM hmo`
	if activeOnly {
		sql += ` WHERE active`
	}
	rows, err := db.Conn(ctx, r.pool).Query(ctx, sql+` ORDER BY tier, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hmos []*HMO
	for rows.Next() {
		h, err := scanHMO(rows)
		if err != nil {
			return nil, err
		}
		hmos = append(hmos, h)
	}
	return hmos, rows.Err()
}

func scanHMO(row pgx.Row) (*HMO, error) {
	var h HMO
	if err := row.Scan(&h.ID, &h.Name, &h.Tier, &h.ContactPhone, &h.ContactEmail, &h.Active, &h.CreatedAt, &h.UpdatedAt); err != nil {
		return nil, err
	}
	return &h, nil
}
