package inventory

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

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

// -- Pharmacies --

func (r *repoPG) CreatePharmacy(ctx context.Context, p *Pharmacy) error {
	p.ID = uuid.New()
	err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`INSERT INTO pharmacy (id, name, location) VALUES ($1, $2, $3) RETURNING created_at`,
		p.ID, p.Name, p.Location,
	).Scan(&p.CreatedAt)
	if db.IsUniqueViolation(err) {
		return ErrDuplicatePharmacy
	}
	return err
}

func (r *repoPG) GetPharmacy(ctx context.Context, id uuid.UUID) (*Pharmacy, error) {
	var p Pharmacy
	err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT id, name, location, created_at FROM pharmacy WHERE id = $1`, id,
	).Scan(&p.ID, &p.Name, &p.Location, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPharmacyNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repoPG) ListPharmacies(ctx context.Context) ([]*Pharmacy, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `SELECT id, name, location, created_at FROM pharmacy ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Pharmacy
	for rows.Next() {
		var p Pharmacy
		if err := rows.Scan(&p.ID, &p.Name, &p.Location, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

// -- Items --

const itemCols = `i.id, i.pharmacy_id, p.name, i.name, i.batch_number, i.quantity,
	to_char(i.expiry_date, 'YYYY-MM-DD'), i.reorder_level, i.cost_price,
	i.standard_fee, i.retainership_fee, i.nhia_fee, i.kschma_fee, i.created_at, i.updated_at`

const itemFrom = ` FROM inventory_item i JOIN pharmacy p ON p.id = i.pharmacy_id`

func (r *repoPG) CreateItem(ctx context.Context, it *Item) error {
	it.ID = uuid.New()
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO inventory_item (id, pharmacy_id, name, batch_number, quantity, expiry_date,
			reorder_level, cost_price, standard_fee, retainership_fee, nhia_fee, kschma_fee)
		VALUES ($1, $2, $3, $4, $5, $6::date, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at`,
		it.ID, it.PharmacyID, it.Name, it.BatchNumber, it.Quantity, it.ExpiryDate,
		it.ReorderLevel, it.CostPrice, it.Standard, it.Retainership, it.NHIA, it.KSCHMA,
	).Scan(&it.CreatedAt, &it.UpdatedAt)
	if db.IsForeignKeyViolation(err) {
		return ErrPharmacyNotFound
	}
	return err
}

func (r *repoPG) GetItem(ctx context.Context, id uuid.UUID) (*Item, error) {
	it, err := scanItem(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+itemCols+itemFrom+` WHERE i.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return it, err
}

func (r *repoPG) UpdateItem(ctx context.Context, it *Item) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE inventory_item SET pharmacy_id=$2, name=$3, batch_number=$4, quantity=$5,
			expiry_date=$6::date, reorder_level=$7, cost_price=$8, standard_fee=$9,
			retainership_fee=$10, nhia_fee=$11, kschma_fee=$12, updated_at=NOW()
		WHERE id = $1`,
		it.ID, it.PharmacyID, it.Name, it.BatchNumber, it.Quantity, it.ExpiryDate,
		it.ReorderLevel, it.CostPrice, it.Standard, it.Retainership, it.NHIA, it.KSCHMA)
	if db.IsForeignKeyViolation(err) {
		return ErrPharmacyNotFound
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) DeleteItem(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM inventory_item WHERE id = $1`, id)
	if db.IsForeignKeyViolation(err) {
		return ErrItemInUse
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func itemFilter(f ListFilter) (string, []any) {
	var where []string
	var args []any
	if f.PharmacyID != nil {
		args = append(args, *f.PharmacyID)
		where = append(where, fmt.Sprintf("i.pharmacy_id = $%d", len(args)))
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		args = append(args, "%"+q+"%")
		where = append(where, fmt.Sprintf("i.name ILIKE $%d", len(args)))
	}
	if len(where) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(where, " AND "), args
}

func (r *repoPG) ListItems(ctx context.Context, f ListFilter, limit, offset int) ([]*Item, int, error) {
	cond, args := itemFilter(f)
	q := db.Conn(ctx, r.pool)

	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*)`+itemFrom+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := q.Query(ctx, fmt.Sprintf(`SELECT %s%s%s ORDER BY i.name, i.expiry_date NULLS LAST LIMIT $%d OFFSET $%d`,
		itemCols, itemFrom, cond, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	items, err := collectItems(rows)
	return items, total, err
}

func (r *repoPG) Stock(ctx context.Context, pharmacyID *uuid.UUID) ([]*Item, error) {
	cond, args := itemFilter(ListFilter{PharmacyID: pharmacyID})
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `SELECT `+itemCols+itemFrom+cond+` ORDER BY i.name, i.created_at`, args...)
	if err != nil {
		return nil, err
	}
	return collectItems(rows)
}

func (r *repoPG) Decrement(ctx context.Context, itemID uuid.UUID, qty int) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE inventory_item SET quantity = quantity - $2, updated_at = NOW()
		WHERE id = $1 AND quantity >= $2`, itemID, qty)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStockChanged
	}
	return nil
}

func collectItems(rows pgx.Rows) ([]*Item, error) {
	defer rows.Close()
	var out []*Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func scanItem(row pgx.Row) (*Item, error) {
	var it Item
	err := row.Scan(&it.ID, &it.PharmacyID, &it.PharmacyName, &it.Name, &it.BatchNumber, &it.Quantity,
		&it.ExpiryDate, &it.ReorderLevel, &it.CostPrice,
		&it.Standard, &it.Retainership, &it.NHIA, &it.KSCHMA, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &it, nil
}

// -- Drug metadata --

func (r *repoPG) CreateDrug(ctx context.Context, d *DrugMetadata) error {
	d.ID = uuid.New()
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO drug_metadata (id, name, generic_name, category, form, strength)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING created_at`,
		d.ID, d.Name, d.GenericName, d.Category, d.Form, d.Strength,
	).Scan(&d.CreatedAt)
	if db.IsUniqueViolation(err) {
		return ErrDuplicateDrug
	}
	return err
}

func (r *repoPG) ListDrugs(ctx context.Context, query string) ([]*DrugMetadata, error) {
	sql := `SELECT id, name, generic_name, category, form, strength, created_at FROM drug_metadata`
	var args []any
	if q := strings.TrimSpace(query); q != "" {
		args = append(args, "%"+q+"%")
		sql += ` WHERE name ILIKE $1 OR generic_name ILIKE $1`
	}
	rows, err := db.Conn(ctx, r.pool).Query(ctx, sql+` ORDER BY name`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*DrugMetadata
	for rows.Next() {
		var d DrugMetadata
		if err := rows.Scan(&d.ID, &d.Name, &d.GenericName, &d.Category, &d.Form, &d.Strength, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}

// -- Dispense records --

func (r *repoPG) DispenseRecords(ctx context.Context, from, to string) ([]DispenseRecord, error) {
	var where []string
	var args []any
	if from != "" {
		args = append(args, from)
		where = append(where, fmt.Sprintf("dispensed_at >= $%d::date", len(args)))
	}
	if to != "" {
		args = append(args, to)
		where = append(where, fmt.Sprintf("dispensed_at < $%d::date + 1", len(args)))
	}
	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	rows, err := db.Conn(ctx, r.pool).Query(ctx,
		`SELECT name, quantity, unit_price, unit_cost, dispensed_at FROM dispense_line`+cond+` ORDER BY dispensed_at`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DispenseRecord
	for rows.Next() {
		var d DispenseRecord
		if err := rows.Scan(&d.Name, &d.Quantity, &d.UnitPrice, &d.UnitCost, &d.DispensedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
