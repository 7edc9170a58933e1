package settings

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

const hospitalCols = `name, address, phone, email, logo_url, currency_symbol, updated_at`

const bankCols = `id, bank_name, account_name, account_number, is_default, created_at, updated_at`

func (r *repoPG) GetHospital(ctx context.Context) (*Hospital, error) {
	var h Hospital
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+hospitalCols+` FROM hospital_settings WHERE id = 1`).
		Scan(&h.Name, &h.Address, &h.Phone, &h.Email, &h.LogoURL, &h.CurrencySymbol, &h.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotConfigured
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// UpdateHospital upserts the single settings row.
func (r *repoPG) UpdateHospital(ctx context.Context, h *Hospital) error {
	return db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO hospital_settings (id, name, address, phone, email, logo_url, currency_symbol)
		VALUES (1, $1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, address = EXCLUDED.address, phone = EXCLUDED.phone,
			email = EXCLUDED.email, logo_url = EXCLUDED.logo_url,
			currency_symbol = EXCLUDED.currency_symbol, updated_at = NOW()
		RETURNING updated_at`,
		h.Name, h.Address, h.Phone, h.Email, h.LogoURL, h.CurrencySymbol,
	).Scan(&h.UpdatedAt)
}

func scanBank(row pgx.Row) (*Bank, error) {
	var b Bank
	err := row.Scan(&b.ID, &b.BankName, &b.AccountName, &b.AccountNumber, &b.IsDefault, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *repoPG) ListBanks(ctx context.Context) ([]*Bank, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx,
		`SELECT `+bankCols+` FROM bank_account ORDER BY is_default DESC, bank_name, account_number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*Bank, 0)
	for rows.Next() {
		b, err := scanBank(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *repoPG) GetBank(ctx context.Context, id uuid.UUID) (*Bank, error) {
	b, err := scanBank(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+bankCols+` FROM bank_account WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrBankNotFound
	}
	return b, err
}

func (r *repoPG) CreateBank(ctx context.Context, b *Bank) error {
	b.ID = uuid.New()
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO bank_account (id, bank_name, account_name, account_number, is_default)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`,
		b.ID, b.BankName, b.AccountName, b.AccountNumber, b.IsDefault,
	).Scan(&b.CreatedAt, &b.UpdatedAt)
	if db.IsUniqueViolation(err) {
		return ErrDuplicateBank
	}
	return err
}

func (r *repoPG) UpdateBank(ctx context.Context, b *Bank) error {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE bank_account SET bank_name = $2, account_name = $3, account_number = $4,
			is_default = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		b.ID, b.BankName, b.AccountName, b.AccountNumber, b.IsDefault,
	).Scan(&b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrBankNotFound
	}
	if db.IsUniqueViolation(err) {
		return ErrDuplicateBank
	}
	return err
}

func (r *repoPG) DeleteBank(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM bank_account WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrBankNotFound
	}
	return nil
}

func (r *repoPG) ClearDefault(ctx context.Context, keep uuid.UUID) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE bank_account SET is_default = FALSE, updated_at = NOW() WHERE is_default AND id <> $1`, keep)
	return err
}

func (r *repoPG) MarkDefault(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE bank_account SET is_default = TRUE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrBankNotFound
	}
	return nil
}
