package settings

import (
	"time"

	"github.com/google/uuid"
)

// Hospital is the branding shown on receipts and the login screen. There is
// exactly one row.
type Hospital struct {
	Name           string    `json:"name" validate:"required,notblank,max=255"`
	Address        *string   `json:"address,omitempty"`
	Phone          *string   `json:"phone,omitempty" validate:"omitempty,phone"`
	Email          *string   `json:"email,omitempty" validate:"omitempty,email"`
	LogoURL        *string   `json:"logo_url,omitempty" validate:"omitempty,url"`
	CurrencySymbol string    `json:"currency_symbol" validate:"required,notblank,max=8"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Bank is an account patients can pay into. At most one is the default.
type Bank struct {
	ID            uuid.UUID `json:"id"`
	BankName      string    `json:"bank_name" validate:"required,notblank,max=255"`
	AccountName   string    `json:"account_name" validate:"required,notblank,max=255"`
	AccountNumber string    `json:"account_number" validate:"required,notblank,max=50"`
	IsDefault     bool      `json:"is_default"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
