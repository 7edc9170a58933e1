package patient

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/emr/emr/internal/domain/pricing"
)

// Patient is a registered person. MRN is issued on create and never changes.
type Patient struct {
	ID              uuid.UUID            `json:"id"`
	MRN             string               `json:"mrn"`
	FirstName       string               `json:"first_name" validate:"required,notblank,max=100"`
	LastName        string               `json:"last_name" validate:"required,notblank,max=100"`
	OtherNames      *string              `json:"other_names,omitempty" validate:"omitempty,max=200"`
	Age             *int                 `json:"age,omitempty" validate:"omitempty,gte=0,lte=150"`
	DateOfBirth     *string              `json:"date_of_birth,omitempty" validate:"omitempty,isodate"`
	Gender          string               `json:"gender" validate:"required,notblank"`
	Phone           *string              `json:"phone,omitempty" validate:"omitempty,phone"`
	Email           *string              `json:"email,omitempty" validate:"omitempty,email"`
	Address         *string              `json:"address,omitempty"`
	NextOfKinName   *string              `json:"next_of_kin_name,omitempty"`
	NextOfKinPhone  *string              `json:"next_of_kin_phone,omitempty" validate:"omitempty,phone"`
	ProviderTier    pricing.ProviderTier `json:"provider_tier"`
	HMOID           *uuid.UUID           `json:"hmo_id,omitempty"`
	InsuranceNumber *string              `json:"insurance_number,omitempty" validate:"omitempty,max=100"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

// FullName joins first, other and last names.
func (p *Patient) FullName() string {
	if p.OtherNames != nil && *p.OtherNames != "" {
		return p.FirstName + " " + *p.OtherNames + " " + p.LastName
	}
	return p.FirstName + " " + p.LastName
}

// HMO is an insurer serving exactly one non-Standard provider tier.
type HMO struct {
	ID           uuid.UUID            `json:"id"`
	Name         string               `json:"name" validate:"required,notblank,max=255"`
	Tier         pricing.ProviderTier `json:"tier" validate:"required"`
	ContactPhone *string              `json:"contact_phone,omitempty" validate:"omitempty,phone"`
	ContactEmail *string              `json:"contact_email,omitempty" validate:"omitempty,email"`
	Active       bool                 `json:"active"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

// ListFilter narrows patient listings. Query matches name, MRN or phone.
type ListFilter struct {
	Query        string
	ProviderTier pricing.ProviderTier
	HMOID        *uuid.UUID
}

// FormatMRN renders a sequence value as a medical record number.
func FormatMRN(seq int64) string {
	return fmt.Sprintf("MRN-%06d", seq)
}
