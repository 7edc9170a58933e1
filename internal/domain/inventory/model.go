package inventory

import (
	"time"

	"github.com/google/uuid"

	"github.com/emr/emr/internal/domain/pricing"
)

type Pharmacy struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name" validate:"required,notblank,max=100"`
	Location  *string   `json:"location,omitempty" validate:"omitempty,max=255"`
	CreatedAt time.Time `json:"created_at"`
}

// Item is a stock line of one drug at one pharmacy.
type Item struct {
	ID           uuid.UUID `json:"id"`
	PharmacyID   uuid.UUID `json:"pharmacy_id" validate:"required"`
	PharmacyName string    `json:"pharmacy_name,omitempty"`
	Name         string    `json:"name" validate:"required,notblank,max=255"`
	BatchNumber  *string   `json:"batch_number,omitempty" validate:"omitempty,max=100"`
	Quantity     int       `json:"quantity" validate:"gte=0"`
	ExpiryDate   *string   `json:"expiry_date,omitempty" validate:"omitempty,isodate"`
	ReorderLevel int       `json:"reorder_level" validate:"gte=0"`
	CostPrice    float64   `json:"cost_price" validate:"gte=0"`
	pricing.FeeSchedule
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (i *Item) Fees() pricing.FeeSchedule { return i.FeeSchedule }
func (i *Item) Qty() int                  { return i.Quantity }

// DrugMetadata describes a drug independently of any stock.
type DrugMetadata struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name" validate:"required,notblank,max=255"`
	GenericName *string   `json:"generic_name,omitempty" validate:"omitempty,max=255"`
	Category    *string   `json:"category,omitempty" validate:"omitempty,max=100"`
	Form        *string   `json:"form,omitempty" validate:"omitempty,max=50"`
	Strength    *string   `json:"strength,omitempty" validate:"omitempty,max=50"`
	CreatedAt   time.Time `json:"created_at"`
}

type ListFilter struct {
	PharmacyID *uuid.UUID
	Query      string
}

// DispenseRecord is one stock line consumed by a dispense.
type DispenseRecord struct {
	Name        string    `json:"name"`
	Quantity    int       `json:"quantity"`
	UnitPrice   float64   `json:"unit_price"`
	UnitCost    float64   `json:"unit_cost"`
	DispensedAt time.Time `json:"dispensed_at"`
}
