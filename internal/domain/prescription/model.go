package prescription

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/emr/emr/internal/domain/pricing"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusDispensed Status = "dispensed"
)

func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusPending, StatusDispensed:
		return st, nil
	}
	return "", fmt.Errorf("unknown prescription status %q", s)
}

type Prescription struct {
	ID                uuid.UUID  `json:"id"`
	EncounterID       uuid.UUID  `json:"encounter_id"`
	PatientID         uuid.UUID  `json:"patient_id"`
	EncounterChargeID *uuid.UUID `json:"encounter_charge_id,omitempty"`
	Status            Status     `json:"status"`
	Notes             *string    `json:"notes,omitempty"`
	PrescribedBy      string     `json:"prescribed_by"`
	DispensedBy       *string    `json:"dispensed_by,omitempty"`
	DispensedAt       *time.Time `json:"dispensed_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	Lines             []*Line    `json:"lines"`
	Total             float64    `json:"total"`
}

// Line is one prescribed medicine.
type Line struct {
	ID             uuid.UUID `json:"id"`
	PrescriptionID uuid.UUID `json:"prescription_id"`
	Position       int       `json:"position"`
	Name           string    `json:"name"`
	Dosage         *string   `json:"dosage,omitempty"`
	Frequency      *string   `json:"frequency,omitempty"`
	Duration       *string   `json:"duration,omitempty"`
	Quantity       int       `json:"quantity"`
	UnitPrice      float64   `json:"unit_price"`
}

func (l *Line) Amount() float64 {
	return pricing.Round2(l.UnitPrice * float64(l.Quantity))
}

// DispenseLine records stock taken from one inventory item.
type DispenseLine struct {
	ID              uuid.UUID `json:"id"`
	PrescriptionID  uuid.UUID `json:"prescription_id"`
	InventoryItemID uuid.UUID `json:"inventory_item_id"`
	PharmacyID      uuid.UUID `json:"pharmacy_id"`
	Name            string    `json:"name"`
	Quantity        int       `json:"quantity"`
	UnitPrice       float64   `json:"unit_price"`
	UnitCost        float64   `json:"unit_cost"`
	DispensedBy     string    `json:"dispensed_by"`
	DispensedAt     time.Time `json:"dispensed_at"`
}

type ListFilter struct {
	EncounterID *uuid.UUID
	PatientID   *uuid.UUID
	Status      Status
}

// total sums the line amounts.
func total(lines []*Line) float64 {
	var sum float64
	for _, l := range lines {
		sum += l.Amount()
	}
	return pricing.Round2(sum)
}

// chargeName labels the encounter charge billed for a prescription.
func chargeName(lines []*Line) string {
	names := make([]string, len(lines))
	for i, l := range lines {
		names[i] = l.Name
	}
	name := []rune("Prescription: " + strings.Join(names, ", "))
	if len(name) > 255 {
		return string(name[:252]) + "..."
	}
	return string(name)
}
