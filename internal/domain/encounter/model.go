package encounter

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/emr/emr/internal/domain/charge"
	"github.com/emr/emr/internal/domain/pricing"
)

// Type is the kind of visit.
type Type string

const (
	TypeOutpatient            Type = "Outpatient"
	TypeInpatient             Type = "Inpatient"
	TypeEmergency             Type = "Emergency"
	TypeFollowUp              Type = "Follow-up"
	TypeExternalInvestigation Type = "External Investigation"
	TypeConsultation          Type = "Consultation"
)

var Types = []Type{
	TypeOutpatient, TypeInpatient, TypeEmergency, TypeFollowUp,
	TypeExternalInvestigation, TypeConsultation,
}

// ParseType accepts any casing, and underscores or dashes for spaces.
func ParseType(s string) (Type, error) {
	norm := func(v string) string {
		v = strings.ToLower(strings.TrimSpace(v))
		return strings.NewReplacer("_", " ", "-", " ").Replace(v)
	}
	want := norm(s)
	for _, t := range Types {
		if norm(string(t)) == want {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown encounter type %q", s)
}

// Encounter is one clinical episode for a patient.
type Encounter struct {
	ID             uuid.UUID          `json:"id"`
	PatientID      uuid.UUID          `json:"patient_id"`
	Type           Type               `json:"type"`
	Status         Status             `json:"status"`
	EncounterDate  string             `json:"encounter_date"`
	WardID         *uuid.UUID         `json:"ward_id,omitempty"`
	BedID          *uuid.UUID         `json:"bed_id,omitempty"`
	Clinic         *string            `json:"clinic,omitempty"`
	ChiefComplaint *string            `json:"chief_complaint,omitempty"`
	Notes          *string            `json:"notes,omitempty"`
	CreatedBy      string             `json:"created_by"`
	StartedAt      time.Time          `json:"started_at"`
	EndedAt        *time.Time         `json:"ended_at,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
	Charges        []*EncounterCharge `json:"charges,omitempty"`
	Total          float64            `json:"total"`
}

// EncounterCharge is a billed line. Name, category and unit price are
// snapshotted when the line is attached so later catalog edits do not
// rewrite bills.
type EncounterCharge struct {
	ID          uuid.UUID       `json:"id"`
	EncounterID uuid.UUID       `json:"encounter_id"`
	ChargeID    *uuid.UUID      `json:"charge_id,omitempty"`
	Name        string          `json:"name"`
	Category    charge.Category `json:"category"`
	Quantity    int             `json:"quantity"`
	UnitPrice   float64         `json:"unit_price"`
	Paid        bool            `json:"paid"`
	PaidAt      *time.Time      `json:"paid_at,omitempty"`
	PaidBy      string          `json:"paid_by,omitempty"`
	CreatedBy   string          `json:"created_by"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Amount is the line total rounded to two decimals.
func (c *EncounterCharge) Amount() float64 {
	q := c.Quantity
	if q < 1 {
		q = 1
	}
	return pricing.Round2(c.UnitPrice * float64(q))
}

type Diagnosis struct {
	ID          uuid.UUID `json:"id"`
	EncounterID uuid.UUID `json:"encounter_id"`
	Code        *string   `json:"code,omitempty" validate:"omitempty,max=20"`
	Description string    `json:"description" validate:"required,notblank"`
	IsPrimary   bool      `json:"is_primary"`
	RecordedBy  string    `json:"recorded_by"`
	CreatedAt   time.Time `json:"created_at"`
}

type StatusChange struct {
	ID          uuid.UUID `json:"id"`
	EncounterID uuid.UUID `json:"encounter_id"`
	From        *Status   `json:"from,omitempty"`
	To          Status    `json:"to"`
	ChangedBy   string    `json:"changed_by"`
	OffTable    bool      `json:"off_table"`
	ChangedAt   time.Time `json:"changed_at"`
}

// Bill is the priced view of an encounter's charges.
type Bill struct {
	EncounterID  uuid.UUID            `json:"encounter_id"`
	PatientID    uuid.UUID            `json:"patient_id"`
	ProviderTier pricing.ProviderTier `json:"provider_tier"`
	Status       Status               `json:"status"`
	Items        []*EncounterCharge   `json:"items"`
	Total        float64              `json:"total"`
	Paid         float64              `json:"paid"`
	Outstanding  float64              `json:"outstanding"`
}

// BuildBill totals lines into paid and outstanding amounts.
func BuildBill(e *Encounter, tier pricing.ProviderTier, lines []*EncounterCharge) *Bill {
	b := &Bill{
		EncounterID:  e.ID,
		PatientID:    e.PatientID,
		ProviderTier: tier,
		Status:       e.Status,
		Items:        lines,
	}
	if b.Items == nil {
		b.Items = []*EncounterCharge{}
	}
	for _, l := range lines {
		amt := l.Amount()
		b.Total += amt
		if l.Paid {
			b.Paid += amt
		} else {
			b.Outstanding += amt
		}
	}
	b.Total = pricing.Round2(b.Total)
	b.Paid = pricing.Round2(b.Paid)
	b.Outstanding = pricing.Round2(b.Outstanding)
	return b
}

// ListFilter narrows encounter listings. From and To are inclusive
// YYYY-MM-DD hospital dates.
type ListFilter struct {
	PatientID *uuid.UUID
	Status    Status
	Type      Type
	From      string
	To        string
}
