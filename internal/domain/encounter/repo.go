package encounter

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	// LockPatient serializes encounter creation for one patient until the
	// surrounding transaction ends.
	LockPatient(ctx context.Context, patientID uuid.UUID) error
	Create(ctx context.Context, e *Encounter) error
	GetByID(ctx context.Context, id uuid.UUID) (*Encounter, error)
	// GetForUpdate locks the row for the rest of the transaction.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*Encounter, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status, endedAt *time.Time) error
	UpdateDetails(ctx context.Context, e *Encounter) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f ListFilter, limit, offset int) ([]*Encounter, int, error)

	// ExistsOnDate reports a non-cancelled encounter for the patient on the
	// hospital date.
	ExistsOnDate(ctx context.Context, patientID uuid.UUID, date string) (bool, error)
	// OpenInpatient returns the patient's Inpatient encounter that is not yet
	// closed, or nil.
	OpenInpatient(ctx context.Context, patientID uuid.UUID) (*Encounter, error)

	AddCharge(ctx context.Context, c *EncounterCharge) error
	GetCharge(ctx context.Context, encounterID, id uuid.UUID) (*EncounterCharge, error)
	// RemoveCharge deletes an unpaid line.
	RemoveCharge(ctx context.Context, encounterID, id uuid.UUID) error
	ListCharges(ctx context.Context, encounterID uuid.UUID) ([]*EncounterCharge, error)
	// MarkPaid settles every unpaid line and returns how many changed.
	MarkPaid(ctx context.Context, encounterID uuid.UUID, by string, at time.Time) (int, error)

	AddDiagnosis(ctx context.Context, d *Diagnosis) error
	ListDiagnoses(ctx context.Context, encounterID uuid.UUID) ([]*Diagnosis, error)

	AddStatusChange(ctx context.Context, sc *StatusChange) error
	ListStatusHistory(ctx context.Context, encounterID uuid.UUID) ([]*StatusChange, error)
}
