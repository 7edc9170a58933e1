package prescription

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	// Create stores the prescription and its lines.
	Create(ctx context.Context, p *Prescription) error
	GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*Prescription, error)
	List(ctx context.Context, f ListFilter, limit, offset int) ([]*Prescription, int, error)
	// MarkDispensed flips a pending prescription to dispensed.
	MarkDispensed(ctx context.Context, id uuid.UUID, by string, at time.Time) error
	AddDispenseLines(ctx context.Context, lines []*DispenseLine) error
	ListDispenseLines(ctx context.Context, prescriptionID uuid.UUID) ([]*DispenseLine, error)
}
