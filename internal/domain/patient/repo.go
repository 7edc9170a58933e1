package patient

import (
	"context"

	"github.com/google/uuid"
)

type PatientRepository interface {
	// Create assigns ID and MRN.
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetByMRN(ctx context.Context, mrn string) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f ListFilter, limit, offset int) ([]*Patient, int, error)
	Recent(ctx context.Context, n int) ([]*Patient, error)
}

type HMORepository interface {
	Create(ctx context.Context, h *HMO) error
	GetByID(ctx context.Context, id uuid.UUID) (*HMO, error)
	Update(ctx context.Context, h *HMO) error
	Deactivate(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, activeOnly bool) ([]*HMO, error)
}
