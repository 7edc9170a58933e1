package ward

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	CreateWard(ctx context.Context, w *Ward) error
	GetWard(ctx context.Context, id uuid.UUID) (*Ward, error)
	UpdateWard(ctx context.Context, w *Ward) error
	DeleteWard(ctx context.Context, id uuid.UUID) error
	ListWards(ctx context.Context) ([]*Ward, error)

	AddBed(ctx context.Context, b *Bed) error
	GetBed(ctx context.Context, id uuid.UUID) (*Bed, error)
	// RemoveBed deletes an unoccupied bed of the ward.
	RemoveBed(ctx context.Context, wardID, bedID uuid.UUID) error
	// Occupy flips a free bed of the ward to occupied. It never succeeds
	// twice for the same bed without a Release in between.
	Occupy(ctx context.Context, wardID, bedID uuid.UUID) error
	Release(ctx context.Context, bedID uuid.UUID) error
	Occupancy(ctx context.Context) ([]Occupancy, error)
}
