package charge

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, c *Charge) error
	GetByID(ctx context.Context, id uuid.UUID) (*Charge, error)
	// GetMany returns the charges with the given ids in unspecified order.
	// Missing ids are skipped.
	GetMany(ctx context.Context, ids []uuid.UUID) ([]*Charge, error)
	Update(ctx context.Context, c *Charge) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f ListFilter, limit, offset int) ([]*Charge, int, error)
}
