package settings

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	GetHospital(ctx context.Context) (*Hospital, error)
	UpdateHospital(ctx context.Context, h *Hospital) error

	ListBanks(ctx context.Context) ([]*Bank, error)
	GetBank(ctx context.Context, id uuid.UUID) (*Bank, error)
	CreateBank(ctx context.Context, b *Bank) error
	UpdateBank(ctx context.Context, b *Bank) error
	DeleteBank(ctx context.Context, id uuid.UUID) error
	// ClearDefault unsets the default flag on every bank except keep.
	ClearDefault(ctx context.Context, keep uuid.UUID) error
	MarkDefault(ctx context.Context, id uuid.UUID) error
}
