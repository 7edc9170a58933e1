package inventory

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	CreatePharmacy(ctx context.Context, p *Pharmacy) error
	GetPharmacy(ctx context.Context, id uuid.UUID) (*Pharmacy, error)
	ListPharmacies(ctx context.Context) ([]*Pharmacy, error)

	CreateItem(ctx context.Context, it *Item) error
	GetItem(ctx context.Context, id uuid.UUID) (*Item, error)
	UpdateItem(ctx context.Context, it *Item) error
	DeleteItem(ctx context.Context, id uuid.UUID) error
	ListItems(ctx context.Context, f ListFilter, limit, offset int) ([]*Item, int, error)
	// Stock returns every item, or those of one pharmacy.
	Stock(ctx context.Context, pharmacyID *uuid.UUID) ([]*Item, error)
	// Decrement removes qty from an item only if that much is still there.
	Decrement(ctx context.Context, itemID uuid.UUID, qty int) error

	CreateDrug(ctx context.Context, d *DrugMetadata) error
	ListDrugs(ctx context.Context, query string) ([]*DrugMetadata, error)

	// DispenseRecords returns dispense lines between from and to inclusive.
	// Empty bounds are open.
	DispenseRecords(ctx context.Context, from, to string) ([]DispenseRecord, error)
}
