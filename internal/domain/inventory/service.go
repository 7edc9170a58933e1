package inventory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/emr/emr/internal/domain/pricing"
	"github.com/emr/emr/internal/platform/db"
	"github.com/emr/emr/pkg/apperr"
)

var (
	ErrNotFound          = apperr.NotFound("inventory item")
	ErrPharmacyNotFound  = apperr.NotFound("pharmacy")
	ErrDuplicatePharmacy = apperr.Conflict("PHARMACY_EXISTS", "a pharmacy with this name already exists")
	ErrDuplicateDrug     = apperr.Conflict("DRUG_EXISTS", "drug metadata with this name already exists")
	ErrItemInUse         = apperr.Conflict("ITEM_IN_USE", "item has dispense records; set its quantity to 0 instead")
	ErrNegativeFee       = apperr.Validation("fees must not be negative", nil)
	ErrInsufficientStock = apperr.Unprocessable("INSUFFICIENT_STOCK", "insufficient stock")
	ErrStockChanged      = apperr.Conflict("STOCK_CHANGED", "stock changed while dispensing; retry")
	ErrNotStocked        = apperr.Unprocessable("NOT_STOCKED", "drug is not stocked")
)

type Options struct {
	// WarnDays is how far ahead expiring stock is flagged.
	WarnDays int
	Location *time.Location
	Logger   zerolog.Logger
	Now      func() time.Time
}

type Service struct {
	repo     Repository
	tx       db.Transactor
	warnDays int
	loc      *time.Location
	log      zerolog.Logger
	now      func() time.Time
}

func NewService(repo Repository, tx db.Transactor, opts Options) *Service {
	s := &Service{
		repo:     repo,
		tx:       tx,
		warnDays: opts.WarnDays,
		loc:      opts.Location,
		log:      opts.Logger,
		now:      opts.Now,
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// -- Pharmacies --

func (s *Service) CreatePharmacy(ctx context.Context, p *Pharmacy) error {
	p.Name = strings.TrimSpace(p.Name)
	return s.repo.CreatePharmacy(ctx, p)
}

func (s *Service) GetPharmacy(ctx context.Context, id uuid.UUID) (*Pharmacy, error) {
	return s.repo.GetPharmacy(ctx, id)
}

func (s *Service) ListPharmacies(ctx context.Context) ([]*Pharmacy, error) {
	return s.repo.ListPharmacies(ctx)
}

// -- Items --

func normalize(it *Item) error {
	it.Name = strings.TrimSpace(it.Name)
	if err := it.FeeSchedule.Validate(); err != nil {
		return ErrNegativeFee.Withf("%v", err)
	}
	return nil
}

func (s *Service) CreateItem(ctx context.Context, it *Item) error {
	if err := normalize(it); err != nil {
		return err
	}
	p, err := s.repo.GetPharmacy(ctx, it.PharmacyID)
	if err != nil {
		return err
	}
	if err := s.repo.CreateItem(ctx, it); err != nil {
		return err
	}
	it.PharmacyName = p.Name
	return nil
}

func (s *Service) GetItem(ctx context.Context, id uuid.UUID) (*Item, error) {
	return s.repo.GetItem(ctx, id)
}

func (s *Service) UpdateItem(ctx context.Context, it *Item) error {
	if err := normalize(it); err != nil {
		return err
	}
	if err := s.repo.UpdateItem(ctx, it); err != nil {
		return err
	}
	updated, err := s.repo.GetItem(ctx, it.ID)
	if err != nil {
		return err
	}
	*it = *updated
	return nil
}

func (s *Service) DeleteItem(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteItem(ctx, id)
}

func (s *Service) ListItems(ctx context.Context, f ListFilter, limit, offset int) ([]*Item, int, error) {
	return s.repo.ListItems(ctx, f, limit, offset)
}

// Aggregate sums stock per drug across pharmacies.
func (s *Service) Aggregate(ctx context.Context, pharmacyID *uuid.UUID) ([]Aggregated, error) {
	items, err := s.repo.Stock(ctx, pharmacyID)
	if err != nil {
		return nil, err
	}
	return Aggregate(items), nil
}

// -- Availability and dispensing --

type Availability struct {
	Name       string `json:"name"`
	Requested  int    `json:"requested"`
	Available  int    `json:"available"`
	Sufficient bool   `json:"sufficient"`
}

// Availability reports the stock of name, across all pharmacies or in one.
func (s *Service) Availability(ctx context.Context, name string, qty int, pharmacyID *uuid.UUID) (*Availability, error) {
	items, err := s.repo.Stock(ctx, pharmacyID)
	if err != nil {
		return nil, err
	}
	avail := AvailableQuantity(name, items)
	return &Availability{
		Name:       strings.TrimSpace(name),
		Requested:  qty,
		Available:  avail,
		Sufficient: avail >= qty,
	}, nil
}

func shortageError(shortages []Shortage) error {
	parts := make([]string, len(shortages))
	for i, sh := range shortages {
		parts[i] = fmt.Sprintf("%s (requested %d, available %d)", sh.Name, sh.Requested, sh.Available)
	}
	return ErrInsufficientStock.
		Withf("insufficient stock for %s", strings.Join(parts, ", ")).
		WithDetails(map[string]any{"shortages": shortages})
}

// CheckStock fails with every shortage when reqs cannot all be met.
func (s *Service) CheckStock(ctx context.Context, reqs []Request, pharmacyID *uuid.UUID) error {
	items, err := s.repo.Stock(ctx, pharmacyID)
	if err != nil {
		return err
	}
	if shortages := CheckAvailability(reqs, items); len(shortages) > 0 {
		return shortageError(shortages)
	}
	return nil
}

// Deduct takes reqs out of stock, earliest expiry first. Nothing is taken
// unless every request can be met. Joins the caller's transaction.
func (s *Service) Deduct(ctx context.Context, reqs []Request, pharmacyID *uuid.UUID) ([]Allocation, error) {
	var out []Allocation
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		items, err := s.repo.Stock(ctx, pharmacyID)
		if err != nil {
			return err
		}
		plan, shortages := Plan(reqs, items)
		if len(shortages) > 0 {
			return shortageError(shortages)
		}
		for _, a := range plan {
			if err := s.repo.Decrement(ctx, a.ItemID, a.Quantity); err != nil {
				return err
			}
		}
		out = plan
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Debug().Int("requests", len(reqs)).Int("allocations", len(out)).Msg("stock deducted")
	return out, nil
}

// PriceFor is the tier price of a drug from current stock.
func (s *Service) PriceFor(ctx context.Context, name string, tier pricing.ProviderTier) (float64, error) {
	items, err := s.repo.Stock(ctx, nil)
	if err != nil {
		return 0, err
	}
	price, ok := PriceOf(name, tier, items)
	if !ok {
		return 0, ErrNotStocked.Withf("%s is not stocked", strings.TrimSpace(name))
	}
	return price, nil
}

// -- Alerts and reports --

func (s *Service) Alerts(ctx context.Context, pharmacyID *uuid.UUID) ([]Alert, error) {
	items, err := s.repo.Stock(ctx, pharmacyID)
	if err != nil {
		return nil, err
	}
	return Alerts(items, s.now().In(s.loc), s.warnDays), nil
}

// LowStockCount counts items at or below their reorder level.
func (s *Service) LowStockCount(ctx context.Context) (int, error) {
	items, err := s.repo.Stock(ctx, nil)
	if err != nil {
		return 0, err
	}
	return CountLowStock(items), nil
}

func (s *Service) ProfitLoss(ctx context.Context, from, to string) (*ProfitLoss, error) {
	records, err := s.repo.DispenseRecords(ctx, from, to)
	if err != nil {
		return nil, err
	}
	pl := BuildProfitLoss(records)
	pl.From, pl.To = from, to
	return pl, nil
}

// -- Drug metadata --

func (s *Service) CreateDrug(ctx context.Context, d *DrugMetadata) error {
	d.Name = strings.TrimSpace(d.Name)
	return s.repo.CreateDrug(ctx, d)
}

func (s *Service) ListDrugs(ctx context.Context, query string) ([]*DrugMetadata, error) {
	return s.repo.ListDrugs(ctx, query)
}
