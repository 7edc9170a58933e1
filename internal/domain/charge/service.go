package charge

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/emr/emr/pkg/apperr"
)

var (
	ErrNotFound    = apperr.NotFound("charge")
	ErrDuplicate   = apperr.Conflict("CHARGE_EXISTS", "a charge with this name already exists in the category")
	ErrInUse       = apperr.Conflict("CHARGE_IN_USE", "charge is billed on encounters; deactivate it instead")
	ErrCategory    = apperr.Validation("invalid charge category", map[string]string{"category": "must be lab, nursing, radiology, drug, consultation, ward or other"})
	ErrInactive    = apperr.Unprocessable("CHARGE_INACTIVE", "charge is not active")
	ErrNegativeFee = apperr.Validation("fees must not be negative", nil)
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) CreateCharge(ctx context.Context, c *Charge) error {
	if err := normalize(c); err != nil {
		return err
	}
	c.Active = true
	return s.repo.Create(ctx, c)
}

func (s *Service) GetCharge(ctx context.Context, id uuid.UUID) (*Charge, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) UpdateCharge(ctx context.Context, c *Charge) error {
	if err := normalize(c); err != nil {
		return err
	}
	return s.repo.Update(ctx, c)
}

func (s *Service) DeleteCharge(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) ListCharges(ctx context.Context, f ListFilter, limit, offset int) ([]*Charge, int, error) {
	return s.repo.List(ctx, f, limit, offset)
}

// ActiveCharges returns the charges for ids in the order requested. Every id
// must exist and be active.
func (s *Service) ActiveCharges(ctx context.Context, ids []uuid.UUID) ([]*Charge, error) {
	found, err := s.repo.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*Charge, len(found))
	for _, c := range found {
		byID[c.ID] = c
	}

	out := make([]*Charge, 0, len(ids))
	for _, id := range ids {
		c, ok := byID[id]
		if !ok {
			return nil, ErrNotFound.Withf("charge %s not found", id)
		}
		if !c.Active {
			return nil, ErrInactive.Withf("charge %s is not active", c.Name)
		}
		out = append(out, c)
	}
	return out, nil
}

func normalize(c *Charge) error {
	c.Name = strings.TrimSpace(c.Name)
	cat, err := ParseCategory(string(c.Category))
	if err != nil {
		return ErrCategory
	}
	c.Category = cat
	if err := c.FeeSchedule.Validate(); err != nil {
		return ErrNegativeFee.Withf("%s", err.Error())
	}
	return nil
}
