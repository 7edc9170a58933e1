package ward

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/emr/emr/internal/platform/db"
	"github.com/emr/emr/pkg/apperr"
)

var (
	ErrNotFound      = apperr.NotFound("ward")
	ErrBedNotFound   = apperr.NotFound("bed")
	ErrDuplicateWard = apperr.Conflict("WARD_EXISTS", "a ward with this name already exists")
	ErrDuplicateBed  = apperr.Conflict("BED_EXISTS", "the ward already has a bed with this number")
	ErrWardOccupied  = apperr.Conflict("WARD_OCCUPIED", "ward has occupied beds")
	ErrWardInUse     = apperr.Conflict("WARD_IN_USE", "ward is referenced by encounters")
	ErrBedOccupied   = apperr.Conflict("BED_OCCUPIED", "bed is occupied")
	ErrBedInUse      = apperr.Conflict("BED_IN_USE", "bed is referenced by encounters")
	ErrBedNotInWard  = apperr.Unprocessable("BED_NOT_IN_WARD", "bed does not belong to the ward")
	ErrNegativeRate  = apperr.Validation("ward rates must not be negative", nil)
)

type Service struct {
	repo Repository
	tx   db.Transactor
}

func NewService(repo Repository, tx db.Transactor) *Service {
	return &Service{repo: repo, tx: tx}
}

// CreateWard stores the ward and any beds listed with it in one transaction.
func (s *Service) CreateWard(ctx context.Context, w *Ward) error {
	w.Name = strings.TrimSpace(w.Name)
	if err := w.Rates.Validate(); err != nil {
		return ErrNegativeRate.Withf("%s", err.Error())
	}
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.repo.CreateWard(ctx, w); err != nil {
			return err
		}
		for _, b := range w.Beds {
			b.WardID = w.ID
			b.Number = strings.TrimSpace(b.Number)
			b.Occupied = false
			if err := s.repo.AddBed(ctx, b); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Service) GetWard(ctx context.Context, id uuid.UUID) (*Ward, error) {
	return s.repo.GetWard(ctx, id)
}

// UpdateWard changes name, description and rates. Beds are managed separately.
func (s *Service) UpdateWard(ctx context.Context, w *Ward) error {
	w.Name = strings.TrimSpace(w.Name)
	if err := w.Rates.Validate(); err != nil {
		return ErrNegativeRate.Withf("%s", err.Error())
	}
	if err := s.repo.UpdateWard(ctx, w); err != nil {
		return err
	}
	stored, err := s.repo.GetWard(ctx, w.ID)
	if err != nil {
		return err
	}
	*w = *stored
	return nil
}

func (s *Service) DeleteWard(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteWard(ctx, id)
}

func (s *Service) ListWards(ctx context.Context) ([]*Ward, error) {
	return s.repo.ListWards(ctx)
}

func (s *Service) AddBed(ctx context.Context, wardID uuid.UUID, number string) (*Bed, error) {
	if _, err := s.repo.GetWard(ctx, wardID); err != nil {
		return nil, err
	}
	b := &Bed{WardID: wardID, Number: strings.TrimSpace(number)}
	if err := s.repo.AddBed(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Service) RemoveBed(ctx context.Context, wardID, bedID uuid.UUID) error {
	return s.repo.RemoveBed(ctx, wardID, bedID)
}

// OccupyBed marks a free bed of the ward occupied. Joins the caller's
// transaction when there is one.
func (s *Service) OccupyBed(ctx context.Context, wardID, bedID uuid.UUID) error {
	return s.repo.Occupy(ctx, wardID, bedID)
}

func (s *Service) ReleaseBed(ctx context.Context, bedID uuid.UUID) error {
	return s.repo.Release(ctx, bedID)
}

func (s *Service) Occupancy(ctx context.Context) (OccupancySummary, error) {
	wards, err := s.repo.Occupancy(ctx)
	if err != nil {
		return OccupancySummary{}, err
	}
	return Summarize(wards), nil
}
