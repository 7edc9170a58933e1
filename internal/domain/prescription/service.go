package prescription

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/emr/emr/internal/domain/charge"
	"github.com/emr/emr/internal/domain/encounter"
	"github.com/emr/emr/internal/domain/inventory"
	"github.com/emr/emr/internal/domain/patient"
	"github.com/emr/emr/internal/domain/pricing"
	"github.com/emr/emr/internal/platform/auth"
	"github.com/emr/emr/internal/platform/db"
	"github.com/emr/emr/internal/platform/metrics"
	"github.com/emr/emr/pkg/apperr"
)

var (
	ErrNotFound         = apperr.NotFound("prescription")
	ErrNoLines          = apperr.Validation("a prescription needs at least one line", map[string]string{"lines": "min 1"})
	ErrAlreadyDispensed = apperr.Conflict("ALREADY_DISPENSED", "prescription has already been dispensed")
	ErrUnpaid           = apperr.PaymentRequired("PRESCRIPTION_UNPAID", "prescription charge has not been paid")
	ErrInvalidStatus    = apperr.Validation("invalid prescription status", map[string]string{"status": "must be pending or dispensed"})
)

type EncounterService interface {
	GetEncounter(ctx context.Context, id uuid.UUID) (*encounter.Encounter, error)
	GetCharge(ctx context.Context, encounterID, lineID uuid.UUID) (*encounter.EncounterCharge, error)
	AttachCharge(ctx context.Context, line *encounter.EncounterCharge) error
}

type PatientReader interface {
	GetPatient(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
}

type Stock interface {
	PriceFor(ctx context.Context, name string, tier pricing.ProviderTier) (float64, error)
	Deduct(ctx context.Context, reqs []inventory.Request, pharmacyID *uuid.UUID) ([]inventory.Allocation, error)
}

type Service struct {
	repo       Repository
	encounters EncounterService
	patients   PatientReader
	stock      Stock
	tx         db.Transactor
	log        zerolog.Logger
	now        func() time.Time
}

func NewService(repo Repository, encounters EncounterService, patients PatientReader, stock Stock, tx db.Transactor, log zerolog.Logger) *Service {
	return &Service{
		repo:       repo,
		encounters: encounters,
		patients:   patients,
		stock:      stock,
		tx:         tx,
		log:        log,
		now:        time.Now,
	}
}

type LineRequest struct {
	Name      string  `json:"name" validate:"required,notblank,max=255"`
	Dosage    *string `json:"dosage,omitempty" validate:"omitempty,max=100"`
	Frequency *string `json:"frequency,omitempty" validate:"omitempty,max=100"`
	Duration  *string `json:"duration,omitempty" validate:"omitempty,max=100"`
	Quantity  int     `json:"quantity" validate:"required,gte=1,lte=10000"`
}

type CreateRequest struct {
	EncounterID uuid.UUID     `json:"encounter_id" validate:"required"`
	Lines       []LineRequest `json:"lines" validate:"required,min=1,dive"`
	Notes       *string       `json:"notes,omitempty"`
}

// Create prices each line from stock for the patient's tier and bills the
// prescription to the encounter as one drug charge.
func (s *Service) Create(ctx context.Context, sess auth.Session, req CreateRequest) (*Prescription, error) {
	if len(req.Lines) == 0 {
		return nil, ErrNoLines
	}
	enc, err := s.encounters.GetEncounter(ctx, req.EncounterID)
	if err != nil {
		return nil, err
	}
	if enc.Status.Closed() {
		return nil, encounter.ErrClosed.Withf("encounter is %s", enc.Status)
	}
	p, err := s.patients.GetPatient(ctx, enc.PatientID)
	if err != nil {
		return nil, err
	}

	rx := &Prescription{
		EncounterID:  enc.ID,
		PatientID:    enc.PatientID,
		Status:       StatusPending,
		Notes:        req.Notes,
		PrescribedBy: sess.UserID,
	}
	for _, lr := range req.Lines {
		name := strings.TrimSpace(lr.Name)
		price, err := s.stock.PriceFor(ctx, name, p.ProviderTier)
		if err != nil {
			return nil, err
		}
		rx.Lines = append(rx.Lines, &Line{
			Name:      name,
			Dosage:    lr.Dosage,
			Frequency: lr.Frequency,
			Duration:  lr.Duration,
			Quantity:  lr.Quantity,
			UnitPrice: pricing.Round2(price),
		})
	}
	rx.Total = total(rx.Lines)

	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		line := &encounter.EncounterCharge{
			EncounterID: enc.ID,
			Name:        chargeName(rx.Lines),
			Category:    charge.CategoryDrug,
			Quantity:    1,
			UnitPrice:   rx.Total,
			CreatedBy:   sess.UserID,
		}
		if err := s.encounters.AttachCharge(ctx, line); err != nil {
			return err
		}
		rx.EncounterChargeID = &line.ID
		return s.repo.Create(ctx, rx)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("prescription_id", rx.ID.String()).
		Str("encounter_id", enc.ID.String()).
		Int("lines", len(rx.Lines)).
		Float64("total", rx.Total).
		Str("user_id", sess.UserID).
		Msg("prescription created")
	return rx, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Prescription, int, error) {
	return s.repo.List(ctx, f, limit, offset)
}

func (s *Service) DispenseLines(ctx context.Context, id uuid.UUID) ([]*DispenseLine, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.ListDispenseLines(ctx, id)
}

// Dispense takes the prescription out of stock once its charge is paid.
// Staff with an assigned pharmacy dispense from that pharmacy only. Either
// every line is dispensed or nothing is.
func (s *Service) Dispense(ctx context.Context, sess auth.Session, id uuid.UUID) (*Prescription, error) {
	var (
		rx    *Prescription
		lines []*DispenseLine
	)
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		rx, err = s.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if rx.Status != StatusPending {
			return ErrAlreadyDispensed
		}
		if err := s.requirePaid(ctx, rx); err != nil {
			return err
		}

		reqs := make([]inventory.Request, len(rx.Lines))
		prices := make(map[string]float64, len(rx.Lines))
		for i, l := range rx.Lines {
			reqs[i] = inventory.Request{Name: l.Name, Quantity: l.Quantity}
			key := strings.ToLower(l.Name)
			if _, ok := prices[key]; !ok {
				prices[key] = l.UnitPrice
			}
		}

		allocs, err := s.stock.Deduct(ctx, reqs, sess.AssignedPharmacy)
		if err != nil {
			return err
		}

		now := s.now()
		for _, a := range allocs {
			lines = append(lines, &DispenseLine{
				PrescriptionID:  rx.ID,
				InventoryItemID: a.ItemID,
				PharmacyID:      a.PharmacyID,
				Name:            a.Name,
				Quantity:        a.Quantity,
				UnitPrice:       prices[strings.ToLower(a.Requested)],
				UnitCost:        a.UnitCost,
				DispensedBy:     sess.UserID,
				DispensedAt:     now,
			})
		}
		if err := s.repo.AddDispenseLines(ctx, lines); err != nil {
			return err
		}
		if err := s.repo.MarkDispensed(ctx, rx.ID, sess.UserID, now); err != nil {
			return err
		}
		rx.Status = StatusDispensed
		rx.DispensedBy = &sess.UserID
		rx.DispensedAt = &now
		return nil
	})
	if err != nil {
		metrics.RecordDispense(dispenseOutcome(err))
		return nil, err
	}

	metrics.RecordDispense("dispensed")
	ev := s.log.Info().
		Str("prescription_id", id.String()).
		Int("stock_lines", len(lines)).
		Str("user_id", sess.UserID)
	if sess.AssignedPharmacy != nil {
		ev = ev.Str("pharmacy_id", sess.AssignedPharmacy.String())
	}
	ev.Msg("prescription dispensed")
	return rx, nil
}

// requirePaid passes when the linked charge is paid or costs nothing.
func (s *Service) requirePaid(ctx context.Context, rx *Prescription) error {
	if rx.EncounterChargeID == nil {
		if rx.Total == 0 {
			return nil
		}
		return ErrUnpaid
	}
	line, err := s.encounters.GetCharge(ctx, rx.EncounterID, *rx.EncounterChargeID)
	if err != nil {
		return err
	}
	if !line.Paid && line.Amount() > 0 {
		return ErrUnpaid.Withf("charge %q of %s is unpaid", line.Name, pricing.FormatAmount(line.Amount()))
	}
	return nil
}

func dispenseOutcome(err error) string {
	switch {
	case errors.Is(err, inventory.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, inventory.ErrStockChanged):
		return "stock_changed"
	case errors.Is(err, ErrUnpaid):
		return "unpaid"
	case errors.Is(err, ErrAlreadyDispensed):
		return "already_dispensed"
	}
	return "error"
}
