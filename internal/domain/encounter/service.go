package encounter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/emr/emr/internal/domain/charge"
	"github.com/emr/emr/internal/domain/patient"
	"github.com/emr/emr/internal/domain/pricing"
	"github.com/emr/emr/internal/domain/ward"
	"github.com/emr/emr/internal/platform/auth"
	"github.com/emr/emr/internal/platform/db"
	"github.com/emr/emr/internal/platform/metrics"
	"github.com/emr/emr/pkg/apperr"
)

var (
	ErrNotFound          = apperr.NotFound("encounter")
	ErrChargeNotFound    = apperr.NotFound("encounter charge")
	ErrInvalidType       = apperr.Validation("invalid encounter type", map[string]string{"type": "must be Outpatient, Inpatient, Emergency, Follow-up, External Investigation or Consultation"})
	ErrInvalidStatus     = apperr.Validation("invalid encounter status", map[string]string{"status": "unknown status"})
	ErrWardRequired      = apperr.Validation("inpatient encounters require a ward and a bed", map[string]string{"ward_id": "required", "bed_id": "required"})
	ErrDuplicateToday    = apperr.Conflict("ENCOUNTER_EXISTS_TODAY", "patient already has an encounter today")
	ErrInpatientOpen     = apperr.Conflict("INPATIENT_NOT_DISCHARGED", "patient has an inpatient encounter that is not discharged")
	ErrInvalidTransition = apperr.Conflict("INVALID_STATUS_TRANSITION", "status transition not allowed")
	ErrClosed            = apperr.Conflict("ENCOUNTER_CLOSED", "encounter is closed")
	ErrInUse             = apperr.Conflict("ENCOUNTER_IN_USE", "encounter has prescriptions and cannot be deleted")
	ErrHasPayments       = apperr.Conflict("ENCOUNTER_HAS_PAYMENTS", "encounter has paid charges and cannot be deleted")
	ErrChargePaid        = apperr.Conflict("CHARGE_PAID", "paid charges cannot be removed")
	ErrChargeLinked      = apperr.Conflict("CHARGE_LINKED", "charge belongs to a prescription")
	ErrNothingToPay      = apperr.Conflict("NOTHING_TO_PAY", "encounter has no unpaid charges")
	ErrPaymentPending    = apperr.PaymentRequired("PAYMENT_PENDING", "encounter is awaiting payment")
	ErrUnpaidCharges     = apperr.PaymentRequired("UNPAID_CHARGES", "department charges are unpaid")
	ErrNoWard            = apperr.Unprocessable("NO_WARD", "encounter has no ward")
	ErrInvalidCharge     = apperr.Validation("invalid charge line", nil)
	ErrInvalidDepartment = apperr.Validation("invalid department", map[string]string{"department": "must be pharmacy, lab, radiology, nursing, consultation or ward"})
)

// PatientReader resolves the patient an encounter is for.
type PatientReader interface {
	GetPatient(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
}

// ChargeCatalog resolves catalog charges selected at registration.
type ChargeCatalog interface {
	ActiveCharges(ctx context.Context, ids []uuid.UUID) ([]*charge.Charge, error)
}

// BedAllocator reads ward rates and flips bed occupancy.
type BedAllocator interface {
	GetWard(ctx context.Context, id uuid.UUID) (*ward.Ward, error)
	OccupyBed(ctx context.Context, wardID, bedID uuid.UUID) error
	ReleaseBed(ctx context.Context, bedID uuid.UUID) error
}

type Options struct {
	Policy   Policy
	Location *time.Location
	Logger   zerolog.Logger
	Now      func() time.Time
}

type Service struct {
	repo     Repository
	patients PatientReader
	charges  ChargeCatalog
	beds     BedAllocator
	tx       db.Transactor
	policy   Policy
	loc      *time.Location
	log      zerolog.Logger
	now      func() time.Time
}

func NewService(repo Repository, patients PatientReader, charges ChargeCatalog, beds BedAllocator, tx db.Transactor, opts Options) *Service {
	s := &Service{
		repo:     repo,
		patients: patients,
		charges:  charges,
		beds:     beds,
		tx:       tx,
		policy:   opts.Policy,
		loc:      opts.Location,
		log:      opts.Logger,
		now:      opts.Now,
	}
	if s.policy == "" {
		s.policy = PolicyStrict
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Policy is the configured transition policy.
func (s *Service) Policy() Policy {
	return s.policy
}

type CreateRequest struct {
	PatientID      uuid.UUID   `json:"patient_id" validate:"required"`
	Type           string      `json:"type" validate:"required"`
	ChargeIDs      []uuid.UUID `json:"charge_ids"`
	WardID         *uuid.UUID  `json:"ward_id,omitempty"`
	BedID          *uuid.UUID  `json:"bed_id,omitempty"`
	Clinic         *string     `json:"clinic,omitempty" validate:"omitempty,max=100"`
	ChiefComplaint *string     `json:"chief_complaint,omitempty"`
	Notes          *string     `json:"notes,omitempty"`
}

// CreateEncounter registers a visit with its selected charges. Every step
// runs in one transaction under a per-patient lock, so a failure leaves
// nothing behind and concurrent registrations for one patient serialize.
func (s *Service) CreateEncounter(ctx context.Context, sess auth.Session, req CreateRequest) (*Encounter, error) {
	typ, err := ParseType(req.Type)
	if err != nil {
		return nil, ErrInvalidType
	}
	if typ == TypeInpatient && (req.WardID == nil || req.BedID == nil) {
		metrics.RecordEncounterRejected("ward_required")
		return nil, ErrWardRequired
	}
	if typ != TypeInpatient {
		req.WardID, req.BedID = nil, nil
	}

	p, err := s.patients.GetPatient(ctx, req.PatientID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	enc := &Encounter{
		PatientID:      p.ID,
		Type:           typ,
		EncounterDate:  now.In(s.loc).Format(time.DateOnly),
		WardID:         req.WardID,
		BedID:          req.BedID,
		Clinic:         req.Clinic,
		ChiefComplaint: req.ChiefComplaint,
		Notes:          req.Notes,
		CreatedBy:      sess.UserID,
		StartedAt:      now,
	}

	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.repo.LockPatient(ctx, p.ID); err != nil {
			return err
		}

		exists, err := s.repo.ExistsOnDate(ctx, p.ID, enc.EncounterDate)
		if err != nil {
			return err
		}
		if exists {
			return ErrDuplicateToday.Withf("patient %s already has an encounter on %s", p.MRN, enc.EncounterDate)
		}

		open, err := s.repo.OpenInpatient(ctx, p.ID)
		if err != nil {
			return err
		}
		if open != nil {
			return ErrInpatientOpen.Withf("inpatient encounter %s is %s; discharge it first", open.ID, open.Status)
		}

		selected, err := s.charges.ActiveCharges(ctx, dedupe(req.ChargeIDs))
		if err != nil {
			return err
		}
		total := pricing.Total(selected, p.ProviderTier)
		enc.Status = InitialStatus(typ, total)

		if enc.BedID != nil {
			if err := s.beds.OccupyBed(ctx, *enc.WardID, *enc.BedID); err != nil {
				return err
			}
		}

		if err := s.repo.Create(ctx, enc); err != nil {
			return err
		}

		for _, c := range selected {
			id := c.ID
			line := &EncounterCharge{
				EncounterID: enc.ID,
				ChargeID:    &id,
				Name:        c.Name,
				Category:    c.Category,
				Quantity:    1,
				UnitPrice:   pricing.UnitPrice(c, p.ProviderTier),
				CreatedBy:   sess.UserID,
			}
			if err := s.repo.AddCharge(ctx, line); err != nil {
				return fmt.Errorf("attach charge %s: %w", c.Name, err)
			}
			enc.Charges = append(enc.Charges, line)
		}
		enc.Total = pricing.Round2(total)

		return s.repo.AddStatusChange(ctx, &StatusChange{
			EncounterID: enc.ID,
			To:          enc.Status,
			ChangedBy:   sess.UserID,
		})
	})
	if err != nil {
		metrics.RecordEncounterRejected(rejectReason(err))
		return nil, err
	}

	metrics.RecordEncounterCreated(string(enc.Type), string(enc.Status))
	s.log.Info().
		Str("encounter_id", enc.ID.String()).
		Str("patient_id", p.ID.String()).
		Str("type", string(enc.Type)).
		Str("status", string(enc.Status)).
		Float64("total", enc.Total).
		Str("user_id", sess.UserID).
		Msg("encounter created")
	return enc, nil
}

func rejectReason(err error) string {
	var ae *apperr.AppError
	if errors.As(err, &ae) {
		return strings.ToLower(ae.Code)
	}
	return "error"
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// UpdateStatus moves the encounter to a new status under the configured
// policy. Closing releases the bed; reopening a closed inpatient encounter
// reclaims it.
func (s *Service) UpdateStatus(ctx context.Context, sess auth.Session, id uuid.UUID, to Status) (*Encounter, error) {
	var (
		enc      *Encounter
		from     Status
		offTable bool
		changed  bool
	)
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		enc, err = s.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		from = enc.Status
		if from == to {
			return nil
		}

		offTable, err = s.policy.Check(from, to)
		if err != nil {
			return err
		}

		if err := s.moveBed(ctx, enc, from, to); err != nil {
			return err
		}
		if err := s.setStatus(ctx, sess, enc, to, offTable); err != nil {
			return err
		}
		changed = true
		return nil
	})
	if errors.Is(err, ErrInvalidTransition) {
		metrics.RecordStatusTransition(string(from), string(to), false)
	}
	if err != nil {
		return nil, err
	}
	if !changed {
		return enc, nil
	}

	metrics.RecordStatusTransition(string(from), string(to), !offTable)
	ev := s.log.Info()
	if offTable {
		ev = s.log.Warn().Bool("off_table", true)
	}
	ev.Str("encounter_id", id.String()).
		Str("from", string(from)).
		Str("to", string(to)).
		Str("user_id", sess.UserID).
		Msg("encounter status changed")
	return enc, nil
}

func (s *Service) moveBed(ctx context.Context, enc *Encounter, from, to Status) error {
	if enc.BedID == nil {
		return nil
	}
	switch {
	case to.Closed() && !from.Closed():
		return s.beds.ReleaseBed(ctx, *enc.BedID)
	case from.Closed() && !to.Closed():
		return s.beds.OccupyBed(ctx, *enc.WardID, *enc.BedID)
	}
	return nil
}

// setStatus persists a status change with its history row. Must run in a
// transaction holding the encounter row.
func (s *Service) setStatus(ctx context.Context, sess auth.Session, enc *Encounter, to Status, offTable bool) error {
	from := enc.Status
	var endedAt *time.Time
	if to.Closed() {
		t := s.now()
		endedAt = &t
	}
	if err := s.repo.UpdateStatus(ctx, enc.ID, to, endedAt); err != nil {
		return err
	}
	enc.Status = to
	enc.EndedAt = endedAt
	return s.repo.AddStatusChange(ctx, &StatusChange{
		EncounterID: enc.ID,
		From:        &from,
		To:          to,
		ChangedBy:   sess.UserID,
		OffTable:    offTable,
	})
}

type UpdateRequest struct {
	Status         *string `json:"status,omitempty"`
	Clinic         *string `json:"clinic,omitempty" validate:"omitempty,max=100"`
	ChiefComplaint *string `json:"chief_complaint,omitempty"`
	Notes          *string `json:"notes,omitempty"`
}

// UpdateEncounter edits the free-text details and, when a status is given,
// applies it through UpdateStatus.
func (s *Service) UpdateEncounter(ctx context.Context, sess auth.Session, id uuid.UUID, req UpdateRequest) (*Encounter, error) {
	var to Status
	if req.Status != nil {
		st, err := ParseStatus(*req.Status)
		if err != nil {
			return nil, ErrInvalidStatus
		}
		to = st
	}

	if req.Clinic != nil || req.ChiefComplaint != nil || req.Notes != nil {
		enc, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if req.Clinic != nil {
			enc.Clinic = req.Clinic
		}
		if req.ChiefComplaint != nil {
			enc.ChiefComplaint = req.ChiefComplaint
		}
		if req.Notes != nil {
			enc.Notes = req.Notes
		}
		if err := s.repo.UpdateDetails(ctx, enc); err != nil {
			return nil, err
		}
	}

	if to != "" {
		if _, err := s.UpdateStatus(ctx, sess, id, to); err != nil {
			return nil, err
		}
	}
	return s.GetEncounter(ctx, id)
}

// ConfirmPayment settles every unpaid charge. An encounter waiting on
// payment moves on to nursing.
func (s *Service) ConfirmPayment(ctx context.Context, sess auth.Session, id uuid.UUID) (*Bill, error) {
	var bill *Bill
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		enc, err := s.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if enc.Status == StatusCancelled {
			return ErrClosed.Withf("encounter %s is cancelled", id)
		}

		n, err := s.repo.MarkPaid(ctx, id, sess.UserID, s.now())
		if err != nil {
			return err
		}
		if n == 0 && enc.Status != StatusPaymentPending {
			return ErrNothingToPay
		}
		if enc.Status == StatusPaymentPending {
			if err := s.setStatus(ctx, sess, enc, StatusInNursing, false); err != nil {
				return err
			}
		}

		bill, err = s.bill(ctx, enc)
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordPaymentConfirmed()
	s.log.Info().
		Str("encounter_id", id.String()).
		Float64("paid", bill.Paid).
		Str("user_id", sess.UserID).
		Msg("payment confirmed")
	return bill, nil
}

// Department is a service point that checks an encounter before serving it.
type Department string

const (
	DeptPharmacy     Department = "pharmacy"
	DeptLab          Department = "lab"
	DeptRadiology    Department = "radiology"
	DeptNursing      Department = "nursing"
	DeptConsultation Department = "consultation"
	DeptWard         Department = "ward"
)

// Category is the charge category a department bills under.
func (d Department) Category() (charge.Category, error) {
	switch d {
	case DeptPharmacy:
		return charge.CategoryDrug, nil
	case DeptLab:
		return charge.CategoryLab, nil
	case DeptRadiology:
		return charge.CategoryRadiology, nil
	case DeptNursing:
		return charge.CategoryNursing, nil
	case DeptConsultation:
		return charge.CategoryConsultation, nil
	case DeptWard:
		return charge.CategoryWard, nil
	}
	return "", fmt.Errorf("unknown department %q", d)
}

// Serviceability is the positive answer of RequireServiceable.
type Serviceability struct {
	EncounterID uuid.UUID  `json:"encounter_id"`
	Department  Department `json:"department"`
	Status      Status     `json:"status"`
	Serviceable bool       `json:"serviceable"`
}

// RequireServiceable returns an error unless dept may serve the encounter:
// it must be open, past payment_pending, and have no unpaid charges in the
// department's category.
func (s *Service) RequireServiceable(ctx context.Context, id uuid.UUID, dept Department) (*Serviceability, error) {
	cat, err := dept.Category()
	if err != nil {
		return nil, ErrInvalidDepartment
	}
	enc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if enc.Status.Closed() {
		return nil, ErrClosed.Withf("encounter is %s", enc.Status)
	}
	if enc.Status == StatusPaymentPending {
		return nil, ErrPaymentPending
	}

	lines, err := s.repo.ListCharges(ctx, id)
	if err != nil {
		return nil, err
	}
	var unpaid []string
	var owed float64
	for _, l := range lines {
		if l.Category == cat && !l.Paid {
			unpaid = append(unpaid, l.Name)
			owed += l.Amount()
		}
	}
	if len(unpaid) > 0 {
		return nil, ErrUnpaidCharges.
			Withf("%d unpaid %s charge(s) totalling %s", len(unpaid), cat, pricing.FormatAmount(owed)).
			WithDetails(map[string]any{"unpaid": unpaid, "amount": pricing.Round2(owed)})
	}
	return &Serviceability{EncounterID: id, Department: dept, Status: enc.Status, Serviceable: true}, nil
}

type AddChargeRequest struct {
	ChargeID  *uuid.UUID `json:"charge_id,omitempty"`
	Name      string     `json:"name,omitempty" validate:"omitempty,max=255"`
	Category  string     `json:"category,omitempty"`
	Quantity  int        `json:"quantity" validate:"omitempty,gte=1,lte=10000"`
	UnitPrice *float64   `json:"unit_price,omitempty" validate:"omitempty,gte=0"`
}

// AddCharge attaches a catalog charge priced for the patient's tier, or an
// ad hoc line with an explicit price.
func (s *Service) AddCharge(ctx context.Context, sess auth.Session, encounterID uuid.UUID, req AddChargeRequest) (*EncounterCharge, error) {
	qty := req.Quantity
	if qty < 1 {
		qty = 1
	}
	line := &EncounterCharge{EncounterID: encounterID, Quantity: qty, CreatedBy: sess.UserID}

	if req.ChargeID != nil {
		enc, err := s.repo.GetByID(ctx, encounterID)
		if err != nil {
			return nil, err
		}
		p, err := s.patients.GetPatient(ctx, enc.PatientID)
		if err != nil {
			return nil, err
		}
		found, err := s.charges.ActiveCharges(ctx, []uuid.UUID{*req.ChargeID})
		if err != nil {
			return nil, err
		}
		c := found[0]
		line.ChargeID = &c.ID
		line.Name = c.Name
		line.Category = c.Category
		line.UnitPrice = pricing.UnitPrice(c, p.ProviderTier)
	} else {
		cat, err := charge.ParseCategory(req.Category)
		if err != nil || strings.TrimSpace(req.Name) == "" || req.UnitPrice == nil {
			return nil, ErrInvalidCharge.Withf("name, category and unit_price are required without charge_id")
		}
		line.Name = strings.TrimSpace(req.Name)
		line.Category = cat
		line.UnitPrice = pricing.Round2(*req.UnitPrice)
	}

	if err := s.AttachCharge(ctx, line); err != nil {
		return nil, err
	}
	return line, nil
}

// AttachCharge stores a priced line on an open encounter. Joins the caller's
// transaction when there is one.
func (s *Service) AttachCharge(ctx context.Context, line *EncounterCharge) error {
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		enc, err := s.repo.GetForUpdate(ctx, line.EncounterID)
		if err != nil {
			return err
		}
		if enc.Status.Closed() {
			return ErrClosed.Withf("cannot add charges to a %s encounter", enc.Status)
		}
		if line.Quantity < 1 {
			line.Quantity = 1
		}
		return s.repo.AddCharge(ctx, line)
	})
}

func (s *Service) RemoveCharge(ctx context.Context, encounterID, lineID uuid.UUID) error {
	return s.repo.RemoveCharge(ctx, encounterID, lineID)
}

func (s *Service) ListCharges(ctx context.Context, encounterID uuid.UUID) ([]*EncounterCharge, error) {
	if _, err := s.repo.GetByID(ctx, encounterID); err != nil {
		return nil, err
	}
	return s.repo.ListCharges(ctx, encounterID)
}

// GetCharge returns one line of the encounter.
func (s *Service) GetCharge(ctx context.Context, encounterID, lineID uuid.UUID) (*EncounterCharge, error) {
	return s.repo.GetCharge(ctx, encounterID, lineID)
}

func (s *Service) Bill(ctx context.Context, id uuid.UUID) (*Bill, error) {
	enc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.bill(ctx, enc)
}

func (s *Service) bill(ctx context.Context, enc *Encounter) (*Bill, error) {
	p, err := s.patients.GetPatient(ctx, enc.PatientID)
	if err != nil {
		return nil, err
	}
	lines, err := s.repo.ListCharges(ctx, enc.ID)
	if err != nil {
		return nil, err
	}
	return BuildBill(enc, p.ProviderTier, lines), nil
}

// AddWardCharge bills days in the encounter's ward at the patient's tier
// daily rate.
func (s *Service) AddWardCharge(ctx context.Context, sess auth.Session, id uuid.UUID, days int) (*EncounterCharge, error) {
	if days < 1 {
		return nil, apperr.Validation("days must be at least 1", map[string]string{"days": "min 1"})
	}
	enc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if enc.WardID == nil {
		return nil, ErrNoWard
	}
	w, err := s.beds.GetWard(ctx, *enc.WardID)
	if err != nil {
		return nil, err
	}
	p, err := s.patients.GetPatient(ctx, enc.PatientID)
	if err != nil {
		return nil, err
	}

	stay := w.Stay(days)
	line := &EncounterCharge{
		EncounterID: id,
		Name:        fmt.Sprintf("%s ward stay", w.Name),
		Category:    charge.CategoryWard,
		Quantity:    stay.Qty(),
		UnitPrice:   pricing.UnitPrice(stay, p.ProviderTier),
		CreatedBy:   sess.UserID,
	}
	if err := s.AttachCharge(ctx, line); err != nil {
		return nil, err
	}
	return line, nil
}

func (s *Service) AddDiagnosis(ctx context.Context, sess auth.Session, d *Diagnosis) error {
	enc, err := s.repo.GetByID(ctx, d.EncounterID)
	if err != nil {
		return err
	}
	if enc.Status == StatusCancelled {
		return ErrClosed.Withf("encounter is cancelled")
	}
	d.Description = strings.TrimSpace(d.Description)
	d.RecordedBy = sess.UserID
	return s.repo.AddDiagnosis(ctx, d)
}

func (s *Service) ListDiagnoses(ctx context.Context, id uuid.UUID) ([]*Diagnosis, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.ListDiagnoses(ctx, id)
}

func (s *Service) ListStatusHistory(ctx context.Context, id uuid.UUID) ([]*StatusChange, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.ListStatusHistory(ctx, id)
}

// GetEncounter returns the encounter with its charge lines and total.
func (s *Service) GetEncounter(ctx context.Context, id uuid.UUID) (*Encounter, error) {
	enc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	lines, err := s.repo.ListCharges(ctx, id)
	if err != nil {
		return nil, err
	}
	enc.Charges = lines
	var total float64
	for _, l := range lines {
		total += l.Amount()
	}
	enc.Total = pricing.Round2(total)
	return enc, nil
}

func (s *Service) ListEncounters(ctx context.Context, f ListFilter, limit, offset int) ([]*Encounter, int, error) {
	return s.repo.List(ctx, f, limit, offset)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Encounter, int, error) {
	if _, err := s.patients.GetPatient(ctx, patientID); err != nil {
		return nil, 0, err
	}
	return s.repo.List(ctx, ListFilter{PatientID: &patientID}, limit, offset)
}

// DeleteEncounter removes an encounter that has taken no payment and frees
// its bed.
func (s *Service) DeleteEncounter(ctx context.Context, sess auth.Session, id uuid.UUID) error {
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		enc, err := s.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		lines, err := s.repo.ListCharges(ctx, id)
		if err != nil {
			return err
		}
		for _, l := range lines {
			if l.Paid {
				return ErrHasPayments
			}
		}
		if enc.BedID != nil && !enc.Status.Closed() {
			if err := s.beds.ReleaseBed(ctx, *enc.BedID); err != nil {
				return err
			}
		}
		return s.repo.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.log.Info().Str("encounter_id", id.String()).Str("user_id", sess.UserID).Msg("encounter deleted")
	return nil
}
