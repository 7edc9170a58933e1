package patient

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/emr/emr/internal/domain/pricing"
	"github.com/emr/emr/pkg/apperr"
)

var (
	ErrNotFound    = apperr.NotFound("patient")
	ErrHMONotFound = apperr.NotFound("hmo")
	ErrHMOExists   = apperr.Conflict("HMO_EXISTS", "an hmo with this name already serves this tier")
	ErrHMORequired = apperr.Validation("hmo_id is required for insured provider tiers", map[string]string{"hmo_id": "required"})
	ErrHMOInactive = apperr.Unprocessable("HMO_INACTIVE", "hmo is not active")
	ErrHMOTier     = apperr.Unprocessable("HMO_TIER_MISMATCH", "hmo does not serve the patient's provider tier")
	ErrInvalidTier = apperr.Validation("invalid provider tier", map[string]string{"provider_tier": "must be Standard, Retainership, NHIA or KSCHMA"})
	ErrGender      = apperr.Validation("invalid gender", map[string]string{"gender": "must be male, female or other"})
)

const (
	DefaultRecent = 10
	MaxRecent     = 100
)

type Service struct {
	patients PatientRepository
	hmos     HMORepository
}

func NewService(patients PatientRepository, hmos HMORepository) *Service {
	return &Service{patients: patients, hmos: hmos}
}

// -- Patient --

func (s *Service) CreatePatient(ctx context.Context, p *Patient) error {
	if err := s.normalize(ctx, p, nil); err != nil {
		return err
	}
	return s.patients.Create(ctx, p)
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

func (s *Service) GetPatientByMRN(ctx context.Context, mrn string) (*Patient, error) {
	return s.patients.GetByMRN(ctx, strings.ToUpper(strings.TrimSpace(mrn)))
}

// UpdatePatient replaces the editable fields of an existing patient. MRN and
// timestamps are kept from the stored record.
func (s *Service) UpdatePatient(ctx context.Context, p *Patient) error {
	existing, err := s.patients.GetByID(ctx, p.ID)
	if err != nil {
		return err
	}
	if err := s.normalize(ctx, p, existing.HMOID); err != nil {
		return err
	}
	p.MRN = existing.MRN
	p.CreatedAt = existing.CreatedAt
	return s.patients.Update(ctx, p)
}

// DeletePatient hides the patient from every listing. Encounters and bills
// keep referencing the row.
func (s *Service) DeletePatient(ctx context.Context, id uuid.UUID) error {
	return s.patients.SoftDelete(ctx, id)
}

func (s *Service) ListPatients(ctx context.Context, f ListFilter, limit, offset int) ([]*Patient, int, error) {
	return s.patients.List(ctx, f, limit, offset)
}

func (s *Service) RecentPatients(ctx context.Context, n int) ([]*Patient, error) {
	if n <= 0 {
		n = DefaultRecent
	}
	if n > MaxRecent {
		n = MaxRecent
	}
	return s.patients.Recent(ctx, n)
}

// normalize resolves the provider tier and applies the HMO eligibility rule:
// Standard patients never carry an HMO, insured tiers need an active HMO
// serving that same tier. A patient may keep an HMO deactivated after they
// were linked to it.
func (s *Service) normalize(ctx context.Context, p *Patient, linked *uuid.UUID) error {
	p.FirstName = strings.TrimSpace(p.FirstName)
	p.LastName = strings.TrimSpace(p.LastName)
	p.Gender = strings.ToLower(strings.TrimSpace(p.Gender))
	switch p.Gender {
	case "male", "female", "other":
	default:
		return ErrGender
	}

	tier := pricing.TierStandard
	if p.ProviderTier != "" {
		t, err := pricing.ParseTier(string(p.ProviderTier))
		if err != nil {
			return ErrInvalidTier
		}
		tier = t
	}
	p.ProviderTier = tier

	if !tier.Insured() {
		p.HMOID = nil
		p.InsuranceNumber = nil
		return nil
	}
	if p.HMOID == nil || *p.HMOID == uuid.Nil {
		return ErrHMORequired
	}
	hmo, err := s.hmos.GetByID(ctx, *p.HMOID)
	if err != nil {
		return err
	}
	if !hmo.Active && (linked == nil || *linked != hmo.ID) {
		return ErrHMOInactive.Withf("hmo %s is not active", hmo.Name)
	}
	if hmo.Tier != tier {
		return ErrHMOTier.Withf("hmo %s serves %s patients, not %s", hmo.Name, hmo.Tier, tier)
	}
	return nil
}

// -- HMO --

func (s *Service) CreateHMO(ctx context.Context, h *HMO) error {
	if err := normalizeHMO(h); err != nil {
		return err
	}
	h.Active = true
	return s.hmos.Create(ctx, h)
}

func (s *Service) GetHMO(ctx context.Context, id uuid.UUID) (*HMO, error) {
	return s.hmos.GetByID(ctx, id)
}

func (s *Service) UpdateHMO(ctx context.Context, h *HMO) error {
	if _, err := s.hmos.GetByID(ctx, h.ID); err != nil {
		return err
	}
	if err := normalizeHMO(h); err != nil {
		return err
	}
	return s.hmos.Update(ctx, h)
}

// DeactivateHMO stops new enrolments. Patients already linked keep the HMO.
func (s *Service) DeactivateHMO(ctx context.Context, id uuid.UUID) error {
	return s.hmos.Deactivate(ctx, id)
}

func (s *Service) ListHMOs(ctx context.Context, activeOnly bool) ([]*HMO, error) {
	return s.hmos.List(ctx, activeOnly)
}

func normalizeHMO(h *HMO) error {
	h.Name = strings.TrimSpace(h.Name)
	t, err := pricing.ParseTier(string(h.Tier))
	if err != nil || !t.Insured() {
		return apperr.Validation("hmo tier must be Retainership, NHIA or KSCHMA", map[string]string{"tier": "invalid"})
	}
	h.Tier = t
	return nil
}
