package settings

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/emr/emr/internal/platform/cache"
	"github.com/emr/emr/internal/platform/db"
	"github.com/emr/emr/pkg/apperr"
)

var (
	ErrNotConfigured = apperr.NotFound("hospital settings")
	ErrBankNotFound  = apperr.NotFound("bank account")
	ErrDuplicateBank = apperr.Conflict("BANK_EXISTS", "this account number is already registered for the bank")
)

const hospitalKey = "settings:hospital"

type Service struct {
	repo  Repository
	tx    db.Transactor
	cache cache.Cache
	ttl   time.Duration
	log   zerolog.Logger
}

func NewService(repo Repository, tx db.Transactor, c cache.Cache, ttl time.Duration, log zerolog.Logger) *Service {
	return &Service{repo: repo, tx: tx, cache: c, ttl: ttl, log: log}
}

// Hospital is read on every page load by unauthenticated clients, so it is
// served from cache.
func (s *Service) Hospital(ctx context.Context) (*Hospital, error) {
	return cache.Remember(ctx, s.cache, s.log, hospitalKey, s.ttl, s.repo.GetHospital)
}

func (s *Service) UpdateHospital(ctx context.Context, h *Hospital) error {
	h.Name = strings.TrimSpace(h.Name)
	h.CurrencySymbol = strings.TrimSpace(h.CurrencySymbol)
	if err := s.repo.UpdateHospital(ctx, h); err != nil {
		return err
	}
	cache.Invalidate(ctx, s.cache, s.log, hospitalKey)
	s.log.Info().Str("name", h.Name).Msg("hospital settings updated")
	return nil
}

func (s *Service) ListBanks(ctx context.Context) ([]*Bank, error) {
	return s.repo.ListBanks(ctx)
}

func (s *Service) GetBank(ctx context.Context, id uuid.UUID) (*Bank, error) {
	return s.repo.GetBank(ctx, id)
}

func normalizeBank(b *Bank) {
	b.BankName = strings.TrimSpace(b.BankName)
	b.AccountName = strings.TrimSpace(b.AccountName)
	b.AccountNumber = strings.TrimSpace(b.AccountNumber)
}

// CreateBank adds an account. A new default replaces the previous one in the
// same transaction.
func (s *Service) CreateBank(ctx context.Context, b *Bank) error {
	normalizeBank(b)
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		if b.IsDefault {
			if err := s.repo.ClearDefault(ctx, uuid.Nil); err != nil {
				return err
			}
		}
		return s.repo.CreateBank(ctx, b)
	})
}

func (s *Service) UpdateBank(ctx context.Context, b *Bank) error {
	normalizeBank(b)
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		if b.IsDefault {
			if err := s.repo.ClearDefault(ctx, b.ID); err != nil {
				return err
			}
		}
		return s.repo.UpdateBank(ctx, b)
	})
}

func (s *Service) DeleteBank(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteBank(ctx, id)
}

// SetDefault makes id the only default account.
func (s *Service) SetDefault(ctx context.Context, id uuid.UUID) (*Bank, error) {
	var out *Bank
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := s.repo.GetBank(ctx, id); err != nil {
			return err
		}
		if err := s.repo.ClearDefault(ctx, id); err != nil {
			return err
		}
		if err := s.repo.MarkDefault(ctx, id); err != nil {
			return err
		}
		b, err := s.repo.GetBank(ctx, id)
		out = b
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("bank_id", id.String()).Msg("default bank changed")
	return out, nil
}
