package settings

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/emr/emr/internal/platform/cache"
)

var errTwoDefaults = errors.New("duplicate key value violates unique constraint \"uq_bank_account_default\"")

type mockRepo struct {
	hospital     *Hospital
	hospitalGets int
	banks        map[uuid.UUID]*Bank
	failMark     bool
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		hospital: &Hospital{Name: "General Hospital", CurrencySymbol: "₦"},
		banks:    make(map[uuid.UUID]*Bank),
	}
}

func (m *mockRepo) GetHospital(context.Context) (*Hospital, error) {
	m.hospitalGets++
	if m.hospital == nil {
		return nil, ErrNotConfigured
	}
	h := *m.hospital
	return &h, nil
}

func (m *mockRepo) UpdateHospital(_ context.Context, h *Hospital) error {
	h.UpdatedAt = time.Now()
	c := *h
	m.hospital = &c
	return nil
}

func (m *mockRepo) ListBanks(context.Context) ([]*Bank, error) {
	out := make([]*Bank, 0, len(m.banks))
	for _, b := range m.banks {
		c := *b
		out = append(out, &c)
	}
	return out, nil
}

func (m *mockRepo) GetBank(_ context.Context, id uuid.UUID) (*Bank, error) {
	b, ok := m.banks[id]
	if !ok {
		return nil, ErrBankNotFound
	}
	c := *b
	return &c, nil
}

// checkDefault mirrors the partial unique index on is_default.
func (m *mockRepo) checkDefault(id uuid.UUID) error {
	for other, b := range m.banks {
		if other != id && b.IsDefault {
			return errTwoDefaults
		}
	}
	return nil
}

func (m *mockRepo) CreateBank(_ context.Context, b *Bank) error {
	for _, o := range m.banks {
		if o.BankName == b.BankName && o.AccountNumber == b.AccountNumber {
			return ErrDuplicateBank
		}
	}
	b.ID = uuid.New()
	if b.IsDefault {
		if err := m.checkDefault(b.ID); err != nil {
			return err
		}
	}
	c := *b
	m.banks[b.ID] = &c
	return nil
}

func (m *mockRepo) UpdateBank(_ context.Context, b *Bank) error {
	if _, ok := m.banks[b.ID]; !ok {
		return ErrBankNotFound
	}
	if b.IsDefault {
		if err := m.checkDefault(b.ID); err != nil {
			return err
		}
	}
	c := *b
	m.banks[b.ID] = &c
	return nil
}

func (m *mockRepo) DeleteBank(_ context.Context, id uuid.UUID) error {
	if _, ok := m.banks[id]; !ok {
		return ErrBankNotFound
	}
	delete(m.banks, id)
	return nil
}

func (m *mockRepo) ClearDefault(_ context.Context, keep uuid.UUID) error {
	for id, b := range m.banks {
		if id != keep {
			b.IsDefault = false
		}
	}
	return nil
}

func (m *mockRepo) MarkDefault(_ context.Context, id uuid.UUID) error {
	if m.failMark {
		return errors.New("connection reset")
	}
	b, ok := m.banks[id]
	if !ok {
		return ErrBankNotFound
	}
	if err := m.checkDefault(id); err != nil {
		return err
	}
	b.IsDefault = true
	return nil
}

// snapshotTx restores the bank table when fn fails.
type snapshotTx struct {
	repo *mockRepo
}

func (t snapshotTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	saved := make(map[uuid.UUID]Bank, len(t.repo.banks))
	for id, b := range t.repo.banks {
		saved[id] = *b
	}
	err := fn(ctx)
	if err != nil {
		t.repo.banks = make(map[uuid.UUID]*Bank, len(saved))
		for id, b := range saved {
			b := b
			t.repo.banks[id] = &b
		}
	}
	return err
}

func newTestService() (*Service, *mockRepo, *cache.Memory) {
	repo := newMockRepo()
	mem := cache.NewMemory()
	return NewService(repo, snapshotTx{repo: repo}, mem, time.Minute, zerolog.Nop()), repo, mem
}

func defaults(repo *mockRepo) []uuid.UUID {
	var out []uuid.UUID
	for id, b := range repo.banks {
		if b.IsDefault {
			out = append(out, id)
		}
	}
	return out
}

func TestHospital_Cached(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		h, err := svc.Hospital(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if h.Name != "General Hospital" {
			t.Errorf("expected General Hospital, got %s", h.Name)
		}
	}
	if repo.hospitalGets != 1 {
		t.Errorf("expected one repository read, got %d", repo.hospitalGets)
	}
}

func TestUpdateHospital_InvalidatesCache(t *testing.T) {
	svc, repo, mem := newTestService()
	ctx := context.Background()

	if _, err := svc.Hospital(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.UpdateHospital(ctx, &Hospital{Name: "  St. Luke's  ", CurrencySymbol: " ₦ "}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mem.Len() != 0 {
		t.Errorf("expected cache to be cleared, got %d entries", mem.Len())
	}

	h, err := svc.Hospital(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.Name != "St. Luke's" || h.CurrencySymbol != "₦" {
		t.Errorf("expected trimmed update, got %+v", h)
	}
	if repo.hospitalGets != 2 {
		t.Errorf("expected a fresh read after update, got %d reads", repo.hospitalGets)
	}
}

func TestHospital_NotConfigured(t *testing.T) {
	svc, repo, mem := newTestService()
	repo.hospital = nil

	if _, err := svc.Hospital(context.Background()); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
	if mem.Len() != 0 {
		t.Error("errors must not be cached")
	}
}

func TestCreateBank_DefaultReplacesPrevious(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	first := &Bank{BankName: "First Bank", AccountName: "Hospital", AccountNumber: "0011", IsDefault: true}
	if err := svc.CreateBank(ctx, first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second := &Bank{BankName: "GTBank", AccountName: "Hospital", AccountNumber: "0022", IsDefault: true}
	if err := svc.CreateBank(ctx, second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	d := defaults(repo)
	if len(d) != 1 || d[0] != second.ID {
		t.Errorf("expected only the second bank as default, got %v", d)
	}
}

func TestCreateBank_Duplicate(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	b := Bank{BankName: "First Bank", AccountName: "Hospital", AccountNumber: "0011"}
	first, dup := b, b
	dup.AccountNumber = " 0011 "
	if err := svc.CreateBank(ctx, &first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.CreateBank(ctx, &dup); !errors.Is(err, ErrDuplicateBank) {
		t.Errorf("expected ErrDuplicateBank, got %v", err)
	}
}

func TestSetDefault(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	var ids []uuid.UUID
	for i, num := range []string{"01", "02", "03"} {
		b := &Bank{BankName: "Bank", AccountName: "Hospital", AccountNumber: num, IsDefault: i == 0}
		if err := svc.CreateBank(ctx, b); err != nil {
			t.Fatalf("create bank: %v", err)
		}
		ids = append(ids, b.ID)
	}

	b, err := svc.SetDefault(ctx, ids[2])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !b.IsDefault {
		t.Error("expected returned bank to be default")
	}
	d := defaults(repo)
	if len(d) != 1 || d[0] != ids[2] {
		t.Errorf("expected exactly bank 3 as default, got %v", d)
	}

	// Idempotent.
	if _, err := svc.SetDefault(ctx, ids[2]); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(defaults(repo)) != 1 {
		t.Error("expected a single default after repeat")
	}
}

func TestSetDefault_RollsBackOnFailure(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	a := &Bank{BankName: "A", AccountName: "Hospital", AccountNumber: "1", IsDefault: true}
	b := &Bank{BankName: "B", AccountName: "Hospital", AccountNumber: "2"}
	for _, x := range []*Bank{a, b} {
		if err := svc.CreateBank(ctx, x); err != nil {
			t.Fatalf("create bank: %v", err)
		}
	}

	repo.failMark = true
	if _, err := svc.SetDefault(ctx, b.ID); err == nil {
		t.Fatal("expected error")
	}
	d := defaults(repo)
	if len(d) != 1 || d[0] != a.ID {
		t.Errorf("expected original default to survive, got %v", d)
	}
}

func TestSetDefault_NotFound(t *testing.T) {
	svc, _, _ := newTestService()
	if _, err := svc.SetDefault(context.Background(), uuid.New()); !errors.Is(err, ErrBankNotFound) {
		t.Errorf("expected ErrBankNotFound, got %v", err)
	}
}

func TestUpdateBank_BecomesDefault(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	a := &Bank{BankName: "A", AccountName: "Hospital", AccountNumber: "1", IsDefault: true}
	b := &Bank{BankName: "B", AccountName: "Hospital", AccountNumber: "2"}
	for _, x := range []*Bank{a, b} {
		if err := svc.CreateBank(ctx, x); err != nil {
			t.Fatalf("create bank: %v", err)
		}
	}

	b.AccountName = "Hospital Collections"
	b.IsDefault = true
	if err := svc.UpdateBank(ctx, b); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	d := defaults(repo)
	if len(d) != 1 || d[0] != b.ID {
		t.Errorf("expected bank B as default, got %v", d)
	}
	if repo.banks[b.ID].AccountName != "Hospital Collections" {
		t.Errorf("expected name update, got %s", repo.banks[b.ID].AccountName)
	}
}

func TestDeleteBank(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	b := &Bank{BankName: "A", AccountName: "Hospital", AccountNumber: "1"}
	if err := svc.CreateBank(ctx, b); err != nil {
		t.Fatalf("create bank: %v", err)
	}
	if err := svc.DeleteBank(ctx, b.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.banks) != 0 {
		t.Error("expected bank to be deleted")
	}
	if err := svc.DeleteBank(ctx, b.ID); !errors.Is(err, ErrBankNotFound) {
		t.Errorf("expected ErrBankNotFound, got %v", err)
	}
}
