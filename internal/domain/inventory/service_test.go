package inventory

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/emr/emr/internal/domain/pricing"
	"github.com/emr/emr/pkg/apperr"
)

// -- Mock Repository --

type mockRepo struct {
	pharmacies map[uuid.UUID]*Pharmacy
	items      map[uuid.UUID]*Item
	order      []uuid.UUID
	drugs      []*DrugMetadata
	records    []DispenseRecord
	// failAt makes that Decrement call fail as if another dispense won.
	failAt int
	calls  int
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		pharmacies: make(map[uuid.UUID]*Pharmacy),
		items:      make(map[uuid.UUID]*Item),
	}
}

func (m *mockRepo) CreatePharmacy(_ context.Context, p *Pharmacy) error {
	for _, existing := range m.pharmacies {
		if strings.EqualFold(existing.Name, p.Name) {
			return ErrDuplicatePharmacy
		}
	}
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	m.pharmacies[p.ID] = p
	return nil
}

func (m *mockRepo) GetPharmacy(_ context.Context, id uuid.UUID) (*Pharmacy, error) {
	p, ok := m.pharmacies[id]
	if !ok {
		return nil, ErrPharmacyNotFound
	}
	return p, nil
}

func (m *mockRepo) ListPharmacies(_ context.Context) ([]*Pharmacy, error) {
	var out []*Pharmacy
	for _, p := range m.pharmacies {
		out = append(out, p)
	}
	return out, nil
}

func (m *mockRepo) CreateItem(_ context.Context, it *Item) error {
	if _, ok := m.pharmacies[it.PharmacyID]; !ok {
		return ErrPharmacyNotFound
	}
	it.ID = uuid.New()
	it.CreatedAt = time.Now()
	stored := *it
	m.items[it.ID] = &stored
	m.order = append(m.order, it.ID)
	return nil
}

func (m *mockRepo) GetItem(_ context.Context, id uuid.UUID) (*Item, error) {
	it, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *it
	return &out, nil
}

func (m *mockRepo) UpdateItem(_ context.Context, it *Item) error {
	if _, ok := m.items[it.ID]; !ok {
		return ErrNotFound
	}
	stored := *it
	m.items[it.ID] = &stored
	return nil
}

func (m *mockRepo) DeleteItem(_ context.Context, id uuid.UUID) error {
	if _, ok := m.items[id]; !ok {
		return ErrNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *mockRepo) ListItems(ctx context.Context, f ListFilter, limit, offset int) ([]*Item, int, error) {
	all, _ := m.Stock(ctx, f.PharmacyID)
	var out []*Item
	for _, it := range all {
		if f.Query == "" || Matches(it, f.Query) {
			out = append(out, it)
		}
	}
	return out, len(out), nil
}

func (m *mockRepo) Stock(_ context.Context, pharmacyID *uuid.UUID) ([]*Item, error) {
	var out []*Item
	for _, id := range m.order {
		it, ok := m.items[id]
		if !ok || (pharmacyID != nil && it.PharmacyID != *pharmacyID) {
			continue
		}
		c := *it
		out = append(out, &c)
	}
	return out, nil
}

func (m *mockRepo) Decrement(_ context.Context, itemID uuid.UUID, qty int) error {
	m.calls++
	if m.failAt > 0 && m.calls == m.failAt {
		return ErrStockChanged
	}
	it, ok := m.items[itemID]
	if !ok || it.Quantity < qty {
		return ErrStockChanged
	}
	it.Quantity -= qty
	return nil
}

func (m *mockRepo) CreateDrug(_ context.Context, d *DrugMetadata) error {
	for _, existing := range m.drugs {
		if strings.EqualFold(existing.Name, d.Name) {
			return ErrDuplicateDrug
		}
	}
	d.ID = uuid.New()
	m.drugs = append(m.drugs, d)
	return nil
}

func (m *mockRepo) ListDrugs(_ context.Context, query string) ([]*DrugMetadata, error) {
	var out []*DrugMetadata
	for _, d := range m.drugs {
		if query == "" || strings.Contains(strings.ToLower(d.Name), strings.ToLower(query)) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *mockRepo) DispenseRecords(_ context.Context, from, to string) ([]DispenseRecord, error) {
	var out []DispenseRecord
	for _, r := range m.records {
		day := r.DispensedAt.Format(time.DateOnly)
		if (from == "" || day >= from) && (to == "" || day <= to) {
			out = append(out, r)
		}
	}
	return out, nil
}

// snapshotTx restores item quantities when fn fails.
type snapshotTx struct {
	repo *mockRepo
}

func (t snapshotTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	saved := make(map[uuid.UUID]int, len(t.repo.items))
	for id, it := range t.repo.items {
		saved[id] = it.Quantity
	}
	err := fn(ctx)
	if err != nil {
		for id, q := range saved {
			t.repo.items[id].Quantity = q
		}
	}
	return err
}

type fixture struct {
	svc  *Service
	repo *mockRepo
	main *Pharmacy
	ward *Pharmacy
	// tablets and syrup are the two Paracetamol lines.
	tablets *Item
	syrup   *Item
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := newMockRepo()
	f := &fixture{repo: repo}
	f.svc = NewService(repo, snapshotTx{repo: repo}, Options{
		WarnDays: 30,
		Location: time.UTC,
		Logger:   zerolog.Nop(),
		Now:      func() time.Time { return time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC) },
	})
	ctx := context.Background()

	f.main = &Pharmacy{Name: "Main"}
	f.ward = &Pharmacy{Name: "Ward"}
	for _, p := range []*Pharmacy{f.main, f.ward} {
		if err := f.svc.CreatePharmacy(ctx, p); err != nil {
			t.Fatalf("create pharmacy: %v", err)
		}
	}

	f.tablets = &Item{PharmacyID: f.main.ID, Name: "Paracetamol 500mg", Quantity: 10, ExpiryDate: date("2027-01-31"),
		CostPrice: 20, FeeSchedule: pricing.FeeSchedule{Standard: pricing.Fee(50), NHIA: pricing.Fee(30)}}
	// expired stock still counts toward availability
	f.syrup = &Item{PharmacyID: f.ward.ID, Name: "Paracetamol syrup", Quantity: 5, ExpiryDate: date("2025-06-30"),
		CostPrice: 25, FeeSchedule: pricing.FeeSchedule{Standard: pricing.Fee(60)}}
	for _, it := range []*Item{f.tablets, f.syrup} {
		if err := f.svc.CreateItem(ctx, it); err != nil {
			t.Fatalf("create item: %v", err)
		}
	}
	return f
}

func TestDeduct_ParacetamolScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	avail, err := f.svc.Availability(ctx, "Paracetamol", 20, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if avail.Available != 15 || avail.Sufficient {
		t.Fatalf("expected 15 available and insufficient for 20, got %+v", avail)
	}

	_, err = f.svc.Deduct(ctx, []Request{{Name: "Paracetamol", Quantity: 20}}, nil)
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	if f.repo.items[f.tablets.ID].Quantity != 10 || f.repo.items[f.syrup.ID].Quantity != 5 {
		t.Fatal("expected no stock taken on rejection")
	}

	plan, err := f.svc.Deduct(ctx, []Request{{Name: "Paracetamol", Quantity: 15}}, nil)
	if err != nil {
		t.Fatalf("expected dispensing 15 to succeed, got %v", err)
	}
	if len(plan) != 2 || plan[0].ItemID != f.syrup.ID {
		t.Errorf("expected syrup (earliest expiry) taken first, got %+v", plan)
	}
	if f.repo.items[f.tablets.ID].Quantity != 0 || f.repo.items[f.syrup.ID].Quantity != 0 {
		t.Error("expected all paracetamol stock consumed")
	}
}

func TestDeduct_AllShortagesInDetails(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Deduct(context.Background(), []Request{
		{Name: "Paracetamol", Quantity: 16},
		{Name: "Ibuprofen", Quantity: 1},
	}, nil)
	var ae *apperr.AppError
	if !errors.As(err, &ae) {
		t.Fatalf("expected AppError, got %v", err)
	}
	details, _ := ae.Details.(map[string]any)
	shortages, _ := details["shortages"].([]Shortage)
	if len(shortages) != 2 {
		t.Fatalf("expected 2 shortages, got %v", ae.Details)
	}
	if !strings.Contains(ae.Message, "Ibuprofen") || !strings.Contains(ae.Message, "Paracetamol") {
		t.Errorf("expected message to name both drugs, got %q", ae.Message)
	}
}

func TestDeduct_ScopedToPharmacy(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Deduct(context.Background(), []Request{{Name: "Paracetamol", Quantity: 6}}, &f.ward.ID)
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ward pharmacy to hold only 5, got %v", err)
	}
	if _, err := f.svc.Deduct(context.Background(), []Request{{Name: "Paracetamol", Quantity: 5}}, &f.ward.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.repo.items[f.tablets.ID].Quantity != 10 {
		t.Error("expected main pharmacy stock untouched")
	}
}

func TestDeduct_RaceRollsBack(t *testing.T) {
	f := newFixture(t)
	amox := &Item{PharmacyID: f.main.ID, Name: "Amoxicillin", Quantity: 4}
	f.svc.CreateItem(context.Background(), amox)
	f.repo.failAt = f.repo.calls + 2

	_, err := f.svc.Deduct(context.Background(), []Request{
		{Name: "Amoxicillin", Quantity: 2},
		{Name: "Paracetamol", Quantity: 3},
	}, nil)
	if !errors.Is(err, ErrStockChanged) {
		t.Fatalf("expected ErrStockChanged, got %v", err)
	}
	if f.repo.items[amox.ID].Quantity != 4 || f.repo.items[f.syrup.ID].Quantity != 5 {
		t.Error("expected quantities restored")
	}
}

func TestDeduct_OverlappingNamesRollBack(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Deduct(context.Background(), []Request{
		{Name: "Paracetamol", Quantity: 15},
		{Name: "Paracetamol 500mg", Quantity: 10},
	}, nil)
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	if f.repo.items[f.tablets.ID].Quantity != 10 || f.repo.items[f.syrup.ID].Quantity != 5 {
		t.Error("expected no stock taken")
	}
	if f.repo.calls != 0 {
		t.Errorf("expected no decrements, got %d", f.repo.calls)
	}
}

func TestDeduct_OverlappingNamesWithinStock(t *testing.T) {
	f := newFixture(t)

	plan, err := f.svc.Deduct(context.Background(), []Request{
		{Name: "Paracetamol", Quantity: 5},
		{Name: "Paracetamol 500mg", Quantity: 10},
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	total := 0
	for _, a := range plan {
		total += a.Quantity
	}
	if total != 15 {
		t.Errorf("expected 15 allocated, got %d", total)
	}
	if f.repo.items[f.tablets.ID].Quantity != 0 || f.repo.items[f.syrup.ID].Quantity != 0 {
		t.Error("expected all paracetamol stock consumed")
	}
}

func TestCreateItem_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.svc.CreateItem(ctx, &Item{PharmacyID: uuid.New(), Name: "Ghost"})
	if !errors.Is(err, ErrPharmacyNotFound) {
		t.Errorf("expected ErrPharmacyNotFound, got %v", err)
	}

	err = f.svc.CreateItem(ctx, &Item{PharmacyID: f.main.ID, Name: "Bad", FeeSchedule: pricing.FeeSchedule{NHIA: pricing.Fee(-1)}})
	if !errors.Is(err, ErrNegativeFee) {
		t.Errorf("expected ErrNegativeFee, got %v", err)
	}

	it := &Item{PharmacyID: f.main.ID, Name: "  Ibuprofen  ", Quantity: 3}
	if err := f.svc.CreateItem(ctx, it); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if it.Name != "Ibuprofen" || it.PharmacyName != "Main" {
		t.Errorf("unexpected item: %+v", it)
	}
}

func TestPriceFor(t *testing.T) {
	f := newFixture(t)

	price, err := f.svc.PriceFor(context.Background(), "Paracetamol 500mg", pricing.TierNHIA)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if price != 30 {
		t.Errorf("expected NHIA price 30, got %v", price)
	}
	if _, err := f.svc.PriceFor(context.Background(), "Ibuprofen", pricing.TierNHIA); !errors.Is(err, ErrNotStocked) {
		t.Errorf("expected ErrNotStocked, got %v", err)
	}
}

func TestAlertsAndLowStock(t *testing.T) {
	f := newFixture(t)
	alerts, err := f.svc.Alerts(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(alerts) != 1 || alerts[0].Kind != AlertExpired || alerts[0].ItemID != f.syrup.ID {
		t.Errorf("expected only the syrup to be expired, got %+v", alerts)
	}

	n, _ := f.svc.LowStockCount(context.Background())
	if n != 0 {
		t.Errorf("expected no low stock, got %d", n)
	}
}

func TestProfitLoss_DateRange(t *testing.T) {
	f := newFixture(t)
	f.repo.records = []DispenseRecord{
		{Name: "Paracetamol", Quantity: 2, UnitPrice: 50, UnitCost: 20, DispensedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)},
		{Name: "Paracetamol", Quantity: 1, UnitPrice: 50, UnitCost: 20, DispensedAt: time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)},
	}

	pl, err := f.svc.ProfitLoss(context.Background(), "2026-03-01", "2026-03-31")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pl.Revenue != 100 || pl.Profit != 60 || pl.From != "2026-03-01" {
		t.Errorf("unexpected report: %+v", pl)
	}
}

func TestPharmacyAndDrugDuplicates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.svc.CreatePharmacy(ctx, &Pharmacy{Name: "main"}); !errors.Is(err, ErrDuplicatePharmacy) {
		t.Errorf("expected ErrDuplicatePharmacy, got %v", err)
	}
	if err := f.svc.CreateDrug(ctx, &DrugMetadata{Name: "Paracetamol"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.svc.CreateDrug(ctx, &DrugMetadata{Name: " paracetamol "}); !errors.Is(err, ErrDuplicateDrug) {
		t.Errorf("expected ErrDuplicateDrug, got %v", err)
	}
	ds, _ := f.svc.ListDrugs(ctx, "para")
	if len(ds) != 1 {
		t.Errorf("expected 1 drug, got %d", len(ds))
	}
}
