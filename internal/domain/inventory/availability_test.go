package inventory

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emr/emr/internal/domain/pricing"
)

func date(s string) *string { return &s }

var (
	mainPharmacy = uuid.New()
	wardPharmacy = uuid.New()
)

func stockItem(name string, qty int, expiry *string, pharmacy uuid.UUID) *Item {
	return &Item{ID: uuid.New(), PharmacyID: pharmacy, Name: name, Quantity: qty, ExpiryDate: expiry}
}

func paracetamolStock() []*Item {
	return []*Item{
		stockItem("Paracetamol 500mg", 10, date("2027-01-31"), mainPharmacy),
		stockItem("PARACETAMOL syrup", 5, date("2025-06-30"), wardPharmacy),
		stockItem("Amoxicillin", 40, nil, mainPharmacy),
	}
}

func TestAvailableQuantity_Paracetamol(t *testing.T) {
	assert.Equal(t, 15, AvailableQuantity("Paracetamol", paracetamolStock()))
	assert.Equal(t, 15, AvailableQuantity("  paracetamol ", paracetamolStock()))
	assert.Equal(t, 0, AvailableQuantity("Ibuprofen", paracetamolStock()))
	assert.Equal(t, 0, AvailableQuantity("", paracetamolStock()))
}

func TestAvailableQuantity_ZeroQuantityItemsChangeNothing(t *testing.T) {
	items := paracetamolStock()
	before := AvailableQuantity("Paracetamol", items)

	items = append(items, stockItem("Paracetamol 1g", 0, nil, mainPharmacy))
	assert.Equal(t, before, AvailableQuantity("Paracetamol", items))
}

func TestCheckAvailability_ReportsEveryShortage(t *testing.T) {
	reqs := []Request{
		{Name: "Paracetamol", Quantity: 20},
		{Name: "Amoxicillin", Quantity: 10},
		{Name: "Ibuprofen", Quantity: 2},
	}
	shortages := CheckAvailability(reqs, paracetamolStock())

	require.Len(t, shortages, 2)
	assert.Equal(t, Shortage{Name: "Paracetamol", Requested: 20, Available: 15}, shortages[0])
	assert.Equal(t, Shortage{Name: "Ibuprofen", Requested: 2, Available: 0}, shortages[1])

	assert.Empty(t, CheckAvailability([]Request{{Name: "Paracetamol", Quantity: 15}}, paracetamolStock()))
}

func TestCheckAvailability_SameDrugRequestedTwice(t *testing.T) {
	reqs := []Request{{Name: "Paracetamol", Quantity: 10}, {Name: "paracetamol", Quantity: 10}}
	shortages := CheckAvailability(reqs, paracetamolStock())

	require.Len(t, shortages, 1)
	assert.Equal(t, 20, shortages[0].Requested)
}

func TestPlanDeduction_EarliestExpiryFirst(t *testing.T) {
	items := paracetamolStock()
	plan := PlanDeduction("Paracetamol", 12, items)

	require.Len(t, plan, 2)
	assert.Equal(t, items[1].ID, plan[0].ItemID, "syrup expires first")
	assert.Equal(t, 5, plan[0].Quantity)
	assert.Equal(t, items[0].ID, plan[1].ItemID)
	assert.Equal(t, 7, plan[1].Quantity)
}

func TestPlanDeduction_UndatedLastAndShort(t *testing.T) {
	undated := stockItem("Amoxicillin caps", 10, nil, mainPharmacy)
	dated := stockItem("Amoxicillin syrup", 10, date("2026-12-01"), wardPharmacy)
	plan := PlanDeduction("amoxicillin", 5, []*Item{undated, dated})

	require.Len(t, plan, 1)
	assert.Equal(t, dated.ID, plan[0].ItemID)

	assert.Nil(t, PlanDeduction("amoxicillin", 21, []*Item{undated, dated}))
}

func TestPlan_OverlappingNamesShareStock(t *testing.T) {
	items := paracetamolStock()
	plan, shortages := Plan([]Request{
		{Name: "Paracetamol", Quantity: 15},
		{Name: "Paracetamol 500mg", Quantity: 10},
	}, items)

	assert.Nil(t, plan)
	require.Len(t, shortages, 1)
	assert.Equal(t, Shortage{Name: "Paracetamol", Requested: 15, Available: 5}, shortages[0])
	assert.Equal(t, 10, items[0].Quantity, "planning does not touch the input")
}

func TestPlan_NarrowerRequestPlannedFirst(t *testing.T) {
	items := paracetamolStock()
	// tablets now expire before the syrup
	items[0].ExpiryDate = date("2025-01-31")

	plan, shortages := Plan([]Request{
		{Name: "Paracetamol", Quantity: 5},
		{Name: "Paracetamol 500mg", Quantity: 10},
	}, items)

	require.Empty(t, shortages)
	taken := map[uuid.UUID]int{}
	total := 0
	for _, a := range plan {
		taken[a.ItemID] += a.Quantity
		total += a.Quantity
	}
	assert.Equal(t, 15, total)
	assert.Equal(t, 10, taken[items[0].ID])
	assert.Equal(t, 5, taken[items[1].ID])
}

func TestPriceOf(t *testing.T) {
	exact := stockItem("Paracetamol", 0, nil, mainPharmacy)
	exact.FeeSchedule = pricing.FeeSchedule{Standard: pricing.Fee(50), NHIA: pricing.Fee(30)}
	partial := stockItem("Paracetamol 500mg", 10, nil, mainPharmacy)
	partial.FeeSchedule = pricing.FeeSchedule{Standard: pricing.Fee(80)}

	price, ok := PriceOf("paracetamol", pricing.TierNHIA, []*Item{partial, exact})
	require.True(t, ok)
	assert.Equal(t, 30.0, price)

	price, ok = PriceOf("Paracetamol 500", pricing.TierStandard, []*Item{partial, exact})
	require.True(t, ok)
	assert.Equal(t, 80.0, price)

	_, ok = PriceOf("Ibuprofen", pricing.TierStandard, []*Item{partial, exact})
	assert.False(t, ok)
}

func TestAggregate(t *testing.T) {
	items := []*Item{
		stockItem("Paracetamol", 10, date("2027-01-31"), mainPharmacy),
		stockItem("paracetamol", 5, date("2026-05-01"), wardPharmacy),
		stockItem("Paracetamol", 3, date("2026-09-01"), wardPharmacy),
		stockItem("Amoxicillin", 0, date("2025-01-01"), mainPharmacy),
	}
	agg := Aggregate(items)

	require.Len(t, agg, 2)
	assert.Equal(t, "Amoxicillin", agg[0].Name)
	assert.Nil(t, agg[0].EarliestExpiry, "empty lines do not set expiry")
	assert.Equal(t, 18, agg[1].Quantity)
	assert.Equal(t, 2, agg[1].Pharmacies)
	assert.Equal(t, "2026-05-01", *agg[1].EarliestExpiry)
}

func TestAlerts(t *testing.T) {
	today := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	low := stockItem("Low", 2, nil, mainPharmacy)
	low.ReorderLevel = 5
	expired := stockItem("Expired", 10, date("2026-03-09"), mainPharmacy)
	expiring := stockItem("Expiring", 10, date("2026-04-01"), mainPharmacy)
	fine := stockItem("Fine", 10, date("2026-12-01"), mainPharmacy)
	emptyExpired := stockItem("Gone", 0, date("2025-01-01"), mainPharmacy)

	alerts := Alerts([]*Item{low, expired, expiring, fine, emptyExpired}, today, 30)

	kinds := map[string][]AlertKind{}
	for _, a := range alerts {
		kinds[a.Name] = append(kinds[a.Name], a.Kind)
	}
	assert.Equal(t, []AlertKind{AlertLowStock}, kinds["Low"])
	assert.Equal(t, []AlertKind{AlertExpired}, kinds["Expired"])
	assert.Equal(t, []AlertKind{AlertExpiring}, kinds["Expiring"])
	assert.Equal(t, []AlertKind{AlertLowStock}, kinds["Gone"])
	assert.NotContains(t, kinds, "Fine")

	assert.Equal(t, AlertExpired, alerts[0].Kind)
	assert.Equal(t, 22, *alerts[1].DaysLeft)
	assert.Equal(t, 2, CountLowStock([]*Item{low, expired, emptyExpired}))
}

func TestBuildProfitLoss(t *testing.T) {
	pl := BuildProfitLoss([]DispenseRecord{
		{Name: "Paracetamol", Quantity: 10, UnitPrice: 50, UnitCost: 20},
		{Name: "paracetamol", Quantity: 5, UnitPrice: 50, UnitCost: 30},
		{Name: "Amoxicillin", Quantity: 2, UnitPrice: 100, UnitCost: 150},
	})

	require.Len(t, pl.Lines, 2)
	assert.Equal(t, ProfitLine{Name: "Paracetamol", Quantity: 15, Revenue: 750, Cost: 350, Profit: 400}, pl.Lines[0])
	assert.Equal(t, -100.0, pl.Lines[1].Profit)
	assert.Equal(t, 950.0, pl.Revenue)
	assert.Equal(t, 650.0, pl.Cost)
	assert.Equal(t, 300.0, pl.Profit)
	assert.Equal(t, 31.6, pl.Margin)

	empty := BuildProfitLoss(nil)
	assert.Zero(t, empty.Margin)
	assert.NotNil(t, empty.Lines)
}
