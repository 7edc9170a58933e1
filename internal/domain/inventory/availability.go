package inventory

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/emr/emr/internal/domain/pricing"
)

// Matches reports whether the stock line can serve a request for name.
// Prescriptions are free text, so any item whose name contains the
// requested name, ignoring case, is a match.
func Matches(item *Item, name string) bool {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return false
	}
	return strings.Contains(strings.ToLower(item.Name), n)
}

// AvailableQuantity sums the quantity of every in-stock item matching name.
// Expiry is not considered.
func AvailableQuantity(name string, items []*Item) int {
	total := 0
	for _, it := range items {
		if it.Quantity > 0 && Matches(it, name) {
			total += it.Quantity
		}
	}
	return total
}

// Request is a quantity of a named drug.
type Request struct {
	Name     string `json:"name" validate:"required,notblank"`
	Quantity int    `json:"quantity" validate:"required,gte=1"`
}

type Shortage struct {
	Name      string `json:"name"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

// CheckAvailability checks every requested drug against items and returns
// all shortages. Requests naming the same drug are checked as one.
func CheckAvailability(reqs []Request, items []*Item) []Shortage {
	var shortages []Shortage
	for _, r := range merge(reqs) {
		if avail := AvailableQuantity(r.Name, items); avail < r.Quantity {
			shortages = append(shortages, Shortage{Name: r.Name, Requested: r.Quantity, Available: avail})
		}
	}
	return shortages
}

func merge(reqs []Request) []Request {
	idx := make(map[string]int, len(reqs))
	var out []Request
	for _, r := range reqs {
		key := strings.ToLower(strings.TrimSpace(r.Name))
		if i, ok := idx[key]; ok {
			out[i].Quantity += r.Quantity
			continue
		}
		idx[key] = len(out)
		out = append(out, Request{Name: strings.TrimSpace(r.Name), Quantity: r.Quantity})
	}
	return out
}

// Allocation is the quantity to take from one stock line. Requested is the
// drug name as asked for.
type Allocation struct {
	Requested  string    `json:"requested"`
	ItemID     uuid.UUID `json:"item_id"`
	PharmacyID uuid.UUID `json:"pharmacy_id"`
	Name       string    `json:"name"`
	Quantity   int       `json:"quantity"`
	UnitCost   float64   `json:"unit_cost"`
}

// PlanDeduction allocates qty of name across matching stock, earliest
// expiry first and undated stock last. It returns nil when stock is short.
func PlanDeduction(name string, qty int, items []*Item) []Allocation {
	var candidates []*Item
	for _, it := range items {
		if it.Quantity > 0 && Matches(it, name) {
			candidates = append(candidates, it)
		}
	}
	sortFIFO(candidates)

	var plan []Allocation
	remaining := qty
	for _, it := range candidates {
		if remaining == 0 {
			break
		}
		take := min(it.Quantity, remaining)
		plan = append(plan, Allocation{
			Requested:  strings.TrimSpace(name),
			ItemID:     it.ID,
			PharmacyID: it.PharmacyID,
			Name:       it.Name,
			Quantity:   take,
			UnitCost:   it.CostPrice,
		})
		remaining -= take
	}
	if remaining > 0 {
		return nil
	}
	return plan
}

// Plan allocates every request against one shared view of stock, so two
// requests matching the same line cannot both claim it. Requests matching
// fewer lines are planned first. When any request cannot be met it returns
// the shortages and no allocations.
func Plan(reqs []Request, items []*Item) ([]Allocation, []Shortage) {
	if shortages := CheckAvailability(reqs, items); len(shortages) > 0 {
		return nil, shortages
	}

	left := make([]*Item, len(items))
	for i, it := range items {
		c := *it
		left[i] = &c
	}
	merged := merge(reqs)
	lines := make([]int, len(merged))
	for i, r := range merged {
		for _, it := range left {
			if it.Quantity > 0 && Matches(it, r.Name) {
				lines[i]++
			}
		}
	}
	order := make([]int, len(merged))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return lines[order[a]] < lines[order[b]] })

	var out []Allocation
	var shortages []Shortage
	for _, i := range order {
		r := merged[i]
		plan := PlanDeduction(r.Name, r.Quantity, left)
		if plan == nil {
			shortages = append(shortages, Shortage{Name: r.Name, Requested: r.Quantity, Available: AvailableQuantity(r.Name, left)})
			continue
		}
		for _, a := range plan {
			for _, it := range left {
				if it.ID == a.ItemID {
					it.Quantity -= a.Quantity
				}
			}
		}
		out = append(out, plan...)
	}
	if len(shortages) > 0 {
		return nil, shortages
	}
	return out, nil
}

// sortFIFO orders items by expiry date, undated last, then by creation.
func sortFIFO(items []*Item) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].ExpiryDate, items[j].ExpiryDate
		switch {
		case a != nil && b != nil && *a != *b:
			return *a < *b
		case a != nil && b == nil:
			return true
		case a == nil && b != nil:
			return false
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
}

// PriceOf is the tier price of name, taken from the stock line that would
// be dispensed first. An exact name match wins over a partial one.
func PriceOf(name string, tier pricing.ProviderTier, items []*Item) (float64, bool) {
	var exact, partial []*Item
	for _, it := range items {
		if !Matches(it, name) {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(it.Name), strings.TrimSpace(name)) {
			exact = append(exact, it)
		} else {
			partial = append(partial, it)
		}
	}
	for _, group := range [][]*Item{exact, partial} {
		if len(group) == 0 {
			continue
		}
		sortFIFO(group)
		pick := group[0]
		for _, it := range group {
			if it.Quantity > 0 {
				pick = it
				break
			}
		}
		return pricing.UnitPrice(pick, tier), true
	}
	return 0, false
}

// Aggregated is the stock of one drug summed across pharmacies.
type Aggregated struct {
	Name           string  `json:"name"`
	Quantity       int     `json:"quantity"`
	Pharmacies     int     `json:"pharmacies"`
	EarliestExpiry *string `json:"earliest_expiry,omitempty"`
}

// Aggregate sums same-named items, ignoring case, sorted by name.
func Aggregate(items []*Item) []Aggregated {
	byName := make(map[string]*Aggregated)
	seen := make(map[string]map[uuid.UUID]bool)
	var keys []string
	for _, it := range items {
		key := strings.ToLower(strings.TrimSpace(it.Name))
		a, ok := byName[key]
		if !ok {
			a = &Aggregated{Name: strings.TrimSpace(it.Name)}
			byName[key] = a
			seen[key] = make(map[uuid.UUID]bool)
			keys = append(keys, key)
		}
		a.Quantity += it.Quantity
		if !seen[key][it.PharmacyID] {
			seen[key][it.PharmacyID] = true
			a.Pharmacies++
		}
		if it.ExpiryDate != nil && it.Quantity > 0 && (a.EarliestExpiry == nil || *it.ExpiryDate < *a.EarliestExpiry) {
			d := *it.ExpiryDate
			a.EarliestExpiry = &d
		}
	}
	sort.Strings(keys)
	out := make([]Aggregated, 0, len(keys))
	for _, k := range keys {
		out = append(out, *byName[k])
	}
	return out
}
