package inventory

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

type AlertKind string

const (
	AlertLowStock AlertKind = "low_stock"
	AlertExpired  AlertKind = "expired"
	AlertExpiring AlertKind = "expiring"
)

type Alert struct {
	Kind         AlertKind `json:"kind"`
	ItemID       uuid.UUID `json:"item_id"`
	PharmacyID   uuid.UUID `json:"pharmacy_id"`
	Name         string    `json:"name"`
	Quantity     int       `json:"quantity"`
	ReorderLevel int       `json:"reorder_level"`
	ExpiryDate   *string   `json:"expiry_date,omitempty"`
	DaysLeft     *int      `json:"days_left,omitempty"`
}

// Alerts flags low stock (quantity at or below the reorder level), expired
// stock, and stock expiring within warnDays of today. An item can raise
// both a stock and an expiry alert. Expiry alerts skip empty lines.
func Alerts(items []*Item, today time.Time, warnDays int) []Alert {
	day := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)

	var out []Alert
	for _, it := range items {
		base := Alert{
			ItemID:       it.ID,
			PharmacyID:   it.PharmacyID,
			Name:         it.Name,
			Quantity:     it.Quantity,
			ReorderLevel: it.ReorderLevel,
			ExpiryDate:   it.ExpiryDate,
		}
		if it.Quantity <= it.ReorderLevel {
			a := base
			a.Kind = AlertLowStock
			out = append(out, a)
		}
		if it.ExpiryDate == nil || it.Quantity == 0 {
			continue
		}
		exp, err := time.Parse(time.DateOnly, *it.ExpiryDate)
		if err != nil {
			continue
		}
		days := int(exp.Sub(day).Hours() / 24)
		switch {
		case days < 0:
			a := base
			a.Kind = AlertExpired
			a.DaysLeft = &days
			out = append(out, a)
		case days <= warnDays:
			a := base
			a.Kind = AlertExpiring
			a.DaysLeft = &days
			out = append(out, a)
		}
	}

	rank := map[AlertKind]int{AlertExpired: 0, AlertExpiring: 1, AlertLowStock: 2}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return rank[out[i].Kind] < rank[out[j].Kind]
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// CountLowStock is the number of items at or below their reorder level.
func CountLowStock(items []*Item) int {
	n := 0
	for _, it := range items {
		if it.Quantity <= it.ReorderLevel {
			n++
		}
	}
	return n
}
