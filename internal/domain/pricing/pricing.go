// Package pricing selects tier-specific fees and sums billable items. The
// same rule prices encounter charges, ward daily rates and drugs.
package pricing

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ProviderTier is the patient's payment arrangement.
type ProviderTier string

const (
	TierStandard     ProviderTier = "Standard"
	TierRetainership ProviderTier = "Retainership"
	TierNHIA         ProviderTier = "NHIA"
	TierKSCHMA       ProviderTier = "KSCHMA"
)

var Tiers = []ProviderTier{TierStandard, TierRetainership, TierNHIA, TierKSCHMA}

// ParseTier accepts any casing of a known tier name.
func ParseTier(s string) (ProviderTier, error) {
	for _, t := range Tiers {
		if strings.EqualFold(strings.TrimSpace(s), string(t)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown provider tier %q", s)
}

func (t ProviderTier) Valid() bool {
	_, err := ParseTier(string(t))
	return err == nil
}

// Insured reports whether the tier is billed through an HMO.
func (t ProviderTier) Insured() bool {
	return t != TierStandard
}

// FeeSchedule holds one optional price per tier.
type FeeSchedule struct {
	Standard     *float64 `json:"standard_fee,omitempty" db:"standard_fee" validate:"omitempty,gte=0"`
	Retainership *float64 `json:"retainership_fee,omitempty" db:"retainership_fee" validate:"omitempty,gte=0"`
	NHIA         *float64 `json:"nhia_fee,omitempty" db:"nhia_fee" validate:"omitempty,gte=0"`
	KSCHMA       *float64 `json:"kschma_fee,omitempty" db:"kschma_fee" validate:"omitempty,gte=0"`
}

// For returns the fee for tier, or 0 when that fee is unset.
func (f FeeSchedule) For(tier ProviderTier) float64 {
	var p *float64
	switch tier {
	case TierStandard:
		p = f.Standard
	case TierRetainership:
		p = f.Retainership
	case TierNHIA:
		p = f.NHIA
	case TierKSCHMA:
		p = f.KSCHMA
	}
	if p == nil {
		return 0
	}
	return *p
}

// Validate rejects negative fees.
func (f FeeSchedule) Validate() error {
	for _, t := range Tiers {
		if f.For(t) < 0 {
			return fmt.Errorf("%s fee must not be negative", t)
		}
	}
	return nil
}

// Priced is anything with a fee schedule and a quantity.
type Priced interface {
	Fees() FeeSchedule
	Qty() int
}

// Item is a ready-made Priced value.
type Item struct {
	Schedule FeeSchedule
	Quantity int
}

func (i Item) Fees() FeeSchedule { return i.Schedule }
func (i Item) Qty() int          { return i.Quantity }

// UnitPrice is the tier fee for one unit.
func UnitPrice(p Priced, tier ProviderTier) float64 {
	return p.Fees().For(tier)
}

// LineTotal multiplies the unit price by quantity; quantities below 1 count
// as 1.
func LineTotal(p Priced, tier ProviderTier) float64 {
	q := p.Qty()
	if q < 1 {
		q = 1
	}
	return UnitPrice(p, tier) * float64(q)
}

// Total sums LineTotal over items.
func Total[T Priced](items []T, tier ProviderTier) float64 {
	var sum float64
	for _, it := range items {
		sum += LineTotal(it, tier)
	}
	return sum
}

// Round2 rounds half away from zero to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Round1 rounds half away from zero to one decimal.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// FormatAmount renders v with two decimals and thousands separators,
// e.g. 1234.5 -> "1,234.50".
func FormatAmount(v float64) string {
	s := strconv.FormatFloat(math.Abs(Round2(v)), 'f', 2, 64)
	whole, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	if v < 0 && Round2(v) != 0 {
		b.WriteByte('-')
	}
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	b.WriteByte('.')
	b.WriteString(frac)
	return b.String()
}

// Fee is a helper for building schedules in code and tests.
func Fee(v float64) *float64 {
	return &v
}
