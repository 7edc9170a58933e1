package inventory

import (
	"sort"
	"strings"

	"github.com/emr/emr/internal/domain/pricing"
)

type ProfitLine struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Revenue  float64 `json:"revenue"`
	Cost     float64 `json:"cost"`
	Profit   float64 `json:"profit"`
}

type ProfitLoss struct {
	From    string       `json:"from,omitempty"`
	To      string       `json:"to,omitempty"`
	Lines   []ProfitLine `json:"lines"`
	Revenue float64      `json:"revenue"`
	Cost    float64      `json:"cost"`
	Profit  float64      `json:"profit"`
	Margin  float64      `json:"margin"`
}

// BuildProfitLoss totals dispense records per drug. Lines are sorted by
// profit, highest first. Margin is profit as a percentage of revenue, 0
// when there is no revenue.
func BuildProfitLoss(records []DispenseRecord) *ProfitLoss {
	byName := make(map[string]*ProfitLine)
	for _, r := range records {
		key := strings.ToLower(strings.TrimSpace(r.Name))
		l, ok := byName[key]
		if !ok {
			l = &ProfitLine{Name: strings.TrimSpace(r.Name)}
			byName[key] = l
		}
		l.Quantity += r.Quantity
		l.Revenue += r.UnitPrice * float64(r.Quantity)
		l.Cost += r.UnitCost * float64(r.Quantity)
	}

	pl := &ProfitLoss{Lines: make([]ProfitLine, 0, len(byName))}
	for _, l := range byName {
		l.Revenue = pricing.Round2(l.Revenue)
		l.Cost = pricing.Round2(l.Cost)
		l.Profit = pricing.Round2(l.Revenue - l.Cost)
		pl.Revenue += l.Revenue
		pl.Cost += l.Cost
		pl.Lines = append(pl.Lines, *l)
	}
	sort.Slice(pl.Lines, func(i, j int) bool {
		if pl.Lines[i].Profit != pl.Lines[j].Profit {
			return pl.Lines[i].Profit > pl.Lines[j].Profit
		}
		return pl.Lines[i].Name < pl.Lines[j].Name
	})

	pl.Revenue = pricing.Round2(pl.Revenue)
	pl.Cost = pricing.Round2(pl.Cost)
	pl.Profit = pricing.Round2(pl.Revenue - pl.Cost)
	if pl.Revenue > 0 {
		pl.Margin = pricing.Round1(pl.Profit / pl.Revenue * 100)
	}
	return pl
}
