package ward

import (
	"time"

	"github.com/google/uuid"

	"github.com/emr/emr/internal/domain/pricing"
)

// Ward is a set of beds billed at a per-tier daily rate.
type Ward struct {
	ID          uuid.UUID           `json:"id"`
	Name        string              `json:"name" validate:"required,notblank,max=100"`
	Description *string             `json:"description,omitempty"`
	Rates       pricing.FeeSchedule `json:"rates"`
	Beds        []*Bed              `json:"beds" validate:"omitempty,dive"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// DailyRate is the charge for one day in the ward at the given tier.
func (w *Ward) DailyRate(tier pricing.ProviderTier) float64 {
	return w.Rates.For(tier)
}

// Stay prices a number of days in the ward.
func (w *Ward) Stay(days int) pricing.Item {
	return pricing.Item{Schedule: w.Rates, Quantity: days}
}

type Bed struct {
	ID        uuid.UUID `json:"id"`
	WardID    uuid.UUID `json:"ward_id"`
	Number    string    `json:"number" validate:"required,notblank,max=20"`
	Occupied  bool      `json:"occupied"`
	CreatedAt time.Time `json:"created_at"`
}

// Occupancy summarises bed usage for one ward.
type Occupancy struct {
	WardID    uuid.UUID `json:"ward_id"`
	WardName  string    `json:"ward_name"`
	TotalBeds int       `json:"total_beds"`
	Occupied  int       `json:"occupied"`
	Available int       `json:"available"`
}

type OccupancySummary struct {
	Wards     []Occupancy `json:"wards"`
	TotalBeds int         `json:"total_beds"`
	Occupied  int         `json:"occupied"`
	Available int         `json:"available"`
	Rate      float64     `json:"occupancy_rate"`
}

// Summarize totals per-ward occupancy. Rate is a percentage with one decimal.
func Summarize(wards []Occupancy) OccupancySummary {
	s := OccupancySummary{Wards: wards}
	for i := range wards {
		wards[i].Available = wards[i].TotalBeds - wards[i].Occupied
		s.TotalBeds += wards[i].TotalBeds
		s.Occupied += wards[i].Occupied
	}
	s.Available = s.TotalBeds - s.Occupied
	if s.TotalBeds > 0 {
		s.Rate = pricing.Round1(float64(s.Occupied) / float64(s.TotalBeds) * 100)
	}
	return s
}
