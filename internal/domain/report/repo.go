package report

import "context"

// Query bounds a report. From and To are inclusive YYYY-MM-DD dates in the
// hospital timezone; either may be empty.
type Query struct {
	From     string
	To       string
	Category string
	Timezone string
}

// Counts are the dashboard figures read straight from the database.
type Counts struct {
	Patients        int            `json:"patients"`
	EncountersToday int            `json:"encounters_today"`
	ByStatus        map[string]int `json:"encounters_by_status"`
	RevenueToday    float64        `json:"revenue_today"`
}

type Repository interface {
	ClinicalRecords(ctx context.Context, d Dimension, q Query) ([]Record, error)
	PaidCharges(ctx context.Context, q Query) ([]Record, error)
	Counts(ctx context.Context, day, timezone string) (*Counts, error)
}
