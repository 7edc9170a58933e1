package report

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/emr/emr/internal/domain/ward"
	"github.com/emr/emr/internal/platform/cache"
	"github.com/emr/emr/pkg/apperr"
)

var (
	ErrInvalidDimension = apperr.Validation("dimension must be one of diagnosis, medication, lab, radiology, department", nil)
	ErrUnknownReport    = apperr.NotFound("report")
	ErrInvalidRange     = apperr.Validation("from must not be after to", nil)
)

// revenueCategories maps the revenue report names to charge categories.
var revenueCategories = map[string]string{
	"lab":          "lab",
	"radiology":    "radiology",
	"pharmacy":     "drug",
	"nursing":      "nursing",
	"consultation": "consultation",
	"ward":         "ward",
}

// ParseRevenueReport resolves a path segment such as "pharmacy-revenue" to
// the report name and its charge category.
func ParseRevenueReport(segment string) (name, category string, err error) {
	name, ok := strings.CutSuffix(strings.ToLower(segment), "-revenue")
	if !ok {
		return "", "", ErrUnknownReport
	}
	category, ok = revenueCategories[name]
	if !ok {
		return "", "", ErrUnknownReport
	}
	return name, category, nil
}

type StockCounter interface {
	LowStockCount(ctx context.Context) (int, error)
}

type BedCounter interface {
	Occupancy(ctx context.Context) (ward.OccupancySummary, error)
}

type DashboardStats struct {
	Date string `json:"date"`
	Counts
	TotalBeds     int `json:"total_beds"`
	OccupiedBeds  int `json:"occupied_beds"`
	LowStockItems int `json:"low_stock_items"`
}

type Options struct {
	Location *time.Location
	CacheTTL time.Duration
	Logger   zerolog.Logger
	Now      func() time.Time
}

type Service struct {
	repo  Repository
	stock StockCounter
	beds  BedCounter
	cache cache.Cache
	loc   *time.Location
	ttl   time.Duration
	log   zerolog.Logger
	now   func() time.Time
}

func NewService(repo Repository, stock StockCounter, beds BedCounter, c cache.Cache, opts Options) *Service {
	s := &Service{
		repo:  repo,
		stock: stock,
		beds:  beds,
		cache: c,
		loc:   opts.Location,
		ttl:   opts.CacheTTL,
		log:   opts.Logger,
		now:   opts.Now,
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *Service) today() string {
	return s.now().In(s.loc).Format(time.DateOnly)
}

// DashboardStats is cached per hospital day for the configured TTL.
func (s *Service) DashboardStats(ctx context.Context) (*DashboardStats, error) {
	day := s.today()
	return cache.Remember(ctx, s.cache, s.log, "dashboard:"+day, s.ttl, func(ctx context.Context) (*DashboardStats, error) {
		counts, err := s.repo.Counts(ctx, day, s.loc.String())
		if err != nil {
			return nil, err
		}
		occ, err := s.beds.Occupancy(ctx)
		if err != nil {
			return nil, err
		}
		low, err := s.stock.LowStockCount(ctx)
		if err != nil {
			return nil, err
		}
		return &DashboardStats{
			Date:          day,
			Counts:        *counts,
			TotalBeds:     occ.TotalBeds,
			OccupiedBeds:  occ.Occupied,
			LowStockItems: low,
		}, nil
	})
}

func checkRange(from, to string) error {
	for _, v := range []string{from, to} {
		if v == "" {
			continue
		}
		if _, err := time.Parse(time.DateOnly, v); err != nil {
			return apperr.Validation("dates must be YYYY-MM-DD", map[string]string{"date": v})
		}
	}
	if from != "" && to != "" && from > to {
		return ErrInvalidRange
	}
	return nil
}

func (s *Service) ClinicalReport(ctx context.Context, d Dimension, from, to string) (*Report, error) {
	if err := checkRange(from, to); err != nil {
		return nil, err
	}
	records, err := s.repo.ClinicalRecords(ctx, d, Query{From: from, To: to, Timezone: s.loc.String()})
	if err != nil {
		return nil, err
	}
	return build("clinical-"+string(d), d, from, to, records), nil
}

// Revenue groups paid charges of one category by charge name.
func (s *Service) Revenue(ctx context.Context, segment, from, to string) (*Report, error) {
	name, category, err := ParseRevenueReport(segment)
	if err != nil {
		return nil, err
	}
	if err := checkRange(from, to); err != nil {
		return nil, err
	}
	records, err := s.repo.PaidCharges(ctx, Query{From: from, To: to, Category: category, Timezone: s.loc.String()})
	if err != nil {
		return nil, err
	}
	// Revenue reports group by charge name, which is how Categorize keys
	// every dimension except department.
	return build(name+"-revenue", "", from, to, records), nil
}
