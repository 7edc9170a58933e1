package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emr_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "emr_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "route"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "emr_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	encountersCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emr_encounters_created_total",
			Help: "Encounters created, by type and initial status",
		},
		[]string{"type", "status"},
	)

	encounterRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emr_encounter_rejections_total",
			Help: "Encounter creations rejected by a business rule",
		},
		[]string{"reason"},
	)

	encounterTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emr_encounter_status_transitions_total",
			Help: "Encounter status changes",
		},
		[]string{"from", "to", "allowed"},
	)

	paymentsConfirmed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "emr_payments_confirmed_total",
			Help: "Encounter payments confirmed by a cashier",
		},
	)

	dispenses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emr_prescription_dispenses_total",
			Help: "Dispense attempts by outcome",
		},
		[]string{"outcome"},
	)

	cacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emr_cache_lookups_total",
			Help: "Cache lookups by key prefix and result",
		},
		[]string{"key", "result"},
	)
)

// Handler serves the Prometheus scrape endpoint.
func Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.Handler())
}

// Middleware records request count and latency per route template, so path
// parameters do not blow up label cardinality.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			httpRequestsInFlight.Inc()
			defer httpRequestsInFlight.Dec()

			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}

			httpRequestsTotal.WithLabelValues(c.Request().Method, route, strconv.Itoa(status)).Inc()
			httpRequestDuration.WithLabelValues(c.Request().Method, route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

func RecordEncounterCreated(encounterType, status string) {
	encountersCreated.WithLabelValues(encounterType, status).Inc()
}

func RecordEncounterRejected(reason string) {
	encounterRejections.WithLabelValues(reason).Inc()
}

func RecordStatusTransition(from, to string, allowed bool) {
	encounterTransitions.WithLabelValues(from, to, strconv.FormatBool(allowed)).Inc()
}

func RecordPaymentConfirmed() {
	paymentsConfirmed.Inc()
}

// RecordDispense outcome is one of "dispensed", "unpaid", "shortage", "error".
func RecordDispense(outcome string) {
	dispenses.WithLabelValues(outcome).Inc()
}

func RecordCacheLookup(key string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookups.WithLabelValues(key, result).Inc()
}
