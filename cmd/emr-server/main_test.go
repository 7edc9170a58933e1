package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/emr/emr/internal/config"
	"github.com/emr/emr/internal/platform/auth"
	"github.com/emr/emr/internal/platform/cache"
)

func testConfig() *config.Config {
	return &config.Config{
		Port:                  "8000",
		Env:                   "development",
		LogLevel:              "debug",
		CORSOrigins:           []string{"http://localhost:3000"},
		RateLimitRPS:          100,
		RateLimitBurst:        200,
		RequestTimeout:        5 * time.Second,
		BodyLimit:             "2M",
		HospitalTimezone:      "Africa/Lagos",
		EncounterStatusPolicy: config.StatusPolicyStrict,
		ExpiryWarningDays:     30,
		CacheTTL:              time.Minute,
	}
}

func newTestServer(t *testing.T, cfg *config.Config) http.Handler {
	t.Helper()
	e, err := newServer(cfg, zerolog.Nop(), nil, cache.NewMemory())
	if err != nil {
		t.Fatalf("newServer: %v", err)
	}
	return e
}

func TestNewServer_RegistersRoutes(t *testing.T) {
	e, err := newServer(testConfig(), zerolog.Nop(), nil, cache.NewMemory())
	if err != nil {
		t.Fatalf("newServer: %v", err)
	}

	registered := make(map[string]bool)
	for _, r := range e.Routes() {
		registered[r.Method+" "+r.Path] = true
	}

	want := []string{
		"GET /health",
		"GET /health/db",
		"GET /metrics",
		"GET /api/patients",
		"POST /api/patients",
		"GET /api/patients/recent",
		"GET /api/hmos",
		"POST /api/visits",
		"PATCH /api/visits/:id/status",
		"POST /api/visits/:id/payment",
		"GET /api/visits/:id/serviceable",
		"POST /api/visits/:id/ward-charge",
		"GET /api/visits/:id/bill",
		"GET /api/charges",
		"GET /api/wards/occupancy",
		"GET /api/inventory/availability",
		"GET /api/inventory/alerts",
		"GET /api/inventory/reports/profit-loss",
		"GET /api/pharmacies",
		"GET /api/drug-metadata",
		"POST /api/prescriptions",
		"POST /api/prescriptions/:id/dispense",
		"GET /api/settings",
		"PUT /api/settings",
		"PUT /api/banks/:id/set-default",
		"GET /api/reports/dashboard-stats",
		"GET /api/reports/clinical-report",
		"GET /api/reports/:report",
	}
	for _, route := range want {
		if !registered[route] {
			t.Errorf("route %s not registered", route)
		}
	}
}

func TestNewServer_Health(t *testing.T) {
	srv := newTestServer(t, testConfig())

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected a request id header")
	}
	if rec.Header().Get("Cache-Control") != "no-store" {
		t.Errorf("expected no-store, got %q", rec.Header().Get("Cache-Control"))
	}
}

func TestNewServer_DevAuthReachesHandlers(t *testing.T) {
	srv := newTestServer(t, testConfig())

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/visits?status=bogus", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 from the visit filter, got %d", rec.Code)
	}
}

func TestNewServer_DevRoleHeaderEnforcesCapabilities(t *testing.T) {
	srv := newTestServer(t, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/reports/lab-revenue", nil)
	req.Header.Set(auth.DevRoleHeader, string(auth.RoleNurse))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for nurse, got %d", rec.Code)
	}
}

func TestNewServer_SigningKeyRequiresToken(t *testing.T) {
	cfg := testConfig()
	cfg.AuthSigningKey = "test-secret"
	srv := newTestServer(t, cfg)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/patients", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without a token, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected public health check, got %d", rec.Code)
	}
}

func TestNewServer_BadTimezone(t *testing.T) {
	cfg := testConfig()
	cfg.HospitalTimezone = "Mars/Olympus"
	if _, err := newServer(cfg, zerolog.Nop(), nil, cache.NewMemory()); err == nil {
		t.Fatal("expected error for unknown timezone")
	}
}

func TestNewLogger_Level(t *testing.T) {
	cfg := testConfig()
	cfg.Env = "production"

	cfg.LogLevel = "warn"
	if got := newLogger(cfg).GetLevel(); got != zerolog.WarnLevel {
		t.Errorf("expected warn, got %s", got)
	}
	cfg.LogLevel = "loud"
	if got := newLogger(cfg).GetLevel(); got != zerolog.InfoLevel {
		t.Errorf("expected info fallback, got %s", got)
	}
}
