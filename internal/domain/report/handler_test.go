package report

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/emr/emr/internal/platform/auth"
)

func newTestHandler(t *testing.T) (*Handler, *echo.Echo) {
	f := newFixture(t)
	return NewHandler(f.svc), echo.New()
}

func httpStatus(t *testing.T, err error) int {
	t.Helper()
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected *echo.HTTPError, got %v", err)
	}
	return he.Code
}

func TestHandler_DashboardStats(t *testing.T) {
	h, e := newTestHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/api/reports/dashboard-stats", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.DashboardStats(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got map[string]any
	json.Unmarshal(rec.Body.Bytes(), &got)
	if got["patients"] != float64(12) || got["low_stock_items"] != float64(2) {
		t.Errorf("unexpected body: %v", got)
	}
}

func TestHandler_ClinicalReport(t *testing.T) {
	h, e := newTestHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/?dimension=diagnosis&from=2026-03-01&to=2026-03-31", nil)
	rec := httptest.NewRecorder()

	if err := h.ClinicalReport(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got Report
	json.Unmarshal(rec.Body.Bytes(), &got)
	if got.Dimension != DimDiagnosis || len(got.Categories) != 2 {
		t.Errorf("unexpected report: %+v", got)
	}
}

func TestHandler_ClinicalReport_BadDimension(t *testing.T) {
	h, e := newTestHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/?dimension=surgery", nil)

	err := h.ClinicalReport(e.NewContext(req, httptest.NewRecorder()))
	if code := httpStatus(t, err); code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", code)
	}
}

func TestHandler_Revenue_Routes(t *testing.T) {
	h, e := newTestHandler(t)
	h.RegisterRoutes(e.Group("/api"))

	get := func(target string, role auth.Role) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		req = req.WithContext(auth.WithSession(req.Context(), auth.Session{UserID: "u-1", Role: role}))
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	if rec := get("/api/reports/lab-revenue", auth.RoleAccountant); rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec := get("/api/reports/surgery-revenue", auth.RoleAccountant); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
	if rec := get("/api/reports/lab-revenue", auth.RoleNurse); rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for nurse, got %d", rec.Code)
	}
	if rec := get("/api/reports/dashboard-stats", auth.RoleNurse); rec.Code != http.StatusOK {
		t.Errorf("expected 200 for dashboard, got %d", rec.Code)
	}
}
