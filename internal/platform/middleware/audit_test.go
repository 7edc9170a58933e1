package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/emr/emr/internal/platform/auth"
)

type mockRecorder struct {
	mu      sync.Mutex
	entries []AuditEntry
	err     error
}

func (m *mockRecorder) RecordAccess(entry AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return m.err
}

func (m *mockRecorder) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func newTestContext(method, path string, session *auth.Session) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, path, nil)
	if session != nil {
		req = req.WithContext(auth.WithSession(req.Context(), *session))
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func okHandler(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func TestAudit_PatientRead(t *testing.T) {
	pid := uuid.New().String()
	rec := &mockRecorder{}
	c, _ := newTestContext(http.MethodGet, "/api/patients/"+pid, &auth.Session{UserID: "u1", Role: auth.RoleDoctor})
	c.Set("request_id", "req-9")

	if err := Audit(zerolog.Nop(), rec)(okHandler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.count() != 1 {
		t.Fatalf("expected 1 entry, got %d", rec.count())
	}

	got := rec.entries[0]
	if got.UserID != "u1" || got.Role != "doctor" {
		t.Errorf("unexpected actor: %+v", got)
	}
	if got.Resource != "patients" || got.ResourceID != pid || got.PatientID != pid {
		t.Errorf("unexpected resource: %+v", got)
	}
	if got.Action != "read" || got.StatusCode != http.StatusOK || got.RequestID != "req-9" {
		t.Errorf("unexpected entry: %+v", got)
	}
}

func TestAudit_VisitCreate(t *testing.T) {
	rec := &mockRecorder{}
	c, _ := newTestContext(http.MethodPost, "/api/visits", &auth.Session{UserID: "u2", Role: auth.RoleReceptionist})

	Audit(zerolog.Nop(), rec)(func(c echo.Context) error {
		return c.NoContent(http.StatusCreated)
	})(c)

	got := rec.entries[0]
	if got.Action != "create" || got.Resource != "visits" || got.StatusCode != http.StatusCreated {
		t.Errorf("unexpected entry: %+v", got)
	}
}

func TestAudit_CapturesErrorStatus(t *testing.T) {
	rec := &mockRecorder{}
	c, _ := newTestContext(http.MethodDelete, "/api/charges/"+uuid.New().String(), &auth.Session{UserID: "u3", Role: auth.RoleNurse})

	Audit(zerolog.Nop(), rec)(func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusForbidden, "denied")
	})(c)

	if got := rec.entries[0]; got.StatusCode != http.StatusForbidden || got.Action != "delete" {
		t.Errorf("unexpected entry: %+v", got)
	}
}

func TestAudit_SkipsNonAPIPaths(t *testing.T) {
	rec := &mockRecorder{}
	c, _ := newTestContext(http.MethodGet, "/health", nil)

	Audit(zerolog.Nop(), rec)(okHandler)(c)

	if rec.count() != 0 {
		t.Errorf("expected no entries, got %d", rec.count())
	}
}

func TestAudit_RecorderErrorDoesNotBreakRequest(t *testing.T) {
	rec := &mockRecorder{err: errors.New("disk full")}
	c, res := newTestContext(http.MethodGet, "/api/wards", &auth.Session{UserID: "u1", Role: auth.RoleAdmin})

	if err := Audit(zerolog.Nop(), rec)(okHandler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", res.Code)
	}
}

func TestAudit_PatientIDFromVisitRoute(t *testing.T) {
	pid := uuid.New().String()
	rec := &mockRecorder{}
	c, _ := newTestContext(http.MethodGet, "/api/visits/patient/"+pid, &auth.Session{UserID: "u1", Role: auth.RoleNurse})

	Audit(zerolog.Nop(), rec)(okHandler)(c)

	if got := rec.entries[0]; got.PatientID != pid {
		t.Errorf("expected patient %s, got %s", pid, got.PatientID)
	}
}

func TestAudit_PatientIDFromQuery(t *testing.T) {
	rec := &mockRecorder{}
	c, _ := newTestContext(http.MethodGet, "/api/prescriptions?patient_id=abc", &auth.Session{UserID: "u1", Role: auth.RolePharmacist})

	Audit(zerolog.Nop(), rec)(okHandler)(c)

	if got := rec.entries[0]; got.PatientID != "abc" {
		t.Errorf("expected abc, got %s", got.PatientID)
	}
}

func TestHttpMethodToAction(t *testing.T) {
	tests := map[string]string{
		http.MethodGet:    "read",
		http.MethodHead:   "read",
		http.MethodPost:   "create",
		http.MethodPut:    "update",
		http.MethodPatch:  "update",
		http.MethodDelete: "delete",
	}
	for method, want := range tests {
		if got := httpMethodToAction(method); got != want {
			t.Errorf("httpMethodToAction(%s) = %s, want %s", method, got, want)
		}
	}
}

func TestSplitResource(t *testing.T) {
	id := uuid.New().String()
	tests := []struct {
		path, resource, id string
	}{
		{"/api/patients", "patients", ""},
		{"/api/patients/" + id, "patients", id},
		{"/api/visits/" + id + "/charges", "visits", id},
		{"/api/reports/lab-revenue", "reports", ""},
		{"/api/", "unknown", ""},
	}
	for _, tt := range tests {
		r, rid := splitResource(tt.path)
		if r != tt.resource || rid != tt.id {
			t.Errorf("splitResource(%s) = (%s, %s), want (%s, %s)", tt.path, r, rid, tt.resource, tt.id)
		}
	}
}

func TestAuditRecorderFunc(t *testing.T) {
	called := false
	f := AuditRecorderFunc(func(entry AuditEntry) error {
		called = true
		return nil
	})
	f.RecordAccess(AuditEntry{})
	if !called {
		t.Error("expected func to be called")
	}
}
