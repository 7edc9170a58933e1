package settings

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/emr/emr/internal/platform/auth"
	"github.com/emr/emr/internal/platform/validate"
)

func newTestServer(t *testing.T) (*echo.Echo, *mockRepo) {
	t.Helper()
	svc, repo, _ := newTestService()
	h := NewHandler(svc)
	e := echo.New()
	e.Validator = validate.New()
	api := e.Group("/api")
	h.RegisterPublicRoutes(api)
	h.RegisterRoutes(api)
	return e, repo
}

func do(e *echo.Echo, method, target, body string, role auth.Role) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if role != "" {
		req = req.WithContext(auth.WithSession(req.Context(), auth.Session{UserID: "u-1", Role: role}))
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHandler_GetSettings_Public(t *testing.T) {
	e, _ := newTestServer(t)

	rec := do(e, http.MethodGet, "/api/settings", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got Hospital
	json.Unmarshal(rec.Body.Bytes(), &got)
	if got.Name != "General Hospital" {
		t.Errorf("unexpected settings: %+v", got)
	}
}

func TestHandler_UpdateSettings(t *testing.T) {
	e, repo := newTestServer(t)
	body := `{"name":"St. Luke's","currency_symbol":"₦","email":"info@stlukes.test"}`

	if rec := do(e, http.MethodPut, "/api/settings", body, ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without session, got %d", rec.Code)
	}
	if rec := do(e, http.MethodPut, "/api/settings", body, auth.RoleNurse); rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for nurse, got %d", rec.Code)
	}
	if rec := do(e, http.MethodPut, "/api/settings", body, auth.RoleAdmin); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if repo.hospital.Name != "St. Luke's" {
		t.Errorf("expected update to persist, got %s", repo.hospital.Name)
	}
}

func TestHandler_UpdateSettings_Invalid(t *testing.T) {
	e, _ := newTestServer(t)

	rec := do(e, http.MethodPut, "/api/settings", `{"name":"X","currency_symbol":"₦","email":"nope"}`, auth.RoleAdmin)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestHandler_Banks(t *testing.T) {
	e, repo := newTestServer(t)

	rec := do(e, http.MethodPost, "/api/banks",
		`{"bank_name":"First Bank","account_name":"Hospital","account_number":"0011","is_default":true}`, auth.RoleAdmin)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = do(e, http.MethodPost, "/api/banks",
		`{"bank_name":"GTBank","account_name":"Hospital","account_number":"0022"}`, auth.RoleAdmin)
	var second Bank
	json.Unmarshal(rec.Body.Bytes(), &second)

	rec = do(e, http.MethodPut, "/api/banks/"+second.ID.String()+"/set-default", "", auth.RoleAdmin)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	d := defaults(repo)
	if len(d) != 1 || d[0] != second.ID {
		t.Errorf("expected GTBank as the only default, got %v", d)
	}

	rec = do(e, http.MethodGet, "/api/banks", "", auth.RoleCashier)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for cashier, got %d", rec.Code)
	}
	var banks []Bank
	json.Unmarshal(rec.Body.Bytes(), &banks)
	if len(banks) != 2 {
		t.Errorf("expected 2 banks, got %d", len(banks))
	}
}

func TestHandler_Banks_Validation(t *testing.T) {
	e, _ := newTestServer(t)

	if rec := do(e, http.MethodPost, "/api/banks", `{"bank_name":"First Bank"}`, auth.RoleAdmin); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
	if rec := do(e, http.MethodPut, "/api/banks/abc/set-default", "", auth.RoleAdmin); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad id, got %d", rec.Code)
	}
	if rec := do(e, http.MethodDelete, "/api/banks/00000000-0000-0000-0000-000000000001", "", auth.RoleAdmin); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}
