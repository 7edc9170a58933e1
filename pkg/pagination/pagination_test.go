package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func paramsFor(query string) Params {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/patients"+query, nil)
	return FromContext(e.NewContext(req, httptest.NewRecorder()))
}

func TestFromContext_Defaults(t *testing.T) {
	p := paramsFor("")
	if p.Limit != DefaultLimit || p.Offset != 0 {
		t.Errorf("expected defaults, got %+v", p)
	}
}

func TestFromContext_LimitOffset(t *testing.T) {
	p := paramsFor("?limit=50&offset=100")
	if p.Limit != 50 || p.Offset != 100 {
		t.Errorf("expected 50/100, got %+v", p)
	}
}

func TestFromContext_Page(t *testing.T) {
	p := paramsFor("?limit=25&page=3")
	if p.Offset != 50 {
		t.Errorf("expected offset 50, got %d", p.Offset)
	}
	if p.Page() != 3 {
		t.Errorf("expected page 3, got %d", p.Page())
	}
}

func TestFromContext_MaxLimit(t *testing.T) {
	if p := paramsFor("?limit=5000"); p.Limit != MaxLimit {
		t.Errorf("expected limit capped at %d, got %d", MaxLimit, p.Limit)
	}
}

func TestFromContext_Negative(t *testing.T) {
	p := paramsFor("?limit=-5&offset=-10")
	if p.Limit != DefaultLimit || p.Offset != 0 {
		t.Errorf("expected sanitized params, got %+v", p)
	}
}

func TestNewResponse(t *testing.T) {
	r := NewResponse([]string{"a", "b"}, 45, Params{Limit: 20, Offset: 20})
	if r.Total != 45 || r.Page != 2 || !r.HasMore {
		t.Errorf("unexpected response: %+v", r)
	}

	last := NewResponse(nil, 45, Params{Limit: 20, Offset: 40})
	if last.HasMore {
		t.Error("expected last page to have no more")
	}
}
