package report

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/emr/emr/internal/platform/auth"
	"github.com/emr/emr/pkg/apperr"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/reports")
	g.GET("/dashboard-stats", h.DashboardStats,
		auth.RequireAnyCapability(auth.CapViewPatients, auth.CapViewEncounters, auth.CapViewFinancialReports))
	g.GET("/clinical-report", h.ClinicalReport, auth.RequireCapability(auth.CapViewClinicalReports))
	// Static routes above take precedence over the parameter.
	g.GET("/:report", h.Revenue, auth.RequireCapability(auth.CapViewFinancialReports))
}

func (h *Handler) DashboardStats(c echo.Context) error {
	stats, err := h.svc.DashboardStats(c.Request().Context())
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, stats)
}

func (h *Handler) ClinicalReport(c echo.Context) error {
	d, err := ParseDimension(c.QueryParam("dimension"))
	if err != nil {
		return apperr.ToHTTP(err)
	}
	r, err := h.svc.ClinicalReport(c.Request().Context(), d, c.QueryParam("from"), c.QueryParam("to"))
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) Revenue(c echo.Context) error {
	r, err := h.svc.Revenue(c.Request().Context(), c.Param("report"), c.QueryParam("from"), c.QueryParam("to"))
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, r)
}
