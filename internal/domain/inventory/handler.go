package inventory

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/emr/emr/internal/platform/auth"
	"github.com/emr/emr/pkg/apperr"
	"github.com/emr/emr/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireCapability(auth.CapViewInventory))
	read.GET("/inventory", h.ListItems)
	read.GET("/inventory/aggregate", h.Aggregate)
	read.GET("/inventory/availability", h.Availability)
	read.GET("/inventory/alerts", h.Alerts)
	read.GET("/inventory/:id", h.GetItem)
	read.GET("/pharmacies", h.ListPharmacies)
	read.GET("/drug-metadata", h.ListDrugs)

	write := api.Group("", auth.RequireCapability(auth.CapManageInventory))
	write.POST("/inventory", h.CreateItem)
	write.PUT("/inventory/:id", h.UpdateItem)
	write.DELETE("/inventory/:id", h.DeleteItem)
	write.POST("/pharmacies", h.CreatePharmacy)
	write.POST("/drug-metadata", h.CreateDrug)

	api.GET("/inventory/reports/profit-loss", h.ProfitLoss, auth.RequireCapability(auth.CapViewFinancialReports))
}

func pharmacyParam(c echo.Context) (*uuid.UUID, error) {
	v := c.QueryParam("pharmacy_id")
	if v == "" {
		return nil, nil
	}
	id, err := uuid.Parse(v)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid pharmacy_id")
	}
	return &id, nil
}

func (h *Handler) CreateItem(c echo.Context) error {
	var it Item
	if err := c.Bind(&it); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&it); err != nil {
		return apperr.ToHTTP(err)
	}
	if err := h.svc.CreateItem(c.Request().Context(), &it); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, it)
}

func (h *Handler) GetItem(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	it, err := h.svc.GetItem(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, it)
}

func (h *Handler) ListItems(c echo.Context) error {
	pg := pagination.FromContext(c)
	pid, err := pharmacyParam(c)
	if err != nil {
		return err
	}
	items, total, err := h.svc.ListItems(c.Request().Context(), ListFilter{PharmacyID: pid, Query: c.QueryParam("q")}, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) UpdateItem(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var it Item
	if err := c.Bind(&it); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	it.ID = id
	if err := c.Validate(&it); err != nil {
		return apperr.ToHTTP(err)
	}
	if err := h.svc.UpdateItem(c.Request().Context(), &it); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, it)
}

func (h *Handler) DeleteItem(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteItem(c.Request().Context(), id); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Aggregate(c echo.Context) error {
	pid, err := pharmacyParam(c)
	if err != nil {
		return err
	}
	agg, err := h.svc.Aggregate(c.Request().Context(), pid)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, agg)
}

// Availability answers GET /inventory/availability?name=&quantity=. A
// pharmacist with an assigned pharmacy sees that pharmacy's stock unless
// pharmacy_id says otherwise.
func (h *Handler) Availability(c echo.Context) error {
	name := c.QueryParam("name")
	if name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name is required")
	}
	qty := 1
	if v := c.QueryParam("quantity"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "quantity must be a positive integer")
		}
		qty = n
	}
	pid, err := pharmacyParam(c)
	if err != nil {
		return err
	}
	if pid == nil {
		pid = auth.SessionFrom(c).AssignedPharmacy
	}

	res, err := h.svc.Availability(c.Request().Context(), name, qty, pid)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) Alerts(c echo.Context) error {
	pid, err := pharmacyParam(c)
	if err != nil {
		return err
	}
	alerts, err := h.svc.Alerts(c.Request().Context(), pid)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, alerts)
}

func (h *Handler) ProfitLoss(c echo.Context) error {
	from, to := c.QueryParam("from"), c.QueryParam("to")
	for _, v := range []string{from, to} {
		if v == "" {
			continue
		}
		if _, err := time.Parse(time.DateOnly, v); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "dates must be YYYY-MM-DD")
		}
	}
	pl, err := h.svc.ProfitLoss(c.Request().Context(), from, to)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pl)
}

func (h *Handler) CreatePharmacy(c echo.Context) error {
	var p Pharmacy
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&p); err != nil {
		return apperr.ToHTTP(err)
	}
	if err := h.svc.CreatePharmacy(c.Request().Context(), &p); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) ListPharmacies(c echo.Context) error {
	ps, err := h.svc.ListPharmacies(c.Request().Context())
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, ps)
}

func (h *Handler) CreateDrug(c echo.Context) error {
	var d DrugMetadata
	if err := c.Bind(&d); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&d); err != nil {
		return apperr.ToHTTP(err)
	}
	if err := h.svc.CreateDrug(c.Request().Context(), &d); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) ListDrugs(c echo.Context) error {
	ds, err := h.svc.ListDrugs(c.Request().Context(), c.QueryParam("q"))
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, ds)
}
