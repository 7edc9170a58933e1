package charge

import (
	"net/http"
	"strconv"

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
	read := api.Group("", auth.RequireCapability(auth.CapViewCatalog))
	read.GET("/charges", h.ListCharges)
	read.GET("/charges/:id", h.GetCharge)

	write := api.Group("", auth.RequireCapability(auth.CapManageCatalog))
	write.POST("/charges", h.CreateCharge)
	write.PUT("/charges/:id", h.UpdateCharge)
	write.DELETE("/charges/:id", h.DeleteCharge)
}

func (h *Handler) CreateCharge(c echo.Context) error {
	var ch Charge
	if err := c.Bind(&ch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&ch); err != nil {
		return apperr.ToHTTP(err)
	}
	if err := h.svc.CreateCharge(c.Request().Context(), &ch); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, ch)
}

func (h *Handler) GetCharge(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	ch, err := h.svc.GetCharge(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, ch)
}

func (h *Handler) ListCharges(c echo.Context) error {
	pg := pagination.FromContext(c)
	f := ListFilter{Query: c.QueryParam("q")}
	if v := c.QueryParam("category"); v != "" {
		cat, err := ParseCategory(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		f.Category = cat
	}
	if v := c.QueryParam("active"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid active flag")
		}
		f.Active = &active
	}

	charges, total, err := h.svc.ListCharges(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(charges, total, pg))
}

func (h *Handler) UpdateCharge(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var ch Charge
	if err := c.Bind(&ch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ch.ID = id
	if err := c.Validate(&ch); err != nil {
		return apperr.ToHTTP(err)
	}
	if err := h.svc.UpdateCharge(c.Request().Context(), &ch); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, ch)
}

func (h *Handler) DeleteCharge(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteCharge(c.Request().Context(), id); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}
