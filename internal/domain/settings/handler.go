package settings

import (
	"net/http"

	"github.com/google/uuid"
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

// RegisterPublicRoutes mounts the routes served without a session.
func (h *Handler) RegisterPublicRoutes(api *echo.Group) {
	api.GET("/settings", h.GetHospital)
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.PUT("/settings", h.UpdateHospital, auth.RequireCapability(auth.CapManageSettings))

	read := api.Group("", auth.RequireCapability(auth.CapViewBanks))
	read.GET("/banks", h.ListBanks)
	read.GET("/banks/:id", h.GetBank)

	write := api.Group("", auth.RequireCapability(auth.CapManageBanks))
	write.POST("/banks", h.CreateBank)
	write.PUT("/banks/:id", h.UpdateBank)
	write.DELETE("/banks/:id", h.DeleteBank)
	write.PUT("/banks/:id/set-default", h.SetDefault)
}

func (h *Handler) GetHospital(c echo.Context) error {
	hs, err := h.svc.Hospital(c.Request().Context())
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, hs)
}

func (h *Handler) UpdateHospital(c echo.Context) error {
	var hs Hospital
	if err := c.Bind(&hs); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&hs); err != nil {
		return apperr.ToHTTP(err)
	}
	if err := h.svc.UpdateHospital(c.Request().Context(), &hs); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, hs)
}

func (h *Handler) ListBanks(c echo.Context) error {
	banks, err := h.svc.ListBanks(c.Request().Context())
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, banks)
}

func (h *Handler) GetBank(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	b, err := h.svc.GetBank(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) CreateBank(c echo.Context) error {
	var b Bank
	if err := c.Bind(&b); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&b); err != nil {
		return apperr.ToHTTP(err)
	}
	if err := h.svc.CreateBank(c.Request().Context(), &b); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, b)
}

func (h *Handler) UpdateBank(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var b Bank
	if err := c.Bind(&b); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	b.ID = id
	if err := c.Validate(&b); err != nil {
		return apperr.ToHTTP(err)
	}
	if err := h.svc.UpdateBank(c.Request().Context(), &b); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) DeleteBank(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteBank(c.Request().Context(), id); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) SetDefault(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	b, err := h.svc.SetDefault(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, b)
}
