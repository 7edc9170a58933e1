package encounter

import (
	"net/http"
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
	read := api.Group("", auth.RequireCapability(auth.CapViewEncounters))
	read.GET("/visits", h.ListEncounters)
	read.GET("/visits/patient/:id", h.ListByPatient)
	read.GET("/visits/:id", h.GetEncounter)
	read.GET("/visits/:id/serviceable", h.Serviceable)
	read.GET("/visits/:id/charges", h.ListCharges)
	read.GET("/visits/:id/bill", h.Bill)
	read.GET("/visits/:id/diagnoses", h.ListDiagnoses)
	read.GET("/visits/:id/status-history", h.ListStatusHistory)

	api.POST("/visits", h.CreateEncounter, auth.RequireCapability(auth.CapCreateEncounter))

	status := api.Group("", auth.RequireCapability(auth.CapUpdateEncounterStatus))
	status.PUT("/visits/:id", h.UpdateEncounter)
	status.PATCH("/visits/:id/status", h.UpdateStatus)

	api.POST("/visits/:id/payment", h.ConfirmPayment, auth.RequireCapability(auth.CapConfirmPayment))

	charges := api.Group("", auth.RequireCapability(auth.CapAttachCharges))
	charges.POST("/visits/:id/charges", h.AddCharge)
	charges.DELETE("/visits/:id/charges/:chargeId", h.RemoveCharge)
	charges.POST("/visits/:id/ward-charge", h.AddWardCharge)

	api.POST("/visits/:id/diagnoses", h.AddDiagnosis, auth.RequireCapability(auth.CapRecordDiagnosis))
	api.DELETE("/visits/:id", h.DeleteEncounter, auth.RequireCapability(auth.CapDeleteEncounter))
}

func encounterID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func (h *Handler) CreateEncounter(c echo.Context) error {
	var req CreateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return apperr.ToHTTP(err)
	}
	enc, err := h.svc.CreateEncounter(c.Request().Context(), auth.SessionFrom(c), req)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, enc)
}

func (h *Handler) GetEncounter(c echo.Context) error {
	id, err := encounterID(c)
	if err != nil {
		return err
	}
	enc, err := h.svc.GetEncounter(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, enc)
}

func (h *Handler) ListEncounters(c echo.Context) error {
	pg := pagination.FromContext(c)
	f, err := filterFromQuery(c)
	if err != nil {
		return err
	}
	encs, total, err := h.svc.ListEncounters(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(encs, total, pg))
}

func filterFromQuery(c echo.Context) (ListFilter, error) {
	var f ListFilter
	if v := c.QueryParam("status"); v != "" {
		st, err := ParseStatus(v)
		if err != nil {
			return f, echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		f.Status = st
	}
	if v := c.QueryParam("type"); v != "" {
		t, err := ParseType(v)
		if err != nil {
			return f, echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		f.Type = t
	}
	for _, p := range []struct {
		name string
		dst  *string
	}{{"from", &f.From}, {"to", &f.To}} {
		v := c.QueryParam(p.name)
		if v == "" {
			continue
		}
		if _, err := time.Parse(time.DateOnly, v); err != nil {
			return f, echo.NewHTTPError(http.StatusBadRequest, "invalid "+p.name+" date, want YYYY-MM-DD")
		}
		*p.dst = v
	}
	return f, nil
}

func (h *Handler) ListByPatient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	pg := pagination.FromContext(c)
	encs, total, err := h.svc.ListByPatient(c.Request().Context(), id, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(encs, total, pg))
}

func (h *Handler) UpdateEncounter(c echo.Context) error {
	id, err := encounterID(c)
	if err != nil {
		return err
	}
	var req UpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return apperr.ToHTTP(err)
	}
	enc, err := h.svc.UpdateEncounter(c.Request().Context(), auth.SessionFrom(c), id, req)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, enc)
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	id, err := encounterID(c)
	if err != nil {
		return err
	}
	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return apperr.ToHTTP(err)
	}
	to, err := ParseStatus(req.Status)
	if err != nil {
		return apperr.ToHTTP(ErrInvalidStatus)
	}
	enc, err := h.svc.UpdateStatus(c.Request().Context(), auth.SessionFrom(c), id, to)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, enc)
}

func (h *Handler) ConfirmPayment(c echo.Context) error {
	id, err := encounterID(c)
	if err != nil {
		return err
	}
	bill, err := h.svc.ConfirmPayment(c.Request().Context(), auth.SessionFrom(c), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, bill)
}

func (h *Handler) Serviceable(c echo.Context) error {
	id, err := encounterID(c)
	if err != nil {
		return err
	}
	dept := Department(c.QueryParam("department"))
	res, err := h.svc.RequireServiceable(c.Request().Context(), id, dept)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) AddCharge(c echo.Context) error {
	id, err := encounterID(c)
	if err != nil {
		return err
	}
	var req AddChargeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return apperr.ToHTTP(err)
	}
	line, err := h.svc.AddCharge(c.Request().Context(), auth.SessionFrom(c), id, req)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, line)
}

func (h *Handler) RemoveCharge(c echo.Context) error {
	id, err := encounterID(c)
	if err != nil {
		return err
	}
	lineID, err := uuid.Parse(c.Param("chargeId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid charge id")
	}
	if err := h.svc.RemoveCharge(c.Request().Context(), id, lineID); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListCharges(c echo.Context) error {
	id, err := encounterID(c)
	if err != nil {
		return err
	}
	lines, err := h.svc.ListCharges(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	if lines == nil {
		lines = []*EncounterCharge{}
	}
	return c.JSON(http.StatusOK, lines)
}

func (h *Handler) Bill(c echo.Context) error {
	id, err := encounterID(c)
	if err != nil {
		return err
	}
	bill, err := h.svc.Bill(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, bill)
}

type wardChargeRequest struct {
	Days int `json:"days" validate:"required,gte=1,lte=365"`
}

func (h *Handler) AddWardCharge(c echo.Context) error {
	id, err := encounterID(c)
	if err != nil {
		return err
	}
	var req wardChargeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return apperr.ToHTTP(err)
	}
	line, err := h.svc.AddWardCharge(c.Request().Context(), auth.SessionFrom(c), id, req.Days)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, line)
}

func (h *Handler) AddDiagnosis(c echo.Context) error {
	id, err := encounterID(c)
	if err != nil {
		return err
	}
	var d Diagnosis
	if err := c.Bind(&d); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	d.EncounterID = id
	if err := c.Validate(&d); err != nil {
		return apperr.ToHTTP(err)
	}
	if err := h.svc.AddDiagnosis(c.Request().Context(), auth.SessionFrom(c), &d); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) ListDiagnoses(c echo.Context) error {
	id, err := encounterID(c)
	if err != nil {
		return err
	}
	ds, err := h.svc.ListDiagnoses(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	if ds == nil {
		ds = []*Diagnosis{}
	}
	return c.JSON(http.StatusOK, ds)
}

func (h *Handler) ListStatusHistory(c echo.Context) error {
	id, err := encounterID(c)
	if err != nil {
		return err
	}
	hist, err := h.svc.ListStatusHistory(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	if hist == nil {
		hist = []*StatusChange{}
	}
	return c.JSON(http.StatusOK, hist)
}

func (h *Handler) DeleteEncounter(c echo.Context) error {
	id, err := encounterID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteEncounter(c.Request().Context(), auth.SessionFrom(c), id); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}
