package authorization

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/caretrack/caretrack/internal/platform/auth"
	"github.com/caretrack/caretrack/internal/platform/fault"
	"github.com/caretrack/caretrack/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	readGroup := api.Group("", auth.RequireRole("admin", "scheduler", "caregiver"))
	readGroup.GET("/authorizations", h.ListAuthorizations)
	readGroup.GET("/authorizations/:id", h.GetAuthorization)
	readGroup.GET("/authorizations/:id/remaining-units", h.GetRemainingUnits)
	readGroup.GET("/authorizations/:id/consumptions", h.ListConsumptions)

	writeGroup := api.Group("", auth.RequireRole("admin", "scheduler"))
	writeGroup.POST("/authorizations", h.CreateAuthorization)
	writeGroup.POST("/authorizations/:id/consumptions", h.PostConsumption)
}

func (h *Handler) CreateAuthorization(c echo.Context) error {
	var a Authorization
	if err := c.Bind(&a); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateAuthorization(c.Request().Context(), &a); err != nil {
		return fault.HTTP(err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) GetAuthorization(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	a, err := h.svc.GetAuthorization(c.Request().Context(), id)
	if err != nil {
		return fault.HTTP(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) ListAuthorizations(c echo.Context) error {
	patientID, err := uuid.Parse(c.QueryParam("patient_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "patient_id is required")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListByPatient(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return fault.HTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetRemainingUnits(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	usage, err := h.svc.Usage(c.Request().Context(), id)
	if err != nil {
		return fault.HTTP(err)
	}
	return c.JSON(http.StatusOK, usage)
}

type postConsumptionRequest struct {
	SourceType  string          `json:"source_type"`
	SourceID    uuid.UUID       `json:"source_id"`
	ServiceDate string          `json:"service_date"`
	Units       decimal.Decimal `json:"units"`
	Missed      bool            `json:"missed"`
}

func (h *Handler) PostConsumption(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var body postConsumptionRequest
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	serviceDate, err := time.Parse("2006-01-02", body.ServiceDate)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "service_date must be YYYY-MM-DD")
	}
	req := PostRequest{
		AuthorizationID: id,
		SourceType:      SourceType(body.SourceType),
		SourceID:        body.SourceID,
		ServiceDate:     serviceDate,
		Units:           body.Units,
		Missed:          body.Missed,
	}
	res, err := h.svc.PostConsumption(c.Request().Context(), req)
	if err != nil {
		return fault.HTTP(err)
	}
	status := http.StatusCreated
	if res.Duplicate {
		status = http.StatusOK
	}
	return c.JSON(status, res)
}

func (h *Handler) ListConsumptions(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListConsumptions(c.Request().Context(), id, pg.Limit, pg.Offset)
	if err != nil {
		return fault.HTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
