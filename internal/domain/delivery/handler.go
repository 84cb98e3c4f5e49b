package delivery

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

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
	readGroup.GET("/deliveries", h.List)
	readGroup.GET("/deliveries/:id", h.Get)

	// Caregivers create visits and record their own check events.
	fieldGroup := api.Group("", auth.RequireRole("admin", "scheduler", "caregiver"))
	fieldGroup.POST("/deliveries", h.Create)
	fieldGroup.POST("/deliveries/:id/check-in", h.CheckIn)
	fieldGroup.POST("/deliveries/:id/check-out", h.CheckOut)

	adminGroup := api.Group("", auth.RequireRole("admin", "scheduler"))
	adminGroup.POST("/deliveries/:id/cancel", h.Cancel)
	adminGroup.POST("/deliveries/:id/approve", h.Approve)
	adminGroup.POST("/deliveries/:id/reject", h.Reject)
}

func (h *Handler) Create(c echo.Context) error {
	var req CreateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	d, err := h.svc.CreateDelivery(c.Request().Context(), req)
	if err != nil {
		return fault.HTTP(err)
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	detail, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return fault.HTTP(err)
	}
	return c.JSON(http.StatusOK, detail)
}

func (h *Handler) List(c echo.Context) error {
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

func (h *Handler) CheckIn(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req CheckRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ev, err := h.svc.RecordCheckIn(c.Request().Context(), id, req)
	if err != nil {
		return fault.HTTP(err)
	}
	return c.JSON(http.StatusCreated, ev)
}

func (h *Handler) CheckOut(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req CheckRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	res, err := h.svc.RecordCheckOut(c.Request().Context(), id, req)
	if err != nil {
		return fault.HTTP(err)
	}
	return c.JSON(http.StatusCreated, res)
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) Cancel(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req cancelRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	by := auth.UserIDFromContext(c.Request().Context())
	d, err := h.svc.Cancel(c.Request().Context(), id, req.Reason, by)
	if err != nil {
		return fault.HTTP(err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) Approve(c echo.Context) error {
	return h.approval(c, h.svc.Approve)
}

func (h *Handler) Reject(c echo.Context) error {
	return h.approval(c, h.svc.Reject)
}

func (h *Handler) approval(c echo.Context, fn func(context.Context, uuid.UUID) (*Delivery, error)) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	d, err := fn(c.Request().Context(), id)
	if err != nil {
		return fault.HTTP(err)
	}
	return c.JSON(http.StatusOK, d)
}
