package schedule

import (
	"context"
	"net/http"
	"time"

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
	readGroup.GET("/schedule-events", h.ListEvents)
	readGroup.GET("/schedule-events/:id", h.GetEvent)

	writeGroup := api.Group("", auth.RequireRole("admin", "scheduler"))
	writeGroup.POST("/patients/:patientId/schedule/generate", h.Generate)
	writeGroup.POST("/schedule-events/:id/confirm", h.Confirm)
	writeGroup.POST("/schedule-events/:id/cancel", h.Cancel)
}

type generateRequest struct {
	EndDate string `json:"end_date"`
}

func (h *Handler) Generate(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("patientId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	var req generateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	endDate, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "end_date must be YYYY-MM-DD")
	}
	summary, err := h.svc.Generate(c.Request().Context(), patientID, endDate)
	if err != nil {
		return fault.HTTP(err)
	}
	return c.JSON(http.StatusOK, summary)
}

func (h *Handler) GetEvent(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	ev, err := h.svc.GetEvent(c.Request().Context(), id)
	if err != nil {
		return fault.HTTP(err)
	}
	return c.JSON(http.StatusOK, ev)
}

func (h *Handler) ListEvents(c echo.Context) error {
	patientID, err := uuid.Parse(c.QueryParam("patient_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "patient_id is required")
	}
	var from, to *time.Time
	if v := c.QueryParam("from"); v != "" {
		d, err := time.Parse("2006-01-02", v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "from must be YYYY-MM-DD")
		}
		from = &d
	}
	if v := c.QueryParam("to"); v != "" {
		d, err := time.Parse("2006-01-02", v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "to must be YYYY-MM-DD")
		}
		to = &d
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListByPatient(c.Request().Context(), patientID, from, to, pg.Limit, pg.Offset)
	if err != nil {
		return fault.HTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Confirm(c echo.Context) error {
	return h.transition(c, h.svc.Confirm)
}

func (h *Handler) Cancel(c echo.Context) error {
	return h.transition(c, h.svc.CancelEvent)
}

func (h *Handler) transition(c echo.Context, fn func(context.Context, uuid.UUID) (*Event, error)) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	ev, err := fn(c.Request().Context(), id)
	if err != nil {
		return fault.HTTP(err)
	}
	return c.JSON(http.StatusOK, ev)
}
