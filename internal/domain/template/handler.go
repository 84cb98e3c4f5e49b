package template

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/caretrack/caretrack/internal/platform/auth"
	"github.com/caretrack/caretrack/internal/platform/fault"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	readGroup := api.Group("", auth.RequireRole("admin", "scheduler", "caregiver"))
	readGroup.GET("/templates/:id", h.GetTemplate)
	readGroup.GET("/patients/:patientId/template", h.GetActiveTemplate)

	writeGroup := api.Group("", auth.RequireRole("admin", "scheduler"))
	writeGroup.POST("/templates", h.CreateTemplate)
	writeGroup.DELETE("/templates/:id", h.DeleteTemplate)
	writeGroup.POST("/templates/:id/weeks", h.AddWeek)
	writeGroup.DELETE("/weeks/:id", h.DeleteWeek)
	writeGroup.POST("/weeks/:id/events", h.AddEvent)
	writeGroup.DELETE("/events/:id", h.RemoveEvent)
}

func (h *Handler) CreateTemplate(c echo.Context) error {
	var t Template
	if err := c.Bind(&t); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateTemplate(c.Request().Context(), &t); err != nil {
		return fault.HTTP(err)
	}
	return c.JSON(http.StatusCreated, t)
}

func (h *Handler) GetTemplate(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	detail, err := h.svc.GetTemplateDetail(c.Request().Context(), id)
	if err != nil {
		return fault.HTTP(err)
	}
	return c.JSON(http.StatusOK, detail)
}

func (h *Handler) GetActiveTemplate(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("patientId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	t, err := h.svc.ActiveForPatient(c.Request().Context(), patientID)
	if err != nil {
		return fault.HTTP(err)
	}
	detail, err := h.svc.GetTemplateDetail(c.Request().Context(), t.ID)
	if err != nil {
		return fault.HTTP(err)
	}
	return c.JSON(http.StatusOK, detail)
}

func (h *Handler) DeleteTemplate(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteTemplate(c.Request().Context(), id); err != nil {
		return fault.HTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) AddWeek(c echo.Context) error {
	templateID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var w Week
	if err := c.Bind(&w); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	w.TemplateID = templateID
	if err := h.svc.AddWeek(c.Request().Context(), &w); err != nil {
		return fault.HTTP(err)
	}
	return c.JSON(http.StatusCreated, w)
}

func (h *Handler) DeleteWeek(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteWeek(c.Request().Context(), id); err != nil {
		return fault.HTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) AddEvent(c echo.Context) error {
	weekID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var e Event
	if err := c.Bind(&e); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	e.WeekID = weekID
	if err := h.svc.AddEvent(c.Request().Context(), &e); err != nil {
		return fault.HTTP(err)
	}
	return c.JSON(http.StatusCreated, e)
}

func (h *Handler) RemoveEvent(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.RemoveEvent(c.Request().Context(), id); err != nil {
		return fault.HTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}
