package planner

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/orsched/orsched/internal/domain/schedule"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/schedule", h.Latest)
	api.GET("/schedule/versions/:version", h.Version)
	api.GET("/schedule/violations", h.Violations)
	api.POST("/schedule/solve", h.Solve)
	api.PUT("/schedule/surgeries/:id/status", h.UpdateSurgeryStatus)
}

func (h *Handler) Latest(c echo.Context) error {
	sched, err := h.svc.Latest(c.Request().Context())
	if err != nil {
		if errors.Is(err, schedule.ErrNoSchedule) {
			return echo.NewHTTPError(http.StatusNotFound, "no schedule committed yet")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, sched)
}

func (h *Handler) Version(c echo.Context) error {
	v, err := strconv.Atoi(c.Param("version"))
	if err != nil || v < 1 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid version")
	}
	sched, err := h.svc.Version(c.Request().Context(), v)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return c.JSON(http.StatusOK, sched)
}

func (h *Handler) Violations(c echo.Context) error {
	violations, err := h.svc.Violations(c.Request().Context())
	if err != nil {
		if errors.Is(err, schedule.ErrNoSchedule) {
			return echo.NewHTTPError(http.StatusNotFound, "no schedule committed yet")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, violations)
}

func (h *Handler) Solve(c echo.Context) error {
	sched, err := h.svc.Solve(c.Request().Context())
	if err != nil {
		switch {
		case errors.Is(err, ErrSolveInProgress):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		case errors.Is(err, ErrSolvePreempted):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, sched)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) UpdateSurgeryStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.MarkSurgeryStatus(c.Request().Context(), id, req.Status); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
