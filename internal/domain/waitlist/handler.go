package waitlist

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/orsched/orsched/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/waitlist", h.ListEntries)
	api.GET("/waitlist/ranked", h.Ranked)
	api.GET("/waitlist/:id", h.GetEntry)
	api.POST("/waitlist", h.CreateEntry)
	api.PUT("/waitlist/:id", h.UpdateEntry)
	api.DELETE("/waitlist/:id", h.DeleteEntry)
}

func (h *Handler) CreateEntry(c echo.Context) error {
	var e Entry
	if err := c.Bind(&e); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateEntry(c.Request().Context(), &e); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, e)
}

func (h *Handler) GetEntry(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	e, err := h.svc.GetEntry(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "waitlist entry not found")
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) ListEntries(c echo.Context) error {
	pg := pagination.FromContext(c)
	status := c.QueryParam("status")

	var (
		items []*Entry
		total int
		err   error
	)
	if status != "" {
		items, total, err = h.svc.ListByStatus(c.Request().Context(), status, pg.Limit, pg.Offset)
	} else {
		items, total, err = h.svc.ListEntries(c.Request().Context(), pg.Limit, pg.Offset)
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

// Ranked serves the waitlist in priority order, annotated with each entry's
// current score.
func (h *Handler) Ranked(c echo.Context) error {
	now := time.Now().UTC()
	ranked, err := h.svc.Ranked(c.Request().Context(), now)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	type rankedEntry struct {
		*Entry
		Rank     int   `json:"rank"`
		WaitDays int   `json:"wait_days"`
	}
	out := make([]rankedEntry, len(ranked))
	for i, e := range ranked {
		out[i] = rankedEntry{Entry: e, Rank: i + 1, WaitDays: e.WaitDays(now)}
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) UpdateEntry(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var e Entry
	if err := c.Bind(&e); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	e.ID = id
	if err := h.svc.UpdateEntry(c.Request().Context(), &e); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) DeleteEntry(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteEntry(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
