package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/copilot/internal/state"
	"github.com/mohammad-safakhou/copilot/internal/store"
)

// PlansHandler serves the saved-plan catalogue. The file store is
// authoritative; the Postgres archive, when present, is kept in step on
// deletes.
type PlansHandler struct {
	Manager *state.Manager
	Archive *store.Store
}

func (h *PlansHandler) Register(g *echo.Group) {
	g.GET("/plans", h.list)
	g.GET("/plans/:id", h.get)
	g.DELETE("/plans/:id", h.delete)
	g.GET("/plans/:id/export", h.export)
}

func (h *PlansHandler) list(c echo.Context) error {
	plans, err := h.Manager.ListPlans()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if plans == nil {
		plans = []state.PlanSummary{}
	}
	return c.JSON(http.StatusOK, plans)
}

func (h *PlansHandler) get(c echo.Context) error {
	plan, err := h.Manager.LoadPlan(c.Param("id"))
	if err != nil {
		if err == state.ErrPlanNotFound {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, plan)
}

func (h *PlansHandler) delete(c echo.Context) error {
	planID := c.Param("id")
	if err := h.Manager.DeletePlan(planID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if h.Archive != nil {
		// Archive cleanup is best-effort; files are already gone.
		_ = h.Archive.DeletePlan(c.Request().Context(), planID)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "deleted", "plan_id": planID})
}

func (h *PlansHandler) export(c echo.Context) error {
	bundle, err := h.Manager.Export(c.Param("id"))
	if err != nil {
		if err == state.ErrPlanNotFound {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, bundle)
}
