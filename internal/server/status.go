package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/copilot/config"
	"github.com/mohammad-safakhou/copilot/internal/llm"
	"github.com/mohammad-safakhou/copilot/internal/orchestrator"
	"github.com/mohammad-safakhou/copilot/internal/search"
	"github.com/mohammad-safakhou/copilot/internal/state"
	"github.com/mohammad-safakhou/copilot/models"
)

// StatusHandler reports service health and configuration for the UI's
// status page.
type StatusHandler struct {
	Config  *config.Config
	LLM     *llm.Service
	Search  *search.Service
	Orch    *orchestrator.Orchestrator
	Manager *state.Manager
}

func (h *StatusHandler) Register(g *echo.Group) {
	g.GET("/status", h.status)
	g.GET("/model", h.model)
	g.GET("/stages", h.stages)
}

func (h *StatusHandler) status(c echo.Context) error {
	ctx := c.Request().Context()

	stats, err := h.Manager.StorageStats()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"app":              h.Config.General.AppName,
		"version":          h.Config.General.Version,
		"production_ready": h.Config.ProductionReady(),
		"services":         h.Config.ServiceStatuses(),
		"warnings":         h.Config.Warnings(),
		"llm":              h.LLM.HealthCheck(ctx),
		"search":           h.Search.HealthCheck(ctx),
		"orchestrator":     h.Orch.Status(),
		"storage":          stats,
	})
}

func (h *StatusHandler) model(c echo.Context) error {
	return c.JSON(http.StatusOK, h.LLM.ModelInfo())
}

// stages lists the funnel in order with each stage's objective block.
func (h *StatusHandler) stages(c echo.Context) error {
	type stageView struct {
		Stage     models.Stage `json:"stage"`
		Objective string       `json:"objective"`
		Terminal  bool         `json:"terminal"`
	}
	out := make([]stageView, 0, len(models.Stages))
	for _, s := range models.Stages {
		obj, _ := orchestrator.StageContext(s)
		out = append(out, stageView{Stage: s, Objective: obj, Terminal: s.Terminal()})
	}
	return c.JSON(http.StatusOK, out)
}
