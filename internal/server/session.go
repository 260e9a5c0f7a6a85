package server

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/copilot/internal/orchestrator"
	"github.com/mohammad-safakhou/copilot/internal/state"
	"github.com/mohammad-safakhou/copilot/internal/store"
	"github.com/mohammad-safakhou/copilot/models"
)

// SessionHandler holds the single active planning conversation: the working
// business plan, the current stage and the chat history. The deployment is
// single-user; one session lives in memory and is persisted through the
// state manager.
type SessionHandler struct {
	orch    *orchestrator.Orchestrator
	manager *state.Manager
	archive *store.Store
	logger  *log.Logger

	maxChatHistory int

	autoSaveStop chan struct{}

	mu      sync.Mutex
	planID  string
	stage   models.Stage
	plan    models.BusinessPlan
	history []models.ChatMessage
	dirty   bool
}

// NewSessionHandler creates a handler with a fresh session at the idea stage.
func NewSessionHandler(orch *orchestrator.Orchestrator, manager *state.Manager, archive *store.Store, maxChatHistory int, logger *log.Logger) *SessionHandler {
	if logger == nil {
		logger = log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	}
	if maxChatHistory <= 0 {
		maxChatHistory = 100
	}
	return &SessionHandler{
		orch:           orch,
		manager:        manager,
		archive:        archive,
		logger:         logger,
		maxChatHistory: maxChatHistory,
		stage:          models.StageIdea,
		plan:           models.BusinessPlan{},
	}
}

// Register mounts the session routes on the API group.
func (h *SessionHandler) Register(g *echo.Group) {
	g.POST("/chat", h.chat)
	g.GET("/session", h.session)
	g.POST("/session/new", h.reset)
	g.POST("/session/save", h.save)
	g.POST("/session/load", h.load)
	g.GET("/history", h.executionHistory)
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Message    string              `json:"message"`
	Stage      models.Stage        `json:"stage"`
	NextStage  models.Stage        `json:"next_stage,omitempty"`
	Plan       models.BusinessPlan `json:"business_plan"`
	TaskID     string              `json:"task_id"`
	PlanID     string              `json:"plan_id,omitempty"`
	TurnCount  int                 `json:"turn_count"`
	Processing time.Duration       `json:"processing_ms"`
}

func (h *SessionHandler) chat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Message == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "message is required")
	}
	chatRequestsTotal.Inc()
	started := time.Now()

	h.mu.Lock()
	stage := h.stage
	plan := models.BusinessPlan{}
	plan.Merge(h.plan)
	history := make([]models.ChatMessage, len(h.history))
	copy(history, h.history)
	h.mu.Unlock()

	res, err := h.orch.Process(c.Request().Context(), req.Message, stage, plan, history)
	if err != nil {
		chatErrorsTotal.Inc()
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}

	h.mu.Lock()
	h.history = append(h.history,
		models.ChatMessage{Role: "user", Content: req.Message},
		models.ChatMessage{Role: "assistant", Content: res.Message},
	)
	if len(h.history) > h.maxChatHistory {
		h.history = h.history[len(h.history)-h.maxChatHistory:]
	}
	if res.PlanUpdate != nil {
		h.plan.Merge(res.PlanUpdate)
	}
	// The stage only ever moves forward. A slow turn that snapshotted an
	// earlier stage may finish after later turns already advanced the
	// pipeline; its advancement is stale by then and must not roll back.
	var advanced models.Stage
	if res.NextStage != "" && res.NextStage.Index() > h.stage.Index() {
		h.stage = res.NextStage
		advanced = res.NextStage
		stageAdvancesTotal.Inc()
	}
	h.dirty = true
	resp := chatResponse{
		Message:    res.Message,
		Stage:      h.stage,
		NextStage:  advanced,
		Plan:       h.plan,
		TaskID:     res.TaskID,
		PlanID:     h.planID,
		TurnCount:  len(h.history) / 2,
		Processing: time.Since(started) / time.Millisecond,
	}
	h.mu.Unlock()

	return c.JSON(http.StatusOK, resp)
}

type sessionView struct {
	PlanID      string               `json:"plan_id,omitempty"`
	Stage       models.Stage         `json:"stage"`
	Plan        models.BusinessPlan  `json:"business_plan"`
	ChatHistory []models.ChatMessage `json:"chat_history"`
}

func (h *SessionHandler) session(c echo.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return c.JSON(http.StatusOK, sessionView{
		PlanID:      h.planID,
		Stage:       h.stage,
		Plan:        h.plan,
		ChatHistory: h.history,
	})
}

func (h *SessionHandler) reset(c echo.Context) error {
	h.mu.Lock()
	h.planID = ""
	h.stage = models.StageIdea
	h.plan = models.BusinessPlan{}
	h.history = nil
	h.dirty = false
	h.mu.Unlock()
	return c.JSON(http.StatusOK, map[string]string{"status": "new session"})
}

func (h *SessionHandler) save(c echo.Context) error {
	planID, err := h.persist(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{"plan_id": planID})
}

type loadRequest struct {
	PlanID string `json:"plan_id"`
}

func (h *SessionHandler) load(c echo.Context) error {
	var req loadRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.PlanID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "plan_id is required")
	}
	plan, err := h.manager.LoadPlan(req.PlanID)
	if err != nil {
		if err == state.ErrPlanNotFound {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	history, err := h.manager.LoadChat(req.PlanID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.mu.Lock()
	h.planID = req.PlanID
	h.plan = plan
	h.history = history
	h.stage = state.InferStage(plan)
	h.dirty = false
	view := sessionView{PlanID: h.planID, Stage: h.stage, Plan: h.plan, ChatHistory: h.history}
	h.mu.Unlock()

	return c.JSON(http.StatusOK, view)
}

func (h *SessionHandler) executionHistory(c echo.Context) error {
	return c.JSON(http.StatusOK, h.orch.ExecutionHistory())
}

// persist writes the working session to disk (and the archive when one is
// configured), allocating a plan ID on first save.
func (h *SessionHandler) persist(ctx context.Context) (string, error) {
	h.mu.Lock()
	planID := h.planID
	plan := models.BusinessPlan{}
	plan.Merge(h.plan)
	history := make([]models.ChatMessage, len(h.history))
	copy(history, h.history)
	stage := h.stage
	h.mu.Unlock()

	planID, err := h.manager.SavePlan(plan, planID)
	if err != nil {
		return "", err
	}
	if err := h.manager.SaveChat(planID, history); err != nil {
		return "", err
	}
	planSavesTotal.Inc()

	if h.archive != nil {
		if err := h.archive.ArchivePlan(ctx, planID, plan, stage); err != nil {
			h.logger.Printf("archiving plan %s failed: %v", planID, err)
		}
	}

	h.mu.Lock()
	h.planID = planID
	h.dirty = false
	h.mu.Unlock()
	return planID, nil
}

// StartAutoSave persists the session every interval seconds while it has
// unsaved changes, until StopAutoSave is called.
func (h *SessionHandler) StartAutoSave(intervalSeconds int) {
	h.autoSaveStop = make(chan struct{})
	ticker := time.NewTicker(time.Duration(intervalSeconds) * time.Second)
	go func() {
		for {
			select {
			case <-h.autoSaveStop:
				ticker.Stop()
				return
			case <-ticker.C:
				h.autoSaveTick()
			}
		}
	}()
}

// StopAutoSave terminates the auto-save loop.
func (h *SessionHandler) StopAutoSave() {
	if h.autoSaveStop != nil {
		close(h.autoSaveStop)
		h.autoSaveStop = nil
	}
}

func (h *SessionHandler) autoSaveTick() {
	h.mu.Lock()
	dirty := h.dirty && len(h.history) > 0
	h.mu.Unlock()
	if !dirty {
		return
	}
	if _, err := h.persist(context.Background()); err != nil {
		h.logger.Printf("auto-save failed: %v", err)
	}
}
