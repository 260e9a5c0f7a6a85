package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/copilot/internal/orchestrator"
	"github.com/mohammad-safakhou/copilot/internal/state"
	"github.com/mohammad-safakhou/copilot/models"
)

type solverStub struct {
	answer string
	err    error
}

func (s *solverStub) Solve(_ context.Context, _ string, _ []models.ChatMessage) (string, error) {
	return s.answer, s.err
}

func newTestSession(t *testing.T, answer string, solveErr error) *SessionHandler {
	t.Helper()
	mgr, err := state.NewManager(t.TempDir(), 100)
	if err != nil {
		t.Fatalf("state manager: %v", err)
	}
	logger := log.New(io.Discard, "", 0)
	orch := orchestrator.New(&solverStub{answer: answer, err: solveErr}, logger)
	return NewSessionHandler(orch, mgr, nil, 100, logger)
}

func postJSON(e *echo.Echo, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestChatTurnAdvancesStage(t *testing.T) {
	h := newTestSession(t, "Good idea. Next you should do market research.", nil)
	e := echo.New()

	ctx, rec := postJSON(e, "/api/chat", `{"message":"I want to open a coffee shop, let's analyze market"}`)
	if err := h.chat(ctx); err != nil {
		t.Fatalf("chat returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp chatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Stage != models.StageResearch {
		t.Fatalf("expected stage research, got %s", resp.Stage)
	}
	if resp.NextStage != models.StageResearch {
		t.Fatalf("expected next_stage research, got %q", resp.NextStage)
	}
	if resp.TurnCount != 1 {
		t.Fatalf("turn_count = %d", resp.TurnCount)
	}
}

func TestChatRequiresMessage(t *testing.T) {
	h := newTestSession(t, "ok", nil)
	e := echo.New()

	ctx, _ := postJSON(e, "/api/chat", `{}`)
	err := h.chat(ctx)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 http error, got %#v", err)
	}
}

func TestChatSolverFailureIsBadGateway(t *testing.T) {
	h := newTestSession(t, "", errors.New("deadline exceeded"))
	e := echo.New()

	ctx, _ := postJSON(e, "/api/chat", `{"message":"hello"}`)
	err := h.chat(ctx)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 http error, got %#v", err)
	}
}

type gatedSolver struct {
	mu      sync.Mutex
	calls   int
	entered chan struct{}
	release chan struct{}
}

func (s *gatedSolver) Solve(_ context.Context, _ string, _ []models.ChatMessage) (string, error) {
	s.mu.Lock()
	s.calls++
	first := s.calls == 1
	s.mu.Unlock()
	if first {
		s.entered <- struct{}{}
		<-s.release
		return "You should start research into this idea.", nil
	}
	return "Noted.", nil
}

func TestSlowChatTurnDoesNotRollBackStage(t *testing.T) {
	mgr, err := state.NewManager(t.TempDir(), 100)
	if err != nil {
		t.Fatalf("state manager: %v", err)
	}
	logger := log.New(io.Discard, "", 0)
	gs := &gatedSolver{entered: make(chan struct{}), release: make(chan struct{})}
	h := NewSessionHandler(orchestrator.New(gs, logger), mgr, nil, 100, logger)
	e := echo.New()

	// First turn blocks inside the solver while the session moves on.
	done := make(chan error, 1)
	go func() {
		ctx, _ := postJSON(e, "/api/chat", `{"message":"tell me about my idea"}`)
		done <- h.chat(ctx)
	}()
	<-gs.entered

	ctx, _ := postJSON(e, "/api/chat", `{"message":"let's do market research"}`)
	if err := h.chat(ctx); err != nil {
		t.Fatalf("second turn: %v", err)
	}
	ctx, _ = postJSON(e, "/api/chat", `{"message":"time to create plan"}`)
	if err := h.chat(ctx); err != nil {
		t.Fatalf("third turn: %v", err)
	}

	h.mu.Lock()
	stage := h.stage
	h.mu.Unlock()
	if stage != models.StagePlanning {
		t.Fatalf("expected planning before the slow turn completes, got %s", stage)
	}

	close(gs.release)
	if err := <-done; err != nil {
		t.Fatalf("slow turn: %v", err)
	}

	h.mu.Lock()
	stage = h.stage
	h.mu.Unlock()
	if stage != models.StagePlanning {
		t.Fatalf("slow turn rolled the stage back to %s", stage)
	}
}

func TestSessionSaveLoadRoundTrip(t *testing.T) {
	h := newTestSession(t, "Noted.", nil)
	e := echo.New()

	h.mu.Lock()
	h.plan = models.BusinessPlan{"business_name": "Bean There", "has_market_research": true}
	h.history = []models.ChatMessage{
		{Role: "user", Content: "hello"},
		{Role: "assistant", Content: "Noted."},
	}
	h.stage = models.StageResearch
	h.mu.Unlock()

	ctx, rec := postJSON(e, "/api/session/save", ``)
	if err := h.save(ctx); err != nil {
		t.Fatalf("save returned error: %v", err)
	}
	var saved map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &saved); err != nil {
		t.Fatalf("decode: %v", err)
	}
	planID := saved["plan_id"]
	if planID == "" {
		t.Fatal("expected an allocated plan_id")
	}

	// Fresh session, then load the saved plan back.
	ctx, _ = postJSON(e, "/api/session/new", ``)
	if err := h.reset(ctx); err != nil {
		t.Fatalf("reset returned error: %v", err)
	}

	ctx, rec = postJSON(e, "/api/session/load", `{"plan_id":"`+planID+`"}`)
	if err := h.load(ctx); err != nil {
		t.Fatalf("load returned error: %v", err)
	}
	var view sessionView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if view.Plan.StringField("business_name") != "Bean There" {
		t.Fatalf("unexpected plan: %#v", view.Plan)
	}
	if view.Stage != models.StageResearch {
		t.Fatalf("expected inferred stage research, got %s", view.Stage)
	}
	if len(view.ChatHistory) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(view.ChatHistory))
	}
}

func TestSessionLoadUnknownPlan(t *testing.T) {
	h := newTestSession(t, "ok", nil)
	e := echo.New()

	ctx, _ := postJSON(e, "/api/session/load", `{"plan_id":"nope"}`)
	err := h.load(ctx)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 http error, got %#v", err)
	}
}

func TestAutoSaveTickPersistsDirtySession(t *testing.T) {
	h := newTestSession(t, "Noted.", nil)

	h.mu.Lock()
	h.plan = models.BusinessPlan{"business_name": "Bean There"}
	h.history = []models.ChatMessage{{Role: "user", Content: "hello"}}
	h.dirty = true
	h.mu.Unlock()

	h.autoSaveTick()

	h.mu.Lock()
	planID := h.planID
	dirty := h.dirty
	h.mu.Unlock()
	if planID == "" {
		t.Fatal("auto-save should allocate a plan ID")
	}
	if dirty {
		t.Fatal("auto-save should clear the dirty flag")
	}
	if _, err := h.manager.LoadPlan(planID); err != nil {
		t.Fatalf("auto-saved plan not on disk: %v", err)
	}

	// Clean session: the tick is a no-op and must not touch disk again.
	h.autoSaveTick()
}

func TestAutoSaveStartStop(t *testing.T) {
	h := newTestSession(t, "ok", nil)

	h.StartAutoSave(60)
	if h.autoSaveStop == nil {
		t.Fatal("expected a stop channel after start")
	}
	h.StopAutoSave()
	if h.autoSaveStop != nil {
		t.Fatal("stop channel should be cleared after stop")
	}
	// A second stop is a no-op.
	h.StopAutoSave()
}

func TestSessionViewStartsAtIdea(t *testing.T) {
	h := newTestSession(t, "ok", nil)
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
	rec := httptest.NewRecorder()
	if err := h.session(e.NewContext(req, rec)); err != nil {
		t.Fatalf("session returned error: %v", err)
	}
	var view sessionView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if view.Stage != models.StageIdea {
		t.Fatalf("expected idea stage, got %s", view.Stage)
	}
	if len(view.ChatHistory) != 0 {
		t.Fatalf("expected empty history, got %d", len(view.ChatHistory))
	}
}
