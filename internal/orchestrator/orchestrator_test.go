package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"testing"

	"github.com/mohammad-safakhou/copilot/models"
)

type stubSolver struct {
	answer string
	err    error
	tasks  []string
}

func (s *stubSolver) Solve(_ context.Context, task string, _ []models.ChatMessage) (string, error) {
	s.tasks = append(s.tasks, task)
	return s.answer, s.err
}

func newTestOrchestrator(answer string, err error) (*Orchestrator, *stubSolver) {
	s := &stubSolver{answer: answer, err: err}
	return New(s, log.New(io.Discard, "", 0)), s
}

func TestEnrichTaskIncludesStageBlockAndContext(t *testing.T) {
	plan := models.BusinessPlan{
		"business_name": "Bean There",
		"industry":      "coffee",
		"target_region": "Berlin",
	}
	task := EnrichTask("How big is the market?", models.StageIdea, plan)

	if !strings.Contains(task, "💡 IDEA STAGE") {
		t.Fatalf("missing idea stage block:\n%s", task)
	}
	if !strings.Contains(task, "Business: Bean There | Industry: coffee | Region: Berlin") {
		t.Fatalf("missing business context:\n%s", task)
	}
	if !strings.HasSuffix(task, "User Request: How big is the market?") {
		t.Fatalf("user request should close the task:\n%s", task)
	}
}

func TestEnrichTaskStageEmojis(t *testing.T) {
	wants := map[models.Stage]string{
		models.StageIdea:     "💡 IDEA STAGE",
		models.StageResearch: "🔍 RESEARCH STAGE",
		models.StagePlanning: "📋 PLANNING STAGE",
		models.StageCosting:  "💰 COSTING STAGE",
		models.StageLaunch:   "🚀 LAUNCH STAGE",
	}
	for stage, header := range wants {
		task := EnrichTask("hello", stage, models.BusinessPlan{})
		if !strings.Contains(task, header) {
			t.Fatalf("stage %s: missing %q", stage, header)
		}
	}
}

func TestDetermineNextStage(t *testing.T) {
	cases := []struct {
		stage models.Stage
		input string
		want  models.Stage
	}{
		{models.StageIdea, "let's do some market research", models.StageResearch},
		{models.StageIdea, "tell me more about the idea", models.StageIdea},
		{models.StageResearch, "time to create plan", models.StagePlanning},
		{models.StagePlanning, "what's the budget?", models.StageCosting},
		{models.StageCosting, "ready to launch", models.StageLaunch},
		{models.StageLaunch, "launch launch launch", models.StageLaunch},
	}
	for _, tc := range cases {
		if got := DetermineNextStage(tc.stage, tc.input, ""); got != tc.want {
			t.Fatalf("%s + %q: got %s, want %s", tc.stage, tc.input, got, tc.want)
		}
	}
}

func TestDetermineNextStageAdvancesFromAnswerToo(t *testing.T) {
	got := DetermineNextStage(models.StageIdea, "ok", "I recommend you start research into competitors.")
	if got != models.StageResearch {
		t.Fatalf("answer keywords should advance: got %s", got)
	}
}

func TestExtractBusinessData(t *testing.T) {
	answer := "Your business name matters.\nBusiness: Bean There Done That\nThe market looks strong."
	updates := ExtractBusinessData(answer, models.StageResearch)
	if updates == nil {
		t.Fatal("expected updates")
	}
	if updates["business_name"] != "Bean There Done That" {
		t.Fatalf("business_name = %v", updates["business_name"])
	}
	if updates["has_market_research"] != true {
		t.Fatalf("has_market_research = %v", updates["has_market_research"])
	}
}

func TestExtractBusinessDataStageFlags(t *testing.T) {
	cases := []struct {
		stage  models.Stage
		answer string
		key    string
	}{
		{models.StagePlanning, "Here is your strategy.", "has_business_plan"},
		{models.StageCosting, "Expect $5000 upfront.", "has_financial_projections"},
		{models.StageLaunch, "First, register the company.", "has_launch_plan"},
	}
	for _, tc := range cases {
		updates := ExtractBusinessData(tc.answer, tc.stage)
		if updates == nil || updates[tc.key] != true {
			t.Fatalf("stage %s: expected %s flag, got %v", tc.stage, tc.key, updates)
		}
	}
}

func TestExtractBusinessDataNilWhenNothingFound(t *testing.T) {
	if updates := ExtractBusinessData("Hello there.", models.StageIdea); updates != nil {
		t.Fatalf("expected nil, got %v", updates)
	}
}

func TestProcessReturnsAdvancementAndUpdates(t *testing.T) {
	o, solver := newTestOrchestrator("The market for coffee is large. You should start research next.", nil)
	res, err := o.Process(context.Background(), "analyze my coffee idea and analyze market", models.StageIdea, models.BusinessPlan{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Message == "" || res.TaskID == "" {
		t.Fatalf("incomplete result: %+v", res)
	}
	if res.NextStage != models.StageResearch {
		t.Fatalf("expected advancement to research, got %q", res.NextStage)
	}
	if len(solver.tasks) != 1 || !strings.Contains(solver.tasks[0], "💡 IDEA STAGE") {
		t.Fatalf("solver received wrong task: %v", solver.tasks)
	}
}

func TestProcessPropagatesSolverError(t *testing.T) {
	o, _ := newTestOrchestrator("", errors.New("deadline exceeded"))
	_, err := o.Process(context.Background(), "hello", models.StageIdea, models.BusinessPlan{}, nil)
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestExecutionHistoryRing(t *testing.T) {
	o, _ := newTestOrchestrator("ok", nil)
	for i := 0; i < maxExecutionHistory+10; i++ {
		_, err := o.Process(context.Background(), fmt.Sprintf("request %d", i), models.StageIdea, models.BusinessPlan{}, nil)
		if err != nil {
			t.Fatalf("process %d: %v", i, err)
		}
	}
	hist := o.ExecutionHistory()
	if len(hist) != maxExecutionHistory {
		t.Fatalf("history length = %d", len(hist))
	}
	if !strings.HasSuffix(hist[len(hist)-1].Task, fmt.Sprintf("request %d", maxExecutionHistory+9)) {
		t.Fatalf("unexpected last entry: %q", hist[len(hist)-1].Task)
	}

	status := o.Status()
	if status["execution_count"] != maxExecutionHistory {
		t.Fatalf("execution_count = %v", status["execution_count"])
	}
}
