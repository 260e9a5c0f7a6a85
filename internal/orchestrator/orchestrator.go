package orchestrator

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mohammad-safakhou/copilot/models"
)

const maxExecutionHistory = 100

// systemGuidance frames every solve so the assistant stays in the business
// consultant register regardless of stage.
const systemGuidance = `You are a professional business consultant. Provide helpful, well-structured business advice.

**TONE REQUIREMENTS:**
- Use professional, polite, and respectful language
- Be calm, supportive, and encouraging
- Avoid profanity or aggressive language
- Maintain a friendly yet professional tone

**RESPONSE REQUIREMENTS:**
- Provide concise, actionable insights (400-600 words)
- Use web search when you need current data
- Include specific numbers and examples when available
- Structure information with clear headings
- Focus on practical, immediately useful advice`

// stageContext holds the per-stage objective block injected ahead of the
// user request. Keys are the five pipeline stages.
var stageContext = map[models.Stage]string{
	models.StageIdea: `💡 IDEA STAGE - Provide analysis of the business idea:

Include these sections (400-600 words total):
- Market Overview: Basic market size and trends (search if needed)
- Target Customers: Who will buy this?
- Competition: 2-3 main competitors
- Viability: Initial cost estimate and revenue potential
- Key Risks: Top 3 risks
- Next Steps: 3-5 recommendations

Keep it concise and actionable.`,

	models.StageResearch: `🔍 RESEARCH STAGE - Provide market research insights:

Include (400-600 words total):
- Market Size: Current size and growth rate (search if needed)
- Customers: Key segments and demographics
- Competition: Top 3-4 competitors and their positioning
- Trends: 2-3 major industry trends
- Barriers: Main entry barriers

Be concise and data-driven.`,

	models.StagePlanning: `📋 PLANNING STAGE - Provide business plan guidance:

Include (400-600 words total):
- Business Model: Revenue streams and pricing
- Operations: Key processes and tools needed
- Marketing: Main channels and tactics
- Team: Essential roles and timeline
- Milestones: 6-month roadmap

Keep it practical and actionable.`,

	models.StageCosting: `💰 COSTING STAGE - Provide financial analysis:

Include (400-600 words total):
- Startup Costs: Major expense categories with estimates
- Monthly Costs: Operating expenses breakdown
- Revenue: Pricing and sales projections
- Break-even: Timeline estimate
- Funding: Total capital needed

Show key calculations.`,

	models.StageLaunch: `🚀 LAUNCH STAGE - Provide launch plan:

Include (400-600 words total):
- Legal: Registration steps and licenses needed
- Setup: Key equipment and tools
- Marketing: Pre-launch and launch tactics
- Timeline: 90-day action plan
- Risks: Top 3 risks to watch

Be practical and specific.`,
}

// progressionKeywords advance the pipeline when any of them appear in the
// combined user input and answer text. launch is terminal and has no entry.
var progressionKeywords = map[models.Stage][]string{
	models.StageIdea:     {"start research", "market research", "analyze market"},
	models.StageResearch: {"create plan", "business plan", "develop strategy"},
	models.StagePlanning: {"calculate costs", "financial", "budget"},
	models.StageCosting:  {"launch", "register", "start business"},
}

// TaskSolver answers one enriched task.
type TaskSolver interface {
	Solve(ctx context.Context, task string, history []models.ChatMessage) (string, error)
}

// Result is the outcome of one orchestrated turn.
type Result struct {
	Message    string              `json:"message"`
	PlanUpdate models.BusinessPlan `json:"business_plan_update,omitempty"`
	NextStage  models.Stage        `json:"next_stage,omitempty"`
	TaskID     string              `json:"task_id"`
}

// Orchestrator drives the staged planning conversation: it enriches the user
// request with stage objectives and plan context, delegates to the solver,
// then derives plan updates and stage advancement from the exchange.
type Orchestrator struct {
	solver TaskSolver
	logger *log.Logger

	mu      sync.Mutex
	history []models.ExecutionLogEntry
}

// New builds an orchestrator over the given solver.
func New(solver TaskSolver, logger *log.Logger) *Orchestrator {
	if logger == nil {
		logger = log.New(log.Writer(), "[ORCH] ", log.LstdFlags)
	}
	return &Orchestrator{solver: solver, logger: logger}
}

// Process runs one conversational turn. NextStage is empty when the pipeline
// stays on the current stage; PlanUpdate is nil when the answer carried no
// extractable plan data.
func (o *Orchestrator) Process(ctx context.Context, userInput string, stage models.Stage, plan models.BusinessPlan, history []models.ChatMessage) (Result, error) {
	taskID := "task_" + uuid.NewString()
	o.logTask(taskID, "task_solver", userInput, stage)

	task := EnrichTask(userInput, stage, plan)
	answer, err := o.solver.Solve(ctx, task, history)
	if err != nil {
		return Result{TaskID: taskID}, fmt.Errorf("solver: %w", err)
	}

	res := Result{Message: answer, TaskID: taskID}
	res.PlanUpdate = ExtractBusinessData(answer, stage)
	if next := DetermineNextStage(stage, userInput, answer); next != stage {
		res.NextStage = next
		o.logger.Printf("stage advanced %s -> %s", stage, next)
	}
	return res, nil
}

// EnrichTask assembles the solver task: consultant guidance, stage
// objectives, known plan context and finally the user request.
func EnrichTask(userInput string, stage models.Stage, plan models.BusinessPlan) string {
	var parts []string
	if sc, ok := stageContext[stage]; ok {
		parts = append(parts, sc)
	}
	if v := plan.StringField("business_name"); v != "" {
		parts = append(parts, "Business: "+v)
	}
	if v := plan.StringField("industry"); v != "" {
		parts = append(parts, "Industry: "+v)
	}
	if v := plan.StringField("target_region"); v != "" {
		parts = append(parts, "Region: "+v)
	}
	return fmt.Sprintf("%s\n\n[Business Context: %s]\n\nUser Request: %s",
		systemGuidance, strings.Join(parts, " | "), userInput)
}

// ExtractBusinessData scans the answer for plan fields worth persisting.
// Returns nil when nothing was found.
func ExtractBusinessData(answer string, stage models.Stage) models.BusinessPlan {
	updates := models.BusinessPlan{}
	lower := strings.ToLower(answer)

	if strings.Contains(lower, "business name") || strings.Contains(lower, "company name") {
		for _, line := range strings.Split(answer, "\n") {
			lineLower := strings.ToLower(line)
			if strings.Contains(lineLower, "name:") || strings.Contains(lineLower, "business:") {
				if _, val, ok := strings.Cut(line, ":"); ok {
					updates["business_name"] = strings.TrimSpace(val)
				}
			}
		}
	}

	switch stage {
	case models.StageResearch:
		if strings.Contains(lower, "market") || strings.Contains(lower, "industry") {
			updates["has_market_research"] = true
		}
	case models.StagePlanning:
		if strings.Contains(lower, "plan") || strings.Contains(lower, "strategy") {
			updates["has_business_plan"] = true
		}
	case models.StageCosting:
		if strings.Contains(lower, "cost") || strings.Contains(answer, "$") {
			updates["has_financial_projections"] = true
		}
	case models.StageLaunch:
		if strings.Contains(lower, "launch") || strings.Contains(lower, "register") {
			updates["has_launch_plan"] = true
		}
	}

	if len(updates) == 0 {
		return nil
	}
	return updates
}

// DetermineNextStage advances at most one stage when a progression keyword
// appears in the combined conversation text.
func DetermineNextStage(current models.Stage, userInput, answer string) models.Stage {
	keywords, ok := progressionKeywords[current]
	if !ok || current.Terminal() {
		return current
	}
	combined := strings.ToLower(userInput + " " + answer)
	for _, kw := range keywords {
		if strings.Contains(combined, kw) {
			return current.Next()
		}
	}
	return current
}

// StageContext exposes the objective block for a stage, for UI display.
func StageContext(stage models.Stage) (string, bool) {
	sc, ok := stageContext[stage]
	return sc, ok
}

func (o *Orchestrator) logTask(taskID, agent, task string, stage models.Stage) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.history = append(o.history, models.ExecutionLogEntry{
		TaskID:    taskID,
		Timestamp: time.Now(),
		Agent:     agent,
		Task:      task,
		Stage:     stage,
	})
	if len(o.history) > maxExecutionHistory {
		o.history = o.history[len(o.history)-maxExecutionHistory:]
	}
}

// ExecutionHistory returns a copy of the recent task log.
func (o *Orchestrator) ExecutionHistory() []models.ExecutionLogEntry {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]models.ExecutionLogEntry, len(o.history))
	copy(out, o.history)
	return out
}

// Status reports orchestrator activity for the status endpoint.
func (o *Orchestrator) Status() map[string]interface{} {
	o.mu.Lock()
	defer o.mu.Unlock()
	status := map[string]interface{}{
		"enabled":         true,
		"execution_count": len(o.history),
	}
	if len(o.history) > 0 {
		status["last_execution"] = o.history[len(o.history)-1]
	}
	return status
}
