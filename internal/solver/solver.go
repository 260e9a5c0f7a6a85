package solver

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/mohammad-safakhou/copilot/config"
	"github.com/mohammad-safakhou/copilot/internal/llm"
	"github.com/mohammad-safakhou/copilot/internal/search"
	"github.com/mohammad-safakhou/copilot/models"
)

// researchTerms trigger a web research pass before generation.
var researchTerms = []string{
	"market", "competitor", "statistics", "trends", "current",
	"industry", "research", "data", "size", "growth",
}

// Solver answers an enriched task, optionally grounding it with web research
// first. It stands in for the recursive agent the original deployment
// delegated to: depth is deliberately shallow (default 1) so responses stay
// interactive, and the whole solve runs under one deadline.
type Solver struct {
	llm      *llm.Service
	search   *search.Service
	maxDepth int
	timeout  time.Duration
	logger   *log.Logger
}

// New creates a solver over the chat and search services.
func New(cfg config.SolverConfig, llmSvc *llm.Service, searchSvc *search.Service, logger *log.Logger) *Solver {
	if logger == nil {
		logger = log.New(log.Writer(), "[SOLVER] ", log.LstdFlags)
	}
	maxDepth := cfg.MaxDepth
	if maxDepth <= 0 {
		maxDepth = 1
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Solver{llm: llmSvc, search: searchSvc, maxDepth: maxDepth, timeout: timeout, logger: logger}
}

// Solve answers the task. The returned text is always non-empty on nil
// error; transport failures inside the chat service degrade to fallback
// templates rather than aborting the solve.
func (s *Solver) Solve(ctx context.Context, task string, history []models.ChatMessage) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.solve(ctx, task, history, 0)
}

func (s *Solver) solve(ctx context.Context, task string, history []models.ChatMessage, depth int) (string, error) {
	prompt := task
	if depth < s.maxDepth && s.needsResearch(task) {
		if findings := s.research(ctx, task); findings != "" {
			prompt = fmt.Sprintf("%s\n\n[Web Research Findings]\n%s", task, findings)
		}
	}

	answer, err := s.llm.Generate(ctx, prompt, history)
	if err != nil {
		// The chat service already substituted a fallback template; keep the
		// conversation alive and leave the failure in the logs.
		s.logger.Printf("generation degraded to fallback: %v", err)
	}
	if ctxErr := ctx.Err(); ctxErr != nil && answer == "" {
		return "", fmt.Errorf("solve aborted: %w", ctxErr)
	}
	if answer == "" {
		return "", fmt.Errorf("empty answer from chat service")
	}
	return answer, nil
}

// needsResearch checks whether the task asks for information the model alone
// is unlikely to have current numbers for.
func (s *Solver) needsResearch(task string) bool {
	if s.search == nil {
		return false
	}
	lower := strings.ToLower(task)
	for _, term := range researchTerms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

// research runs the search pipeline in deep mode and returns the synthesized
// findings, or "" when nothing useful came back.
func (s *Solver) research(ctx context.Context, task string) string {
	query := researchQuery(task)
	resp := s.search.Search(ctx, query, 5, true)
	if resp.Err != "" {
		s.logger.Printf("research failed for %q: %s", query, resp.Err)
	}
	if strings.HasPrefix(resp.Results, "No ") {
		return ""
	}
	return resp.Results
}

// researchQuery condenses a long enriched task into a short search query by
// keeping the user request line when present.
func researchQuery(task string) string {
	if idx := strings.LastIndex(task, "User Request:"); idx >= 0 {
		q := strings.TrimSpace(task[idx+len("User Request:"):])
		if q != "" {
			return q
		}
	}
	const maxQueryLen = 200
	q := strings.TrimSpace(task)
	if len(q) > maxQueryLen {
		q = q[:maxQueryLen]
	}
	return q
}
