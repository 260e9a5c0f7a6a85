package solver

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"testing"

	"github.com/mohammad-safakhou/copilot/config"
	"github.com/mohammad-safakhou/copilot/internal/llm"
	"github.com/mohammad-safakhou/copilot/internal/search"
	"github.com/mohammad-safakhou/copilot/models"
)

type scriptedClient struct {
	reply   string
	err     error
	prompts []string
}

func (c *scriptedClient) Generate(_ context.Context, prompt string, _ []models.ChatMessage) (string, error) {
	c.prompts = append(c.prompts, prompt)
	if c.err != nil {
		return "", c.err
	}
	return c.reply, nil
}

type fixedSearcher struct{ results []models.SearchResult }

func (f fixedSearcher) Search(_ context.Context, _ string, _ int) ([]models.SearchResult, error) {
	return f.results, nil
}

func quietLogger() *log.Logger { return log.New(io.Discard, "", 0) }

func TestSolveAttachesResearchFindings(t *testing.T) {
	client := &scriptedClient{reply: "Coffee demand is growing."}
	llmSvc := llm.NewServiceWithClient(client, "test-model", quietLogger())
	searchSvc := search.NewServiceWith(fixedSearcher{results: []models.SearchResult{
		{Title: "Coffee market report", Snippet: "The coffee market grew 8% in 2024", URL: "https://example.org/report"},
	}}, nil, nil, quietLogger())

	s := New(config.SolverConfig{MaxDepth: 1}, llmSvc, searchSvc, quietLogger())
	answer, err := s.Solve(context.Background(), "What is the market size for coffee shops?\n\nUser Request: coffee shop market size", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer != "Coffee demand is growing." {
		t.Fatalf("unexpected answer: %q", answer)
	}
	if len(client.prompts) != 1 {
		t.Fatalf("expected one generation, got %d", len(client.prompts))
	}
	if !strings.Contains(client.prompts[0], "[Web Research Findings]") {
		t.Fatalf("prompt missing research findings:\n%s", client.prompts[0])
	}
	if !strings.Contains(client.prompts[0], "Coffee market report") {
		t.Fatalf("prompt missing search content:\n%s", client.prompts[0])
	}
}

func TestSolveSkipsResearchForPlainTasks(t *testing.T) {
	client := &scriptedClient{reply: "Here is a launch checklist."}
	llmSvc := llm.NewServiceWithClient(client, "test-model", quietLogger())
	searchSvc := search.NewServiceWith(fixedSearcher{}, nil, nil, quietLogger())

	s := New(config.SolverConfig{MaxDepth: 1}, llmSvc, searchSvc, quietLogger())
	answer, err := s.Solve(context.Background(), "Help me write a launch checklist", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer == "" {
		t.Fatal("expected an answer")
	}
	if strings.Contains(client.prompts[0], "[Web Research Findings]") {
		t.Fatalf("plain task should not trigger research:\n%s", client.prompts[0])
	}
}

func TestSolveReturnsFallbackOnTransportFailure(t *testing.T) {
	client := &scriptedClient{err: errors.New("connection refused")}
	llmSvc := llm.NewServiceWithClient(client, "test-model", quietLogger())

	s := New(config.SolverConfig{MaxDepth: 1}, llmSvc, nil, quietLogger())
	answer, err := s.Solve(context.Background(), "Help me plan my business", nil)
	if err != nil {
		t.Fatalf("fallback text should satisfy the solve: %v", err)
	}
	if answer == "" {
		t.Fatal("expected fallback text")
	}
}

func TestResearchQueryPrefersUserRequestLine(t *testing.T) {
	got := researchQuery("long guidance text\n\nUser Request: bakery startup costs")
	if got != "bakery startup costs" {
		t.Fatalf("researchQuery = %q", got)
	}
	long := strings.Repeat("a", 300)
	if got := researchQuery(long); len(got) != 200 {
		t.Fatalf("expected truncation to 200, got %d", len(got))
	}
}
