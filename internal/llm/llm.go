package llm

import (
	"context"
	"log"
	"strings"

	"github.com/mohammad-safakhou/copilot/config"
	"github.com/mohammad-safakhou/copilot/models"
)

// Client is the raw chat-completions transport. Implementations return typed
// errors; they never substitute canned text.
type Client interface {
	Generate(ctx context.Context, prompt string, history []models.ChatMessage) (string, error)
}

// Service wraps a Client with output sanitisation and canned fallbacks. It
// always produces text: when the transport fails the reply is a fallback
// template and the error is returned alongside so callers can log or surface
// it instead of mistaking the canned text for a model answer.
type Service struct {
	client Client
	model  string
	logger *log.Logger
}

// NewService builds the chat service from configuration.
func NewService(cfg config.LLMConfig, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(log.Writer(), "[LLM] ", log.LstdFlags)
	}
	return &Service{
		client: NewFireworksClient(cfg),
		model:  cfg.Model,
		logger: logger,
	}
}

// NewServiceWithClient builds the chat service around an existing client.
func NewServiceWithClient(client Client, model string, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(log.Writer(), "[LLM] ", log.LstdFlags)
	}
	return &Service{client: client, model: model, logger: logger}
}

// Generate produces a reply for prompt given the trailing conversation
// history. The returned text is never empty; if err is non-nil the text is a
// fallback template annotated with the failure.
func (s *Service) Generate(ctx context.Context, prompt string, history []models.ChatMessage) (string, error) {
	raw, err := s.client.Generate(ctx, prompt, history)
	if err != nil {
		s.logger.Printf("generation failed, serving fallback: %v", err)
		fallbacksTotal.Inc()
		return FallbackResponse(prompt, err.Error()), err
	}
	return Sanitize(raw), nil
}

// Health describes the observed state of the chat service.
type Health struct {
	Status       string `json:"status"` // healthy, degraded, unhealthy
	Message      string `json:"message"`
	Model        string `json:"model"`
	FallbackMode bool   `json:"fallback_mode"`
}

// HealthCheck probes the service with a trivial prompt and reports whether
// real generations or fallbacks are being served.
func (s *Service) HealthCheck(ctx context.Context) Health {
	text, err := s.Generate(ctx, "Hello, are you working?", nil)
	fallback := err != nil || strings.Contains(text, "temporarily unavailable") || strings.Contains(text, "Service Note:")
	h := Health{Model: s.model, FallbackMode: fallback}
	if fallback {
		h.Status = "degraded"
		h.Message = "Using fallback responses"
	} else {
		h.Status = "healthy"
		h.Message = "Chat model operational"
	}
	return h
}

// ModelInfo describes the configured chat model.
type ModelInfo struct {
	ModelName string   `json:"model_name"`
	Provider  string   `json:"provider"`
	Specialty string   `json:"specialty"`
	BestFor   []string `json:"best_for"`
}

// ModelInfo returns static metadata about the configured model.
func (s *Service) ModelInfo() ModelInfo {
	return ModelInfo{
		ModelName: s.model,
		Provider:  "Fireworks AI",
		Specialty: "Business planning and analysis",
		BestFor: []string{
			"Business plan generation",
			"Financial analysis",
			"Marketing strategy",
			"Operational planning",
			"Risk assessment",
		},
	}
}
