package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mohammad-safakhou/copilot/config"
	"github.com/mohammad-safakhou/copilot/models"
)

// historyWindow limits how many trailing turns are sent with each request to
// keep prompts inside the model's context budget.
const historyWindow = 10

const systemPrompt = `You are a professional business advisor helping entrepreneurs plan and launch their businesses.

CRITICAL RULES - MUST FOLLOW:
1. LANGUAGE: Use ONLY professional, respectful, calm, and polite language
2. NO PROFANITY: Absolutely NO curse words, vulgar terms, or offensive language of any kind
3. TONE: Be supportive, encouraging, helpful, and professional at all times
4. CONTEXT: Remember and reference previous conversation context
5. ACCURACY: Provide specific, actionable advice with real numbers and data

FORMATTING REQUIREMENTS:
6. STRUCTURE: Organize responses with clear sections using headers (## or **)
7. SPACING: Add blank lines between major topics and sections for readability
8. BULLETS: Use bullet points or numbered lists for key points
9. CLARITY: Keep paragraphs concise (2-4 sentences max)

You are a respected business consultant - maintain that professional standard with clear, well-organized responses.`

// ErrNoChoices indicates the API returned an empty choices array.
var ErrNoChoices = errors.New("no choices in response")

// StatusError is returned for non-200 responses from the chat endpoint.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("Fireworks API error: %d", e.Code)
	switch e.Code {
	case http.StatusUnauthorized:
		msg += " - Invalid API key"
	case http.StatusTooManyRequests:
		msg += " - Rate limit exceeded"
	case http.StatusServiceUnavailable:
		msg += " - Service temporarily unavailable"
	}
	return msg
}

// FireworksClient talks to the Fireworks chat-completions endpoint.
type FireworksClient struct {
	apiKey           string
	baseURL          string
	model            string
	temperature      float64
	maxTokens        int
	topP             float64
	frequencyPenalty float64
	httpClient       *http.Client
}

type chatRequest struct {
	Model            string                `json:"model"`
	Messages         []models.ChatMessage  `json:"messages"`
	Temperature      float64               `json:"temperature"`
	MaxTokens        int                   `json:"max_tokens,omitempty"`
	TopP             float64               `json:"top_p,omitempty"`
	FrequencyPenalty float64               `json:"frequency_penalty,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// NewFireworksClient creates a chat client from configuration.
func NewFireworksClient(cfg config.LLMConfig) *FireworksClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.fireworks.ai/inference/v1"
	}
	return &FireworksClient{
		apiKey:           cfg.APIKey,
		baseURL:          baseURL,
		model:            cfg.Model,
		temperature:      cfg.Temperature,
		maxTokens:        cfg.MaxTokens,
		topP:             cfg.TopP,
		frequencyPenalty: cfg.FrequencyPenalty,
		httpClient:       &http.Client{Timeout: timeout},
	}
}

// Generate sends the system prompt, the trailing history window and the new
// prompt to the chat endpoint and returns the raw completion text.
func (c *FireworksClient) Generate(ctx context.Context, prompt string, history []models.ChatMessage) (string, error) {
	messages := make([]models.ChatMessage, 0, len(history)+2)
	messages = append(messages, models.ChatMessage{Role: "system", Content: systemPrompt})
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	messages = append(messages, history...)
	messages = append(messages, models.ChatMessage{Role: "user", Content: prompt})

	body, err := json.Marshal(chatRequest{
		Model:            c.model,
		Messages:         messages,
		Temperature:      c.temperature,
		MaxTokens:        c.maxTokens,
		TopP:             c.topP,
		FrequencyPenalty: c.frequencyPenalty,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{Code: resp.StatusCode}
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", ErrNoChoices
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}
