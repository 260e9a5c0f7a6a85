package jina

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const (
	defaultEndpoint = "https://api.jina.ai/v1/rerank"
	defaultModel    = "jina-reranker-v2-base-multilingual"
)

// Score is one reranked document reference.
type Score struct {
	Index          int     `json:"index"`
	RelevanceScore float64 `json:"relevance_score"`
}

// Client reranks documents through the Jina AI reranker API.
type Client struct {
	APIKey     string
	Endpoint   string
	Model      string
	HTTPClient *http.Client
}

// New creates a Jina reranker client.
func New(apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		APIKey:     apiKey,
		Endpoint:   defaultEndpoint,
		Model:      defaultModel,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// Rerank scores documents against query and returns them ordered by the API.
func (c *Client) Rerank(ctx context.Context, query string, documents []string, topN int) ([]Score, error) {
	if topN > len(documents) {
		topN = len(documents)
	}
	model := c.Model
	if model == "" {
		model = defaultModel
	}
	body, err := json.Marshal(map[string]any{
		"model":     model,
		"query":     query,
		"documents": documents,
		"top_n":     topN,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := c.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jina API returned status: %d", resp.StatusCode)
	}

	var out struct {
		Results []Score `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return out.Results, nil
}
